package domain

import "time"

// Query defaults.
const (
	DefaultMaxResults  = 5
	DefaultTemperature = 0.7
	DefaultLiveLimit   = 3

	// LiveSimilarity is the fixed similarity assigned to live tool items.
	LiveSimilarity = 0.8
)

// QueryOptions configures one query.
type QueryOptions struct {
	// DocumentID restricts retrieval to a single document.
	DocumentID string

	// MaxResults is the number of context items used for generation.
	MaxResults int

	// Temperature is passed to the generation capability.
	Temperature float64

	// LiveSources names tool providers to ask for live items.
	LiveSources []string

	// LiveLimit caps the live items requested per source.
	LiveLimit int
}

// WithDefaults returns a copy with zero values replaced by defaults.
func (o QueryOptions) WithDefaults() QueryOptions {
	if o.MaxResults <= 0 {
		o.MaxResults = DefaultMaxResults
	}
	if o.Temperature < 0 {
		o.Temperature = 0
	}
	if o.LiveLimit <= 0 {
		o.LiveLimit = DefaultLiveLimit
	}
	return o
}

// QuerySettings is the snapshot of settings recorded with a query.
type QuerySettings struct {
	Temperature float64 `json:"temperature"`
	MaxResults  int     `json:"max_results"`
}

// SourceRef references one context item used to answer a query.
type SourceRef struct {
	RecordID   string  `json:"record_id"`
	DocumentID string  `json:"document_id,omitempty"`
	Title      string  `json:"title,omitempty"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
	Live       bool    `json:"live,omitempty"`
}

// QueryRecord is one answered question. History is append-only.
type QueryRecord struct {
	ID         string        `json:"id"`
	Query      string        `json:"query"`
	Answer     string        `json:"answer"`
	Sources    []SourceRef   `json:"sources"`
	Confidence float64       `json:"confidence"`
	CreatedAt  time.Time     `json:"created_at"`
	Settings   QuerySettings `json:"settings"`
}

// ExportFormat selects a history export serialisation.
type ExportFormat string

// Supported export formats.
const (
	ExportJSON ExportFormat = "json"
	ExportCSV  ExportFormat = "csv"
)
