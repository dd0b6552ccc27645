package domain

import "time"

// SyncState tracks aggregation progress for one source.
type SyncState struct {
	// Source is the tool provider name.
	Source string

	// ItemCount is the number of documents held for the source.
	ItemCount int

	// LastSync is when the last completed sync pass finished.
	LastSync time.Time
}

// SourceResult summarises one source in a sync pass.
type SourceResult struct {
	Fetched   int
	Processed int
	LastSync  time.Time
}

// SyncReport is the outcome of a sync pass across sources.
// A failing source appears in Errors and does not stop the others.
type SyncReport struct {
	Results map[string]SourceResult
	Errors  map[string]string
}
