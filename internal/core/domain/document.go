package domain

import (
	"strconv"
	"time"
)

// SourceUpload is the SourceKind of documents added directly by the user.
const SourceUpload = "upload"

// Document represents ingested text with its provenance.
// It is immutable once indexed; it can only be deleted.
type Document struct {
	// ID is the stable identifier. Tool-provider documents use "source:originalID".
	ID string

	// SourceKind is SourceUpload or the name of the tool provider that produced it.
	SourceKind string

	// Title is the human-readable title.
	Title string

	// Content is the full text before chunking.
	Content string

	// OriginalID is the item identifier on the originating platform.
	OriginalID string

	// URL is where the item can be viewed, if any.
	URL string

	// PublishedAt is the platform timestamp of the item, if known.
	PublishedAt time.Time

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]any

	// CreatedAt is when the document was indexed.
	CreatedAt time.Time
}

// Span is a half-open [Start, End) byte range into a document's content.
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes covered.
func (s Span) Len() int {
	return s.End - s.Start
}

// Chunk represents a retrievable unit within a document.
type Chunk struct {
	// ID is derived from the document ID and position.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the trimmed text of this chunk.
	Content string

	// Position is the ordinal position within the document.
	Position int

	// Span locates Content within the document text.
	Span Span

	// Embedding is the vector representation, if computed.
	Embedding []float32
}

// ChunkID derives the chunk identifier for a document position.
func ChunkID(documentID string, position int) string {
	return documentID + ":" + strconv.Itoa(position)
}

// IngestResult summarises one document ingestion.
type IngestResult struct {
	DocumentID string
	Chunks     int
}
