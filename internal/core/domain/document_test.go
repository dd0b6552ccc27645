package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChunkID(t *testing.T) {
	assert.Equal(t, "doc-1:0", ChunkID("doc-1", 0))
	assert.Equal(t, "github:42:3", ChunkID("github:42", 3))
}

func TestSpan_Len(t *testing.T) {
	assert.Equal(t, 5, Span{Start: 10, End: 15}.Len())
	assert.Equal(t, 0, Span{}.Len())
}

func TestRecordFromChunk(t *testing.T) {
	published := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	doc := &Document{
		ID:          "github:42",
		SourceKind:  "github",
		Title:       "Crash on start",
		OriginalID:  "42",
		URL:         "https://example.com/42",
		PublishedAt: published,
	}
	chunk := Chunk{
		ID:         ChunkID(doc.ID, 1),
		DocumentID: doc.ID,
		Content:    "stack trace",
		Position:   1,
		Embedding:  []float32{1, 0},
	}

	rec := RecordFromChunk(doc, chunk)

	assert.Equal(t, "github:42:1", rec.ID)
	assert.Equal(t, "stack trace", rec.Text)
	assert.Equal(t, []float32{1, 0}, rec.Vector)
	assert.Equal(t, "github:42", rec.DocumentID())
	assert.Equal(t, "Crash on start", rec.Title())
	assert.Equal(t, 1, rec.Metadata[MetaOrdinal])
	assert.Equal(t, "github", rec.Metadata[MetaSource])
	assert.Equal(t, "42", rec.Metadata[MetaOriginalID])
	assert.Equal(t, "https://example.com/42", rec.Metadata[MetaURL])
	assert.Equal(t, "2024-03-01T12:00:00Z", rec.Metadata[MetaPublishedAt])
}

func TestRecordFromChunk_UploadOmitsProvenance(t *testing.T) {
	doc := &Document{ID: "d", SourceKind: SourceUpload, Title: "notes"}
	rec := RecordFromChunk(doc, Chunk{ID: "d:0", DocumentID: "d"})

	_, hasURL := rec.Metadata[MetaURL]
	_, hasPublished := rec.Metadata[MetaPublishedAt]
	assert.False(t, hasURL)
	assert.False(t, hasPublished)
}

func TestVectorRecord_DocumentID_NilMetadata(t *testing.T) {
	assert.Equal(t, "", VectorRecord{}.DocumentID())
}

func TestQueryOptions_WithDefaults(t *testing.T) {
	o := QueryOptions{Temperature: -1}.WithDefaults()

	assert.Equal(t, DefaultMaxResults, o.MaxResults)
	assert.Equal(t, 0.0, o.Temperature)
	assert.Equal(t, DefaultLiveLimit, o.LiveLimit)

	o = QueryOptions{MaxResults: 2, Temperature: 0.2, LiveLimit: 1}.WithDefaults()
	assert.Equal(t, 2, o.MaxResults)
	assert.Equal(t, 0.2, o.Temperature)
	assert.Equal(t, 1, o.LiveLimit)
}
