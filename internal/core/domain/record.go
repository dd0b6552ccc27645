package domain

import "time"

// Metadata keys carried on every VectorRecord.
const (
	MetaDocumentID  = "document_id"
	MetaOrdinal     = "ordinal"
	MetaTitle       = "title"
	MetaSource      = "source"
	MetaOriginalID  = "original_id"
	MetaURL         = "url"
	MetaPublishedAt = "published_at"
)

// VectorRecord is the unit stored in and searched by a vector store.
type VectorRecord struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata map[string]any
}

// DocumentID returns the document back-reference from metadata.
func (r VectorRecord) DocumentID() string {
	return r.metaString(MetaDocumentID)
}

// Title returns the document title from metadata.
func (r VectorRecord) Title() string {
	return r.metaString(MetaTitle)
}

func (r VectorRecord) metaString(key string) string {
	if r.Metadata == nil {
		return ""
	}
	s, _ := r.Metadata[key].(string)
	return s
}

// RecordFromChunk builds the stored record for an embedded chunk.
func RecordFromChunk(doc *Document, chunk Chunk) VectorRecord {
	meta := map[string]any{
		MetaDocumentID: chunk.DocumentID,
		MetaOrdinal:    chunk.Position,
		MetaTitle:      doc.Title,
		MetaSource:     doc.SourceKind,
	}
	if doc.OriginalID != "" {
		meta[MetaOriginalID] = doc.OriginalID
	}
	if doc.URL != "" {
		meta[MetaURL] = doc.URL
	}
	if !doc.PublishedAt.IsZero() {
		meta[MetaPublishedAt] = doc.PublishedAt.UTC().Format(time.RFC3339)
	}
	return VectorRecord{
		ID:       chunk.ID,
		Vector:   chunk.Embedding,
		Text:     chunk.Content,
		Metadata: meta,
	}
}

// VectorHit is a search result with similarity normalised to [0, 1].
type VectorHit struct {
	Record     VectorRecord
	Similarity float64
}

// SearchFilter narrows a vector search.
type SearchFilter struct {
	// DocumentID restricts results to one document when non-empty.
	DocumentID string
}
