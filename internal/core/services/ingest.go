package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/quarry/internal/core/domain"
	"github.com/custodia-labs/quarry/internal/core/ports/driven"
	"github.com/custodia-labs/quarry/internal/core/ports/driving"
	"github.com/custodia-labs/quarry/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService chunks, embeds and stores documents.
type IngestService struct {
	docs     driven.DocumentStore
	store    driven.VectorStore
	embedder driven.EmbeddingService
	chunker  driven.PostProcessor
	now      func() time.Time
}

// NewIngestService creates an ingestion service.
func NewIngestService(
	docs driven.DocumentStore,
	store driven.VectorStore,
	embedder driven.EmbeddingService,
	chunker driven.PostProcessor,
) *IngestService {
	return &IngestService{
		docs:     docs,
		store:    store,
		embedder: embedder,
		chunker:  chunker,
		now:      time.Now,
	}
}

// Ingest indexes a document, replacing any previous copy with the same ID.
func (s *IngestService) Ingest(ctx context.Context, doc domain.Document) (*domain.IngestResult, error) {
	if strings.TrimSpace(doc.Content) == "" {
		return nil, fmt.Errorf("%w: document content is empty", domain.ErrInvalidInput)
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.SourceKind == "" {
		doc.SourceKind = domain.SourceUpload
	}
	doc.CreatedAt = s.now().UTC()

	chunks, err := s.chunker.Process(ctx, &doc, nil)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", doc.ID, err)
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", doc.ID, err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embed %s: got %d vectors for %d chunks", doc.ID, len(vectors), len(chunks))
	}

	records := make([]domain.VectorRecord, len(chunks))
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
		records[i] = domain.RecordFromChunk(&doc, chunks[i])
	}

	if err := s.store.Remove(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("replace %s: %w", doc.ID, err)
	}
	if err := s.store.Add(ctx, records); err != nil {
		return nil, fmt.Errorf("index %s: %w", doc.ID, err)
	}
	if err := s.docs.SaveDocument(ctx, &doc); err != nil {
		return nil, fmt.Errorf("save document %s: %w", doc.ID, err)
	}
	if err := s.docs.SaveChunks(ctx, doc.ID, chunks); err != nil {
		return nil, fmt.Errorf("save chunks %s: %w", doc.ID, err)
	}

	logger.Debug("Ingested %s (%s): %d chunks", doc.ID, doc.SourceKind, len(chunks))
	return &domain.IngestResult{DocumentID: doc.ID, Chunks: len(chunks)}, nil
}

// Delete removes a document from the index and the document store.
func (s *IngestService) Delete(ctx context.Context, documentID string) error {
	if documentID == "" {
		return fmt.Errorf("%w: document id is empty", domain.ErrInvalidInput)
	}
	return errors.Join(
		s.store.Remove(ctx, documentID),
		s.docs.DeleteDocument(ctx, documentID),
	)
}

// Get retrieves a document by ID.
func (s *IngestService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	return s.docs.GetDocument(ctx, documentID)
}

// List returns documents for a source kind, or all when empty.
func (s *IngestService) List(ctx context.Context, sourceKind string) ([]domain.Document, error) {
	return s.docs.ListDocuments(ctx, sourceKind)
}

// Restore reloads every stored chunk into the vector store.
// Chunks stored without an embedding of the current size are re-embedded
// and saved back, which happens after the embedder is reconfigured.
func (s *IngestService) Restore(ctx context.Context) (int, error) {
	docs, err := s.docs.ListDocuments(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("list documents: %w", err)
	}

	dims := s.store.Dimensions()
	restored := 0
	for i := range docs {
		doc := &docs[i]
		chunks, err := s.docs.GetChunks(ctx, doc.ID)
		if err != nil {
			return restored, fmt.Errorf("load chunks %s: %w", doc.ID, err)
		}
		if len(chunks) == 0 {
			continue
		}

		stale := false
		for _, c := range chunks {
			if len(c.Embedding) != dims {
				stale = true
				break
			}
		}
		if stale {
			if err := s.reembed(ctx, doc, chunks); err != nil {
				return restored, err
			}
		}

		records := make([]domain.VectorRecord, len(chunks))
		for j := range chunks {
			records[j] = domain.RecordFromChunk(doc, chunks[j])
		}
		if err := s.store.Add(ctx, records); err != nil {
			return restored, fmt.Errorf("restore %s: %w", doc.ID, err)
		}
		restored += len(records)
	}

	logger.Debug("Restored %d records from %d documents", restored, len(docs))
	return restored, nil
}

func (s *IngestService) reembed(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("re-embed %s: %w", doc.ID, err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("re-embed %s: got %d vectors for %d chunks", doc.ID, len(vectors), len(chunks))
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}
	logger.Info("Re-embedded %d chunks of %s", len(chunks), doc.ID)
	return s.docs.SaveChunks(ctx, doc.ID, chunks)
}
