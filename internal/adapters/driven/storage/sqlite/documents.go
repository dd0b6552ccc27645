package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/quarry/internal/core/domain"
	"github.com/custodia-labs/quarry/internal/core/ports/driven"
)

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

type documentRow struct {
	ID          string `db:"id"`
	SourceKind  string `db:"source_kind"`
	Title       string `db:"title"`
	Content     string `db:"content"`
	OriginalID  string `db:"original_id"`
	URL         string `db:"url"`
	PublishedAt string `db:"published_at"`
	Metadata    string `db:"metadata"`
	CreatedAt   string `db:"created_at"`
}

type chunkRow struct {
	ID         string `db:"id"`
	DocumentID string `db:"document_id"`
	Content    string `db:"content"`
	Position   int    `db:"position"`
	SpanStart  int    `db:"span_start"`
	SpanEnd    int    `db:"span_end"`
	Embedding  []byte `db:"embedding"`
}

const documentColumns = `id, source_kind, title, content, original_id, url, published_at, metadata, created_at`

// SaveDocument stores or updates a document.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	row, err := toDocumentRow(doc)
	if err != nil {
		return err
	}
	_, err = s.store.db.NamedExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (:id, :source_kind, :title, :content, :original_id, :url, :published_at, :metadata, :created_at)
		ON CONFLICT(id) DO UPDATE SET
			source_kind = excluded.source_kind,
			title = excluded.title,
			content = excluded.content,
			original_id = excluded.original_id,
			url = excluded.url,
			published_at = excluded.published_at,
			metadata = excluded.metadata,
			created_at = excluded.created_at
	`, row)
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// SaveChunks replaces the chunks stored for a document.
func (s *documentStore) SaveChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	tx, err := s.store.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}

	for i := range chunks {
		c := &chunks[i]
		row := chunkRow{
			ID:         c.ID,
			DocumentID: documentID,
			Content:    c.Content,
			Position:   c.Position,
			SpanStart:  c.Span.Start,
			SpanEnd:    c.Span.End,
			Embedding:  float32SliceToBytes(c.Embedding),
		}
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO chunks (id, document_id, content, position, span_start, span_end, embedding)
			VALUES (:id, :document_id, :content, :position, :span_start, :span_end, :embedding)
		`, row); err != nil {
			return fmt.Errorf("saving chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	var row documentRow
	err := s.store.db.GetContext(ctx, &row, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying document: %w", err)
	}
	return row.toDomain()
}

// GetChunks retrieves all chunks for a document.
func (s *documentStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	var rows []chunkRow
	err := s.store.db.SelectContext(ctx, &rows, `
		SELECT id, document_id, content, position, span_start, span_end, embedding
		FROM chunks WHERE document_id = ?
		ORDER BY position
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	chunks := make([]domain.Chunk, len(rows))
	for i, r := range rows {
		chunks[i] = domain.Chunk{
			ID:         r.ID,
			DocumentID: r.DocumentID,
			Content:    r.Content,
			Position:   r.Position,
			Span:       domain.Span{Start: r.SpanStart, End: r.SpanEnd},
			Embedding:  bytesToFloat32Slice(r.Embedding),
		}
	}
	return chunks, nil
}

// DeleteDocument removes a document and its chunks.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) error {
	tx, err := s.store.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", id); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return tx.Commit()
}

// ListDocuments returns documents for a source kind, or all when empty.
func (s *documentStore) ListDocuments(ctx context.Context, sourceKind string) ([]domain.Document, error) {
	var rows []documentRow
	var err error
	if sourceKind == "" {
		err = s.store.db.SelectContext(ctx, &rows,
			`SELECT `+documentColumns+` FROM documents ORDER BY created_at, id`)
	} else {
		err = s.store.db.SelectContext(ctx, &rows,
			`SELECT `+documentColumns+` FROM documents WHERE source_kind = ? ORDER BY created_at, id`, sourceKind)
	}
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}

	docs := make([]domain.Document, 0, len(rows))
	for i := range rows {
		doc, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

func toDocumentRow(doc *domain.Document) (documentRow, error) {
	metadata := "{}"
	if len(doc.Metadata) > 0 {
		b, err := json.Marshal(doc.Metadata)
		if err != nil {
			return documentRow{}, fmt.Errorf("marshalling metadata: %w", err)
		}
		metadata = string(b)
	}
	return documentRow{
		ID:          doc.ID,
		SourceKind:  doc.SourceKind,
		Title:       doc.Title,
		Content:     doc.Content,
		OriginalID:  doc.OriginalID,
		URL:         doc.URL,
		PublishedAt: formatTime(doc.PublishedAt),
		Metadata:    metadata,
		CreatedAt:   formatTime(doc.CreatedAt),
	}, nil
}

func (r *documentRow) toDomain() (*domain.Document, error) {
	doc := &domain.Document{
		ID:         r.ID,
		SourceKind: r.SourceKind,
		Title:      r.Title,
		Content:    r.Content,
		OriginalID: r.OriginalID,
		URL:        r.URL,
	}
	var err error
	if doc.PublishedAt, err = parseTime(r.PublishedAt); err != nil {
		return nil, err
	}
	if doc.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return nil, err
	}
	if r.Metadata != "" && r.Metadata != "{}" {
		if err := json.Unmarshal([]byte(r.Metadata), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata: %w", err)
		}
	}
	return doc, nil
}
