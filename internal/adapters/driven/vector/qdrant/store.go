// Package qdrant provides a VectorStore backed by a Qdrant server's REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/quarry/internal/core/domain"
	"github.com/custodia-labs/quarry/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.RecoverableStore = (*Store)(nil)

// Default configuration values.
const (
	DefaultCollection = "quarry"
	DefaultTimeout    = 15 * time.Second
)

// Payload keys not carried in record metadata.
const (
	payloadText     = "text"
	payloadRecordID = "record_id"
)

// pointNamespace derives Qdrant point IDs from record IDs, which Qdrant
// would reject as they are neither integers nor UUIDs.
var pointNamespace = uuid.MustParse("6f1c1f43-5b7e-4c35-9c0b-2d3f2a8e9a11")

// Config holds configuration for the Qdrant store.
type Config struct {
	// URL is the Qdrant REST endpoint, e.g. http://localhost:6333.
	URL string

	// APIKey is sent in the api-key header when set.
	APIKey string

	// Collection is the collection name prefix (default: quarry).
	Collection string

	// Dimensions is the vector size.
	Dimensions int

	// Timeout bounds each request (default: 15s).
	Timeout time.Duration

	// ProbeTimeout bounds Ping (default: 5s).
	ProbeTimeout time.Duration
}

// Store talks to one Qdrant collection. Recreate moves it to a new one.
type Store struct {
	client       *http.Client
	url          string
	apiKey       string
	prefix       string
	dimensions   int
	probeTimeout time.Duration

	mu         sync.RWMutex
	generation int
	collection string
}

// NewStore connects to Qdrant and ensures the first-generation collection exists.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: qdrant url is required", domain.ErrConfig)
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: vector store dimensions must be positive", domain.ErrConfig)
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = domain.DefaultProbeTimeout
	}

	s := &Store{
		client:       &http.Client{Timeout: cfg.Timeout},
		url:          strings.TrimRight(cfg.URL, "/"),
		apiKey:       cfg.APIKey,
		prefix:       cfg.Collection,
		dimensions:   cfg.Dimensions,
		probeTimeout: cfg.ProbeTimeout,
		collection:   cfg.Collection + "_0",
	}

	if err := s.Ping(ctx); err != nil {
		return nil, err
	}
	if err := s.ensureCollection(ctx, s.collection); err != nil {
		return nil, err
	}
	return s, nil
}

// Collection returns the collection currently in use.
func (s *Store) Collection() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collection
}

// Add upserts records as points.
func (s *Store) Add(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]point, len(records))
	for i, r := range records {
		if len(r.Vector) != s.dimensions {
			return fmt.Errorf("%w: record %s has %d values, store has %d",
				domain.ErrDimensionMismatch, r.ID, len(r.Vector), s.dimensions)
		}
		payload := make(map[string]any, len(r.Metadata)+2)
		for k, v := range r.Metadata {
			payload[k] = v
		}
		payload[payloadText] = r.Text
		payload[payloadRecordID] = r.ID
		points[i] = point{ID: PointID(r.ID), Vector: r.Vector, Payload: payload}
	}

	path := fmt.Sprintf("/collections/%s/points?wait=true", s.Collection())
	return s.do(ctx, http.MethodPut, path, map[string]any{"points": points}, nil)
}

// Remove deletes every point whose document_id matches.
func (s *Store) Remove(ctx context.Context, documentID string) error {
	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", s.Collection())
	return s.do(ctx, http.MethodPost, path, map[string]any{"filter": documentFilter(documentID)}, nil)
}

// Search returns the nearest points. Qdrant's cosine score in [-1, 1] is
// clamped to [0, 1], the same scale as the in-process store.
func (s *Store) Search(ctx context.Context, query []float32, filter domain.SearchFilter, max int) ([]domain.VectorHit, error) {
	if len(query) != s.dimensions {
		return nil, fmt.Errorf("%w: query has %d values, store has %d",
			domain.ErrDimensionMismatch, len(query), s.dimensions)
	}
	if max <= 0 {
		return nil, nil
	}

	body := map[string]any{
		"vector":       query,
		"limit":        max,
		"with_payload": true,
	}
	if filter.DocumentID != "" {
		body["filter"] = documentFilter(filter.DocumentID)
	}

	var resp searchResponse
	path := fmt.Sprintf("/collections/%s/points/search", s.Collection())
	if err := s.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}

	hits := make([]domain.VectorHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, domain.VectorHit{
			Record:     recordFromPayload(r.Payload),
			Similarity: normaliseScore(r.Score),
		})
	}
	return hits, nil
}

// Recreate provisions a new, empty collection and switches to it.
func (s *Store) Recreate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen := s.generation + 1
	name := fmt.Sprintf("%s_%d_%s", s.prefix, gen, uuid.NewString()[:8])
	if err := s.ensureCollection(ctx, name); err != nil {
		return fmt.Errorf("recreate collection: %w", err)
	}
	s.generation = gen
	s.collection = name
	return nil
}

// Ping checks the server answers within the probe timeout.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()
	return s.do(ctx, http.MethodGet, "/collections", nil, nil)
}

// Dimensions returns the vector size.
func (s *Store) Dimensions() int {
	return s.dimensions
}

// Close releases resources.
func (s *Store) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// ensureCollection creates the collection when it does not exist.
// Callers either hold mu or own s exclusively.
func (s *Store) ensureCollection(ctx context.Context, name string) error {
	err := s.do(ctx, http.MethodGet, "/collections/"+name, nil, nil)
	if err == nil {
		return nil
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		return err
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     s.dimensions,
			"distance": "Cosine",
		},
	}
	return s.do(ctx, http.MethodPut, "/collections/"+name, body, nil)
}

func (s *Store) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.url+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: qdrant %s %s: %w", domain.ErrStoreUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return classify(&StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: string(msg)})
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: qdrant %s %s: decode response: %w", domain.ErrStoreUnavailable, method, path, err)
	}
	return nil
}

// PointID maps a record ID onto a stable UUID.
func PointID(recordID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(recordID)).String()
}

func documentFilter(documentID string) map[string]any {
	return map[string]any{
		"must": []any{
			map[string]any{
				"key":   domain.MetaDocumentID,
				"match": map[string]any{"value": documentID},
			},
		},
	}
}

func normaliseScore(score float64) float64 {
	return math.Min(1, math.Max(0, score))
}

func recordFromPayload(payload map[string]any) domain.VectorRecord {
	rec := domain.VectorRecord{Metadata: make(map[string]any, len(payload))}
	for k, v := range payload {
		switch k {
		case payloadText:
			rec.Text, _ = v.(string)
		case payloadRecordID:
			rec.ID, _ = v.(string)
		case domain.MetaOrdinal:
			// JSON numbers decode as float64.
			if f, ok := v.(float64); ok {
				rec.Metadata[k] = int(f)
			}
		default:
			rec.Metadata[k] = v
		}
	}
	return rec
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type searchResponse struct {
	Result []struct {
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}
