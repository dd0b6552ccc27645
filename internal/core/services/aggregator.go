package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/quarry/internal/core/domain"
	"github.com/custodia-labs/quarry/internal/core/ports/driven"
	"github.com/custodia-labs/quarry/internal/core/ports/driving"
	"github.com/custodia-labs/quarry/internal/logger"
)

// Ensure Aggregator implements the interface.
var _ driving.AggregatorService = (*Aggregator)(nil)

// Aggregator pulls items from tool providers into the index.
type Aggregator struct {
	tools      driven.ToolCaller
	ingest     driving.IngestService
	docs       driven.DocumentStore
	states     driven.SyncStateStore
	fetchLimit int
	now        func() time.Time
}

// NewAggregator creates an aggregator.
func NewAggregator(
	tools driven.ToolCaller,
	ingest driving.IngestService,
	docs driven.DocumentStore,
	states driven.SyncStateStore,
	fetchLimit int,
) *Aggregator {
	if fetchLimit <= 0 {
		fetchLimit = domain.DefaultFetchLimit
	}
	return &Aggregator{
		tools:      tools,
		ingest:     ingest,
		docs:       docs,
		states:     states,
		fetchLimit: fetchLimit,
		now:        time.Now,
	}
}

// Sync fetches and indexes items from each source in turn.
func (a *Aggregator) Sync(ctx context.Context, sources []string) domain.SyncReport {
	logger.Section("Sync")
	report := domain.SyncReport{
		Results: make(map[string]domain.SourceResult),
		Errors:  make(map[string]string),
	}
	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			report.Errors[source] = err.Error()
			continue
		}
		res, err := a.syncSource(ctx, source)
		if err != nil {
			logger.Warn("Sync of %s failed: %v", source, err)
			report.Errors[source] = err.Error()
			continue
		}
		logger.Info("Synced %s: %d fetched, %d indexed", source, res.Fetched, res.Processed)
		report.Results[source] = res
	}
	return report
}

func (a *Aggregator) syncSource(ctx context.Context, source string) (domain.SourceResult, error) {
	if a.tools == nil {
		return domain.SourceResult{}, fmt.Errorf("%w: %s: no tool providers running", domain.ErrUnknownProvider, source)
	}
	raw, err := a.tools.CallTool(ctx, source, driven.ToolFetchItems, map[string]any{"limit": a.fetchLimit})
	if err != nil {
		return domain.SourceResult{}, fmt.Errorf("fetch: %w", err)
	}
	items, err := parseToolItems(raw)
	if err != nil {
		return domain.SourceResult{}, err
	}

	res := domain.SourceResult{Fetched: len(items)}
	var errs []error
	for _, item := range items {
		doc, ok := DocumentFromItem(source, item)
		if !ok {
			logger.Debug("Skipping empty item %q from %s", item.ID, source)
			continue
		}
		if _, err := a.ingest.Ingest(ctx, doc); err != nil {
			errs = append(errs, fmt.Errorf("item %s: %w", item.ID, err))
			continue
		}
		res.Processed++
	}
	if len(errs) > 0 {
		if res.Processed == 0 {
			return res, errors.Join(errs...)
		}
		logger.Warn("Sync of %s indexed %d of %d items: %v", source, res.Processed, len(items), errors.Join(errs...))
	}

	held, err := a.docs.ListDocuments(ctx, source)
	if err != nil {
		return res, fmt.Errorf("count documents: %w", err)
	}
	res.LastSync = a.now().UTC()
	state := domain.SyncState{Source: source, ItemCount: len(held), LastSync: res.LastSync}
	if err := a.states.Save(ctx, state); err != nil {
		return res, fmt.Errorf("save sync state: %w", err)
	}
	return res, nil
}

// DocumentFromItem normalises a tool item from source. Items without an ID or any text
// are rejected.
func DocumentFromItem(source string, item domain.ToolItem) (domain.Document, bool) {
	if item.ID == "" {
		return domain.Document{}, false
	}
	var parts []string
	if t := strings.TrimSpace(item.Title); t != "" {
		parts = append(parts, t)
	}
	if b := strings.TrimSpace(item.Body); b != "" {
		parts = append(parts, b)
	}
	if len(parts) == 0 {
		return domain.Document{}, false
	}
	if item.URL != "" {
		parts = append(parts, "URL: "+item.URL)
	}
	if !item.PublishedAt.IsZero() {
		parts = append(parts, "Published: "+item.PublishedAt.UTC().Format(time.RFC3339))
	}

	return domain.Document{
		ID:          source + ":" + item.ID,
		SourceKind:  source,
		Title:       item.Title,
		Content:     strings.Join(parts, "\n\n"),
		OriginalID:  item.ID,
		URL:         item.URL,
		PublishedAt: item.PublishedAt,
	}, true
}

// RemoveSource deletes every document from a source and its sync state.
func (a *Aggregator) RemoveSource(ctx context.Context, source string) error {
	docs, err := a.docs.ListDocuments(ctx, source)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	var errs []error
	for i := range docs {
		if err := a.ingest.Delete(ctx, docs[i].ID); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", docs[i].ID, err))
		}
	}
	if err := a.states.Delete(ctx, source); err != nil {
		errs = append(errs, fmt.Errorf("delete sync state: %w", err))
	}
	logger.Info("Removed source %s (%d documents)", source, len(docs))
	return errors.Join(errs...)
}

// Status returns the sync state of every synced source.
func (a *Aggregator) Status(ctx context.Context) ([]domain.SyncState, error) {
	return a.states.List(ctx)
}
