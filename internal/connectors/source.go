package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/quarry/internal/core/domain"
	"github.com/custodia-labs/quarry/internal/core/ports/driven"
	"github.com/custodia-labs/quarry/internal/toolworker"
)

// DefaultLimit caps a tool call that does not name a limit.
const DefaultLimit = 50

// Source lists content items from an external system.
type Source interface {
	// Name identifies the source in logs and readiness lines.
	Name() string

	// Fetch returns up to limit recent items, newest first.
	Fetch(ctx context.Context, limit int) ([]domain.ToolItem, error)

	// Search returns up to limit items relevant to query, best first.
	Search(ctx context.Context, query string, limit int) ([]domain.ToolItem, error)
}

// ItemsResult is the result shape of both tools.
type ItemsResult struct {
	Items []domain.ToolItem `json:"items"`
}

type fetchArgs struct {
	Limit int `json:"limit"`
}

type liveArgs struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// Tools exposes src as fetch_items and live_items.
func Tools(src Source) []toolworker.Tool {
	return []toolworker.Tool{
		{
			Name:        driven.ToolFetchItems,
			Description: fmt.Sprintf("Recent items from %s. Arguments: limit.", src.Name()),
			Run: func(ctx context.Context, raw json.RawMessage) (any, error) {
				var args fetchArgs
				if err := json.Unmarshal(raw, &args); err != nil {
					return nil, fmt.Errorf("invalid arguments: %w", err)
				}
				items, err := src.Fetch(ctx, limitOrDefault(args.Limit))
				if err != nil {
					return nil, err
				}
				return ItemsResult{Items: nonNil(items)}, nil
			},
		},
		{
			Name:        driven.ToolLiveItems,
			Description: fmt.Sprintf("Items from %s matching a query. Arguments: query, limit.", src.Name()),
			Run: func(ctx context.Context, raw json.RawMessage) (any, error) {
				var args liveArgs
				if err := json.Unmarshal(raw, &args); err != nil {
					return nil, fmt.Errorf("invalid arguments: %w", err)
				}
				if strings.TrimSpace(args.Query) == "" {
					return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
				}
				items, err := src.Search(ctx, args.Query, limitOrDefault(args.Limit))
				if err != nil {
					return nil, err
				}
				return ItemsResult{Items: nonNil(items)}, nil
			},
		},
	}
}

// NewWorker builds a tool worker serving src.
func NewWorker(src Source) *toolworker.Worker {
	return toolworker.New(src.Name(), Tools(src)...)
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}

func nonNil(items []domain.ToolItem) []domain.ToolItem {
	if items == nil {
		return []domain.ToolItem{}
	}
	return items
}
