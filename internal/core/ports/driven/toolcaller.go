package driven

import (
	"context"
	"encoding/json"

	"github.com/custodia-labs/quarry/internal/core/domain"
)

// Well-known tool names served by content providers.
const (
	// ToolFetchItems returns recent items for aggregation. Arguments: limit.
	ToolFetchItems = "fetch_items"

	// ToolLiveItems returns items relevant to a query. Arguments: query, limit.
	ToolLiveItems = "live_items"
)

// ToolCaller invokes tools on supervised provider processes.
type ToolCaller interface {
	// CallTool invokes a tool on the named provider and returns its raw result.
	// Errors wrap domain.ErrUnknownProvider, domain.ErrCallTimeout,
	// domain.ErrToolError or domain.ErrProcessLifecycle.
	CallTool(ctx context.Context, provider, tool string, args map[string]any) (json.RawMessage, error)

	// ListTools returns the tools advertised by a provider.
	ListTools(ctx context.Context, provider string) ([]domain.ToolInfo, error)

	// Status reports the state of every supervised provider.
	Status() []domain.ToolServerStatus
}
