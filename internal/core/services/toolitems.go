package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/quarry/internal/core/domain"
)

// toolResult is the envelope returned by fetch and live tools. Workers
// either return items directly or wrap JSON text in MCP-style content blocks.
type toolResult struct {
	Items   []domain.ToolItem `json:"items"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// parseToolItems decodes the items of a tool result. Content blocks that do
// not hold item JSON become one item each, identified by a hash of the text.
func parseToolItems(raw json.RawMessage) ([]domain.ToolItem, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var res toolResult
	if err := json.Unmarshal(raw, &res); err != nil {
		var items []domain.ToolItem
		if errList := json.Unmarshal(raw, &items); errList == nil {
			return items, nil
		}
		return nil, fmt.Errorf("%w: decode tool result: %w", domain.ErrToolError, err)
	}
	if res.Items != nil {
		return res.Items, nil
	}

	var items []domain.ToolItem
	for _, block := range res.Content {
		text := strings.TrimSpace(block.Text)
		if text == "" {
			continue
		}
		var nested toolResult
		if err := json.Unmarshal([]byte(text), &nested); err == nil && nested.Items != nil {
			items = append(items, nested.Items...)
			continue
		}
		var list []domain.ToolItem
		if err := json.Unmarshal([]byte(text), &list); err == nil {
			items = append(items, list...)
			continue
		}
		items = append(items, domain.ToolItem{
			ID:   uuid.NewSHA1(uuid.NameSpaceOID, []byte(text)).String(),
			Body: text,
		})
	}
	return items, nil
}
