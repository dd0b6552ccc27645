package mcp

import (
	"context"
	"errors"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/quarry/internal/core/domain"
)

const defaultSearchLimit = 10

// QueryInput is the input schema for the query tool.
type QueryInput struct {
	Question    string   `json:"question" jsonschema:"the question to answer from indexed content"`
	DocumentID  string   `json:"document_id,omitempty" jsonschema:"restrict retrieval to one document"`
	MaxResults  int      `json:"max_results,omitempty" jsonschema:"number of context items used (default 5)"`
	Temperature *float64 `json:"temperature,omitempty" jsonschema:"generation temperature in [0,2] (default 0.7 when omitted)"`
}

// QueryOutput is the output schema for the query tool.
type QueryOutput struct {
	ID         string         `json:"id"`
	Answer     string         `json:"answer"`
	Confidence float64        `json:"confidence"`
	Sources    []SourceOutput `json:"sources"`
}

// SourceOutput is one context item behind an answer or search.
type SourceOutput struct {
	DocumentID string  `json:"document_id,omitempty"`
	Title      string  `json:"title,omitempty"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
	Live       bool    `json:"live,omitempty"`
}

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query      string `json:"query" jsonschema:"the text to find similar passages for"`
	Limit      int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
	DocumentID string `json:"document_id,omitempty" jsonschema:"restrict results to one document"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SourceOutput `json:"results"`
	Count   int            `json:"count"`
}

// SyncInput is the input schema for the sync tool.
type SyncInput struct {
	Sources []string `json:"sources,omitempty" jsonschema:"tool providers to sync (default all)"`
}

// SyncOutput is the output schema for the sync tool.
type SyncOutput struct {
	Sources []SyncSourceOutput `json:"sources"`
}

// SyncSourceOutput reports one source in a sync pass.
type SyncSourceOutput struct {
	Source    string `json:"source"`
	Fetched   int    `json:"fetched"`
	Processed int    `json:"processed"`
	Error     string `json:"error,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query",
		Description: "Answer a question from indexed documents and live sources",
	}, s.handleQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Find the indexed passages most similar to a text",
	}, s.handleSearch)

	if s.ports.Aggregator != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "sync",
			Description: "Pull recent items from tool providers into the index",
		}, s.handleSync)
	}
}

func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	if input.Question == "" {
		return nil, QueryOutput{}, errors.New("question is required")
	}

	rec, err := s.ports.Query.Query(ctx, input.Question, domain.QueryOptions{
		DocumentID:  input.DocumentID,
		MaxResults:  input.MaxResults,
		Temperature: temperature(input.Temperature),
		LiveSources: s.ports.LiveSources,
	})
	if err != nil {
		return nil, QueryOutput{}, err
	}

	out := QueryOutput{
		ID:         rec.ID,
		Answer:     rec.Answer,
		Confidence: rec.Confidence,
		Sources:    make([]SourceOutput, len(rec.Sources)),
	}
	for i, src := range rec.Sources {
		out.Sources[i] = SourceOutput{
			DocumentID: src.DocumentID,
			Title:      src.Title,
			Text:       src.Text,
			Similarity: src.Similarity,
			Live:       src.Live,
		}
	}
	return nil, out, nil
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	hits, err := s.ports.Query.Search(ctx, input.Query, domain.QueryOptions{
		DocumentID: input.DocumentID,
		MaxResults: limit,
	})
	if err != nil {
		return nil, SearchOutput{}, err
	}

	out := SearchOutput{
		Results: make([]SourceOutput, len(hits)),
		Count:   len(hits),
	}
	for i, hit := range hits {
		out.Results[i] = SourceOutput{
			DocumentID: hit.Record.DocumentID(),
			Title:      hit.Record.Title(),
			Text:       hit.Record.Text,
			Similarity: hit.Similarity,
		}
	}
	return nil, out, nil
}

func (s *Server) handleSync(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SyncInput,
) (*mcp.CallToolResult, SyncOutput, error) {
	report := s.ports.Aggregator.Sync(ctx, input.Sources)

	out := SyncOutput{Sources: []SyncSourceOutput{}}
	for name, res := range report.Results {
		out.Sources = append(out.Sources, SyncSourceOutput{
			Source:    name,
			Fetched:   res.Fetched,
			Processed: res.Processed,
		})
	}
	for name, msg := range report.Errors {
		out.Sources = append(out.Sources, SyncSourceOutput{Source: name, Error: msg})
	}
	sort.Slice(out.Sources, func(i, j int) bool {
		return out.Sources[i].Source < out.Sources[j].Source
	})
	return nil, out, nil
}

// temperature applies the default only when the field was omitted.
func temperature(t *float64) float64 {
	if t == nil {
		return domain.DefaultTemperature
	}
	return max(0, *t)
}
