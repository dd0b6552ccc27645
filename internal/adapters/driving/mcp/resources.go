package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	uriScheme = "quarry://"

	historyResourceLimit = 50
)

// registerResources registers the resource handlers whose ports are set.
func (s *Server) registerResources() {
	if s.ports.Ingest != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "documents",
			Name:        "documents",
			Description: "All indexed documents",
			MIMEType:    "application/json",
		}, s.handleDocumentsResource)

		s.server.AddResourceTemplate(&mcp.ResourceTemplate{
			URITemplate: uriScheme + "documents/{+documentId}",
			Name:        "document-content",
			Description: "Content of a specific document",
			MIMEType:    "text/plain",
		}, s.handleDocumentContentResource)
	}

	if s.ports.History != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "history",
			Name:        "history",
			Description: "Recently answered questions, newest first",
			MIMEType:    "application/json",
		}, s.handleHistoryResource)
	}
}

func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docs, err := s.ports.Ingest.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	type docInfo struct {
		ID     string `json:"id"`
		Title  string `json:"title"`
		Source string `json:"source"`
		URL    string `json:"url,omitempty"`
	}

	infos := make([]docInfo, len(docs))
	for i := range docs {
		infos[i] = docInfo{
			ID:     docs[i].ID,
			Title:  docs[i].Title,
			Source: docs[i].SourceKind,
			URL:    docs[i].URL,
		}
	}
	return jsonResource(req.Params.URI, infos)
}

func (s *Server) handleDocumentContentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docID := extractDocumentID(req.Params.URI)
	if docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	doc, err := s.ports.Ingest.Get(ctx, docID)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     doc.Content,
		}},
	}, nil
}

func (s *Server) handleHistoryResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	records, err := s.ports.History.List(ctx, historyResourceLimit)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	return jsonResource(req.Params.URI, records)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractDocumentID extracts the document ID from a URI like quarry://documents/{documentId}.
func extractDocumentID(uri string) string {
	const prefix = uriScheme + "documents/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	return strings.TrimPrefix(uri, prefix)
}
