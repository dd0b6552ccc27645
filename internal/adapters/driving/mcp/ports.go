package mcp

import (
	"github.com/custodia-labs/quarry/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server calls into.
type Ports struct {
	// Query answers questions and runs retrieval. Required.
	Query driving.QueryService

	// Ingest lists and reads indexed documents.
	Ingest driving.IngestService

	// History exposes recorded answers.
	History driving.HistoryService

	// Aggregator runs sync passes on request.
	Aggregator driving.AggregatorService

	// LiveSources are consulted for live context on every query.
	LiveSources []string
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryService
	}
	return nil
}
