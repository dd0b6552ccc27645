// Package driving defines what the CLI and the MCP server call into:
// querying, ingestion, aggregation, history and settings.
// internal/core/services implements every interface here.
package driving
