package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quarry/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

By default, the server communicates over stdio using JSON-RPC. Use --port to
serve streamable HTTP instead.

Tools: query, search, sync
Resources: quarry://documents, quarry://documents/{id}, quarry://history

Examples:
  # Stdio mode
  quarry mcp serve

  # HTTP mode
  quarry mcp serve --port 8080`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}
	a, err := requireApp()
	if err != nil {
		return err
	}

	live := a.Settings.LiveSources()
	if len(a.Settings.Tools) > 0 {
		a.EnsureTools(cmd.Context())
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Query:       a.Query,
		Ingest:      a.Ingest,
		History:     a.History,
		Aggregator:  a.Aggregator,
		LiveSources: live,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	if port > 0 {
		return server.RunHTTP(cmd.Context(), fmt.Sprintf(":%d", port))
	}
	return server.Run(cmd.Context())
}
