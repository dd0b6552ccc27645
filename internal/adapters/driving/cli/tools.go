package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quarry/internal/core/domain"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect and call tool providers",
	Long: `Tool providers are child processes speaking newline-delimited JSON
over stdio. They are started on demand from the tools section of the config.`,
}

var toolsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Start providers and report their state",
	Args:  cobra.NoArgs,
	RunE:  runToolsStatus,
}

var toolsListCmd = &cobra.Command{
	Use:   "list [provider]",
	Short: "List the tools a provider advertises",
	Args:  cobra.ExactArgs(1),
	RunE:  runToolsList,
}

var toolsCallCmd = &cobra.Command{
	Use:   "call [provider] [tool] [json-args]",
	Short: "Call a tool and print its raw result",
	Args:  cobra.RangeArgs(2, 3),
	RunE:  runToolsCall,
}

func init() {
	toolsCmd.AddCommand(toolsStatusCmd, toolsListCmd, toolsCallCmd)
	rootCmd.AddCommand(toolsCmd)
}

func runToolsStatus(cmd *cobra.Command, _ []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	if len(a.Settings.Tools) == 0 {
		cmd.Println("No tool providers configured.")
		return nil
	}

	a.EnsureTools(cmd.Context())
	styled := newStyles(cmd.OutOrStdout())
	for _, st := range a.Tools.Status() {
		cmd.Println(formatToolStatus(styled, st))
	}
	return nil
}

func formatToolStatus(styled styles, st domain.ToolServerStatus) string {
	if !st.Ready {
		reason := "not running"
		if st.Err != nil {
			reason = st.Err.Error()
		}
		return fmt.Sprintf("  %-12s %s %s", st.Name, styled.fail.Render("down:"), reason)
	}
	uptime := time.Since(st.StartedAt).Round(time.Second)
	return fmt.Sprintf("  %-12s %s  pid %d  up %s  rss %.1f MiB  cpu %.1f%%",
		st.Name, styled.ok.Render("ready"), st.PID, uptime, float64(st.RSSBytes)/(1<<20), st.CPUPercent)
}

func runToolsList(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}

	a.EnsureTools(cmd.Context())
	tools, err := a.Tools.ListTools(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to list tools: %w", err)
	}
	for _, t := range tools {
		cmd.Printf("  %-14s %s\n", t.Name, t.Description)
	}
	return nil
}

func runToolsCall(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}

	params := map[string]any{}
	if len(args) == 3 {
		if err := json.Unmarshal([]byte(args[2]), &params); err != nil {
			return fmt.Errorf("%w: arguments must be a JSON object: %w", domain.ErrInvalidInput, err)
		}
	}

	a.EnsureTools(cmd.Context())
	raw, err := a.Tools.CallTool(cmd.Context(), args[0], args[1], params)
	if err != nil {
		return fmt.Errorf("call failed: %w", err)
	}

	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		cmd.Println(string(raw))
		return nil
	}
	cmd.Println(out.String())
	return nil
}
