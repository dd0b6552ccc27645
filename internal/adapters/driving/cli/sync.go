package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync [source...]",
	Short: "Pull recent items from tool providers",
	Long: `Calls fetch_items on each named tool provider, or every configured
provider when none are named, and indexes the returned items.
A failing provider is reported and does not stop the others.`,
	RunE: runSync,
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage synced sources",
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show configured providers and their sync state",
	Args:  cobra.NoArgs,
	RunE:  runSourcesList,
}

var sourcesRemoveCmd = &cobra.Command{
	Use:     "rm [source]",
	Aliases: []string{"remove"},
	Short:   "Remove every document from a source",
	Args:    cobra.ExactArgs(1),
	RunE:    runSourcesRemove,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	sourcesCmd.AddCommand(sourcesListCmd, sourcesRemoveCmd)
	rootCmd.AddCommand(sourcesCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}

	sources := args
	if len(sources) == 0 {
		sources = a.Settings.ToolNames()
	}
	if len(sources) == 0 {
		cmd.Println("No tool providers configured.")
		return nil
	}

	a.EnsureTools(cmd.Context())
	report := a.Aggregator.Sync(cmd.Context(), sources)
	st := newStyles(cmd.OutOrStdout())

	for _, name := range sources {
		if res, ok := report.Results[name]; ok {
			cmd.Printf("  %-12s %d fetched, %d indexed\n", name, res.Fetched, res.Processed)
		}
		if msg, ok := report.Errors[name]; ok {
			cmd.Printf("  %-12s %s %s\n", name, st.fail.Render("failed:"), msg)
		}
	}

	if len(report.Errors) > 0 && len(report.Results) == 0 {
		return fmt.Errorf("sync failed for all %d sources", len(report.Errors))
	}
	return nil
}

func runSourcesList(cmd *cobra.Command, _ []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}

	states, err := a.Aggregator.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read sync state: %w", err)
	}

	names := a.Settings.ToolNames()
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}
	for _, st := range states {
		if !known[st.Source] {
			names = append(names, st.Source)
			known[st.Source] = true
		}
	}
	sort.Strings(names)

	if len(names) == 0 {
		cmd.Println("No sources configured.")
		return nil
	}

	live := make(map[string]bool)
	for _, n := range a.Settings.LiveSources() {
		live[n] = true
	}
	for _, name := range names {
		line := fmt.Sprintf("  %-12s never synced", name)
		for _, st := range states {
			if st.Source == name {
				line = fmt.Sprintf("  %-12s %d items, last sync %s", name, st.ItemCount,
					st.LastSync.Local().Format("2006-01-02 15:04"))
			}
		}
		if live[name] {
			line += " (live)"
		}
		cmd.Println(line)
	}
	return nil
}

func runSourcesRemove(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	if err := a.Aggregator.RemoveSource(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to remove source: %w", err)
	}
	cmd.Printf("Removed source %s\n", args[0])
	return nil
}
