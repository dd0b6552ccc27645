package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quarry/internal/core/domain"
)

var (
	historyLimit     int
	historyJSON      bool
	historyOlderThan time.Duration
	historyFormat    string
	historyOutput    string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse and export answered questions",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent questions, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one answer with its sources",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyRemoveCmd = &cobra.Command{
	Use:     "rm [id...]",
	Aliases: []string{"remove", "delete"},
	Short:   "Delete history records",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runHistoryRemove,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete records older than a duration",
	Args:  cobra.NoArgs,
	RunE:  runHistoryPrune,
}

var historyExportCmd = &cobra.Command{
	Use:   "export [id...]",
	Short: "Export history as JSON or CSV",
	Long: `Exports the named records, or all history when none are named.
CSV output has the columns query, answer, timestamp and confidence.`,
	RunE: runHistoryExport,
}

func init() {
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of records (0 for all)")
	historyListCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON")
	historyPruneCmd.Flags().DurationVar(&historyOlderThan, "older-than", 30*24*time.Hour, "age of records to delete")
	historyExportCmd.Flags().StringVarP(&historyFormat, "format", "f", string(domain.ExportJSON), "export format: json or csv")
	historyExportCmd.Flags().StringVarP(&historyOutput, "output", "o", "", "write to file instead of stdout")

	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyRemoveCmd, historyPruneCmd, historyExportCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}

	records, err := a.History.List(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}
	if historyJSON {
		return printJSON(cmd, records)
	}
	if len(records) == 0 {
		cmd.Println("No history.")
		return nil
	}

	width := outputWidth(cmd)
	for i := range records {
		r := &records[i]
		cmd.Printf("%s  %s  %.2f  %s\n",
			r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Confidence, snippet(r.Query, width-60))
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}

	rec, err := a.History.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get record: %w", err)
	}
	cmd.Printf("Q: %s\n\n", rec.Query)
	printRecord(cmd, rec)
	return nil
}

func runHistoryRemove(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}

	var errs []error
	for _, id := range args {
		if err := a.History.Delete(cmd.Context(), id); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		cmd.Printf("Deleted %s\n", id)
	}
	return errors.Join(errs...)
}

func runHistoryPrune(cmd *cobra.Command, _ []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	if historyOlderThan <= 0 {
		return fmt.Errorf("%w: --older-than must be positive", domain.ErrInvalidInput)
	}

	n, err := a.History.DeleteOlderThan(cmd.Context(), time.Now().Add(-historyOlderThan))
	if err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}
	cmd.Printf("Deleted %d records\n", n)
	return nil
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}

	format := domain.ExportFormat(strings.ToLower(historyFormat))
	data, err := a.History.Export(cmd.Context(), args, format)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if historyOutput == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(historyOutput, data, 0600); err != nil {
		return fmt.Errorf("writing %s: %w", historyOutput, err)
	}
	cmd.PrintErrf("Exported to %s\n", historyOutput)
	return nil
}
