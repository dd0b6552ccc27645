package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quarry/internal/core/domain"
)

var (
	queryMaxResults  int
	queryTemperature float64
	queryDocument    string
	queryNoLive      bool
	queryJSON        bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Answer a question from indexed content",
	Long: `Answers a question using the most similar indexed passages and, when
tool providers are marked live, items fetched for the question.

With no generation provider configured the answer is extracted from the
best passages. Every answer is recorded in history.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryMaxResults, "max-results", "n", domain.DefaultMaxResults, "number of context items")
	queryCmd.Flags().Float64VarP(&queryTemperature, "temperature", "t", domain.DefaultTemperature, "generation temperature")
	queryCmd.Flags().StringVarP(&queryDocument, "document", "d", "", "restrict retrieval to one document")
	queryCmd.Flags().BoolVar(&queryNoLive, "no-live", false, "skip live tool providers")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the record as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	opts := domain.QueryOptions{
		DocumentID:  queryDocument,
		MaxResults:  queryMaxResults,
		Temperature: queryTemperature,
	}
	if !queryNoLive {
		opts.LiveSources = a.Settings.LiveSources()
		if len(opts.LiveSources) > 0 {
			a.EnsureTools(ctx)
		}
	}

	rec, err := a.Query.Query(ctx, strings.Join(args, " "), opts)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return printJSON(cmd, rec)
	}
	printRecord(cmd, rec)
	return nil
}

func printRecord(cmd *cobra.Command, rec *domain.QueryRecord) {
	cmd.Println(rec.Answer)
	cmd.Println()
	cmd.Printf("Confidence: %.2f\n", rec.Confidence)
	if len(rec.Sources) == 0 {
		return
	}

	width := outputWidth(cmd)
	st := newStyles(cmd.OutOrStdout())
	cmd.Println(st.heading.Render("Sources:"))
	for i, src := range rec.Sources {
		label := src.Title
		if label == "" {
			label = src.DocumentID
		}
		if src.Live {
			label += " " + st.warn.Render("(live)")
		}
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, label, src.Similarity)
		cmd.Printf("      %s\n", snippet(src.Text, width-6))
	}
}
