package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quarry/internal/core/domain"
)

var (
	searchLimit    int
	searchDocument string
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search [text]",
	Short: "Search indexed documents",
	Long: `Finds the indexed passages most similar to the text.
Similarity is cosine similarity mapped to the range 0 to 1.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().StringVarP(&searchDocument, "document", "d", "", "restrict results to one document")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

// searchResult is the JSON shape of one hit.
type searchResult struct {
	ID         string  `json:"id"`
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title,omitempty"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}

	hits, err := a.Query.Search(cmd.Context(), strings.Join(args, " "), domain.QueryOptions{
		DocumentID: searchDocument,
		MaxResults: searchLimit,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		results := make([]searchResult, len(hits))
		for i, hit := range hits {
			results[i] = searchResult{
				ID:         hit.Record.ID,
				DocumentID: hit.Record.DocumentID(),
				Title:      hit.Record.Title(),
				Text:       hit.Record.Text,
				Similarity: hit.Similarity,
			}
		}
		return printJSON(cmd, results)
	}

	if len(hits) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	width := outputWidth(cmd)
	cmd.Println(newStyles(cmd.OutOrStdout()).heading.Render("Results:"))
	cmd.Println()
	for i, hit := range hits {
		title := hit.Record.Title()
		if title == "" {
			title = hit.Record.DocumentID()
		}
		cmd.Printf("[%d] %s (%.2f)\n", i+1, title, hit.Similarity)
		cmd.Printf("    %s\n", snippet(hit.Record.Text, width-4))
	}
	return nil
}
