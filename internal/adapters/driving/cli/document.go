package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quarry/internal/core/domain"
	"github.com/custodia-labs/quarry/internal/normalisers"
)

var (
	ingestTitle string
	ingestID    string
	docsSource  string
	docsJSON    bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Index files as documents",
	Long: `Chunks, embeds and stores each file as one document.
Use "-" to read a single document from standard input.
Re-ingesting with the same --id replaces the previous copy.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage indexed documents",
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	Args:  cobra.NoArgs,
	RunE:  runDocsList,
}

var docsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print a document's content",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsShow,
}

var docsRemoveCmd = &cobra.Command{
	Use:     "rm [id...]",
	Aliases: []string{"remove", "delete"},
	Short:   "Remove documents and their chunks",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runDocsRemove,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestTitle, "title", "", "document title (single file only)")
	ingestCmd.Flags().StringVar(&ingestID, "id", "", "document ID (single file only)")
	rootCmd.AddCommand(ingestCmd)

	docsListCmd.Flags().StringVarP(&docsSource, "source", "s", "", "only documents from this source")
	docsListCmd.Flags().BoolVar(&docsJSON, "json", false, "output as JSON")
	docsCmd.AddCommand(docsListCmd, docsShowCmd, docsRemoveCmd)
	rootCmd.AddCommand(docsCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	if len(args) > 1 && (ingestTitle != "" || ingestID != "") {
		return fmt.Errorf("%w: --title and --id apply to a single file", domain.ErrInvalidInput)
	}

	var errs []error
	for _, path := range args {
		doc, err := readDocument(cmd, path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ingestTitle != "" {
			doc.Title = ingestTitle
		}
		if ingestID != "" {
			doc.ID = ingestID
		}

		res, err := a.Ingest.Ingest(cmd.Context(), doc)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		cmd.Printf("Indexed %s as %s (%d chunks)\n", path, res.DocumentID, res.Chunks)
	}
	return errors.Join(errs...)
}

func readDocument(cmd *cobra.Command, path string) (domain.Document, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return domain.Document{}, fmt.Errorf("reading stdin: %w", err)
		}
		return domain.Document{Title: "stdin", Content: string(data)}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("reading %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	norm := normalisers.Normalise(path, string(data))
	title := norm.Title
	if title == "" {
		title = normalisers.TitleFromPath(path)
	}
	return domain.Document{
		Title:   title,
		Content: norm.Text,
		URL:     "file://" + filepath.ToSlash(abs),
	}, nil
}

func runDocsList(cmd *cobra.Command, _ []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}

	docs, err := a.Ingest.List(cmd.Context(), docsSource)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if docsJSON {
		type docInfo struct {
			ID        string `json:"id"`
			Title     string `json:"title"`
			Source    string `json:"source"`
			URL       string `json:"url,omitempty"`
			CreatedAt string `json:"created_at"`
		}
		infos := make([]docInfo, len(docs))
		for i := range docs {
			infos[i] = docInfo{
				ID:        docs[i].ID,
				Title:     docs[i].Title,
				Source:    docs[i].SourceKind,
				URL:       docs[i].URL,
				CreatedAt: docs[i].CreatedAt.Format(time.RFC3339),
			}
		}
		return printJSON(cmd, infos)
	}

	if len(docs) == 0 {
		cmd.Println("No documents indexed.")
		return nil
	}
	cmd.Printf("Documents (%d):\n", len(docs))
	for i := range docs {
		title := docs[i].Title
		if title == "" {
			title = "(untitled)"
		}
		cmd.Printf("  %s  %s  [%s]\n", docs[i].ID, title, docs[i].SourceKind)
	}
	return nil
}

func runDocsShow(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}

	doc, err := a.Ingest.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("ID:      %s\n", doc.ID)
	cmd.Printf("Title:   %s\n", doc.Title)
	cmd.Printf("Source:  %s\n", doc.SourceKind)
	if doc.URL != "" {
		cmd.Printf("URL:     %s\n", doc.URL)
	}
	cmd.Printf("Indexed: %s\n", doc.CreatedAt.Local().Format("2006-01-02 15:04"))
	cmd.Println()
	cmd.Println(strings.TrimRight(doc.Content, "\n"))
	return nil
}

func runDocsRemove(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}

	var errs []error
	for _, id := range args {
		if err := a.Ingest.Delete(cmd.Context(), id); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		cmd.Printf("Removed %s\n", id)
	}
	return errors.Join(errs...)
}
