package cli

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quarry/internal/connectors/filesystem"
	"github.com/custodia-labs/quarry/internal/core/domain"
	"github.com/custodia-labs/quarry/internal/core/ports/driving"
	"github.com/custodia-labs/quarry/internal/core/services"
	"github.com/custodia-labs/quarry/internal/logger"
)

var watchInitial bool

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Keep a directory's text files indexed",
	Long: `Indexes the text files under a directory and re-indexes them as they
change. Documents use the "files" source, the same identity the files
worker produces, so watching and syncing the same directory agree.
Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchInitial, "initial", true, "index existing files before watching")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	src := filesystem.New(args[0])

	if watchInitial {
		items, err := src.Fetch(ctx, math.MaxInt)
		if err != nil {
			return fmt.Errorf("scanning %s: %w", args[0], err)
		}
		indexed := 0
		for _, item := range items {
			if err := indexItem(ctx, a.Ingest, item); err != nil {
				logger.Warn("indexing %s: %v", item.ID, err)
				continue
			}
			indexed++
		}
		cmd.Printf("Indexed %d files from %s\n", indexed, src.Root())
	}

	changes, err := src.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watching %s: %w", args[0], err)
	}
	cmd.Printf("Watching %s (Ctrl+C to stop)\n", src.Root())

	for change := range changes {
		if err := applyChange(ctx, a.Ingest, src, change); err != nil {
			logger.Warn("%s %s: %v", change.Type, change.Path, err)
			continue
		}
		cmd.Printf("%s %s\n", change.Type, src.ItemID(change.Path))
	}
	return nil
}

func applyChange(ctx context.Context, ingest driving.IngestService, src *filesystem.Source, change filesystem.Change) error {
	if change.Type == filesystem.ChangeDeleted {
		err := ingest.Delete(ctx, filesystem.SourceName+":"+src.ItemID(change.Path))
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}

	item, err := src.Read(change.Path)
	if err != nil {
		return err
	}
	return indexItem(ctx, ingest, item)
}

func indexItem(ctx context.Context, ingest driving.IngestService, item domain.ToolItem) error {
	doc, ok := services.DocumentFromItem(filesystem.SourceName, item)
	if !ok {
		return nil
	}
	_, err := ingest.Ingest(ctx, doc)
	return err
}
