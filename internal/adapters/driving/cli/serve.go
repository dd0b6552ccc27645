package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quarry/internal/core/services"
	"github.com/custodia-labs/quarry/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scheduled syncs until interrupted",
	Long: `Starts every tool provider and syncs them on the schedule set by
sync.schedule, a cron expression such as "*/30 * * * *" or "@every 1h".`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	if a.Settings.Sync.Schedule == "" {
		return errors.New("sync.schedule is not set")
	}
	sources := a.Settings.ToolNames()
	if len(sources) == 0 {
		return errors.New("no tool providers configured")
	}

	scheduler, err := services.NewScheduler(a.Settings.Sync.Schedule, a.Aggregator, sources)
	if err != nil {
		return err
	}

	failed := a.EnsureTools(cmd.Context())
	if len(failed) == len(sources) {
		return fmt.Errorf("no tool provider started (%d failed)", len(failed))
	}

	logger.Info("Syncing %d sources on %q", len(sources), a.Settings.Sync.Schedule)
	cmd.Printf("Serving %d sources on %q (Ctrl+C to stop)\n", len(sources), a.Settings.Sync.Schedule)
	err = scheduler.Start(cmd.Context())
	if errors.Is(err, cmd.Context().Err()) {
		return nil
	}
	return err
}
