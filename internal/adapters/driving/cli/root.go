// Package cli implements the quarry command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quarry/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// annotationNoApp marks commands that run without the application services.
const annotationNoApp = "quarry/no-app"

var (
	verbose    bool
	configPath string
	ephemeral  bool
)

// app is built on first use. Tests inject their own.
var app *App

// ownApp is true when app was built by this process and must be closed.
var ownApp bool

var rootCmd = &cobra.Command{
	Use:   "quarry",
	Short: "Question answering over your own content",
	Long: `Quarry indexes documents and items pulled from tool providers, then
answers questions using the most relevant passages as context.

Without a generation provider, answers are extracted from the passages.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupApp,
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		return closeApp()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.quarry/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "keep documents and history in memory only")
}

// Execute runs the root command.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rootCmd.SetOut(os.Stdout)
	err := rootCmd.ExecuteContext(ctx)
	if closeErr := closeApp(); err == nil {
		err = closeErr
	}
	return err
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

func setupApp(cmd *cobra.Command, _ []string) error {
	if verbose {
		logger.SetVerbose(true)
	}
	if app != nil || !needsApp(cmd) {
		return nil
	}

	built, err := NewApp(cmd.Context(), Options{
		ConfigPath: configPath,
		ConfigDir:  os.Getenv(envHome),
		Ephemeral:  ephemeral,
	})
	if err != nil {
		return fmt.Errorf("starting quarry: %w", err)
	}
	app = built
	ownApp = true
	return nil
}

func closeApp() error {
	if app == nil || !ownApp {
		return nil
	}
	err := app.Close()
	app = nil
	ownApp = false
	return err
}

// needsApp reports whether cmd or any parent is not marked annotationNoApp.
func needsApp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationNoApp] == "true" {
			return false
		}
	}
	return true
}

// requireApp returns the running app or an error when none is configured.
func requireApp() (*App, error) {
	if app == nil {
		return nil, errors.New("quarry is not initialised")
	}
	return app, nil
}

var noApp = map[string]string{annotationNoApp: "true"}
