package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quarry/internal/connectors"
	"github.com/custodia-labs/quarry/internal/connectors/filesystem"
	"github.com/custodia-labs/quarry/internal/connectors/github"
)

var (
	workerMaxFileSize int64
	workerRepo        string
	workerContent     string
	workerComments    bool
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run a built-in tool provider on stdio",
	Long: `Runs a content provider speaking newline-delimited JSON on stdin and
stdout. Supervised by quarry itself; add one to the tools section of the
config, for example:

  [[tools]]
  name = "files"
  command = "quarry"
  args = ["worker", "files", "/home/me/notes"]
  live = true`,
	Annotations: noApp,
}

var workerFilesCmd = &cobra.Command{
	Use:         "files [dir]",
	Short:       "Serve text files under a directory",
	Args:        cobra.ExactArgs(1),
	Annotations: noApp,
	RunE:        runWorkerFiles,
}

var workerGitHubCmd = &cobra.Command{
	Use:   "github",
	Short: "Serve issues and pull requests of a repository",
	Long: `Serves the issues and pull requests of one repository.
Reads GITHUB_TOKEN, GITHUB_REPO, GITHUB_CONTENT and GITHUB_API_URL.`,
	Args:        cobra.NoArgs,
	Annotations: noApp,
	RunE:        runWorkerGitHub,
}

func init() {
	workerFilesCmd.Flags().Int64Var(&workerMaxFileSize, "max-file-size", filesystem.DefaultMaxFileSize, "skip larger files")
	workerGitHubCmd.Flags().StringVar(&workerRepo, "repo", "", "repository as owner/name")
	workerGitHubCmd.Flags().StringVar(&workerContent, "content", "", "content types: issues,prs")
	workerGitHubCmd.Flags().BoolVar(&workerComments, "comments", false, "append comments to fetched items")

	workerCmd.AddCommand(workerFilesCmd, workerGitHubCmd)
	rootCmd.AddCommand(workerCmd)
}

func runWorkerFiles(cmd *cobra.Command, args []string) error {
	src := filesystem.New(args[0], filesystem.WithMaxFileSize(workerMaxFileSize))
	return serveWorker(cmd, src)
}

func runWorkerGitHub(cmd *cobra.Command, _ []string) error {
	var base github.Config
	if workerRepo != "" {
		owner, repo, err := github.ParseRepo(workerRepo)
		if err != nil {
			return err
		}
		base.Owner, base.Repo = owner, repo
	}
	if workerContent != "" {
		types, err := github.ParseContentTypes(workerContent)
		if err != nil {
			return err
		}
		base.ContentTypes = types
	}
	base.Comments = workerComments

	cfg, err := github.ConfigFromEnv(base, os.Getenv)
	if err != nil {
		return err
	}
	src, err := github.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	return serveWorker(cmd, src)
}

func serveWorker(cmd *cobra.Command, src connectors.Source) error {
	w := connectors.NewWorker(src)
	err := w.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s worker: %w", src.Name(), err)
	}
	return nil
}
