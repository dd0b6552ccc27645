package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quarry/internal/adapters/driven/ai"
	"github.com/custodia-labs/quarry/internal/adapters/driven/config/file"
	"github.com/custodia-labs/quarry/internal/core/domain"
	"github.com/custodia-labs/quarry/internal/core/ports/driving"
	"github.com/custodia-labs/quarry/internal/core/services"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show, change and check configuration",
	Long: `Configuration lives in ~/.quarry/config.toml (or config.yaml).
API keys may also come from OPENAI_API_KEY, ANTHROPIC_API_KEY,
GEMINI_API_KEY and QDRANT_API_KEY, or a .env file beside the config.`,
	Annotations: noApp,
}

var configShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Print the effective settings",
	Args:        cobra.NoArgs,
	Annotations: noApp,
	RunE:        runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Long: `Sets one key, for example:

  quarry config set embedding.provider openai
  quarry config set llm.api_key          (prompts without echo)`,
	Args:        cobra.RangeArgs(1, 2),
	Annotations: noApp,
	RunE:        runConfigSet,
}

var configCheckCmd = &cobra.Command{
	Use:         "check",
	Short:       "Probe the configured providers and store",
	Args:        cobra.NoArgs,
	Annotations: noApp,
	RunE:        runConfigCheck,
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

// settingsService returns the running app's settings or opens the config
// file directly, so a broken configuration can still be inspected and fixed.
func settingsService() (driving.SettingsService, error) {
	if app != nil {
		return app.Config, nil
	}
	dir, err := configDir(Options{ConfigPath: configPath, ConfigDir: os.Getenv(envHome)})
	if err != nil {
		return nil, err
	}
	if err := file.LoadEnv(dir); err != nil {
		return nil, err
	}
	var store *file.ConfigStore
	if configPath != "" {
		store, err = file.OpenConfigFile(configPath)
	} else {
		store, err = file.NewConfigStore(dir)
	}
	if err != nil {
		return nil, err
	}
	return services.NewSettingsService(store), nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}
	s, err := svc.Get()
	if err != nil {
		return err
	}

	cmd.Printf("Config: %s\n\n", svc.Path())
	if s.DataDir != "" {
		cmd.Printf("Data directory:  %s\n", s.DataDir)
	}
	cmd.Printf("Chunking:        %d chars, %d overlap\n", s.Chunking.Size, s.Chunking.Overlap)
	cmd.Printf("Embedding:       %s\n", describeProvider(s.Embedding.Provider, s.Embedding.Model, s.Embedding.APIKey))
	cmd.Printf("  dimensions:    %d\n", s.Embedding.Dimensions)
	if s.LLM.Provider == "" {
		cmd.Println("Generation:      none (extractive answers)")
	} else {
		cmd.Printf("Generation:      %s\n", describeProvider(s.LLM.Provider, s.LLM.Model, s.LLM.APIKey))
	}
	cmd.Printf("Vector store:    %s", s.Store.Backend)
	if s.Store.Backend == domain.StoreQdrant {
		cmd.Printf(" at %s, collection %s", s.Store.URL, s.Store.Collection)
	}
	cmd.Println()
	if s.Sync.Schedule != "" {
		cmd.Printf("Sync schedule:   %s\n", s.Sync.Schedule)
	}
	cmd.Printf("Fetch limit:     %d\n", s.Sync.FetchLimit)

	if len(s.Tools) == 0 {
		cmd.Println("Tool providers:  none")
		return nil
	}
	cmd.Println("Tool providers:")
	for _, t := range s.Tools {
		line := fmt.Sprintf("  %-12s %s %s", t.Name, t.Command, strings.Join(t.Args, " "))
		if t.Live {
			line += " (live)"
		}
		cmd.Println(strings.TrimRight(line, " "))
	}
	return nil
}

func describeProvider(p domain.AIProvider, model, key string) string {
	out := p.Description()
	if model != "" {
		out += ", model " + model
	}
	if p.RequiresAPIKey() {
		if key == "" {
			out += ", no API key"
		} else {
			out += ", key " + maskAPIKey(key)
		}
	}
	return out
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}

	key := args[0]
	var value string
	if len(args) == 2 {
		value = args[1]
	} else {
		if !strings.HasSuffix(key, "api_key") {
			return fmt.Errorf("%w: a value is required for %s", domain.ErrInvalidInput, key)
		}
		cmd.Printf("%s: ", key)
		value, err = readSecret(cmd.InOrStdin())
		cmd.Println()
		if err != nil {
			return fmt.Errorf("reading value: %w", err)
		}
	}

	if err := svc.Set(key, value); err != nil {
		return err
	}
	if strings.HasSuffix(key, "api_key") {
		value = maskAPIKey(value)
	}
	cmd.Printf("Set %s = %s\n", key, value)
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}
	s, err := svc.Get()
	if err != nil {
		return err
	}

	st := newStyles(cmd.OutOrStdout())
	var failed []error
	for _, c := range ai.NewConfigValidator().Validate(cmd.Context(), s) {
		switch {
		case c.Skipped:
			cmd.Printf("  %-10s %s\n", c.Component, st.muted.Render("skipped"))
		case c.OK():
			cmd.Printf("  %-10s %s (%s)\n", c.Component, st.ok.Render("ok"), c.Provider)
		default:
			cmd.Printf("  %-10s %s (%s): %v\n", c.Component, st.fail.Render("FAILED"), c.Provider, c.Err)
			failed = append(failed, fmt.Errorf("%s: %w", c.Component, c.Err))
		}
	}
	return errors.Join(failed...)
}
