package driving

import "github.com/custodia-labs/quarry/internal/core/domain"

// SettingsService reads and updates application configuration.
type SettingsService interface {
	// Get loads, defaults and validates the current settings.
	// Invalid configuration fails with domain.ErrConfig.
	Get() (*domain.Settings, error)

	// Set updates one dot-notation key and persists it.
	Set(key, value string) error

	// Path returns where the configuration is stored.
	Path() string
}
