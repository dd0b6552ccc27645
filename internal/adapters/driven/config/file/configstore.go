package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/quarry/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigFile is the default configuration file name.
const ConfigFile = "config.toml"

// format is a configuration file encoding.
type format string

const (
	formatTOML format = "toml"
	formatYAML format = "yaml"
)

// ConfigStore is a file-based implementation of driven.ConfigStore.
// The encoding (TOML or YAML) follows the file extension.
type ConfigStore struct {
	mu       sync.RWMutex
	filePath string
	format   format
	data     map[string]any
}

// NewConfigStore creates a config store in configDir.
// If configDir is empty, defaults to ~/.quarry. An existing config.yaml or
// config.yml is used when there is no config.toml.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".quarry")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	path := filepath.Join(configDir, ConfigFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		for _, alt := range []string{"config.yaml", "config.yml"} {
			candidate := filepath.Join(configDir, alt)
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	return OpenConfigFile(path)
}

// OpenConfigFile creates a config store for an explicit file path.
// The file does not need to exist yet.
func OpenConfigFile(path string) (*ConfigStore, error) {
	f, err := formatFor(path)
	if err != nil {
		return nil, err
	}

	s := &ConfigStore{
		filePath: path,
		format:   f,
		data:     make(map[string]any),
	}

	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

func formatFor(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", "":
		return formatTOML, nil
	case ".yaml", ".yml":
		return formatYAML, nil
	default:
		return "", fmt.Errorf("unsupported config file extension %q", filepath.Ext(path))
	}
}

// LoadEnv loads a .env file from dir into the process environment.
// Variables already set are not overwritten. A missing file is not an error.
func LoadEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Get retrieves a configuration value by key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.data[key]
	return val, ok
}

// GetString retrieves a string configuration value.
func (s *ConfigStore) GetString(key string) string {
	val, ok := s.Get(key)
	if !ok {
		return ""
	}

	str, ok := val.(string)
	if !ok {
		return ""
	}
	return str
}

// GetInt retrieves an integer configuration value.
func (s *ConfigStore) GetInt(key string) int {
	val, ok := s.Get(key)
	if !ok {
		return 0
	}

	// TOML integers decode as int64, YAML integers as int.
	switch v := val.(type) {
	case int64:
		return int(v)
	case int:
		return v
	case uint64:
		return int(v)
	default:
		return 0
	}
}

// GetBool retrieves a boolean configuration value.
func (s *ConfigStore) GetBool(key string) bool {
	val, ok := s.Get(key)
	if !ok {
		return false
	}

	b, ok := val.(bool)
	if !ok {
		return false
	}
	return b
}

// GetStringSlice retrieves a string slice configuration value.
func (s *ConfigStore) GetStringSlice(key string) []string {
	val, ok := s.Get(key)
	if !ok {
		return nil
	}

	switch v := val.(type) {
	case []string:
		return v
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				result = append(result, str)
			}
		}
		return result
	default:
		return nil
	}
}

// Set stores a configuration value and persists immediately.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return s.save()
}

// Save persists the current configuration to disk.
func (s *ConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// save writes the configuration file (caller must hold lock).
func (s *ConfigStore) save() error {
	nested := unflattenMap(s.data)

	var (
		data []byte
		err  error
	)
	switch s.format {
	case formatYAML:
		data, err = yaml.Marshal(nested)
	default:
		data, err = toml.Marshal(nested)
	}
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0700); err != nil {
		return err
	}
	// Config may hold API keys.
	return os.WriteFile(s.filePath, data, 0600)
}

// Load reads configuration from the file.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.data = make(map[string]any)
			return nil
		}
		return err
	}

	var loaded map[string]any
	switch s.format {
	case formatYAML:
		err = yaml.Unmarshal(data, &loaded)
	default:
		err = toml.Unmarshal(data, &loaded)
	}
	if err != nil {
		return fmt.Errorf("parsing %s: %w", s.filePath, err)
	}

	if loaded == nil {
		loaded = make(map[string]any)
	}

	s.data = flattenMap(loaded, "")
	return nil
}

// flattenMap converts nested maps to dot-notation keys.
// E.g., {"a": {"b": 1}} becomes {"a.b": 1}. Arrays are kept as values.
func flattenMap(m map[string]any, prefix string) map[string]any {
	result := make(map[string]any)

	for key, value := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if nested, ok := value.(map[string]any); ok {
			for k, v := range flattenMap(nested, fullKey) {
				result[k] = v
			}
		} else {
			result[fullKey] = value
		}
	}

	return result
}

// unflattenMap is the inverse of flattenMap.
func unflattenMap(flat map[string]any) map[string]any {
	result := make(map[string]any)
	for key, value := range flat {
		parts := strings.Split(key, ".")
		m := result
		for _, p := range parts[:len(parts)-1] {
			next, ok := m[p].(map[string]any)
			if !ok {
				next = make(map[string]any)
				m[p] = next
			}
			m = next
		}
		m[parts[len(parts)-1]] = value
	}
	return result
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}
