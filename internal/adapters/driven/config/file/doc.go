// Package file provides file-based implementations of driven port interfaces.
//
// Adapters:
//   - ConfigStore: configuration in TOML or YAML, chosen by file extension
//   - PromptStore: user-editable answer prompts under ~/.quarry/prompts
//
// LoadEnv reads API keys from a .env file next to the configuration.
package file
