package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quarry/internal/core/domain"
)

func TestConfigShowCmd_Defaults(t *testing.T) {
	setupTestApp(t, nil)

	out, err := execute(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Config: :memory:")
	assert.Contains(t, out, "Chunking:        1000 chars, 200 overlap")
	assert.Contains(t, out, "Local (hashed bag of words)")
	assert.Contains(t, out, "Generation:      none (extractive answers)")
	assert.Contains(t, out, "Vector store:    memory")
	assert.Contains(t, out, "Tool providers:  none")
}

func TestConfigSetCmd(t *testing.T) {
	setupTestApp(t, nil)

	out, err := execute(t, "", "config", "set", "chunking.size", "500")
	require.NoError(t, err)
	assert.Contains(t, out, "Set chunking.size = 500")

	out, err = execute(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Chunking:        500 chars")

	_, err = execute(t, "", "config", "set", "chunking.size", "big")
	assert.ErrorIs(t, err, domain.ErrConfig)

	_, err = execute(t, "", "config", "set", "chunking.size")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConfigSetCmd_PromptsForAPIKey(t *testing.T) {
	setupTestApp(t, nil)

	_, err := execute(t, "", "config", "set", "llm.provider", "openai")
	require.NoError(t, err)

	out, err := execute(t, "sk-secret-value-1234\n", "config", "set", "llm.api_key")
	require.NoError(t, err)
	assert.Contains(t, out, "Set llm.api_key = sk-s...1234")
	assert.NotContains(t, out, "sk-secret-value-1234")

	out, err = execute(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "OpenAI (cloud), key sk-s...1234")
}

func TestConfigCheckCmd_LocalSkipsEverything(t *testing.T) {
	setupTestApp(t, nil)

	out, err := execute(t, "", "config", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "embedding  skipped")
	assert.Contains(t, out, "llm        skipped")
	assert.Contains(t, out, "store      skipped")
}

func TestDescribeProvider(t *testing.T) {
	assert.Equal(t, "Ollama (local), model nomic-embed-text",
		describeProvider(domain.AIProviderOllama, "nomic-embed-text", ""))
	assert.Equal(t, "Anthropic (cloud), no API key",
		describeProvider(domain.AIProviderAnthropic, "", ""))
}
