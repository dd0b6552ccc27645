package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quarry/internal/core/domain"
	"github.com/custodia-labs/quarry/internal/core/ports/driven"
)

const messageResponse = `{
  "id": "msg_01",
  "type": "message",
  "role": "assistant",
  "model": "claude-test",
  "content": [{"type": "text", "text": "Go is "}, {"type": "text", "text": "fun."}],
  "stop_reason": "end_turn",
  "usage": {"input_tokens": 10, "output_tokens": 4}
}`

func TestNewLLMService_RequiresAPIKey(t *testing.T) {
	_, err := NewLLMService(Config{})
	assert.ErrorIs(t, err, domain.ErrConfig)

	s, err := NewLLMService(Config{APIKey: "sk-ant"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, s.ModelName())
}

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("X-Api-Key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-test", body["model"])
		assert.EqualValues(t, 512, body["max_tokens"])
		assert.InDelta(t, 0.2, body["temperature"], 1e-9)

		system, ok := body["system"].([]any)
		require.True(t, ok)
		require.Len(t, system, 1)
		assert.Equal(t, "be brief", system[0].(map[string]any)["text"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(messageResponse))
	}))
	defer srv.Close()

	s, err := NewLLMService(Config{APIKey: "sk-ant", BaseURL: srv.URL, Model: "claude-test", MaxRetries: -1})
	require.NoError(t, err)

	out, err := s.Generate(context.Background(), "Is Go fun?", driven.GenerateOptions{
		System:      "be brief",
		MaxTokens:   512,
		Temperature: 0.2,
	})
	require.NoError(t, err)
	assert.Equal(t, "Go is fun.", out)
}

func TestGenerate_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer srv.Close()

	s, err := NewLLMService(Config{APIKey: "bad", BaseURL: srv.URL, MaxRetries: -1})
	require.NoError(t, err)

	_, err = s.Generate(context.Background(), "q", driven.GenerateOptions{})
	assert.ErrorIs(t, err, domain.ErrGenerationUnavailable)
	assert.Error(t, s.Ping(context.Background()))
}
