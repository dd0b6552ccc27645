package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quarry/internal/core/domain"
	"github.com/custodia-labs/quarry/internal/core/ports/driven"
)

func TestNewLLMService_RequiresAPIKey(t *testing.T) {
	_, err := NewLLMService(context.Background(), Config{})
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestConfigure(t *testing.T) {
	model := &genai.GenerativeModel{}

	configure(model, driven.GenerateOptions{System: "be brief", MaxTokens: 128, Temperature: 0.5})

	require.NotNil(t, model.Temperature)
	assert.InDelta(t, 0.5, *model.Temperature, 1e-6)
	require.NotNil(t, model.MaxOutputTokens)
	assert.Equal(t, int32(128), *model.MaxOutputTokens)
	require.NotNil(t, model.SystemInstruction)
	assert.Equal(t, []genai.Part{genai.Text("be brief")}, model.SystemInstruction.Parts)
}

func TestConfigure_NoSystemPrompt(t *testing.T) {
	model := &genai.GenerativeModel{}

	configure(model, driven.GenerateOptions{})

	assert.Nil(t, model.SystemInstruction)
	assert.Nil(t, model.MaxOutputTokens)
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("Go is "), genai.Text("fun.")}},
		}},
	}

	out, err := responseText(resp)
	require.NoError(t, err)
	assert.Equal(t, "Go is fun.", out)

	_, err = responseText(&genai.GenerateContentResponse{})
	assert.ErrorIs(t, err, domain.ErrGenerationUnavailable)
}
