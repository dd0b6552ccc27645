// Package gemini provides an LLM service adapter using the Google Gemini API.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/custodia-labs/quarry/internal/core/domain"
	"github.com/custodia-labs/quarry/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// DefaultModel is the generation model used when none is configured.
const DefaultModel = "gemini-1.5-flash"

// Config holds configuration for the Gemini LLM service.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Model is the generation model (default: gemini-1.5-flash).
	Model string
}

// LLMService generates answers using Gemini.
type LLMService struct {
	client *genai.Client
	name   string
}

// NewLLMService creates a new Gemini LLM service.
func NewLLMService(ctx context.Context, cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini: API key is required", domain.ErrConfig)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &LLMService{client: client, name: cfg.Model}, nil
}

// Generate produces text completion from a prompt.
// Models are configured per call since temperature and system prompt vary.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	model := s.client.GenerativeModel(s.name)
	configure(model, opts)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("%w: gemini: %w", domain.ErrGenerationUnavailable, err)
	}
	return responseText(resp)
}

func configure(model *genai.GenerativeModel, opts driven.GenerateOptions) {
	model.SetTemperature(float32(opts.Temperature))
	if opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(opts.MaxTokens))
	}
	if opts.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(opts.System)},
		}
	}
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: gemini returned no candidates", domain.ErrGenerationUnavailable)
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String(), nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.name
}

// Ping looks up the model metadata, which validates the key without inference.
func (s *LLMService) Ping(ctx context.Context) error {
	if _, err := s.client.GenerativeModel(s.name).Info(ctx); err != nil {
		return fmt.Errorf("gemini: ping failed: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *LLMService) Close() error {
	return s.client.Close()
}
