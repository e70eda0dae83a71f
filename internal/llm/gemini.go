package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/summarylab/summary-be/internal/config"
	"github.com/summarylab/summary-be/internal/worker/domain"
	"google.golang.org/genai"
)

// GeminiSummarizer implements the pipeline's Summarizer interface against
// Google's Gemini API. The service is treated as opaque text-in/text-out:
// prompt plus a response-length ceiling and sampling temperature.
type GeminiSummarizer struct {
	client          *genai.Client
	logger          *slog.Logger
	model           string
	maxOutputTokens int32
	temperature     float32
}

// NewGeminiSummarizer creates a GeminiSummarizer from the LLM configuration.
func NewGeminiSummarizer(ctx context.Context, logger *slog.Logger, cfg *config.LLMConfig) (*GeminiSummarizer, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	apiKey := cfg.APIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is empty (set %s)", cfg.APIKeyEnv)
	}

	if cfg.Model == "" {
		return nil, errors.New("gemini model name cannot be empty")
	}

	temperature := float32(0.5)
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiSummarizer{
		client:          client,
		logger:          logger,
		model:           cfg.Model,
		maxOutputTokens: cfg.MaxOutputTokens,
		temperature:     temperature,
	}, nil
}

// Summarize sends the prompt to Gemini and returns the generated text.
// Transport and API errors are transient; deciding whether an empty
// response is permanent is the pipeline's call.
func (g *GeminiSummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	g.logger.Debug("Calling Gemini",
		slog.String("model", g.model),
		slog.Int("prompt_length", len(prompt)),
	)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.temperature),
		MaxOutputTokens: g.maxOutputTokens,
	})
	if err != nil {
		return "", domain.Transient(fmt.Errorf("gemini call failed: %w", err))
	}

	if resp == nil {
		return "", nil
	}

	return resp.Text(), nil
}
