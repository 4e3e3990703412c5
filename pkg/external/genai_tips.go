package external

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/geneguard-server/internal/domain"
)

// GeminiConfig represents configuration for the Gemini tip generator
type GeminiConfig struct {
	APIKey      string  `json:"api_key"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// GeminiTipGenerator produces tips through the Google GenAI SDK
type GeminiTipGenerator struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

// NewGeminiTipGenerator creates a new Gemini tip generator
func NewGeminiTipGenerator(ctx context.Context, config GeminiConfig) (*GeminiTipGenerator, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if config.Model == "" {
		config.Model = "gemini-2.0-flash"
	}
	if config.Temperature == 0 {
		config.Temperature = 0.5
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	genConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(config.Temperature)),
	}
	if config.MaxTokens > 0 {
		genConfig.MaxOutputTokens = int32(config.MaxTokens)
	}

	return &GeminiTipGenerator{
		client: client,
		model:  config.Model,
		config: genConfig,
	}, nil
}

// Name returns the generator name
func (g *GeminiTipGenerator) Name() string {
	return TipProviderGemini
}

// GenerateTips sends the lifestyle prompt and splits the reply into tips
func (g *GeminiTipGenerator) GenerateTips(ctx context.Context, gene string, disease domain.Disease) ([]string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(TipPrompt(gene, disease), genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, g.config)
	if err != nil {
		return nil, fmt.Errorf("Gemini generate content failed: %w", err)
	}

	text := result.Text()
	if text == "" {
		return nil, fmt.Errorf("Gemini returned no text")
	}
	return ParseTipLines(text), nil
}
