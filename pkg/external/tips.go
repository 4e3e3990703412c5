package external

import (
	"context"
	"fmt"
	"strings"

	"github.com/geneguard-server/internal/domain"
)

// Tip generator names accepted by tips.provider
const (
	TipProviderOpenAI = "openai"
	TipProviderGemini = "gemini"
	TipProviderStatic = "static"
)

// TipPrompt builds the lifestyle prompt for a gene/disease pair
func TipPrompt(gene string, disease domain.Disease) string {
	return fmt.Sprintf("Give two succinct, evidence-backed lifestyle changes that can "+
		"lower the risk of %s for someone carrying variants in %s. "+
		"Be non-prescriptive and cite generic sources (e.g., WHO, CDC).", disease, gene)
}

// ParseTipLines splits model output into tips. Blank lines are dropped and
// list bullets are trimmed from both ends of each line.
func ParseTipLines(text string) []string {
	tips := []string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.Trim(line, "•-* \t\r")
		if line == "" {
			continue
		}
		tips = append(tips, line)
	}
	return tips
}

// StaticTipGenerator returns fixed, generic advice without any network call
type StaticTipGenerator struct{}

// NewStaticTipGenerator creates a static generator
func NewStaticTipGenerator() *StaticTipGenerator {
	return &StaticTipGenerator{}
}

// Name returns the generator name
func (s *StaticTipGenerator) Name() string {
	return TipProviderStatic
}

// GenerateTips returns two general lifestyle suggestions
func (s *StaticTipGenerator) GenerateTips(ctx context.Context, gene string, disease domain.Disease) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []string{
		fmt.Sprintf("Regular moderate physical activity (at least 150 minutes a week) is associated with lower %s risk (WHO).", disease),
		"A diet rich in vegetables, whole grains and fibre with limited salt and processed food supports overall health (CDC).",
	}, nil
}

// NewTipGenerator builds the generator named by cfg.Provider. An empty
// provider means static.
func NewTipGenerator(ctx context.Context, cfg domain.TipsConfig) (domain.TipGenerator, error) {
	switch strings.ToLower(cfg.Provider) {
	case TipProviderStatic, "":
		return NewStaticTipGenerator(), nil
	case TipProviderOpenAI:
		return NewOpenAITipGenerator(OpenAIConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
		})
	case TipProviderGemini:
		return NewGeminiTipGenerator(ctx, GeminiConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		})
	default:
		return nil, fmt.Errorf("unknown tip provider %q", cfg.Provider)
	}
}
