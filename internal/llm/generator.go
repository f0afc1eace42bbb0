// Package llm wraps the text-generation providers used for query rewriting and answering.
package llm

import (
	"context"
	"fmt"
	"time"

	"doris-rag/internal/config"
	"doris-rag/internal/domain"
)

// Generator produces a completion for a single prompt.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// New builds the generator selected by cfg.Type.
func New(cfg config.LLMConfig, timeout time.Duration) (Generator, error) {
	switch cfg.Type {
	case config.ProviderOpenAI, config.ProviderOpenRouter:
		return NewOpenAIGenerator(OpenAIConfig{
			Name:        string(cfg.Type),
			BaseURL:     cfg.BaseURL,
			APIKey:      config.APIKey(cfg.Type, cfg.APIKey),
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     timeout,
		})
	case config.ProviderOllama:
		return NewOllamaGenerator(OllamaConfig{
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     timeout,
		}), nil
	default:
		return nil, fmt.Errorf("%w: llm type %q", domain.ErrUnsupportedProvider, cfg.Type)
	}
}
