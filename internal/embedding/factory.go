package embedding

import (
	"fmt"
	"time"

	"doris-rag/internal/config"
	"doris-rag/internal/domain"
	"doris-rag/internal/embedding/ollama"
	"doris-rag/internal/embedding/openai"
)

var (
	_ Embedder = (*openai.Client)(nil)
	_ Embedder = (*ollama.Client)(nil)
)

// New builds the embedder selected by cfg.Type.
func New(cfg config.EmbeddingConfig, timeout time.Duration) (Embedder, error) {
	switch cfg.Type {
	case config.ProviderOpenAI, config.ProviderOpenRouter:
		return openai.NewClient(openai.Config{
			Name:       string(cfg.Type),
			BaseURL:    cfg.BaseURL,
			APIKey:     config.APIKey(cfg.Type, cfg.APIKey),
			Model:      cfg.Model,
			Dimensions: cfg.EmbedDim,
			Timeout:    timeout,
			MaxRetries: cfg.MaxRetries,
		})
	case config.ProviderOllama:
		return ollama.NewClient(ollama.Config{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.EmbedDim,
			Timeout:    timeout,
			MaxRetries: cfg.MaxRetries,
		}), nil
	default:
		return nil, fmt.Errorf("%w: embedding type %q", domain.ErrUnsupportedProvider, cfg.Type)
	}
}

// NewPipelineFromConfig builds the configured embedder wrapped in a Pipeline.
func NewPipelineFromConfig(cfg config.EmbeddingConfig, timeout time.Duration) (*Pipeline, error) {
	e, err := New(cfg, timeout)
	if err != nil {
		return nil, err
	}
	return NewPipeline(e, PipelineConfig{
		Dimensions:        cfg.EmbedDim,
		BatchSize:         cfg.BatchSize,
		Concurrency:       cfg.Concurrency,
		RequestsPerSecond: cfg.RequestsPerSecond,
	})
}
