package embedding

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doris-rag/internal/config"
	"doris-rag/internal/domain"
)

func TestNewSelectsProvider(t *testing.T) {
	e, err := New(config.EmbeddingConfig{Type: config.ProviderOllama, Model: "nomic-embed-text", EmbedDim: 768}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "ollama/nomic-embed-text", e.Name())
	assert.Equal(t, 768, e.Dimensions())

	e, err = New(config.EmbeddingConfig{Type: config.ProviderOpenRouter, APIKey: "k", Model: "m", EmbedDim: 8}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "openrouter/m", e.Name())
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(config.EmbeddingConfig{Type: "huggingface"}, time.Second)
	assert.ErrorIs(t, err, domain.ErrUnsupportedProvider)
}

func TestNewPipelineFromConfig(t *testing.T) {
	p, err := NewPipelineFromConfig(config.EmbeddingConfig{Type: config.ProviderOllama, Model: "m", EmbedDim: 4}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 4, p.Dimensions())
}
