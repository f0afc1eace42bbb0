package vectorstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doris-rag/internal/config"
	"doris-rag/internal/domain"
)

func TestNewMemoryAndChromem(t *testing.T) {
	for _, typ := range []config.StoreType{config.StoreMemory, config.StoreChromem} {
		t.Run(string(typ), func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Embedding.EmbedDim = 2
			cfg.VectorStore.Type = typ
			cfg.VectorStore.Chromem.Path = filepath.Join(t.TempDir(), "chromem.gob.gz")

			s, err := New(context.Background(), cfg, nil)
			require.NoError(t, err)
			defer s.Close()

			ctx := context.Background()
			require.NoError(t, s.Upsert(ctx, []domain.Chunk{{Key: "k", Filename: "a.md", Text: "x", Embedding: []float32{1, 0}}}))
			got, err := s.Search(ctx, []float32{1, 0}, 1, nil)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "k", got[0].ChunkID)
		})
	}
}

func TestNewRejectsUnknownStore(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.VectorStore.Type = "pinecone"
	_, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestIdentity(t *testing.T) {
	cfg := config.DefaultConfig()
	base := Identity(cfg)
	assert.Equal(t, "doris://localhost:9030/cocoindex_demo.document_embeddings#openai/text-embedding-3-small/1536", base)
	assert.Equal(t, base, Identity(cfg))

	other := config.DefaultConfig()
	other.Doris.TableName = "docs_v2"
	assert.NotEqual(t, base, Identity(other))

	other = config.DefaultConfig()
	other.Embedding.Model = "text-embedding-3-large"
	assert.NotEqual(t, base, Identity(other))

	other = config.DefaultConfig()
	other.VectorStore.Type = config.StoreQdrant
	assert.Equal(t, "qdrant://http://localhost:6333/document_embeddings#openai/text-embedding-3-small/1536", Identity(other))

	mem := config.DefaultConfig()
	mem.VectorStore.Type = config.StoreMemory
	assert.NotEqual(t, Identity(mem), Identity(mem))
}
