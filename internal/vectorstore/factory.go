package vectorstore

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"doris-rag/internal/config"
	"doris-rag/internal/vectorstore/chromem"
	"doris-rag/internal/vectorstore/doris"
	"doris-rag/internal/vectorstore/memory"
	"doris-rag/internal/vectorstore/qdrant"
)

var (
	_ Storage = (*doris.Storage)(nil)
	_ Storage = (*qdrant.Storage)(nil)
	_ Storage = (*memory.Storage)(nil)
	_ Storage = (*chromem.Storage)(nil)
)

// New opens the configured backend and initializes it for the embedding dimension.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Storage, error) {
	dim := cfg.Embedding.EmbedDim
	var s Storage
	switch cfg.VectorStore.Type {
	case config.StoreDoris:
		d, err := doris.Open(doris.FromConfig(cfg.Doris, dim, cfg.App.RequestTimeout), logger)
		if err != nil {
			return nil, err
		}
		s = d
	case config.StoreQdrant:
		q := cfg.VectorStore.Qdrant
		s = qdrant.NewStorage(qdrant.Config{
			URL:        q.URL,
			APIKey:     q.APIKey,
			Collection: q.Collection,
			Dimension:  dim,
			Metric:     cfg.Doris.Metric,
			Timeout:    cfg.App.RequestTimeout,
		})
	case config.StoreMemory:
		s = memory.NewStorage(dim, cfg.Doris.Metric)
	case config.StoreChromem:
		s = chromem.NewStorage(cfg.VectorStore.Chromem.Path, dim)
	default:
		return nil, fmt.Errorf("unknown vector_store.type %q", cfg.VectorStore.Type)
	}

	initCtx, cancel := context.WithTimeout(ctx, cfg.App.RequestTimeout)
	defer cancel()
	if err := s.Init(initCtx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("initializing %s store: %w", cfg.VectorStore.Type, err)
	}
	return s, nil
}

// Identity names the index a config writes to: the backend location plus the
// embedding space of its vectors. The in-memory store is new in every process, so
// its identity is too.
func Identity(cfg *config.Config) string {
	var target string
	switch cfg.VectorStore.Type {
	case config.StoreDoris:
		d := cfg.Doris
		target = fmt.Sprintf("doris://%s/%s.%s", net.JoinHostPort(d.Host, strconv.Itoa(d.QueryPort)), d.DBName, d.TableName)
	case config.StoreQdrant:
		target = fmt.Sprintf("qdrant://%s/%s", cfg.VectorStore.Qdrant.URL, cfg.VectorStore.Qdrant.Collection)
	case config.StoreChromem:
		target = "chromem://" + cfg.VectorStore.Chromem.Path
	default:
		target = fmt.Sprintf("%s://%s", cfg.VectorStore.Type, uuid.NewString())
	}
	e := cfg.Embedding
	return fmt.Sprintf("%s#%s/%s/%d", target, e.Type, e.Model, e.EmbedDim)
}
