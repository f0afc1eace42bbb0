// Package vectorstore defines the chunk store port and selects a backend.
package vectorstore

import (
	"context"

	"doris-rag/internal/domain"
)

// Storage persists chunk records keyed by Chunk.Key and answers nearest-neighbour
// queries. Upsert replaces records with an existing key. Search returns at most k
// records best-first by the store's metric and an empty slice on zero matches.
// Implementations are safe for concurrent use.
type Storage interface {
	Init(ctx context.Context) error
	Upsert(ctx context.Context, chunks []domain.Chunk) error
	Search(ctx context.Context, vector []float32, k int, filter *domain.Filter) ([]domain.RetrievalRecord, error)
	DeleteByFilename(ctx context.Context, filename string) error
	// DeleteStale removes the chunks of filename whose sequence id is keep or
	// higher, left over after a document shrank.
	DeleteStale(ctx context.Context, filename string, keep int) error
	Close() error
}
