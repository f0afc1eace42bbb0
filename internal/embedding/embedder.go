// Package embedding turns chunk and query text into fixed-dimension vectors.
package embedding

import "context"

// Embedder converts a batch of texts into vectors, one per input, in input order.
type Embedder interface {
	Name() string
	Dimensions() int
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
