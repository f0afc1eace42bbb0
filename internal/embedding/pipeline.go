package embedding

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"doris-rag/internal/domain"
)

// PipelineConfig controls batching, concurrency and pacing of embedding calls.
type PipelineConfig struct {
	Dimensions        int
	BatchSize         int
	Concurrency       int
	RequestsPerSecond float64
}

// Pipeline embeds texts in batches and enforces the corpus dimension.
// The same Pipeline is used for chunks and queries so both share one model.
type Pipeline struct {
	embedder Embedder
	dim      int
	batch    int
	workers  int
	limiter  *rate.Limiter
}

// NewPipeline wraps e. Dimensions must be positive.
func NewPipeline(e Embedder, cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", cfg.Dimensions)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Pipeline{
		embedder: e,
		dim:      cfg.Dimensions,
		batch:    cfg.BatchSize,
		workers:  cfg.Concurrency,
		limiter:  rate.NewLimiter(limit, 1),
	}, nil
}

// Dimensions returns the enforced vector dimension.
func (p *Pipeline) Dimensions() int { return p.dim }

// Name returns the underlying model identifier.
func (p *Pipeline) Name() string { return p.embedder.Name() }

// EmbedTexts returns one vector per text in input order. A provider returning the
// wrong number of vectors or a vector of the wrong size fails the whole call.
func (p *Pipeline) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for start := 0; start < len(texts); start += p.batch {
		end := min(start+p.batch, len(texts))
		g.Go(func() error {
			if err := p.limiter.Wait(ctx); err != nil {
				return err
			}
			vecs, err := p.embedder.Embed(ctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("embedding batch [%d:%d]: %w", start, end, err)
			}
			if len(vecs) != end-start {
				return fmt.Errorf("%w: sent %d texts, got %d vectors", domain.ErrBatchCountMismatch, end-start, len(vecs))
			}
			for i, v := range vecs {
				if err := p.CheckDimensions(v); err != nil {
					return err
				}
				out[start+i] = v
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// EmbedChunks fills the Embedding field of every chunk.
func (p *Pipeline) EmbedChunks(ctx context.Context, chunks []domain.Chunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := p.EmbedTexts(ctx, texts)
	if err != nil {
		return err
	}
	for i := range chunks {
		chunks[i].Embedding = vecs[i]
	}
	return nil
}

// EmbedQuery embeds a single retrieval query.
func (p *Pipeline) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// CheckDimensions reports ErrDimensionMismatch unless len(v) equals the pipeline dimension.
func (p *Pipeline) CheckDimensions(v []float32) error {
	if len(v) != p.dim {
		return fmt.Errorf("%w: expected %d, got %d", domain.ErrDimensionMismatch, p.dim, len(v))
	}
	return nil
}
