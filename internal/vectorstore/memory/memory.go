package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"doris-rag/internal/config"
	"doris-rag/internal/domain"
)

// Storage is an in-process vector store using exact search.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	metric    config.Metric
	records   map[string]domain.Chunk
}

// NewStorage creates an empty store for vectors of the given dimension.
func NewStorage(dimension int, metric config.Metric) *Storage {
	if metric == "" {
		metric = config.MetricInnerProduct
	}
	return &Storage{dimension: dimension, metric: metric, records: map[string]domain.Chunk{}}
}

func (s *Storage) Init(context.Context) error {
	if s.dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", s.dimension)
	}
	return nil
}

func (s *Storage) Upsert(_ context.Context, chunks []domain.Chunk) error {
	for _, c := range chunks {
		if len(c.Embedding) != s.dimension {
			return fmt.Errorf("%w: chunk %s has %d, store expects %d", domain.ErrDimensionMismatch, c.Key, len(c.Embedding), s.dimension)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		c.Embedding = append([]float32(nil), c.Embedding...)
		s.records[c.Key] = c
	}
	return nil
}

func (s *Storage) Search(_ context.Context, vector []float32, k int, filter *domain.Filter) ([]domain.RetrievalRecord, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d, store expects %d", domain.ErrDimensionMismatch, len(vector), s.dimension)
	}
	if k <= 0 {
		k = domain.DefaultTopK
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		chunk domain.Chunk
		score float64
	}
	hits := make([]scored, 0, len(s.records))
	for _, c := range s.records {
		if !filter.Matches(c.Filename) {
			continue
		}
		hits = append(hits, scored{chunk: c, score: s.score(c.Embedding, vector)})
	}
	ascending := s.metric == config.MetricL2Distance
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			if ascending {
				return hits[i].score < hits[j].score
			}
			return hits[i].score > hits[j].score
		}
		return hits[i].chunk.Key < hits[j].chunk.Key
	})
	if k > len(hits) {
		k = len(hits)
	}
	out := make([]domain.RetrievalRecord, 0, k)
	for _, h := range hits[:k] {
		out = append(out, domain.RetrievalRecord{
			ChunkID:  h.chunk.Key,
			Score:    h.score,
			Text:     h.chunk.Text,
			Filename: h.chunk.Filename,
			Location: h.chunk.Location.Value(),
		})
	}
	return out, nil
}

func (s *Storage) DeleteByFilename(_ context.Context, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, c := range s.records {
		if c.Filename == filename {
			delete(s.records, key)
		}
	}
	return nil
}

func (s *Storage) DeleteStale(_ context.Context, filename string, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, c := range s.records {
		if c.Filename == filename && c.SequenceID >= keep {
			delete(s.records, key)
		}
	}
	return nil
}

// Len returns the number of stored records.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Storage) Close() error { return nil }

func (s *Storage) score(a, b []float32) float64 {
	if s.metric == config.MetricL2Distance {
		var sum float64
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return sum
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
