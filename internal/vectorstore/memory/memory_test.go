package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doris-rag/internal/config"
	"doris-rag/internal/domain"
)

func chunk(key, file string, v ...float32) domain.Chunk {
	return domain.Chunk{Key: key, Filename: file, Text: "text " + key, Embedding: v, Location: domain.Location{Start: 0, End: 4}}
}

func TestSearchInnerProduct(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(2, config.MetricInnerProduct)
	require.NoError(t, s.Init(ctx))
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{
		chunk("a", "a.md", 1, 0),
		chunk("b", "b.md", 0.5, 0.5),
		chunk("c", "c.md", 0, 1),
	}))

	got, err := s.Search(ctx, []float32{1, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ChunkID)
	assert.Equal(t, "b", got[1].ChunkID)
	assert.Equal(t, []int{0, 4}, got[0].Location)
}

func TestSearchL2Ascending(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(2, config.MetricL2Distance)
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{
		chunk("far", "x.md", 10, 10),
		chunk("near", "x.md", 1, 1),
	}))
	got, err := s.Search(ctx, []float32{0, 0}, 5, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "near", got[0].ChunkID)
	assert.Less(t, got[0].Score, got[1].Score)
}

func TestUpsertReplacesByKey(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(1, "")
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{chunk("k", "a.md", 1)}))
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{chunk("k", "a.md", 2)}))
	assert.Equal(t, 1, s.Len())
}

func TestUpsertRejectsWrongDimension(t *testing.T) {
	s := NewStorage(3, "")
	err := s.Upsert(context.Background(), []domain.Chunk{chunk("k", "a.md", 1, 2)})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Zero(t, s.Len())
}

func TestSearchEmptyAndFiltered(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(1, "")
	got, err := s.Search(ctx, []float32{1}, 3, nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.Upsert(ctx, []domain.Chunk{chunk("a", "a.md", 1), chunk("b", "b.md", 2)}))
	got, err = s.Search(ctx, []float32{1}, 3, &domain.Filter{Filename: "a.md"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a.md", got[0].Filename)
}

func TestDeleteByFilename(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(1, "")
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{chunk("a1", "a.md", 1), chunk("a2", "a.md", 1), chunk("b", "b.md", 1)}))
	require.NoError(t, s.DeleteByFilename(ctx, "a.md"))
	assert.Equal(t, 1, s.Len())
}

func TestDeleteStale(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(1, "")
	a0, a1, a2 := chunk("a0", "a.md", 1), chunk("a1", "a.md", 1), chunk("a2", "a.md", 1)
	a1.SequenceID, a2.SequenceID = 1, 2
	b2 := chunk("b2", "b.md", 1)
	b2.SequenceID = 2
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{a0, a1, a2, b2}))

	require.NoError(t, s.DeleteStale(ctx, "a.md", 1))

	assert.Equal(t, 2, s.Len())
	got, err := s.Search(ctx, []float32{1}, 5, &domain.Filter{Filename: "a.md"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a0", got[0].ChunkID)
}
