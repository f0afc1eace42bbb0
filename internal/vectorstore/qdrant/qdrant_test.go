package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doris-rag/internal/config"
	"doris-rag/internal/domain"
)

type recorded struct {
	method, path string
	body         map[string]any
}

func fakeQdrant(t *testing.T, exists bool) (*httptest.Server, *[]recorded) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		calls = append(calls, recorded{r.Method, r.URL.Path, body})
		mu.Unlock()

		switch {
		case r.Method == http.MethodGet && !exists:
			http.Error(w, `{"status":{"error":"Not found"}}`, http.StatusNotFound)
		case r.URL.Path == "/collections/docs/points/search":
			_, _ = w.Write([]byte(`{"result":[
				{"id":"k1","score":0.9,"payload":{"filename":"a.md","text":"alpha","location":[0,5]}},
				{"id":"k2","score":0.4,"payload":{"filename":"b.md","text":"beta","location":{"bad":true}}}
			]}`))
		default:
			_, _ = w.Write([]byte(`{"result":true,"status":"ok"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestInitCreatesMissingCollection(t *testing.T) {
	srv, calls := fakeQdrant(t, false)
	s := NewStorage(Config{URL: srv.URL, Collection: "docs", Dimension: 3, Metric: config.MetricL2Distance})
	require.NoError(t, s.Init(context.Background()))

	require.Len(t, *calls, 2)
	create := (*calls)[1]
	assert.Equal(t, http.MethodPut, create.method)
	vectors := create.body["vectors"].(map[string]any)
	assert.Equal(t, float64(3), vectors["size"])
	assert.Equal(t, "Euclid", vectors["distance"])
}

func TestInitOpensExistingCollection(t *testing.T) {
	srv, calls := fakeQdrant(t, true)
	s := NewStorage(Config{URL: srv.URL, Collection: "docs", Dimension: 3})
	require.NoError(t, s.Init(context.Background()))
	assert.Len(t, *calls, 1)
}

func TestSearchMapsPayload(t *testing.T) {
	srv, calls := fakeQdrant(t, true)
	s := NewStorage(Config{URL: srv.URL, Collection: "docs", Dimension: 2})
	got, err := s.Search(context.Background(), []float32{1, 0}, 2, &domain.Filter{Filename: "a.md"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "k1", got[0].ChunkID)
	assert.Equal(t, "alpha", got[0].Text)
	assert.Equal(t, []any{int64(0), int64(5)}, got[0].Location)
	assert.Nil(t, got[1].Location)
	assert.NotNil(t, (*calls)[0].body["filter"])
}

func TestUpsertAndDelete(t *testing.T) {
	srv, calls := fakeQdrant(t, true)
	s := NewStorage(Config{URL: srv.URL, Collection: "docs", Dimension: 2})
	ctx := context.Background()

	err := s.Upsert(ctx, []domain.Chunk{{Key: "k", Filename: "a.md", Embedding: []float32{1}}})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	require.NoError(t, s.Upsert(ctx, []domain.Chunk{{Key: "k", Filename: "a.md", Text: "t", Embedding: []float32{1, 2}}}))
	require.NoError(t, s.DeleteByFilename(ctx, "a.md"))

	require.Len(t, *calls, 2)
	assert.Equal(t, "/collections/docs/points", (*calls)[0].path)
	assert.Equal(t, "/collections/docs/points/delete", (*calls)[1].path)
}

func TestDeleteStaleFiltersBySequence(t *testing.T) {
	srv, calls := fakeQdrant(t, true)
	s := NewStorage(Config{URL: srv.URL, Collection: "docs", Dimension: 2})

	require.NoError(t, s.DeleteStale(context.Background(), "a.md", 3))

	require.Len(t, *calls, 1)
	assert.Equal(t, "/collections/docs/points/delete", (*calls)[0].path)
	filter := (*calls)[0].body["filter"].(map[string]any)
	must := filter["must"].([]any)
	require.Len(t, must, 2)
	rng := must[1].(map[string]any)
	assert.Equal(t, "sequence_id", rng["key"])
	assert.Equal(t, map[string]any{"gte": float64(3)}, rng["range"])
}
