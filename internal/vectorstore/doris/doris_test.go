package doris

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doris-rag/internal/config"
	"doris-rag/internal/domain"
)

func newMockStore(t *testing.T, cfg Config) (*Storage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	if cfg.Database == "" {
		cfg.Database = "cocoindex_demo"
	}
	if cfg.Table == "" {
		cfg.Table = "document_embeddings"
	}
	if cfg.Dimension == 0 {
		cfg.Dimension = 3
	}
	s := New(cfg, db, nil, nil)
	t.Cleanup(func() { _ = db.Close() })
	return s, mock
}

func TestInitCreatesDatabaseAndTable(t *testing.T) {
	s, mock := newMockStore(t, Config{})
	mock.ExpectExec(regexp.QuoteMeta("CREATE DATABASE IF NOT EXISTS `cocoindex_demo`")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS `cocoindex_demo`.`document_embeddings`")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Init(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Contains(t, s.createTableSQL(), "UNIQUE KEY(`_key`)")
	assert.Contains(t, s.createTableSQL(), "dim=3")
}

func TestSearchInnerProductOrdersDesc(t *testing.T) {
	s, mock := newMockStore(t, Config{Metric: config.MetricInnerProduct})
	rows := sqlmock.NewRows([]string{"_key", "filename", "text", "location", "score"}).
		AddRow("k1", "a.md", "alpha", "[0,37]", 0.92).
		AddRow("k2", "b.md", nil, `{"nested":[1]}`, 0.41)
	mock.ExpectQuery(regexp.QuoteMeta("inner_product(`embedding`, [1,0.5,-2]) AS score FROM `cocoindex_demo`.`document_embeddings` ORDER BY score DESC LIMIT 2")).
		WillReturnRows(rows)

	got, err := s.Search(context.Background(), []float32{1, 0.5, -2}, 2, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "k1", got[0].ChunkID)
	assert.Equal(t, []any{int64(0), int64(37)}, got[0].Location)
	assert.Equal(t, "", got[1].Text)
	assert.Nil(t, got[1].Location)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchL2WithFilter(t *testing.T) {
	s, mock := newMockStore(t, Config{Metric: config.MetricL2Distance})
	mock.ExpectQuery(regexp.QuoteMeta("l2_distance(`embedding`, [0,0,1]) AS score FROM `cocoindex_demo`.`document_embeddings` WHERE `filename` = ? ORDER BY score ASC LIMIT 5")).
		WithArgs("a.md").
		WillReturnRows(sqlmock.NewRows([]string{"_key", "filename", "text", "location", "score"}))

	got, err := s.Search(context.Background(), []float32{0, 0, 1}, 0, &domain.Filter{Filename: "a.md"})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchRejectsWrongDimension(t *testing.T) {
	s, _ := newMockStore(t, Config{})
	_, err := s.Search(context.Background(), []float32{1}, 3, nil)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestDeleteByFilename(t *testing.T) {
	s, mock := newMockStore(t, Config{})
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `cocoindex_demo`.`document_embeddings` WHERE `filename` = ?")).
		WithArgs("guide/install.md").
		WillReturnResult(sqlmock.NewResult(0, 4))
	require.NoError(t, s.DeleteByFilename(context.Background(), "guide/install.md"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// streamLoadServer plays both frontend and backend: the first hop redirects to /be.
func streamLoadServer(t *testing.T, status string, rowsSeen *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "root" || pass != "secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.URL.Path == "/api/cocoindex_demo/document_embeddings/_stream_load" {
			http.Redirect(w, r, "/be"+r.URL.Path, http.StatusTemporaryRedirect)
			return
		}
		assert.Equal(t, "json", r.Header.Get("format"))
		assert.Equal(t, "true", r.Header.Get("strip_outer_array"))
		assert.NotEmpty(t, r.Header.Get("label"))

		var rows []row
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rows))
		rowsSeen.Add(int64(len(rows)))
		_ = json.NewEncoder(w).Encode(loadResult{Status: status, NumberLoadedRows: int64(len(rows)), Message: "msg"})
	}))
}

func storeFor(t *testing.T, srv *httptest.Server, batch int) *Storage {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(Config{
		Host: u.Hostname(), HTTPPort: port, Database: "cocoindex_demo", Table: "document_embeddings",
		User: "root", Password: "secret", Dimension: 2, LoadBatch: batch,
	}, db, srv.Client(), nil)
}

func sampleChunks(n int) []domain.Chunk {
	out := make([]domain.Chunk, n)
	for i := range out {
		out[i] = domain.Chunk{
			Key: strconv.Itoa(i), SequenceID: i, Filename: "a.md", Text: "t",
			Location: domain.Location{Start: i, End: i + 1}, Embedding: []float32{1, 0},
		}
	}
	return out
}

func TestUpsertStreamLoadsInBatches(t *testing.T) {
	var seen atomic.Int64
	srv := streamLoadServer(t, "Success", &seen)
	defer srv.Close()

	s := storeFor(t, srv, 2)
	require.NoError(t, s.Upsert(context.Background(), sampleChunks(5)))
	assert.Equal(t, int64(5), seen.Load())
}

func TestUpsertFailsOnLoadStatus(t *testing.T) {
	var seen atomic.Int64
	srv := streamLoadServer(t, "Fail", &seen)
	defer srv.Close()

	s := storeFor(t, srv, 10)
	err := s.Upsert(context.Background(), sampleChunks(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Fail")
}

func TestUpsertRejectsWrongDimension(t *testing.T) {
	var seen atomic.Int64
	srv := streamLoadServer(t, "Success", &seen)
	defer srv.Close()

	s := storeFor(t, srv, 10)
	chunks := sampleChunks(2)
	chunks[1].Embedding = []float32{1}
	assert.ErrorIs(t, s.Upsert(context.Background(), chunks), domain.ErrDimensionMismatch)
	assert.Zero(t, seen.Load())
}

func TestLoadResultOK(t *testing.T) {
	assert.True(t, loadResult{Status: "Success"}.ok())
	assert.True(t, loadResult{Status: "Publish Timeout"}.ok())
	assert.True(t, loadResult{Status: "Label Already Exists", ExistingJobStatus: "FINISHED"}.ok())
	assert.False(t, loadResult{Status: "Label Already Exists", ExistingJobStatus: "RUNNING"}.ok())
	assert.False(t, loadResult{Status: "Fail"}.ok())
}

func TestDSN(t *testing.T) {
	dsn := DSN(Config{Host: "fe", QueryPort: 9030, User: "root", Password: "pw"})
	assert.Contains(t, dsn, "root:pw@tcp(fe:9030)/")
	assert.Contains(t, dsn, "interpolateParams=true")
}

func TestDeleteStale(t *testing.T) {
	s, mock := newMockStore(t, Config{})
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `cocoindex_demo`.`document_embeddings` WHERE `filename` = ? AND `sequence_id` >= ?")).
		WithArgs("guide/install.md", 2).
		WillReturnResult(sqlmock.NewResult(0, 3))
	require.NoError(t, s.DeleteStale(context.Background(), "guide/install.md", 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}
