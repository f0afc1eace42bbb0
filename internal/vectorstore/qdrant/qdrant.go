package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"doris-rag/internal/config"
	"doris-rag/internal/domain"
)

// Storage is a minimal REST client to Qdrant.
// It creates the collection if missing, sized to the configured dimension.
type Storage struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	distance   string
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Dimension  int
	Metric     config.Metric
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	distance := "Dot"
	if cfg.Metric == config.MetricL2Distance {
		distance = "Euclid"
	}
	return &Storage{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		distance:   distance,
		client:     &http.Client{Timeout: timeout},
	}
}

func (s *Storage) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", s.url, s.collection, suffix)
}

// Init opens the collection, creating it when Qdrant reports it missing.
func (s *Storage) Init(ctx context.Context) error {
	if s.dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", s.dimension)
	}
	status, err := s.do(ctx, http.MethodGet, s.collectionURL(""), nil, nil)
	if err == nil {
		return nil
	}
	if status != http.StatusNotFound {
		return err
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     s.dimension,
			"distance": s.distance,
		},
	}
	if _, err := s.do(ctx, http.MethodPut, s.collectionURL(""), body, nil); err != nil {
		return fmt.Errorf("creating qdrant collection %s: %w", s.collection, err)
	}
	return nil
}

func (s *Storage) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	points := make([]map[string]any, len(chunks))
	for i, c := range chunks {
		if len(c.Embedding) != s.dimension {
			return fmt.Errorf("%w: chunk %s has %d, collection expects %d", domain.ErrDimensionMismatch, c.Key, len(c.Embedding), s.dimension)
		}
		points[i] = map[string]any{
			"id":     c.Key,
			"vector": c.Embedding,
			"payload": map[string]any{
				"filename":    c.Filename,
				"sequence_id": c.SequenceID,
				"location":    c.Location.Value(),
				"text":        c.Text,
			},
		}
	}
	body := map[string]any{"points": points}
	_, err := s.do(ctx, http.MethodPut, s.collectionURL("/points?wait=true"), body, nil)
	return err
}

func (s *Storage) Search(ctx context.Context, vector []float32, k int, filter *domain.Filter) ([]domain.RetrievalRecord, error) {
	if k <= 0 {
		k = domain.DefaultTopK
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	if f := filenameFilter(filter); f != nil {
		req["filter"] = f
	}
	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if _, err := s.do(ctx, http.MethodPost, s.collectionURL("/points/search"), req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.RetrievalRecord, 0, len(resp.Result))
	for _, r := range resp.Result {
		rec := domain.RetrievalRecord{
			ChunkID:  fmt.Sprint(r.ID),
			Score:    r.Score,
			Location: domain.NormalizeLocation(r.Payload["location"]),
		}
		if v, ok := r.Payload["filename"].(string); ok {
			rec.Filename = v
		}
		if v, ok := r.Payload["text"].(string); ok {
			rec.Text = v
		}
		results = append(results, rec)
		if len(results) == k {
			break
		}
	}
	return results, nil
}

func (s *Storage) DeleteByFilename(ctx context.Context, filename string) error {
	body := map[string]any{"filter": filenameFilter(&domain.Filter{Filename: filename})}
	_, err := s.do(ctx, http.MethodPost, s.collectionURL("/points/delete?wait=true"), body, nil)
	return err
}

func (s *Storage) DeleteStale(ctx context.Context, filename string, keep int) error {
	body := map[string]any{"filter": map[string]any{
		"must": []any{
			map[string]any{"key": "filename", "match": map[string]any{"value": filename}},
			map[string]any{"key": "sequence_id", "range": map[string]any{"gte": keep}},
		},
	}}
	_, err := s.do(ctx, http.MethodPost, s.collectionURL("/points/delete?wait=true"), body, nil)
	return err
}

func (s *Storage) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func filenameFilter(f *domain.Filter) map[string]any {
	if f == nil || f.Filename == "" {
		return nil
	}
	return map[string]any{
		"must": []any{
			map[string]any{"key": "filename", "match": map[string]any{"value": f.Filename}},
		},
	}
}

// do sends a JSON request and decodes the response into out when non-nil.
// The HTTP status is returned alongside any error.
func (s *Storage) do(ctx context.Context, method, url string, body, out any) (int, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return resp.StatusCode, fmt.Errorf("qdrant %s %s failed: %s: %s", method, url, resp.Status, strings.TrimSpace(string(msg)))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decoding qdrant response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
