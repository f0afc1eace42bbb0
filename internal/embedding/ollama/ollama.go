package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"doris-rag/internal/retry"
)

const defaultBaseURL = "http://localhost:11434"

// Client embeds text with a local Ollama instance through /api/embed.
type Client struct {
	baseURL    string
	model      string
	dimensions int
	client     *http.Client
	policy     retry.Policy
}

// Config configures the Ollama embeddings client.
type Config struct {
	BaseURL    string
	Model      string
	Dimensions int
	Timeout    time.Duration
	MaxRetries int
}

// NewClient creates an Ollama embeddings client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	t := cfg.Timeout
	if t == 0 {
		t = 60 * time.Second
	}
	policy := retry.DefaultPolicy
	if cfg.MaxRetries > 0 {
		policy.MaxRetries = cfg.MaxRetries
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		client:     &http.Client{Timeout: t},
		policy:     policy,
	}
}

func (c *Client) Name() string    { return "ollama/" + c.model }
func (c *Client) Dimensions() int { return c.dimensions }

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed sends the whole batch in a single request.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(embedRequest{Model: c.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal ollama request: %w", err)
	}

	var out embedResponse
	err = retry.Do(ctx, c.policy, func(int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embed", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			return retry.Transient(err, 0)
		}
		defer resp.Body.Close()
		payload, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.Transient(err, 0)
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return retry.Transient(fmt.Errorf("ollama embeddings failed: %s", resp.Status), retryAfter(resp.Header))
		}
		if resp.StatusCode >= 300 {
			return fmt.Errorf("ollama embeddings failed: %s: %s", resp.Status, strings.TrimSpace(string(payload)))
		}
		out = embedResponse{}
		if err := json.Unmarshal(payload, &out); err != nil {
			return fmt.Errorf("decode ollama response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out.Embeddings, nil
}

func retryAfter(h http.Header) time.Duration {
	if secs, err := strconv.Atoi(h.Get("Retry-After")); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
