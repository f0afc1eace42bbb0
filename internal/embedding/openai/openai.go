package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"doris-rag/internal/retry"
)

// Client is an OpenAI-compatible embeddings client. It also serves OpenRouter.
type Client struct {
	name       string
	client     *openai.Client
	model      string
	dimensions int
	policy     retry.Policy
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	Name       string
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	Timeout    time.Duration
	MaxRetries int
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("missing embedding API key")
	}
	if cfg.Model == "" {
		cfg.Model = string(openai.SmallEmbedding3)
	}
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	oc.HTTPClient = &http.Client{Timeout: t}

	policy := retry.DefaultPolicy
	if cfg.MaxRetries > 0 {
		policy.MaxRetries = cfg.MaxRetries
	}
	return &Client{
		name:       cfg.Name,
		client:     openai.NewClientWithConfig(oc),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		policy:     policy,
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return c.name + "/" + c.model }

// Dimensions returns the requested output dimension.
func (c *Client) Dimensions() int { return c.dimensions }

// Embed returns one vector per input text in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var resp openai.EmbeddingResponse
	err := retry.Do(ctx, c.policy, func(int) error {
		var err error
		resp, err = c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input:      texts,
			Model:      openai.EmbeddingModel(c.model),
			Dimensions: c.dimensions,
		})
		return classify(err)
	})
	if err != nil {
		return nil, fmt.Errorf("%s embeddings failed: %w", c.name, err)
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	out := make([][]float32, len(data))
	for i, d := range data {
		out[i] = d.Embedding
	}
	return out, nil
}

// classify marks rate limiting and server errors as retryable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && retryable(apiErr.HTTPStatusCode) {
		return retry.Transient(err, 0)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && retryable(reqErr.HTTPStatusCode) {
		return retry.Transient(err, 0)
	}
	return err
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
