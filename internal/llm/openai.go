package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"doris-rag/internal/retry"
)

// OpenAIConfig configures an OpenAI-compatible chat completion generator.
type OpenAIConfig struct {
	Name        string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// OpenAIGenerator sends each prompt as a single user message. OpenRouter speaks the
// same protocol and is served by this type too.
type OpenAIGenerator struct {
	name        string
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewOpenAIGenerator creates a chat completion generator.
func NewOpenAIGenerator(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("missing llm API key")
	}
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Timeout > 0 {
		oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	// The request field is omitempty; a zero would select the provider default.
	temperature := float32(cfg.Temperature)
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}
	return &OpenAIGenerator{
		name:        cfg.Name,
		client:      openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		temperature: temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

func (g *OpenAIGenerator) Name() string { return g.name + "/" + g.model }

// Generate returns the content of the first choice.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	}

	var resp openai.ChatCompletionResponse
	err := retry.Do(ctx, retry.Policy{MaxRetries: 2}, func(int) error {
		var err error
		resp, err = g.client.CreateChatCompletion(ctx, req)
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && (apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500) {
			return retry.Transient(err, 0)
		}
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%s completion failed: %w", g.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s completion returned no choices", g.name)
	}
	return resp.Choices[0].Message.Content, nil
}
