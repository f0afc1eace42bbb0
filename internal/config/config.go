package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"doris-rag/internal/domain"
)

// EnvPrefix prefixes environment overrides, e.g. DORIS_RAG_EMBEDDING__API_KEY.
const EnvPrefix = "DORIS_RAG_"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Load reads the YAML file at path over the defaults, overlays DORIS_RAG_* environment
// variables and validates the result. A missing file is an error.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	applyConfigDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps DORIS_RAG_DOCS__CHUNK_SIZE to docs.chunk_size.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the config to the given path, creating directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validProviders = map[ProviderType]bool{
	ProviderOpenAI:     true,
	ProviderOllama:     true,
	ProviderOpenRouter: true,
}

var validStores = map[StoreType]bool{
	StoreDoris:   true,
	StoreQdrant:  true,
	StoreMemory:  true,
	StoreChromem: true,
}

var validMetrics = map[Metric]bool{
	MetricInnerProduct: true,
	MetricL2Distance:   true,
}

// Validate checks that the configuration contains supported values.
func (c *Config) Validate() error {
	if !validProviders[c.Embedding.Type] {
		return fmt.Errorf("%w: embedding.type %q (must be one of openai, ollama, openrouter)", domain.ErrUnsupportedProvider, c.Embedding.Type)
	}
	if !validProviders[c.LLM.Type] {
		return fmt.Errorf("%w: llm.type %q (must be one of openai, ollama, openrouter)", domain.ErrUnsupportedProvider, c.LLM.Type)
	}
	if !validStores[c.VectorStore.Type] {
		return fmt.Errorf("invalid vector_store.type %q: must be one of doris, qdrant, memory, chromem", c.VectorStore.Type)
	}
	if !validMetrics[c.Doris.Metric] {
		return fmt.Errorf("invalid doris.metric %q: must be inner_product or l2_distance", c.Doris.Metric)
	}
	if c.Embedding.EmbedDim <= 0 {
		return fmt.Errorf("embedding.embed_dim must be positive, got %d", c.Embedding.EmbedDim)
	}
	if c.Docs.ChunkSize <= 0 || c.Docs.ChunkOverlap < 0 || c.Docs.ChunkOverlap >= c.Docs.ChunkSize {
		return fmt.Errorf("%w (chunk_size=%d, chunk_overlap=%d)", domain.ErrInvalidChunking, c.Docs.ChunkSize, c.Docs.ChunkOverlap)
	}
	if c.App.TopK <= 0 {
		return fmt.Errorf("app.top_k must be positive, got %d", c.App.TopK)
	}
	if c.App.HistoryWindow < 0 {
		return fmt.Errorf("app.history_window must be non-negative")
	}
	return nil
}

// DefaultConfig returns a Config with the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Language:       "zh",
			ListenAddr:     ":8000",
			TopK:           5,
			HistoryWindow:  0,
			RequestTimeout: 60 * time.Second,
			LogLevel:       "info",
		},
		Embedding: EmbeddingConfig{
			Type:        ProviderOpenAI,
			Model:       "text-embedding-3-small",
			EmbedDim:    1536,
			BatchSize:   32,
			Concurrency: 2,
			MaxRetries:  5,
		},
		LLM: LLMConfig{
			Type:        ProviderOpenAI,
			Model:       "gpt-4o-mini",
			Temperature: 0.2,
		},
		VectorStore: VectorStoreConfig{
			Type:    StoreDoris,
			Qdrant:  QdrantConfig{URL: "http://localhost:6333", Collection: "document_embeddings"},
			Chromem: ChromemConfig{Path: ".doris-rag/chromem.gob.gz"},
		},
		Doris: DorisConfig{
			Host:      "localhost",
			QueryPort: 9030,
			HTTPPort:  8030,
			DBName:    "cocoindex_demo",
			TableName: "document_embeddings",
			User:      "root",
			Metric:    MetricInnerProduct,
		},
		Docs: DocsConfig{
			DocRoot:      "docs",
			ChunkSize:    500,
			ChunkOverlap: 100,
			Include:      []string{"**/*.md", "**/*.mdx"},
			Exclude:      []string{"**/*.pdf", "**/*.png", "**/*.jpg", "**/*.jpeg"},
			Workers:      4,
			ManifestPath: ".doris-rag/manifest.db",
		},
	}
}

// applyConfigDefaults fills provider-specific values left empty by the file.
func applyConfigDefaults(cfg *Config) {
	cfg.Embedding.Type = ProviderType(strings.ToLower(string(cfg.Embedding.Type)))
	cfg.LLM.Type = ProviderType(strings.ToLower(string(cfg.LLM.Type)))
	cfg.VectorStore.Type = StoreType(strings.ToLower(string(cfg.VectorStore.Type)))

	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = DefaultBaseURL(cfg.Embedding.Type)
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = DefaultBaseURL(cfg.LLM.Type)
	}
	if cfg.Embedding.BatchSize <= 0 {
		cfg.Embedding.BatchSize = 32
	}
	if cfg.Embedding.Concurrency <= 0 {
		cfg.Embedding.Concurrency = 1
	}
	if cfg.Docs.Workers <= 0 {
		cfg.Docs.Workers = 1
	}
	if cfg.App.RequestTimeout <= 0 {
		cfg.App.RequestTimeout = 60 * time.Second
	}
}

// DefaultBaseURL returns the conventional API endpoint for a provider.
func DefaultBaseURL(p ProviderType) string {
	switch p {
	case ProviderOllama:
		return "http://localhost:11434"
	case ProviderOpenRouter:
		return "https://openrouter.ai/api/v1"
	default:
		return "https://api.openai.com/v1"
	}
}

// APIKey returns the configured key, falling back to the provider's conventional
// environment variable.
func APIKey(p ProviderType, configured string) string {
	if configured != "" {
		return configured
	}
	switch p {
	case ProviderOpenRouter:
		return os.Getenv("OPENROUTER_API_KEY")
	case ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	}
	return ""
}
