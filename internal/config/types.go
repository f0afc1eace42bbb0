package config

import "time"

// ProviderType identifies an embedding or LLM provider.
type ProviderType string

const (
	ProviderOpenAI     ProviderType = "openai"
	ProviderOllama     ProviderType = "ollama"
	ProviderOpenRouter ProviderType = "openrouter"
)

// StoreType identifies a vector store backend.
type StoreType string

const (
	StoreDoris   StoreType = "doris"
	StoreQdrant  StoreType = "qdrant"
	StoreMemory  StoreType = "memory"
	StoreChromem StoreType = "chromem"
)

// Metric is the similarity function used by the vector store.
type Metric string

const (
	MetricInnerProduct Metric = "inner_product"
	MetricL2Distance   Metric = "l2_distance"
)

// AppConfig holds process-level settings.
type AppConfig struct {
	Language       string        `yaml:"language" koanf:"language"`
	ListenAddr     string        `yaml:"listen_addr" koanf:"listen_addr"`
	TopK           int           `yaml:"top_k" koanf:"top_k"`
	HistoryWindow  int           `yaml:"history_window" koanf:"history_window"`
	RequestTimeout time.Duration `yaml:"request_timeout" koanf:"request_timeout"`
	LogLevel       string        `yaml:"log_level" koanf:"log_level"`
	LogPretty      bool          `yaml:"log_pretty" koanf:"log_pretty"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Type              ProviderType `yaml:"type" koanf:"type"`
	Model             string       `yaml:"model" koanf:"model"`
	BaseURL           string       `yaml:"base_url" koanf:"base_url"`
	APIKey            string       `yaml:"api_key" koanf:"api_key"`
	EmbedDim          int          `yaml:"embed_dim" koanf:"embed_dim"`
	BatchSize         int          `yaml:"batch_size" koanf:"batch_size"`
	Concurrency       int          `yaml:"concurrency" koanf:"concurrency"`
	RequestsPerSecond float64      `yaml:"requests_per_second" koanf:"requests_per_second"`
	MaxRetries        int          `yaml:"max_retries" koanf:"max_retries"`
}

// LLMConfig selects and configures the generative model.
type LLMConfig struct {
	Type        ProviderType `yaml:"type" koanf:"type"`
	Model       string       `yaml:"model" koanf:"model"`
	BaseURL     string       `yaml:"base_url" koanf:"base_url"`
	APIKey      string       `yaml:"api_key" koanf:"api_key"`
	Temperature float64      `yaml:"temperature" koanf:"temperature"`
	MaxTokens   int          `yaml:"max_tokens" koanf:"max_tokens"`
}

// VectorStoreConfig selects the vector store backend.
type VectorStoreConfig struct {
	Type    StoreType     `yaml:"type" koanf:"type"`
	Qdrant  QdrantConfig  `yaml:"qdrant" koanf:"qdrant"`
	Chromem ChromemConfig `yaml:"chromem" koanf:"chromem"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL        string `yaml:"url" koanf:"url"`
	APIKey     string `yaml:"api_key" koanf:"api_key"`
	Collection string `yaml:"collection" koanf:"collection"`
}

// ChromemConfig points at the file backing the embedded chromem store.
type ChromemConfig struct {
	Path string `yaml:"path" koanf:"path"`
}

// DorisConfig contains connection details for Apache Doris.
type DorisConfig struct {
	Host      string `yaml:"host" koanf:"host"`
	QueryPort int    `yaml:"query_port" koanf:"query_port"`
	HTTPPort  int    `yaml:"http_port" koanf:"http_port"`
	DBName    string `yaml:"db_name" koanf:"db_name"`
	TableName string `yaml:"table_name" koanf:"table_name"`
	User      string `yaml:"user" koanf:"user"`
	Password  string `yaml:"password" koanf:"password"`
	Metric    Metric `yaml:"metric" koanf:"metric"`
}

// DocsConfig configures the ingestion corpus.
type DocsConfig struct {
	DocRoot      string   `yaml:"doc_root" koanf:"doc_root"`
	ChunkSize    int      `yaml:"chunk_size" koanf:"chunk_size"`
	ChunkOverlap int      `yaml:"chunk_overlap" koanf:"chunk_overlap"`
	Include      []string `yaml:"include" koanf:"include"`
	Exclude      []string `yaml:"exclude" koanf:"exclude"`
	Workers      int      `yaml:"workers" koanf:"workers"`
	ManifestPath string   `yaml:"manifest_path" koanf:"manifest_path"`
}

// Config is the root application configuration, built once at startup.
type Config struct {
	App         AppConfig         `yaml:"app" koanf:"app"`
	Embedding   EmbeddingConfig   `yaml:"embedding" koanf:"embedding"`
	LLM         LLMConfig         `yaml:"llm" koanf:"llm"`
	VectorStore VectorStoreConfig `yaml:"vector_store" koanf:"vector_store"`
	Doris       DorisConfig       `yaml:"doris" koanf:"doris"`
	Docs        DocsConfig        `yaml:"docs" koanf:"docs"`
}
