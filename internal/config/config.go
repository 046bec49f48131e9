package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AppInfo holds basic application metadata.
type AppInfo struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// LoggerConfig configures the shared logger.
type LoggerConfig struct {
	Level string `yaml:"level"` // "debug", "info", "warn", "error"
}

// OpenAIConfig holds credentials and model names for the OpenAI-compatible
// endpoint.
type OpenAIConfig struct {
	BaseURL string `yaml:"baseURL"`
	APIKey  string `yaml:"apiKey"`
	Model   string `yaml:"model"`
}

// OllamaConfig holds the local Ollama endpoint and model name.
type OllamaConfig struct {
	BaseURL string `yaml:"baseURL"`
	Model   string `yaml:"model"`
}

// LLMConfig selects and configures the chat model provider.
type LLMConfig struct {
	Provider string       `yaml:"provider"` // "openai" or "ollama"
	OpenAI   OpenAIConfig `yaml:"openai"`
	Ollama   OllamaConfig `yaml:"ollama"`
}

// EmbeddingConfig selects and configures the embedding model provider.
type EmbeddingConfig struct {
	Provider string       `yaml:"provider"` // "openai" or "ollama"
	OpenAI   OpenAIConfig `yaml:"openai"`
	Ollama   OllamaConfig `yaml:"ollama"`
}

// RagConfig tunes the chunking, indexing and retrieval pipeline.
type RagConfig struct {
	ChunkSize        int           `yaml:"chunkSize"`
	ChunkOverlap     int           `yaml:"chunkOverlap"`
	EmbedBatchSize   int           `yaml:"embedBatchSize"`
	RetrievalLimit   int           `yaml:"retrievalLimit"`
	MinSimilarity    float32       `yaml:"minSimilarity"`
	ReindexWorkers   int           `yaml:"reindexWorkers"`
	UsageHistorySize int           `yaml:"usageHistorySize"`
	RequestTimeout   time.Duration `yaml:"requestTimeout"`
}

// MilvusConfig configures the vector database connection. An empty address
// selects the in-memory vector store.
type MilvusConfig struct {
	Address    string `yaml:"address"`
	Collection string `yaml:"collection"`
	VectorDim  int    `yaml:"vectorDim"`
}

// MongoConfig configures the document catalog store. An empty address
// selects the in-memory document store.
type MongoConfig struct {
	Address             string `yaml:"address"`
	Username            string `yaml:"username"`
	Password            string `yaml:"password"`
	Database            string `yaml:"database"`
	DocumentsCollection string `yaml:"documentsCollection"`
	UsageCollection     string `yaml:"usageCollection"`
}

// RedisConfig configures the summary cache. An empty address disables the
// cache layer entirely.
type RedisConfig struct {
	Address    string        `yaml:"address"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	SummaryTTL time.Duration `yaml:"summaryTTL"`
}

// DatabaseConfigs groups all storage backends.
type DatabaseConfigs struct {
	Milvus  MilvusConfig `yaml:"milvus"`
	MongoDB MongoConfig  `yaml:"mongodb"`
	Redis   RedisConfig  `yaml:"redis"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// AppConfig is the root of the YAML configuration file.
type AppConfig struct {
	App       AppInfo         `yaml:"app"`
	Logger    LoggerConfig    `yaml:"logger"`
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Rag       RagConfig       `yaml:"rag"`
	Databases DatabaseConfigs `yaml:"databases"`
}

// Default returns a configuration with every knob at its documented default.
// With no credentials configured the service starts in a degraded mode that
// answers requests without embeddings instead of crashing.
func Default() *AppConfig {
	cfg := &AppConfig{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig reads and parses the YAML configuration file at path, then
// fills in defaults for anything left unset.
func LoadConfig(path string) (*AppConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(yamlFile, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "bookrag"
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.OpenAI.BaseURL == "" {
		c.LLM.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if c.LLM.OpenAI.Model == "" {
		c.LLM.OpenAI.Model = "gpt-4o-mini"
	}
	if c.LLM.Ollama.Model == "" {
		c.LLM.Ollama.Model = "llama3.1"
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.OpenAI.BaseURL == "" {
		c.Embedding.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if c.Embedding.OpenAI.Model == "" {
		c.Embedding.OpenAI.Model = "text-embedding-3-small"
	}
	if c.Embedding.Ollama.Model == "" {
		c.Embedding.Ollama.Model = "nomic-embed-text"
	}
	if c.Rag.ChunkSize == 0 {
		c.Rag.ChunkSize = 900
	}
	if c.Rag.ChunkOverlap == 0 {
		c.Rag.ChunkOverlap = 150
	}
	if c.Rag.EmbedBatchSize == 0 {
		c.Rag.EmbedBatchSize = 500
	}
	if c.Rag.RetrievalLimit == 0 {
		c.Rag.RetrievalLimit = 12
	}
	if c.Rag.MinSimilarity == 0 {
		c.Rag.MinSimilarity = 0.3
	}
	if c.Rag.ReindexWorkers == 0 {
		c.Rag.ReindexWorkers = 4
	}
	if c.Rag.UsageHistorySize == 0 {
		c.Rag.UsageHistorySize = 200
	}
	if c.Rag.RequestTimeout == 0 {
		c.Rag.RequestTimeout = 30 * time.Second
	}
	if c.Databases.Milvus.Collection == "" {
		c.Databases.Milvus.Collection = "book_chunks"
	}
	if c.Databases.Milvus.VectorDim == 0 {
		c.Databases.Milvus.VectorDim = 1536
	}
	if c.Databases.MongoDB.Database == "" {
		c.Databases.MongoDB.Database = "bookshop"
	}
	if c.Databases.MongoDB.DocumentsCollection == "" {
		c.Databases.MongoDB.DocumentsCollection = "books"
	}
	if c.Databases.MongoDB.UsageCollection == "" {
		c.Databases.MongoDB.UsageCollection = "ai_usage"
	}
	if c.Databases.Redis.SummaryTTL == 0 {
		c.Databases.Redis.SummaryTTL = 10 * time.Minute
	}
}
