package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AppInfo holds basic application metadata.
type AppInfo struct {
	Name        string `yaml:"name"`        // application name
	Version     string `yaml:"version"`     // application version
	Environment string `yaml:"environment"` // "development" or "production"
}

// LoggerConfig controls the log level.
type LoggerConfig struct {
	Level string `yaml:"level"` // "debug", "info", "warn", "error"
}

// ReportConfig locates the living baseline report.
type ReportConfig struct {
	Path string `yaml:"path"` // path to the baseline report Markdown file
}

// MetricsConfig locates the metric-definition source. The loader is chosen by
// extension: .xlsx is read as a workbook, anything else as a Markdown table.
type MetricsConfig struct {
	Path string `yaml:"path"`
}

// IngestConfig controls document ingestion.
type IngestConfig struct {
	InputDir string `yaml:"inputDir"` // directory scanned for new source documents
}

// PipelineConfig holds the tunables of a pipeline run.
type PipelineConfig struct {
	ChunkTokens   int `yaml:"chunkTokens"`   // token budget per chunk (default 500)
	ChunkOverlap  int `yaml:"chunkOverlap"`  // token overlap between consecutive chunks (default 50)
	RetrievalK    int `yaml:"retrievalK"`    // chunks retrieved per metric (default 5)
	Workers       int `yaml:"workers"`       // concurrent metric workers (default 4)
	RetryAttempts int `yaml:"retryAttempts"` // attempts per backend call (default 3)
	// BackendRPS caps requests per second to the embedding and generation
	// backends. Zero means unlimited.
	BackendRPS float64 `yaml:"backendRPS"`
}

// ServerConfig configures the review HTTP API.
type ServerConfig struct {
	Address string `yaml:"address"` // listen address, e.g. ":8080"
}

// OpenAIConfig configures the OpenAI-compatible backend.
type OpenAIConfig struct {
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseURL,omitempty"` // optional proxy endpoint
	Model   string `yaml:"model"`
}

// GeminiConfig configures the Google Gemini backend.
type GeminiConfig struct {
	APIKey string `yaml:"apiKey"`
	Model  string `yaml:"model"`
}

// OllamaConfig configures a local Ollama backend.
type OllamaConfig struct {
	Address string `yaml:"address"` // e.g. "http://localhost:11434"
	Model   string `yaml:"model"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider string       `yaml:"provider"` // "openai", "gemini" or "ollama"
	Cache    bool         `yaml:"cache"`    // cache embeddings in Redis
	OpenAI   OpenAIConfig `yaml:"openai"`
	Gemini   GeminiConfig `yaml:"gemini"`
	Ollama   OllamaConfig `yaml:"ollama"`
}

// LLMConfig selects and configures the generation provider.
type LLMConfig struct {
	Provider string       `yaml:"provider"` // "openai", "gemini" or "ollama"
	OpenAI   OpenAIConfig `yaml:"openai"`
	Gemini   GeminiConfig `yaml:"gemini"`
	Ollama   OllamaConfig `yaml:"ollama"`
}

// MilvusConfig configures the vector index backend.
type MilvusConfig struct {
	Address    string `yaml:"address"`    // Milvus service address
	Collection string `yaml:"collection"` // collection holding chunk vectors
	Dim        int    `yaml:"dim"`        // embedding dimension of the collection
}

// MongoConfig configures the proposed-update archive.
type MongoConfig struct {
	Address    string `yaml:"address"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// RedisConfig configures the embedding cache.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// KafkaConfig configures the run-event publisher.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"` // topic receiving run and merge events
}

// MinIOConfig configures the raw source-document archive.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Secure    bool   `yaml:"secure"`
}

// DatabaseConfigs groups the backing-store configurations.
type DatabaseConfigs struct {
	Milvus  MilvusConfig `yaml:"milvus"`
	MongoDB MongoConfig  `yaml:"mongodb"`
	Redis   RedisConfig  `yaml:"redis"`
	Kafka   KafkaConfig  `yaml:"kafka"`
	MinIO   MinIOConfig  `yaml:"minio"`
}

// AppConfig is the root of the YAML configuration file.
type AppConfig struct {
	App       AppInfo         `yaml:"app"`
	Logger    LoggerConfig    `yaml:"logger"`
	Report    ReportConfig    `yaml:"report"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Server    ServerConfig    `yaml:"server"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Databases DatabaseConfigs `yaml:"databases"`
}

// LoadConfig loads and parses the YAML configuration file at path, then fills
// in defaults for any pipeline tunable left unset.
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
	if c.Pipeline.ChunkTokens <= 0 {
		c.Pipeline.ChunkTokens = 500
	}
	if c.Pipeline.ChunkOverlap <= 0 {
		c.Pipeline.ChunkOverlap = 50
	}
	if c.Pipeline.RetrievalK <= 0 {
		c.Pipeline.RetrievalK = 5
	}
	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = 4
	}
	if c.Pipeline.RetryAttempts <= 0 {
		c.Pipeline.RetryAttempts = 3
	}
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
}
