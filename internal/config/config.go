package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port        int               `json:"port"`
	JWTSecret   string            `json:"jwt_secret"`
	JWTTTLHours int               `json:"jwt_ttl_hours"`
	LogConfig   logger.LogConfig  `json:"log_config"`
	Database    DatabaseConfig    `json:"database"`
	AI          AIConfig          `json:"ai"`
	VectorStore VectorStoreConfig `json:"vector_store"`
	FileStore   FileStoreConfig   `json:"file_store"`
	RAG         RAGConfig         `json:"rag"`
	CORSOrigins []string          `json:"cors_origins"`
	Reindex     ReindexConfig     `json:"reindex"`

	// Floor between two auth attempts from the same client, seconds. 0 disables.
	AuthRateLimitSeconds int `json:"auth_rate_limit_seconds"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type ProviderConfig struct {
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Data     interface{} `json:"data"`
}

type AIConfig struct {
	// Tried in order until one succeeds.
	Generators []ProviderConfig `json:"generators"`
	Embedders  []ProviderConfig `json:"embedders"`
	// Timeout bounds a single generation call, seconds.
	Timeout              int `json:"timeout"`
	MaxInputChars        int `json:"max_input_chars"`
	EmbedCacheSize       int `json:"embed_cache_size"`
	EmbedCacheTTLMinutes int `json:"embed_cache_ttl_minutes"`
}

type VectorStoreConfig struct {
	Type       string      `json:"type"`
	Collection string      `json:"collection"`
	Data       interface{} `json:"data"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type RAGConfig struct {
	Chunker         string `json:"chunker"`
	ChunkSize       int    `json:"chunk_size"`
	ChunkOverlap    int    `json:"chunk_overlap"`
	TopK            int    `json:"top_k"`
	MaxContextChars int    `json:"max_context_chars"`
}

type ReindexConfig struct {
	Cron         string `json:"cron"`
	DelaySeconds int64  `json:"delay_seconds"`
	Batch        int    `json:"batch"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required")
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 60
	}
	if cfg.AI.MaxInputChars == 0 {
		cfg.AI.MaxInputChars = 8192
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "pgvector"
	}
	if cfg.VectorStore.Collection == "" {
		cfg.VectorStore.Collection = "documents"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.RAG.Chunker == "" {
		cfg.RAG.Chunker = "plain"
	}
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = 1000
	}
	if cfg.RAG.ChunkOverlap == 0 {
		cfg.RAG.ChunkOverlap = 200
	}
	if cfg.RAG.ChunkOverlap >= cfg.RAG.ChunkSize {
		return nil, fmt.Errorf("rag.chunk_overlap must be smaller than rag.chunk_size")
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = 4
	}
	if cfg.Reindex.Cron == "" {
		cfg.Reindex.Cron = "*/5 * * * *"
	}
	if cfg.Reindex.DelaySeconds == 0 {
		cfg.Reindex.DelaySeconds = 120
	}
	if cfg.Reindex.Batch == 0 {
		cfg.Reindex.Batch = 16
	}
	return &cfg, nil
}
