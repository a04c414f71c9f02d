package model

import "time"

// Config is the complete runtime configuration
type Config struct {
	LogLevel  string          `yaml:"log_level" mapstructure:"log_level"`
	Database  DatabaseConfig  `yaml:"database" mapstructure:"database"`
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Training  TrainingConfig  `yaml:"training" mapstructure:"training"`
	Clues     CluesConfig     `yaml:"clues" mapstructure:"clues"`
	Curation  CurationConfig  `yaml:"curation" mapstructure:"curation"`
	Metrics   MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`
}

// DatabaseConfig locates the SQLite database
type DatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// EmbeddingConfig configures the embedding provider and batching
type EmbeddingConfig struct {
	Provider          string        `yaml:"provider" mapstructure:"provider"` // openai, ollama
	Model             string        `yaml:"model" mapstructure:"model"`
	APIKey            string        `yaml:"-" mapstructure:"api_key"` // From OPENAI_API_KEY, never written to disk
	BaseURL           string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Dimensions        int           `yaml:"dimensions" mapstructure:"dimensions"`
	PromptTemplate    string        `yaml:"prompt_template" mapstructure:"prompt_template"`
	BatchSize         int           `yaml:"batch_size" mapstructure:"batch_size"`
	Concurrency       int           `yaml:"concurrency" mapstructure:"concurrency"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries        int           `yaml:"max_retries" mapstructure:"max_retries"`
}

// CacheConfig configures the in-process and on-disk caches
type CacheConfig struct {
	Enabled       bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL     time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`         // 0 keeps vectors for the process lifetime
	MemoryEntries int           `yaml:"memory_entries" mapstructure:"memory_entries"` // Vectors held in memory, 0 = no cap
	Dir           string        `yaml:"dir" mapstructure:"dir"`                       // Clue page cache
	DiskTTL       time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// TrainingConfig configures classifier fitting
type TrainingConfig struct {
	TestRatio float64 `yaml:"test_ratio" mapstructure:"test_ratio"`
	Seed      int64   `yaml:"seed" mapstructure:"seed"`
	Lambda    float64 `yaml:"lambda" mapstructure:"lambda"`
	Epochs    int     `yaml:"epochs" mapstructure:"epochs"`
}

// CluesConfig configures clue retrieval
type CluesConfig struct {
	Source            string        `yaml:"source" mapstructure:"source"` // crosswordtracker, none
	BaseURL           string        `yaml:"base_url" mapstructure:"base_url"`
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxClues          int           `yaml:"max_clues" mapstructure:"max_clues"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	RespectRobots     bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy         string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// CurationConfig holds the default distillation bounds
type CurationConfig struct {
	TargetSize int    `yaml:"target_size" mapstructure:"target_size"` // 0 = unbounded
	Threshold  int    `yaml:"threshold" mapstructure:"threshold"`     // -1 = disabled
	Exact      bool   `yaml:"exact" mapstructure:"exact"`
	Format     string `yaml:"format" mapstructure:"format"` // txt, json, yaml
}

// MetricsConfig configures Prometheus textfile export
type MetricsConfig struct {
	File           string    `yaml:"file,omitempty" mapstructure:"file"`
	Namespace      string    `yaml:"namespace" mapstructure:"namespace"`
	Enabled        bool      `yaml:"enabled" mapstructure:"enabled"`
	LatencyBuckets []float64 `yaml:"latency_buckets,omitempty" mapstructure:"latency_buckets"` // Embedding request seconds
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Database: DatabaseConfig{
			Path: "wordlist.db",
		},
		Embedding: EmbeddingConfig{
			Provider:          "openai",
			Model:             "text-embedding-3-small",
			Dimensions:        1536,
			PromptTemplate:    "ANSWER: %s",
			BatchSize:         1500,
			Concurrency:       4,
			RequestsPerSecond: 2,
			Burst:             2,
			Timeout:           60 * time.Second,
			MaxRetries:        3,
		},
		Cache: CacheConfig{
			Enabled:       true,
			MemoryTTL:     30 * time.Minute,
			MemoryEntries: 20000,
			Dir:           ".wordlist-cache",
			DiskTTL:       30 * 24 * time.Hour,
		},
		Training: TrainingConfig{
			TestRatio: 0.2,
			Seed:      42,
			Lambda:    1e-4,
			Epochs:    20,
		},
		Clues: CluesConfig{
			Source:            "none",
			BaseURL:           "https://crosswordtracker.com",
			UserAgent:         "Mozilla/5.0 (compatible; WordlistCurator/0.1)",
			MaxClues:          6,
			Timeout:           10 * time.Second,
			RequestsPerSecond: 5,
			Burst:             1,
			RespectRobots:     true,
		},
		Curation: CurationConfig{
			TargetSize: 0,
			Threshold:  -1,
			Format:     "txt",
		},
		Metrics: MetricsConfig{
			Namespace: "wordlist",
			Enabled:   true,
		},
	}
}
