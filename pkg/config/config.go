package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config holds all configuration for the predicate mapping service.
type Config struct {
	Log            LogConfig            `mapstructure:"log"`
	Server         ServerConfig         `mapstructure:"server"`
	LLM            LLMConfig            `mapstructure:"llm"`
	Embedding      EmbeddingConfig      `mapstructure:"embedding"`
	Store          StoreConfig          `mapstructure:"store"`
	Rerank         RerankConfig         `mapstructure:"rerank"`
	VectorDB       VectorDBConfig       `mapstructure:"vectordb"`
	Telemetry      TelemetryConfig      `mapstructure:"telemetry"`
	Alert          AlertConfig          `mapstructure:"alert"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// LLMConfig holds chat model configuration.
type LLMConfig struct {
	Provider       string  `mapstructure:"provider"` // openai or openai-compatible
	Model          string  `mapstructure:"model"`
	APIKey         string  `mapstructure:"api_key"`
	BaseURL        string  `mapstructure:"base_url"`
	Temperature    float32 `mapstructure:"temperature"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	MaxRetries     int     `mapstructure:"max_retries"`
}

// EmbeddingConfig holds embedding model configuration.
type EmbeddingConfig struct {
	Provider       string `mapstructure:"provider"` // openai, local
	Model          string `mapstructure:"model"`
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	CacheSize      int    `mapstructure:"cache_size"`
	CachePath      string `mapstructure:"cache_path"` // badger dir; empty disables persistence
}

// StoreConfig holds predicate corpus and ontology file configuration.
type StoreConfig struct {
	CorpusFile             string `mapstructure:"corpus_file"`
	DescriptionFile        string `mapstructure:"description_file"`
	QualifiedPredicateFile string `mapstructure:"qualified_predicate_file"`
	InverseFile            string `mapstructure:"inverse_file"`
	// RefreshIntervalSeconds schedules background corpus reloads; 0 disables.
	RefreshIntervalSeconds int `mapstructure:"refresh_interval_seconds"`
}

// RerankConfig bounds the retrieval and reranking stages.
type RerankConfig struct {
	NumResults  int `mapstructure:"num_results"`
	Concurrency int `mapstructure:"concurrency"`
}

// VectorDBConfig holds external vector index configuration.
type VectorDBConfig struct {
	Driver   string `mapstructure:"driver"` // ladybug, neo4j
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// TelemetryConfig holds error-record telemetry configuration.
type TelemetryConfig struct {
	ParquetPath string `mapstructure:"parquet_path"`
}

// AlertConfig holds configuration for alerting.
type AlertConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	SMTPHost string   `mapstructure:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// CircuitBreakerConfig holds configuration for circuit breaking around the
// chat endpoint.
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	overrideWithEnv(config)

	return config, nil
}

func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")

	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.temperature", 0.5)
	viper.SetDefault("llm.max_tokens", 512)
	viper.SetDefault("llm.timeout_seconds", 30)
	viper.SetDefault("llm.max_retries", 2)

	viper.SetDefault("embedding.provider", "openai")
	viper.SetDefault("embedding.model", "nomic-embed-text")
	viper.SetDefault("embedding.timeout_seconds", 30)
	viper.SetDefault("embedding.cache_size", 2048)

	viper.SetDefault("store.corpus_file", "data/all_biolink_mapped_vectors.json")
	viper.SetDefault("store.description_file", "data/short_description.json")
	viper.SetDefault("store.qualified_predicate_file", "data/qualified_predicate_mapping.json")
	viper.SetDefault("store.inverse_file", "data/inverse_predicates.json")
	viper.SetDefault("store.refresh_interval_seconds", 0)

	viper.SetDefault("rerank.num_results", 10)
	viper.SetDefault("rerank.concurrency", 10)

	viper.SetDefault("vectordb.driver", "ladybug")
	viper.SetDefault("vectordb.uri", ":memory:")

	viper.SetDefault("circuit_breaker.enabled", false)
	viper.SetDefault("circuit_breaker.max_requests", 1)
	viper.SetDefault("circuit_breaker.interval", 60)
	viper.SetDefault("circuit_breaker.timeout", 60)
	viper.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)
}

func overrideWithEnv(config *Config) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		if config.LLM.APIKey == "" {
			config.LLM.APIKey = apiKey
		}
		if config.Embedding.APIKey == "" {
			config.Embedding.APIKey = apiKey
		}
	}
	if url := os.Getenv("LLM_API_URL"); url != "" {
		config.LLM.BaseURL = url
	}
	if model := os.Getenv("CHAT_MODEL"); model != "" {
		config.LLM.Model = model
	}
	if url := os.Getenv("EMBEDDING_URL"); url != "" {
		config.Embedding.BaseURL = url
	}
	if model := os.Getenv("EMBEDDING_MODEL"); model != "" {
		config.Embedding.Model = model
	}

	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		viper.Set("server.port", port)
	}

	if uri := os.Getenv("VECTORDB_URI"); uri != "" {
		config.VectorDB.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		config.VectorDB.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		config.VectorDB.Password = pass
	}

	if path := os.Getenv("TELEMETRY_PARQUET_PATH"); path != "" {
		config.Telemetry.ParquetPath = path
	}
}
