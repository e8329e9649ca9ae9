// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.lectern/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Generation: Anthropic model for answer generation
//   - Embeddings: provider + model used to vectorize course content
//   - Ingestion: chunk size/overlap and the course documents directory
//   - Retrieval: result limit and history depth
//   - Storage: PostgreSQL connection (see storage.go)
//   - Server: HTTP bind address and rate limits
//   - Tracing: OTLP trace export (see tracing.go)
//
// Error handling uses sentinel errors so callers can branch with errors.Is().
// Sensitive fields (passwords, API keys) are masked in MarshalJSON/String.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModel indicates the generation model name is invalid.
	ErrInvalidModel = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidProvider indicates the embedding provider is not supported.
	ErrInvalidProvider = errors.New("invalid embedding provider")

	// ErrInvalidOllamaHost indicates the Ollama host is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")

	// ErrInvalidChunkSize indicates the ingestion chunk size is out of range.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidChunkOverlap indicates the chunk overlap is out of range.
	ErrInvalidChunkOverlap = errors.New("invalid chunk overlap")

	// ErrInvalidMaxResults indicates the search result limit is out of range.
	// A non-positive limit would make every retrieval come back empty, which
	// looks like missing course data rather than a config mistake, so it is
	// rejected at startup instead of being clamped or passed through.
	ErrInvalidMaxResults = errors.New("invalid max results")

	// ErrInvalidMaxHistory indicates the conversation history depth is negative.
	ErrInvalidMaxHistory = errors.New("invalid max history")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidServerPort indicates the HTTP server port is out of range.
	ErrInvalidServerPort = errors.New("invalid server port")
)

// Embedding provider identifiers used in Config.EmbeddingProvider.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

const (
	// DefaultAnthropicModel generates answers. Pinned rather than "latest"
	// so retrieval behavior stays reproducible across deployments.
	DefaultAnthropicModel = "claude-sonnet-4-20250514"

	// DefaultGeminiEmbedderModel is the default Gemini embedder.
	// gemini-embedding-001 outputs 3072 dimensions by default but supports
	// truncation to 768 via OutputDimensionality; the pgvector schema uses
	// 768 (see store.VectorDimension).
	DefaultGeminiEmbedderModel = "gemini-embedding-001"
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields, update MarshalJSON.
type Config struct {
	// Generation model configuration
	AnthropicAPIKey string `mapstructure:"anthropic_api_key" json:"anthropic_api_key"` // SENSITIVE: masked in MarshalJSON
	AnthropicModel  string `mapstructure:"anthropic_model" json:"anthropic_model"`

	// Embedding configuration
	EmbeddingProvider string `mapstructure:"embedding_provider" json:"embedding_provider"` // "gemini" (default), "ollama"
	EmbedderModel     string `mapstructure:"embedder_model" json:"embedder_model"`
	OllamaHost        string `mapstructure:"ollama_host" json:"ollama_host"`

	// Ingestion configuration
	ChunkSize    int    `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap" json:"chunk_overlap"`
	DocsDir      string `mapstructure:"docs_dir" json:"docs_dir"`

	// Retrieval and conversation configuration
	MaxResults int `mapstructure:"max_results" json:"max_results"`
	MaxHistory int `mapstructure:"max_history" json:"max_history"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// HTTP server configuration
	ServerHost     string  `mapstructure:"server_host" json:"server_host"`
	ServerPort     int     `mapstructure:"server_port" json:"server_port"`
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps" json:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst" json:"rate_limit_burst"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`

	// Tracing configuration (see tracing.go)
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	// Configuration directory: ~/.lectern/
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".lectern")

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL, when set, overrides the individual postgres_* values.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// Generation defaults
	viper.SetDefault("anthropic_model", DefaultAnthropicModel)

	// Embedding defaults
	viper.SetDefault("embedding_provider", ProviderGemini)
	viper.SetDefault("embedder_model", DefaultGeminiEmbedderModel)
	viper.SetDefault("ollama_host", "http://localhost:11434")

	// Ingestion defaults
	viper.SetDefault("chunk_size", 800)
	viper.SetDefault("chunk_overlap", 100)
	viper.SetDefault("docs_dir", "docs")

	// Retrieval defaults
	viper.SetDefault("max_results", 5)
	viper.SetDefault("max_history", 2)

	// PostgreSQL defaults for a local development database
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "lectern")
	viper.SetDefault("postgres_password", "lectern_dev_password")
	viper.SetDefault("postgres_db_name", "lectern")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Server defaults
	viper.SetDefault("server_host", "0.0.0.0")
	viper.SetDefault("server_port", 8000)
	viper.SetDefault("rate_limit_rps", 5.0)
	viper.SetDefault("rate_limit_burst", 10)

	// Logging defaults
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_json", false)

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.endpoint", "localhost:4318")
	viper.SetDefault("tracing.service_name", "lectern")
	viper.SetDefault("tracing.environment", "dev")
}

// bindEnvVariables binds environment variables explicitly.
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail).
	// If this panics, it's a BUG in our code, not a runtime error.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	// Anthropic API key is env-only; it never belongs in config.yaml.
	mustBind("anthropic_api_key", "ANTHROPIC_API_KEY")

	// Runtime overrides
	mustBind("anthropic_model", "LECTERN_ANTHROPIC_MODEL")
	mustBind("embedding_provider", "LECTERN_EMBEDDING_PROVIDER")
	mustBind("embedder_model", "LECTERN_EMBEDDER_MODEL")
	mustBind("ollama_host", "LECTERN_OLLAMA_HOST")
	mustBind("docs_dir", "LECTERN_DOCS_DIR")
	mustBind("server_host", "LECTERN_SERVER_HOST")
	mustBind("server_port", "LECTERN_SERVER_PORT")
	mustBind("log_level", "LECTERN_LOG_LEVEL")
	mustBind("tracing.enabled", "LECTERN_TRACING_ENABLED")
	mustBind("tracing.endpoint", "LECTERN_TRACING_ENDPOINT")

	// NOTE: GEMINI_API_KEY is read directly by Genkit, not via Viper.
	// Its presence is checked when the embedder is constructed, so commands
	// that never touch embeddings (version, mcp without search) still run.
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks (U+2588) avoid accidental substring matches against
// real secret characters.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging. Secrets of eight bytes
// or fewer are fully masked; longer ones keep the first and last two
// characters for debug utility.
//
// THREAT MODEL: this defends against accidental logging of real secrets.
// It is not cryptographically secure; if logs are compromised, rotate.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	prefix := make([]byte, 2)
	suffix := make([]byte, 2)
	copy(prefix, s[:2])
	copy(suffix, s[len(s)-2:])
	return string(prefix) + "<" + maskedValue + ">" + string(suffix)
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - AnthropicAPIKey
//   - PostgresPassword
//
// When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.AnthropicAPIKey = maskSecret(a.AnthropicAPIKey)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
