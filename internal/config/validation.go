package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
//
// API keys are deliberately NOT validated here: which keys are required
// depends on the command being run (ingest needs the embedder key, query
// needs both), so presence checks live where the clients are constructed.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// 1. Generation model
	if c.AnthropicModel == "" {
		return fmt.Errorf("%w: anthropic_model cannot be empty", ErrInvalidModel)
	}

	// 2. Embedding configuration
	switch c.EmbeddingProvider {
	case ProviderGemini, ProviderOllama:
	default:
		return fmt.Errorf("%w: %q is not supported, must be one of: %v",
			ErrInvalidProvider, c.EmbeddingProvider, []string{ProviderGemini, ProviderOllama})
	}

	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}

	if c.EmbeddingProvider == ProviderOllama {
		if c.OllamaHost == "" || !strings.HasPrefix(c.OllamaHost, "http") {
			return fmt.Errorf("%w: ollama_host must be an http(s) URL, got %q",
				ErrInvalidOllamaHost, c.OllamaHost)
		}
	}

	// 3. Ingestion configuration
	if c.ChunkSize < 100 || c.ChunkSize > 10000 {
		return fmt.Errorf("%w: must be between 100 and 10,000 characters, got %d",
			ErrInvalidChunkSize, c.ChunkSize)
	}

	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: must be non-negative and smaller than chunk_size (%d), got %d",
			ErrInvalidChunkOverlap, c.ChunkSize, c.ChunkOverlap)
	}

	// 4. Retrieval configuration
	// A zero limit is not a "disable retrieval" switch: the search tools would
	// report no matching content for every query, which reads as data loss.
	if c.MaxResults < 1 || c.MaxResults > 100 {
		return fmt.Errorf("%w: must be between 1 and 100, got %d",
			ErrInvalidMaxResults, c.MaxResults)
	}

	if c.MaxHistory < 0 {
		return fmt.Errorf("%w: must be non-negative, got %d", ErrInvalidMaxHistory, c.MaxHistory)
	}

	// 5. PostgreSQL configuration
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}

	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d",
			ErrInvalidPostgresPort, c.PostgresPort)
	}

	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}

	if c.PostgresPassword == "lectern_dev_password" {
		slog.Warn("Using default development password for PostgreSQL",
			"warning", "Change postgres_password in config.yaml for production deployments")
	}

	// Modern SSL modes only; allow/prefer are deprecated (MITM vulnerable).
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}

	// 6. Server configuration
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d",
			ErrInvalidServerPort, c.ServerPort)
	}

	return nil
}
