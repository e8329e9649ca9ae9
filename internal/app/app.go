// Package app assembles configuration into running Lectern components.
//
// Setup builds the full stack (store, sessions, generation engine, RAG
// system) in dependency order and App.Close tears it down in reverse.
// Commands that never call the generation model use SetupStore, which
// stops after the vector store and so does not demand an Anthropic key.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lectern/lectern/db"
	"github.com/lectern/lectern/internal/config"
	"github.com/lectern/lectern/internal/generation"
	"github.com/lectern/lectern/internal/log"
	"github.com/lectern/lectern/internal/observability"
	"github.com/lectern/lectern/internal/rag"
	"github.com/lectern/lectern/internal/session"
	"github.com/lectern/lectern/internal/store"
)

// Pool tuning. Small and steady: the workload is a handful of concurrent
// queries, not a connection-hungry web tier.
const (
	poolMaxConns        = 10
	poolMinConns        = 2
	poolMaxConnLifetime = 30 * time.Minute
	poolMaxConnIdleTime = 5 * time.Minute
	poolHealthCheck     = 1 * time.Minute
	poolPingTimeout     = 5 * time.Second
)

// closeTimeout bounds teardown work such as flushing trace batches.
const closeTimeout = 5 * time.Second

// App is the application container. Fields below Sessions are nil when
// the App came from SetupStore.
type App struct {
	Config   *config.Config
	Logger   log.Logger
	Pool     *pgxpool.Pool
	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	Store    *store.Store

	Sessions *session.Store
	Engine   *generation.Engine
	System   *rag.System

	tracingShutdown func(context.Context) error
}

// SetupStore initializes configuration, tracing, the database pool and the
// vector store. Ingest and MCP commands stop here.
func SetupStore(ctx context.Context, cfg *config.Config) (_ *App, retErr error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	logger := log.New(log.Config{
		Level: log.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})
	a := &App{Config: cfg, Logger: logger}

	// Tear down whatever was already initialized when a later step fails.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	shutdown, err := observability.Setup(ctx, cfg.Tracing, logger)
	if err != nil {
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}
	a.tracingShutdown = shutdown

	pool, err := providePool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	g, embedder, err := provideEmbedder(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g
	a.Embedder = embedder

	st, err := store.NewStore(pool, embedder, cfg.MaxResults, logger.With("component", "store"))
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}
	a.Store = st

	return a, nil
}

// Setup initializes the full stack including the generation engine and the
// RAG system. Requires AnthropicAPIKey.
func Setup(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg != nil && cfg.AnthropicAPIKey == "" {
		// Checked before any expensive init so a missing key fails fast.
		return nil, errors.New("anthropic_api_key is required for generation commands (set ANTHROPIC_API_KEY)")
	}

	a, err := SetupStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	messenger, err := generation.NewClient(cfg.AnthropicAPIKey, a.Logger.With("component", "model"))
	if err != nil {
		closeQuietly(a)
		return nil, fmt.Errorf("creating model client: %w", err)
	}

	engine, err := generation.NewEngine(messenger, cfg.AnthropicModel, a.Logger.With("component", "generation"))
	if err != nil {
		closeQuietly(a)
		return nil, fmt.Errorf("creating generation engine: %w", err)
	}
	a.Engine = engine

	a.Sessions = session.NewStore(cfg.MaxHistory)

	system, err := rag.New(a.Store, a.Sessions, engine, cfg, a.Logger.With("component", "rag"))
	if err != nil {
		closeQuietly(a)
		return nil, fmt.Errorf("creating rag system: %w", err)
	}
	a.System = system

	a.Logger.Debug("application ready",
		"model", cfg.AnthropicModel,
		"embedding_provider", cfg.EmbeddingProvider,
	)
	return a, nil
}

// Close releases resources in reverse initialization order.
func (a *App) Close() error {
	if a == nil {
		return nil
	}

	if a.Pool != nil {
		a.Pool.Close()
		a.Pool = nil
	}

	if a.tracingShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := a.tracingShutdown(ctx); err != nil {
			return fmt.Errorf("shutting down tracing: %w", err)
		}
		a.tracingShutdown = nil
	}

	return nil
}

func closeQuietly(a *App) {
	if err := a.Close(); err != nil && a.Logger != nil {
		a.Logger.Warn("cleanup during setup failure", "error", err)
	}
}

// providePool runs migrations and opens the pgx connection pool.
func providePool(ctx context.Context, cfg *config.Config, logger log.Logger) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = poolMaxConns
	poolCfg.MinConns = poolMinConns
	poolCfg.MaxConnLifetime = poolMaxConnLifetime
	poolCfg.MaxConnIdleTime = poolMaxConnIdleTime
	poolCfg.HealthCheckPeriod = poolHealthCheck

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, poolPingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Debug("database pool ready",
		"host", cfg.PostgresHost,
		"database", cfg.PostgresDBName,
	)
	return pool, nil
}

// provideEmbedder initializes Genkit with the configured embedding plugin
// and looks up the embedder. Genkit is used for embeddings only; answer
// generation goes through the Anthropic client.
func provideEmbedder(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, ai.Embedder, error) {
	var g *genkit.Genkit
	var embedder ai.Embedder

	switch cfg.EmbeddingProvider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, nil, errors.New("initializing genkit with ollama plugin")
		}
		// Ollama requires explicit registration (no auto-discovery)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		embedder = ollama.Embedder(g, cfg.OllamaHost)

	default: // gemini; Validate() already rejected anything else
		// The plugin reads GEMINI_API_KEY from the environment.
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, nil, errors.New("initializing genkit with googleai plugin")
		}
		embedder = googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	}

	if embedder == nil {
		return nil, nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.EmbeddingProvider)
	}

	logger.Debug("embedder ready",
		"provider", cfg.EmbeddingProvider,
		"model", cfg.EmbedderModel,
	)
	return g, embedder, nil
}
