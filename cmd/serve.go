package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/lectern/lectern/internal/api"
	"github.com/lectern/lectern/internal/app"
	"github.com/lectern/lectern/internal/config"
)

// runServe starts the HTTP API server. Before listening it loads the
// course folder so a fresh deployment answers from day one; a missing
// folder is logged and skipped, matching the behavior of ingest-later
// setups.
func runServe(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	defaultAddr := net.JoinHostPort(cfg.ServerHost, strconv.Itoa(cfg.ServerPort))
	addr, docsDir, err := parseServeFlags(args, defaultAddr, cfg.DocsDir)
	if err != nil {
		return fmt.Errorf("parsing serve flags: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			a.Logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	a.Logger.Info("starting HTTP API server", "version", AppVersion, "addr", addr)

	ingestStartupDocs(ctx, a, docsDir)

	apiServer, err := api.NewServer(api.ServerConfig{
		Service:        a.System,
		Logger:         a.Logger.With("component", "api"),
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	return apiServer.Run(ctx, addr)
}

// ingestStartupDocs loads docsDir into the store, skipping already-known
// courses. Failures are logged, not fatal: the server can still answer
// from previously ingested content.
func ingestStartupDocs(ctx context.Context, a *app.App, docsDir string) {
	if docsDir == "" {
		return
	}
	if _, err := os.Stat(docsDir); err != nil {
		a.Logger.Warn("course folder not found, skipping startup ingest", "path", docsDir)
		return
	}

	courses, chunks, err := a.System.AddCourseFolder(ctx, docsDir, false)
	if err != nil {
		a.Logger.Error("startup ingest failed", "path", docsDir, "error", err)
		return
	}
	a.Logger.Info("course folder loaded", "path", docsDir, "courses_added", courses, "chunks_added", chunks)
}
