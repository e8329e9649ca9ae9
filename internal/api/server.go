package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lectern/lectern/internal/rag"
	"github.com/lectern/lectern/internal/tools"
)

// Server timeout configuration. Writes wait on model calls, which routinely
// take tens of seconds.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 2 * time.Minute
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 10 * time.Second
)

// QueryService is the part of the question answering system the API
// exposes. *rag.System satisfies it.
type QueryService interface {
	Query(ctx context.Context, query, sessionID string) (string, []tools.Source, error)
	Analytics(ctx context.Context) (rag.Analytics, error)
	NewSession() string
	ClearSession(id string)
}

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Service        QueryService // Required
	Logger         *slog.Logger
	RateLimitRPS   float64 // Tokens refilled per second per IP (0 = default 1.0)
	RateLimitBurst int     // Bucket capacity per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
}

// NewServer creates an API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Service == nil {
		return nil, errors.New("query service is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	qh := &queryHandler{service: cfg.Service, logger: logger}
	ch := &coursesHandler{service: cfg.Service, logger: logger}
	sh := &sessionHandler{service: cfg.Service, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/query", qh.answer)
	mux.HandleFunc("GET /api/courses", ch.list)
	mux.HandleFunc("POST /api/session/new", sh.rotate)

	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 1.0
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(rps, burst)

	// Middleware stack, outermost first:
	//   Recovery → Logging → CORS → RateLimit → Routes
	// CORS sits before the limiter so preflight OPTIONS never burns tokens.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, logger)(handler)
	handler = corsMiddleware()(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)

	// The health probe stays outside the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /api/health", healthHandler(logger))
	topMux.Handle("/", handler)

	return &Server{mux: topMux, logger: logger}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves on addr until ctx is canceled, then shuts down gracefully,
// letting in-flight queries finish within shutdownTimeout.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info("HTTP server ready", "addr", addr, "api", "/api/*")

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server: %w", err)
	}
}
