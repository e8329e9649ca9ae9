// Package rag wires retrieval, generation, and session state into the
// question answering system.
//
// System is the composition point the transports share: the HTTP API, the
// terminal chat, and the MCP server all answer questions through
// System.Query and load course folders through System.AddCourseFolder.
package rag

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lectern/lectern/internal/config"
	"github.com/lectern/lectern/internal/generation"
	"github.com/lectern/lectern/internal/ingest"
	"github.com/lectern/lectern/internal/session"
	"github.com/lectern/lectern/internal/tools"
)

var tracer = otel.Tracer("github.com/lectern/lectern/internal/rag")

// Store is the catalog surface the system needs. *store.Store satisfies it.
type Store interface {
	tools.Searcher
	tools.OutlineStore
	ingest.Store

	// CourseCount returns the number of courses in the catalog.
	CourseCount(ctx context.Context) (int, error)
}

// Analytics summarizes the course catalog.
type Analytics struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

// System answers questions about stored course materials.
type System struct {
	store    Store
	sessions *session.Store
	engine   *generation.Engine
	cfg      *config.Config
	logger   *slog.Logger
}

// New creates a System. All dependencies except the logger are required;
// a nil logger falls back to slog.Default().
func New(store Store, sessions *session.Store, engine *generation.Engine, cfg *config.Config, logger *slog.Logger) (*System, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("generation engine is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &System{store: store, sessions: sessions, engine: engine, cfg: cfg, logger: logger}, nil
}

// Query answers one question, letting the model search the catalog through
// its tools. Tool instances and their registry are built fresh per call, so
// collected sources never leak between concurrent queries. An empty
// sessionID answers statelessly: no history in, no exchange recorded.
func (s *System) Query(ctx context.Context, query, sessionID string) (string, []tools.Source, error) {
	ctx, span := tracer.Start(ctx, "rag.query",
		trace.WithAttributes(attribute.Int("rag.query_chars", len(query))))
	defer span.End()

	registry, err := tools.NewRegistry(
		tools.NewSearchTool(s.store),
		tools.NewOutlineTool(s.store),
	)
	if err != nil {
		return "", nil, fmt.Errorf("building tool registry: %w", err)
	}

	prompt := "Answer this question about course materials: " + query

	var history string
	if sessionID != "" {
		history = s.sessions.History(sessionID)
	}

	answer, err := s.engine.Generate(ctx, prompt, history, registry.Definitions(), registry)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return "", nil, fmt.Errorf("generating answer: %w", err)
	}

	sources := registry.AccumulatedSources()
	registry.ResetSources()

	if sessionID != "" {
		s.sessions.AddExchange(sessionID, query, answer)
	}

	span.SetAttributes(attribute.Int("rag.sources", len(sources)))
	s.logger.Debug("query answered",
		"session_id", sessionID,
		"sources", len(sources),
		"answer_chars", len(answer),
	)
	return answer, sources, nil
}

// AddCourseFolder loads every parseable course document under path into the
// catalog, skipping titles already present. With clearFirst the catalog is
// emptied before loading. Returns the number of courses and chunks added.
func (s *System) AddCourseFolder(ctx context.Context, path string, clearFirst bool) (int, int, error) {
	ctx, span := tracer.Start(ctx, "rag.add_course_folder",
		trace.WithAttributes(attribute.String("rag.docs_path", path)))
	defer span.End()

	chunker := ingest.Chunker{Size: s.cfg.ChunkSize, Overlap: s.cfg.ChunkOverlap}
	result, err := ingest.New(s.store, chunker, s.logger).Folder(ctx, path, clearFirst)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ingestion failed")
		return 0, 0, fmt.Errorf("loading course folder: %w", err)
	}

	span.SetAttributes(
		attribute.Int("rag.courses_added", result.CoursesAdded),
		attribute.Int("rag.chunks_added", result.ChunksAdded),
	)
	return result.CoursesAdded, result.ChunksAdded, nil
}

// Analytics reports what the catalog currently holds.
func (s *System) Analytics(ctx context.Context) (Analytics, error) {
	count, err := s.store.CourseCount(ctx)
	if err != nil {
		return Analytics{}, fmt.Errorf("counting courses: %w", err)
	}
	titles, err := s.store.CourseTitles(ctx)
	if err != nil {
		return Analytics{}, fmt.Errorf("listing courses: %w", err)
	}
	return Analytics{TotalCourses: count, CourseTitles: titles}, nil
}

// NewSession opens a conversation and returns its ID.
func (s *System) NewSession() string {
	return s.sessions.NewSession()
}

// ClearSession drops a conversation's history.
func (s *System) ClearSession(id string) {
	s.sessions.Clear(id)
}
