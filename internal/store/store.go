// Package store persists course metadata and content chunks in
// PostgreSQL + pgvector and answers semantic queries over them.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"google.golang.org/genai"
)

// VectorDimension is the embedding width of the courses and chunks tables.
// Gemini embedding models emit larger vectors by default; requests ask for
// this dimensionality explicitly so the schema and the model stay in step.
const VectorDimension int32 = 768

// EmbedTimeout bounds a single embedding request.
const EmbedTimeout = 30 * time.Second

// embedBatchSize caps how many texts go into one embedding request.
const embedBatchSize = 100

// Store manages the course catalog and chunk index.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool       *pgxpool.Pool
	embedder   ai.Embedder
	maxResults int
	logger     *slog.Logger
}

// NewStore creates a Store. maxResults is the fixed result limit for Search;
// it must be positive (config validation rejects anything else before the
// store is built, this is the backstop).
func NewStore(pool *pgxpool.Pool, embedder ai.Embedder, maxResults int, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if maxResults <= 0 {
		return nil, fmt.Errorf("maxResults must be positive, got %d", maxResults)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, embedder: embedder, maxResults: maxResults, logger: logger}, nil
}

// embed generates a vector embedding for one text.
func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	vecs, err := s.embedBatch(ctx, []string{text})
	if err != nil {
		return pgvector.Vector{}, err
	}
	return vecs[0], nil
}

// embedBatch generates embeddings for the given texts, splitting into
// requests of at most embedBatchSize inputs.
func (s *Store) embedBatch(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	dim := VectorDimension
	vecs := make([]pgvector.Vector, 0, len(texts))

	for start := 0; start < len(texts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(texts))

		docs := make([]*ai.Document, 0, end-start)
		for _, t := range texts[start:end] {
			docs = append(docs, ai.DocumentFromText(t, nil))
		}

		embedCtx, cancel := context.WithTimeout(ctx, EmbedTimeout)
		resp, err := s.embedder.Embed(embedCtx, &ai.EmbedRequest{
			Input:   docs,
			Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
		})
		cancel()
		if err != nil {
			return nil, fmt.Errorf("embedding texts: %w", err)
		}
		if len(resp.Embeddings) != len(docs) {
			return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(resp.Embeddings), len(docs))
		}
		for _, e := range resp.Embeddings {
			if len(e.Embedding) == 0 {
				return nil, fmt.Errorf("empty embedding response")
			}
			vecs = append(vecs, pgvector.NewVector(e.Embedding))
		}
	}

	return vecs, nil
}

// Search finds chunks similar to the query. courseName, when non-empty, is
// fuzzy-resolved against the catalog first and search is restricted to the
// matched course; lessonNumber, when non-nil, restricts to one lesson.
//
// Faults travel in SearchResults.Error, not a Go error (see SearchResults).
func (s *Store) Search(ctx context.Context, query, courseName string, lessonNumber *int) SearchResults {
	resolvedTitle := ""
	if courseName != "" {
		title, err := s.ResolveCourseName(ctx, courseName)
		switch {
		case errors.Is(err, ErrNotFound):
			return errorResults(fmt.Sprintf("No course found matching '%s'", courseName))
		case err != nil:
			return errorResults(fmt.Sprintf("Search error: %v", err))
		}
		resolvedTitle = title
	}

	vec, err := s.embed(ctx, query)
	if err != nil {
		return errorResults(fmt.Sprintf("Search error: %v", err))
	}

	// The explicit casts pin parameter types; pgx sends '' and nil as
	// untyped values otherwise.
	rows, err := s.pool.Query(ctx,
		`SELECT content, course_title, lesson_number, chunk_index, embedding <=> $1 AS distance
		 FROM chunks
		 WHERE ($2::text = '' OR course_title = $2)
		   AND ($3::int4 IS NULL OR lesson_number = $3)
		 ORDER BY embedding <=> $1
		 LIMIT $4`,
		vec, resolvedTitle, lessonNumber, s.maxResults,
	)
	if err != nil {
		return errorResults(fmt.Sprintf("Search error: %v", err))
	}
	defer rows.Close()

	results, err := scanChunks(rows)
	if err != nil {
		return errorResults(fmt.Sprintf("Search error: %v", err))
	}
	return results
}

// scanChunks reads search hits into parallel result slices.
func scanChunks(rows pgx.Rows) (SearchResults, error) {
	var r SearchResults
	for rows.Next() {
		var (
			content  string
			meta     ChunkMeta
			distance float64
		)
		if err := rows.Scan(&content, &meta.CourseTitle, &meta.LessonNumber, &meta.ChunkIndex, &distance); err != nil {
			return SearchResults{}, fmt.Errorf("scanning chunk: %w", err)
		}
		r.Documents = append(r.Documents, content)
		r.Metadata = append(r.Metadata, meta)
		r.Distances = append(r.Distances, distance)
	}
	if err := rows.Err(); err != nil {
		return SearchResults{}, fmt.Errorf("iterating chunks: %w", err)
	}
	return r, nil
}
