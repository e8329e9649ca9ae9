package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lectern/lectern/internal/course"
)

// AddCourse stores course metadata and its chunks in one transaction.
// The course title is embedded for fuzzy name resolution; every chunk is
// embedded for semantic search.
func (s *Store) AddCourse(ctx context.Context, c course.Course, chunks []course.Chunk) error {
	if c.Title == "" {
		return fmt.Errorf("course title is required")
	}

	titleVec, err := s.embed(ctx, c.Title)
	if err != nil {
		return fmt.Errorf("embedding course title: %w", err)
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}
	chunkVecs, err := s.embedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding chunks: %w", err)
	}

	lessons, err := json.Marshal(c.Lessons)
	if err != nil {
		return fmt.Errorf("encoding lessons: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", rbErr)
		}
	}()

	_, err = tx.Exec(ctx,
		`INSERT INTO courses (title, course_link, instructor, lessons, embedding)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (title) DO UPDATE
		 SET course_link = EXCLUDED.course_link,
		     instructor  = EXCLUDED.instructor,
		     lessons     = EXCLUDED.lessons,
		     embedding   = EXCLUDED.embedding`,
		c.Title, c.Link, c.Instructor, lessons, titleVec,
	)
	if err != nil {
		return fmt.Errorf("inserting course: %w", err)
	}

	// Re-adding a course replaces its chunks instead of appending.
	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE course_title = $1`, c.Title); err != nil {
		return fmt.Errorf("removing stale chunks: %w", err)
	}

	for i, ch := range chunks {
		_, err = tx.Exec(ctx,
			`INSERT INTO chunks (course_title, lesson_number, chunk_index, content, embedding)
			 VALUES ($1, $2, $3, $4, $5)`,
			ch.CourseTitle, ch.LessonNumber, ch.Index, ch.Content, chunkVecs[i],
		)
		if err != nil {
			return fmt.Errorf("inserting chunk %d: %w", ch.Index, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing course: %w", err)
	}

	s.logger.Debug("stored course", "title", c.Title, "chunks", len(chunks))
	return nil
}

// ResolveCourseName matches a partial or fuzzy course name against the
// catalog by vector similarity and returns the exact stored title.
// Returns ErrNotFound when the catalog is empty.
func (s *Store) ResolveCourseName(ctx context.Context, name string) (string, error) {
	vec, err := s.embed(ctx, name)
	if err != nil {
		return "", fmt.Errorf("embedding course name: %w", err)
	}

	var title string
	err = s.pool.QueryRow(ctx,
		`SELECT title FROM courses ORDER BY embedding <=> $1 LIMIT 1`,
		vec,
	).Scan(&title)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return "", ErrNotFound
	case err != nil:
		return "", fmt.Errorf("resolving course name: %w", err)
	}
	return title, nil
}

// CourseMetadata returns the stored metadata for an exact course title.
// Returns ErrNotFound when no such course exists.
func (s *Store) CourseMetadata(ctx context.Context, title string) (course.Course, error) {
	var (
		c       course.Course
		lessons []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT title, course_link, instructor, lessons FROM courses WHERE title = $1`,
		title,
	).Scan(&c.Title, &c.Link, &c.Instructor, &lessons)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return course.Course{}, ErrNotFound
	case err != nil:
		return course.Course{}, fmt.Errorf("loading course metadata: %w", err)
	}

	if err := json.Unmarshal(lessons, &c.Lessons); err != nil {
		return course.Course{}, fmt.Errorf("decoding lessons: %w", err)
	}
	return c, nil
}

// LessonLink returns the deep link for one lesson of a course.
// Returns ErrNotFound when the course, the lesson, or its link is absent.
func (s *Store) LessonLink(ctx context.Context, courseTitle string, lessonNumber int) (string, error) {
	c, err := s.CourseMetadata(ctx, courseTitle)
	if err != nil {
		return "", err
	}
	for _, l := range c.Lessons {
		if l.Number == lessonNumber {
			if l.Link == "" {
				return "", ErrNotFound
			}
			return l.Link, nil
		}
	}
	return "", ErrNotFound
}

// CourseTitles returns all catalog titles in alphabetical order.
func (s *Store) CourseTitles(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT title FROM courses ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("listing course titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scanning course title: %w", err)
		}
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating course titles: %w", err)
	}
	return titles, nil
}

// CourseCount returns how many courses are in the catalog.
func (s *Store) CourseCount(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM courses`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting courses: %w", err)
	}
	return count, nil
}

// Clear removes every course and chunk.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE courses, chunks RESTART IDENTITY`); err != nil {
		return fmt.Errorf("clearing store: %w", err)
	}
	return nil
}
