package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/lectern/lectern/internal/course"
	"github.com/lectern/lectern/internal/log"
)

// Store is the storage surface ingestion needs. Defined here, by the
// consumer; *store.Store satisfies it.
type Store interface {
	// CourseTitles returns the titles already present in the catalog.
	CourseTitles(ctx context.Context) ([]string, error)

	// AddCourse stores course metadata and its content chunks.
	AddCourse(ctx context.Context, c course.Course, chunks []course.Chunk) error

	// Clear removes all stored courses and chunks.
	Clear(ctx context.Context) error
}

// parseableExtensions are transcript formats we can read. Other course
// material formats are recognized but skipped until converted to text.
var parseableExtensions = map[string]bool{".txt": true}

// knownExtensions are course material formats we acknowledge in logs
// instead of treating as foreign files.
var knownExtensions = map[string]bool{".txt": true, ".pdf": true, ".docx": true}

// lockFileName serializes concurrent ingest runs against one docs folder.
const lockFileName = ".lectern.lock"

// Result summarizes one folder ingestion run.
type Result struct {
	CoursesAdded   int
	CoursesSkipped int
	ChunksAdded    int
	FilesFailed    int
	Duration       time.Duration
}

// Ingestor parses course documents and loads them into a Store.
type Ingestor struct {
	store   Store
	chunker Chunker
	logger  log.Logger
}

// New creates an Ingestor.
func New(store Store, chunker Chunker, logger log.Logger) *Ingestor {
	return &Ingestor{store: store, chunker: chunker, logger: logger}
}

// File parses and chunks a single course document without storing it.
func (in *Ingestor) File(path string) (course.Course, []course.Chunk, error) {
	c, sections, err := parseFile(path)
	if err != nil {
		return course.Course{}, nil, err
	}
	return c, buildChunks(c, sections, in.chunker), nil
}

// Folder ingests every parseable course document in dir.
//
// Courses whose title already exists in the catalog are skipped, so repeated
// runs against the same folder are idempotent. When clearFirst is set the
// store is emptied before ingestion (full rebuild).
//
// A file lock in the folder serializes concurrent runs: two processes
// ingesting the same folder would race on the existing-title check and
// duplicate courses.
func (in *Ingestor) Folder(ctx context.Context, dir string, clearFirst bool) (Result, error) {
	start := time.Now()
	var res Result

	info, err := os.Stat(dir)
	if err != nil {
		return res, fmt.Errorf("reading course folder: %w", err)
	}
	if !info.IsDir() {
		return res, fmt.Errorf("course folder %q is not a directory", dir)
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return res, fmt.Errorf("acquiring ingest lock: %w", err)
	}
	if !locked {
		return res, fmt.Errorf("another ingest is already running for %q", dir)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			in.logger.Warn("releasing ingest lock", "error", err)
		}
	}()

	if clearFirst {
		if err := in.store.Clear(ctx); err != nil {
			return res, fmt.Errorf("clearing existing courses: %w", err)
		}
		in.logger.Info("cleared existing course data for rebuild")
	}

	titles, err := in.store.CourseTitles(ctx)
	if err != nil {
		return res, fmt.Errorf("listing existing courses: %w", err)
	}
	existing := make(map[string]bool, len(titles))
	for _, t := range titles {
		existing[t] = true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return res, fmt.Errorf("reading course folder: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !knownExtensions[ext] {
			continue
		}
		if !parseableExtensions[ext] {
			in.logger.Warn("skipping unsupported course format",
				"file", entry.Name(), "hint", "convert to .txt transcript")
			continue
		}

		path := filepath.Join(dir, entry.Name())
		c, chunks, err := in.File(path)
		if err != nil {
			in.logger.Error("processing course document", "file", entry.Name(), "error", err)
			res.FilesFailed++
			continue
		}

		if existing[c.Title] {
			in.logger.Debug("course already indexed, skipping", "title", c.Title)
			res.CoursesSkipped++
			continue
		}

		if err := in.store.AddCourse(ctx, c, chunks); err != nil {
			in.logger.Error("storing course", "title", c.Title, "error", err)
			res.FilesFailed++
			continue
		}

		existing[c.Title] = true
		res.CoursesAdded++
		res.ChunksAdded += len(chunks)
		in.logger.Info("indexed course",
			"title", c.Title, "lessons", len(c.Lessons), "chunks", len(chunks))
	}

	res.Duration = time.Since(start)
	return res, nil
}

// buildChunks converts parsed sections into stored chunks. Every chunk
// carries a context prefix naming its course (and lesson, when it has one)
// so retrieved text stays attributable even out of context.
func buildChunks(c course.Course, sections []section, chunker Chunker) []course.Chunk {
	var chunks []course.Chunk
	index := 0

	for _, sec := range sections {
		for _, text := range chunker.Chunk(sec.Text) {
			var content string
			if sec.LessonNumber != nil {
				content = fmt.Sprintf("Course %s Lesson %d content: %s", c.Title, *sec.LessonNumber, text)
			} else {
				content = fmt.Sprintf("Course %s content: %s", c.Title, text)
			}
			chunks = append(chunks, course.Chunk{
				Content:      content,
				CourseTitle:  c.Title,
				LessonNumber: sec.LessonNumber,
				Index:        index,
			})
			index++
		}
	}

	return chunks
}

// ParseableExtensions lists the transcript formats Folder will parse,
// sorted for stable display in CLI help and logs.
func ParseableExtensions() []string {
	exts := make([]string, 0, len(parseableExtensions))
	for ext := range parseableExtensions {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}
