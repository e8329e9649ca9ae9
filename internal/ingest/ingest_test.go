package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"github.com/lectern/lectern/internal/course"
	"github.com/lectern/lectern/internal/log"
)

// fakeStore implements Store for testing.
type fakeStore struct {
	titles    []string
	titlesErr error
	addErr    error
	clearErr  error

	addCalls   int
	clearCalls int
	added      []course.Course
	chunks     [][]course.Chunk
}

func (f *fakeStore) CourseTitles(ctx context.Context) ([]string, error) {
	if f.titlesErr != nil {
		return nil, f.titlesErr
	}
	return f.titles, nil
}

func (f *fakeStore) AddCourse(ctx context.Context, c course.Course, chunks []course.Chunk) error {
	f.addCalls++
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, c)
	f.chunks = append(f.chunks, chunks)
	return nil
}

func (f *fakeStore) Clear(ctx context.Context) error {
	f.clearCalls++
	return f.clearErr
}

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

const courseA = `Course Title: Intro to Python
Course Instructor: Guido

Lesson 1: Basics
Variables hold values. Functions do things.
`

const courseB = `Course Title: Intro to SQL

Lesson 1: Queries
Select retrieves rows. Where filters them.
`

func newTestIngestor(store Store) *Ingestor {
	return New(store, Chunker{Size: 800, Overlap: 100}, log.NewNop())
}

func TestIngestor_Folder(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "python.txt", courseA)
	writeDoc(t, dir, "sql.txt", courseB)

	store := &fakeStore{}
	in := newTestIngestor(store)

	res, err := in.Folder(context.Background(), dir, false)
	if err != nil {
		t.Fatalf("Folder() unexpected error: %v", err)
	}

	if res.CoursesAdded != 2 {
		t.Errorf("CoursesAdded = %d, want 2", res.CoursesAdded)
	}
	if res.ChunksAdded == 0 {
		t.Error("ChunksAdded = 0, want > 0")
	}
	if store.addCalls != 2 {
		t.Errorf("AddCourse calls = %d, want 2", store.addCalls)
	}
	if store.clearCalls != 0 {
		t.Errorf("Clear calls = %d, want 0", store.clearCalls)
	}
	if res.Duration == 0 {
		t.Error("Duration not recorded")
	}

	// Files are visited in lexical order.
	if store.added[0].Title != "Intro to Python" || store.added[1].Title != "Intro to SQL" {
		t.Errorf("added titles = %q, %q", store.added[0].Title, store.added[1].Title)
	}
}

func TestIngestor_Folder_SkipsExistingCourse(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "python.txt", courseA)

	store := &fakeStore{titles: []string{"Intro to Python"}}
	in := newTestIngestor(store)

	res, err := in.Folder(context.Background(), dir, false)
	if err != nil {
		t.Fatalf("Folder() unexpected error: %v", err)
	}
	if res.CoursesSkipped != 1 {
		t.Errorf("CoursesSkipped = %d, want 1", res.CoursesSkipped)
	}
	if store.addCalls != 0 {
		t.Errorf("AddCourse calls = %d, want 0", store.addCalls)
	}
}

func TestIngestor_Folder_SkipsDuplicateWithinRun(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.txt", courseA)
	writeDoc(t, dir, "b.txt", courseA)

	store := &fakeStore{}
	in := newTestIngestor(store)

	res, err := in.Folder(context.Background(), dir, false)
	if err != nil {
		t.Fatalf("Folder() unexpected error: %v", err)
	}
	if res.CoursesAdded != 1 {
		t.Errorf("CoursesAdded = %d, want 1", res.CoursesAdded)
	}
	if res.CoursesSkipped != 1 {
		t.Errorf("CoursesSkipped = %d, want 1", res.CoursesSkipped)
	}
}

func TestIngestor_Folder_ClearFirst(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "python.txt", courseA)

	store := &fakeStore{titles: []string{"Intro to Python"}}
	in := newTestIngestor(store)

	res, err := in.Folder(context.Background(), dir, true)
	if err != nil {
		t.Fatalf("Folder() unexpected error: %v", err)
	}
	if store.clearCalls != 1 {
		t.Errorf("Clear calls = %d, want 1", store.clearCalls)
	}
	// The fake still reports the old title; a real store would be empty.
	// What matters here is that Clear ran before the existing-title check.
	if res.CoursesSkipped != 1 {
		t.Errorf("CoursesSkipped = %d, want 1", res.CoursesSkipped)
	}
}

func TestIngestor_Folder_ClearError(t *testing.T) {
	dir := t.TempDir()
	store := &fakeStore{clearErr: errors.New("connection lost")}
	in := newTestIngestor(store)

	_, err := in.Folder(context.Background(), dir, true)
	if err == nil {
		t.Fatal("Folder() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "connection lost") {
		t.Errorf("error should wrap store error: %v", err)
	}
}

func TestIngestor_Folder_StoreErrorCountsAsFailed(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "python.txt", courseA)

	store := &fakeStore{addErr: errors.New("insert failed")}
	in := newTestIngestor(store)

	res, err := in.Folder(context.Background(), dir, false)
	if err != nil {
		t.Fatalf("Folder() should not fail on a single document: %v", err)
	}
	if res.FilesFailed != 1 {
		t.Errorf("FilesFailed = %d, want 1", res.FilesFailed)
	}
	if res.CoursesAdded != 0 {
		t.Errorf("CoursesAdded = %d, want 0", res.CoursesAdded)
	}
}

func TestIngestor_Folder_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "slides.pdf", "%PDF-1.4")
	writeDoc(t, dir, "notes.docx", "PK")
	writeDoc(t, dir, "metadata.json", "{}")
	writeDoc(t, dir, ".hidden.txt", courseA)
	if err := os.Mkdir(filepath.Join(dir, "subdir"), 0o750); err != nil {
		t.Fatalf("creating subdir: %v", err)
	}

	store := &fakeStore{}
	in := newTestIngestor(store)

	res, err := in.Folder(context.Background(), dir, false)
	if err != nil {
		t.Fatalf("Folder() unexpected error: %v", err)
	}
	if res.CoursesAdded != 0 || res.FilesFailed != 0 {
		t.Errorf("result = %+v, want nothing processed", res)
	}
	if store.addCalls != 0 {
		t.Errorf("AddCourse calls = %d, want 0", store.addCalls)
	}
}

func TestIngestor_Folder_MissingDir(t *testing.T) {
	store := &fakeStore{}
	in := newTestIngestor(store)

	_, err := in.Folder(context.Background(), filepath.Join(t.TempDir(), "missing"), false)
	if err == nil {
		t.Fatal("Folder() expected error for missing directory, got nil")
	}
}

func TestIngestor_Folder_NotADirectory(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "file.txt", courseA)

	store := &fakeStore{}
	in := newTestIngestor(store)

	_, err := in.Folder(context.Background(), filepath.Join(dir, "file.txt"), false)
	if err == nil {
		t.Fatal("Folder() expected error for non-directory, got nil")
	}
	if !strings.Contains(err.Error(), "not a directory") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestIngestor_Folder_LockHeld(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "python.txt", courseA)

	lock := flock.New(filepath.Join(dir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("acquiring test lock: locked=%v err=%v", locked, err)
	}
	defer lock.Unlock() //nolint:errcheck

	store := &fakeStore{}
	in := newTestIngestor(store)

	_, err = in.Folder(context.Background(), dir, false)
	if err == nil {
		t.Fatal("Folder() expected error while lock held, got nil")
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestIngestor_Folder_ReleasesLock(t *testing.T) {
	dir := t.TempDir()
	store := &fakeStore{}
	in := newTestIngestor(store)

	if _, err := in.Folder(context.Background(), dir, false); err != nil {
		t.Fatalf("Folder() unexpected error: %v", err)
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("lock not released after Folder: locked=%v err=%v", locked, err)
	}
	_ = lock.Unlock()
}

func TestIngestor_File(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "python.txt", courseA)

	in := newTestIngestor(&fakeStore{})
	c, chunks, err := in.File(filepath.Join(dir, "python.txt"))
	if err != nil {
		t.Fatalf("File() unexpected error: %v", err)
	}
	if c.Title != "Intro to Python" {
		t.Errorf("Title = %q", c.Title)
	}
	if len(chunks) == 0 {
		t.Error("no chunks produced")
	}
}

func TestBuildChunks(t *testing.T) {
	n := 1
	c := course.Course{Title: "Databases"}
	sections := []section{
		{LessonNumber: nil, Text: "Course overview text."},
		{LessonNumber: &n, Text: "Tables store rows."},
	}

	chunks := buildChunks(c, sections, Chunker{Size: 800, Overlap: 0})
	if len(chunks) != 2 {
		t.Fatalf("len(chunks) = %d, want 2", len(chunks))
	}

	if chunks[0].Content != "Course Databases content: Course overview text." {
		t.Errorf("chunks[0].Content = %q", chunks[0].Content)
	}
	if chunks[0].LessonNumber != nil {
		t.Errorf("chunks[0].LessonNumber = %v, want nil", *chunks[0].LessonNumber)
	}

	if chunks[1].Content != "Course Databases Lesson 1 content: Tables store rows." {
		t.Errorf("chunks[1].Content = %q", chunks[1].Content)
	}
	if chunks[1].LessonNumber == nil || *chunks[1].LessonNumber != 1 {
		t.Errorf("chunks[1].LessonNumber = %v, want 1", chunks[1].LessonNumber)
	}

	for i, ch := range chunks {
		if ch.Index != i {
			t.Errorf("chunks[%d].Index = %d, want %d", i, ch.Index, i)
		}
		if ch.CourseTitle != "Databases" {
			t.Errorf("chunks[%d].CourseTitle = %q", i, ch.CourseTitle)
		}
	}
}

func TestBuildChunks_IndexSequentialAcrossSections(t *testing.T) {
	n := 2
	c := course.Course{Title: "Long Course"}
	sections := []section{
		{LessonNumber: &n, Text: "aaaa. aaaa. aaaa. aaaa."},
		{LessonNumber: &n, Text: "bbbb. bbbb. bbbb. bbbb."},
	}

	chunks := buildChunks(c, sections, Chunker{Size: 11, Overlap: 0})
	if len(chunks) != 4 {
		t.Fatalf("len(chunks) = %d, want 4", len(chunks))
	}
	for i, ch := range chunks {
		if ch.Index != i {
			t.Errorf("chunks[%d].Index = %d, want %d", i, ch.Index, i)
		}
	}
}

func TestParseableExtensions(t *testing.T) {
	got := ParseableExtensions()
	if len(got) != 1 || got[0] != ".txt" {
		t.Errorf("ParseableExtensions() = %v, want [.txt]", got)
	}
}
