package rag

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lectern/lectern/internal/config"
	"github.com/lectern/lectern/internal/course"
	"github.com/lectern/lectern/internal/generation"
	"github.com/lectern/lectern/internal/session"
	"github.com/lectern/lectern/internal/store"
	"github.com/lectern/lectern/internal/testutil"
	"github.com/lectern/lectern/internal/tools"
)

// fakeStore satisfies Store with scripted responses.
type fakeStore struct {
	results      store.SearchResults
	links        map[string]string // "Title/N" -> lesson link
	resolveTitle string
	resolveErr   error
	course       course.Course
	metaErr      error
	titles       []string
	titlesErr    error
	count        int
	countErr     error

	gotQuery    string
	addedTitles []string
	addedChunks int
	clearCalls  int
}

func (f *fakeStore) Search(_ context.Context, query, _ string, _ *int) store.SearchResults {
	f.gotQuery = query
	return f.results
}

func (f *fakeStore) LessonLink(_ context.Context, courseTitle string, lessonNumber int) (string, error) {
	if link, ok := f.links[fmt.Sprintf("%s/%d", courseTitle, lessonNumber)]; ok {
		return link, nil
	}
	return "", store.ErrNotFound
}

func (f *fakeStore) ResolveCourseName(_ context.Context, _ string) (string, error) {
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	return f.resolveTitle, nil
}

func (f *fakeStore) CourseMetadata(_ context.Context, _ string) (course.Course, error) {
	if f.metaErr != nil {
		return course.Course{}, f.metaErr
	}
	return f.course, nil
}

func (f *fakeStore) CourseTitles(_ context.Context) ([]string, error) {
	return f.titles, f.titlesErr
}

func (f *fakeStore) AddCourse(_ context.Context, c course.Course, chunks []course.Chunk) error {
	f.addedTitles = append(f.addedTitles, c.Title)
	f.addedChunks += len(chunks)
	return nil
}

func (f *fakeStore) Clear(_ context.Context) error {
	f.clearCalls++
	return nil
}

func (f *fakeStore) CourseCount(_ context.Context) (int, error) {
	return f.count, f.countErr
}

func newTestSystem(t *testing.T, st *fakeStore, mock *testutil.MockMessenger) *System {
	t.Helper()

	engine, err := generation.NewEngine(mock, "claude-test", testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("NewEngine() error: %v", err)
	}
	cfg := &config.Config{ChunkSize: 800, ChunkOverlap: 100, MaxResults: 5, MaxHistory: 2}
	sys, err := New(st, session.NewStore(cfg.MaxHistory), engine, cfg, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return sys
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	engine, err := generation.NewEngine(testutil.NewMockMessenger(), "claude-test", testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("NewEngine() error: %v", err)
	}
	sessions := session.NewStore(2)
	cfg := &config.Config{}

	tests := []struct {
		name     string
		store    Store
		sessions *session.Store
		engine   *generation.Engine
		cfg      *config.Config
		wantErr  string
	}{
		{"nil store", nil, sessions, engine, cfg, "store is required"},
		{"nil sessions", &fakeStore{}, nil, engine, cfg, "session store is required"},
		{"nil engine", &fakeStore{}, sessions, nil, cfg, "generation engine is required"},
		{"nil config", &fakeStore{}, sessions, engine, nil, "config is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tt.store, tt.sessions, tt.engine, tt.cfg, nil)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("New() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSystem_Query_DirectAnswer(t *testing.T) {
	t.Parallel()

	mock := testutil.NewMockMessenger()
	mock.QueueText("Go is a programming language.")
	sys := newTestSystem(t, &fakeStore{}, mock)

	answer, sources, err := sys.Query(context.Background(), "What is Go?", "")
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if answer != "Go is a programming language." {
		t.Fatalf("Query() answer = %q", answer)
	}
	if len(sources) != 0 {
		t.Fatalf("Query() sources = %v, want none", sources)
	}

	calls := mock.Calls()
	if len(calls) != 1 {
		t.Fatalf("model calls = %d, want 1", len(calls))
	}
	if len(calls[0].Tools) != 2 {
		t.Fatalf("tools offered = %d, want 2 (search + outline)", len(calls[0].Tools))
	}

	prompt := calls[0].Messages[0].Content[0].OfText.Text
	want := "Answer this question about course materials: What is Go?"
	if prompt != want {
		t.Fatalf("prompt = %q, want %q", prompt, want)
	}
}

func TestSystem_Query_ToolRoundCollectsSources(t *testing.T) {
	t.Parallel()

	lesson := 3
	st := &fakeStore{
		results: store.SearchResults{
			Documents: []string{"Loops repeat statements until a condition fails."},
			Metadata:  []store.ChunkMeta{{CourseTitle: "Intro to Python", LessonNumber: &lesson}},
			Distances: []float64{0.1},
		},
		links: map[string]string{"Intro to Python/3": "https://example.com/python/3"},
	}
	mock := testutil.NewMockMessenger()
	mock.QueueToolUse(testutil.MockToolCall{
		ID:   "tu_1",
		Name: "search_course_content",
		Args: map[string]any{"query": "loops"},
	})
	mock.QueueText("Loops repeat statements.")
	sys := newTestSystem(t, st, mock)

	answer, sources, err := sys.Query(context.Background(), "how do loops work?", "")
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if answer != "Loops repeat statements." {
		t.Fatalf("Query() answer = %q", answer)
	}
	if st.gotQuery != "loops" {
		t.Fatalf("search tool received query %q, want %q", st.gotQuery, "loops")
	}

	wantSources := []tools.Source{
		{Text: "Intro to Python - Lesson 3", Link: "https://example.com/python/3"},
	}
	if diff := cmp.Diff(wantSources, sources); diff != "" {
		t.Fatalf("sources mismatch (-want +got):\n%s", diff)
	}
}

func TestSystem_Query_FreshSourcesPerCall(t *testing.T) {
	t.Parallel()

	st := &fakeStore{
		results: store.SearchResults{
			Documents: []string{"Some content."},
			Metadata:  []store.ChunkMeta{{CourseTitle: "Course A"}},
			Distances: []float64{0.2},
		},
	}
	mock := testutil.NewMockMessenger()
	mock.QueueToolUse(testutil.MockToolCall{ID: "tu_1", Name: "search_course_content", Args: map[string]any{"query": "x"}})
	mock.QueueText("First answer.")
	mock.QueueText("Second answer.")
	sys := newTestSystem(t, st, mock)

	_, first, err := sys.Query(context.Background(), "question one", "")
	if err != nil {
		t.Fatalf("first Query() error: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("first query sources = %v, want 1", first)
	}

	_, second, err := sys.Query(context.Background(), "question two", "")
	if err != nil {
		t.Fatalf("second Query() error: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("second query sources = %v, want none carried over", second)
	}
}

func TestSystem_Query_SessionHistory(t *testing.T) {
	t.Parallel()

	mock := testutil.NewMockMessenger()
	mock.QueueText("It compiles to native code.")
	mock.QueueText("Yes, with goroutines.")
	sys := newTestSystem(t, &fakeStore{}, mock)

	id := sys.NewSession()
	if id == "" {
		t.Fatal("NewSession() returned empty ID")
	}

	if _, _, err := sys.Query(context.Background(), "How does Go run?", id); err != nil {
		t.Fatalf("first Query() error: %v", err)
	}
	if _, _, err := sys.Query(context.Background(), "Is it concurrent?", id); err != nil {
		t.Fatalf("second Query() error: %v", err)
	}

	calls := mock.Calls()
	if len(calls) != 2 {
		t.Fatalf("model calls = %d, want 2", len(calls))
	}

	firstSystem := calls[0].System[0].Text
	if strings.Contains(firstSystem, "Previous conversation:") {
		t.Fatal("first query should have no history")
	}

	secondSystem := calls[1].System[0].Text
	wantHistory := "Previous conversation:\nUser: How does Go run?\nAssistant: It compiles to native code."
	if !strings.Contains(secondSystem, wantHistory) {
		t.Fatalf("second query system prompt missing history:\n%s", secondSystem)
	}
}

func TestSystem_Query_StatelessWithoutSession(t *testing.T) {
	t.Parallel()

	mock := testutil.NewMockMessenger()
	mock.QueueText("answer one")
	mock.QueueText("answer two")
	sys := newTestSystem(t, &fakeStore{}, mock)

	if _, _, err := sys.Query(context.Background(), "first", ""); err != nil {
		t.Fatalf("first Query() error: %v", err)
	}
	if _, _, err := sys.Query(context.Background(), "second", ""); err != nil {
		t.Fatalf("second Query() error: %v", err)
	}

	calls := mock.Calls()
	if strings.Contains(calls[1].System[0].Text, "Previous conversation:") {
		t.Fatal("stateless queries must not accumulate history")
	}
}

func TestSystem_Query_EngineErrorWrapped(t *testing.T) {
	t.Parallel()

	mock := testutil.NewMockMessenger()
	mock.QueueError(errors.New("api unreachable"))
	sys := newTestSystem(t, &fakeStore{}, mock)

	answer, sources, err := sys.Query(context.Background(), "anything", "")
	if err == nil {
		t.Fatal("Query() error = nil, want wrapped engine error")
	}
	if !strings.Contains(err.Error(), "generating answer") || !strings.Contains(err.Error(), "api unreachable") {
		t.Fatalf("Query() error = %v", err)
	}
	if answer != "" || sources != nil {
		t.Fatalf("Query() = (%q, %v) on error, want empty", answer, sources)
	}
}

func TestSystem_ClearSession(t *testing.T) {
	t.Parallel()

	mock := testutil.NewMockMessenger()
	mock.QueueText("first answer")
	mock.QueueText("second answer")
	sys := newTestSystem(t, &fakeStore{}, mock)

	id := sys.NewSession()
	if _, _, err := sys.Query(context.Background(), "remember me", id); err != nil {
		t.Fatalf("Query() error: %v", err)
	}

	sys.ClearSession(id)

	if _, _, err := sys.Query(context.Background(), "fresh question", id); err != nil {
		t.Fatalf("Query() after clear error: %v", err)
	}
	calls := mock.Calls()
	if strings.Contains(calls[1].System[0].Text, "Previous conversation:") {
		t.Fatal("cleared session still carries history")
	}
}

func TestSystem_Analytics(t *testing.T) {
	t.Parallel()

	st := &fakeStore{count: 2, titles: []string{"Advanced SQL", "Intro to Python"}}
	sys := newTestSystem(t, st, testutil.NewMockMessenger())

	got, err := sys.Analytics(context.Background())
	if err != nil {
		t.Fatalf("Analytics() error: %v", err)
	}
	want := Analytics{TotalCourses: 2, CourseTitles: []string{"Advanced SQL", "Intro to Python"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Analytics() mismatch (-want +got):\n%s", diff)
	}
}

func TestSystem_Analytics_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		store   *fakeStore
		wantErr string
	}{
		{"count fails", &fakeStore{countErr: errors.New("db down")}, "counting courses"},
		{"titles fail", &fakeStore{titlesErr: errors.New("db down")}, "listing courses"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sys := newTestSystem(t, tt.store, testutil.NewMockMessenger())
			_, err := sys.Analytics(context.Background())
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Analytics() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSystem_AddCourseFolder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	doc := `Course Title: Test Course
Course Link: https://example.com/test
Course Instructor: Jane Doe

Lesson 1: Getting Started
Lesson Link: https://example.com/test/1
Welcome to the course. This lesson covers installation. Each step is explained in order.
`
	if err := os.WriteFile(filepath.Join(dir, "course1.txt"), []byte(doc), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	st := &fakeStore{}
	sys := newTestSystem(t, st, testutil.NewMockMessenger())

	courses, chunks, err := sys.AddCourseFolder(context.Background(), dir, false)
	if err != nil {
		t.Fatalf("AddCourseFolder() error: %v", err)
	}
	if courses != 1 {
		t.Fatalf("courses added = %d, want 1", courses)
	}
	if chunks < 1 {
		t.Fatalf("chunks added = %d, want at least 1", chunks)
	}
	if diff := cmp.Diff([]string{"Test Course"}, st.addedTitles); diff != "" {
		t.Fatalf("stored titles mismatch (-want +got):\n%s", diff)
	}
	if st.clearCalls != 0 {
		t.Fatal("Clear() called without clearFirst")
	}
}

func TestSystem_AddCourseFolder_ClearFirst(t *testing.T) {
	t.Parallel()

	st := &fakeStore{}
	sys := newTestSystem(t, st, testutil.NewMockMessenger())

	if _, _, err := sys.AddCourseFolder(context.Background(), t.TempDir(), true); err != nil {
		t.Fatalf("AddCourseFolder() error: %v", err)
	}
	if st.clearCalls != 1 {
		t.Fatalf("Clear() calls = %d, want 1", st.clearCalls)
	}
}

func TestSystem_AddCourseFolder_MissingDir(t *testing.T) {
	t.Parallel()

	sys := newTestSystem(t, &fakeStore{}, testutil.NewMockMessenger())

	_, _, err := sys.AddCourseFolder(context.Background(), filepath.Join(t.TempDir(), "absent"), false)
	if err == nil || !strings.Contains(err.Error(), "loading course folder") {
		t.Fatalf("AddCourseFolder() error = %v, want wrapped ingest error", err)
	}
}
