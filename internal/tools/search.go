package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/lectern/lectern/internal/store"
)

// Searcher is the retrieval surface the search tool needs.
type Searcher interface {
	Search(ctx context.Context, query, courseName string, lessonNumber *int) store.SearchResults
	LessonLink(ctx context.Context, courseTitle string, lessonNumber int) (string, error)
}

// SearchTool finds course content by semantic similarity, optionally
// narrowed to one course (fuzzy-matched) or one lesson.
type SearchTool struct {
	store       Searcher
	lastSources []Source
}

// NewSearchTool creates a search tool over the given backend.
func NewSearchTool(store Searcher) *SearchTool {
	return &SearchTool{store: store}
}

func (t *SearchTool) Definition() Definition {
	return Definition{
		Name:        "search_course_content",
		Description: "Search course materials with smart course name matching and lesson filtering",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "What to search for in the course content",
				},
				"course_name": map[string]any{
					"type":        "string",
					"description": "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
				},
				"lesson_number": map[string]any{
					"type":        "integer",
					"description": "Specific lesson number to search within (e.g. 1, 2, 3)",
				},
			},
			"required": []string{"query"},
		},
	}
}

// Execute searches the backend and renders each hit as a labeled block:
// "[<Course Title> - Lesson <N>]" followed by the chunk text, blocks joined
// by blank lines. Backend faults come back verbatim as the result text.
func (t *SearchTool) Execute(ctx context.Context, args map[string]any) string {
	query, _ := args["query"].(string)
	courseName, _ := args["course_name"].(string)

	var lessonNumber *int
	if n, ok := intArg(args["lesson_number"]); ok {
		lessonNumber = &n
	}

	results := t.store.Search(ctx, query, courseName, lessonNumber)
	if results.Error != "" {
		t.lastSources = nil
		return results.Error
	}
	if results.IsEmpty() {
		t.lastSources = nil
		return noContentMessage(courseName, lessonNumber)
	}
	return t.format(ctx, results)
}

func (t *SearchTool) LastSources() []Source { return t.lastSources }

func (t *SearchTool) ClearSources() { t.lastSources = nil }

// format renders result blocks and records one Source per hit. Lesson hits
// get a deep link when the backend has one; a failed link lookup degrades
// to a plain label.
func (t *SearchTool) format(ctx context.Context, results store.SearchResults) string {
	blocks := make([]string, 0, len(results.Documents))
	sources := make([]Source, 0, len(results.Documents))

	for i, doc := range results.Documents {
		meta := results.Metadata[i]

		label := meta.CourseTitle
		if meta.LessonNumber != nil {
			label = fmt.Sprintf("%s - Lesson %d", meta.CourseTitle, *meta.LessonNumber)
		}

		src := Source{Text: label}
		if meta.LessonNumber != nil {
			if link, err := t.store.LessonLink(ctx, meta.CourseTitle, *meta.LessonNumber); err == nil {
				src.Link = link
			}
		}

		sources = append(sources, src)
		blocks = append(blocks, fmt.Sprintf("[%s]\n%s", label, doc))
	}

	t.lastSources = sources
	return strings.Join(blocks, "\n\n")
}

// noContentMessage names the filters that were applied, so the model can
// tell the user what exactly came up empty.
func noContentMessage(courseName string, lessonNumber *int) string {
	var b strings.Builder
	b.WriteString("No relevant content found")
	if courseName != "" {
		fmt.Fprintf(&b, " in course '%s'", courseName)
	}
	if lessonNumber != nil {
		fmt.Fprintf(&b, " in lesson %d", *lessonNumber)
	}
	b.WriteString(".")
	return b.String()
}

// intArg reads an integer argument. Arguments arrive from JSON, so numbers
// are float64; a direct int is accepted for callers in tests.
func intArg(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}
