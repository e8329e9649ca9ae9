package tools

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/lectern/lectern/internal/course"
	"github.com/lectern/lectern/internal/store"
)

// OutlineStore is the catalog surface the outline tool needs.
type OutlineStore interface {
	ResolveCourseName(ctx context.Context, name string) (string, error)
	CourseMetadata(ctx context.Context, title string) (course.Course, error)
}

// OutlineTool returns a course's structure: title, instructor, link, and
// the full lesson list.
type OutlineTool struct {
	store       OutlineStore
	lastSources []Source
}

// NewOutlineTool creates an outline tool over the given catalog.
func NewOutlineTool(store OutlineStore) *OutlineTool {
	return &OutlineTool{store: store}
}

func (t *OutlineTool) Definition() Definition {
	return Definition{
		Name:        "get_course_outline",
		Description: "Get the complete outline of a course including its title, link, and full lesson list",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"course_name": map[string]any{
					"type":        "string",
					"description": "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
				},
			},
			"required": []string{"course_name"},
		},
	}
}

// Execute fuzzy-resolves the course name and renders the stored outline.
// Lookup failures are rendered as text, never propagated.
func (t *OutlineTool) Execute(ctx context.Context, args map[string]any) string {
	courseName, _ := args["course_name"].(string)

	title, err := t.store.ResolveCourseName(ctx, courseName)
	switch {
	case errors.Is(err, store.ErrNotFound):
		t.lastSources = nil
		return fmt.Sprintf("No course found matching '%s'.", courseName)
	case err != nil:
		t.lastSources = nil
		return fmt.Sprintf("Error retrieving course outline: %v.", err)
	}

	c, err := t.store.CourseMetadata(ctx, title)
	switch {
	case errors.Is(err, store.ErrNotFound):
		t.lastSources = nil
		return "Course metadata not found."
	case err != nil:
		t.lastSources = nil
		return fmt.Sprintf("Error retrieving course outline: %v.", err)
	}

	t.lastSources = []Source{{Text: c.Title, Link: c.Link}}
	return formatOutline(c)
}

func (t *OutlineTool) LastSources() []Source { return t.lastSources }

func (t *OutlineTool) ClearSources() { t.lastSources = nil }

func formatOutline(c course.Course) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Course:** %s", c.Title)
	if c.Instructor != "" {
		fmt.Fprintf(&b, "\n**Instructor:** %s", c.Instructor)
	}
	if c.Link != "" {
		fmt.Fprintf(&b, "\n**Course Link:** %s", c.Link)
	}

	if len(c.Lessons) > 0 {
		lessons := slices.Clone(c.Lessons)
		slices.SortFunc(lessons, func(a, b course.Lesson) int {
			return cmp.Compare(a.Number, b.Number)
		})

		b.WriteString("\n\n**Lessons:**")
		for _, l := range lessons {
			fmt.Fprintf(&b, "\n%d. %s", l.Number, l.Title)
		}
	}
	return b.String()
}
