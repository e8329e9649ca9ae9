package store

import "errors"

// ErrNotFound is returned when a course or lesson lookup matches nothing.
var ErrNotFound = errors.New("course not found")

// ChunkMeta describes where a search hit came from.
type ChunkMeta struct {
	CourseTitle  string
	LessonNumber *int
	ChunkIndex   int
}

// SearchResults is the outcome of a chunk search. Documents, Metadata and
// Distances are parallel slices. Faults are reported in-band through Error
// rather than a Go error: the search tools hand this string directly to the
// model, which can then tell the user what went wrong.
type SearchResults struct {
	Documents []string
	Metadata  []ChunkMeta
	Distances []float64
	Error     string
}

// errorResults builds a SearchResults carrying only an error message.
func errorResults(msg string) SearchResults {
	return SearchResults{Error: msg}
}

// IsEmpty reports whether the search matched no documents.
func (r SearchResults) IsEmpty() bool {
	return len(r.Documents) == 0
}
