// Package course defines the domain types shared by ingestion, storage,
// and the retrieval tools.
package course

// Lesson is a single lesson within a course.
type Lesson struct {
	Number int    `json:"lesson_number"`
	Title  string `json:"lesson_title"`
	Link   string `json:"lesson_link,omitempty"`
}

// Course is the full metadata for one course. Title is the unique
// identifier across the system: the catalog, the chunk table, and the
// tools all key on it.
type Course struct {
	Title      string   `json:"title"`
	Link       string   `json:"course_link,omitempty"`
	Instructor string   `json:"instructor,omitempty"`
	Lessons    []Lesson `json:"lessons"`
}

// Chunk is one indexable piece of course text. LessonNumber is nil for
// course-level text that precedes the first lesson marker.
type Chunk struct {
	Content      string
	CourseTitle  string
	LessonNumber *int
	Index        int
}
