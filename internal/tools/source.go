package tools

import "encoding/json"

// Source attributes a piece of retrieved content back to its course
// material. Text is a display label like "Intro to Python - Lesson 3";
// Link, when present, is a deep link into the lesson.
//
// A Source serializes as a bare string when it has no link, matching what
// UI layers expect: either "Course Title" or {"text": ..., "link": ...}.
type Source struct {
	Text string `json:"text"`
	Link string `json:"link,omitempty"`
}

func (s Source) MarshalJSON() ([]byte, error) {
	if s.Link == "" {
		return json.Marshal(s.Text)
	}
	type alias Source
	return json.Marshal(alias(s))
}
