// Package ingest turns course transcript files into catalog entries and
// indexable chunks.
//
// Expected document format:
//
//	Course Title: Building Search Applications
//	Course Link: https://example.com/courses/search
//	Course Instructor: Ada Lovelace
//
//	Lesson 0: Introduction
//	Lesson Link: https://example.com/courses/search/lesson/0
//	Welcome to the course. ...
//
//	Lesson 1: Tokenization
//	...
//
// Header lines may appear in any order; a missing title falls back to the
// file name. Text before the first lesson marker is kept as course-level
// content with no lesson number.
package ingest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/lectern/lectern/internal/course"
)

// lessonMarker matches lines like "Lesson 4: Vector Databases".
var lessonMarker = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.*)$`)

// header prefixes, matched case-insensitively.
const (
	titlePrefix      = "course title:"
	linkPrefix       = "course link:"
	instructorPrefix = "course instructor:"
	lessonLinkPrefix = "lesson link:"
)

// parseFile parses a course transcript from disk. The file name (without
// extension) is the fallback course title.
func parseFile(path string) (course.Course, []section, error) {
	f, err := os.Open(path)
	if err != nil {
		return course.Course{}, nil, fmt.Errorf("opening course document: %w", err)
	}
	defer f.Close()

	base := filepath.Base(path)
	fallback := strings.TrimSuffix(base, filepath.Ext(base))
	return parse(f, fallback)
}

// section is a parsed block of transcript text: either course-level
// (LessonNumber nil) or belonging to one lesson.
type section struct {
	LessonNumber *int
	Text         string
}

// parse reads a course transcript. It returns the course metadata and the
// raw text sections in document order; chunking happens separately so the
// chunker can be configured independently of parsing.
func parse(r io.Reader, fallbackTitle string) (course.Course, []section, error) {
	c := course.Course{Title: fallbackTitle}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var (
		sections      []section
		current       strings.Builder
		currentLesson *int
		inHeader      = true
		lastWasMarker bool
	)

	flush := func() {
		text := strings.TrimSpace(current.String())
		if text != "" {
			sections = append(sections, section{LessonNumber: currentLesson, Text: text})
		}
		current.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)

		// Header block: metadata lines before any transcript text.
		if inHeader {
			switch {
			case trimmed == "":
				continue
			case strings.HasPrefix(lower, titlePrefix):
				if v := strings.TrimSpace(trimmed[len(titlePrefix):]); v != "" {
					c.Title = v
				}
				continue
			case strings.HasPrefix(lower, linkPrefix):
				c.Link = strings.TrimSpace(trimmed[len(linkPrefix):])
				continue
			case strings.HasPrefix(lower, instructorPrefix):
				c.Instructor = strings.TrimSpace(trimmed[len(instructorPrefix):])
				continue
			default:
				inHeader = false
			}
		}

		if m := lessonMarker.FindStringSubmatch(trimmed); m != nil {
			flush()
			num, err := strconv.Atoi(m[1])
			if err != nil {
				return course.Course{}, nil, fmt.Errorf("parsing lesson number %q: %w", m[1], err)
			}
			n := num
			currentLesson = &n
			c.Lessons = append(c.Lessons, course.Lesson{Number: num, Title: strings.TrimSpace(m[2])})
			lastWasMarker = true
			continue
		}

		// An optional "Lesson Link:" directly after the marker attaches a
		// deep link to the lesson just opened.
		if lastWasMarker && strings.HasPrefix(lower, lessonLinkPrefix) {
			if len(c.Lessons) > 0 {
				c.Lessons[len(c.Lessons)-1].Link = strings.TrimSpace(trimmed[len(lessonLinkPrefix):])
			}
			lastWasMarker = false
			continue
		}
		if trimmed != "" {
			lastWasMarker = false
		}

		current.WriteString(line)
		current.WriteString("\n")
	}
	if err := scanner.Err(); err != nil {
		return course.Course{}, nil, fmt.Errorf("reading course document: %w", err)
	}

	flush()

	if strings.TrimSpace(c.Title) == "" {
		return course.Course{}, nil, fmt.Errorf("course document has no title and no usable file name")
	}

	return c, sections, nil
}
