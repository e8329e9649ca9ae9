package ingest

import (
	"regexp"
	"strings"
)

// sentenceEnd matches terminal punctuation followed by whitespace.
var sentenceEnd = regexp.MustCompile(`([.!?])\s+`)

// SplitSentences splits text into sentences on terminal punctuation.
// Whitespace (including newlines inside a sentence) is normalized to
// single spaces; empty fragments are dropped.
func SplitSentences(text string) []string {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return nil
	}

	marked := sentenceEnd.ReplaceAllString(normalized, "$1\x00")
	parts := strings.Split(marked, "\x00")

	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// Chunker packs sentences into overlapping chunks. Size and Overlap are in
// characters; Overlap is sentence-aligned, so the actual overlap is the
// largest run of trailing sentences that fits in Overlap characters.
type Chunker struct {
	Size    int
	Overlap int
}

// Chunk splits text into chunks of at most c.Size characters without
// breaking sentences. A single sentence longer than c.Size becomes its own
// oversized chunk rather than being split mid-sentence.
func (c Chunker) Chunk(text string) []string {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	size := c.Size
	if size <= 0 {
		size = 800
	}

	var chunks []string
	i := 0
	for i < len(sentences) {
		var (
			total int
			end   = i
		)
		for end < len(sentences) {
			sentenceLen := len(sentences[end])
			if end > i {
				sentenceLen++ // joining space
			}
			if total+sentenceLen > size && end > i {
				break
			}
			total += sentenceLen
			end++
		}

		chunks = append(chunks, strings.Join(sentences[i:end], " "))

		if end >= len(sentences) {
			break
		}

		// Rewind by however many trailing sentences fit in the overlap
		// budget, always advancing by at least one sentence.
		next := end - c.overlapSentences(sentences[i:end])
		if next <= i {
			next = i + 1
		}
		i = next
	}

	return chunks
}

// overlapSentences counts how many trailing sentences of the current chunk
// fit within the overlap budget.
func (c Chunker) overlapSentences(chunk []string) int {
	if c.Overlap <= 0 {
		return 0
	}

	var (
		count int
		total int
	)
	for j := len(chunk) - 1; j >= 0; j-- {
		total += len(chunk[j])
		if count > 0 {
			total++
		}
		if total > c.Overlap {
			break
		}
		count++
	}
	// Overlapping the entire chunk would stall the scan.
	if count == len(chunk) {
		count = len(chunk) - 1
	}
	return count
}
