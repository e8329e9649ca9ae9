package tui

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/lectern/lectern/internal/rag"
	"github.com/lectern/lectern/internal/tools"
)

// answerMsg carries a completed answer back into the event loop.
type answerMsg struct {
	answer  string
	sources []tools.Source
}

// catalogMsg carries the course catalog for the /courses command.
type catalogMsg struct {
	stats rag.Analytics
}

// queryErrMsg reports a failed or canceled query.
type queryErrMsg struct {
	err error
}

// startQuery returns a command that runs the query in the background.
// Generation is single-shot rather than streamed, so one message comes
// back when the full answer (including any tool rounds) is done. The
// cancel func is stored on the model so Esc and Ctrl+C can abort.
func (m *Model) startQuery(query string) tea.Cmd {
	ctx, cancel := context.WithTimeout(m.ctx, queryTimeout)
	m.queryCancel = cancel

	return func() tea.Msg {
		answer, sources, err := m.assistant.Query(ctx, query, m.sessionID)
		if err != nil {
			return queryErrMsg{err: err}
		}
		return answerMsg{answer: answer, sources: sources}
	}
}

// fetchCatalog returns a command that loads course analytics.
func (m *Model) fetchCatalog() tea.Cmd {
	ctx, cancel := context.WithTimeout(m.ctx, queryTimeout)
	m.queryCancel = cancel

	return func() tea.Msg {
		stats, err := m.assistant.Analytics(ctx)
		if err != nil {
			return queryErrMsg{err: err}
		}
		return catalogMsg{stats: stats}
	}
}

// formatSources renders the source list shown under an answer.
// Sources with lesson links become "title (link)" lines.
func formatSources(sources []tools.Source) string {
	if len(sources) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Sources:")
	for _, src := range sources {
		b.WriteString("\n  • ")
		b.WriteString(src.Text)
		if src.Link != "" {
			b.WriteString(" (")
			b.WriteString(src.Link)
			b.WriteString(")")
		}
	}
	return b.String()
}

// formatCatalog renders the /courses output.
func formatCatalog(stats rag.Analytics) string {
	if stats.TotalCourses == 0 {
		return "No courses loaded. Run 'lectern ingest <folder>' to add some."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Catalog: %d course(s)", stats.TotalCourses)
	for _, title := range stats.CourseTitles {
		b.WriteString("\n  • ")
		b.WriteString(title)
	}
	return b.String()
}
