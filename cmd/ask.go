package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"

	"github.com/lectern/lectern/internal/app"
	"github.com/lectern/lectern/internal/config"
)

// runAsk answers one question and exits. Stateless: no session history
// is kept, so follow-up context requires chat mode.
func runAsk(args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("usage: lectern ask \"<question>\"")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			a.Logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	answer, sources, err := a.System.Query(ctx, question, "")
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}

	fmt.Println(renderAnswer(answer))

	if len(sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, src := range sources {
			if src.Link != "" {
				fmt.Printf("  - %s (%s)\n", src.Text, src.Link)
			} else {
				fmt.Printf("  - %s\n", src.Text)
			}
		}
	}
	return nil
}

// renderAnswer styles Markdown for the terminal, degrading to plain text
// when the renderer cannot be built.
func renderAnswer(answer string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return answer
	}
	out, err := r.Render(answer)
	if err != nil {
		return answer
	}
	return strings.TrimSuffix(out, "\n")
}
