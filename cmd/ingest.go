package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lectern/lectern/internal/app"
	"github.com/lectern/lectern/internal/config"
	"github.com/lectern/lectern/internal/ingest"
)

// timePrecision rounds ingest durations for display.
const timePrecision = 10 * time.Millisecond

// runIngest loads a course folder into the vector store. Only the
// embedding provider is needed, so this runs without an Anthropic key.
func runIngest(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	dir, clearFirst, err := parseIngestFlags(args, cfg.DocsDir)
	if err != nil {
		return fmt.Errorf("parsing ingest flags: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.SetupStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			a.Logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	chunker := ingest.Chunker{Size: cfg.ChunkSize, Overlap: cfg.ChunkOverlap}
	result, err := ingest.New(a.Store, chunker, a.Logger.With("component", "ingest")).Folder(ctx, dir, clearFirst)
	if err != nil {
		return fmt.Errorf("loading course folder: %w", err)
	}

	fmt.Printf("Loaded %q in %s\n", dir, result.Duration.Round(timePrecision))
	fmt.Printf("  Courses added:   %d\n", result.CoursesAdded)
	fmt.Printf("  Courses skipped: %d (already in the catalog)\n", result.CoursesSkipped)
	fmt.Printf("  Chunks added:    %d\n", result.ChunksAdded)
	if result.FilesFailed > 0 {
		fmt.Printf("  Files failed:    %d (see log for details)\n", result.FilesFailed)
	}
	return nil
}

// parseIngestFlags parses the ingest command arguments, supporting:
//   - lectern ingest ./materials           (positional folder)
//   - lectern ingest --clear ./materials   (wipe the index first)
func parseIngestFlags(args []string, defaultDir string) (dir string, clearFirst bool, err error) {
	ingestFlags := flag.NewFlagSet("ingest", flag.ContinueOnError)
	ingestFlags.SetOutput(os.Stderr)

	clearFlag := ingestFlags.Bool("clear", false, "Clear existing data before loading")

	// Positional folder comes first (lectern ingest ./materials --clear)
	dir = defaultDir
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		dir = args[0]
		args = args[1:]
	}

	if err := ingestFlags.Parse(args); err != nil {
		return "", false, err
	}
	if rest := ingestFlags.Args(); len(rest) > 0 {
		dir = rest[0]
	}
	if strings.TrimSpace(dir) == "" {
		return "", false, fmt.Errorf("course folder is required (positional argument or docs_dir config)")
	}

	return dir, *clearFlag, nil
}
