package cmd

import (
	"fmt"
	"io"
	"os"
)

// runVersion prints version and environment information. It deliberately
// avoids config.Load so it works even with a broken config file.
func runVersion(w io.Writer) {
	fmt.Fprintf(w, "Lectern %s\n", AppVersion)
	fmt.Fprintf(w, "Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", GitCommit)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment:")
	fmt.Fprintf(w, "  ANTHROPIC_API_KEY: %s\n", keyStatus(os.Getenv("ANTHROPIC_API_KEY")))
	fmt.Fprintf(w, "  GEMINI_API_KEY:    %s\n", keyStatus(os.Getenv("GEMINI_API_KEY")))
}

// keyStatus reports key presence without revealing more than the edges.
func keyStatus(key string) string {
	if key == "" {
		return "not set"
	}
	if len(key) <= 8 {
		return "configured"
	}
	return fmt.Sprintf("%s...%s (configured)", key[:4], key[len(key)-4:])
}
