// Package cmd provides the Lectern CLI commands.
//
// Commands:
//   - chat: interactive terminal chat with Bubble Tea TUI
//   - ask: one-shot question, answer printed to stdout
//   - serve: HTTP API server
//   - ingest: load a course folder into the vector store
//   - mcp: Model Context Protocol server on stdio
//
// All long-running commands handle SIGINT/SIGTERM via context
// cancellation and shut down gracefully.
package cmd

import (
	"fmt"
	"os"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

// Execute is the main entry point for the Lectern CLI.
func Execute() error {
	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "chat":
		return runChat()
	case "ask":
		return runAsk(os.Args[2:])
	case "serve":
		return runServe(os.Args[2:])
	case "ingest":
		return runIngest(os.Args[2:])
	case "mcp":
		return runMCP()
	case "version", "--version", "-v":
		runVersion(os.Stdout)
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("Lectern - Ask questions about your course materials")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  lectern chat                 Start interactive chat mode")
	fmt.Println("  lectern ask \"<question>\"     Ask a single question and exit")
	fmt.Println("  lectern serve [addr]         Start HTTP API server (default: 0.0.0.0:8000)")
	fmt.Println("  lectern ingest [dir]         Load course documents (--clear rebuilds the index)")
	fmt.Println("  lectern mcp                  Start MCP server (for Claude Desktop/IDEs)")
	fmt.Println("  lectern --version            Show version information")
	fmt.Println("  lectern --help               Show this help")
	fmt.Println()
	fmt.Println("Chat commands (in interactive mode):")
	fmt.Println("  /courses           List loaded courses")
	fmt.Println("  /new               Start a fresh session")
	fmt.Println("  /help              Show available commands")
	fmt.Println("  /exit, /quit       Exit Lectern")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  ANTHROPIC_API_KEY  Required for chat/ask/serve: answer generation")
	fmt.Println("  GEMINI_API_KEY     Required for the default embedding provider")
	fmt.Println("  LECTERN_LOG_LEVEL  Optional: debug, info, warn, error")
}
