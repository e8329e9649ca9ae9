// Package tools implements the model-facing capabilities of the assistant:
// semantic search over course content and course outline lookup, plus the
// registry the generation engine dispatches tool calls through.
//
// Tools return model-readable strings, never errors. Expected failures
// (no matching course, empty results, backend faults) are rendered as
// descriptive text so the model can read them and adapt; Go errors are
// reserved for programmer mistakes such as registering a nameless tool.
package tools

import "context"

// Definition describes a tool to the reasoning model: its name, what it
// does, and a JSON-schema fragment for its parameters. Definitions are
// built on demand and never mutated.
type Definition struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Tool is one model-invocable capability. Implementations keep the
// attribution of their most recent Execute in last-sources state with
// replace semantics: each call overwrites, an empty outcome clears.
type Tool interface {
	Definition() Definition

	// Execute runs the capability with the model-supplied arguments and
	// returns text for the model to read.
	Execute(ctx context.Context, args map[string]any) string

	// LastSources returns the attribution recorded by the most recent
	// Execute, in result order.
	LastSources() []Source

	// ClearSources resets attribution state.
	ClearSources()
}
