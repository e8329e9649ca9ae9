package tools

import (
	"context"
	"fmt"
)

// Registry holds the tools offered to the model during one query and routes
// the model's call requests to them.
//
// A Registry and its tools are per-query state: attribution accumulates
// across the rounds of one generation and is reset between queries, so a
// registry must never be shared by concurrent queries.
type Registry struct {
	tools []Tool
	index map[string]int
}

// NewRegistry creates a registry with the given tools registered in order.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{index: make(map[string]int)}
	for _, tool := range tools {
		if err := r.Register(tool); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register stores a tool under its definition name. Registering a name
// twice replaces the earlier tool in place, keeping its original position;
// last registration wins.
func (r *Registry) Register(tool Tool) error {
	name := tool.Definition().Name
	if name == "" {
		return fmt.Errorf("tool definition has no name")
	}
	if i, ok := r.index[name]; ok {
		r.tools[i] = tool
		return nil
	}
	r.index[name] = len(r.tools)
	r.tools = append(r.tools, tool)
	return nil
}

// Definitions returns all registered definitions in registration order.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, len(r.tools))
	for i, tool := range r.tools {
		defs[i] = tool.Definition()
	}
	return defs
}

// Execute dispatches a model tool call to the named tool. An unknown name
// is reported as result text so the model can read it and adjust.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) string {
	i, ok := r.index[name]
	if !ok {
		return fmt.Sprintf("Tool '%s' not found", name)
	}
	return r.tools[i].Execute(ctx, args)
}

// AccumulatedSources concatenates every tool's last-execution attribution
// in registration order.
func (r *Registry) AccumulatedSources() []Source {
	var sources []Source
	for _, tool := range r.tools {
		sources = append(sources, tool.LastSources()...)
	}
	return sources
}

// ResetSources clears attribution on every registered tool. The
// orchestrator calls this once per query, after reading the sources.
func (r *Registry) ResetSources() {
	for _, tool := range r.tools {
		tool.ClearSources()
	}
}
