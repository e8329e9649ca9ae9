package tools

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type stubTool struct {
	name    string
	result  string
	sources []Source

	calls   int
	gotArgs map[string]any
}

func (s *stubTool) Definition() Definition {
	return Definition{Name: s.name, Description: "stub", InputSchema: map[string]any{"type": "object"}}
}

func (s *stubTool) Execute(_ context.Context, args map[string]any) string {
	s.calls++
	s.gotArgs = args
	return s.result
}

func (s *stubTool) LastSources() []Source { return s.sources }

func (s *stubTool) ClearSources() { s.sources = nil }

func TestRegistry_Register_RequiresName(t *testing.T) {
	t.Parallel()
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() unexpected error: %v", err)
	}
	if err := r.Register(&stubTool{}); err == nil {
		t.Error("Register() with a nameless definition should fail")
	}
}

func TestNewRegistry_PropagatesRegisterError(t *testing.T) {
	t.Parallel()
	if _, err := NewRegistry(&stubTool{name: "ok"}, &stubTool{}); err == nil {
		t.Error("NewRegistry() with a nameless tool should fail")
	}
}

func TestRegistry_Definitions_RegistrationOrder(t *testing.T) {
	t.Parallel()
	r, err := NewRegistry(
		&stubTool{name: "alpha"},
		&stubTool{name: "beta"},
		&stubTool{name: "gamma"},
	)
	if err != nil {
		t.Fatalf("NewRegistry() unexpected error: %v", err)
	}

	defs := r.Definitions()
	want := []string{"alpha", "beta", "gamma"}
	if len(defs) != len(want) {
		t.Fatalf("len(Definitions()) = %d, want %d", len(defs), len(want))
	}
	for i, name := range want {
		if defs[i].Name != name {
			t.Errorf("Definitions()[%d].Name = %q, want %q", i, defs[i].Name, name)
		}
	}
}

func TestRegistry_Register_DuplicateReplaces(t *testing.T) {
	t.Parallel()
	first := &stubTool{name: "alpha", result: "old"}
	r, err := NewRegistry(first, &stubTool{name: "beta"})
	if err != nil {
		t.Fatalf("NewRegistry() unexpected error: %v", err)
	}

	replacement := &stubTool{name: "alpha", result: "new"}
	if err := r.Register(replacement); err != nil {
		t.Fatalf("Register() duplicate unexpected error: %v", err)
	}

	defs := r.Definitions()
	if len(defs) != 2 || defs[0].Name != "alpha" || defs[1].Name != "beta" {
		t.Errorf("Definitions() after replace = %v, want alpha (in place), beta", defs)
	}

	if got := r.Execute(context.Background(), "alpha", nil); got != "new" {
		t.Errorf("Execute(alpha) = %q, want the replacement's result", got)
	}
	if first.calls != 0 {
		t.Error("the replaced tool should no longer receive calls")
	}
}

func TestRegistry_Execute_Dispatches(t *testing.T) {
	t.Parallel()
	tool := &stubTool{name: "alpha", result: "alpha result"}
	r, err := NewRegistry(tool)
	if err != nil {
		t.Fatalf("NewRegistry() unexpected error: %v", err)
	}

	args := map[string]any{"query": "loops"}
	if got := r.Execute(context.Background(), "alpha", args); got != "alpha result" {
		t.Errorf("Execute() = %q, want %q", got, "alpha result")
	}
	if tool.calls != 1 {
		t.Errorf("tool calls = %d, want 1", tool.calls)
	}
	if diff := cmp.Diff(args, tool.gotArgs); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_Execute_UnknownTool(t *testing.T) {
	t.Parallel()
	r, err := NewRegistry(&stubTool{name: "alpha"})
	if err != nil {
		t.Fatalf("NewRegistry() unexpected error: %v", err)
	}

	got := r.Execute(context.Background(), "nonexistent_tool", nil)
	if got != "Tool 'nonexistent_tool' not found" {
		t.Errorf("Execute() = %q, want the not-found message", got)
	}
}

func TestRegistry_AccumulatedSources(t *testing.T) {
	t.Parallel()
	search := &stubTool{name: "search", sources: []Source{
		{Text: "Intro to Python - Lesson 3", Link: "https://example.com/python/3"},
		{Text: "Intro to Python - Lesson 4"},
	}}
	outline := &stubTool{name: "outline", sources: []Source{
		{Text: "Intro to Python", Link: "https://example.com/python"},
	}}
	r, err := NewRegistry(search, outline)
	if err != nil {
		t.Fatalf("NewRegistry() unexpected error: %v", err)
	}

	want := []Source{
		{Text: "Intro to Python - Lesson 3", Link: "https://example.com/python/3"},
		{Text: "Intro to Python - Lesson 4"},
		{Text: "Intro to Python", Link: "https://example.com/python"},
	}
	if diff := cmp.Diff(want, r.AccumulatedSources()); diff != "" {
		t.Errorf("AccumulatedSources() mismatch (-want +got):\n%s", diff)
	}

	r.ResetSources()
	if got := r.AccumulatedSources(); len(got) != 0 {
		t.Errorf("AccumulatedSources() after reset = %v, want none", got)
	}
}
