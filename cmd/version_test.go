package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestRunVersion(t *testing.T) {
	var buf bytes.Buffer
	runVersion(&buf)

	out := buf.String()
	for _, want := range []string{"Lectern", "Build Time:", "Git Commit:", "ANTHROPIC_API_KEY:"} {
		if !strings.Contains(out, want) {
			t.Errorf("version output missing %q:\n%s", want, out)
		}
	}
}

func TestKeyStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		key  string
		want string
	}{
		{"empty", "", "not set"},
		{"short", "sk-12", "configured"},
		{"long shows edges", "sk-ant-api-0123456789", "sk-a...6789 (configured)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := keyStatus(tt.key); got != tt.want {
				t.Errorf("keyStatus(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}
