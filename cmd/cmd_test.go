package cmd

import (
	"os"
	"strings"
	"testing"
)

// withArgs replaces os.Args for the duration of one Execute call.
func withArgs(t *testing.T, args ...string) {
	t.Helper()
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })
	os.Args = append([]string{"lectern"}, args...)
}

func TestExecute_UnknownCommand(t *testing.T) {
	withArgs(t, "bogus")

	err := Execute()
	if err == nil || !strings.Contains(err.Error(), "unknown command: bogus") {
		t.Errorf("Execute() error = %v, want unknown command", err)
	}
}

func TestExecute_Help(t *testing.T) {
	withArgs(t, "--help")

	if err := Execute(); err != nil {
		t.Errorf("Execute() error = %v, want nil for help", err)
	}
}

func TestExecute_Version(t *testing.T) {
	withArgs(t, "version")

	if err := Execute(); err != nil {
		t.Errorf("Execute() error = %v, want nil for version", err)
	}
}

func TestExecute_NoArgs(t *testing.T) {
	withArgs(t)

	if err := Execute(); err != nil {
		t.Errorf("Execute() error = %v, want help with nil error", err)
	}
}

func TestExecute_AskRequiresQuestion(t *testing.T) {
	withArgs(t, "ask")

	err := Execute()
	if err == nil || !strings.Contains(err.Error(), "usage: lectern ask") {
		t.Errorf("Execute() error = %v, want usage message", err)
	}
}
