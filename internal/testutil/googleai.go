package testutil

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"

	"github.com/lectern/lectern/internal/config"
)

// ErrNoAPIKey signals that GEMINI_API_KEY is unset and real-embedder tests
// cannot run.
var ErrNoAPIKey = errors.New("GEMINI_API_KEY not set - skipping tests requiring a real embedder")

// GoogleAISetup bundles the resources for tests hitting the real Gemini
// embedding API.
type GoogleAISetup struct {
	Embedder ai.Embedder
	Genkit   *genkit.Genkit
	Logger   *slog.Logger
}

// SetupGoogleAI creates a real Gemini embedder. Skips the test when
// GEMINI_API_KEY is not set.
func SetupGoogleAI(t *testing.T) *GoogleAISetup {
	t.Helper()

	setup, err := SetupGoogleAIForMain()
	if err != nil {
		t.Skip(err)
	}
	return setup
}

// SetupGoogleAIForMain is the TestMain variant of SetupGoogleAI; callers
// decide how to treat a missing API key (usually by skipping the package).
func SetupGoogleAIForMain() (*GoogleAISetup, error) {
	if os.Getenv("GEMINI_API_KEY") == "" {
		return nil, ErrNoAPIKey
	}

	g := genkit.Init(context.Background(), genkit.WithPlugins(&googlegenai.GoogleAI{}))
	embedder := googlegenai.GoogleAIEmbedder(g, config.DefaultGeminiEmbedderModel)

	return &GoogleAISetup{
		Embedder: embedder,
		Genkit:   g,
		Logger:   DiscardLogger(),
	}, nil
}
