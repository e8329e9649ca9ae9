package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lectern/lectern/internal/config"
)

func TestApp_Close(t *testing.T) {
	t.Parallel()

	shutdownCalls := 0

	tests := []struct {
		name    string
		app     *App
		wantErr bool
	}{
		{"nil app", nil, false},
		{"zero value", &App{}, false},
		{
			"with tracing shutdown",
			&App{tracingShutdown: func(ctx context.Context) error {
				shutdownCalls++
				return nil
			}},
			false,
		},
		{
			"tracing shutdown failure",
			&App{tracingShutdown: func(ctx context.Context) error {
				return errors.New("exporter unreachable")
			}},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.app.Close()
			if (err != nil) != tt.wantErr {
				t.Errorf("Close() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if shutdownCalls != 1 {
		t.Errorf("tracing shutdown calls = %d, want 1", shutdownCalls)
	}
}

func TestApp_CloseIdempotent(t *testing.T) {
	t.Parallel()

	calls := 0
	a := &App{tracingShutdown: func(ctx context.Context) error {
		calls++
		return nil
	}}

	if err := a.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("tracing shutdown calls = %d, want 1", calls)
	}
}

func TestSetup_RequiresAPIKey(t *testing.T) {
	t.Parallel()

	// The key check runs before any database or network work, so an
	// otherwise-empty config is enough to exercise it.
	_, err := Setup(context.Background(), &config.Config{})
	if err == nil {
		t.Fatal("Setup() without API key should fail")
	}
	if !strings.Contains(err.Error(), "anthropic_api_key") {
		t.Errorf("error = %v, want mention of anthropic_api_key", err)
	}
}

func TestSetupStore_NilConfig(t *testing.T) {
	t.Parallel()

	_, err := SetupStore(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "config is required") {
		t.Errorf("SetupStore(nil) error = %v, want config is required", err)
	}
}

func TestSetupStore_InvalidConfig(t *testing.T) {
	t.Parallel()

	// Empty model name fails validation before tracing or the pool are touched.
	_, err := SetupStore(context.Background(), &config.Config{})
	if err == nil || !strings.Contains(err.Error(), "validating config") {
		t.Errorf("SetupStore() error = %v, want validation failure", err)
	}
}
