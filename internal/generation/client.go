package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// RetryConfig configures retry behavior for model calls.
type RetryConfig struct {
	MaxRetries      int           // Maximum number of retry attempts
	InitialInterval time.Duration // Initial backoff interval
	MaxInterval     time.Duration // Maximum backoff interval
}

// DefaultRetryConfig returns sensible defaults for model API calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// apiClient adapts the Anthropic SDK client to Messenger.
type apiClient struct {
	client *anthropic.Client
}

func (c *apiClient) CreateMessage(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	return c.client.Messages.New(ctx, params)
}

// NewClient builds the production Messenger: the Anthropic SDK client
// wrapped with transient-fault retry.
func NewClient(apiKey string, logger *slog.Logger) (*RetryMessenger, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return NewRetryMessenger(&apiClient{client: &client}, DefaultRetryConfig(), logger), nil
}

// RetryMessenger decorates a Messenger with exponential backoff on
// transient faults. Non-transient errors fail immediately.
type RetryMessenger struct {
	inner  Messenger
	cfg    RetryConfig
	logger *slog.Logger
}

// NewRetryMessenger wraps inner with the given retry policy.
func NewRetryMessenger(inner Messenger, cfg RetryConfig, logger *slog.Logger) *RetryMessenger {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryMessenger{inner: inner, cfg: cfg, logger: logger}
}

// CreateMessage implements Messenger.
func (r *RetryMessenger) CreateMessage(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	delay := r.cfg.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		resp, err := r.inner.CreateMessage(ctx, params)
		if err == nil {
			if attempt > 0 {
				r.logger.Debug("model call succeeded after retry",
					"attempts", attempt+1,
					"elapsed", time.Since(start),
				)
			}
			return resp, nil
		}

		lastErr = err

		if !transientError(err) {
			return nil, err
		}

		// Last attempt, don't sleep
		if attempt == r.cfg.MaxRetries {
			break
		}

		r.logger.Debug("retrying model call",
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, r.cfg.MaxInterval)
		}
	}

	return nil, fmt.Errorf("model call failed after %d retries (elapsed: %v): %w",
		r.cfg.MaxRetries, time.Since(start), lastErr)
}

// statusCoder is implemented by SDK errors that carry an HTTP status.
type statusCoder interface {
	StatusCode() int
}

// transientPatterns groups error substrings by category, matched
// case-insensitively against err.Error(). The SDK includes the HTTP
// status line in its error text, so pattern matching catches API faults
// even when the typed check below does not apply.
var transientPatterns = [][]string{
	{"rate limit", "overloaded", "429"},          // rate limiting
	{"500", "502", "503", "504", "unavailable"},  // transient server errors
	{"connection reset", "timeout", "temporary"}, // network errors
}

// transientError reports whether err should trigger a retry.
func transientError(err error) bool {
	if err == nil {
		return false
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		code := sc.StatusCode()
		if code == 429 || (code >= 500 && code < 600) {
			return true
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, group := range transientPatterns {
		for _, pattern := range group {
			if strings.Contains(errStr, pattern) {
				return true
			}
		}
	}
	return false
}
