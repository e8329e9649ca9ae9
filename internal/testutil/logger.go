package testutil

import "log/slog"

// DiscardLogger returns a slog.Logger that discards all output, keeping
// test logs quiet. log.Logger aliases *slog.Logger, so this works anywhere
// the internal/log package does.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
