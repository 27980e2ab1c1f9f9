package httpserver

import "log/slog"

// newNoopLogger returns a logger that discards everything. Used until
// WithLogger installs a real one.
func newNoopLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
