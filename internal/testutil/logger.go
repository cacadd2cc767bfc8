package testutil

import "log/slog"

// DiscardLogger returns a logger that drops all records.
// Use it wherever a component needs a logger but the test does not
// assert on log output.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
