package application

import (
	"log/slog"
	"os"
)

// ResolveLogger returns the provided logger or a default JSON logger writing
// to stdout when none was injected.
func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
