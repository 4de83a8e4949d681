package observability

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger builds the process-wide JSON logger. Every line carries the
// service name and environment so aggregated output from several
// deployments stays filterable.
func NewLogger(env string) *slog.Logger {
	return newLogger(env, os.Stdout)
}

func newLogger(env string, w io.Writer) *slog.Logger {
	level := slog.LevelInfo

	if env == "dev" {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(handler).With("service", "bookstore-api", "env", env)
}
