package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init() {
	slog.SetDefault(New(os.Stdout, os.Getenv("ENVIRONMENT")))
}

// New builds a logger for the given environment name
func New(w io.Writer, environment string) *slog.Logger {
	var handler slog.Handler
	if strings.EqualFold(environment, "production") {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}
	return slog.New(handler)
}

// WithRequest returns a logger scoped to one summarization request.
func WithRequest(requestID, handle string) *slog.Logger {
	return slog.With(
		"request_id", requestID,
		"handle", handle,
	)
}

// WithJob returns a logger scoped to a scheduled job run.
func WithJob(name string) *slog.Logger {
	return slog.With("job", name)
}
