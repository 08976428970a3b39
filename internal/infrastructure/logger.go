package infrastructure

import (
	"log/slog"
	"os"
)

// SetupLogger installs a JSON slog handler as the process-wide default.
func SetupLogger(level slog.Level) {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}
