package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger. Production deployments set
// LOG_FORMAT=json for machine ingestion; the text handler is the local
// development default. The returned logger is also installed as the slog
// default so library code logging through slog.Default lands in the same
// stream.
func NewLogger(cfg *Config) *slog.Logger {
	var handler slog.Handler
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{AddSource: true})
	}
	logger := slog.New(handler).With(slog.String("service", "mosaic-auth"))
	slog.SetDefault(logger)
	return logger
}
