package app

import (
	"log/slog"
	"os"

	"service-dispatch/internal/config"
	"service-dispatch/internal/logx"
)

// NewLogger builds the process logger: JSON to stdout at the configured level.
func NewLogger(cfg *config.Config) logx.Logger {
	base := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logx.ParseLevel(cfg.LogLevel),
	}))
	return logx.NewSlogAdapter(base).With(logx.String("service", "service-dispatch"))
}
