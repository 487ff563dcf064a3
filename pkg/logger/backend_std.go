package logger

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

func newStdHandler(cfg Config) slog.Handler {
	return slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     cfg.level(),
		AddSource: cfg.AddSource,
	})
}

func newTintHandler(cfg Config) slog.Handler {
	return tint.NewHandler(os.Stdout, &tint.Options{
		Level:      cfg.level(),
		AddSource:  cfg.AddSource,
		TimeFormat: time.TimeOnly,
		NoColor:    cfg.NoColor,
	})
}
