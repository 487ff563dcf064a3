package logger

import "log/slog"

type Backend string

const (
	BackendStd  Backend = "std"  // Text handler
	BackendZap  Backend = "zap"  // Slog-zap, JSON в stage/prod
	BackendTint Backend = "tint" // цветной вывод для локальной разработки
)

type Config struct {
	// Метаданные для логгера
	Service    string
	Version    string
	InstanceID string

	// Управление выводом
	Level   slog.Level
	Env     Env
	Backend Backend // default: zap для stage/prod, std для dev
	Debug   bool

	// Zap sampling
	SampleInitial    int
	SampleThereafter int
	SampleTick       int

	// AddSource в dev
	AddSource bool
	// NoColor отключает ANSI в tint (CI, файлы)
	NoColor bool
}

func (cfg Config) level() slog.Level {
	if cfg.Debug && cfg.Level == 0 {
		return slog.LevelDebug
	}
	return cfg.Level
}
