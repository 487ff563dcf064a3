package logger

import "log/slog"

var def *slog.Logger

// Init ставит глобальный slog по конфигу. Пустые поля выводятся из среды:
// в dev текстовый вывод, в stage/prod zap с JSON.
func Init(cfg Config) {
	cfg = cfg.withDefaults()

	var h slog.Handler
	switch cfg.Backend {
	case BackendZap:
		h = newZapHandler(cfg)
	case BackendTint:
		h = newTintHandler(cfg)
	default:
		h = newStdHandler(cfg)
	}

	h = traceHandler{h.WithAttrs(commonAttr(cfg))}

	base := slog.New(h)
	slog.SetDefault(base)
	def = base
}

func (cfg Config) withDefaults() Config {
	if cfg.Env == "" {
		cfg.Env = DetectEnv()
	}
	if cfg.Service == "" {
		cfg.Service = "liar-service"
	}
	cfg.InstanceID = instanceID(cfg.InstanceID)
	if cfg.Backend == "" {
		cfg.Backend = BackendZap
		if cfg.Env == EnvDev {
			cfg.Backend = BackendStd
		}
	}
	return cfg
}

// ForRoom: логгер с атрибутом комнаты.
func ForRoom(code string) *slog.Logger {
	return slog.Default().With(Room(code))
}

func L() *slog.Logger {
	if def != nil {
		return def
	}

	Init(Config{})
	return def
}

// ParseBackend: для значений из конфига; неизвестное значение даёт выбор по среде.
func ParseBackend(s string) Backend {
	switch Backend(s) {
	case BackendStd, BackendZap, BackendTint:
		return Backend(s)
	default:
		return ""
	}
}
