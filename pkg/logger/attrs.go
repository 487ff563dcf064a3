package logger

import (
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
)

// Ключи, общие для всех логов сервиса; по ним фильтруют записи одной комнаты.
const (
	KeyRoom        = "room"
	KeyParticipant = "participant"
	KeySession     = "session"
	KeyRound       = "round"
	KeyErr         = "err"
)

func Room(code string) slog.Attr { return slog.String(KeyRoom, code) }
func Participant(id string) slog.Attr { return slog.String(KeyParticipant, id) }
func Session(id string) slog.Attr { return slog.String(KeySession, id) }
func Round(idx int) slog.Attr { return slog.Int(KeyRound, idx) }
func Err(err error) slog.Attr { return slog.Any(KeyErr, err) }

// instanceID: hostname + короткий uuid, если в конфиге не задан.
func instanceID(v string) string {
	if v != "" {
		return v
	}
	hn, err := os.Hostname()
	if err != nil || hn == "" {
		hn = "liar"
	}
	return hn + "-" + uuid.NewString()[:8]
}

func commonAttr(cfg Config) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("service", cfg.Service),
		slog.String("env", string(cfg.Env)),
		slog.String("instance_id", cfg.InstanceID),
		slog.Time("started_at", time.Now()),
	}
	if cfg.Version != "" {
		attrs = append(attrs, slog.String("version", cfg.Version))
	}
	return attrs
}
