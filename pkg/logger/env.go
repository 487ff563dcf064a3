package logger

import (
	"os"
	"strings"
)

type Env string

const (
	EnvDev   Env = "dev"
	EnvStage Env = "stage"
	EnvProd  Env = "prod"
)

// EnvVar: переменная окружения со средой, если в конфиге она не задана.
const EnvVar = "APP_ENV"

// ParseEnv понимает синонимы; пустая или неизвестная строка даёт "".
func ParseEnv(raw string) Env {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "dev", "development", "local":
		return EnvDev
	case "stage", "staging", "preprod", "pre-production":
		return EnvStage
	case "prod", "production":
		return EnvProd
	default:
		return ""
	}
}

func DetectEnv() Env {
	if env := ParseEnv(os.Getenv(EnvVar)); env != "" {
		return env
	}
	return EnvDev
}
