package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type GRPC struct {
	Addr string `yaml:"addr"`
}

type HTTP struct {
	Addr         string   `yaml:"addr"`
	ReadTimeout  string   `yaml:"readTimeout"`
	WriteTimeout string   `yaml:"writeTimeout"`
	IdleTimeout  string   `yaml:"idleTimeout"`
	CORSOrigins  []string `yaml:"corsOrigins"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|stage|prod
	Service   string `yaml:"service"`   // liar-service
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap|tint
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
	NoColor   bool   `yaml:"noColor"`   // только для tint
}

type Storage struct {
	Driver string `yaml:"driver"` // postgres|memory
}

type Postgres struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
	Migrate  bool   `yaml:"migrate"`
}

// Redis пустой addr: кэш и pub/sub выключены.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	StateTTL string `yaml:"stateTTL"`
}

// AMQP пустой url: аудит только в хранилище.
type AMQP struct {
	URL   string `yaml:"url"`
	Queue string `yaml:"queue"`
}

type Game struct {
	GraceWindow          string  `yaml:"graceWindow"`
	RoundTransitionDelay string  `yaml:"roundTransitionDelay"`
	MaxTextLen           int     `yaml:"maxTextLen"`
	WSRateLimit          float64 `yaml:"wsRateLimit"`
	WSBurst              int     `yaml:"wsBurst"`
	WSSendBuffer         int     `yaml:"wsSendBuffer"`
	AuditBuffer          int     `yaml:"auditBuffer"`
}

type Config struct {
	HTTP     HTTP     `yaml:"http"`
	GRPC     GRPC     `yaml:"grpc"`
	Logging  Logging  `yaml:"logging"`
	Storage  Storage  `yaml:"storage"`
	Postgres Postgres `yaml:"postgres"`
	Redis    Redis    `yaml:"redis"`
	AMQP     AMQP     `yaml:"amqp"`
	Game     Game     `yaml:"game"`
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

func LoadConfig() (*Config, error) {
	// .env необязателен
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse разбирает yaml, подставляя ${ENV} переменные.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.GRPC.Addr == "" {
		return errors.New("grpc.addr is required")
	}
	switch c.Storage.Driver {
	case "":
		c.Storage.Driver = DriverPostgres
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("storage.driver: unknown %q", c.Storage.Driver)
	}
	if c.Storage.Driver == DriverPostgres && c.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if c.AMQP.URL != "" && c.AMQP.Queue == "" {
		c.AMQP.Queue = "liar.audit"
	}

	// установка дефолтов, если значения не указаны
	if c.Logging.Service == "" {
		c.Logging.Service = "liar-service"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	if c.Game.MaxTextLen <= 0 {
		c.Game.MaxTextLen = 500
	}
	if c.Game.WSRateLimit <= 0 {
		c.Game.WSRateLimit = 2
	}
	if c.Game.WSBurst <= 0 {
		c.Game.WSBurst = 5
	}
	if c.Game.WSSendBuffer <= 0 {
		c.Game.WSSendBuffer = 64
	}
	if c.Game.AuditBuffer <= 0 {
		c.Game.AuditBuffer = 256
	}
	return nil
}

func (h HTTP) Timeouts() (read, write, idle time.Duration) {
	return parseDurationOr(10*time.Second, h.ReadTimeout),
		parseDurationOr(15*time.Second, h.WriteTimeout),
		parseDurationOr(60*time.Second, h.IdleTimeout)
}

func (r Redis) TTL() time.Duration {
	return parseDurationOr(30*time.Minute, r.StateTTL)
}

func (g Game) Grace() time.Duration {
	return parseDurationOr(30*time.Second, g.GraceWindow)
}

func (g Game) TransitionDelay() time.Duration {
	return parseDurationOr(3*time.Second, g.RoundTransitionDelay)
}

// helper для парсинга timeout-ов
func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}
