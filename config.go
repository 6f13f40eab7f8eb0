package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pixil98/go-errors"

	"wood-empire/storage"
)

type Config struct {
	Addr           string        `env:"ADDR" envDefault:":8080"`
	SessionIdleTTL time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`
	AdminToken     string        `env:"ADMIN_TOKEN"`
	NATSURL        string        `env:"NATS_URL"`
	OTelEndpoint   string        `env:"OTEL_ENDPOINT"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string        `env:"LOG_FORMAT" envDefault:"text"`

	Storage storage.Config
}

// loadConfig reads an optional .env file and then the process environment. Variables already set
// in the environment win over the file.
func loadConfig(envFiles ...string) (Config, error) {
	for _, path := range envFiles {
		if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	el := errors.NewErrorList()

	if strings.TrimSpace(c.Addr) == "" {
		el.Add(fmt.Errorf("ADDR is required"))
	}
	if c.SessionIdleTTL <= 0 {
		el.Add(fmt.Errorf("SESSION_IDLE_TTL must be positive, got %s", c.SessionIdleTTL))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		el.Add(err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		el.Add(fmt.Errorf("unsupported LOG_FORMAT %q", c.LogFormat))
	}
	if err := c.Storage.Validate(); err != nil {
		el.Add(err)
	}

	return el.Err()
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return 0, fmt.Errorf("unsupported LOG_LEVEL %q", raw)
	}
	return level, nil
}

func newLogger(cfg Config, w io.Writer) *slog.Logger {
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
