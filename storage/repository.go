// Package storage persists game saves in a key-value repository and wraps it with the fail-open
// load/save/reset contract the game relies on.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned by Repository.Get when no value is stored under the key.
var ErrNotFound = errors.New("save not found")

// Repository is a string-keyed store of opaque values.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
	DialectBolt     Dialect = "bolt"
	DialectMemory   Dialect = "memory"
)

type Config struct {
	Dialect     string `env:"DB_DIALECT" envDefault:"sqlite"`
	SQLitePath  string `env:"DB_SQLITE_PATH" envDefault:"tmp/wood_empire.sqlite"`
	PostgresDSN string `env:"DB_POSTGRES_DSN"`
	DatabaseURL string `env:"DATABASE_URL"`
	BoltPath    string `env:"DB_BOLT_PATH" envDefault:"tmp/wood_empire.db"`
}

func (c Config) dialect() Dialect {
	d := strings.TrimSpace(strings.ToLower(c.Dialect))
	if d == "" {
		return DialectSQLite
	}
	return Dialect(d)
}

func (c Config) postgresDSN() string {
	if dsn := strings.TrimSpace(c.PostgresDSN); dsn != "" {
		return dsn
	}
	return strings.TrimSpace(c.DatabaseURL)
}

// Validate reports configuration problems without touching the filesystem or network.
func (c Config) Validate() error {
	switch c.dialect() {
	case DialectSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return errors.New("DB_SQLITE_PATH is required for sqlite")
		}
	case DialectPostgres:
		if c.postgresDSN() == "" {
			return errors.New("DB_DIALECT=postgres requires DB_POSTGRES_DSN or DATABASE_URL")
		}
	case DialectBolt:
		if strings.TrimSpace(c.BoltPath) == "" {
			return errors.New("DB_BOLT_PATH is required for bolt")
		}
	case DialectMemory:
	default:
		return fmt.Errorf("unsupported DB_DIALECT %q", c.Dialect)
	}
	return nil
}

// Open builds the repository selected by the config's dialect.
func Open(ctx context.Context, c Config, logger *slog.Logger) (Repository, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	switch d := c.dialect(); d {
	case DialectSQLite:
		if err := ensureDir(c.SQLitePath); err != nil {
			return nil, err
		}
		return OpenSQL(ctx, d, c.SQLitePath, logger)
	case DialectPostgres:
		return OpenSQL(ctx, d, c.postgresDSN(), logger)
	case DialectBolt:
		if err := ensureDir(c.BoltPath); err != nil {
			return nil, err
		}
		return OpenBolt(c.BoltPath)
	default:
		return NewMemoryRepository(), nil
	}
}

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create storage directory: %w", err)
	}
	return nil
}
