// Package store persists the small amount of configuration the checker keeps across
// restarts: the last pasted channel list, a user-supplied YouTube API key and the quota counter.
package store

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Store is a string key/value backend.
type Store interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

type Config struct {
	Driver     string
	SQLitePath string
	Redis      RedisConfig
	Postgres   PostgresConfig
}

// Open connects the backend named by cfg.Driver.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case DriverMemory, "":
		return NewMemoryStore(), nil
	case DriverSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath, logger)
	case DriverRedis:
		return NewRedisStore(ctx, cfg.Redis, logger)
	case DriverPostgres:
		return NewPostgresStore(ctx, cfg.Postgres, logger)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
