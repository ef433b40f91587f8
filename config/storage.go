package config

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-auth-client/storage"
	"github.com/goliatone/go-auth-client/storage/redisstore"
	"github.com/goliatone/go-auth-client/storage/sqlstore"
	goerrors "github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Storage backends
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQL    = "sql"
	BackendRedis  = "redis"
)

// StorageConfig selects and configures the durable session backend.
type StorageConfig struct {
	Backend string `env:"BACKEND" envDefault:"file"`

	// FilePath is the YAML file used by the file backend.
	FilePath string `env:"FILE_PATH" envDefault:".authclient/session.yaml"`
	// SealKey is a hex encoded 32 byte key. When set the file is encrypted.
	SealKey string `env:"SEAL_KEY"`

	SQLDSN       string `env:"SQL_DSN" envDefault:"file:authclient.db?cache=shared"`
	SQLNamespace string `env:"SQL_NAMESPACE" envDefault:"default"`

	RedisAddr   string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB     int           `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix string        `env:"REDIS_PREFIX" envDefault:"authclient:"`
	RedisTTL    time.Duration `env:"REDIS_TTL" envDefault:"0s"`
}

// Sanitize normalizes the backend name and falls back to memory for
// unknown values.
func (c *StorageConfig) Sanitize() {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case BackendMemory, BackendFile, BackendSQL, BackendRedis:
	default:
		c.Backend = BackendMemory
	}

	c.FilePath = strings.TrimSpace(c.FilePath)
	if c.Backend == BackendFile && c.FilePath == "" {
		c.Backend = BackendMemory
	}

	c.SealKey = strings.TrimSpace(c.SealKey)
	if c.RedisTTL < 0 {
		c.RedisTTL = 0
	}
}

// SealKeyBytes decodes SealKey. An empty key returns nil.
func (c StorageConfig) SealKeyBytes() ([]byte, error) {
	if c.SealKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.SealKey)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "seal key must be hex encoded").
			WithTextCode("INVALID_SEAL_KEY")
	}
	return key, nil
}

// CloseFunc releases resources held by a backend
type CloseFunc func() error

// Open builds the configured backend. The returned CloseFunc is never nil.
func (c StorageConfig) Open(ctx context.Context) (authclient.Storage, CloseFunc, error) {
	noop := func() error { return nil }

	switch c.Backend {
	case BackendFile:
		var opts []storage.FileOption
		key, err := c.SealKeyBytes()
		if err != nil {
			return nil, noop, err
		}
		if key != nil {
			opts = append(opts, storage.WithSealKey(key))
		}
		file, err := storage.NewFile(c.FilePath, opts...)
		if err != nil {
			return nil, noop, err
		}
		return file, noop, nil

	case BackendSQL:
		sqldb, err := sql.Open(sqliteshim.ShimName, c.SQLDSN)
		if err != nil {
			return nil, noop, fmt.Errorf("open sql storage: %w", err)
		}
		db := bun.NewDB(sqldb, sqlitedialect.New())
		if err := sqlstore.CreateTable(ctx, db); err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		return sqlstore.New(db, sqlstore.WithNamespace(c.SQLNamespace)), db.Close, nil

	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr: c.RedisAddr,
			DB:   c.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("connect redis storage at %s: %w", c.RedisAddr, err)
		}
		store := redisstore.New(client,
			redisstore.WithPrefix(c.RedisPrefix),
			redisstore.WithTTL(c.RedisTTL),
		)
		return store, client.Close, nil
	}

	return storage.NewMemory(), noop, nil
}
