package database

import (
	"context"
	"errors"
	"fmt"

	"apex-dashboard/internal/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ErrKeyNotFound is returned by Get when the entry does not exist.
var ErrKeyNotFound = errors.New("key not found")

// KVStore is the persistence port the dashboard engine writes through.
// Values are opaque bytes; absence is reported as ErrKeyNotFound.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// closer is implemented by adapters holding a connection.
type closer interface {
	Close(ctx context.Context) error
}

// NewDatabase opens the store selected by STORE_DRIVER and ties its
// connection to the fx lifecycle.
func NewDatabase(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (KVStore, error) {
	store, err := Open(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	log.Info("persistence store ready", zap.String("driver", cfg.StoreDriver))

	if c, ok := store.(closer); ok {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("closing persistence store", zap.String("driver", cfg.StoreDriver))
				return c.Close(ctx)
			},
		})
	}

	return store, nil
}

// Open builds a store without fx, for tools like dashctl.
func Open(ctx context.Context, cfg *config.Config) (KVStore, error) {
	switch cfg.StoreDriver {
	case "memory":
		return NewMemoryStore(), nil
	case "file", "":
		return NewFileStore(cfg.StorePath)
	case "mongo":
		return NewMongoStore(ctx, cfg.MongoURI, cfg.DBName)
	case "postgres":
		return NewSQLStore("postgres", cfg.PostgresDSN)
	case "sqlite":
		return NewSQLStore("sqlite", cfg.SQLitePath)
	case "redis":
		return NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix)
	case "s3":
		return NewS3Store(cfg.S3Region, cfg.S3Endpoint, cfg.S3Bucket, cfg.S3Prefix)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
