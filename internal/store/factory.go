package store

import (
	"context"
	"errors"
)

// NewStore creates a Store implementation based on configuration.
// db is only consulted for the "postgres" provider and may be nil otherwise.
func NewStore(ctx context.Context, cfg Config, db querier) (Store, error) {
	switch cfg.Provider {
	case "local", "":
		path := cfg.LocalPath
		if path == "" {
			path = "./data"
		}
		return NewLocalStore(path)
	case "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(ctx, cfg.RedisURL, cfg.KeyPrefix)
	case "postgres":
		if db == nil {
			return nil, errors.New("postgres store requires a database pool")
		}
		return NewPostgresStore(db), nil
	case "s3":
		return NewS3Store(ctx, cfg)
	default:
		return nil, ErrUnknownProvider(cfg.Provider)
	}
}
