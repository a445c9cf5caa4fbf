// Package store provides durable key-value slots. Each slot holds one
// serialized document that is replaced wholesale on every save.
package store

import (
	"context"
)

// Store defines the narrow load/save interface the core persists through.
// Implementations: MemoryStore, LocalStore, RedisStore, PostgresStore, S3Store.
type Store interface {
	// Load returns the document stored under key.
	// Returns ErrNotFound when the slot has never been written.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save replaces the document stored under key.
	Save(ctx context.Context, key string, value []byte) error

	// Delete removes the slot. Deleting a missing slot is not an error.
	Delete(ctx context.Context, key string) error
}

// Config selects and configures a Store backend.
type Config struct {
	Provider  string // "memory", "local", "redis", "postgres" or "s3"
	LocalPath string
	KeyPrefix string

	RedisURL string

	S3Bucket      string
	S3Region      string
	S3Endpoint    string
	S3AccessKeyID string
	S3SecretKey   string
}
