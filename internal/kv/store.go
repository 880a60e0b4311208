// Package kv provides the flat key-value slot stores that back record lists.
//
// A slot holds one opaque string (a serialized record list). Stores never interpret
// the value; absence is reported separately from errors so callers can seed.
package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownDriver is returned by Open for an unsupported driver name.
var ErrUnknownDriver = errors.New("unknown kv driver")

// Store is the persistence contract for one flat key-value namespace.
type Store interface {
	// Get returns the stored value and true, or "" and false when the key is absent.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Closer is implemented by stores that hold connections or file handles.
type Closer interface {
	Close() error
}

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverS3       = "s3"
)

// Config selects and parameterises a driver.
type Config struct {
	Driver      string
	SQLitePath  string
	PostgresURL string
	RedisURL    string
	S3          S3Config
}

// Open builds the store named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath)
	case DriverPostgres:
		return OpenPostgres(ctx, cfg.PostgresURL)
	case DriverRedis:
		return OpenRedis(ctx, cfg.RedisURL)
	case DriverS3:
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

// Close releases resources held by store when it implements Closer.
func Close(store Store) error {
	if c, ok := store.(Closer); ok {
		return c.Close()
	}
	return nil
}

// PrefixedStore namespaces every key under a fixed prefix.
type PrefixedStore struct {
	inner  Store
	prefix string
}

// WithPrefix wraps inner so each key is stored as prefix+key.
func WithPrefix(inner Store, prefix string) *PrefixedStore {
	return &PrefixedStore{inner: inner, prefix: prefix}
}

// Get implements Store.
func (p *PrefixedStore) Get(ctx context.Context, key string) (string, bool, error) {
	return p.inner.Get(ctx, p.prefix+key)
}

// Set implements Store.
func (p *PrefixedStore) Set(ctx context.Context, key, value string) error {
	return p.inner.Set(ctx, p.prefix+key, value)
}

// Delete implements Store.
func (p *PrefixedStore) Delete(ctx context.Context, key string) error {
	return p.inner.Delete(ctx, p.prefix+key)
}

// UserPrefix is the namespace used for one user's slots.
func UserPrefix(userID string) string {
	return "users/" + userID + "/"
}
