// Package secrets holds short-lived, TTL-bound authentication state: MFA
// enrollment and challenge tickets, refresh token blacklist entries and SSO
// round-trip state.
package secrets

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a key is absent or has expired.
	ErrNotFound = errors.New("secrets: key not found")
	// ErrBackend wraps transport or server failures of the underlying store.
	ErrBackend = errors.New("secrets: backend unavailable")
)

// Store is a key-value store with per-key expiry. Expired keys behave exactly
// like absent keys. All operations are atomic per key.
type Store interface {
	// Get returns the value stored at key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set writes value at key, replacing any existing value and TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX writes value only if key is absent. It reports whether the
	// write happened.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// Take atomically reads and deletes key. Returns ErrNotFound if absent.
	Take(ctx context.Context, key string) ([]byte, error)
	// Incr increments the counter at key and returns the new value. The TTL
	// is applied in the same step whenever the counter has none.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// Delete removes keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	Ping(ctx context.Context) error
	Close() error
}
