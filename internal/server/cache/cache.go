// Package cache provides the optional fast-path mirror for freshly created
// secrets. The durable store stays authoritative: entries live only for a
// short fixed window, and every cache failure is treated by callers as a
// miss, never as a request failure.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by GetDel when no entry exists for the key.
var ErrCacheMiss = errors.New("cache miss")

// Entry mirrors a sealed secret. It carries enough metadata for the
// lifecycle engine to run the passphrase and expiry gates without touching
// the durable row first. Nothing in an Entry is ever plaintext.
type Entry struct {
	SecretID             int64
	SecretKey            string
	Ciphertext           string
	PassphraseCiphertext *string
	TTLSeconds           int
	CreatedAt            time.Time
}

type Cache interface {
	// Set mirrors an entry under the secret key for at most ttl.
	Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error

	// GetDel atomically fetches and removes the entry, so two concurrent
	// readers can never both observe it. Absent keys yield ErrCacheMiss.
	GetDel(ctx context.Context, key string) (*Entry, error)

	Close() error
}
