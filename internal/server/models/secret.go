// Package models defines the persisted entities of the secret lifecycle:
// the secrets themselves and their append-only audit trail.
package models

import "time"

// Secret is one durable burn-after-read secret. Payload and passphrase are
// stored sealed; PassphraseCiphertext is nil when no passphrase gate was set.
// IsAccessed and IsDeleted only ever flip false→true.
type Secret struct {
	ID                   int64
	SecretKey            string
	Ciphertext           string
	PassphraseCiphertext *string
	TTLSeconds           int
	CreatedAt            time.Time
	IsAccessed           bool
	IsDeleted            bool
	DeletedAt            *time.Time
}

// ExpiresAt returns the absolute expiry instant in UTC. Expiry is fixed at
// creation; there is no sliding window.
func (s *Secret) ExpiresAt() time.Time {
	return s.CreatedAt.UTC().Add(time.Duration(s.TTLSeconds) * time.Second)
}
