// Package services contains the secret lifecycle engine: creation,
// single-shot reads, soft deletion and expiry reconciliation. All state
// transitions and their audit entries commit in the same transaction.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/0101Programmer/one-time-secrets/internal/common"
	"github.com/0101Programmer/one-time-secrets/internal/cryptox"
	"github.com/0101Programmer/one-time-secrets/internal/dbx"
	"github.com/0101Programmer/one-time-secrets/internal/logging"
	"github.com/0101Programmer/one-time-secrets/internal/server/cache"
	"github.com/0101Programmer/one-time-secrets/internal/server/models"
	"github.com/0101Programmer/one-time-secrets/internal/server/repositories/repomanager"
)

const (
	// DefaultTTLSeconds applies when a caller omits ttl_seconds.
	DefaultTTLSeconds = 3600

	// DefaultCacheTTL bounds the fast-path mirror window. It is independent
	// of the secret's own TTL; the durable row stays the source of truth.
	DefaultCacheTTL = 300 * time.Second

	secretKeyBytes = 16
)

// SecretService is the lifecycle engine. It owns no global state: the DB
// handle, repositories, optional cache and the crypto envelope are injected
// at construction.
type SecretService struct {
	db       *sql.DB
	repos    repomanager.RepositoryManager
	cache    cache.Cache // nil disables the fast path
	envelope *cryptox.Envelope
	logger   logging.Logger
	cacheTTL time.Duration
	now      func() time.Time
}

// NewSecretService constructs the engine. cache may be nil.
func NewSecretService(
	db *sql.DB,
	repos repomanager.RepositoryManager,
	c cache.Cache,
	envelope *cryptox.Envelope,
	logger logging.Logger,
	cacheTTL time.Duration,
) *SecretService {
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &SecretService{
		db:       db,
		repos:    repos,
		cache:    c,
		envelope: envelope,
		logger:   logger.With("module", "secret_service"),
		cacheTTL: cacheTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create seals and persists a new secret and returns its caller-facing key.
// Nothing else ever leaves the engine: not the id, not the sealed material.
func (s *SecretService) Create(ctx context.Context, secretText string, passphrase *string, ttlSeconds *int, ipAddress string) (string, error) {
	ttl := DefaultTTLSeconds
	if ttlSeconds != nil {
		if *ttlSeconds <= 0 {
			return "", fmt.Errorf("%w: ttl_seconds must be positive", common.ErrValidation)
		}
		ttl = *ttlSeconds
	}

	key, err := common.MakeRandURLSafeString(secretKeyBytes)
	if err != nil {
		return "", fmt.Errorf("secret key generation error: %w", err)
	}

	ciphertext, err := s.envelope.Seal(secretText)
	if err != nil {
		return "", fmt.Errorf("seal error: %w", err)
	}
	passphraseCiphertext, err := s.envelope.SealOptional(passphrase)
	if err != nil {
		return "", fmt.Errorf("seal error: %w", err)
	}

	now := s.now()
	secret := &models.Secret{
		SecretKey:            key,
		Ciphertext:           ciphertext,
		PassphraseCiphertext: passphraseCiphertext,
		TTLSeconds:           ttl,
		CreatedAt:            now,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		id, err := s.repos.Secrets(tx).Insert(ctx, secret)
		if err != nil {
			return err
		}
		secret.ID = id
		return s.repos.SecretLogs(tx).Append(ctx, &models.SecretLog{
			SecretID:  &secret.ID,
			SecretKey: key,
			Action:    models.ActionSecretCreated,
			IPAddress: ipAddress,
			CreatedAt: now,
		})
	})
	if err != nil {
		return "", err
	}

	s.mirrorToCache(ctx, secret)

	return key, nil
}

// mirrorToCache is best effort: a failed mirror never fails creation.
func (s *SecretService) mirrorToCache(ctx context.Context, secret *models.Secret) {
	if s.cache == nil {
		return
	}
	entry := &cache.Entry{
		SecretID:             secret.ID,
		SecretKey:            secret.SecretKey,
		Ciphertext:           secret.Ciphertext,
		PassphraseCiphertext: secret.PassphraseCiphertext,
		TTLSeconds:           secret.TTLSeconds,
		CreatedAt:            secret.CreatedAt,
	}
	if err := s.cache.Set(ctx, secret.SecretKey, entry, s.cacheTTL); err != nil {
		s.logger.Warn(ctx, "cache mirror failed", "error", err)
	}
}

// Read serves a secret exactly once. Gate order: passphrase, expiry,
// already-consumed, then the atomic consume. Of N concurrent readers one
// wins and the rest observe the consumed state.
func (s *SecretService) Read(ctx context.Context, secretKey string, passphrase *string, ipAddress string) (string, error) {
	if plaintext, done, err := s.readFromCache(ctx, secretKey, passphrase, ipAddress); done {
		return plaintext, err
	}

	secret, err := s.repos.Secrets(s.db).FindByKey(ctx, secretKey, false)
	if err != nil {
		return "", err
	}
	return s.consume(ctx, secret, passphrase, ipAddress)
}

// readFromCache runs the fast path. done=false means "treat as a miss and
// take the durable path": the entry was absent, expired, or a cache/store
// error occurred. The durable row still gets consumed and audited on a hit,
// so the cache never becomes an unaudited side channel.
func (s *SecretService) readFromCache(ctx context.Context, secretKey string, passphrase *string, ipAddress string) (string, bool, error) {
	if s.cache == nil {
		return "", false, nil
	}

	entry, err := s.cache.GetDel(ctx, secretKey)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn(ctx, "cache read failed", "error", err)
		}
		return "", false, nil
	}

	now := s.now()
	expiresAt := entry.CreatedAt.UTC().Add(time.Duration(entry.TTLSeconds) * time.Second)
	if now.After(expiresAt) {
		// let the durable path run the expiry transition and its audit
		return "", false, nil
	}

	if err := s.checkPassphrase(ctx, entry.SecretID, secretKey, entry.PassphraseCiphertext, passphrase, ipAddress); err != nil {
		return "", true, err
	}

	plaintext, err := s.envelope.Open(entry.Ciphertext)
	if err != nil {
		s.logger.Warn(ctx, "cached ciphertext unreadable", "error", err)
		return "", false, nil
	}

	var won bool
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		ok, err := s.repos.Secrets(tx).MarkAccessed(ctx, entry.SecretID, now)
		if err != nil {
			return err
		}
		won = ok
		action := models.ActionAccessSuccessful
		if !ok {
			action = models.ActionAccessAttemptAlreadyUsed
		}
		return s.repos.SecretLogs(tx).Append(ctx, &models.SecretLog{
			SecretID:  &entry.SecretID,
			SecretKey: secretKey,
			Action:    action,
			IPAddress: ipAddress,
			CreatedAt: now,
		})
	})
	if err != nil {
		s.logger.Warn(ctx, "cache-path consume failed, falling back to store", "error", err)
		return "", false, nil
	}
	if !won {
		return "", true, common.ErrSecretConsumed
	}
	return plaintext, true, nil
}

// consume runs the durable-path gates against a loaded secret row.
func (s *SecretService) consume(ctx context.Context, secret *models.Secret, passphrase *string, ipAddress string) (string, error) {
	if err := s.checkPassphrase(ctx, secret.ID, secret.SecretKey, secret.PassphraseCiphertext, passphrase, ipAddress); err != nil {
		return "", err
	}

	now := s.now()
	if now.After(secret.ExpiresAt()) {
		err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			if err := s.repos.Secrets(tx).MarkDeleted(ctx, secret.ID, now); err != nil {
				return err
			}
			return s.repos.SecretLogs(tx).Append(ctx, &models.SecretLog{
				SecretID:  &secret.ID,
				SecretKey: secret.SecretKey,
				Action:    models.ActionAutoDeleteExpiredOnAccess,
				IPAddress: ipAddress,
				CreatedAt: now,
			})
		})
		if err != nil {
			return "", err
		}
		return "", common.ErrSecretExpired
	}

	if secret.IsAccessed {
		if err := s.audit(ctx, &secret.ID, secret.SecretKey, models.ActionAccessAttemptAlreadyUsed, ipAddress); err != nil {
			return "", err
		}
		return "", common.ErrSecretConsumed
	}

	// decrypt before mutating anything; a corrupt ciphertext must leave the
	// row untouched
	plaintext, err := s.envelope.Open(secret.Ciphertext)
	if err != nil {
		return "", err
	}

	var won bool
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		ok, err := s.repos.Secrets(tx).MarkAccessed(ctx, secret.ID, now)
		if err != nil {
			return err
		}
		won = ok
		action := models.ActionAccessSuccessful
		if !ok {
			action = models.ActionAccessAttemptAlreadyUsed
		}
		return s.repos.SecretLogs(tx).Append(ctx, &models.SecretLog{
			SecretID:  &secret.ID,
			SecretKey: secret.SecretKey,
			Action:    action,
			IPAddress: ipAddress,
			CreatedAt: now,
		})
	})
	if err != nil {
		return "", err
	}
	if !won {
		return "", common.ErrSecretConsumed
	}
	return plaintext, nil
}

// checkPassphrase enforces the passphrase gate. A mismatch or an unexpected
// passphrase is audited and rejected without consuming the secret.
func (s *SecretService) checkPassphrase(ctx context.Context, secretID int64, secretKey string, sealed *string, supplied *string, ipAddress string) error {
	if sealed == nil {
		if supplied == nil {
			return nil
		}
		if err := s.audit(ctx, &secretID, secretKey, models.ActionAccessAttemptFailed, ipAddress); err != nil {
			return err
		}
		return common.ErrPassphraseNotSet
	}

	stored, err := s.envelope.Open(*sealed)
	if err != nil {
		return err
	}

	if supplied == nil || subtle.ConstantTimeCompare([]byte(stored), []byte(*supplied)) != 1 {
		if err := s.audit(ctx, &secretID, secretKey, models.ActionAccessAttemptFailed, ipAddress); err != nil {
			return err
		}
		return common.ErrPassphraseMismatch
	}
	return nil
}

// Delete soft-deletes a secret by key.
// Returns:
//   - (true, id): deleted now
//   - (false, id): was already deleted, no new audit entry
//   - (false, nil): no such key
func (s *SecretService) Delete(ctx context.Context, secretKey string, ipAddress string) (bool, *int64, error) {
	secret, err := s.repos.Secrets(s.db).FindByKey(ctx, secretKey, true)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, nil, nil
		}
		return false, nil, err
	}

	if secret.IsDeleted {
		return false, &secret.ID, nil
	}

	now := s.now()
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Secrets(tx).MarkDeleted(ctx, secret.ID, now); err != nil {
			return err
		}
		return s.repos.SecretLogs(tx).Append(ctx, &models.SecretLog{
			SecretID:  &secret.ID,
			SecretKey: secretKey,
			Action:    models.ActionDeleteSuccessful,
			IPAddress: ipAddress,
			CreatedAt: now,
		})
	})
	if err != nil {
		return false, nil, err
	}
	return true, &secret.ID, nil
}

// Logs returns the audit trail for a secret key, oldest first.
func (s *SecretService) Logs(ctx context.Context, secretKey string) ([]*models.SecretLog, error) {
	return s.repos.SecretLogs(s.db).FindByKey(ctx, secretKey)
}

// audit writes a standalone audit entry (one with no accompanying state
// change). A failed audit write fails the operation.
func (s *SecretService) audit(ctx context.Context, secretID *int64, secretKey, action, ipAddress string) error {
	return s.repos.SecretLogs(s.db).Append(ctx, &models.SecretLog{
		SecretID:  secretID,
		SecretKey: secretKey,
		Action:    action,
		IPAddress: ipAddress,
		CreatedAt: s.now(),
	})
}
