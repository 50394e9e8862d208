package secrets

import (
	"context"
	"time"

	"github.com/0101Programmer/one-time-secrets/internal/server/models"
)

type Repository interface {
	// Insert persists a new secret row and returns its assigned id.
	Insert(ctx context.Context, secret *models.Secret) (int64, error)

	// FindByKey loads a secret by its caller-facing key. When includeDeleted
	// is false, soft-deleted rows are invisible. Absent rows yield
	// common.ErrNotFound.
	FindByKey(ctx context.Context, key string, includeDeleted bool) (*models.Secret, error)

	// MarkAccessed consumes the secret: one conditional UPDATE flips
	// is_accessed and is_deleted together, guarded by is_accessed = false.
	// It returns false when the secret was already consumed, so concurrent
	// readers resolve to exactly one winner.
	MarkAccessed(ctx context.Context, id int64, now time.Time) (bool, error)

	// MarkDeleted soft-deletes the secret. Already-deleted rows are left
	// untouched; the transition is one-way.
	MarkDeleted(ctx context.Context, id int64, now time.Time) error

	// SelectExpiredBatch returns up to limit undeleted secrets whose
	// created_at + ttl_seconds lies before now. The filter runs store-side.
	SelectExpiredBatch(ctx context.Context, now time.Time, limit int) ([]*models.Secret, error)
}
