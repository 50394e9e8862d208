package secretlogs

import (
	"context"

	"github.com/0101Programmer/one-time-secrets/internal/server/models"
)

type Repository interface {
	// Append writes one immutable audit entry. Entries are never updated
	// or deleted.
	Append(ctx context.Context, entry *models.SecretLog) error

	// FindByKey returns the audit trail for a secret key, oldest first.
	FindByKey(ctx context.Context, key string) ([]*models.SecretLog, error)
}
