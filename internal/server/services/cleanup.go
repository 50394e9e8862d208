package services

import (
	"context"
	"fmt"
	"time"

	"github.com/0101Programmer/one-time-secrets/internal/dbx"
	"github.com/0101Programmer/one-time-secrets/internal/server/models"
)

const (
	// DefaultCleanupBatchSize bounds a single cleanup cycle.
	DefaultCleanupBatchSize = 100

	CleanupStatusSuccess = "success"
	CleanupStatusError   = "error"
)

// CleanupResult summarizes one reconciliation cycle.
type CleanupResult struct {
	DeletedCount int    `json:"deleted_count"`
	Status       string `json:"status"`
	Message      string `json:"message"`
}

// RunCleanupCycle soft-deletes up to batchSize expired secrets. Each secret
// commits in its own transaction so one bad row cannot roll back the rest of
// the batch. Status is "error" when any row failed, even if others succeeded.
func (s *SecretService) RunCleanupCycle(ctx context.Context, batchSize int) (*CleanupResult, error) {
	if batchSize <= 0 {
		batchSize = DefaultCleanupBatchSize
	}

	now := s.now()
	expired, err := s.repos.Secrets(s.db).SelectExpiredBatch(ctx, now, batchSize)
	if err != nil {
		return nil, fmt.Errorf("select expired: %w", err)
	}

	var deleted, failed int
	for _, secret := range expired {
		if err := s.cleanupOne(ctx, secret, now); err != nil {
			failed++
			s.logger.Error(ctx, "cleanup of expired secret failed",
				"secret_id", secret.ID, "error", err)
			continue
		}
		deleted++
	}

	result := &CleanupResult{DeletedCount: deleted}
	if failed > 0 {
		result.Status = CleanupStatusError
		result.Message = fmt.Sprintf("deleted %d expired secrets, %d failed", deleted, failed)
	} else {
		result.Status = CleanupStatusSuccess
		result.Message = fmt.Sprintf("deleted %d expired secrets", deleted)
	}
	return result, nil
}

func (s *SecretService) cleanupOne(ctx context.Context, secret *models.Secret, now time.Time) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Secrets(tx).MarkDeleted(ctx, secret.ID, now); err != nil {
			return err
		}
		return s.repos.SecretLogs(tx).Append(ctx, &models.SecretLog{
			SecretID:  &secret.ID,
			SecretKey: secret.SecretKey,
			Action:    models.ActionAutoCleanupExpired,
			IPAddress: models.SystemIPAddress,
			CreatedAt: now,
		})
	})
}
