// Package secrets provides the PostgreSQL-backed repository for durable
// secret rows and their lifecycle flag transitions.
package secrets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/0101Programmer/one-time-secrets/internal/common"
	"github.com/0101Programmer/one-time-secrets/internal/dbx"
	"github.com/0101Programmer/one-time-secrets/internal/server/models"
)

// PostgresRepository implements secret storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const secretColumns = `id, secret_key, ciphertext, passphrase_ciphertext, ttl_seconds, created_at, is_accessed, is_deleted, deleted_at`

func (r *PostgresRepository) Insert(ctx context.Context, secret *models.Secret) (int64, error) {
	query := `
		INSERT INTO secrets (secret_key, ciphertext, passphrase_ciphertext, ttl_seconds, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id;
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		secret.SecretKey, secret.Ciphertext, secret.PassphraseCiphertext, secret.TTLSeconds, secret.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) FindByKey(ctx context.Context, key string, includeDeleted bool) (*models.Secret, error) {
	query := `SELECT ` + secretColumns + ` FROM secrets WHERE secret_key = $1`
	if !includeDeleted {
		query += ` AND is_deleted = false`
	}

	var item models.Secret
	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&item.ID, &item.SecretKey, &item.Ciphertext, &item.PassphraseCiphertext,
		&item.TTLSeconds, &item.CreatedAt, &item.IsAccessed, &item.IsDeleted, &item.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &item, nil
}

// MarkAccessed is the at-most-once read guard: the is_accessed check and the
// flag flip happen in a single statement, so of N concurrent readers exactly
// one sees rows affected = 1. A consumed secret is logically gone, hence
// is_deleted flips in the same statement.
func (r *PostgresRepository) MarkAccessed(ctx context.Context, id int64, now time.Time) (bool, error) {
	query := `
		UPDATE secrets
		SET is_accessed = true, is_deleted = true, deleted_at = $2
		WHERE id = $1 AND is_accessed = false;
	`
	res, err := r.db.ExecContext(ctx, query, id, now)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return true, nil
	case 0:
		return false, nil
	default:
		return false, fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func (r *PostgresRepository) MarkDeleted(ctx context.Context, id int64, now time.Time) error {
	query := `
		UPDATE secrets
		SET is_deleted = true, deleted_at = $2
		WHERE id = $1 AND is_deleted = false;
	`
	res, err := r.db.ExecContext(ctx, query, id, now)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n > 1 {
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
	return nil
}

func (r *PostgresRepository) SelectExpiredBatch(ctx context.Context, now time.Time, limit int) ([]*models.Secret, error) {
	query := `
		SELECT ` + secretColumns + ` FROM secrets
		WHERE is_deleted = false
		AND created_at + ttl_seconds * interval '1 second' < $1
		ORDER BY created_at
		LIMIT $2;
	`
	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select expired secrets: %w", err)
	}
	defer rows.Close()

	var result []*models.Secret
	for rows.Next() {
		var item models.Secret
		if err := rows.Scan(
			&item.ID, &item.SecretKey, &item.Ciphertext, &item.PassphraseCiphertext,
			&item.TTLSeconds, &item.CreatedAt, &item.IsAccessed, &item.IsDeleted, &item.DeletedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
