// Package secretlogs provides the PostgreSQL-backed repository for the
// append-only audit trail of secret lifecycle events.
package secretlogs

import (
	"context"
	"fmt"

	"github.com/0101Programmer/one-time-secrets/internal/dbx"
	"github.com/0101Programmer/one-time-secrets/internal/server/models"
)

// PostgresRepository implements audit storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, entry *models.SecretLog) error {
	query := `
		INSERT INTO secret_logs (secret_id, secret_key, action, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5);
	`
	res, err := r.db.ExecContext(ctx, query,
		entry.SecretID, entry.SecretKey, entry.Action, entry.IPAddress, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
	return nil
}

func (r *PostgresRepository) FindByKey(ctx context.Context, key string) ([]*models.SecretLog, error) {
	query := `
		SELECT id, secret_id, secret_key, action, ip_address, created_at
		FROM secret_logs
		WHERE secret_key = $1
		ORDER BY created_at, id;
	`
	rows, err := r.db.QueryContext(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("failed to select logs: %w", err)
	}
	defer rows.Close()

	var result []*models.SecretLog
	for rows.Next() {
		var item models.SecretLog
		if err := rows.Scan(
			&item.ID, &item.SecretID, &item.SecretKey, &item.Action, &item.IPAddress, &item.CreatedAt,
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
