package repomanager

import (
	"context"
	"database/sql"

	"github.com/0101Programmer/one-time-secrets/internal/dbx"
	"github.com/0101Programmer/one-time-secrets/internal/server/repositories/secretlogs"
	"github.com/0101Programmer/one-time-secrets/internal/server/repositories/secrets"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Secrets(db dbx.DBTX) secrets.Repository
	SecretLogs(db dbx.DBTX) secretlogs.Repository
}
