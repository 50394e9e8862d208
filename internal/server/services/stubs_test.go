package services

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/0101Programmer/one-time-secrets/internal/common"
	"github.com/0101Programmer/one-time-secrets/internal/cryptox"
	"github.com/0101Programmer/one-time-secrets/internal/dbx"
	"github.com/0101Programmer/one-time-secrets/internal/logging"
	"github.com/0101Programmer/one-time-secrets/internal/server/cache"
	"github.com/0101Programmer/one-time-secrets/internal/server/models"
	"github.com/0101Programmer/one-time-secrets/internal/server/repositories/secretlogs"
	"github.com/0101Programmer/one-time-secrets/internal/server/repositories/secrets"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// memSecretsRepo is an in-memory secrets.Repository with the same
// conditional-update semantics as the Postgres implementation.
type memSecretsRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.Secret

	markDeletedErr map[int64]error
}

func newMemSecretsRepo() *memSecretsRepo {
	return &memSecretsRepo{rows: make(map[int64]*models.Secret), markDeletedErr: make(map[int64]error)}
}

func (r *memSecretsRepo) Insert(ctx context.Context, secret *models.Secret) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	clone := *secret
	clone.ID = r.nextID
	r.rows[clone.ID] = &clone
	return clone.ID, nil
}

func (r *memSecretsRepo) FindByKey(ctx context.Context, key string, includeDeleted bool) (*models.Secret, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range r.rows {
		if row.SecretKey != key {
			continue
		}
		if row.IsDeleted && !includeDeleted {
			return nil, common.ErrNotFound
		}
		clone := *row
		return &clone, nil
	}
	return nil, common.ErrNotFound
}

func (r *memSecretsRepo) MarkAccessed(ctx context.Context, id int64, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok || row.IsAccessed {
		return false, nil
	}
	row.IsAccessed = true
	row.IsDeleted = true
	row.DeletedAt = &now
	return true, nil
}

func (r *memSecretsRepo) MarkDeleted(ctx context.Context, id int64, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.markDeletedErr[id]; err != nil {
		return err
	}
	row, ok := r.rows[id]
	if !ok || row.IsDeleted {
		return nil
	}
	row.IsDeleted = true
	row.DeletedAt = &now
	return nil
}

func (r *memSecretsRepo) SelectExpiredBatch(ctx context.Context, now time.Time, limit int) ([]*models.Secret, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []*models.Secret
	for _, row := range r.rows {
		if row.IsDeleted || !row.ExpiresAt().Before(now) {
			continue
		}
		clone := *row
		expired = append(expired, &clone)
	}
	slices.SortFunc(expired, func(a, b *models.Secret) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return int(a.ID - b.ID)
	})
	if len(expired) > limit {
		expired = expired[:limit]
	}
	return expired, nil
}

// get returns the live row for assertions.
func (r *memSecretsRepo) get(t *testing.T, id int64) *models.Secret {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	require.True(t, ok, "no row with id %d", id)
	clone := *row
	return &clone
}

// byKey returns the live row matching key, regardless of deletion state.
func (r *memSecretsRepo) byKey(t *testing.T, key string) *models.Secret {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range r.rows {
		if row.SecretKey == key {
			clone := *row
			return &clone
		}
	}
	t.Fatalf("no row with key %q", key)
	return nil
}

type memLogsRepo struct {
	mu      sync.Mutex
	entries []*models.SecretLog
}

func newMemLogsRepo() *memLogsRepo {
	return &memLogsRepo{}
}

func (r *memLogsRepo) Append(ctx context.Context, entry *models.SecretLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *entry
	r.entries = append(r.entries, &clone)
	return nil
}

func (r *memLogsRepo) FindByKey(ctx context.Context, key string) ([]*models.SecretLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var trail []*models.SecretLog
	for _, entry := range r.entries {
		if entry.SecretKey == key {
			clone := *entry
			trail = append(trail, &clone)
		}
	}
	return trail, nil
}

// actions returns the audit actions recorded for key, in append order.
func (r *memLogsRepo) actions(key string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var actions []string
	for _, entry := range r.entries {
		if entry.SecretKey == key {
			actions = append(actions, entry.Action)
		}
	}
	return actions
}

// stubRepoManager vends the same in-memory repos for every handle; the
// transactions opened by the engine still exercise dbx.WithTx.
type stubRepoManager struct {
	secrets *memSecretsRepo
	logs    *memLogsRepo
}

func (m *stubRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }

func (m *stubRepoManager) Secrets(db dbx.DBTX) secrets.Repository { return m.secrets }

func (m *stubRepoManager) SecretLogs(db dbx.DBTX) secretlogs.Repository { return m.logs }

// fakeClock lets tests move the engine's notion of now.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testEnv struct {
	svc     *SecretService
	secrets *memSecretsRepo
	logs    *memLogsRepo
	cache   *cache.MemoryCache
	clock   *fakeClock
}

var testDBSeq atomic.Int64

func newTestEnv(t *testing.T, withCache bool) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:svc%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	envelope, err := cryptox.NewEnvelope(bytes.Repeat([]byte{0x2a}, cryptox.KeySize))
	require.NoError(t, err)

	env := &testEnv{
		secrets: newMemSecretsRepo(),
		logs:    newMemLogsRepo(),
		clock:   newFakeClock(),
	}
	var c cache.Cache
	if withCache {
		env.cache = cache.NewMemoryCache()
		t.Cleanup(func() { _ = env.cache.Close() })
		c = env.cache
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	env.svc = NewSecretService(db, &stubRepoManager{secrets: env.secrets, logs: env.logs}, c, envelope, logger, time.Minute)
	env.svc.now = env.clock.Now
	return env
}

func ptr[T any](v T) *T { return &v }
