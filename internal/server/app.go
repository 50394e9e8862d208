// Package server initializes and runs the one-time secrets server.
// It wires the database, migrations, optional Redis cache, the secret
// lifecycle service, the background reaper, and the HTTP endpoint, and
// handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/0101Programmer/one-time-secrets/internal/cryptox"
	"github.com/0101Programmer/one-time-secrets/internal/logging"
	"github.com/0101Programmer/one-time-secrets/internal/server/cache"
	"github.com/0101Programmer/one-time-secrets/internal/server/config"
	"github.com/0101Programmer/one-time-secrets/internal/server/httpapi"
	"github.com/0101Programmer/one-time-secrets/internal/server/reaper"
	"github.com/0101Programmer/one-time-secrets/internal/server/repositories/repomanager"
	"github.com/0101Programmer/one-time-secrets/internal/server/services"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger

	db     *sql.DB
	cache  cache.Cache
	svc    *services.SecretService
	reaper *reaper.Reaper
	server *http.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	var c cache.Cache
	if cfg.CacheEnabled {
		rc, err := cache.NewRedisCache(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			// the cache is an optimization; the server is fully functional without it
			logger.Warn(ctx, "redis unavailable, running without cache", "error", err)
		} else {
			c = rc
		}
	}

	envelope, err := cryptox.NewEnvelope(
		cryptox.DeriveKey([]byte(cfg.EncryptionKey), []byte(cfg.EncryptionSalt)))
	if err != nil {
		return nil, fmt.Errorf("envelope init error: %w", err)
	}

	svc := services.NewSecretService(db, repos, c, envelope, logger, cfg.CacheTTL)

	app := &App{
		config: cfg,
		logger: logger,
		db:     db,
		cache:  c,
		svc:    svc,
		reaper: reaper.New(svc, logger, cfg.CleanupInterval, cfg.CleanupBatchSize),
		server: &http.Server{
			Addr:    cfg.EndpointAddr,
			Handler: httpapi.NewRouter(svc, logger),
		},
	}
	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	app.logger.Info(ctx, "http server listening", "addr", app.config.EndpointAddr)

	if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	app.reaper.Start()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	<-ctx.Done()
	app.shutdown()

	wg.Wait()
}

func (app *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	app.logger.Info(ctx, "Shutting down...")

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error(ctx, "http shutdown error", "error", err)
	}
	if err := app.reaper.Stop(shutdownTimeout); err != nil {
		app.logger.Error(ctx, "reaper stop error", "error", err)
	}
	if app.cache != nil {
		if err := app.cache.Close(); err != nil {
			app.logger.Error(ctx, "cache close error", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
