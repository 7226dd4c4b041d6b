// Package server initializes and runs the authkeeper server: it opens the
// credential and cache stores, applies migrations, builds the auth service
// and serves it over gRPC until a signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/cache"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/dmitrijs2005/authkeeper/internal/telemetry"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/authkeeper/internal/server/grpc"
)

const serviceName = "authkeeper"

type App struct {
	config      *config.Config
	logger      logging.Logger
	closers     []io.Closer
	authService *services.AuthService
}

// NewApp connects to the stores, applies migrations and builds the service
// graph. Nothing is served until Run.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	db, err := sql.Open(repomanager.DriverName, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	store, closer, err := newCacheStore(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache init error: %w", err)
	}

	app := &App{config: c, logger: logger, closers: []io.Closer{db}}
	if closer != nil {
		app.closers = append(app.closers, closer)
	}

	signer := auth.NewSigner(auth.SignerConfig{
		AccessSecret:  []byte(c.AccessTokenSecret),
		AccessTTL:     c.AccessTokenTTL,
		RefreshSecret: []byte(c.RefreshTokenSecret),
		RefreshTTL:    c.RefreshTokenTTL,
	})
	hasher := auth.NewBcryptHasher(c.BcryptCost)

	app.authService, err = services.NewAuthService(db, rm, store, signer, hasher, c, logger)
	if err != nil {
		app.close(ctx)
		return nil, err
	}

	logger.Info(ctx, "App initialized", "cache_backend", c.CacheBackend, "bcrypt_cost", hasher.Cost())
	return app, nil
}

// newCacheStore builds the configured cache backend. The returned closer
// is nil for backends that hold no connections.
func newCacheStore(ctx context.Context, c *config.Config) (cache.Store, io.Closer, error) {
	switch c.CacheBackend {
	case config.CacheBackendMemory:
		return cache.NewMemoryStore(), nil, nil
	case config.CacheBackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return cache.NewRedisStore(rdb), rdb, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", c.CacheBackend)
	}
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

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.authService)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) close(ctx context.Context) {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			app.logger.Warn(ctx, "close error", "error", err)
		}
	}
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// releases the stores.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, app.config.OTelEndpoint)
	if err != nil {
		app.logger.Warn(ctx, "tracing disabled", "error", err)
	}

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := shutdownTracing(context.Background()); err != nil {
		app.logger.Warn(ctx, "tracing shutdown error", "error", err)
	}
	app.close(ctx)
	app.logger.Info(ctx, "App stopped")
}
