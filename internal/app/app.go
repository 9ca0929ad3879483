// Package app wires configuration, storage, services and the HTTP router
// into a runnable server. cmd/api and the end-to-end tests share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"marketplace/config"
	"marketplace/docs/api"
	httpHandler "marketplace/internal/adapter/http/handler"
	"marketplace/internal/adapter/http/middleware"
	"marketplace/internal/adapter/metrics"
	"marketplace/internal/adapter/storage/memory"
	pgStorage "marketplace/internal/adapter/storage/postgres"
	redisStorage "marketplace/internal/adapter/storage/redis"
	"marketplace/internal/core/ports"
	"marketplace/internal/service"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Option customises New.
type Option func(*options)

type options struct {
	redis   goredis.UniversalClient
	hashSvc ports.HashService
}

// WithRedisClient uses client instead of dialing cfg.Redis.
// The caller keeps ownership of the client.
func WithRedisClient(client goredis.UniversalClient) Option {
	return func(o *options) { o.redis = client }
}

// WithHashService overrides the default Argon2id parameters.
func WithHashService(h ports.HashService) Option {
	return func(o *options) { o.hashSvc = h }
}

// repositories is the storage surface the services depend on.
type repositories struct {
	users        ports.UserRepository
	wallets      ports.WalletRepository
	merchants    ports.MerchantRepository
	items        ports.ItemRepository
	transactions ports.TransactionRepository
	audit        ports.AuditRepository
	ledger       ports.Ledger
	health       ports.HealthChecker
}

// App is a fully wired marketplace server.
type App struct {
	cfg     *config.Config
	log     zerolog.Logger
	router  *gin.Engine
	audit   *service.AsyncAuditService
	memory  *memory.Store // set for the memory driver
	closers []func()
}

// New builds the application for cfg. Call Close when done.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	a := &App{cfg: cfg, log: log}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	repos, err := a.openStorage(ctx)
	if err != nil {
		return nil, err
	}
	checkers := []ports.HealthChecker{repos.health}

	var (
		idempCache ports.IdempotencyCache
		denylist   ports.TokenDenylist
		rateStore  ports.RateLimitStore
	)
	rdb := o.redis
	if rdb == nil && cfg.Redis.Enabled {
		client, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		rdb = client
	}
	if rdb != nil {
		idempCache = redisStorage.NewIdempotencyCache(rdb)
		denylist = redisStorage.NewTokenDenylist(rdb)
		if cfg.RateLimit.Enabled {
			rateStore = redisStorage.NewRateLimitStore(rdb)
		}
		checkers = append(checkers, redisStorage.NewHealthCheck(rdb))
	} else {
		log.Warn().Msg("redis disabled: no idempotency cache, token revocation or rate limiting")
	}

	var m *metrics.Metrics
	var purchaseMetrics ports.PurchaseMetrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		purchaseMetrics = m
	}

	hashSvc := o.hashSvc
	if hashSvc == nil {
		hashSvc = service.NewArgon2HashService()
	}
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	a.audit = service.NewAuditService(repos.audit, log)
	authSvc := service.NewAuthService(repos.users, hashSvc, tokenSvc, denylist, log)
	purchaseSvc := service.NewPurchaseService(repos.ledger, repos.transactions, idempCache, purchaseMetrics, service.PurchaseOptions{
		MaxAttempts:    cfg.Purchase.MaxAttempts,
		RetryBackoff:   cfg.Purchase.RetryBackoff,
		IdempotencyTTL: cfg.Purchase.IdempotencyTTL,
	}, log)

	a.router = httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		PurchaseSvc:    purchaseSvc,
		WalletSvc:      service.NewWalletService(repos.wallets, repos.ledger, log),
		MerchantSvc:    service.NewMerchantService(repos.merchants),
		ItemSvc:        service.NewItemService(repos.items, repos.merchants),
		TransactionSvc: service.NewTransactionService(repos.transactions, repos.wallets, repos.merchants),
		TokenSvc:       tokenSvc,
		TokenDenylist:  denylist,
		RateLimitStore: rateStore,
		RateLimitRules: middleware.RateLimitRules(cfg.RateLimit),
		HealthCheckers: checkers,
		AuditSvc:       a.audit,
		Metrics:        m,
		MetricsPath:    cfg.Metrics.Path,
		OpenAPISpec:    api.OpenAPI,
		Logger:         log,
	})

	ok = true
	return a, nil
}

func (a *App) openStorage(ctx context.Context) (*repositories, error) {
	switch a.cfg.Storage.Driver {
	case config.DriverMemory:
		store := memory.New()
		a.memory = store
		a.log.Warn().Msg("using in-memory storage, data is lost on exit")
		return &repositories{
			users:        store.Users(),
			wallets:      store.Wallets(),
			merchants:    store.Merchants(),
			items:        store.Items(),
			transactions: store.Transactions(),
			audit:        store.Audit(),
			ledger:       store,
			health:       store,
		}, nil

	case config.DriverPostgres:
		pool, err := pgStorage.NewPool(ctx, a.cfg.Database, a.log)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		if a.cfg.Storage.AutoMigrate {
			if err := pgStorage.Migrate(ctx, pool, a.log); err != nil {
				return nil, err
			}
		}
		return &repositories{
			users:        pgStorage.NewUserRepo(pool),
			wallets:      pgStorage.NewWalletRepo(pool),
			merchants:    pgStorage.NewMerchantRepo(pool),
			items:        pgStorage.NewItemRepo(pool),
			transactions: pgStorage.NewTransactionRepo(pool),
			audit:        pgStorage.NewAuditRepo(pool),
			ledger:       pgStorage.NewLedger(pool),
			health:       pgStorage.NewHealthCheck(pool),
		}, nil
	}
	return nil, fmt.Errorf("unsupported storage driver %q", a.cfg.Storage.Driver)
}

// Handler returns the HTTP handler of the application.
func (a *App) Handler() http.Handler {
	return a.router
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         a.cfg.Server.Addr(),
		Handler:      a.router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.log.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// Close flushes pending audit writes and releases storage connections.
func (a *App) Close() {
	if a.audit != nil {
		a.audit.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
