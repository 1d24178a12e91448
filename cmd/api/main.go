package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/credit-ledger/internal/api/http"
	"github.com/spec-kit/credit-ledger/internal/api/http/handlers"
	"github.com/spec-kit/credit-ledger/internal/auth"
	"github.com/spec-kit/credit-ledger/internal/config"
	"github.com/spec-kit/credit-ledger/internal/docstore"
	"github.com/spec-kit/credit-ledger/internal/events"
	"github.com/spec-kit/credit-ledger/internal/generator"
	"github.com/spec-kit/credit-ledger/internal/observability"
	"github.com/spec-kit/credit-ledger/internal/persistence"
	"github.com/spec-kit/credit-ledger/internal/repository"
	"github.com/spec-kit/credit-ledger/internal/service"
	"github.com/spec-kit/credit-ledger/internal/validation"
	"github.com/spec-kit/credit-ledger/internal/worker"
	apperrors "github.com/spec-kit/credit-ledger/pkg/util"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	var redis *persistence.Redis
	if cfg.Store.LockBackend == config.LockBackendRedis {
		redis, err = persistence.NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Fatal("failed to connect redis", zap.Error(err))
		}
		defer redis.Close()
	}

	store, closeStore, err := openStore(cfg, pg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer closeStore()

	locker, err := openLocker(cfg, pg, redis)
	if err != nil {
		logger.Fatal("failed to init locker", zap.Error(err))
	}
	logger.Info("document store ready",
		zap.String("backend", cfg.Store.Backend),
		zap.String("lock", cfg.Store.LockBackend),
	)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	v := validation.New(cfg.Auth.EmailDomain)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL(), cfg.Auth.PinTokenTTL())

	identities := repository.NewIdentityRepository(store, locker, cfg.Auth.StarterCredits)
	settingsRepo := repository.NewSettingsRepository(store, locker)
	accessRepo := repository.NewAccessRequestRepository(store, locker)
	purchaseRepo := repository.NewPurchaseRequestRepository(store, locker)
	analyticsRepo := repository.NewAnalyticsRepository(store, locker)

	gen := generator.NewBreakerGenerator(
		generator.NewHTTPGenerator(cfg.Generator.URL, cfg.Generator.Timeout()),
		generator.BreakerConfig{
			Name:             "generator",
			FailureThreshold: uint32(cfg.Generator.BreakerFailures),
			OpenTimeout:      cfg.Generator.BreakerOpen(),
		},
		logger,
	)

	accountService := service.NewAccountService(*cfg, service.AccountDependencies{
		Identities:     identities,
		Settings:       settingsRepo,
		AccessRequests: accessRepo,
		Validator:      v,
		Dispatcher:     dispatcher,
		Metrics:        metrics,
		Logger:         logger,
	})
	twoFactorService := service.NewTwoFactorService(identities, v, logger)
	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		Identities: identities,
		TwoFactor:  twoFactorService,
		Tokens:     tokens,
		Validator:  v,
		Logger:     logger,
	})
	ledgerService := service.NewLedgerService(service.LedgerDependencies{
		Identities: identities,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	accessService := service.NewAccessService(service.AccessDependencies{
		Identities:     identities,
		AccessRequests: accessRepo,
		Validator:      v,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	purchaseService := service.NewPurchaseService(purchaseRepo, v, logger)
	settingsService := service.NewSettingsService(settingsRepo, logger)
	analyticsService := service.NewAnalyticsService(analyticsRepo, dispatcher, logger)
	generationService := service.NewGenerationService(service.GenerationDependencies{
		Identities: identities,
		Settings:   settingsRepo,
		Ledger:     ledgerService,
		Generator:  gen,
		Validator:  v,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})

	worker.StartAnalyticsWorker(analyticsService)

	if cfg.Bootstrap.Email != "" {
		bootstrapAdmin(ctx, cfg.Bootstrap, accountService, logger)
	}

	app := fiber.New(fiber.Config{
		AppName:     cfg.App.Name,
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	deps := map[string]handlers.Pinger{
		"store": handlers.PingFunc(func(ctx context.Context) error {
			_, err := store.Read(ctx, repository.SettingsDocument)
			return err
		}),
	}
	if pg.Enabled() {
		deps["postgres"] = pg
	}
	if redis != nil {
		deps["redis"] = redis
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps),
		Auth:   handlers.NewAuthHandler(accountService, authService),
		Me: handlers.NewMeHandler(handlers.MeDependencies{
			Auth:       authService,
			TwoFactor:  twoFactorService,
			Ledger:     ledgerService,
			Access:     accessService,
			Purchases:  purchaseService,
			Generation: generationService,
		}),
		Admin: handlers.NewAdminHandler(handlers.AdminDependencies{
			Accounts:  accountService,
			Ledger:    ledgerService,
			Access:    accessService,
			Purchases: purchaseService,
			Settings:  settingsService,
			Analytics: analyticsService,
		}),
		AuthMiddleware:     auth.NewAuthMiddleware(tokens),
		Metrics:            metrics,
		LoginRatePerMinute: cfg.Auth.LoginRatePerMinute,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func openStore(cfg *config.Config, pg *persistence.Postgres, logger *zap.Logger) (docstore.Store, func(), error) {
	noop := func() {}
	switch cfg.Store.Backend {
	case config.StoreBackendMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return docstore.NewMemoryStore(), noop, nil
	case config.StoreBackendBadger:
		db, err := persistence.OpenBadger(cfg.Store.DataDir, logger)
		if err != nil {
			return nil, noop, err
		}
		return docstore.NewBadgerStore(db), func() { _ = db.Close() }, nil
	case config.StoreBackendPostgres:
		return docstore.NewPostgresStore(pg.PoolHandle()), noop, nil
	default:
		store, err := docstore.NewFileStore(cfg.Store.DataDir)
		return store, noop, err
	}
}

func openLocker(cfg *config.Config, pg *persistence.Postgres, redis *persistence.Redis) (docstore.Locker, error) {
	timeout := cfg.Store.LockTimeout()
	switch cfg.Store.LockBackend {
	case config.LockBackendFile:
		return docstore.NewFileLocker(cfg.Store.DataDir, timeout)
	case config.LockBackendRedis:
		return docstore.NewRedisLocker(redis.Client, redis.LockPrefix(), timeout, cfg.Store.LockLease()), nil
	case config.LockBackendPostgres:
		return docstore.NewPostgresLocker(pg.PoolHandle(), timeout), nil
	default:
		return docstore.NewMutexLocker(timeout), nil
	}
}

func bootstrapAdmin(ctx context.Context, cfg config.BootstrapConfig, accounts *service.AccountService, logger *zap.Logger) {
	admin, err := accounts.Bootstrap(ctx, service.SignupInput{
		Name:     cfg.Name,
		Email:    cfg.Email,
		Password: cfg.Password,
	})
	switch {
	case err == nil:
		logger.Info("bootstrap administrator created", zap.String("email", admin.Email))
	case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrDuplicateAccount):
		logger.Info("bootstrap skipped; accounts already exist", zap.String("email", cfg.Email))
	default:
		logger.Fatal("bootstrap administrator failed", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
