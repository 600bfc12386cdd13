package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/dicri/evidence-service/internal/api/http"
	"github.com/dicri/evidence-service/internal/api/http/handlers"
	"github.com/dicri/evidence-service/internal/auth"
	"github.com/dicri/evidence-service/internal/config"
	"github.com/dicri/evidence-service/internal/events"
	"github.com/dicri/evidence-service/internal/observability"
	"github.com/dicri/evidence-service/internal/persistence"
	"github.com/dicri/evidence-service/internal/repository"
	"github.com/dicri/evidence-service/internal/service"
	"github.com/dicri/evidence-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var store repository.Store
	if pool := pg.PoolHandle(); pool != nil {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(cfg.Postgres.MigrationURL(), logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		store = repository.NewPostgresStore(pool)
	} else {
		store = repository.NewMemoryStore()
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTRefreshSecret, cfg.Auth.AccessTokenTTLMinutes, cfg.Auth.RefreshTokenTTLMinutes)

	userService := service.NewUserService(service.UserDependencies{Store: store, Hasher: hasher})
	authService := service.NewAuthService(service.AuthDependencies{
		Store:        store,
		Users:        userService,
		TokenManager: tokens,
		Hasher:       hasher,
	})
	caseFileService := service.NewCaseFileService(service.CaseFileDependencies{Store: store, Dispatcher: dispatcher})
	evidenceService := service.NewEvidenceService(service.EvidenceDependencies{Store: store, Dispatcher: dispatcher})
	statsService := service.NewStatsService(service.StatsDependencies{
		Store:  store,
		Cache:  repository.NewStatsCache(redis.Handle(), cfg.Stats.CacheTTL()),
		Logger: logger,
	})

	worker.Start(dispatcher, worker.Subscribers{
		Audit:        service.NewAuditService(service.AuditDependencies{Store: store, Logger: logger, Metrics: metrics}),
		Notification: service.NewNotificationService(logger, cfg.Notification),
		Stats:        statsService,
	})

	created, err := userService.EnsureAdmin(ctx, cfg.Bootstrap)
	if err != nil {
		logger.Fatal("failed to bootstrap administrator", zap.Error(err))
	}
	if created {
		logger.Info("bootstrap administrator created", zap.String("email", cfg.Bootstrap.AdminEmail))
	}

	app := httptransport.NewApp(cfg.App.Name, logger, metrics,
		httptransport.MiddlewareConfig{
			Timeout:     cfg.App.RequestTimeout(),
			CORSOrigins: cfg.App.CORSOrigins,
			RateLimiter: httptransport.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
		},
		httptransport.RouteConfig{
			Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
			Auth:           handlers.NewAuthHandler(authService),
			Users:          handlers.NewUsersHandler(userService),
			CaseFiles:      handlers.NewCaseFilesHandler(caseFileService),
			Evidence:       handlers.NewEvidenceHandler(evidenceService),
			Stats:          handlers.NewStatsHandler(statsService),
			AuthMiddleware: auth.NewAuthMiddleware(tokens, store.Users()),
			LoginLimiter:   httptransport.NewRateLimiter(cfg.RateLimit.LoginPerSecond, cfg.RateLimit.LoginBurst),
			Metrics:        metrics,
		})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		return app.Listen(cfg.App.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped with error", zap.Error(err))
	}
}
