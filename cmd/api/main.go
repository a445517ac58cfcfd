package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/mdd-api/internal/api/http"
	"github.com/spec-kit/mdd-api/internal/api/http/handlers"
	"github.com/spec-kit/mdd-api/internal/auth"
	"github.com/spec-kit/mdd-api/internal/config"
	"github.com/spec-kit/mdd-api/internal/events"
	"github.com/spec-kit/mdd-api/internal/observability"
	"github.com/spec-kit/mdd-api/internal/persistence"
	"github.com/spec-kit/mdd-api/internal/repository"
	"github.com/spec-kit/mdd-api/internal/service"
	"github.com/spec-kit/mdd-api/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	codec, err := auth.NewTokenCodec(auth.TokenConfig{Secret: cfg.Auth.JWTSecret, TTL: cfg.Auth.TokenTTL})
	if err != nil {
		logger.Fatal("invalid token configuration", zap.Error(err))
	}

	corsPolicy := auth.DefaultCorsPolicy(cfg.CORS.AllowedOrigins...)
	if err := corsPolicy.Validate(); err != nil {
		logger.Fatal("invalid cors configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	pool := pg.PoolHandle()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	userRepo := repository.NewUserRepository(pool)

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo: userRepo,
		Tokens:   codec,
		Events:   dispatcher,
		Logger:   logger,
	})
	userService := service.NewUserService(cfg.Auth, userRepo, dispatcher, logger)

	authMiddleware := auth.NewAuthMiddleware(codec, userRepo, auth.NewRoutePolicy(cfg.Auth.PublicPaths), logger,
		auth.WithMetrics(metrics), auth.WithEvents(dispatcher))

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})
	httptransport.RegisterMiddlewares(app, httptransport.MiddlewareConfig{
		Logger:  logger,
		Metrics: metrics,
		Timeout: cfg.App.RequestTimeout(),
		Cors:    corsPolicy,
		Auth:    authMiddleware,
	})

	var redisCheck handlers.Pinger
	if redis.Handle() != nil {
		redisCheck = redis
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redisCheck),
		Auth:          handlers.NewAuthHandler(authService),
		Users:         handlers.NewUsersHandler(userService),
		LoginThrottle: httptransport.LoginThrottle(cfg.RateLimit, httptransport.NewRedisAttemptCounter(redis.Handle()), logger),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
