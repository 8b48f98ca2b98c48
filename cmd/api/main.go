package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/book-store-service/internal/api/http"
	"github.com/spec-kit/book-store-service/internal/api/http/handlers"
	"github.com/spec-kit/book-store-service/internal/auth"
	"github.com/spec-kit/book-store-service/internal/config"
	"github.com/spec-kit/book-store-service/internal/events"
	"github.com/spec-kit/book-store-service/internal/observability"
	"github.com/spec-kit/book-store-service/internal/persistence"
	"github.com/spec-kit/book-store-service/internal/repository"
	"github.com/spec-kit/book-store-service/internal/service"
	"github.com/spec-kit/book-store-service/internal/worker"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	keys, err := auth.LoadKeys(cfg.Auth.PrivateKeyPath, cfg.Auth.PublicKeyPath)
	if err != nil {
		logger.Fatal("failed to load signing keys", zap.Error(err))
	}

	mongo, err := persistence.NewMongo(ctx, cfg.Mongo, logger)
	if err != nil {
		logger.Fatal("failed to connect mongo", zap.Error(err))
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		_ = mongo.Close(closeCtx)
	}()

	if cfg.Mongo.RunMigrations {
		if err := persistence.RunMigrations(ctx, mongo, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	userRepo := repository.NewUserRepository(mongo.Collection(persistence.UsersCollection))
	bookRepo := repository.NewBookRepository(mongo.Collection(persistence.BooksCollection))
	revocations := repository.NewRevocationRepository(mongo.Collection(persistence.BlacklistCollection), logger)

	var revocationStore auth.RevocationStore = revocations
	if redis.Enabled() {
		revocationStore = repository.NewCachedRevocationStore(revocations, redis.Client, metrics, logger)
	}

	sessions, err := auth.NewSessionManager(auth.NewTokenCodec(keys), revocationStore, dispatcher, logger, auth.SessionConfig{
		AccessTTL:         cfg.Auth.AccessTTL(),
		RefreshTTL:        cfg.Auth.RefreshTTL(),
		RevocationTimeout: cfg.Auth.RevocationTimeout(),
	})
	if err != nil {
		logger.Fatal("invalid session configuration", zap.Error(err))
	}

	cookies := auth.NewCookies(cfg.App.IsProduction())
	gate := auth.NewGate(sessions, cookies, logger, metrics)

	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:   userRepo,
		Sessions:   sessions,
		Dispatcher: dispatcher,
		Logger:     logger,
		BcryptCost: cfg.Auth.BcryptCost,
	})
	bookService := service.NewBookService(bookRepo, logger)

	deps := map[string]handlers.Pinger{"mongo": mongo}
	if redis.Enabled() {
		deps["redis"] = redis
	}

	app := httptransport.NewServer(cfg.App.Name, logger, cfg.App.RequestTimeout(), httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps),
		Users:   handlers.NewUsersHandler(authService, cookies),
		Books:   handlers.NewBooksHandler(bookService),
		Gate:    gate,
		Metrics: metrics,
	})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
