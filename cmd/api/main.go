package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"qrmenu/internal/auth"
	"qrmenu/internal/cache"
	"qrmenu/internal/config"
	"qrmenu/internal/database"
	"qrmenu/internal/handler"
	"qrmenu/internal/metrics"
	"qrmenu/internal/middleware"
	"qrmenu/internal/migrate"
	"qrmenu/internal/repository"
	"qrmenu/internal/router"
	"qrmenu/internal/service"
	"qrmenu/internal/upload"
)

func main() {
	// Prices go out as JSON numbers, the way menu clients send them.
	decimal.MarshalJSONWithoutQuotes = true

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger, "api")
	logger.Info().Msg("starting qrmenu API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if cfg.Migrations.AutoApply {
		if err := migrate.Apply(ctx, pool, logger); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	checks := map[string]handler.Pinger{"database": pool}

	// Redis backs idempotency replay and the login rate limit
	var (
		limiter     service.RateLimiter
		idempotency middleware.IdempotencyStore
	)
	if cfg.Redis.Enabled {
		redisClient, err := cache.New(ctx, cfg.Redis, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize redis: %w", err)
		}
		defer redisClient.Close()

		limiter = redisClient
		idempotency = redisClient
		checks["redis"] = redisClient
	} else {
		logger.Warn().Msg("redis disabled: no idempotency replay and no login rate limit")
	}

	m := metrics.New()

	// Initialize repositories
	adminRepo := repository.NewAdminRepository(pool, logger)
	menuRepo := repository.NewMenuRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)

	// Initialize services
	tokens := auth.NewTokens(cfg.Auth)
	authService := service.NewAuthService(adminRepo, tokens, limiter, cfg.Auth, logger)
	adminService := service.NewAdminService(adminRepo, logger)
	menuService := service.NewMenuService(menuRepo, adminRepo, logger)
	orderService := service.NewOrderService(orderRepo, adminRepo, m, logger)

	uploadStore, uploadDir, err := newUploadStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize upload store: %w", err)
	}
	uploader := upload.NewUploader(uploadStore, cfg.Upload.MaxBytes, logger)

	// Initialize HTTP handlers and router
	mux := router.New(router.Handlers{
		Health: handler.NewHealthHandler(checks, logger),
		Auth:   handler.NewAuthHandler(authService, logger),
		Admin:  handler.NewAdminHandler(adminService, logger),
		Menu:   handler.NewMenuHandler(menuService, logger),
		Order:  handler.NewOrderHandler(orderService, logger),
		Upload: handler.NewUploadHandler(uploader, logger),
	}, router.Options{
		APIKey:         cfg.Auth.APIKey,
		CORSOrigins:    cfg.Server.CORSOrigins,
		Authenticator:  authService,
		Metrics:        m,
		Idempotency:    idempotency,
		IdempotencyTTL: cfg.Redis.IdempotencyTTL,
		UploadDir:      uploadDir,
	}, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// newUploadStore returns the S3 store when S3 is enabled, otherwise a local
// directory store together with the directory to serve under /uploads/.
func newUploadStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (upload.Store, string, error) {
	if cfg.S3.Enabled {
		store, err := upload.NewS3Store(ctx, cfg.S3, logger)
		if err == nil {
			return store, "", nil
		}
		logger.Warn().Err(err).Msg("failed to initialise S3 store, storing uploads on local disk")
	}

	store, err := upload.NewLocalStore(cfg.Upload.Dir, cfg.Upload.BaseURL, logger)
	if err != nil {
		return nil, "", err
	}
	return store, cfg.Upload.Dir, nil
}
