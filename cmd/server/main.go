package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"cuenca-ubate/internal/config"
	"cuenca-ubate/internal/observability"
	"cuenca-ubate/internal/platform/cache"
	"cuenca-ubate/internal/platform/database"
	"cuenca-ubate/internal/platform/server"
	"cuenca-ubate/internal/platform/storage"
	"cuenca-ubate/internal/services"
	"cuenca-ubate/internal/web/handlers"
	"cuenca-ubate/internal/web/render"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obsCfg := observability.LoadConfig()
	if cfg.Logging != nil {
		obsCfg.LogLevel = cfg.Logging.Level
		obsCfg.LogFormat = cfg.Logging.Format
		obsCfg.LogOutput = cfg.Logging.Output
	}
	logger := observability.NewLogger(obsCfg)

	provider, err := observability.NewProvider(ctx, obsCfg)
	if err != nil {
		logger.Fatal(ctx).Err(err).Msg("Failed to initialize OpenTelemetry")
	}
	provider.RegisterErrorHandler(logger)
	logger.Debug(ctx).Bool("telemetry", provider.Enabled()).Msg("Telemetry configured")

	runErr := run(ctx, cfg, logger)
	if runErr != nil {
		logger.Error(ctx).Err(runErr).Msg("Server stopped with error")
	}

	if err := provider.Shutdown(context.Background()); err != nil {
		logger.Error(ctx).Err(err).Msg("Failed to flush telemetry")
	}
	if runErr != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *observability.Logger) error {
	infra, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}

	container, err := services.NewContainer(ctx, cfg, infra, logger)
	if err != nil {
		closeInfra(infra)
		return err
	}
	defer func() {
		if err := container.Close(); err != nil {
			logger.Warn(context.Background()).Err(err).Msg("Failed to release connections")
		}
	}()

	renderer, err := render.New()
	if err != nil {
		return err
	}
	srv := server.New(cfg, handlers.New(container, renderer).Routes())

	serveErr := make(chan error, 1)
	go func() {
		logger.Info(ctx).Str("address", srv.Addr).Str("environment", cfg.Environment).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info(context.Background()).Msg("Server shutting down...")
	if err := server.Shutdown(context.Background(), cfg, srv); err != nil {
		return err
	}
	logger.Info(context.Background()).Msg("Server exited")
	return nil
}

// connect opens the database, object storage and cache. Only storage is mandatory.
func connect(ctx context.Context, cfg *config.Config, logger *observability.Logger) (services.Infrastructure, error) {
	var infra services.Infrastructure

	if cfg.DatabaseURL != "" {
		db, err := database.NewConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return infra, err
		}
		applied, err := database.RunMigrations(ctx, db)
		if err != nil {
			_ = db.Close() //nolint:errcheck // Cleanup on startup failure
			return infra, err
		}
		logger.Info(ctx).Strs("migrations", applied).Msg("Database ready")
		infra.DB = db
	} else {
		logger.Warn(ctx).Msg("DATABASE_URL not set; saved plants and the subscriber mirror are disabled")
	}

	minioClient, err := storage.NewMinIOClient(ctx, cfg.Storage)
	if err != nil {
		closeInfra(infra)
		return infra, err
	}
	infra.Storage = minioClient

	if cfg.Cache != nil && cfg.Cache.Enabled {
		redisClient, err := cache.NewRedisClient(*cfg.Cache)
		if err != nil {
			logger.Warn(ctx).Err(err).Msg("Redis unavailable, continuing without shared cache")
		} else {
			infra.Redis = redisClient
		}
	}

	return infra, nil
}

func closeInfra(infra services.Infrastructure) {
	if infra.Redis != nil {
		_ = infra.Redis.Close() //nolint:errcheck // Cleanup on startup failure
	}
	if infra.DB != nil {
		_ = infra.DB.Close() //nolint:errcheck // Cleanup on startup failure
	}
}
