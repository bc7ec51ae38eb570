// Package main provides the entry point for the flight tracking service.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/skyward/flighttrack/internal/auth"
	"github.com/skyward/flighttrack/internal/client"
	"github.com/skyward/flighttrack/internal/config"
	"github.com/skyward/flighttrack/internal/metrics"
	"github.com/skyward/flighttrack/internal/server"
	"github.com/skyward/flighttrack/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	logger := initLogger()
	defer logger.Sync()

	logger.Info("starting flighttrack")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.Int("server_port", cfg.Server.Port),
		zap.String("storage_backend", cfg.Storage.Backend),
	)

	flightStore, err := newFlightStore(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize flight store", zap.Error(err))
	}
	defer flightStore.Close()

	logger.Info("flight store initialized", zap.String("backend", cfg.Storage.Backend))

	// Token verification with a short-lived cache in front of the identity
	// service.
	httpVerifier := auth.NewHTTPVerifier(cfg.Auth.Endpoint, cfg.Auth.Timeout, logger)
	tokenCache := store.NewInMemoryCache(cfg.Auth.CacheSize)
	verifier := auth.NewCachingVerifier(httpVerifier, tokenCache, cfg.Auth.CacheTTL)

	predictions := client.NewPredictionClient(cfg.Prediction.BaseURL, cfg.Prediction.Timeout, logger)

	m := metrics.NewMetrics()
	m.SetHealthStatus(true)

	var metricsServer *metrics.MetricsServer
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path, logger)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.Error("metrics server error", zap.Error(err))
			}
		}()
	}

	httpServer := server.NewServer(cfg, flightStore, verifier, predictions, m, logger)
	httpServer.SetupRoutes()

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil {
			errChan <- err
		}
	}()

	logger.Info("HTTP server started", zap.Int("port", cfg.Server.Port))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		logger.Error("server error", zap.Error(err))
	}

	logger.Info("initiating graceful shutdown")
	m.SetHealthStatus(false)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown HTTP server", zap.Error(err))
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			logger.Error("failed to shutdown metrics server", zap.Error(err))
		}
	}

	logger.Info("flighttrack shutdown complete")
}

// newFlightStore builds the configured storage backend. The choice is an
// infrastructure decision with no semantic effect on callers.
func newFlightStore(cfg *config.Config, logger *zap.Logger) (store.FlightStore, error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		return store.NewPostgresFlightStore(
			cfg.Storage.Postgres.Host,
			cfg.Storage.Postgres.Port,
			cfg.Storage.Postgres.Database,
			cfg.Storage.Postgres.User,
			cfg.Storage.Postgres.Password,
			cfg.Storage.Postgres.MaxConns,
			cfg.Storage.Postgres.MinConns,
			logger,
		)
	case config.BackendRedis:
		return store.NewRedisFlightStore(
			cfg.Storage.Redis.Host,
			cfg.Storage.Redis.Port,
			cfg.Storage.Redis.Password,
			cfg.Storage.Redis.DB,
			logger,
		)
	default:
		logger.Warn("using in-memory flight store, data will not survive restarts")
		return store.NewMemoryFlightStore(), nil
	}
}

// initLogger initializes the zap logger.
func initLogger() *zap.Logger {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	var level zapcore.Level
	switch logLevel {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	logFormat := os.Getenv("LOG_FORMAT")

	var config zap.Config
	if logFormat == "console" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}

	config.Level = zap.NewAtomicLevelAt(level)
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	logger, err := config.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}

	return logger
}
