package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"sfms/internal/amqp"
	"sfms/internal/backend"
	"sfms/internal/cache"
	"sfms/internal/cli"
	apphttp "sfms/internal/http"
	"sfms/internal/log"
	"sfms/internal/services"
)

func main() {
	cli.LoadEnvFile()

	boot := cli.SetupLogger("info", "text", log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(boot.Logger)
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, log.ComponentApp)

	logger.Info("Starting sfms server", log.FieldOperation, log.OpStartup, "backend", cfg.DataBackend)

	caches := cache.NewManager(logger.WithComponent(log.ComponentCache).Logger)
	caches.StartCleanup(time.Minute)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	store, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger, caches).
		CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize record store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	var opts []services.Option
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// Alerts are best effort; the endpoint works without a broker.
			logger.Warn("AMQP unavailable, affordability alerts disabled", "error", err)
		} else {
			opts = append(opts, services.WithAlertPublisher(amqpClient))
			logger.Info("AMQP alert publishing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	svc := services.NewInsightsService(store.Store, opts...)

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RequestTimeout:     cfg.RequestTimeout,
		JWTSecret:          cfg.SupabaseJWTSecret,
	})
	if cfg.SupabaseJWTSecret == "" {
		logger.Warn("SUPABASE_JWT_SECRET not set, bearer tokens are not verified")
	}

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if amqpClient != nil {
			amqpClient.Close()
		}
		if err := store.Close(); err != nil {
			logger.Error("Failed to close record store", "error", err)
		}
		caches.Stop()
	})

	logger.Info("Listening", "port", cfg.Port, "path", apphttp.FunctionPath)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
