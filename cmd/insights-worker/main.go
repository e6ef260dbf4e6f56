package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"sfms/internal/amqp"
	"sfms/internal/backend"
	"sfms/internal/cache"
	"sfms/internal/cli"
	"sfms/internal/log"
	"sfms/internal/notifier"
	"sfms/internal/services"
	"sfms/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	boot := cli.SetupLogger("info", "text", log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(boot.Logger)
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, log.ComponentWorker)

	logger.Info("Starting insights-worker", log.FieldOperation, log.OpStartup, "backend", cfg.DataBackend)

	caches := cache.NewManager(logger.WithComponent(log.ComponentCache).Logger)
	caches.StartCleanup(time.Minute)
	defer caches.Stop()

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
	defer store.Close()

	var n notifier.Notifier = notifier.LogNotifier{}
	if cfg.EmailEnabled() {
		n = notifier.NewEmailSender(notifier.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SenderEmail,
		})
		logger.Info("Email notifications enabled", "smtp_host", cfg.SMTPHost)
	} else {
		logger.Info("SMTP not configured, notifications are logged only")
	}

	svc := services.NewInsightsService(store.Store)
	digest := worker.NewDigestScheduler(cfg.DigestCron, store.Store, svc, n)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	shutdownCtx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(context.Context) {
		cancel()
		digest.Stop()
	})

	if err := digest.Start(ctx); err != nil {
		logger.Error("Failed to start digest scheduler", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		alerts := worker.NewAlertHandler(store.Store, n)
		g.Go(func() error {
			return amqpClient.ConsumeAlerts(gctx, alerts.HandleAlert)
		})
	} else {
		logger.Info("AMQP_URL not set, affordability alerts are not consumed")
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		cancel()
		digest.Stop()
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Worker stopped gracefully")
}
