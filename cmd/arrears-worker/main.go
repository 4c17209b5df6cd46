package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"creche/internal/amqp"
	"creche/internal/cache"
	"creche/internal/cli"
	"creche/internal/log"
	"creche/internal/metrics"
	"creche/internal/services"
	"creche/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger(nil, log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg, log.ComponentApp)
	logger.Info("Starting arrears-worker", log.FieldOperation, log.OpStartup, log.FieldBackend, cfg.DataBackend)

	be := cli.InitBackend(context.Background(), logger, cfg)

	m := metrics.New()
	caches := cache.NewManager(func(removed int) {
		logger.WithComponent(log.ComponentCache).Debug("Expired cache entries removed", log.FieldCount, removed)
	})

	billing := services.NewBillingService(be.Store, services.BillingOptions{
		CacheSize: cfg.CacheSize,
		CacheTTL:  cfg.CacheTTL,
		Caches:    caches,
		Metrics:   m,
		Logger:    logger,
	})

	// publisher stays a nil interface when AMQP is disabled
	var publisher services.ReminderPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, reminders will be skipped",
				log.NewFields().WithComponent(log.ComponentAMQP).WithError(err, log.ErrorTypeNetwork).ToSlice()...)
		} else {
			amqpClient = client
			publisher = client
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided, reminders will be skipped")
	}

	reminders := services.NewReminderService(billing, be.Store, publisher,
		services.PolicyFor(cfg.ReminderPolicy, cfg.ReminderCooldown), m, logger)

	w := worker.NewArrearsWorker(reminders, worker.Config{
		Interval: cfg.ArrearsInterval,
		Location: cfg.Location(),
	}, logger)

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		mux.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
			rw.WriteHeader(http.StatusOK)
			_, _ = rw.Write([]byte("ok"))
		})
		metricsServer = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           log.Middleware(logger.WithComponent(log.ComponentMetrics))(mux),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("Metrics server listening", "addr", cfg.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", log.FieldError, err)
			}
		}()
	}

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.Stop(stopCtx); err != nil {
			logger.Warn("Worker did not stop cleanly", log.FieldError, err)
		}
		caches.Stop()
		if metricsServer != nil {
			_ = metricsServer.Shutdown(stopCtx)
		}
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		if be.Cleanup != nil {
			if err := be.Cleanup(); err != nil {
				logger.Warn("Backend cleanup failed", log.FieldError, err)
			}
		}
	})

	caches.StartCleanup(ctx, cfg.CacheTTL)
	if err := w.Start(ctx); err != nil {
		logger.Error("Failed to start arrears worker", log.FieldError, err)
		return
	}

	cli.WaitForShutdown(ctx, done)
}
