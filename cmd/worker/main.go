// Package main implements the entry point for the genbridge worker,
// the serial loop that executes queued generation tasks.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/genbridge/genbridge/internal/artifact"
	"github.com/genbridge/genbridge/internal/backoff"
	"github.com/genbridge/genbridge/internal/config"
	"github.com/genbridge/genbridge/internal/files"
	"github.com/genbridge/genbridge/internal/platform/logger"
	"github.com/genbridge/genbridge/internal/platform/postgres"
	"github.com/genbridge/genbridge/internal/provider"
	"github.com/genbridge/genbridge/internal/worker"
)

func main() {
	if err := runWorker(); err != nil {
		log.Fatalf("worker exited with error: %v", err)
	}
}

func runWorker() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logg := logger.Setup(cfg.Server.LogLevel)
	logg.Info("worker configuration loaded",
		"poll_interval", cfg.Worker.PollInterval.String(),
		"metrics_port", cfg.Worker.MetricsPort)

	db, err := postgres.Open(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := postgres.Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	artifacts, err := artifact.NewLocalStore(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open artifact store: %w", err)
	}

	tasks := postgres.NewTaskStore(db)
	fetcher := files.NewTelegramFetcher(cfg.Telegram.BotToken)

	providerClient := provider.NewClient(provider.Config{
		BaseURL:          cfg.Provider.BaseURL,
		Token:            cfg.Provider.Token,
		SubmitTimeout:    cfg.Provider.SubmitTimeout,
		PollHTTPTimeout:  cfg.Provider.PollHTTPTimeout,
		PollDeadline:     cfg.Provider.PollDeadline,
		MaxSubmitRetries: cfg.Provider.MaxSubmitRetries,
		MaxPollRetries:   cfg.Provider.MaxPollRetries,
		Retry:            backoff.Retry(),
		Poll:             backoff.Poll(),
	}, logg)

	executor := worker.NewExecutor(worker.Config{
		MaxInputFiles:       cfg.Limits.MaxInputFiles,
		MaxInputFileSizeMiB: cfg.Limits.MaxInputFileSizeMiB,
		DownloadDeadline:    cfg.Provider.DownloadDeadline,
		PublicBaseURL:       cfg.Storage.PublicBaseURL,
	}, tasks, providerClient, artifacts, fetcher)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := worker.NewMetrics(registry)

	loop := worker.NewWorker(tasks, executor, cfg.Worker.PollInterval, logg, metrics)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Worker.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var g run.Group

	// Task loop.
	{
		ctx, cancel := context.WithCancel(context.Background())
		g.Add(
			func() error {
				return loop.Run(ctx)
			},
			func(_ error) {
				cancel()
			},
		)
	}

	// Metrics and health endpoint.
	{
		g.Add(
			func() error {
				logg.Info("metrics server listening", "addr", metricsServer.Addr)
				return metricsServer.ListenAndServe()
			},
			func(_ error) {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = metricsServer.Shutdown(shutdownCtx)
			},
		)
	}

	// Signal handling.
	{
		g.Add(run.SignalHandler(context.Background(), syscall.SIGINT, syscall.SIGTERM))
	}

	err = g.Run()

	var sigErr run.SignalError
	if errors.As(err, &sigErr) {
		logg.Info("shutting down on signal", "signal", sigErr.Signal.String())
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
