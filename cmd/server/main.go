// Package main implements the entry point for the genbridge API
// server, which accepts generation tasks from trusted clients and
// serves stored artifacts.
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

	"github.com/genbridge/genbridge/internal/api"
	"github.com/genbridge/genbridge/internal/artifact"
	"github.com/genbridge/genbridge/internal/config"
	"github.com/genbridge/genbridge/internal/platform/logger"
	"github.com/genbridge/genbridge/internal/platform/postgres"
)

func main() {
	if err := runServer(); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logg := logger.Setup(cfg.Server.LogLevel)
	logg.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)

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

	router := api.NewRouter(api.RouterConfig{
		APIKey: cfg.Server.APIKey,
		Tasks:  api.NewTaskHandler(tasks),
		Files:  api.NewFileHandler(artifacts),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var g run.Group

	// HTTP server.
	{
		g.Add(
			func() error {
				logg.Info("http server listening", "addr", server.Addr)
				return server.ListenAndServe()
			},
			func(_ error) {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = server.Shutdown(shutdownCtx)
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
	return err
}
