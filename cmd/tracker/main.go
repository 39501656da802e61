package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/brandpulse/brand-tracker/internal/api"
	"github.com/brandpulse/brand-tracker/internal/app"
	"github.com/brandpulse/brand-tracker/internal/collector"
	"github.com/brandpulse/brand-tracker/internal/config"
	"github.com/brandpulse/brand-tracker/internal/normalize"
	"github.com/brandpulse/brand-tracker/internal/notifications"
	"github.com/brandpulse/brand-tracker/internal/reports"
	"github.com/brandpulse/brand-tracker/internal/scheduler"
	"github.com/brandpulse/brand-tracker/internal/sentiment"
	"github.com/brandpulse/brand-tracker/internal/sources"
)

func main() {
	if err := run(); err != nil {
		logrus.Errorf("Brand tracker failed: %v", err)
		os.Exit(1)
	}
}

func run() error {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logFile := app.SetupLogging(cfg)
	defer logFile.Close()

	logrus.WithFields(logrus.Fields{
		"platforms": cfg.Platforms,
		"interval":  cfg.Interval.String(),
		"min_posts": cfg.MinPosts,
	}).Info("Starting brand tracker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	scorer, err := sentiment.New(cfg.SentimentEngine)
	if err != nil {
		return err
	}

	srcs, err := sources.NewRegistry(cfg)
	if err != nil {
		return err
	}

	var notifier notifications.NotificationInterface
	if cfg.NotificationsEnabled() {
		notifier = notifications.NewService(cfg)
	}

	collectorService := collector.NewService(cfg, store.ResultStore, srcs, normalize.New(scorer, nil), notifier)
	reportService := reports.NewService(cfg, store.ResultStore, notifier, collectorService)
	schedulerService := scheduler.NewService(cfg, collectorService, reportService)

	if err := schedulerService.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer schedulerService.Stop()

	reader := api.NewReader(store.ResultStore, cfg.TrackedIdentifiers())
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      api.NewServer(reader, collectorService, schedulerService).Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("HTTP server failed: %w", err)
			stop()
		}
	}()

	// Returns after MaxCycles or on SIGINT/SIGTERM, once any in-flight cycle is saved
	if err := schedulerService.Run(ctx, cfg.MaxCycles); err != nil {
		return err
	}

	logrus.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	select {
	case err := <-serverErr:
		return err
	default:
	}

	logrus.Info("Brand tracker stopped")
	return nil
}
