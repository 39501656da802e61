package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/brandpulse/brand-tracker/internal/app"
	"github.com/brandpulse/brand-tracker/internal/config"
	"github.com/brandpulse/brand-tracker/internal/notifications"
	"github.com/brandpulse/brand-tracker/internal/reports"
)

// Prints a report for the stored collection. With -publish the report is also
// stored and sent the same way the scheduled job does it.
func main() {
	publish := flag.Bool("publish", false, "store the report and send it to the configured channels")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	logFile := app.SetupLogging(cfg)
	defer logFile.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		logrus.Fatalf("Failed to open result store: %v", err)
	}
	defer store.Close()

	var notifier notifications.NotificationInterface
	if *publish && cfg.NotificationsEnabled() {
		notifier = notifications.NewService(cfg)
	}
	service := reports.NewService(cfg, store.ResultStore, notifier, nil)

	if !*publish {
		report, err := service.Render(ctx)
		if err != nil {
			logrus.Fatalf("Failed to render report: %v", err)
		}
		fmt.Println(report.Markdown)
		return
	}

	report, err := service.Publish(ctx)
	if report != nil {
		fmt.Println(report.Markdown)
	}
	if err != nil {
		logrus.Fatalf("Failed to publish report: %v", err)
	}
}
