package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/brandpulse/brand-tracker/internal/config"
	"github.com/brandpulse/brand-tracker/internal/storage"
)

// SetupLogging configures the global logger from cfg. The returned closer
// flushes the log file, if any.
func SetupLogging(cfg *config.Config) io.Closer {
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	switch strings.ToLower(cfg.LogFormat) {
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	if cfg.LogFile == "" {
		logrus.SetOutput(os.Stdout)
		return nopCloser{}
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    50, // MB
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	}
	logrus.SetOutput(io.MultiWriter(os.Stdout, rotator))
	return rotator
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Store bundles the result store with the resources it holds open
type Store struct {
	*storage.ResultStore
	closers []func()
}

// Close releases connections opened for the store
func (s *Store) Close() {
	for _, c := range s.closers {
		c()
	}
}

// OpenStore builds the configured object store backend, wrapped in a result
// store that signals updates through Valkey when an address is configured
func OpenStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	var objects storage.ObjectStore
	switch cfg.StoreBackend {
	case "azblob":
		azure, err := storage.NewAzureStorage(ctx, cfg.StorageAccount, cfg.StorageContainer)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize blob storage: %w", err)
		}
		objects = azure
	default:
		files, err := storage.NewFileStore(cfg.ResultsDir)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file storage: %w", err)
		}
		objects = files
	}

	store := &Store{}
	var notifiers []storage.UpdateNotifier
	if cfg.ValkeyAddress != "" {
		client, err := storage.NewValkeyClient(ctx, cfg.ValkeyAddress, cfg.ValkeyPassword)
		if err != nil {
			return nil, err
		}
		store.closers = append(store.closers, client.Close)
		notifiers = append(notifiers, storage.NewValkeyNotifier(client, cfg.ValkeyChannel))
	}

	store.ResultStore = storage.NewResultStore(objects, notifiers...)
	logrus.Infof("Using %s result store", cfg.StoreBackend)
	return store, nil
}
