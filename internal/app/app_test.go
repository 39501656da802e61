package app

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandpulse/brand-tracker/internal/config"
	"github.com/brandpulse/brand-tracker/internal/models"
)

func TestSetupLogging(t *testing.T) {
	defer func() {
		logrus.SetOutput(os.Stderr)
		logrus.SetLevel(logrus.InfoLevel)
		logrus.SetFormatter(&logrus.TextFormatter{})
	}()

	tests := []struct {
		name      string
		cfg       *config.Config
		level     logrus.Level
		formatter logrus.Formatter
	}{
		{name: "json default", cfg: &config.Config{}, level: logrus.InfoLevel, formatter: &logrus.JSONFormatter{}},
		{name: "text debug", cfg: &config.Config{Debug: true, LogFormat: "TEXT"}, level: logrus.DebugLevel, formatter: &logrus.TextFormatter{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			closer := SetupLogging(tt.cfg)
			defer closer.Close()

			assert.Equal(t, tt.level, logrus.GetLevel())
			assert.IsType(t, tt.formatter, logrus.StandardLogger().Formatter)
		})
	}
}

func TestSetupLogging_File(t *testing.T) {
	defer logrus.SetOutput(os.Stderr)

	path := filepath.Join(t.TempDir(), "tracker.log")
	closer := SetupLogging(&config.Config{LogFile: path})
	logrus.Info("written to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestOpenStore_File(t *testing.T) {
	cfg := &config.Config{StoreBackend: "file", ResultsDir: filepath.Join(t.TempDir(), "results")}

	store, err := OpenStore(context.Background(), cfg)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Save(context.Background(), models.Document{Posts: []models.Mention{{ID: "x", Platform: "rss", Content: "c"}}})
	require.NoError(t, err)

	posts, err := store.LoadPosts(context.Background())
	require.NoError(t, err)
	assert.Len(t, posts, 1)
}

func TestOpenStore_UnreachableValkey(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	address := listener.Addr().String()
	require.NoError(t, listener.Close())

	cfg := &config.Config{
		StoreBackend:  "file",
		ResultsDir:    filepath.Join(t.TempDir(), "results"),
		ValkeyAddress: address,
		ValkeyChannel: "brand-tracker",
	}

	store, err := OpenStore(context.Background(), cfg)
	require.Error(t, err)
	assert.Nil(t, store)
	assert.Contains(t, err.Error(), "valkey")
}
