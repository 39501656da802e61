package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/brandpulse/brand-tracker/internal/metrics"
	"github.com/brandpulse/brand-tracker/internal/models"
)

// MockNotifier is a mock implementation of UpdateNotifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyUpdate(ctx context.Context, lastUpdated string) error {
	args := m.Called(ctx, lastUpdated)
	return args.Error(0)
}

var fixedNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, notifiers ...UpdateNotifier) (*ResultStore, *FileStore) {
	t.Helper()
	files, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	store := NewResultStore(files, notifiers...)
	store.now = func() time.Time { return fixedNow }
	return store, files
}

func samplePosts() []models.Mention {
	return []models.Mention{
		{ID: "twitter_1", Platform: "twitter", Content: "apple rocks", Timestamp: fixedNow.Add(-time.Hour)},
		{ID: "twitter_2", Platform: "twitter", Content: "apple again", Timestamp: fixedNow.Add(-2 * time.Hour)},
		{ID: "reddit_1", Platform: "reddit", Content: "thread", Timestamp: fixedNow.Add(-3 * time.Hour)},
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	files, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, files.Store(ctx, "reports/a.md", []byte("one")))
	require.NoError(t, files.Store(ctx, "reports/a.md", []byte("two")))
	require.NoError(t, files.Store(ctx, "results.json", []byte("{}")))

	data, err := files.Retrieve(ctx, "reports/a.md")
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	names, err := files.List(ctx, "reports/")
	require.NoError(t, err)
	assert.Equal(t, []string{"reports/a.md"}, names)

	require.NoError(t, files.Delete(ctx, "reports/a.md"))
	_, err = files.Retrieve(ctx, "reports/a.md")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, files.Delete(ctx, "reports/a.md"), ErrNotFound)
}

func TestFileStore_NoTempFilesLeft(t *testing.T) {
	ctx := context.Background()
	files, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, files.Store(ctx, "results.json", []byte("{}")))
	}

	entries, err := os.ReadDir(files.Root())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "results.json", entries[0].Name())
}

func TestFileStore_RejectsEscapingNames(t *testing.T) {
	files, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	tests := []struct {
		name string
	}{
		{name: "../outside.json"},
		{name: "/etc/passwd"},
		{name: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, files.Store(context.Background(), tt.name, []byte("x")))
		})
	}
}

func TestResultStore_LoadMissing(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)

	posts, err := store.LoadPosts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestResultStore_SaveRecomputesMetadata(t *testing.T) {
	store, files := newTestStore(t)
	ctx := context.Background()

	stale := models.Document{
		Metadata: models.Metadata{TotalPosts: 99, Platforms: map[string]int{"news": 42}},
		Posts:    samplePosts(),
	}
	saved, err := store.Save(ctx, stale)
	require.NoError(t, err)

	assert.Equal(t, 3, saved.Metadata.TotalPosts)
	assert.Equal(t, map[string]int{"twitter": 2, "reddit": 1}, saved.Metadata.Platforms)
	assert.True(t, saved.Metadata.DashboardUpdate)
	assert.Equal(t, fixedNow, saved.Metadata.LastUpdated)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved.Metadata, loaded.Metadata)
	require.Len(t, loaded.Posts, 3)
	assert.Equal(t, "twitter_1", loaded.Posts[0].ID)

	raw, err := os.ReadFile(filepath.Join(files.Root(), DocumentName))
	require.NoError(t, err)
	var shape map[string]any
	require.NoError(t, json.Unmarshal(raw, &shape))
	assert.Contains(t, shape, "metadata")
	assert.Contains(t, shape, "posts")

	last, err := store.LastUpdated(ctx)
	require.NoError(t, err)
	assert.Equal(t, fixedNow, last)
}

func TestResultStore_SaveEmptyWritesEmptyList(t *testing.T) {
	store, files := newTestStore(t)

	_, err := store.Save(context.Background(), models.Document{})
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(files.Root(), DocumentName))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"posts": []`)
}

func TestResultStore_CorruptDocument(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	store, files := newTestStore(t)
	ctx := context.Background()
	garbage := []byte(`{"metadata": {"total_posts": 3}, "posts": [`)
	require.NoError(t, files.Store(ctx, DocumentName, garbage))

	posts, err := store.LoadPosts(ctx)
	require.NoError(t, err)
	assert.Empty(t, posts)

	kept, err := files.Retrieve(ctx, CorruptName)
	require.NoError(t, err)
	assert.Equal(t, garbage, kept)

	var errorsLogged int
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.ErrorLevel {
			errorsLogged++
		}
	}
	assert.Equal(t, 1, errorsLogged)
}

func TestResultStore_LoadCorruptHasNoSideEffects(t *testing.T) {
	store, files := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, files.Store(ctx, DocumentName, []byte(`{not json`)))

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, ErrCorrupt)

	names, err := files.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{DocumentName}, names)
}

func TestResultStore_Notifiers(t *testing.T) {
	ok := new(MockNotifier)
	ok.On("NotifyUpdate", mock.Anything, fixedNow.Format(time.RFC3339Nano)).Return(nil)
	failing := new(MockNotifier)
	failing.On("NotifyUpdate", mock.Anything, mock.AnythingOfType("string")).Return(errors.New("connection refused"))

	store, _ := newTestStore(t, failing, ok)

	_, err := store.Save(context.Background(), models.Document{Posts: samplePosts()})
	require.NoError(t, err)

	ok.AssertExpectations(t)
	failing.AssertExpectations(t)
}

func TestResultStore_SaveMetrics(t *testing.T) {
	store, files := newTestStore(t)
	ctx := context.Background()

	snapshot := metrics.Compute(samplePosts(), []string{"apple"})
	require.NoError(t, store.SaveMetrics(ctx, snapshot))

	raw, err := files.Retrieve(ctx, MetricsName)
	require.NoError(t, err)

	var decoded metrics.Metrics
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, 3, decoded.TotalPosts)
	assert.Equal(t, 2, decoded.BrandMentions["apple"])
}
