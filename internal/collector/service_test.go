package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/brandpulse/brand-tracker/internal/config"
	"github.com/brandpulse/brand-tracker/internal/models"
	"github.com/brandpulse/brand-tracker/internal/normalize"
	"github.com/brandpulse/brand-tracker/internal/sentiment"
	"github.com/brandpulse/brand-tracker/internal/sources"
	"github.com/brandpulse/brand-tracker/internal/storage"
)

var fixedNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

// MockSource is a mock implementation of sources.Source
type MockSource struct {
	mock.Mock
	name string
}

func (m *MockSource) GetName() string { return m.name }

func (m *MockSource) IsEnabled() bool { return true }

func (m *MockSource) Fetch(ctx context.Context, query string, limit int, since time.Duration) ([]sources.RawRecord, error) {
	args := m.Called(ctx, query, limit, since)
	records, _ := args.Get(0).([]sources.RawRecord)
	return records, args.Error(1)
}

// MockNotificationService is a mock implementation of the notification service
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) SendReport(ctx context.Context, report *models.Report) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockNotificationService) SendAlert(ctx context.Context, alert *models.Alert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

// blockingSource hangs until its context is done
type blockingSource struct{ name string }

func (b *blockingSource) GetName() string { return b.name }
func (b *blockingSource) IsEnabled() bool { return true }
func (b *blockingSource) Fetch(ctx context.Context, query string, limit int, since time.Duration) ([]sources.RawRecord, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// sleepySource ignores its context and answers late
type sleepySource struct {
	name  string
	delay time.Duration
}

func (s *sleepySource) GetName() string { return s.name }
func (s *sleepySource) IsEnabled() bool { return true }
func (s *sleepySource) Fetch(ctx context.Context, query string, limit int, since time.Duration) ([]sources.RawRecord, error) {
	time.Sleep(s.delay)
	return tweets("late"), nil
}

func testConfig() *config.Config {
	return &config.Config{
		Brands: []config.BrandConfig{{
			Name:        "apple",
			Identifiers: []string{"Apple"},
		}},
		Interval:          time.Minute,
		SourceTimeout:     5 * time.Second,
		MinPosts:          20,
		Lookback:          7 * 24 * time.Hour,
		RetentionMaxAge:   7 * 24 * time.Hour,
		RetentionMaxCount: 1000,
	}
}

func tweets(ids ...string) []sources.RawRecord {
	records := make([]sources.RawRecord, len(ids))
	for i, id := range ids {
		records[i] = sources.RawRecord{
			"id":         id,
			"text":       "Apple tweet " + id,
			"created_at": fixedNow.Add(-time.Duration(i+1) * time.Hour).Format(time.RFC3339),
		}
	}
	return records
}

func newTestService(t *testing.T, cfg *config.Config, srcs ...sources.Source) (*Service, *storage.ResultStore) {
	t.Helper()
	files, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	store := storage.NewResultStore(files)

	clock := func() time.Time { return fixedNow }
	service := NewService(cfg, store, srcs, normalize.New(sentiment.NewKeywordScorer(), clock), nil)
	service.now = clock
	return service, store
}

func TestService_RunCycle_PartialFailure(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	healthy := &MockSource{name: "twitter"}
	healthy.On("Fetch", mock.Anything, "Apple", mock.Anything, mock.Anything).Return(tweets("1", "2", "3"), nil)
	failing := &MockSource{name: "reddit"}
	failing.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))

	service, store := newTestService(t, testConfig(), healthy, failing)

	stats, err := service.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.CycleNumber)
	assert.Equal(t, map[string]int{"twitter": 3, "reddit": 0}, stats.PlatformCounts)
	require.Contains(t, stats.Errors, "reddit")
	assert.NotContains(t, stats.Errors, "twitter")
	assert.True(t, stats.Saved)
	assert.Equal(t, 3, stats.NewMentions)

	posts, err := store.LoadPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 3)
	for _, p := range posts {
		assert.Equal(t, "twitter", p.Platform)
		assert.Equal(t, "apple", p.Brand)
		assert.Equal(t, models.TermBrand, p.BrandTracker.TermType)
	}

	var errorEntries []*logrus.Entry
	for _, entry := range hook.AllEntries() {
		if entry.Level <= logrus.ErrorLevel {
			errorEntries = append(errorEntries, entry)
		}
	}
	require.Len(t, errorEntries, 1)
	assert.Equal(t, "reddit", errorEntries[0].Data["platform"])
}

func TestService_RunCycle_FirstFailingTermAbortsPlatform(t *testing.T) {
	cfg := testConfig()
	cfg.Brands[0].Keywords = []string{"Apple store"}

	src := &MockSource{name: "news"}
	src.On("Fetch", mock.Anything, "Apple", mock.Anything, mock.Anything).Return(nil, errors.New("rate limited")).Once()

	service, _ := newTestService(t, cfg, src)

	stats, err := service.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Contains(t, stats.Errors["news"], "rate limited")
	src.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestService_RunCycle_HungSourceTimesOut(t *testing.T) {
	cfg := testConfig()
	cfg.SourceTimeout = 50 * time.Millisecond

	healthy := &MockSource{name: "twitter"}
	healthy.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(tweets("1"), nil)

	service, _ := newTestService(t, cfg, healthy, &blockingSource{name: "hackernews"})

	stats, err := service.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PlatformCounts["twitter"])
	assert.Contains(t, stats.Errors["hackernews"], context.DeadlineExceeded.Error())
}

func TestService_RunCycle_SourceIgnoringDeadline(t *testing.T) {
	cfg := testConfig()
	cfg.SourceTimeout = 50 * time.Millisecond

	healthy := &MockSource{name: "twitter"}
	healthy.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(tweets("1"), nil)

	service, _ := newTestService(t, cfg, healthy, &sleepySource{name: "hackernews", delay: 3 * time.Second})

	start := time.Now()
	stats, err := service.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, stats.PlatformCounts["twitter"])
	assert.Equal(t, 0, stats.PlatformCounts["hackernews"])
	assert.Contains(t, stats.Errors["hackernews"], context.DeadlineExceeded.Error())
}

func TestService_RunCycle_DedupesAcrossCycles(t *testing.T) {
	src := &MockSource{name: "twitter"}
	src.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(tweets("1", "2"), nil)

	service, store := newTestService(t, testConfig(), src)

	first, err := service.RunCycle(context.Background())
	require.NoError(t, err)
	second, err := service.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, first.NewMentions)
	assert.Equal(t, 0, second.NewMentions)
	assert.Equal(t, 2, second.CycleNumber)
	assert.Equal(t, 2, second.TotalMentions)

	posts, err := store.LoadPosts(context.Background())
	require.NoError(t, err)
	assert.Len(t, posts, 2)
}

func TestService_RunCycle_SkipsUnusableRecords(t *testing.T) {
	records := append(tweets("1"), sources.RawRecord{"id": "2", "text": "   "})
	src := &MockSource{name: "twitter"}
	src.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(records, nil)

	service, _ := newTestService(t, testConfig(), src)

	stats, err := service.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.PlatformCounts["twitter"])
}

func TestService_RunCycle_CancelledBeforeStart(t *testing.T) {
	service, _ := newTestService(t, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := service.RunCycle(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, service.Cycles())
}

func TestService_TryRunCycle_InFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	src := &MockSource{name: "twitter"}
	src.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			close(started)
			<-release
		}).
		Return(tweets("1"), nil).Once()

	service, _ := newTestService(t, testConfig(), src)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := service.RunCycle(context.Background())
		assert.NoError(t, err)
	}()

	<-started
	_, err := service.TryRunCycle(context.Background())
	assert.ErrorIs(t, err, ErrCycleInFlight)
	assert.ErrorIs(t, service.StartCycle(context.Background()), ErrCycleInFlight)

	close(release)
	wg.Wait()
}

func TestService_StartCycle(t *testing.T) {
	src := &MockSource{name: "twitter"}
	src.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(tweets("1"), nil)

	service, _ := newTestService(t, testConfig(), src)

	require.NoError(t, service.StartCycle(context.Background()))

	// Manual runs are refused until the background cycle releases the lock
	var stats models.CycleStats
	require.Eventually(t, func() bool {
		var err error
		stats, err = service.TryRunCycle(context.Background())
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)

	_, last := service.Snapshot()
	require.NotNil(t, last)
	assert.Equal(t, 2, stats.CycleNumber)
}

func TestService_Snapshot(t *testing.T) {
	src := &MockSource{name: "twitter"}
	src.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(tweets("1", "2"), nil)

	service, _ := newTestService(t, testConfig(), src)

	m, stats := service.Snapshot()
	assert.Nil(t, m)
	assert.Nil(t, stats)

	_, err := service.RunCycle(context.Background())
	require.NoError(t, err)

	m, stats = service.Snapshot()
	require.NotNil(t, m)
	require.NotNil(t, stats)
	assert.Equal(t, 2, m.TotalPosts)
	assert.Equal(t, 2, m.BrandMentions["Apple"])
	assert.Equal(t, 1, m.CycleNumber)
	assert.Equal(t, 1, stats.CycleNumber)
}

func TestService_NegativeSpikeAlert(t *testing.T) {
	records := make([]sources.RawRecord, 12)
	for i := range records {
		records[i] = sources.RawRecord{
			"id":         fmt.Sprintf("%d", i),
			"text":       "Apple support is terrible and awful, I hate it",
			"created_at": fixedNow.Add(-time.Hour).Format(time.RFC3339),
		}
	}
	src := &MockSource{name: "twitter"}
	src.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(records, nil)

	notifier := new(MockNotificationService)
	notifier.On("SendAlert", mock.Anything, mock.MatchedBy(func(a *models.Alert) bool {
		return a.Type == "urgent" && a.Mention != nil && a.Mention.Platform == "twitter"
	})).Return(nil).Once()

	service, _ := newTestService(t, testConfig(), src)
	service.notifier = notifier

	_, err := service.RunCycle(context.Background())
	require.NoError(t, err)
	notifier.AssertExpectations(t)

	// Nothing new in the second cycle, so no second alert
	_, err = service.RunCycle(context.Background())
	require.NoError(t, err)
	notifier.AssertNumberOfCalls(t, "SendAlert", 1)
}

func TestPlanTerms(t *testing.T) {
	brands := []config.BrandConfig{{
		Name:        "apple",
		Identifiers: []string{"Apple"},
		Keywords:    []string{"Apple store"},
		Hashtags:    []string{"wwdc"},
	}}

	tests := []struct {
		name     string
		platform string
		queries  []string
	}{
		{name: "twitter uses hashtag syntax", platform: "twitter", queries: []string{"Apple", "Apple store", "#wwdc"}},
		{name: "reddit searches hashtags as words", platform: "reddit", queries: []string{"Apple", "Apple store", "wwdc"}},
		{name: "news skips hashtags", platform: "news", queries: []string{"Apple", "Apple store"}},
		{name: "amazon uses identifiers only", platform: "amazon", queries: []string{"Apple"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var queries []string
			for _, term := range planTerms(tt.platform, brands) {
				queries = append(queries, term.Query)
				assert.Equal(t, "apple", term.Brand)
			}
			assert.Equal(t, tt.queries, queries)
		})
	}

	twitter := planTerms("twitter", brands)
	assert.Equal(t, "wwdc", twitter[2].Value)
	assert.Equal(t, models.TermHashtag, twitter[2].Type)
}

func TestTermLimit(t *testing.T) {
	tests := []struct {
		name      string
		minPosts  int
		platforms int
		terms     int
		expected  int
	}{
		{name: "even split", minPosts: 400, platforms: 2, terms: 4, expected: 50},
		{name: "platform floor", minPosts: 5, platforms: 4, terms: 1, expected: 10},
		{name: "term floor", minPosts: 100, platforms: 1, terms: 50, expected: 10},
		{name: "no terms", minPosts: 100, platforms: 0, terms: 0, expected: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, termLimit(tt.minPosts, tt.platforms, tt.terms))
		})
	}
}
