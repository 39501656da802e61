package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/brandpulse/brand-tracker/internal/config"
	"github.com/brandpulse/brand-tracker/internal/models"
	"github.com/brandpulse/brand-tracker/internal/storage"
)

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

type staticCycles int

func (c staticCycles) Cycles() int { return int(c) }

var start = time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, cfg *config.Config, notifier *MockNotificationService) (*Service, *storage.FileStore) {
	t.Helper()
	files, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	store := storage.NewResultStore(files)

	_, err = store.Save(context.Background(), models.Document{Posts: []models.Mention{
		{ID: "twitter_1", Platform: "twitter", Content: "Apple launch", Timestamp: start.Add(-time.Hour),
			BrandTracker: models.BrandTracker{Sentiment: models.Sentiment{Category: models.SentimentPositive, Score: 0.5}}},
		{ID: "news_1", Platform: "news", Content: "Apple earnings", Source: "Reuters", Timestamp: start.Add(-2 * time.Hour),
			BrandTracker: models.BrandTracker{Sentiment: models.Sentiment{Category: models.SentimentNeutral}}},
	}})
	require.NoError(t, err)

	service := NewService(cfg, store, nil, staticCycles(4))
	if notifier != nil {
		service.notifier = notifier
	}
	clock := start
	service.now = func() time.Time {
		clock = clock.Add(time.Hour)
		return clock
	}
	return service, files
}

func testConfig() *config.Config {
	return &config.Config{
		Brands:          []config.BrandConfig{{Name: "apple", Identifiers: []string{"Apple"}}},
		RetentionMaxAge: 7 * 24 * time.Hour,
		ReportKeep:      2,
	}
}

func TestService_Render(t *testing.T) {
	service, _ := newTestService(t, testConfig(), nil)

	report, err := service.Render(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalMentions)
	assert.Equal(t, "last 7 days", report.Period)
	assert.Equal(t, map[string]int{"twitter": 1, "news": 1}, report.Platforms)
	assert.Equal(t, 1, report.Sentiment[models.SentimentPositive])
	assert.Len(t, report.Mentions, 2)
	assert.Contains(t, report.Markdown, "# Brand Tracking Report - Cycle 4")
	assert.Contains(t, report.Markdown, "- **Apple**: 2 mentions")
}

func TestService_Publish_StoresAndPrunes(t *testing.T) {
	service, files := newTestService(t, testConfig(), nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := service.Publish(ctx)
		require.NoError(t, err)
	}

	names, err := files.List(ctx, "reports/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"reports/report_20240610T110000Z.md",
		"reports/report_20240610T120000Z.md",
	}, names)

	data, err := files.Retrieve(ctx, names[1])
	require.NoError(t, err)
	assert.Contains(t, string(data), "Total posts collected: **2**")
}

func TestService_Publish_Notifies(t *testing.T) {
	cfg := testConfig()
	cfg.TeamsWebhookURL = "https://example.com/webhook"

	notifier := new(MockNotificationService)
	notifier.On("SendReport", mock.Anything, mock.AnythingOfType("*models.Report")).Return(nil).Once()

	service, _ := newTestService(t, cfg, notifier)

	_, err := service.Publish(context.Background())
	require.NoError(t, err)
	notifier.AssertExpectations(t)
}

func TestService_Publish_DeliveryFailureStillStores(t *testing.T) {
	cfg := testConfig()
	cfg.NotificationEmail = "team@example.com"

	notifier := new(MockNotificationService)
	notifier.On("SendReport", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	service, files := newTestService(t, cfg, notifier)

	report, err := service.Publish(context.Background())
	require.Error(t, err)
	require.NotNil(t, report)

	names, err := files.List(context.Background(), "reports/")
	require.NoError(t, err)
	assert.Len(t, names, 1)
}

func TestService_Period(t *testing.T) {
	tests := []struct {
		name     string
		maxAge   time.Duration
		expected string
	}{
		{name: "unbounded", maxAge: 0, expected: "all retained mentions"},
		{name: "one day", maxAge: 24 * time.Hour, expected: "last day"},
		{name: "week", maxAge: 7 * 24 * time.Hour, expected: "last 7 days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Service{config: &config.Config{RetentionMaxAge: tt.maxAge}}
			assert.Equal(t, tt.expected, s.period())
		})
	}
}
