package reports

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brandpulse/brand-tracker/internal/config"
	"github.com/brandpulse/brand-tracker/internal/metrics"
	"github.com/brandpulse/brand-tracker/internal/models"
	"github.com/brandpulse/brand-tracker/internal/notifications"
	"github.com/brandpulse/brand-tracker/internal/storage"
)

const (
	reportPrefix   = "reports/report_"
	reportMentions = 10
)

// CycleCounter reports how many collection cycles have run
type CycleCounter interface {
	Cycles() int
}

// Service renders the stored collection into a Markdown report, keeps the
// newest reports in the object store and sends each one to the notifier
type Service struct {
	config   *config.Config
	store    *storage.ResultStore
	notifier notifications.NotificationInterface
	cycles   CycleCounter
	now      func() time.Time
}

// NewService creates a report publisher. notifier and cycles may be nil.
func NewService(cfg *config.Config, store *storage.ResultStore, notifier notifications.NotificationInterface, cycles CycleCounter) *Service {
	return &Service{
		config:   cfg,
		store:    store,
		notifier: notifier,
		cycles:   cycles,
		now:      time.Now,
	}
}

// Render builds a report from the current store contents without publishing it
func (s *Service) Render(ctx context.Context) (*models.Report, error) {
	posts, err := s.store.LoadPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load mentions: %w", err)
	}

	cycle := 0
	if s.cycles != nil {
		cycle = s.cycles.Cycles()
	}

	now := s.now().UTC()
	snapshot := metrics.Compute(posts, s.config.TrackedIdentifiers())
	snapshot.GeneratedAt = now
	snapshot.CycleNumber = cycle

	recent := posts
	if len(recent) > reportMentions {
		recent = recent[:reportMentions]
	}

	return &models.Report{
		GeneratedAt:   now,
		Period:        s.period(),
		TotalMentions: snapshot.TotalPosts,
		Mentions:      recent,
		Platforms:     snapshot.PlatformDistribution,
		Sentiment:     snapshot.SentimentDistribution,
		Markdown:      metrics.RenderMarkdown(snapshot, cycle, now),
	}, nil
}

// Publish renders, stores and sends a report. A delivery failure is returned
// alongside the report, which is stored regardless.
func (s *Service) Publish(ctx context.Context) (*models.Report, error) {
	report, err := s.Render(ctx)
	if err != nil {
		return nil, err
	}

	name := reportPrefix + report.GeneratedAt.Format("20060102T150405Z") + ".md"
	if err := s.store.Objects().Store(ctx, name, []byte(report.Markdown)); err != nil {
		return nil, fmt.Errorf("failed to store report: %w", err)
	}
	logrus.Infof("Generated report %s (%d mentions)", name, report.TotalMentions)

	if err := s.prune(ctx); err != nil {
		logrus.Warnf("Failed to prune old reports: %v", err)
	}

	if s.notifier != nil && s.config.NotificationsEnabled() {
		if err := s.notifier.SendReport(ctx, report); err != nil {
			return report, fmt.Errorf("failed to send report: %w", err)
		}
	}

	return report, nil
}

// prune deletes all but the newest ReportKeep reports. Names sort by time.
func (s *Service) prune(ctx context.Context) error {
	if s.config.ReportKeep <= 0 {
		return nil
	}

	objects := s.store.Objects()
	names, err := objects.List(ctx, reportPrefix)
	if err != nil {
		return err
	}
	if len(names) <= s.config.ReportKeep {
		return nil
	}

	sort.Strings(names)
	var errs []error
	for _, name := range names[:len(names)-s.config.ReportKeep] {
		if err := objects.Delete(ctx, name); err != nil && !errors.Is(err, storage.ErrNotFound) {
			errs = append(errs, err)
			continue
		}
		logrus.Debugf("Pruned report %s", name)
	}
	return errors.Join(errs...)
}

func (s *Service) period() string {
	days := int(s.config.RetentionMaxAge / (24 * time.Hour))
	switch {
	case days <= 0:
		return "all retained mentions"
	case days == 1:
		return "last day"
	default:
		return fmt.Sprintf("last %d days", days)
	}
}
