package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/brandpulse/brand-tracker/internal/config"
	"github.com/brandpulse/brand-tracker/internal/merge"
	"github.com/brandpulse/brand-tracker/internal/metrics"
	"github.com/brandpulse/brand-tracker/internal/models"
	"github.com/brandpulse/brand-tracker/internal/normalize"
	"github.com/brandpulse/brand-tracker/internal/notifications"
	"github.com/brandpulse/brand-tracker/internal/sources"
)

// ErrCycleInFlight is returned by TryRunCycle while another cycle runs
var ErrCycleInFlight = errors.New("collection cycle already in progress")

const (
	alertMinMentions    = 10
	alertNegativeShare  = 0.5
	storeErrorKey       = "store"
	notificationTimeout = 30 * time.Second
)

// Store is the persistence the collector needs from the result store
type Store interface {
	LoadPosts(ctx context.Context) ([]models.Mention, error)
	Save(ctx context.Context, doc models.Document) (models.Document, error)
	SaveMetrics(ctx context.Context, m metrics.Metrics) error
}

// Service runs collection cycles: fetch from every source, normalize, merge
// into the stored collection and save. Cycles never overlap.
type Service struct {
	config     *config.Config
	store      Store
	sources    []sources.Source
	normalizer *normalize.Normalizer
	notifier   notifications.NotificationInterface
	now        func() time.Time

	runMu sync.Mutex

	mu        sync.RWMutex
	cycles    int
	lastStats *models.CycleStats
	latest    *metrics.Metrics
}

// NewService creates a collector. notifier may be nil.
func NewService(cfg *config.Config, store Store, srcs []sources.Source, normalizer *normalize.Normalizer, notifier notifications.NotificationInterface) *Service {
	return &Service{
		config:     cfg,
		store:      store,
		sources:    srcs,
		normalizer: normalizer,
		notifier:   notifier,
		now:        time.Now,
	}
}

// platformResult is what one source produced in a cycle
type platformResult struct {
	platform string
	batches  []fetchedBatch
	err      error
}

type fetchedBatch struct {
	term    searchTerm
	records []sources.RawRecord
}

// TryRunCycle runs a cycle unless one is already in progress
func (s *Service) TryRunCycle(ctx context.Context) (models.CycleStats, error) {
	if !s.runMu.TryLock() {
		return models.CycleStats{}, ErrCycleInFlight
	}
	defer s.runMu.Unlock()
	return s.runCycle(ctx)
}

// StartCycle begins a cycle in the background unless one is already running
func (s *Service) StartCycle(ctx context.Context) error {
	if !s.runMu.TryLock() {
		return ErrCycleInFlight
	}
	go func() {
		defer s.runMu.Unlock()
		if _, err := s.runCycle(ctx); err != nil {
			logrus.Errorf("Manual collection cycle failed: %v", err)
		}
	}()
	return nil
}

// RunCycle waits for any in-flight cycle, then runs one. Once fetching has
// finished the merge and save complete even if ctx is cancelled.
func (s *Service) RunCycle(ctx context.Context) (models.CycleStats, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.runCycle(ctx)
}

func (s *Service) runCycle(ctx context.Context) (models.CycleStats, error) {
	if err := ctx.Err(); err != nil {
		return models.CycleStats{}, err
	}

	s.mu.Lock()
	s.cycles++
	cycle := s.cycles
	s.mu.Unlock()

	start := s.now()
	stats := models.CycleStats{
		CycleNumber:    cycle,
		StartedAt:      start.UTC(),
		PlatformCounts: make(map[string]int),
		Errors:         make(map[string]string),
	}
	logrus.Infof("Starting collection cycle %d", cycle)

	results := s.fetchAll(ctx)

	var incoming []models.Mention
	for _, res := range results {
		stats.PlatformCounts[res.platform] = 0
		if res.err != nil {
			stats.Errors[res.platform] = res.err.Error()
			continue
		}
		for _, batch := range res.batches {
			for _, record := range batch.records {
				mention, err := s.normalizer.Normalize(res.platform, record, batch.term.Term)
				if err != nil {
					stats.Skipped++
					logrus.WithFields(logrus.Fields{
						"platform": res.platform,
						"term":     batch.term.Term.String(),
					}).Warnf("Skipping record: %v", err)
					continue
				}
				incoming = append(incoming, mention)
				stats.PlatformCounts[res.platform]++
			}
		}
	}

	logrus.Infof("Collected %d mentions from %d platforms (%d failed)", len(incoming), len(results), len(stats.Errors))

	// Fetched data is persisted even during shutdown
	saveCtx := context.WithoutCancel(ctx)

	existing, err := s.store.LoadPosts(saveCtx)
	if err != nil {
		// Saving now could overwrite a document that is only unreadable for the moment
		stats.Errors[storeErrorKey] = err.Error()
		stats.Duration = s.now().Sub(start)
		s.record(stats, nil)
		logrus.Errorf("Cycle %d lost: failed to load stored mentions: %v", cycle, err)
		return stats, fmt.Errorf("failed to load stored mentions: %w", err)
	}

	now := s.now()
	merged := merge.Merge(existing, incoming, merge.Retention{
		MaxAge:   s.config.RetentionMaxAge,
		MaxCount: s.config.RetentionMaxCount,
	}, now)
	fresh := merge.NewMentions(existing, incoming)
	stats.NewMentions = len(fresh)

	doc, err := s.store.Save(saveCtx, models.Document{Posts: merged})
	if err != nil {
		stats.Errors[storeErrorKey] = err.Error()
		stats.Duration = s.now().Sub(start)
		s.record(stats, nil)
		logrus.Errorf("Cycle %d lost: %v", cycle, err)
		return stats, err
	}
	stats.Saved = true
	stats.TotalMentions = doc.Metadata.TotalPosts

	snapshot := metrics.Compute(doc.Posts, s.config.TrackedIdentifiers())
	snapshot.GeneratedAt = now.UTC()
	snapshot.CycleNumber = cycle
	if err := s.store.SaveMetrics(saveCtx, snapshot); err != nil {
		logrus.Warnf("Failed to save metrics for cycle %d: %v", cycle, err)
	}

	s.checkNegativeSpike(saveCtx, cycle, fresh)

	stats.Duration = s.now().Sub(start)
	s.record(stats, &snapshot)

	logrus.WithFields(logrus.Fields{
		"cycle":          cycle,
		"new_mentions":   stats.NewMentions,
		"total_mentions": stats.TotalMentions,
		"skipped":        stats.Skipped,
	}).Infof("Collection cycle %d completed in %v", cycle, stats.Duration)

	return stats, nil
}

// fetchAll queries every source concurrently. Each source gets its own
// deadline and a failing source yields an error result without records.
func (s *Service) fetchAll(ctx context.Context) []platformResult {
	limitPlatforms := len(s.sources)
	results := make([]platformResult, len(s.sources))

	var wg sync.WaitGroup
	for i, source := range s.sources {
		wg.Add(1)
		go func(i int, src sources.Source) {
			defer wg.Done()
			results[i] = s.fetchPlatform(ctx, src, limitPlatforms)
		}(i, source)
	}
	wg.Wait()

	return results
}

func (s *Service) fetchPlatform(ctx context.Context, src sources.Source, platforms int) platformResult {
	platform := src.GetName()
	res := platformResult{platform: platform}

	terms := planTerms(platform, s.config.Brands)
	limit := termLimit(s.config.MinPosts, platforms, len(terms))

	ctx, cancel := context.WithTimeout(ctx, s.config.SourceTimeout)
	defer cancel()

	total := 0
	for _, term := range terms {
		records, err := fetchBounded(ctx, src, term.Query, limit, s.config.Lookback)
		if err != nil {
			res.err = fmt.Errorf("%s search for %q: %w", platform, term.Query, err)
			res.batches = nil
			logrus.WithField("platform", platform).Errorf("Error fetching from %s: %v", platform, res.err)
			return res
		}
		logrus.Debugf("Fetched %d records from %s for %s", len(records), platform, term.Term.String())
		res.batches = append(res.batches, fetchedBatch{term: term, records: records})
		total += len(records)
	}

	logrus.Infof("Found %d records from %s across %d terms", total, platform, len(terms))
	return res
}

type fetchOutcome struct {
	records []sources.RawRecord
	err     error
}

// fetchBounded returns when ctx is done even if the adapter ignores ctx. A
// result arriving after that is dropped.
func fetchBounded(ctx context.Context, src sources.Source, query string, limit int, since time.Duration) ([]sources.RawRecord, error) {
	done := make(chan fetchOutcome, 1)
	go func() {
		records, err := src.Fetch(ctx, query, limit, since)
		done <- fetchOutcome{records: records, err: err}
	}()

	select {
	case out := <-done:
		return out.records, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// checkNegativeSpike alerts when most of a cycle's new mentions are negative
func (s *Service) checkNegativeSpike(ctx context.Context, cycle int, fresh []models.Mention) {
	if s.notifier == nil || len(fresh) < alertMinMentions {
		return
	}
	share := metrics.NegativeShare(fresh)
	if share <= alertNegativeShare {
		return
	}

	var sample *models.Mention
	for i := range fresh {
		if fresh[i].BrandTracker.Sentiment.Category == models.SentimentNegative {
			sample = &fresh[i]
			break
		}
	}

	alert := &models.Alert{
		ID:        uuid.NewString(),
		Type:      "urgent",
		Title:     "Negative sentiment spike",
		Message:   fmt.Sprintf("%.0f%% of %d new mentions in cycle %d are negative", share*100, len(fresh), cycle),
		Mention:   sample,
		CreatedAt: s.now().UTC(),
	}

	ctx, cancel := context.WithTimeout(ctx, notificationTimeout)
	defer cancel()
	if err := s.notifier.SendAlert(ctx, alert); err != nil {
		logrus.Warnf("Failed to send negative sentiment alert: %v", err)
	}
}

func (s *Service) record(stats models.CycleStats, snapshot *metrics.Metrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastStats = &stats
	if snapshot != nil {
		s.latest = snapshot
	}
}

// Snapshot returns the latest metrics and the stats of the last cycle. Either
// may be nil before the first cycle.
func (s *Service) Snapshot() (*metrics.Metrics, *models.CycleStats) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var m *metrics.Metrics
	if s.latest != nil {
		copied := *s.latest
		m = &copied
	}
	var stats *models.CycleStats
	if s.lastStats != nil {
		copied := *s.lastStats
		stats = &copied
	}
	return m, stats
}

// Cycles returns the number of cycles started so far
func (s *Service) Cycles() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cycles
}
