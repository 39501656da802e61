package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/brandpulse/brand-tracker/internal/config"
	"github.com/brandpulse/brand-tracker/internal/models"
)

// State is the lifecycle position of the collection loop
type State string

const (
	StateIdle          State = "idle"
	StateRunning       State = "running"
	StateCycleInFlight State = "cycle_in_flight"
	StateWaiting       State = "waiting"
	StateStopped       State = "stopped"
)

// ErrNotIdle is returned when Run is called on a loop that already ran
var ErrNotIdle = errors.New("scheduler has already been started")

const reportTimeout = 5 * time.Minute

// Cycler runs one collection cycle
type Cycler interface {
	RunCycle(ctx context.Context) (models.CycleStats, error)
}

// Reporter publishes a periodic report
type Reporter interface {
	Publish(ctx context.Context) (*models.Report, error)
}

// Service drives collection cycles on a fixed interval and the report job on
// a cron schedule
type Service struct {
	config    *config.Config
	collector Cycler
	reporter  Reporter
	cron      *cron.Cron

	mu    sync.RWMutex
	state State
}

// NewService creates a scheduler. reporter may be nil to disable reports.
func NewService(cfg *config.Config, collector Cycler, reporter Reporter) *Service {
	return &Service{
		config:    cfg,
		collector: collector,
		reporter:  reporter,
		cron:      cron.New(cron.WithSeconds()),
		state:     StateIdle,
	}
}

// State returns the current loop state
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Service) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Run executes cycles until maxCycles have completed (0 means no limit) or ctx
// is cancelled. Cycles never overlap; the next one starts interval after the
// previous one started, or immediately if it overran. A cycle that is in
// flight when ctx is cancelled finishes saving before Run returns.
func (s *Service) Run(ctx context.Context, maxCycles int) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrNotIdle
	}
	s.state = StateRunning
	s.mu.Unlock()
	defer s.setState(StateStopped)

	interval := s.config.Interval
	logrus.Infof("Collection loop started (interval %v, max cycles %d)", interval, maxCycles)

	completed := 0
	for {
		if ctx.Err() != nil {
			logrus.Infof("Collection loop stopped after %d cycles", completed)
			return nil
		}

		s.setState(StateCycleInFlight)
		start := time.Now()
		stats, err := s.collector.RunCycle(ctx)
		elapsed := time.Since(start)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				logrus.Infof("Collection loop stopped after %d cycles", completed)
				return nil
			}
			logrus.Errorf("Collection cycle %d failed: %v", stats.CycleNumber, err)
		}
		completed++

		if maxCycles > 0 && completed >= maxCycles {
			logrus.Infof("Reached maximum of %d cycles", maxCycles)
			return nil
		}

		wait := interval - elapsed
		if wait < 0 {
			logrus.Warnf("Cycle took %v, longer than the %v interval; starting the next cycle immediately", elapsed.Round(time.Millisecond), interval)
			wait = 0
		}

		s.setState(StateWaiting)
		logrus.Debugf("Next cycle in %v", wait)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			logrus.Infof("Collection loop stopped after %d cycles", completed)
			return nil
		case <-timer.C:
		}
	}
}

// Start registers the report job and starts the cron scheduler
func (s *Service) Start() error {
	if s.reporter == nil || s.config.ReportSchedule == "" {
		logrus.Info("Report schedule disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.config.ReportSchedule, func() {
		logrus.Info("Starting scheduled report")
		ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
		defer cancel()
		if _, err := s.reporter.Publish(ctx); err != nil {
			logrus.Errorf("Scheduled report failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid REPORT_SCHEDULE %q: %w", s.config.ReportSchedule, err)
	}

	s.cron.Start()
	logrus.Infof("Report scheduler started with schedule %q", s.config.ReportSchedule)
	return nil
}

// Stop stops the cron scheduler and waits for a running report job
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		logrus.Info("Report scheduler stopped")
	}
}
