package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brandpulse/brand-tracker/internal/metrics"
	"github.com/brandpulse/brand-tracker/internal/models"
)

// Object names used by the result store
const (
	DocumentName = "results.json"
	SentinelName = "results.updated"
	MetricsName  = "metrics.json"
	CorruptName  = DocumentName + ".corrupt"
)

// ResultStore persists the merged mention document on top of an ObjectStore.
// A single ResultStore is the only writer for its objects.
type ResultStore struct {
	objects   ObjectStore
	notifiers []UpdateNotifier
	now       func() time.Time
	mu        sync.Mutex
}

// NewResultStore wraps objects. Notifiers are called after every save.
func NewResultStore(objects ObjectStore, notifiers ...UpdateNotifier) *ResultStore {
	return &ResultStore{
		objects:   objects,
		notifiers: notifiers,
		now:       time.Now,
	}
}

// Objects exposes the underlying store for auxiliary artifacts such as reports
func (s *ResultStore) Objects() ObjectStore {
	return s.objects
}

// Load returns the stored document. It never writes: a missing document
// yields ErrNotFound and an undecodable one an error wrapping ErrCorrupt.
func (s *ResultStore) Load(ctx context.Context) (models.Document, error) {
	doc, _, err := s.read(ctx)
	return doc, err
}

func (s *ResultStore) read(ctx context.Context) (models.Document, []byte, error) {
	data, err := s.objects.Retrieve(ctx, DocumentName)
	if err != nil {
		return models.Document{}, nil, err
	}
	doc, err := decodeDocument(data)
	if err != nil {
		return models.Document{}, data, err
	}
	return doc, data, nil
}

func decodeDocument(data []byte) (models.Document, error) {
	var doc models.Document
	if len(strings.TrimSpace(string(data))) == 0 {
		return doc, fmt.Errorf("empty document: %w", ErrCorrupt)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return models.Document{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return doc, nil
}

// LoadPosts is the writer's load. A missing document is empty. A corrupt one
// is copied aside, logged, and treated as empty so the next save replaces it.
func (s *ResultStore) LoadPosts(ctx context.Context) ([]models.Mention, error) {
	doc, data, err := s.read(ctx)
	switch {
	case err == nil:
		return doc.Posts, nil
	case errors.Is(err, ErrNotFound):
		return nil, nil
	case errors.Is(err, ErrCorrupt):
		logrus.WithError(err).Errorf("Result document is corrupt, starting from an empty collection")
		if storeErr := s.objects.Store(ctx, CorruptName, data); storeErr != nil {
			logrus.WithError(storeErr).Warnf("Failed to keep a copy of the corrupt document")
		}
		return nil, nil
	default:
		return nil, err
	}
}

// Save recomputes the metadata from the posts and writes the document, then
// the update sentinel. Any metadata on doc is ignored. The returned document
// is exactly what was persisted.
func (s *ResultStore) Save(ctx context.Context, doc models.Document) (models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts := doc.Posts
	if posts == nil {
		posts = []models.Mention{}
	}
	doc = models.Document{
		Metadata: models.Metadata{
			LastUpdated:     s.now().UTC(),
			TotalPosts:      len(posts),
			Platforms:       make(map[string]int),
			DashboardUpdate: true,
		},
		Posts: posts,
	}
	for _, m := range posts {
		doc.Metadata.Platforms[m.Platform]++
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to encode results: %w", err)
	}
	if err := s.objects.Store(ctx, DocumentName, data); err != nil {
		return models.Document{}, fmt.Errorf("failed to save results: %w", err)
	}

	stamp := doc.Metadata.LastUpdated.Format(time.RFC3339Nano)
	if err := s.objects.Store(ctx, SentinelName, []byte(stamp)); err != nil {
		// The document itself is saved; readers fall back to re-reading it
		logrus.WithError(err).Warnf("Failed to write update sentinel")
	}

	for _, n := range s.notifiers {
		if err := n.NotifyUpdate(ctx, stamp); err != nil {
			logrus.WithError(err).Warnf("Failed to send update notification")
		}
	}

	logrus.WithFields(logrus.Fields{
		"total_posts": doc.Metadata.TotalPosts,
		"platforms":   doc.Metadata.Platforms,
	}).Infof("Saved %d posts", doc.Metadata.TotalPosts)

	return doc, nil
}

// SaveMetrics stores the latest metrics snapshot next to the document
func (s *ResultStore) SaveMetrics(ctx context.Context, m metrics.Metrics) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metrics: %w", err)
	}
	if err := s.objects.Store(ctx, MetricsName, data); err != nil {
		return fmt.Errorf("failed to save metrics: %w", err)
	}
	return nil
}

// LastUpdated reads the update sentinel
func (s *ResultStore) LastUpdated(ctx context.Context) (time.Time, error) {
	data, err := s.objects.Retrieve(ctx, SentinelName)
	if err != nil {
		return time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(string(data)))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid update sentinel: %w", err)
	}
	return ts, nil
}
