package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brandpulse/brand-tracker/internal/metrics"
	"github.com/brandpulse/brand-tracker/internal/models"
	"github.com/brandpulse/brand-tracker/internal/storage"
)

// DocumentStore is the read side of the result store
type DocumentStore interface {
	Load(ctx context.Context) (models.Document, error)
	LastUpdated(ctx context.Context) (time.Time, error)
}

// View is one consistent read of the stored collection
type View struct {
	Document models.Document
	Metrics  metrics.Metrics
}

// Reader serves the stored document, re-reading it only when the update
// sentinel changes. It never writes to the store.
type Reader struct {
	store  DocumentStore
	brands []string

	mu     sync.Mutex
	cached *View
	stamp  time.Time
}

// NewReader creates a reader computing brand counts for trackedBrands
func NewReader(store DocumentStore, trackedBrands []string) *Reader {
	return &Reader{store: store, brands: trackedBrands}
}

// Current returns the latest view. If the store cannot be read, the last
// good view is returned instead.
func (r *Reader) Current(ctx context.Context) (*View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stamp, stampErr := r.store.LastUpdated(ctx)
	if stampErr == nil && r.cached != nil && stamp.Equal(r.stamp) {
		return r.cached, nil
	}

	doc, err := r.store.Load(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		if r.cached != nil {
			logrus.Warnf("Serving cached results, store read failed: %v", err)
			return r.cached, nil
		}
		// The collector replaces a corrupt document on its next save
		if !errors.Is(err, storage.ErrCorrupt) {
			return nil, err
		}
		logrus.Warnf("Result document is unreadable, serving an empty collection: %v", err)
		doc = models.Document{}
	}
	if doc.Posts == nil {
		doc.Posts = []models.Mention{}
	}

	view := &View{
		Document: doc,
		Metrics:  metrics.Compute(doc.Posts, r.brands),
	}
	view.Metrics.GeneratedAt = doc.Metadata.LastUpdated

	if stampErr == nil {
		r.cached = view
		r.stamp = stamp
	} else {
		// Without a sentinel there is nothing to validate a cache against
		r.cached = nil
	}
	return view, nil
}
