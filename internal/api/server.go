package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/brandpulse/brand-tracker/internal/collector"
	"github.com/brandpulse/brand-tracker/internal/metrics"
	"github.com/brandpulse/brand-tracker/internal/models"
	"github.com/brandpulse/brand-tracker/internal/scheduler"
)

const (
	defaultMentionLimit = 50
	maxMentionLimit     = 1000
	defaultRecentLimit  = 5
	maxRecentLimit      = 100
)

// Collector is the part of the collector the API drives
type Collector interface {
	StartCycle(ctx context.Context) error
	Snapshot() (*metrics.Metrics, *models.CycleStats)
}

// StateReporter exposes the collection loop state
type StateReporter interface {
	State() scheduler.State
}

// Server serves dashboard reads and the manual trigger
type Server struct {
	reader    *Reader
	collector Collector
	scheduler StateReporter
	router    *mux.Router
}

// NewServer builds the router. collector and sched may be nil for a
// read-only server.
func NewServer(reader *Reader, collector Collector, sched StateReporter) *Server {
	s := &Server{
		reader:    reader,
		collector: collector,
		scheduler: sched,
		router:    mux.NewRouter(),
	}

	s.router.HandleFunc("/health", s.healthCheckHandler).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/metrics", s.metricsHandler).Methods(http.MethodGet)
	api.HandleFunc("/mentions", s.mentionsHandler).Methods(http.MethodGet)
	api.HandleFunc("/recent", s.recentHandler).Methods(http.MethodGet)
	api.HandleFunc("/brand-sentiment", s.brandSentimentHandler).Methods(http.MethodGet)
	api.HandleFunc("/status", s.statusHandler).Methods(http.MethodGet)
	api.HandleFunc("/trigger", s.triggerHandler).Methods(http.MethodPost)

	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	view, ok := s.view(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, view.Metrics)
}

func (s *Server) mentionsHandler(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r, "limit", defaultMentionLimit, maxMentionLimit)
	if !ok {
		return
	}
	platform := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("platform")))

	view, ok := s.view(w, r)
	if !ok {
		return
	}

	// Stored posts are already newest first
	posts := make([]models.Mention, 0, limit)
	for _, m := range view.Document.Posts {
		if platform != "" && m.Platform != platform {
			continue
		}
		posts = append(posts, m)
		if len(posts) == limit {
			break
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"metadata": view.Document.Metadata,
		"count":    len(posts),
		"posts":    posts,
	})
}

// recentHandler returns the newest mentions of each platform
func (s *Server) recentHandler(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r, "per_platform", defaultRecentLimit, maxRecentLimit)
	if !ok {
		return
	}

	view, ok := s.view(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"last_updated": view.Document.Metadata.LastUpdated,
		"platforms":    metrics.RecentByPlatform(view.Document.Posts, limit),
	})
}

func (s *Server) brandSentimentHandler(w http.ResponseWriter, r *http.Request) {
	view, ok := s.view(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"brand_mentions":  view.Metrics.BrandMentions,
		"brand_sentiment": view.Metrics.BrandSentiment,
	})
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{}
	if s.scheduler != nil {
		status["state"] = s.scheduler.State()
	}
	if s.collector != nil {
		if _, stats := s.collector.Snapshot(); stats != nil {
			status["last_cycle"] = stats
		}
	}
	if view, err := s.reader.Current(r.Context()); err == nil {
		status["last_updated"] = view.Document.Metadata.LastUpdated
		status["total_posts"] = view.Document.Metadata.TotalPosts
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) triggerHandler(w http.ResponseWriter, r *http.Request) {
	if s.collector == nil {
		writeError(w, http.StatusNotImplemented, "collection is not running in this process")
		return
	}

	// The cycle outlives the request
	err := s.collector.StartCycle(context.WithoutCancel(r.Context()))
	if errors.Is(err, collector.ErrCycleInFlight) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logrus.Info("Manual collection cycle triggered")
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "Collection cycle started"})
}

func (s *Server) view(w http.ResponseWriter, r *http.Request) (*View, bool) {
	view, err := s.reader.Current(r.Context())
	if err != nil {
		logrus.Errorf("Failed to read results: %v", err)
		writeError(w, http.StatusServiceUnavailable, "results are not available")
		return nil, false
	}
	return view, true
}

// queryLimit parses a positive integer query parameter, capped at ceiling. It
// writes a 400 and returns false when the value is invalid.
func queryLimit(w http.ResponseWriter, r *http.Request, key string, def, ceiling int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 1 {
		writeError(w, http.StatusBadRequest, key+" must be a positive integer")
		return 0, false
	}
	return min(parsed, ceiling), true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.Debugf("Failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
