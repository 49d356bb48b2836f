package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/team-weather-dashboard/internal/domain"
	"github.com/couchcryptid/team-weather-dashboard/internal/report"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DatasetProvider returns the most recent dataset, or nil before the first
// completed run.
type DatasetProvider interface {
	Latest() *domain.Dataset
}

// Refresher starts an out-of-schedule run.
type Refresher interface {
	Trigger()
}

// WeatherFetcher looks up live conditions for a city.
type WeatherFetcher interface {
	Current(ctx context.Context, city, countryCode string) (domain.Observation, error)
}

// Server exposes health, readiness, metrics, and dashboard API endpoints.
type Server struct {
	httpServer *http.Server
	data       DatasetProvider
	refresher  Refresher
	weather    WeatherFetcher
	logger     *slog.Logger
}

// Option configures optional Server endpoints.
type Option func(*Server)

// WithRefresher registers POST /api/refresh.
func WithRefresher(r Refresher) Option {
	return func(s *Server) { s.refresher = r }
}

// WithWeather registers GET /api/current.
func WithWeather(f WeatherFetcher) Option {
	return func(s *Server) { s.weather = f }
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and the
// /api routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, data DatasetProvider, logger *slog.Logger, opts ...Option) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		data:   data,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/stats", s.withDataset(s.handleStats))
	mux.HandleFunc("GET /api/cities", s.withDataset(s.handleCities))
	mux.HandleFunc("GET /api/records", s.withDataset(s.handleRecords))
	mux.HandleFunc("GET /api/report", s.withDataset(s.handleReport))
	if s.refresher != nil {
		mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	}
	if s.weather != nil {
		mux.HandleFunc("GET /api/current", s.handleCurrent)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type datasetHandler func(w http.ResponseWriter, r *http.Request, ds *domain.Dataset)

// withDataset answers 503 until the first run has completed.
func (s *Server) withDataset(h datasetHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds := s.data.Latest()
		if ds == nil {
			writeError(w, http.StatusServiceUnavailable, "no dataset available yet")
			return
		}
		h(w, r, ds)
	}
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request, ds *domain.Dataset) {
	sharedobs.WriteJSON(w, http.StatusOK, ds.Summary())
}

// handleCities compares the requested cities (?city=A&city=B or
// ?city=A,B), or every city when none is given.
func (s *Server) handleCities(w http.ResponseWriter, r *http.Request, ds *domain.Dataset) {
	cities := queryList(r, "city")
	comparison, err := domain.AggregateByCity(ds.Records, cities...)
	if errors.Is(err, domain.ErrNoCityData) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("city comparison failed", "error", err)
		writeError(w, http.StatusInternalServerError, "city comparison failed")
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, comparison)
}

// handleRecords lists canonical records, optionally narrowed by ?city= and
// ?member=.
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request, ds *domain.Dataset) {
	cities := toSet(queryList(r, "city"))
	members := toSet(queryList(r, "member"))

	out := make([]domain.CanonicalRecord, 0, len(ds.Records))
	for _, rec := range ds.Records {
		if cities != nil && !cities[rec.City] {
			continue
		}
		if members != nil && !members[rec.MemberName] {
			continue
		}
		out = append(out, rec)
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
		"run_id":  ds.RunID,
		"count":   len(out),
		"records": out,
	})
}

func (s *Server) handleReport(w http.ResponseWriter, _ *http.Request, ds *domain.Dataset) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(report.Text(*ds)))
}

func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	s.refresher.Trigger()
	sharedobs.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "refresh started"})
}

// handleCurrent fetches live conditions for ?city= (and optional
// ?country=) and returns them as a canonical record for ?member=.
func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	city := strings.TrimSpace(q.Get("city"))
	if city == "" {
		writeError(w, http.StatusBadRequest, "city is required")
		return
	}

	obs, err := s.weather.Current(r.Context(), city, strings.TrimSpace(q.Get("country")))
	if err != nil {
		s.logger.Warn("live weather lookup failed", "city", city, "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, domain.FormatObservation(obs, q.Get("member")))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}

func queryList(r *http.Request, key string) []string {
	var out []string
	for _, v := range r.URL.Query()[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
