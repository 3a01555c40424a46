// Package server exposes the scan pipeline over HTTP. All responses are
// JSON except the XLSX export; error bodies carry both a machine-readable
// code and the Arabic presentation string the product surfaces.
package server

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fleetify/invoice-scan/internal/export"
	"github.com/fleetify/invoice-scan/internal/history"
	"github.com/fleetify/invoice-scan/internal/metrics"
	"github.com/fleetify/invoice-scan/internal/pipeline"
	"github.com/fleetify/invoice-scan/internal/repository"
)

// Server holds the wired pipeline and repositories behind the HTTP API.
type Server struct {
	processor *pipeline.Processor
	recorder  *pipeline.FeedbackRecorder
	scans     repository.ScanRepository
	feedback  repository.FeedbackRepository
	hist      *history.Ring
	export    *export.Service
	db        *sql.DB
	logger    *slog.Logger

	maxUploadBytes int64
}

func NewServer(
	processor *pipeline.Processor,
	recorder *pipeline.FeedbackRecorder,
	scans repository.ScanRepository,
	feedback repository.FeedbackRepository,
	hist *history.Ring,
	exportSvc *export.Service,
	db *sql.DB,
	maxUploadBytes int64,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 15 << 20
	}
	return &Server{
		processor:      processor,
		recorder:       recorder,
		scans:          scans,
		feedback:       feedback,
		hist:           hist,
		export:         exportSvc,
		db:             db,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// Router builds the chi router with the standard middleware chain.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/scans", func(r chi.Router) {
			r.Post("/", s.handleCreateScan)
			r.Get("/", s.handleListScans)
			r.Get("/{id}", s.handleGetScan)
			r.Post("/{id}/feedback", s.handleFeedback)
			r.Get("/{id}/feedback", s.handleListFeedback)
		})
		r.Get("/analytics/summary", s.handleSummary)
		r.Get("/export/scans.xlsx", s.handleExport)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := repository.HealthCheck(r.Context(), s.db); err != nil {
		s.logger.Error("server.health.db_failed", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
