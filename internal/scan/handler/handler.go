// Package handler exposes the scan trigger endpoint. A request runs change
// discovery, link filtering, and queue fan-out under one wall-clock budget,
// then returns a simple success/failure signal to the external scheduler.
package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"notedigest/internal/pipeline"
	"notedigest/internal/runlog"
	"notedigest/internal/scan/dispatcher"
	"notedigest/internal/scan/links"
	"notedigest/internal/scan/scanner"
	"notedigest/pkg/config"
	apperrors "notedigest/pkg/errors"
	"notedigest/pkg/logger"
	"notedigest/pkg/metrics"
	"notedigest/pkg/resilience"
)

// Handler wires the scan pipeline stages behind the trigger endpoint.
type Handler struct {
	scanner    *scanner.Scanner
	filter     *links.Filter
	dispatcher *dispatcher.Dispatcher
	runs       *runlog.Store
	metrics    *metrics.Metrics
	cfg        *config.Config
	logger     *slog.Logger
}

// New creates a Handler. metrics may be nil in tests.
func New(sc *scanner.Scanner, f *links.Filter, d *dispatcher.Dispatcher, runs *runlog.Store, m *metrics.Metrics, cfg *config.Config) *Handler {
	return &Handler{
		scanner:    sc,
		filter:     f,
		dispatcher: d,
		runs:       runs,
		metrics:    m,
		cfg:        cfg,
		logger:     slog.Default().With("component", "scan-handler"),
	}
}

// Scan handles GET /api/v1/digest/scan. Unauthorized calls are rejected with
// no side effects.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		h.countRun("unauthorized")
		h.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	runID := uuid.NewString()
	ctx := logger.WithRunID(r.Context(), runID)
	log := logger.FromContext(ctx)
	keys := pipeline.NewBucketKeys(h.cfg.Digest.Queue, runID)

	var published int
	err := resilience.WithTimeout(ctx, h.cfg.Digest.RunTimeout, "scan run", func(ctx context.Context) error {
		changes, err := h.scanner.Scan(ctx)
		if err != nil {
			return err
		}
		h.countChanges(changes)

		candidates := links.Extract(changes)
		useful, err := h.filter.Filter(ctx, candidates)
		if err != nil {
			return err
		}
		h.countLinks(len(candidates), len(useful))

		if err := h.runs.Start(ctx, runlog.Run{
			ID:        runID,
			Queue:     h.cfg.Digest.Queue,
			Keys:      keys,
			Documents: len(changes.Documents),
			Diffs:     len(changes.Diffs),
			URLs:      len(useful),
		}); err != nil {
			// Ledger trouble must not stop the fan-out.
			log.Error("failed to record run start", "error", err)
		}

		published, err = h.dispatcher.Dispatch(ctx, runID, keys, changes, useful)
		return err
	})
	if err != nil {
		log.Error("scan run failed", "error", err)
		if dbErr := h.runs.MarkFailed(ctx, runID, err.Error()); dbErr != nil {
			log.Error("failed to record run failure", "error", dbErr)
		}
		h.countRun("failed")
		h.writeError(w, apperrors.HTTPStatusCode(err), "scan run failed")
		return
	}

	h.countRun("completed")
	log.Info("scan run dispatched", "messages", published)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"run_id": runID,
		"items":  published,
	})
}

// authorized compares the bearer credential against the configured secret in
// constant time. Development mode bypasses the check.
func (h *Handler) authorized(r *http.Request) bool {
	if !h.cfg.IsProduction() {
		return true
	}
	expected := "Bearer " + h.cfg.Server.TriggerSecret
	auth := r.Header.Get("Authorization")
	return h.cfg.Server.TriggerSecret != "" &&
		subtle.ConstantTimeCompare([]byte(auth), []byte(expected)) == 1
}

func (h *Handler) countRun(status string) {
	if h.metrics != nil {
		h.metrics.ScanRunsTotal.WithLabelValues(status).Inc()
	}
}

func (h *Handler) countChanges(changes *pipeline.Changes) {
	if h.metrics != nil {
		h.metrics.ChangedFilesTotal.WithLabelValues("document").Add(float64(len(changes.Documents)))
		h.metrics.ChangedFilesTotal.WithLabelValues("diff").Add(float64(len(changes.Diffs)))
	}
}

func (h *Handler) countLinks(extracted, retained int) {
	if h.metrics != nil {
		h.metrics.LinksExtracted.Add(float64(extracted))
		h.metrics.LinksRetained.Add(float64(retained))
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
