package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/azielinski/slotwatch/internal/medicover"
	"github.com/azielinski/slotwatch/internal/monitor"
	"github.com/azielinski/slotwatch/internal/observability/metrics"
	"github.com/azielinski/slotwatch/internal/store"
	"github.com/azielinski/slotwatch/pkg/logging"
)

// monitoringRecords is the slice of the store the handler persists into.
type monitoringRecords interface {
	SaveActive(ctx context.Context, rec store.MonitoringRecord) error
	ListByOwner(ctx context.Context, owner string) ([]store.MonitoringRecord, error)
}

// MonitoringsHandler starts, lists and cancels monitoring subscriptions.
type MonitoringsHandler struct {
	pool     *ClientPool
	registry *monitor.Registry
	records  monitoringRecords
	notifier monitor.Notifier
	metrics  *metrics.MonitorMetrics
	interval time.Duration
	location *time.Location
	logger   *logging.Logger

	// baseCtx outlives requests; a monitoring must not die with the HTTP
	// request that started it.
	baseCtx context.Context
}

type MonitoringsConfig struct {
	Pool     *ClientPool
	Registry *monitor.Registry
	Records  monitoringRecords
	Notifier monitor.Notifier
	Metrics  *metrics.MonitorMetrics
	Interval time.Duration
	Location *time.Location
	Logger   *logging.Logger
	BaseCtx  context.Context
}

func NewMonitoringsHandler(cfg MonitoringsConfig) *MonitoringsHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.BaseCtx == nil {
		cfg.BaseCtx = context.Background()
	}
	return &MonitoringsHandler{
		pool:     cfg.Pool,
		registry: cfg.Registry,
		records:  cfg.Records,
		notifier: cfg.Notifier,
		metrics:  cfg.Metrics,
		interval: cfg.Interval,
		location: cfg.Location,
		logger:   cfg.Logger,
		baseCtx:  cfg.BaseCtx,
	}
}

type monitoringResponse struct {
	ID        string              `json:"id"`
	Query     medicover.SlotQuery `json:"query"`
	CreatedAt time.Time           `json:"createdAt"`
}

// Create starts a new monitoring for the owner's query.
func (h *MonitoringsHandler) Create(w http.ResponseWriter, r *http.Request) {
	client, owner, ok := h.pool.clientFor(w, r)
	if !ok {
		return
	}

	var query medicover.SlotQuery
	if !decodeJSON(w, r, &query) {
		return
	}
	if query.RegionID == "" || query.SpecialtyID == "" {
		writeError(w, http.StatusBadRequest, "regionId and specialtyId are required")
		return
	}

	sub := monitor.NewSubscription(owner, query)
	runner := monitor.NewRunner(client, h.notifier, h.logger).
		WithInterval(h.interval).
		WithMetrics(h.metrics).
		WithLocation(h.location)

	if err := h.registry.Start(h.baseCtx, sub, runner); err != nil {
		if errors.Is(err, monitor.ErrAlreadyMonitoring) {
			writeError(w, http.StatusConflict, "an identical monitoring is already running")
			return
		}
		h.logger.Error("monitoring start failed", "owner", owner, "error", err)
		writeError(w, http.StatusInternalServerError, "could not start monitoring")
		return
	}

	if h.records != nil {
		rec := store.MonitoringRecord{
			ID:        sub.ID,
			Owner:     owner,
			Query:     query,
			CreatedAt: sub.CreatedAt,
		}
		if err := h.records.SaveActive(r.Context(), rec); err != nil {
			h.logger.Warn("monitoring record save failed", "owner", owner, "error", err)
		}
	}

	writeJSON(w, http.StatusCreated, monitoringResponse{ID: sub.ID, Query: sub.Query, CreatedAt: sub.CreatedAt})
}

// List returns the owner's live monitorings plus the persisted history when
// a record store is configured. The registry is the source of truth for
// liveness.
func (h *MonitoringsHandler) List(w http.ResponseWriter, r *http.Request) {
	_, owner, ok := h.pool.clientFor(w, r)
	if !ok {
		return
	}

	active := []monitoringResponse{}
	for _, sub := range h.registry.List(owner) {
		active = append(active, monitoringResponse{ID: sub.ID, Query: sub.Query, CreatedAt: sub.CreatedAt})
	}

	response := map[string]any{"active": active}
	if h.records != nil {
		records, err := h.records.ListByOwner(r.Context(), owner)
		if err != nil {
			h.logger.Warn("monitoring record listing failed", "owner", owner, "error", err)
		} else {
			history := []store.MonitoringRecord{}
			for _, rec := range records {
				if rec.Status != store.StatusActive {
					history = append(history, rec)
				}
			}
			response["history"] = history
		}
	}
	writeJSON(w, http.StatusOK, response)
}

// Cancel stops one monitoring. Only its owner may cancel it.
func (h *MonitoringsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	_, owner, ok := h.pool.clientFor(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.registry.Cancel(owner, id); err != nil {
		if errors.Is(err, monitor.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no such monitoring")
			return
		}
		h.logger.Error("monitoring cancel failed", "owner", owner, "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not cancel monitoring")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
