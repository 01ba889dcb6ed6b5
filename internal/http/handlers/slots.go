package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/azielinski/slotwatch/internal/medicover"
	"github.com/azielinski/slotwatch/internal/store"
	"github.com/azielinski/slotwatch/pkg/logging"
)

// searchHistory is the slice of the store the slots handler records into.
type searchHistory interface {
	Append(ctx context.Context, owner string, entry store.SearchEntry) error
	Recent(ctx context.Context, owner string, n int) ([]store.SearchEntry, error)
	Clear(ctx context.Context, owner string) error
}

// SlotsHandler serves one-shot slot searches, the per-owner search history
// and the owner's already-booked appointments.
type SlotsHandler struct {
	pool    *ClientPool
	history searchHistory
	logger  *logging.Logger
}

func NewSlotsHandler(pool *ClientPool, history searchHistory, logger *logging.Logger) *SlotsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &SlotsHandler{pool: pool, history: history, logger: logger}
}

type searchResponse struct {
	Slots []medicover.Slot `json:"slots"`
	Count int              `json:"count"`
}

// Search runs one slot query against the portal.
func (h *SlotsHandler) Search(w http.ResponseWriter, r *http.Request) {
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

	slots, err := client.SearchSlots(r.Context(), query)
	if err != nil {
		h.logger.Error("slot search failed", "owner", owner, "error", err)
		writePortalError(w, err)
		return
	}

	if h.history != nil {
		entry := store.SearchEntry{Query: query, SlotsFound: len(slots)}
		if err := h.history.Append(r.Context(), owner, entry); err != nil {
			// History is a convenience, the search result still stands.
			h.logger.Warn("search history append failed", "owner", owner, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, searchResponse{Slots: slots, Count: len(slots)})
}

// History returns the owner's recent searches, newest first.
func (h *SlotsHandler) History(w http.ResponseWriter, r *http.Request) {
	_, owner, ok := h.pool.clientFor(w, r)
	if !ok {
		return
	}
	if h.history == nil {
		writeJSON(w, http.StatusOK, map[string]any{"searches": []store.SearchEntry{}})
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := h.history.Recent(r.Context(), owner, limit)
	if err != nil {
		h.logger.Error("search history read failed", "owner", owner, "error", err)
		writeError(w, http.StatusInternalServerError, "could not read search history")
		return
	}
	if entries == nil {
		entries = []store.SearchEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"searches": entries})
}

// ClearHistory drops the owner's recorded searches.
func (h *SlotsHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	_, owner, ok := h.pool.clientFor(w, r)
	if !ok {
		return
	}
	if h.history == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := h.history.Clear(r.Context(), owner); err != nil {
		h.logger.Error("search history clear failed", "owner", owner, "error", err)
		writeError(w, http.StatusInternalServerError, "could not clear search history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Appointments lists the owner's upcoming booked visits.
func (h *SlotsHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	client, owner, ok := h.pool.clientFor(w, r)
	if !ok {
		return
	}

	appointments, err := client.FutureAppointments(r.Context())
	if err != nil {
		h.logger.Error("appointments listing failed", "owner", owner, "error", err)
		writePortalError(w, err)
		return
	}
	if appointments == nil {
		appointments = []medicover.Appointment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": appointments, "count": len(appointments)})
}
