package handlers

import (
	"context"
	"net/http"

	"github.com/azielinski/slotwatch/internal/medicover"
	"github.com/azielinski/slotwatch/pkg/logging"
)

// FiltersHandler exposes the portal's searchable dimensions: regions,
// specialties, clinics and doctors.
type FiltersHandler struct {
	pool   *ClientPool
	logger *logging.Logger
}

func NewFiltersHandler(pool *ClientPool, logger *logging.Logger) *FiltersHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &FiltersHandler{pool: pool, logger: logger}
}

type filtersResponse struct {
	Options []medicover.FilterOption `json:"options"`
	Count   int                      `json:"count"`
}

func (h *FiltersHandler) Regions(w http.ResponseWriter, r *http.Request) {
	client, _, ok := h.pool.clientFor(w, r)
	if !ok {
		return
	}
	h.serve(w, r, func(ctx context.Context) ([]medicover.FilterOption, error) {
		return client.ListRegions(ctx)
	})
}

func (h *FiltersHandler) Specialties(w http.ResponseWriter, r *http.Request) {
	client, _, ok := h.pool.clientFor(w, r)
	if !ok {
		return
	}
	regionID := r.URL.Query().Get("regionId")
	if regionID == "" {
		writeError(w, http.StatusBadRequest, "regionId is required")
		return
	}
	h.serve(w, r, func(ctx context.Context) ([]medicover.FilterOption, error) {
		return client.ListSpecialties(ctx, regionID)
	})
}

func (h *FiltersHandler) Clinics(w http.ResponseWriter, r *http.Request) {
	client, _, ok := h.pool.clientFor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	regionID, specialtyID := q.Get("regionId"), q.Get("specialtyId")
	if regionID == "" || specialtyID == "" {
		writeError(w, http.StatusBadRequest, "regionId and specialtyId are required")
		return
	}
	h.serve(w, r, func(ctx context.Context) ([]medicover.FilterOption, error) {
		return client.ListClinics(ctx, regionID, specialtyID)
	})
}

func (h *FiltersHandler) Doctors(w http.ResponseWriter, r *http.Request) {
	client, _, ok := h.pool.clientFor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	regionID, specialtyID := q.Get("regionId"), q.Get("specialtyId")
	if regionID == "" || specialtyID == "" {
		writeError(w, http.StatusBadRequest, "regionId and specialtyId are required")
		return
	}
	h.serve(w, r, func(ctx context.Context) ([]medicover.FilterOption, error) {
		return client.ListDoctors(ctx, regionID, specialtyID, q.Get("clinicId"))
	})
}

// serve runs the listing and applies the optional ?match= substring filter.
func (h *FiltersHandler) serve(w http.ResponseWriter, r *http.Request, list func(context.Context) ([]medicover.FilterOption, error)) {
	options, err := list(r.Context())
	if err != nil {
		h.logger.Error("filter listing failed", "path", r.URL.Path, "error", err)
		writePortalError(w, err)
		return
	}
	if match := r.URL.Query().Get("match"); match != "" {
		options = medicover.MatchOptions(options, match)
	}
	writeJSON(w, http.StatusOK, filtersResponse{Options: options, Count: len(options)})
}
