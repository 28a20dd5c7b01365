package locations

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/healthdesk/healthdesk-platform/pkg/logging"
)

// Handler provides HTTP endpoints for the public location directory.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new location HTTP handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Routes returns a chi router with the public location routes. The admin
// cache-flush route is mounted separately behind auth.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/divisions", h.Divisions)
	r.Get("/divisions/{divisionID}/districts", h.Districts)
	r.Get("/districts/{districtID}/thanas", h.Thanas)
	r.Get("/hierarchy", h.Hierarchy)
	r.Get("/search", h.Search)
	r.Get("/tree", h.Tree)
	return r
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode location response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal server error"
	if errors.Is(err, ErrNotFound) {
		status = http.StatusNotFound
		msg = "location not found"
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("location request failed", "error", err)
	}
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil
}

func queryID(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// Divisions lists all divisions.
// GET /api/v1/locations/divisions
func (h *Handler) Divisions(w http.ResponseWriter, r *http.Request) {
	divisions, err := h.service.Divisions(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if divisions == nil {
		divisions = []Division{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"divisions":   divisions,
		"total_count": len(divisions),
	})
}

// Districts lists a division's districts.
// GET /api/v1/locations/divisions/{divisionID}/districts
func (h *Handler) Districts(w http.ResponseWriter, r *http.Request) {
	divisionID, ok := pathID(r, "divisionID")
	if !ok {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid division id"})
		return
	}
	districts, err := h.service.DistrictsByDivision(r.Context(), divisionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if districts == nil {
		districts = []District{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"districts":   districts,
		"total_count": len(districts),
	})
}

// Thanas lists a district's thanas.
// GET /api/v1/locations/districts/{districtID}/thanas
func (h *Handler) Thanas(w http.ResponseWriter, r *http.Request) {
	districtID, ok := pathID(r, "districtID")
	if !ok {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid district id"})
		return
	}
	thanas, err := h.service.ThanasByDistrict(r.Context(), districtID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if thanas == nil {
		thanas = []Thana{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"thanas":      thanas,
		"total_count": len(thanas),
	})
}

// Hierarchy resolves the division/district/thana chain from the most specific
// id passed as a query parameter.
// GET /api/v1/locations/hierarchy?thana_id=12
func (h *Handler) Hierarchy(w http.ResponseWriter, r *http.Request) {
	divisionID, err1 := queryID(r, "division_id")
	districtID, err2 := queryID(r, "district_id")
	thanaID, err3 := queryID(r, "thana_id")
	if err1 != nil || err2 != nil || err3 != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "location ids must be integers"})
		return
	}
	if divisionID == nil && districtID == nil && thanaID == nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "provide division_id, district_id or thana_id"})
		return
	}

	hierarchy, err := h.service.Hierarchy(r.Context(), divisionID, districtID, thanaID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"hierarchy": hierarchy})
}

// Search matches location names across all levels.
// GET /api/v1/locations/search?q=dha
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	results, err := h.service.Search(r.Context(), query)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "search query must be at least 2 characters"})
		return
	}
	h.writeJSON(w, http.StatusOK, results)
}

// Tree returns the full location hierarchy as one document.
// GET /api/v1/locations/tree
func (h *Handler) Tree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.service.Tree(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"location_tree":   tree,
		"total_divisions": len(tree),
	})
}

// Statistics returns directory totals. Mounted behind admin auth.
// GET /api/v1/admin/locations/statistics
func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Statistics(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"statistics": stats})
}

// ClearCache flushes the cached location documents. Mounted behind admin auth.
// POST /api/v1/admin/locations/clear-cache
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearCache(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "location cache cleared"})
}
