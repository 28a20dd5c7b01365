package reporting

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/healthdesk/healthdesk-platform/internal/accounts"
	"github.com/healthdesk/healthdesk-platform/internal/http/middleware"
	"github.com/healthdesk/healthdesk-platform/pkg/logging"
)

// Handler provides HTTP endpoints for reports. Doctor reports are visible to
// the doctor themselves and to admins; bulk and system reports are admin-only
// and mounted behind RequireRole.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new reporting HTTP handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Routes returns a chi router with report routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/doctors/{doctorID}/{year}/{month}", h.DoctorMonthly)
	return r
}

// AdminRoutes returns the admin-only report routes.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/bulk", h.BulkGenerate)
	r.Get("/system/{year}/{month}", h.SystemMonthly)
	return r
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode report response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidPeriod):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid report period"})
	case errors.Is(err, ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "report not found"})
	default:
		h.logger.Error("report request failed", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func pathPeriod(r *http.Request) (int, int, bool) {
	year, err1 := strconv.Atoi(chi.URLParam(r, "year"))
	month, err2 := strconv.Atoi(chi.URLParam(r, "month"))
	return year, month, err1 == nil && err2 == nil
}

// DoctorMonthly generates (or returns the cached) monthly report for one
// doctor.
// GET /api/v1/reports/doctors/{doctorID}/{year}/{month}?force=true
func (h *Handler) DoctorMonthly(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r.Context())
	if actor == nil {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid doctor id"})
		return
	}
	year, month, ok := pathPeriod(r)
	if !ok {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid report period"})
		return
	}

	if actor.Role != accounts.RoleAdmin && !(actor.Role == accounts.RoleDoctor && actor.ID == doctorID) {
		h.writeJSON(w, http.StatusForbidden, map[string]string{"error": "cannot view another doctor's report"})
		return
	}

	force := r.URL.Query().Get("force") == "true"
	report, err := h.service.GenerateDoctorMonthly(r.Context(), doctorID, year, month, force)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

type bulkRequest struct {
	Year      int         `json:"year"`
	Month     int         `json:"month"`
	DoctorIDs []uuid.UUID `json:"doctor_ids,omitempty"`
}

// BulkGenerate regenerates monthly reports for many doctors.
// POST /api/v1/admin/reports/bulk
func (h *Handler) BulkGenerate(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	summary, err := h.service.BulkGenerate(r.Context(), req.Year, req.Month, req.DoctorIDs)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// SystemMonthly returns the platform-wide monthly report.
// GET /api/v1/admin/reports/system/{year}/{month}
func (h *Handler) SystemMonthly(w http.ResponseWriter, r *http.Request) {
	year, month, ok := pathPeriod(r)
	if !ok {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid report period"})
		return
	}

	report, err := h.service.SystemMonthly(r.Context(), year, month)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}
