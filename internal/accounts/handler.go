package accounts

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/healthdesk/healthdesk-platform/pkg/logging"
)

// Handler exposes registration and the doctor directory over HTTP.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates an accounts HTTP handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// PublicRoutes returns the routes reachable without authentication.
func (h *Handler) PublicRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.Register)
	r.Get("/doctors", h.ListDoctors)
	r.Get("/doctors/{doctorID}", h.GetDoctor)
	return r
}

// AuthedRoutes returns the routes requiring an authenticated actor.
func (h *Handler) AuthedRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/me", h.Me)
	r.Put("/doctors/{doctorID}/profile", h.UpdateDoctorProfile)
	r.Put("/doctors/{doctorID}/schedule", h.ReplaceSchedule)
	return r
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode accounts response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	default:
		h.logger.Error("accounts request failed", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

type registerRequest struct {
	FullName     string          `json:"full_name"`
	Email        string          `json:"email"`
	MobileNumber string          `json:"mobile_number"`
	Role         string          `json:"role"`
	DivisionID   *int64          `json:"division_id,omitempty"`
	DistrictID   *int64          `json:"district_id,omitempty"`
	ThanaID      *int64          `json:"thana_id,omitempty"`
	Doctor       *DoctorProfile  `json:"doctor_profile,omitempty"`
	Patient      *PatientProfile `json:"patient_profile,omitempty"`
}

// Register creates a new account.
// POST /api/v1/accounts/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	role, err := ParseRole(req.Role)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid role"})
		return
	}

	u := &User{
		FullName:     req.FullName,
		Email:        req.Email,
		MobileNumber: req.MobileNumber,
		Role:         role,
		DivisionID:   req.DivisionID,
		DistrictID:   req.DistrictID,
		ThanaID:      req.ThanaID,
		IsActive:     true,
	}
	created, err := h.service.Register(r.Context(), u, req.Doctor, req.Patient)
	if err != nil {
		// Registration failures are caller mistakes far more often than
		// system faults.
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

// Me returns the authenticated account.
// GET /api/v1/accounts/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	if actor == nil {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}
	h.writeJSON(w, http.StatusOK, actor)
}

// ListDoctors returns the active doctor directory.
// GET /api/v1/accounts/doctors
func (h *Handler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.service.ListDoctors(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if doctors == nil {
		doctors = []Doctor{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"doctors":     doctors,
		"total_count": len(doctors),
	})
}

// GetDoctor returns one doctor with profile and weekly schedule.
// GET /api/v1/accounts/doctors/{doctorID}
func (h *Handler) GetDoctor(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "doctorID"))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid doctor id"})
		return
	}
	doctor, err := h.service.ResolveDoctor(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, doctor)
}

// UpdateDoctorProfile replaces a doctor's profile columns.
// PUT /api/v1/accounts/doctors/{doctorID}/profile
func (h *Handler) UpdateDoctorProfile(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "doctorID"))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid doctor id"})
		return
	}

	var profile DoctorProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	profile.UserID = id

	if err := h.service.UpdateDoctorProfile(r.Context(), actor, &profile); err != nil {
		h.writeMutationError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, profile)
}

type scheduleRequest struct {
	Intervals []ScheduleInterval `json:"intervals"`
}

// ReplaceSchedule swaps a doctor's weekly availability template.
// PUT /api/v1/accounts/doctors/{doctorID}/schedule
func (h *Handler) ReplaceSchedule(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "doctorID"))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid doctor id"})
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	if err := h.service.ReplaceDoctorSchedule(r.Context(), actor, id, req.Intervals); err != nil {
		h.writeMutationError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"doctor_id": id,
		"intervals": len(req.Intervals),
	})
}

// writeMutationError distinguishes authorization refusals from bad input.
func (h *Handler) writeMutationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrForbidden):
		h.writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	default:
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
}
