package scheduling

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/healthdesk/healthdesk-platform/internal/accounts"
	"github.com/healthdesk/healthdesk-platform/internal/http/middleware"
	"github.com/healthdesk/healthdesk-platform/pkg/logging"
)

// Handler provides HTTP endpoints for appointments.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new appointment HTTP handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Routes returns a chi router with appointment routes. All routes assume
// ActorAuth has already populated the request context.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Book)
	r.Get("/", h.ListMine)
	r.Get("/slots", h.Slots)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/status", h.UpdateStatus)
	r.Post("/{id}/reschedule", h.Reschedule)
	return r
}

// statusForKind maps a scheduling failure kind to an HTTP status code.
func statusForKind(k Kind) int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindAuthorization:
		return http.StatusForbidden
	case KindState:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	kind := KindOf(err)
	if kind == KindSystem {
		h.logger.Error("scheduling request failed", "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusForKind(kind))
	_ = json.NewEncoder(w).Encode(map[string]string{"error": MessageOf(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Book creates a new appointment.
// POST /api/v1/appointments
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r.Context())

	var req BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	conf, err := h.service.Book(r.Context(), actor, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, conf)
}

// Get returns one appointment.
// GET /api/v1/appointments/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error": "invalid appointment id"}`, http.StatusBadRequest)
		return
	}

	appt, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// ListMine returns the caller's appointments. Admins may pass patient_id to
// list on behalf of a patient.
// GET /api/v1/appointments?status=pending
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r.Context())
	if actor == nil {
		http.Error(w, `{"error": "authentication required"}`, http.StatusUnauthorized)
		return
	}

	patientID := actor.ID
	if raw := r.URL.Query().Get("patient_id"); raw != "" && actor.Role == accounts.RoleAdmin {
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, `{"error": "invalid patient_id"}`, http.StatusBadRequest)
			return
		}
		patientID = id
	}

	var status *Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, ok := ParseStatus(raw)
		if !ok {
			http.Error(w, `{"error": "invalid status filter"}`, http.StatusBadRequest)
			return
		}
		status = &st
	}

	appts, err := h.service.ListForPatient(r.Context(), actor, patientID, status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if appts == nil {
		appts = []Appointment{}
	}
	writeJSON(w, http.StatusOK, appts)
}

// Slots returns a doctor's slot availability for one date.
// GET /api/v1/appointments/slots?doctor_id=...&date=2026-09-01
func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	doctorID, err := uuid.Parse(r.URL.Query().Get("doctor_id"))
	if err != nil {
		http.Error(w, `{"error": "doctor_id required"}`, http.StatusBadRequest)
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		http.Error(w, `{"error": "date required"}`, http.StatusBadRequest)
		return
	}

	avail, err := h.service.AvailableSlots(r.Context(), doctorID, date)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, avail)
}

// DoctorSlots is the public slot lookup keyed by path.
// GET /api/v1/doctors/{doctorID}/slots?date=2026-09-01
func (h *Handler) DoctorSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
	if err != nil {
		http.Error(w, `{"error": "invalid doctor id"}`, http.StatusBadRequest)
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		http.Error(w, `{"error": "date required"}`, http.StatusBadRequest)
		return
	}

	avail, err := h.service.AvailableSlots(r.Context(), doctorID, date)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, avail)
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus applies a lifecycle transition.
// POST /api/v1/appointments/{id}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error": "invalid appointment id"}`, http.StatusBadRequest)
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	target, ok := ParseStatus(req.Status)
	if !ok {
		http.Error(w, `{"error": "invalid status"}`, http.StatusBadRequest)
		return
	}

	appt, err := h.service.UpdateStatus(r.Context(), actor, id, target)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

type rescheduleRequest struct {
	Date string `json:"appointment_date"`
	Time string `json:"appointment_time"`
}

// Reschedule moves an appointment to a new slot.
// POST /api/v1/appointments/{id}/reschedule
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error": "invalid appointment id"}`, http.StatusBadRequest)
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	appt, err := h.service.Reschedule(r.Context(), actor, id, req.Date, req.Time)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}
