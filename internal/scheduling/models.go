package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// ParseStatus validates a status string from the wire.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return Status(s), true
	default:
		return "", false
	}
}

// transitions is the single source of truth for legal status changes.
// completed and cancelled are terminal.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// CanTransition reports whether from → to is a legal status change.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Appointment is the central scheduling entity. Date carries the calendar
// date (midnight, location-independent); TimeOfDay is the wall-clock start in
// "15:04" form. Both are interpreted in the single business timezone.
type Appointment struct {
	ID                   uuid.UUID `json:"id"`
	PatientID            uuid.UUID `json:"patient_id"`
	DoctorID             uuid.UUID `json:"doctor_id"`
	Date                 time.Time `json:"appointment_date"`
	TimeOfDay            string    `json:"appointment_time"`
	Status               Status    `json:"status"`
	Notes                string    `json:"notes,omitempty"`
	Symptoms             string    `json:"symptoms,omitempty"`
	Prescription         string    `json:"prescription,omitempty"`
	ConsultationFeeCents int64     `json:"consultation_fee_cents"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Instant combines the appointment's date and wall-clock time in loc.
func (a *Appointment) Instant(loc *time.Location) time.Time {
	t, err := time.Parse("15:04", a.TimeOfDay)
	if err != nil {
		return time.Time{}
	}
	return time.Date(a.Date.Year(), a.Date.Month(), a.Date.Day(), t.Hour(), t.Minute(), 0, 0, loc)
}

// BookingRequest is a patient-initiated booking submission.
type BookingRequest struct {
	PatientID uuid.UUID `json:"patient_id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	Date      string    `json:"appointment_date"` // "2006-01-02"
	Time      string    `json:"appointment_time"` // "15:04"
	Notes     string    `json:"notes,omitempty"`
	Symptoms  string    `json:"symptoms,omitempty"`
}

// BookingConfirmation is returned to the caller on a successful booking.
type BookingConfirmation struct {
	AppointmentID        uuid.UUID `json:"appointment_id"`
	Date                 string    `json:"appointment_date"`
	Time                 string    `json:"appointment_time"`
	DoctorName           string    `json:"doctor_name"`
	ConsultationFeeCents int64     `json:"consultation_fee_cents"`
	Status               Status    `json:"status"`
}

// SlotAvailability partitions a doctor's declared slot starts for one date.
type SlotAvailability struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Date     string    `json:"date"`
	All      []string  `json:"all_slots"`
	Booked   []string  `json:"booked_slots"`
	Free     []string  `json:"free_slots"`
}
