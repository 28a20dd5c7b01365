package reminders

import (
	"time"

	"github.com/google/uuid"
)

// DueReminder is a confirmed appointment that still needs its 24-hour
// reminder, joined with the names and address the email needs.
type DueReminder struct {
	AppointmentID uuid.UUID
	PatientName   string
	PatientEmail  string
	DoctorName    string
	Date          time.Time
	TimeOfDay     string
}
