package reporting

import (
	"time"

	"github.com/google/uuid"
)

// DoctorMonthlyReport is the persisted monthly roll-up for one doctor.
// Earnings count completed appointments only; potential earnings count every
// non-cancelled appointment.
type DoctorMonthlyReport struct {
	DoctorID   uuid.UUID `json:"doctor_id"`
	DoctorName string    `json:"doctor_name"`
	Year       int       `json:"year"`
	Month      int       `json:"month"`

	TotalAppointments     int     `json:"total_appointments"`
	CompletedAppointments int     `json:"completed_appointments"`
	CancelledAppointments int     `json:"cancelled_appointments"`
	PendingAppointments   int     `json:"pending_appointments"`
	ConfirmedAppointments int     `json:"confirmed_appointments"`
	CompletionRate        float64 `json:"completion_rate"`
	CancellationRate      float64 `json:"cancellation_rate"`

	TotalEarningsCents     int64 `json:"total_earnings_cents"`
	PotentialEarningsCents int64 `json:"potential_earnings_cents"`
	LostEarningsCents      int64 `json:"lost_earnings_cents"`

	UniquePatients int `json:"unique_patients"`

	GeneratedAt time.Time `json:"generated_at"`
}

// BulkResult is the per-doctor outcome of a bulk generation run.
type BulkResult struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Status   string    `json:"status"`
	Message  string    `json:"message"`
}

// BulkSummary aggregates a bulk generation run. One doctor failing does not
// abort the rest.
type BulkSummary struct {
	Year         int          `json:"year"`
	Month        int          `json:"month"`
	TotalDoctors int          `json:"total_doctors"`
	Successful   int          `json:"successful_reports"`
	Failed       int          `json:"failed_reports"`
	Results      []BulkResult `json:"results"`
}

// DoctorRanking is one row of the system report's top-earner table.
type DoctorRanking struct {
	DoctorID       uuid.UUID `json:"doctor_id"`
	DoctorName     string    `json:"doctor_name"`
	Appointments   int       `json:"appointments"`
	EarningsCents  int64     `json:"earnings_cents"`
	UniquePatients int       `json:"unique_patients"`
}

// DailyTrend is one day of system-wide volume and earnings.
type DailyTrend struct {
	Date          string `json:"date"`
	Appointments  int    `json:"appointments"`
	EarningsCents int64  `json:"earnings_cents"`
}

// SystemReport is the platform-wide monthly report for admins.
type SystemReport struct {
	Year  int `json:"year"`
	Month int `json:"month"`

	TotalAppointments     int   `json:"total_appointments"`
	CompletedAppointments int   `json:"completed_appointments"`
	CancelledAppointments int   `json:"cancelled_appointments"`
	PendingAppointments   int   `json:"pending_appointments"`
	ConfirmedAppointments int   `json:"confirmed_appointments"`
	TotalEarningsCents    int64 `json:"total_earnings_cents"`
	UniquePatients        int   `json:"unique_patients"`
	ActiveDoctors         int   `json:"active_doctors"`

	CompletionRate   float64 `json:"completion_rate"`
	CancellationRate float64 `json:"cancellation_rate"`

	AppointmentGrowthPercent float64 `json:"appointment_growth_percent"`
	EarningsGrowthPercent    float64 `json:"earnings_growth_percent"`
	NewPatientsThisMonth     int     `json:"new_patients_this_month"`
	NewDoctorsThisMonth      int     `json:"new_doctors_this_month"`

	DoctorRankings []DoctorRanking `json:"doctor_rankings"`
	DailyTrends    []DailyTrend    `json:"daily_trends"`

	GeneratedAt time.Time `json:"generated_at"`
}
