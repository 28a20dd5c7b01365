package accounts

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role identifies what kind of account a user holds. Authorization decisions
// switch exhaustively on this type rather than comparing raw strings.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// ParseRole validates a role string from the wire.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RolePatient, RoleDoctor, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("accounts: unknown role %q", s)
	}
}

// User is a registered account of any role.
type User struct {
	ID           uuid.UUID `json:"id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	MobileNumber string    `json:"mobile_number"`
	Role         Role      `json:"role"`
	DivisionID   *int64    `json:"division_id,omitempty"`
	DistrictID   *int64    `json:"district_id,omitempty"`
	ThanaID      *int64    `json:"thana_id,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ScheduleInterval is one weekly availability window for a doctor.
// DayOfWeek runs Monday=0 .. Sunday=6. Start/End are wall-clock "15:04"
// strings in the business timezone; intervals are half-open [Start, End).
type ScheduleInterval struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	DayOfWeek int       `json:"day_of_week"`
	Start     string    `json:"start_time"`
	End       string    `json:"end_time"`
	IsActive  bool      `json:"is_active"`
}

// DoctorProfile carries the doctor-specific columns.
type DoctorProfile struct {
	UserID               uuid.UUID `json:"user_id"`
	LicenseNumber        string    `json:"license_number"`
	Specialization       string    `json:"specialization"`
	ExperienceYears      int       `json:"experience_years"`
	ConsultationFeeCents int64     `json:"consultation_fee_cents"`
	IsAvailable          bool      `json:"is_available"`
	CreatedAt            time.Time `json:"created_at"`
}

// Doctor aggregates the account, profile and weekly schedule of one doctor.
// This is the shape the scheduling engine consumes.
type Doctor struct {
	User     User               `json:"user"`
	Profile  DoctorProfile      `json:"profile"`
	Schedule []ScheduleInterval `json:"schedule"`
}

// PatientProfile carries the patient-specific columns.
type PatientProfile struct {
	UserID           uuid.UUID  `json:"user_id"`
	DateOfBirth      *time.Time `json:"date_of_birth,omitempty"`
	BloodGroup       string     `json:"blood_group,omitempty"`
	EmergencyContact string     `json:"emergency_contact,omitempty"`
	MedicalHistory   string     `json:"medical_history,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}
