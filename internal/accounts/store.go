package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a referenced account does not exist.
var ErrNotFound = errors.New("accounts: not found")

// DB abstracts the pgx query interface for testing.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// execer is satisfied by both the pool and an open transaction.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store provides persistence for users, profiles and schedules.
type Store struct {
	db DB
}

// NewStore creates an accounts store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

const userColumns = `id, full_name, email, mobile_number, role, division_id, district_id, thana_id, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var role string
	err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.MobileNumber, &role,
		&u.DivisionID, &u.DistrictID, &u.ThanaID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("accounts: scan user: %w", err)
	}
	u.Role = Role(role)
	return &u, nil
}

// CreateAccount inserts the user row and its role profile in one transaction,
// so a failed profile write never leaves an orphan user behind.
func (s *Store) CreateAccount(ctx context.Context, u *User, doctor *DoctorProfile, patient *PatientProfile) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("accounts: begin registration: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := insertUser(ctx, tx, u); err != nil {
		return err
	}
	if doctor != nil {
		doctor.UserID = u.ID
		if err := upsertDoctorProfile(ctx, tx, doctor); err != nil {
			return err
		}
	}
	if patient != nil {
		patient.UserID = u.ID
		if err := upsertPatientProfile(ctx, tx, patient); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("accounts: commit registration: %w", err)
	}
	return nil
}

func insertUser(ctx context.Context, q execer, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	if !u.IsActive {
		u.IsActive = true
	}
	_, err := q.Exec(ctx, `
		INSERT INTO users (id, full_name, email, mobile_number, role, division_id, district_id, thana_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		u.ID, u.FullName, u.Email, u.MobileNumber, string(u.Role),
		u.DivisionID, u.DistrictID, u.ThanaID, u.IsActive, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("accounts: create user: %w", err)
	}
	return nil
}

// GetUser fetches a user by id.
func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetDoctor loads a doctor account with profile and active schedule intervals.
func (s *Store) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role != RoleDoctor {
		return nil, ErrNotFound
	}

	var d Doctor
	d.User = *user
	row := s.db.QueryRow(ctx, `
		SELECT user_id, license_number, specialization, experience_years, consultation_fee_cents, is_available, created_at
		FROM doctor_profiles WHERE user_id = $1`, id)
	err = row.Scan(&d.Profile.UserID, &d.Profile.LicenseNumber, &d.Profile.Specialization,
		&d.Profile.ExperienceYears, &d.Profile.ConsultationFeeCents, &d.Profile.IsAvailable, &d.Profile.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("accounts: scan doctor profile: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, doctor_id, day_of_week, to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), is_active
		FROM doctor_schedules
		WHERE doctor_id = $1 AND is_active
		ORDER BY day_of_week, start_time`, id)
	if err != nil {
		return nil, fmt.Errorf("accounts: load schedule: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var si ScheduleInterval
		if err := rows.Scan(&si.ID, &si.DoctorID, &si.DayOfWeek, &si.Start, &si.End, &si.IsActive); err != nil {
			return nil, fmt.Errorf("accounts: scan schedule: %w", err)
		}
		d.Schedule = append(d.Schedule, si)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("accounts: iterate schedule: %w", err)
	}
	return &d, nil
}

// UpsertDoctorProfile creates or updates the doctor-specific columns.
func (s *Store) UpsertDoctorProfile(ctx context.Context, p *DoctorProfile) error {
	return upsertDoctorProfile(ctx, s.db, p)
}

func upsertDoctorProfile(ctx context.Context, q execer, p *DoctorProfile) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := q.Exec(ctx, `
		INSERT INTO doctor_profiles (user_id, license_number, specialization, experience_years, consultation_fee_cents, is_available, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			license_number = EXCLUDED.license_number,
			specialization = EXCLUDED.specialization,
			experience_years = EXCLUDED.experience_years,
			consultation_fee_cents = EXCLUDED.consultation_fee_cents,
			is_available = EXCLUDED.is_available`,
		p.UserID, p.LicenseNumber, p.Specialization, p.ExperienceYears,
		p.ConsultationFeeCents, p.IsAvailable, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("accounts: upsert doctor profile: %w", err)
	}
	return nil
}

// UpsertPatientProfile creates or updates the patient-specific columns.
func (s *Store) UpsertPatientProfile(ctx context.Context, p *PatientProfile) error {
	return upsertPatientProfile(ctx, s.db, p)
}

func upsertPatientProfile(ctx context.Context, q execer, p *PatientProfile) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := q.Exec(ctx, `
		INSERT INTO patient_profiles (user_id, date_of_birth, blood_group, emergency_contact, medical_history, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			date_of_birth = EXCLUDED.date_of_birth,
			blood_group = EXCLUDED.blood_group,
			emergency_contact = EXCLUDED.emergency_contact,
			medical_history = EXCLUDED.medical_history`,
		p.UserID, p.DateOfBirth, p.BloodGroup, p.EmergencyContact, p.MedicalHistory, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("accounts: upsert patient profile: %w", err)
	}
	return nil
}

// ReplaceSchedule swaps a doctor's weekly availability template inside one
// transaction. Existing intervals are removed rather than soft-disabled because
// the template carries no history, and a failed insert rolls the delete back so
// the doctor never ends up with a half-empty week.
func (s *Store) ReplaceSchedule(ctx context.Context, doctorID uuid.UUID, intervals []ScheduleInterval) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("accounts: begin schedule replace: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM doctor_schedules WHERE doctor_id = $1`, doctorID); err != nil {
		return fmt.Errorf("accounts: clear schedule: %w", err)
	}
	for i := range intervals {
		si := &intervals[i]
		if si.ID == uuid.Nil {
			si.ID = uuid.New()
		}
		si.DoctorID = doctorID
		si.IsActive = true
		_, err := tx.Exec(ctx, `
			INSERT INTO doctor_schedules (id, doctor_id, day_of_week, start_time, end_time, is_active)
			VALUES ($1, $2, $3, $4::time, $5::time, $6)`,
			si.ID, si.DoctorID, si.DayOfWeek, si.Start, si.End, si.IsActive,
		)
		if err != nil {
			return fmt.Errorf("accounts: insert schedule interval: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("accounts: commit schedule replace: %w", err)
	}
	return nil
}

// ListDoctors returns active doctor accounts with their profiles.
func (s *Store) ListDoctors(ctx context.Context) ([]Doctor, error) {
	rows, err := s.db.Query(ctx, `
		SELECT u.id, u.full_name, u.email, u.mobile_number, u.role, u.division_id, u.district_id, u.thana_id, u.is_active, u.created_at, u.updated_at,
		       p.license_number, p.specialization, p.experience_years, p.consultation_fee_cents, p.is_available, p.created_at
		FROM users u
		JOIN doctor_profiles p ON p.user_id = u.id
		WHERE u.role = 'doctor' AND u.is_active
		ORDER BY u.full_name`)
	if err != nil {
		return nil, fmt.Errorf("accounts: list doctors: %w", err)
	}
	defer rows.Close()

	var doctors []Doctor
	for rows.Next() {
		var d Doctor
		var role string
		err := rows.Scan(&d.User.ID, &d.User.FullName, &d.User.Email, &d.User.MobileNumber, &role,
			&d.User.DivisionID, &d.User.DistrictID, &d.User.ThanaID, &d.User.IsActive, &d.User.CreatedAt, &d.User.UpdatedAt,
			&d.Profile.LicenseNumber, &d.Profile.Specialization, &d.Profile.ExperienceYears,
			&d.Profile.ConsultationFeeCents, &d.Profile.IsAvailable, &d.Profile.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("accounts: scan doctor row: %w", err)
		}
		d.User.Role = Role(role)
		d.Profile.UserID = d.User.ID
		doctors = append(doctors, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("accounts: iterate doctors: %w", err)
	}
	return doctors, nil
}
