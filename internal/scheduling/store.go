package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx pool surface used by the store.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// querier is the subset shared by DB and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const uniqueViolation = "23505"

const timestampLayout = "2006-01-02 15:04:05"

// Store provides persistence for appointments.
type Store struct {
	db DB
}

// NewStore creates an appointment store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

const appointmentColumns = `id, patient_id, doctor_id, appointment_date, to_char(appointment_time, 'HH24:MI'),
	status, notes, symptoms, prescription, consultation_fee_cents, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var status string
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.Date, &a.TimeOfDay,
		&status, &a.Notes, &a.Symptoms, &a.Prescription, &a.ConsultationFeeCents,
		&a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFoundError("appointment not found")
	}
	if err != nil {
		return nil, systemError("load appointment", err)
	}
	a.Status = Status(status)
	return &a, nil
}

// Get fetches an appointment by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := s.db.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	return scanAppointment(row)
}

// conflictChecks runs the slot-conflict and daily-cap queries against q. The
// excludeID parameter skips the appointment being rescheduled; uuid.Nil means
// no exclusion. These reads must run inside the same transaction as the write
// they guard.
func (s *Store) conflictChecks(ctx context.Context, q querier, patientID, doctorID uuid.UUID, date time.Time, clock string, instant time.Time, excludeID uuid.UUID) error {
	var n int

	// Exact-slot conflict.
	row := q.QueryRow(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE doctor_id = $1 AND appointment_date = $2 AND appointment_time = $3::time
		  AND status <> 'cancelled' AND id <> $4`,
		doctorID, date, clock, excludeID)
	if err := row.Scan(&n); err != nil {
		return systemError("exact-slot conflict check", err)
	}
	if n > 0 {
		return conflictError("doctor already has an appointment at this time")
	}

	// Window conflict: any non-cancelled appointment whose start lies strictly
	// within AppointmentDuration of the requested instant overlaps it.
	windowStart := instant.Add(-AppointmentDuration).Format(timestampLayout)
	windowEnd := instant.Add(AppointmentDuration).Format(timestampLayout)
	row = q.QueryRow(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE doctor_id = $1 AND status <> 'cancelled' AND id <> $2
		  AND (appointment_date + appointment_time) > $3::timestamp
		  AND (appointment_date + appointment_time) < $4::timestamp`,
		doctorID, excludeID, windowStart, windowEnd)
	if err := row.Scan(&n); err != nil {
		return systemError("window conflict check", err)
	}
	if n > 0 {
		return conflictError("doctor has a conflicting appointment within the time range")
	}

	// One appointment per patient per doctor per date.
	row = q.QueryRow(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE patient_id = $1 AND doctor_id = $2 AND appointment_date = $3
		  AND status <> 'cancelled' AND id <> $4`,
		patientID, doctorID, date, excludeID)
	if err := row.Scan(&n); err != nil {
		return systemError("patient-doctor-date conflict check", err)
	}
	if n > 0 {
		return conflictError("you already have an appointment with this doctor on this date")
	}

	// Daily volume cap across all doctors.
	row = q.QueryRow(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE patient_id = $1 AND appointment_date = $2
		  AND status <> 'cancelled' AND id <> $3`,
		patientID, date, excludeID)
	if err := row.Scan(&n); err != nil {
		return systemError("daily cap check", err)
	}
	if n >= MaxDailyAppointments {
		return conflictError("maximum %d appointments allowed per day", MaxDailyAppointments)
	}

	return nil
}

// CreateWithChecks re-validates slot conflicts and inserts the appointment in
// one transaction. The partial unique index on (doctor, date, time) is the
// final backstop: a race that slips past the checks surfaces as a unique
// violation and is reported as a conflict.
func (s *Store) CreateWithChecks(ctx context.Context, a *Appointment, instant time.Time) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return systemError("begin booking transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.conflictChecks(ctx, tx, a.PatientID, a.DoctorID, a.Date, a.TimeOfDay, instant, uuid.Nil); err != nil {
		return err
	}

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err = tx.Exec(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, appointment_date, appointment_time, status, notes, symptoms, prescription, consultation_fee_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::time, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.PatientID, a.DoctorID, a.Date, a.TimeOfDay, string(a.Status),
		a.Notes, a.Symptoms, a.Prescription, a.ConsultationFeeCents, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return conflictError("doctor already has an appointment at this time")
		}
		return systemError("insert appointment", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return systemError("commit booking transaction", err)
	}
	return nil
}

// RescheduleWithChecks moves an appointment to a new date/time inside one
// transaction, re-running the conflict checks with the appointment itself
// excluded. Rescheduling implies re-confirmation.
func (s *Store) RescheduleWithChecks(ctx context.Context, a *Appointment, newDate time.Time, newClock string, instant time.Time) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return systemError("begin reschedule transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.conflictChecks(ctx, tx, a.PatientID, a.DoctorID, newDate, newClock, instant, a.ID); err != nil {
		return err
	}

	now := time.Now().UTC()
	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET appointment_date = $1, appointment_time = $2::time, status = $3, updated_at = $4
		WHERE id = $5`,
		newDate, newClock, string(StatusConfirmed), now, a.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return conflictError("doctor already has an appointment at this time")
		}
		return systemError("update appointment schedule", err)
	}
	if tag.RowsAffected() == 0 {
		return notFoundError("appointment not found")
	}

	if err := tx.Commit(ctx); err != nil {
		return systemError("commit reschedule transaction", err)
	}

	a.Date = newDate
	a.TimeOfDay = newClock
	a.Status = StatusConfirmed
	a.UpdatedAt = now
	return nil
}

// UpdateStatus persists a status transition.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE appointments SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id)
	if err != nil {
		return systemError("update appointment status", err)
	}
	if tag.RowsAffected() == 0 {
		return notFoundError("appointment not found")
	}
	return nil
}

// BookedStarts lists the occupied (non-cancelled) start times of a doctor on
// one date, normalized to "15:04".
func (s *Store) BookedStarts(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT to_char(appointment_time, 'HH24:MI') FROM appointments
		WHERE doctor_id = $1 AND appointment_date = $2 AND status <> 'cancelled'
		ORDER BY appointment_time`, doctorID, date)
	if err != nil {
		return nil, systemError("list booked starts", err)
	}
	defer rows.Close()

	var starts []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, systemError("scan booked start", err)
		}
		starts = append(starts, s)
	}
	if err := rows.Err(); err != nil {
		return nil, systemError("iterate booked starts", err)
	}
	return starts, nil
}

// ListForPatient returns a patient's appointments, optionally filtered by status.
func (s *Store) ListForPatient(ctx context.Context, patientID uuid.UUID, status *Status) ([]Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE patient_id = $1`
	args := []any{patientID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, string(*status))
	}
	query += ` ORDER BY appointment_date DESC, appointment_time DESC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, systemError("list patient appointments", err)
	}
	defer rows.Close()
	return collectAppointments(rows)
}

// ListForDoctorRange returns a doctor's appointments within [from, to].
func (s *Store) ListForDoctorRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+` FROM appointments
		WHERE doctor_id = $1 AND appointment_date >= $2 AND appointment_date <= $3
		ORDER BY appointment_date, appointment_time`, doctorID, from, to)
	if err != nil {
		return nil, systemError("list doctor appointments", err)
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	var out []Appointment
	for rows.Next() {
		var a Appointment
		var status string
		err := rows.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.Date, &a.TimeOfDay,
			&status, &a.Notes, &a.Symptoms, &a.Prescription, &a.ConsultationFeeCents,
			&a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return nil, systemError("scan appointment row", err)
		}
		a.Status = Status(status)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, systemError("iterate appointments", err)
	}
	return out, nil
}
