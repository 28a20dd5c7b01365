package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a stored report does not exist.
var ErrNotFound = errors.New("reporting: report not found")

// DB abstracts the pgx pool surface used by the store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists monthly reports and runs the aggregate queries they are
// built from.
type Store struct {
	db DB
}

// NewStore creates a reporting store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// periodStats is the raw aggregate row shared by doctor and system reports.
type periodStats struct {
	total, completed, cancelled, pending, confirmed int
	earningsCents, potentialCents, lostCents        int64
	uniquePatients, activeDoctors                   int
}

const statsSelect = `
	SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE status = 'completed'),
		COUNT(*) FILTER (WHERE status = 'cancelled'),
		COUNT(*) FILTER (WHERE status = 'pending'),
		COUNT(*) FILTER (WHERE status = 'confirmed'),
		COALESCE(SUM(consultation_fee_cents) FILTER (WHERE status = 'completed'), 0),
		COALESCE(SUM(consultation_fee_cents) FILTER (WHERE status <> 'cancelled'), 0),
		COALESCE(SUM(consultation_fee_cents) FILTER (WHERE status = 'cancelled'), 0),
		COUNT(DISTINCT patient_id),
		COUNT(DISTINCT doctor_id)
	FROM appointments`

// DoctorPeriodStats aggregates one doctor's appointments within [from, to].
func (s *Store) DoctorPeriodStats(ctx context.Context, doctorID uuid.UUID, from, to time.Time) (*periodStats, error) {
	var st periodStats
	err := s.db.QueryRow(ctx, statsSelect+`
		WHERE doctor_id = $1 AND appointment_date >= $2 AND appointment_date <= $3`,
		doctorID, from, to).
		Scan(&st.total, &st.completed, &st.cancelled, &st.pending, &st.confirmed,
			&st.earningsCents, &st.potentialCents, &st.lostCents,
			&st.uniquePatients, &st.activeDoctors)
	if err != nil {
		return nil, fmt.Errorf("reporting: doctor period stats: %w", err)
	}
	return &st, nil
}

// SystemPeriodStats aggregates all appointments within [from, to].
func (s *Store) SystemPeriodStats(ctx context.Context, from, to time.Time) (*periodStats, error) {
	var st periodStats
	err := s.db.QueryRow(ctx, statsSelect+`
		WHERE appointment_date >= $1 AND appointment_date <= $2`, from, to).
		Scan(&st.total, &st.completed, &st.cancelled, &st.pending, &st.confirmed,
			&st.earningsCents, &st.potentialCents, &st.lostCents,
			&st.uniquePatients, &st.activeDoctors)
	if err != nil {
		return nil, fmt.Errorf("reporting: system period stats: %w", err)
	}
	return &st, nil
}

// UpsertMonthlyReport writes the roll-up, replacing any report already stored
// for the same doctor and period. Regeneration is therefore idempotent.
func (s *Store) UpsertMonthlyReport(ctx context.Context, r *DoctorMonthlyReport) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO monthly_reports (
			id, doctor_id, report_year, report_month,
			total_appointments, completed_appointments, cancelled_appointments,
			pending_appointments, confirmed_appointments,
			total_patients, total_earnings_cents, generated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (doctor_id, report_year, report_month) DO UPDATE SET
			total_appointments = EXCLUDED.total_appointments,
			completed_appointments = EXCLUDED.completed_appointments,
			cancelled_appointments = EXCLUDED.cancelled_appointments,
			pending_appointments = EXCLUDED.pending_appointments,
			confirmed_appointments = EXCLUDED.confirmed_appointments,
			total_patients = EXCLUDED.total_patients,
			total_earnings_cents = EXCLUDED.total_earnings_cents,
			generated_at = EXCLUDED.generated_at`,
		uuid.New(), r.DoctorID, r.Year, r.Month,
		r.TotalAppointments, r.CompletedAppointments, r.CancelledAppointments,
		r.PendingAppointments, r.ConfirmedAppointments,
		r.UniquePatients, r.TotalEarningsCents, r.GeneratedAt)
	if err != nil {
		return fmt.Errorf("reporting: upsert monthly report: %w", err)
	}
	return nil
}

// DoctorsWithAppointments lists the distinct doctors with any appointment in
// [from, to]. Drives bulk generation.
func (s *Store) DoctorsWithAppointments(ctx context.Context, from, to time.Time) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT doctor_id FROM appointments
		WHERE appointment_date >= $1 AND appointment_date <= $2`, from, to)
	if err != nil {
		return nil, fmt.Errorf("reporting: doctors with appointments: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("reporting: scan doctor id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// TopEarners ranks doctors by completed-appointment earnings within [from, to].
func (s *Store) TopEarners(ctx context.Context, from, to time.Time, limit int) ([]DoctorRanking, error) {
	rows, err := s.db.Query(ctx, `
		SELECT a.doctor_id, u.full_name,
			COUNT(*),
			COALESCE(SUM(a.consultation_fee_cents), 0),
			COUNT(DISTINCT a.patient_id)
		FROM appointments a
		JOIN users u ON u.id = a.doctor_id
		WHERE a.status = 'completed' AND a.appointment_date >= $1 AND a.appointment_date <= $2
		GROUP BY a.doctor_id, u.full_name
		ORDER BY COALESCE(SUM(a.consultation_fee_cents), 0) DESC
		LIMIT $3`, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("reporting: top earners: %w", err)
	}
	defer rows.Close()

	var out []DoctorRanking
	for rows.Next() {
		var r DoctorRanking
		if err := rows.Scan(&r.DoctorID, &r.DoctorName, &r.Appointments, &r.EarningsCents, &r.UniquePatients); err != nil {
			return nil, fmt.Errorf("reporting: scan ranking: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DailyTrends returns per-day volume and completed earnings within [from, to].
func (s *Store) DailyTrends(ctx context.Context, from, to time.Time) ([]DailyTrend, error) {
	rows, err := s.db.Query(ctx, `
		SELECT to_char(appointment_date, 'YYYY-MM-DD'),
			COUNT(*),
			COALESCE(SUM(consultation_fee_cents) FILTER (WHERE status = 'completed'), 0)
		FROM appointments
		WHERE appointment_date >= $1 AND appointment_date <= $2
		GROUP BY appointment_date
		ORDER BY appointment_date`, from, to)
	if err != nil {
		return nil, fmt.Errorf("reporting: daily trends: %w", err)
	}
	defer rows.Close()

	var out []DailyTrend
	for rows.Next() {
		var t DailyTrend
		if err := rows.Scan(&t.Date, &t.Appointments, &t.EarningsCents); err != nil {
			return nil, fmt.Errorf("reporting: scan trend: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// NewUsersCount counts accounts of one role created within [from, to].
func (s *Store) NewUsersCount(ctx context.Context, role string, from, to time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM users
		WHERE role = $1 AND created_at >= $2 AND created_at < $3 + INTERVAL '1 day'`,
		role, from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("reporting: new users count: %w", err)
	}
	return n, nil
}

// GetMonthlyReport loads a stored doctor report.
func (s *Store) GetMonthlyReport(ctx context.Context, doctorID uuid.UUID, year, month int) (*DoctorMonthlyReport, error) {
	var r DoctorMonthlyReport
	err := s.db.QueryRow(ctx, `
		SELECT doctor_id, report_year, report_month,
			total_appointments, completed_appointments, cancelled_appointments,
			pending_appointments, confirmed_appointments,
			total_patients, total_earnings_cents, generated_at
		FROM monthly_reports
		WHERE doctor_id = $1 AND report_year = $2 AND report_month = $3`,
		doctorID, year, month).
		Scan(&r.DoctorID, &r.Year, &r.Month,
			&r.TotalAppointments, &r.CompletedAppointments, &r.CancelledAppointments,
			&r.PendingAppointments, &r.ConfirmedAppointments,
			&r.UniquePatients, &r.TotalEarningsCents, &r.GeneratedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reporting: get monthly report: %w", err)
	}
	return &r, nil
}
