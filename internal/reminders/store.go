package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the database interface used by the reminders store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists reminder delivery state in Postgres.
type Store struct {
	db DB
}

// NewStore creates a reminders store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// ListDue returns confirmed appointments on the given date that have not had
// a reminder sent yet. One row per appointment; the reminder row may not
// exist yet.
func (s *Store) ListDue(ctx context.Context, date time.Time) ([]DueReminder, error) {
	rows, err := s.db.Query(ctx, `
		SELECT a.id,
		       p.full_name, p.email,
		       d.full_name,
		       a.appointment_date, to_char(a.appointment_time, 'HH24:MI')
		FROM appointments a
		JOIN users p ON p.id = a.patient_id
		JOIN users d ON d.id = a.doctor_id
		LEFT JOIN appointment_reminders ar ON ar.appointment_id = a.id
		WHERE a.appointment_date = $1
		  AND a.status = 'confirmed'
		  AND (ar.appointment_id IS NULL OR ar.reminder_sent = FALSE)
		ORDER BY a.appointment_time, a.id`,
		date)
	if err != nil {
		return nil, fmt.Errorf("reminders: list due: %w", err)
	}
	defer rows.Close()

	var due []DueReminder
	for rows.Next() {
		var r DueReminder
		if err := rows.Scan(&r.AppointmentID, &r.PatientName, &r.PatientEmail,
			&r.DoctorName, &r.Date, &r.TimeOfDay); err != nil {
			return nil, fmt.Errorf("reminders: scan due reminder: %w", err)
		}
		due = append(due, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reminders: iterate due reminders: %w", err)
	}
	return due, nil
}

// MarkSent records that the reminder for an appointment went out.
func (s *Store) MarkSent(ctx context.Context, appointmentID uuid.UUID, sentAt time.Time) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO appointment_reminders (id, appointment_id, reminder_sent, sent_at)
		VALUES ($1, $2, TRUE, $3)
		ON CONFLICT (appointment_id)
		DO UPDATE SET reminder_sent = TRUE, sent_at = EXCLUDED.sent_at`,
		uuid.New(), appointmentID, sentAt)
	if err != nil {
		return fmt.Errorf("reminders: mark sent: %w", err)
	}
	return nil
}
