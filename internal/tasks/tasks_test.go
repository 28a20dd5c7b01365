package tasks

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/healthdesk/healthdesk-platform/internal/accounts"
	"github.com/healthdesk/healthdesk-platform/internal/notify"
	"github.com/healthdesk/healthdesk-platform/internal/reminders"
	"github.com/healthdesk/healthdesk-platform/internal/reporting"
	"github.com/healthdesk/healthdesk-platform/pkg/logging"
)

// stubDirectory resolves one known doctor and nothing else.
type stubDirectory struct {
	doctor *accounts.Doctor
}

func (d stubDirectory) ResolveUser(context.Context, uuid.UUID) (*accounts.User, error) {
	return nil, accounts.ErrNotFound
}

func (d stubDirectory) ResolveDoctor(_ context.Context, id uuid.UUID) (*accounts.Doctor, error) {
	if d.doctor != nil && d.doctor.User.ID == id {
		return d.doctor, nil
	}
	return nil, accounts.ErrNotFound
}

type recordingSender struct {
	sent []notify.EmailMessage
}

func (r *recordingSender) Send(_ context.Context, msg notify.EmailMessage) error {
	r.sent = append(r.sent, msg)
	return nil
}

var taskNow = time.Date(2026, 9, 1, 2, 0, 0, 0, time.UTC)

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func newTestTasks(t *testing.T, doctor *accounts.Doctor) (pgxmock.PgxPoolIface, pgxmock.PgxPoolIface, *recordingSender, *Tasks) {
	t.Helper()
	reminderDB, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(reminderDB.Close)
	reportDB, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(reportDB.Close)

	clock := func() time.Time { return taskNow }
	directory := stubDirectory{doctor: doctor}
	sender := &recordingSender{}
	worker := reminders.NewWorker(
		reminders.NewStore(reminderDB), notify.NewStubEmailSender(nil),
		time.UTC, 24*time.Hour, nil, logging.Default()).WithClock(clock)
	reports := reporting.NewService(
		reporting.NewStore(reportDB), directory, nil, 0, nil, logging.Default()).WithClock(clock)

	return reminderDB, reportDB, sender,
		New(worker, reports, directory, sender, logging.Default()).WithClock(clock)
}

func TestRunDailyRemindersTargetsLeadDate(t *testing.T) {
	reminderDB, _, _, tasks := newTestTasks(t, nil)

	reminderDB.ExpectQuery("FROM appointments").
		WithArgs(time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "patient_name", "patient_email", "doctor_name",
			"appointment_date", "appointment_time",
		}))

	if err := tasks.RunDailyReminders(context.Background()); err != nil {
		t.Fatalf("RunDailyReminders returned error: %v", err)
	}
	if err := reminderDB.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRunMonthlyReportsUsesPreviousMonth(t *testing.T) {
	_, reportDB, _, tasks := newTestTasks(t, nil)

	// September 1st run covers August.
	reportDB.ExpectQuery("SELECT DISTINCT doctor_id").
		WithArgs(
			time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		).
		WillReturnRows(pgxmock.NewRows([]string{"doctor_id"}))

	if err := tasks.RunMonthlyReports(context.Background()); err != nil {
		t.Fatalf("RunMonthlyReports returned error: %v", err)
	}
	if err := reportDB.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRunMonthlyReportsEmailsDoctors(t *testing.T) {
	doctorID := uuid.New()
	doctor := &accounts.Doctor{
		User: accounts.User{
			ID:       doctorID,
			FullName: "Dr. Karim",
			Email:    "karim@healthdesk.example",
			Role:     accounts.RoleDoctor,
			IsActive: true,
		},
	}
	_, reportDB, sender, tasks := newTestTasks(t, doctor)

	reportDB.ExpectQuery("SELECT DISTINCT doctor_id").
		WithArgs(anyArgs(2)...).
		WillReturnRows(pgxmock.NewRows([]string{"doctor_id"}).AddRow(doctorID))
	reportDB.ExpectQuery("FROM appointments").
		WithArgs(anyArgs(3)...).
		WillReturnRows(pgxmock.NewRows([]string{
			"count", "completed", "cancelled", "pending", "confirmed",
			"earnings", "potential", "lost", "patients", "doctors",
		}).AddRow(10, 8, 2, 0, 0, int64(900000), int64(1100000), int64(200000), 7, 1))
	reportDB.ExpectExec("INSERT INTO monthly_reports").
		WithArgs(anyArgs(12)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	reportDB.ExpectQuery("FROM monthly_reports").
		WithArgs(anyArgs(3)...).
		WillReturnRows(pgxmock.NewRows([]string{
			"doctor_id", "report_year", "report_month",
			"total_appointments", "completed_appointments", "cancelled_appointments",
			"pending_appointments", "confirmed_appointments",
			"total_patients", "total_earnings_cents", "generated_at",
		}).AddRow(doctorID, 2026, 8, 10, 8, 2, 0, 0, 7, int64(900000), taskNow))

	if err := tasks.RunMonthlyReports(context.Background()); err != nil {
		t.Fatalf("RunMonthlyReports returned error: %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 report email, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.To != "karim@healthdesk.example" {
		t.Errorf("email sent to %q, want the doctor's address", msg.To)
	}
	if !strings.Contains(msg.Subject, "2026-08") {
		t.Errorf("subject %q does not name the report period", msg.Subject)
	}
	if !strings.Contains(msg.Body, "Appointments: 10") {
		t.Errorf("body %q missing the appointment total", msg.Body)
	}
	if err := reportDB.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRunMonthlyReportsSkipsEmailOnFailedDoctor(t *testing.T) {
	doctorID := uuid.New()
	_, reportDB, sender, tasks := newTestTasks(t, nil)

	// The directory knows no doctors, so generation fails and no mail goes out.
	reportDB.ExpectQuery("SELECT DISTINCT doctor_id").
		WithArgs(anyArgs(2)...).
		WillReturnRows(pgxmock.NewRows([]string{"doctor_id"}).AddRow(doctorID))

	if err := tasks.RunMonthlyReports(context.Background()); err != nil {
		t.Fatalf("RunMonthlyReports returned error: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("expected no report emails, got %d", len(sender.sent))
	}
	if err := reportDB.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
