package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/healthdesk/healthdesk-platform/internal/accounts"
	"github.com/healthdesk/healthdesk-platform/internal/notify"
	"github.com/healthdesk/healthdesk-platform/internal/reminders"
	"github.com/healthdesk/healthdesk-platform/internal/reporting"
	"github.com/healthdesk/healthdesk-platform/pkg/logging"
)

// Tasks bundles the scheduled entry points. The methods carry no timer of
// their own; cmd/scheduler invokes them on a cron cadence and both are
// idempotent under re-runs.
type Tasks struct {
	reminders *reminders.Worker
	reports   *reporting.Service
	directory accounts.Directory
	sender    notify.EmailSender
	logger    *logging.Logger
	now       func() time.Time
}

// New creates the task runner. The directory and sender feed the
// report-ready emails that go out after each monthly run.
func New(reminderWorker *reminders.Worker, reportService *reporting.Service, directory accounts.Directory, sender notify.EmailSender, logger *logging.Logger) *Tasks {
	if reminderWorker == nil {
		panic("tasks: reminder worker required")
	}
	if reportService == nil {
		panic("tasks: report service required")
	}
	if directory == nil {
		panic("tasks: directory required")
	}
	if sender == nil {
		panic("tasks: sender required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Tasks{
		reminders: reminderWorker,
		reports:   reportService,
		directory: directory,
		sender:    sender,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the task clock. Test hook.
func (t *Tasks) WithClock(now func() time.Time) *Tasks {
	t.now = now
	return t
}

// RunDailyReminders sends the pending appointment reminders for the upcoming
// lead window.
func (t *Tasks) RunDailyReminders(ctx context.Context) error {
	sent, err := t.reminders.ProcessDue(ctx)
	if err != nil {
		return fmt.Errorf("tasks: daily reminders: %w", err)
	}
	t.logger.Info("daily reminder run completed", "sent", sent)
	return nil
}

// RunMonthlyReports regenerates every doctor's report for the previous
// calendar month and emails each doctor whose report was generated.
func (t *Tasks) RunMonthlyReports(ctx context.Context) error {
	// Last day of the previous month; AddDate(0, -1, 0) would normalize
	// Mar 31 to Mar 3.
	n := t.now().UTC()
	prev := time.Date(n.Year(), n.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	year, month := prev.Year(), int(prev.Month())

	summary, err := t.reports.BulkGenerate(ctx, year, month, nil)
	if err != nil {
		return fmt.Errorf("tasks: monthly reports for %04d-%02d: %w", year, month, err)
	}

	notified := 0
	for _, result := range summary.Results {
		if result.Status != "success" {
			continue
		}
		if err := t.notifyDoctorReport(ctx, result.DoctorID, year, month); err != nil {
			t.logger.Error("report notification failed",
				"doctor_id", result.DoctorID, "year", year, "month", month, "error", err)
			continue
		}
		notified++
	}

	t.logger.Info("monthly report run completed",
		"year", year, "month", month,
		"successful", summary.Successful, "failed", summary.Failed, "notified", notified)
	return nil
}

// notifyDoctorReport emails one doctor that their monthly report is ready.
// Failures are logged by the caller and never fail the run; the report itself
// is already stored.
func (t *Tasks) notifyDoctorReport(ctx context.Context, doctorID uuid.UUID, year, month int) error {
	doctor, err := t.directory.ResolveDoctor(ctx, doctorID)
	if err != nil {
		return fmt.Errorf("resolve doctor: %w", err)
	}
	report, err := t.reports.StoredDoctorMonthly(ctx, doctorID, year, month)
	if err != nil {
		return fmt.Errorf("load stored report: %w", err)
	}

	msg := notify.MonthlyReportEmail(doctor.User.Email, doctor.User.FullName,
		year, month, report.TotalAppointments, report.TotalEarningsCents)
	if err := t.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
