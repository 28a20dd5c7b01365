package reminders

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/healthdesk/healthdesk-platform/internal/notify"
	"github.com/healthdesk/healthdesk-platform/internal/observability/metrics"
	"github.com/healthdesk/healthdesk-platform/pkg/logging"
)

// Worker sends upcoming-appointment reminders. One failed email does not stop
// the batch; the reminder stays unsent and is retried on the next run.
type Worker struct {
	store   *Store
	sender  notify.EmailSender
	loc     *time.Location
	lead    time.Duration
	tracer  trace.Tracer
	metrics *metrics.ReminderMetrics
	logger  *logging.Logger
	now     func() time.Time
}

// NewWorker creates a reminder worker. loc is the business timezone and lead
// how far ahead of the appointment the reminder goes out; with the default
// daily cadence a 24h lead targets tomorrow's appointments.
func NewWorker(store *Store, sender notify.EmailSender, loc *time.Location, lead time.Duration, m *metrics.ReminderMetrics, logger *logging.Logger) *Worker {
	if store == nil {
		panic("reminders: store required")
	}
	if sender == nil {
		panic("reminders: sender required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if lead <= 0 {
		lead = 24 * time.Hour
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{
		store:   store,
		sender:  sender,
		loc:     loc,
		lead:    lead,
		tracer:  otel.Tracer("healthdesk.internal.reminders"),
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock overrides the worker clock. Test hook.
func (w *Worker) WithClock(now func() time.Time) *Worker {
	w.now = now
	return w
}

// ProcessDue sends reminders for every confirmed appointment on the date that
// sits one lead interval ahead and has not been reminded yet. Returns the
// number of reminders sent.
func (w *Worker) ProcessDue(ctx context.Context) (int, error) {
	ctx, span := w.tracer.Start(ctx, "reminders.process_due")
	defer span.End()

	ahead := w.now().In(w.loc).Add(w.lead)
	target := time.Date(ahead.Year(), ahead.Month(), ahead.Day(), 0, 0, 0, 0, time.UTC)
	span.SetAttributes(attribute.String("healthdesk.target_date", target.Format("2006-01-02")))

	due, err := w.store.ListDue(ctx, target)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("reminders: list due: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	w.logger.Info("processing due appointment reminders",
		"date", target.Format("2006-01-02"), "count", len(due))

	sent := 0
	for i := range due {
		r := &due[i]
		if err := w.processOne(ctx, r); err != nil {
			w.metrics.ObserveDispatch("failed")
			w.logger.Error("failed to send appointment reminder",
				"appointment_id", r.AppointmentID, "error", err)
			continue
		}
		w.metrics.ObserveDispatch("sent")
		sent++
	}
	return sent, nil
}

func (w *Worker) processOne(ctx context.Context, r *DueReminder) error {
	msg := notify.AppointmentReminderEmail(
		r.PatientEmail, r.PatientName, r.DoctorName,
		r.Date.Format("2006-01-02"), r.TimeOfDay)

	if err := w.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if err := w.store.MarkSent(ctx, r.AppointmentID, w.now().UTC()); err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}

	w.logger.Info("appointment reminder sent",
		"appointment_id", r.AppointmentID,
		"date", r.Date.Format("2006-01-02"), "time", r.TimeOfDay)
	return nil
}
