package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/healthdesk/healthdesk-platform/internal/accounts"
	"github.com/healthdesk/healthdesk-platform/internal/observability/metrics"
	"github.com/healthdesk/healthdesk-platform/pkg/logging"
)

var schedulingTracer = otel.Tracer("healthdesk.internal.scheduling")

// Service runs the booking pipeline and the appointment lifecycle.
type Service struct {
	store     *Store
	directory accounts.Directory
	loc       *time.Location
	now       func() time.Time
	metrics   *metrics.SchedulingMetrics
	logger    *logging.Logger
}

// NewService constructs a scheduling service. The location is the single
// business timezone all dates and wall-clock times are interpreted in.
func NewService(store *Store, directory accounts.Directory, loc *time.Location, m *metrics.SchedulingMetrics, logger *logging.Logger) *Service {
	if store == nil {
		panic("scheduling: store required")
	}
	if directory == nil {
		panic("scheduling: directory required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:     store,
		directory: directory,
		loc:       loc,
		now:       time.Now,
		metrics:   m,
		logger:    logger,
	}
}

// WithClock overrides the service clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Book runs the full booking pipeline: presence and role checks, doctor
// resolution, temporal and business-hour validation, schedule-template
// matching, then the transactional conflict checks and insert. The
// consultation fee is snapshotted from the doctor's profile at booking time.
func (s *Service) Book(ctx context.Context, actor *accounts.User, req BookingRequest) (*BookingConfirmation, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.book")
	defer span.End()
	started := s.now()

	conf, err := s.book(ctx, actor, req)
	outcome := "accepted"
	if err != nil {
		outcome = KindOf(err).String()
		span.RecordError(err)
	}
	s.metrics.ObserveBooking(outcome, s.now().Sub(started).Seconds())
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("healthdesk.appointment_id", conf.AppointmentID.String()))
	s.logger.Info("appointment booked",
		"appointment_id", conf.AppointmentID,
		"doctor_id", req.DoctorID,
		"date", conf.Date,
		"time", conf.Time,
	)
	return conf, nil
}

func (s *Service) book(ctx context.Context, actor *accounts.User, req BookingRequest) (*BookingConfirmation, error) {
	if actor == nil {
		return nil, authorizationError("authentication required")
	}
	if req.DoctorID == uuid.Nil {
		return nil, validationError("doctor_id is required")
	}
	if req.Date == "" {
		return nil, validationError("appointment_date is required")
	}
	if req.Time == "" {
		return nil, validationError("appointment_time is required")
	}

	patientID, err := s.resolveBookingPatient(ctx, actor, req.PatientID)
	if err != nil {
		return nil, err
	}

	doctor, err := s.directory.ResolveDoctor(ctx, req.DoctorID)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return nil, notFoundError("doctor not found")
		}
		return nil, systemError("resolve doctor", err)
	}
	if !doctor.Profile.IsAvailable {
		return nil, conflictError("doctor is currently not accepting appointments")
	}

	date, err := parseDate(req.Date)
	if err != nil {
		return nil, validationError("%v", err)
	}
	clock, err := parseClock(req.Time)
	if err != nil {
		return nil, validationError("%v", err)
	}

	instant := combine(date, clock, s.loc)
	now := s.now().In(s.loc)
	if verr := validateInstant(instant, now); verr != nil {
		return nil, verr
	}
	if verr := validateBusinessHours(instant); verr != nil {
		return nil, verr
	}
	if !scheduleCovers(doctor.Schedule, mondayIndex(instant), clock) {
		return nil, conflictError("doctor is not available at the selected time")
	}

	appt := &Appointment{
		PatientID:            patientID,
		DoctorID:             doctor.User.ID,
		Date:                 date,
		TimeOfDay:            clock,
		Status:               StatusPending,
		Notes:                req.Notes,
		Symptoms:             req.Symptoms,
		ConsultationFeeCents: doctor.Profile.ConsultationFeeCents,
	}
	if err := s.store.CreateWithChecks(ctx, appt, instant); err != nil {
		return nil, err
	}

	return &BookingConfirmation{
		AppointmentID:        appt.ID,
		Date:                 date.Format(dateLayout),
		Time:                 clock,
		DoctorName:           doctor.User.FullName,
		ConsultationFeeCents: appt.ConsultationFeeCents,
		Status:               appt.Status,
	}, nil
}

// resolveBookingPatient decides who the appointment is for. Patients always
// book for themselves; admins may book on a patient's behalf. Doctors do not
// book appointments.
func (s *Service) resolveBookingPatient(ctx context.Context, actor *accounts.User, requested uuid.UUID) (uuid.UUID, error) {
	switch actor.Role {
	case accounts.RolePatient:
		return actor.ID, nil
	case accounts.RoleAdmin:
		if requested == uuid.Nil {
			return uuid.Nil, validationError("patient_id is required")
		}
		u, err := s.directory.ResolveUser(ctx, requested)
		if err != nil {
			if errors.Is(err, accounts.ErrNotFound) {
				return uuid.Nil, notFoundError("patient not found")
			}
			return uuid.Nil, systemError("resolve patient", err)
		}
		if u.Role != accounts.RolePatient {
			return uuid.Nil, validationError("appointments can only be booked for patients")
		}
		return u.ID, nil
	default:
		return uuid.Nil, authorizationError("only patients can book appointments")
	}
}

// Get loads an appointment the actor is allowed to see.
func (s *Service) Get(ctx context.Context, actor *accounts.User, id uuid.UUID) (*Appointment, error) {
	appt, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeView(actor, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

// UpdateStatus applies a lifecycle transition after checking the transition
// table and the actor's permission for it.
func (s *Service) UpdateStatus(ctx context.Context, actor *accounts.User, id uuid.UUID, target Status) (*Appointment, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.update_status")
	defer span.End()

	appt, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	from := appt.Status

	if err := s.validateTransition(actor, appt, target); err != nil {
		s.metrics.ObserveTransition(string(from), string(target), KindOf(err).String())
		span.RecordError(err)
		return nil, err
	}

	if err := s.store.UpdateStatus(ctx, id, target); err != nil {
		s.metrics.ObserveTransition(string(from), string(target), KindOf(err).String())
		span.RecordError(err)
		return nil, err
	}
	appt.Status = target
	s.metrics.ObserveTransition(string(from), string(target), "ok")
	s.logger.Info("appointment status updated",
		"appointment_id", id, "from", from, "to", target, "actor_role", actor.Role)
	return appt, nil
}

func (s *Service) validateTransition(actor *accounts.User, appt *Appointment, target Status) error {
	if actor == nil {
		return authorizationError("authentication required")
	}
	if !CanTransition(appt.Status, target) {
		return stateError("cannot change status from %s to %s", appt.Status, target)
	}

	switch actor.Role {
	case accounts.RoleAdmin:
		// Any legal transition.
	case accounts.RoleDoctor:
		if actor.ID != appt.DoctorID {
			return authorizationError("appointment belongs to another doctor")
		}
	case accounts.RolePatient:
		if actor.ID != appt.PatientID {
			return authorizationError("appointment belongs to another patient")
		}
		if target != StatusCancelled {
			return authorizationError("patients can only cancel appointments")
		}
	default:
		return authorizationError("unknown role")
	}

	// A consultation cannot be marked completed before it has started.
	if target == StatusCompleted {
		if appt.Instant(s.loc).After(s.now().In(s.loc)) {
			return conflictError("cannot complete an appointment before its scheduled time")
		}
	}
	return nil
}

// Reschedule moves a pending or confirmed appointment to a new slot. The new
// slot passes through the same validation pipeline as a fresh booking, with
// the appointment itself excluded from conflict checks. A successful
// reschedule leaves the appointment confirmed.
func (s *Service) Reschedule(ctx context.Context, actor *accounts.User, id uuid.UUID, newDate, newTime string) (*Appointment, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.reschedule")
	defer span.End()

	appt, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusPending && appt.Status != StatusConfirmed {
		return nil, stateError("only pending or confirmed appointments can be rescheduled")
	}
	if err := authorizeView(actor, appt); err != nil {
		return nil, err
	}

	doctor, err := s.directory.ResolveDoctor(ctx, appt.DoctorID)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return nil, notFoundError("doctor not found")
		}
		return nil, systemError("resolve doctor", err)
	}

	date, err := parseDate(newDate)
	if err != nil {
		return nil, validationError("%v", err)
	}
	clock, err := parseClock(newTime)
	if err != nil {
		return nil, validationError("%v", err)
	}

	instant := combine(date, clock, s.loc)
	now := s.now().In(s.loc)
	if verr := validateInstant(instant, now); verr != nil {
		return nil, verr
	}
	if verr := validateBusinessHours(instant); verr != nil {
		return nil, verr
	}
	if !scheduleCovers(doctor.Schedule, mondayIndex(instant), clock) {
		return nil, conflictError("doctor is not available at the selected time")
	}

	if err := s.store.RescheduleWithChecks(ctx, appt, date, clock, instant); err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.logger.Info("appointment rescheduled",
		"appointment_id", id, "date", newDate, "time", clock)
	return appt, nil
}

// AvailableSlots partitions a doctor's declared slot starts for one date into
// booked and free. Sundays and past dates yield no slots.
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, dateStr string) (*SlotAvailability, error) {
	doctor, err := s.directory.ResolveDoctor(ctx, doctorID)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return nil, notFoundError("doctor not found")
		}
		return nil, systemError("resolve doctor", err)
	}

	date, err := parseDate(dateStr)
	if err != nil {
		return nil, validationError("%v", err)
	}

	avail := &SlotAvailability{
		DoctorID: doctorID,
		Date:     date.Format(dateLayout),
		All:      []string{},
		Booked:   []string{},
		Free:     []string{},
	}

	now := s.now().In(s.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	if combine(date, BusinessStart, s.loc).Before(today) {
		return avail, nil
	}

	dayIdx := mondayIndex(combine(date, BusinessStart, s.loc))
	if dayIdx == 6 {
		return avail, nil
	}

	all := slotStarts(doctor.Schedule, dayIdx)
	if len(all) == 0 {
		return avail, nil
	}
	booked, err := s.store.BookedStarts(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}

	taken := make(map[string]struct{}, len(booked))
	for _, b := range booked {
		taken[b] = struct{}{}
	}
	avail.All = all
	for _, slot := range all {
		if _, ok := taken[slot]; ok {
			avail.Booked = append(avail.Booked, slot)
		} else {
			avail.Free = append(avail.Free, slot)
		}
	}
	return avail, nil
}

// ListForPatient returns a patient's own appointments. Admins may list any
// patient's appointments.
func (s *Service) ListForPatient(ctx context.Context, actor *accounts.User, patientID uuid.UUID, status *Status) ([]Appointment, error) {
	if actor == nil {
		return nil, authorizationError("authentication required")
	}
	if actor.Role != accounts.RoleAdmin && actor.ID != patientID {
		return nil, authorizationError("cannot list another patient's appointments")
	}
	return s.store.ListForPatient(ctx, patientID, status)
}

func authorizeView(actor *accounts.User, appt *Appointment) error {
	if actor == nil {
		return authorizationError("authentication required")
	}
	switch actor.Role {
	case accounts.RoleAdmin:
		return nil
	case accounts.RoleDoctor:
		if actor.ID == appt.DoctorID {
			return nil
		}
	case accounts.RolePatient:
		if actor.ID == appt.PatientID {
			return nil
		}
	}
	return authorizationError("appointment belongs to another user")
}
