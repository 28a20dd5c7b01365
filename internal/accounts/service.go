package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/healthdesk/healthdesk-platform/internal/cache"
	"github.com/healthdesk/healthdesk-platform/pkg/logging"
)

// ErrForbidden is returned when an actor may not perform a profile mutation.
var ErrForbidden = errors.New("accounts: forbidden")

// Directory is the account-lookup surface consumed by the scheduling engine.
type Directory interface {
	ResolveUser(ctx context.Context, id uuid.UUID) (*User, error)
	ResolveDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error)
}

// LocationValidator checks that a division/district/thana chain is consistent.
// Satisfied by the locations service.
type LocationValidator interface {
	ValidateHierarchy(ctx context.Context, divisionID, districtID, thanaID *int64) error
}

// Service implements Directory and the profile mutation operations.
type Service struct {
	store     *Store
	cache     cache.Cache
	cacheTTL  time.Duration
	locations LocationValidator
	logger    *logging.Logger
}

// NewService constructs an accounts service. The cache may be nil, in which
// case every lookup hits the store.
func NewService(store *Store, c cache.Cache, cacheTTL time.Duration, logger *logging.Logger) *Service {
	if store == nil {
		panic("accounts: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	return &Service{store: store, cache: c, cacheTTL: cacheTTL, logger: logger}
}

// WithLocations enables address validation during registration. Without it
// location ids are stored as given.
func (s *Service) WithLocations(v LocationValidator) *Service {
	s.locations = v
	return s
}

func doctorCacheKey(id uuid.UUID) string {
	return "doctor:" + id.String()
}

// ResolveUser fetches an account by id.
func (s *Service) ResolveUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.store.GetUser(ctx, id)
}

// ResolveDoctor fetches a doctor with profile and schedule, via the cache when
// one is configured. Cache errors degrade to a store read.
func (s *Service) ResolveDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	key := doctorCacheKey(id)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var d Doctor
			if err := json.Unmarshal(data, &d); err == nil {
				return &d, nil
			}
		} else if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("accounts: doctor cache read failed", "error", err, "doctor_id", id)
		}
	}

	d, err := s.store.GetDoctor(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(d); err == nil {
			if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
				s.logger.Warn("accounts: doctor cache write failed", "error", err, "doctor_id", id)
			}
		}
	}
	return d, nil
}

// Register creates a user and, depending on role, its profile row. All
// validation runs up front; the user and profile rows are written atomically so
// a rejected registration leaves nothing behind.
func (s *Service) Register(ctx context.Context, u *User, doctor *DoctorProfile, patient *PatientProfile) (*User, error) {
	if _, err := ParseRole(string(u.Role)); err != nil {
		return nil, err
	}
	if u.FullName == "" || u.Email == "" {
		return nil, fmt.Errorf("accounts: full name and email are required")
	}
	switch u.Role {
	case RoleDoctor:
		if doctor == nil {
			return nil, fmt.Errorf("accounts: doctor profile required for doctor accounts")
		}
		patient = nil
	case RolePatient:
		if patient == nil {
			patient = &PatientProfile{}
		}
		doctor = nil
	case RoleAdmin:
		doctor, patient = nil, nil
	}
	if s.locations != nil {
		if err := s.locations.ValidateHierarchy(ctx, u.DivisionID, u.DistrictID, u.ThanaID); err != nil {
			return nil, err
		}
	}

	if err := s.store.CreateAccount(ctx, u, doctor, patient); err != nil {
		return nil, err
	}

	s.logger.Info("account registered", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// UpdateDoctorProfile replaces a doctor's profile columns and invalidates the
// cached doctor aggregate so the next booking sees the new fee.
func (s *Service) UpdateDoctorProfile(ctx context.Context, actor *User, p *DoctorProfile) error {
	if err := s.authorizeDoctorMutation(actor, p.UserID); err != nil {
		return err
	}
	if p.ConsultationFeeCents < 0 {
		return fmt.Errorf("accounts: consultation fee must not be negative")
	}
	if err := s.store.UpsertDoctorProfile(ctx, p); err != nil {
		return err
	}
	s.invalidateDoctor(ctx, p.UserID)
	s.logger.Info("doctor profile updated", "doctor_id", p.UserID, "fee_cents", p.ConsultationFeeCents)
	return nil
}

// ReplaceDoctorSchedule swaps the weekly availability template.
func (s *Service) ReplaceDoctorSchedule(ctx context.Context, actor *User, doctorID uuid.UUID, intervals []ScheduleInterval) error {
	if err := s.authorizeDoctorMutation(actor, doctorID); err != nil {
		return err
	}
	for _, si := range intervals {
		if si.DayOfWeek < 0 || si.DayOfWeek > 6 {
			return fmt.Errorf("accounts: day_of_week %d out of range", si.DayOfWeek)
		}
		start, err := time.Parse("15:04", si.Start)
		if err != nil {
			return fmt.Errorf("accounts: invalid start time %q", si.Start)
		}
		end, err := time.Parse("15:04", si.End)
		if err != nil {
			return fmt.Errorf("accounts: invalid end time %q", si.End)
		}
		if !start.Before(end) {
			return fmt.Errorf("accounts: interval %s-%s is empty", si.Start, si.End)
		}
	}
	if err := s.store.ReplaceSchedule(ctx, doctorID, intervals); err != nil {
		return err
	}
	s.invalidateDoctor(ctx, doctorID)
	s.logger.Info("doctor schedule replaced", "doctor_id", doctorID, "intervals", len(intervals))
	return nil
}

// ListDoctors returns the active doctor directory.
func (s *Service) ListDoctors(ctx context.Context) ([]Doctor, error) {
	return s.store.ListDoctors(ctx)
}

func (s *Service) authorizeDoctorMutation(actor *User, doctorID uuid.UUID) error {
	if actor == nil {
		return fmt.Errorf("actor required: %w", ErrForbidden)
	}
	switch actor.Role {
	case RoleAdmin:
		return nil
	case RoleDoctor:
		if actor.ID == doctorID {
			return nil
		}
		return fmt.Errorf("doctors may only modify their own profile: %w", ErrForbidden)
	case RolePatient:
		return fmt.Errorf("patients may not modify doctor profiles: %w", ErrForbidden)
	default:
		return fmt.Errorf("unknown role %q: %w", actor.Role, ErrForbidden)
	}
}

func (s *Service) invalidateDoctor(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, doctorCacheKey(id)); err != nil {
		s.logger.Warn("accounts: doctor cache invalidation failed", "error", err, "doctor_id", id)
	}
}
