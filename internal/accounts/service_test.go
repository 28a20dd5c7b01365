package accounts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"

	"github.com/healthdesk/healthdesk-platform/internal/cache"
	"github.com/healthdesk/healthdesk-platform/pkg/logging"
)

func newMockService(t *testing.T) (pgxmock.PgxPoolIface, *Service) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc := NewService(NewStore(mock), cache.NewRedisCache(client, "accounts"), time.Hour, logging.Default())
	return mock, svc
}

func userRows(u *User) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "full_name", "email", "mobile_number", "role",
		"division_id", "district_id", "thana_id", "is_active", "created_at", "updated_at",
	}).AddRow(u.ID, u.FullName, u.Email, u.MobileNumber, string(u.Role),
		u.DivisionID, u.DistrictID, u.ThanaID, true, time.Now(), time.Now())
}

func TestResolveDoctorCachesAggregate(t *testing.T) {
	mock, svc := newMockService(t)
	doctorID := uuid.New()

	u := &User{ID: doctorID, FullName: "Dr. Rahman", Email: "rahman@example.com", MobileNumber: "+8801711111111", Role: RoleDoctor}
	mock.ExpectQuery("SELECT id, full_name").WithArgs(doctorID).WillReturnRows(userRows(u))
	mock.ExpectQuery("FROM doctor_profiles").WithArgs(doctorID).WillReturnRows(
		pgxmock.NewRows([]string{"user_id", "license_number", "specialization", "experience_years", "consultation_fee_cents", "is_available", "created_at"}).
			AddRow(doctorID, "LIC-1", "cardiology", 10, int64(100000), true, time.Now()))
	mock.ExpectQuery("FROM doctor_schedules").WithArgs(doctorID).WillReturnRows(
		pgxmock.NewRows([]string{"id", "doctor_id", "day_of_week", "start", "end", "is_active"}).
			AddRow(uuid.New(), doctorID, 0, "09:00", "17:00", true))

	ctx := context.Background()
	d, err := svc.ResolveDoctor(ctx, doctorID)
	if err != nil {
		t.Fatalf("ResolveDoctor returned error: %v", err)
	}
	if d.Profile.ConsultationFeeCents != 100000 {
		t.Fatalf("unexpected fee: %d", d.Profile.ConsultationFeeCents)
	}

	// Second resolve must be served from cache: no further query expectations.
	d2, err := svc.ResolveDoctor(ctx, doctorID)
	if err != nil {
		t.Fatalf("cached ResolveDoctor returned error: %v", err)
	}
	if len(d2.Schedule) != 1 || d2.Schedule[0].Start != "09:00" {
		t.Fatalf("cached doctor lost schedule: %+v", d2.Schedule)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReplaceDoctorScheduleValidatesIntervals(t *testing.T) {
	_, svc := newMockService(t)
	admin := &User{ID: uuid.New(), Role: RoleAdmin}
	doctorID := uuid.New()

	cases := []struct {
		name     string
		interval ScheduleInterval
	}{
		{"bad day", ScheduleInterval{DayOfWeek: 7, Start: "09:00", End: "17:00"}},
		{"bad start", ScheduleInterval{DayOfWeek: 1, Start: "9am", End: "17:00"}},
		{"empty interval", ScheduleInterval{DayOfWeek: 1, Start: "17:00", End: "09:00"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.ReplaceDoctorSchedule(context.Background(), admin, doctorID, []ScheduleInterval{tc.interval})
			if err == nil {
				t.Fatalf("expected validation error for %+v", tc.interval)
			}
		})
	}
}

func TestReplaceDoctorScheduleInvalidatesCache(t *testing.T) {
	mock, svc := newMockService(t)
	doctorID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM doctor_schedules").WithArgs(doctorID).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("INSERT INTO doctor_schedules").WithArgs(anyArgs(6)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	doctor := &User{ID: doctorID, Role: RoleDoctor}
	err := svc.ReplaceDoctorSchedule(context.Background(), doctor, doctorID, []ScheduleInterval{
		{DayOfWeek: 0, Start: "09:00", End: "17:00"},
	})
	if err != nil {
		t.Fatalf("ReplaceDoctorSchedule returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReplaceDoctorScheduleRollsBackOnFailedInsert(t *testing.T) {
	mock, svc := newMockService(t)
	doctorID := uuid.New()

	// A failure partway through the insert loop must not leave the doctor
	// with a wiped schedule.
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM doctor_schedules").WithArgs(doctorID).WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec("INSERT INTO doctor_schedules").WithArgs(anyArgs(6)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO doctor_schedules").WithArgs(anyArgs(6)...).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	doctor := &User{ID: doctorID, Role: RoleDoctor}
	err := svc.ReplaceDoctorSchedule(context.Background(), doctor, doctorID, []ScheduleInterval{
		{DayOfWeek: 0, Start: "09:00", End: "12:00"},
		{DayOfWeek: 1, Start: "09:00", End: "17:00"},
	})
	if err == nil {
		t.Fatal("expected error from failed schedule insert")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDoctorMutationAuthorization(t *testing.T) {
	_, svc := newMockService(t)
	doctorID := uuid.New()

	otherDoctor := &User{ID: uuid.New(), Role: RoleDoctor}
	if err := svc.authorizeDoctorMutation(otherDoctor, doctorID); err == nil {
		t.Fatal("expected error for doctor mutating another doctor's profile")
	}

	patient := &User{ID: doctorID, Role: RolePatient}
	if err := svc.authorizeDoctorMutation(patient, doctorID); err == nil {
		t.Fatal("expected error for patient mutating doctor profile")
	}

	admin := &User{ID: uuid.New(), Role: RoleAdmin}
	if err := svc.authorizeDoctorMutation(admin, doctorID); err != nil {
		t.Fatalf("admin should be allowed: %v", err)
	}
}

type strictLocations struct {
	err error
}

func (v strictLocations) ValidateHierarchy(_ context.Context, _, _, _ *int64) error {
	return v.err
}

func TestRegisterValidatesLocationHierarchy(t *testing.T) {
	mock, svc := newMockService(t)
	svc = svc.WithLocations(strictLocations{err: errors.New("locations: thana does not belong to the specified district")})

	district := int64(5)
	thana := int64(99)
	u := &User{
		FullName:     "Nusrat Jahan",
		Email:        "nusrat@example.com",
		MobileNumber: "01711111111",
		Role:         RolePatient,
		DistrictID:   &district,
		ThanaID:      &thana,
	}
	_, err := svc.Register(context.Background(), u, nil, nil)
	if err == nil {
		t.Fatal("expected error for inconsistent location chain")
	}

	// Nothing may be written when the address is rejected.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRegisterAcceptsValidatedLocation(t *testing.T) {
	mock, svc := newMockService(t)
	svc = svc.WithLocations(strictLocations{})

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WithArgs(anyArgs(11)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO patient_profiles").WithArgs(anyArgs(6)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	division := int64(1)
	district := int64(5)
	u := &User{
		FullName:     "Nusrat Jahan",
		Email:        "nusrat@example.com",
		MobileNumber: "01711111111",
		Role:         RolePatient,
		DivisionID:   &division,
		DistrictID:   &district,
	}
	if _, err := svc.Register(context.Background(), u, nil, nil); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestParseRole(t *testing.T) {
	for _, good := range []string{"patient", "doctor", "admin"} {
		if _, err := ParseRole(good); err != nil {
			t.Fatalf("ParseRole(%q) returned error: %v", good, err)
		}
	}
	if _, err := ParseRole("superuser"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}
