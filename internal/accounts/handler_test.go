package accounts

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthdesk/healthdesk-platform/pkg/logging"
)

func newTestHandler(t *testing.T) (pgxmock.PgxPoolIface, *Handler) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	svc := NewService(NewStore(mock), nil, 0, logging.Default())
	return mock, NewHandler(svc, logging.Default())
}

var errDBDown = errors.New("connection reset")

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestRegisterPatient(t *testing.T) {
	mock, h := newTestHandler(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WithArgs(anyArgs(11)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO patient_profiles").WithArgs(anyArgs(6)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	body := `{"full_name":"Nusrat Jahan","email":"nusrat@example.com","mobile_number":"01711111111","role":"patient"}`
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"role":"patient"`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	_, h := newTestHandler(t)

	body := `{"full_name":"X","email":"x@example.com","role":"superuser"}`
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterDoctorRequiresProfile(t *testing.T) {
	mock, h := newTestHandler(t)

	// The missing profile is rejected up front; no row ever reaches the
	// database.
	body := `{"full_name":"Dr. Karim","email":"karim@example.com","mobile_number":"01722222222","role":"doctor"}`
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "doctor profile required")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterRollsBackOnProfileFailure(t *testing.T) {
	mock, h := newTestHandler(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WithArgs(anyArgs(11)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO patient_profiles").WithArgs(anyArgs(6)...).WillReturnError(errDBDown)
	mock.ExpectRollback()

	body := `{"full_name":"Nusrat Jahan","email":"nusrat@example.com","role":"patient"}`
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateDoctorProfileForbiddenForPatients(t *testing.T) {
	_, h := newTestHandler(t)

	patient := &User{ID: uuid.New(), Role: RolePatient, IsActive: true}
	doctorID := uuid.New()

	req := httptest.NewRequest(http.MethodPut, "/doctors/"+doctorID.String()+"/profile",
		strings.NewReader(`{"license_number":"L-1","consultation_fee_cents":100000}`))
	req = req.WithContext(WithActor(req.Context(), patient))
	req = withURLParam(req, "doctorID", doctorID.String())

	rec := httptest.NewRecorder()
	h.UpdateDoctorProfile(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReplaceScheduleValidatesIntervals(t *testing.T) {
	_, h := newTestHandler(t)

	doctorID := uuid.New()
	doctor := &User{ID: doctorID, Role: RoleDoctor, IsActive: true}

	req := httptest.NewRequest(http.MethodPut, "/doctors/"+doctorID.String()+"/schedule",
		strings.NewReader(`{"intervals":[{"day_of_week":9,"start_time":"09:00","end_time":"17:00"}]}`))
	req = req.WithContext(WithActor(req.Context(), doctor))
	req = withURLParam(req, "doctorID", doctorID.String())

	rec := httptest.NewRecorder()
	h.ReplaceSchedule(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "day_of_week")
}
