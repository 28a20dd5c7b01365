package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/healthdesk/healthdesk-platform/internal/accounts"
	"github.com/healthdesk/healthdesk-platform/internal/scheduling"
	"github.com/healthdesk/healthdesk-platform/pkg/logging"
)

type stubDirectory struct{}

func (stubDirectory) ResolveUser(context.Context, uuid.UUID) (*accounts.User, error) {
	return nil, accounts.ErrNotFound
}

func (stubDirectory) ResolveDoctor(context.Context, uuid.UUID) (*accounts.Doctor, error) {
	return nil, accounts.ErrNotFound
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)

	logger := logging.Default()
	dir := stubDirectory{}
	svc := scheduling.NewService(scheduling.NewStore(mock), dir, time.UTC, nil, logger)

	return New(&Config{
		Logger:              logger,
		AppointmentsHandler: scheduling.NewHandler(svc, logger),
		JWTSecret:           "test-secret",
		Directory:           dir,
	})
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
}

func TestAppointmentsRequireAuth(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated request = %d, want 401", rec.Code)
	}
}

func TestUnknownRouteNotFound(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown route = %d, want 404", rec.Code)
	}
}
