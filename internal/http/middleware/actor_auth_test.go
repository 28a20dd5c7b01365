package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/healthdesk/healthdesk-platform/internal/accounts"
)

type stubDirectory struct {
	users map[uuid.UUID]*accounts.User
}

func (d *stubDirectory) ResolveUser(_ context.Context, id uuid.UUID) (*accounts.User, error) {
	if u, ok := d.users[id]; ok {
		return u, nil
	}
	return nil, accounts.ErrNotFound
}

func (d *stubDirectory) ResolveDoctor(_ context.Context, _ uuid.UUID) (*accounts.Doctor, error) {
	return nil, accounts.ErrNotFound
}

func signedToken(t *testing.T, secret string, userID uuid.UUID, role string) string {
	t.Helper()
	claims := ActorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestActorAuthMissingHeader(t *testing.T) {
	mw := ActorAuth("secret", &stubDirectory{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
	rec := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestActorAuthWrongSecret(t *testing.T) {
	userID := uuid.New()
	dir := &stubDirectory{users: map[uuid.UUID]*accounts.User{
		userID: {ID: userID, Role: accounts.RolePatient, IsActive: true},
	}}
	mw := ActorAuth("secret", dir)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "wrong", userID, "patient"))
	rec := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestActorAuthResolvesUser(t *testing.T) {
	userID := uuid.New()
	dir := &stubDirectory{users: map[uuid.UUID]*accounts.User{
		userID: {ID: userID, FullName: "Nusrat Jahan", Role: accounts.RolePatient, IsActive: true},
	}}
	mw := ActorAuth("secret", dir)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "secret", userID, "patient"))
	rec := httptest.NewRecorder()

	called := false
	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			t.Fatal("expected actor in context")
		}
		if actor.ID != userID {
			t.Fatalf("wrong actor: %s", actor.ID)
		}
	})).ServeHTTP(rec, req)

	if !called {
		t.Fatal("handler not invoked")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestActorAuthRejectsInactiveUser(t *testing.T) {
	userID := uuid.New()
	dir := &stubDirectory{users: map[uuid.UUID]*accounts.User{
		userID: {ID: userID, Role: accounts.RolePatient, IsActive: false},
	}}
	mw := ActorAuth("secret", dir)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "secret", userID, "patient"))
	rec := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d", http.StatusForbidden, rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	adminID := uuid.New()
	dir := &stubDirectory{users: map[uuid.UUID]*accounts.User{
		adminID: {ID: adminID, Role: accounts.RoleAdmin, IsActive: true},
	}}
	chain := ActorAuth("secret", dir)(RequireRole(accounts.RoleAdmin)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "secret", adminID, "admin"))
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("admin should pass, got %d", rec.Code)
	}

	// Patient hitting an admin-only route.
	patientID := uuid.New()
	dir.users[patientID] = &accounts.User{ID: patientID, Role: accounts.RolePatient, IsActive: true}
	req = httptest.NewRequest(http.MethodPost, "/api/v1/reports", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "secret", patientID, "patient"))
	rec = httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("patient should be rejected, got %d", rec.Code)
	}
}
