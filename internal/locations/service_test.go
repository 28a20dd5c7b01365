package locations

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"

	"github.com/healthdesk/healthdesk-platform/internal/cache"
	"github.com/healthdesk/healthdesk-platform/pkg/logging"
)

func newTestService(t *testing.T) (pgxmock.PgxPoolIface, *Service) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc := NewService(NewStore(mock), cache.NewRedisCache(client, "locations"), time.Hour, logging.Default())
	return mock, svc
}

func divisionRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "name", "code"}).
		AddRow(int64(1), "Dhaka", "10").
		AddRow(int64(2), "Chattogram", "20")
}

func TestDivisionsCached(t *testing.T) {
	mock, svc := newTestService(t)
	ctx := context.Background()

	mock.ExpectQuery("FROM divisions ORDER BY name").WillReturnRows(divisionRows())

	divisions, err := svc.Divisions(ctx)
	if err != nil {
		t.Fatalf("Divisions returned error: %v", err)
	}
	if len(divisions) != 2 || divisions[0].Name != "Dhaka" {
		t.Fatalf("unexpected divisions: %+v", divisions)
	}

	// Second call must come from cache: no further query expectations.
	again, err := svc.Divisions(ctx)
	if err != nil {
		t.Fatalf("cached Divisions returned error: %v", err)
	}
	if len(again) != 2 {
		t.Fatalf("cached divisions lost entries: %+v", again)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDistrictsByDivisionChecksExistence(t *testing.T) {
	mock, svc := newTestService(t)

	mock.ExpectQuery("FROM divisions WHERE id").WithArgs(int64(99)).WillReturnError(pgx.ErrNoRows)

	_, err := svc.DistrictsByDivision(context.Background(), 99)
	if err == nil {
		t.Fatal("expected error for unknown division")
	}
}

func TestHierarchyFromThana(t *testing.T) {
	mock, svc := newTestService(t)

	mock.ExpectQuery("FROM thanas WHERE id").WithArgs(int64(7)).WillReturnRows(
		pgxmock.NewRows([]string{"id", "name", "code", "district_id"}).AddRow(int64(7), "Dhanmondi", "103", int64(3)))
	mock.ExpectQuery("FROM districts WHERE id").WithArgs(int64(3)).WillReturnRows(
		pgxmock.NewRows([]string{"id", "name", "code", "division_id"}).AddRow(int64(3), "Dhaka", "101", int64(1)))
	mock.ExpectQuery("FROM divisions WHERE id").WithArgs(int64(1)).WillReturnRows(
		pgxmock.NewRows([]string{"id", "name", "code"}).AddRow(int64(1), "Dhaka", "10"))

	thanaID := int64(7)
	h, err := svc.Hierarchy(context.Background(), nil, nil, &thanaID)
	if err != nil {
		t.Fatalf("Hierarchy returned error: %v", err)
	}
	if h.Division == nil || h.District == nil || h.Thana == nil {
		t.Fatalf("incomplete hierarchy: %+v", h)
	}
	if h.Thana.Name != "Dhanmondi" || h.Division.ID != 1 {
		t.Fatalf("wrong chain: %+v", h)
	}
}

func TestValidateHierarchyMismatch(t *testing.T) {
	mock, svc := newTestService(t)

	// Thana 7 belongs to district 3, not the claimed district 4.
	mock.ExpectQuery("FROM thanas WHERE id").WithArgs(int64(7)).WillReturnRows(
		pgxmock.NewRows([]string{"id", "name", "code", "district_id"}).AddRow(int64(7), "Dhanmondi", "103", int64(3)))

	divisionID, districtID, thanaID := int64(1), int64(4), int64(7)
	err := svc.ValidateHierarchy(context.Background(), &divisionID, &districtID, &thanaID)
	if err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestValidateHierarchyConsistentChain(t *testing.T) {
	mock, svc := newTestService(t)

	mock.ExpectQuery("FROM thanas WHERE id").WithArgs(int64(7)).WillReturnRows(
		pgxmock.NewRows([]string{"id", "name", "code", "district_id"}).AddRow(int64(7), "Dhanmondi", "103", int64(3)))
	mock.ExpectQuery("FROM districts WHERE id").WithArgs(int64(3)).WillReturnRows(
		pgxmock.NewRows([]string{"id", "name", "code", "division_id"}).AddRow(int64(3), "Dhaka", "101", int64(1)))
	mock.ExpectQuery("FROM divisions WHERE id").WithArgs(int64(1)).WillReturnRows(
		pgxmock.NewRows([]string{"id", "name", "code"}).AddRow(int64(1), "Dhaka", "10"))

	divisionID, districtID, thanaID := int64(1), int64(3), int64(7)
	if err := svc.ValidateHierarchy(context.Background(), &divisionID, &districtID, &thanaID); err != nil {
		t.Fatalf("consistent chain rejected: %v", err)
	}
}

func TestSearchRejectsShortQuery(t *testing.T) {
	_, svc := newTestService(t)
	if _, err := svc.Search(context.Background(), "d"); err == nil {
		t.Fatal("expected error for one-character query")
	}
}

func TestClearCacheForcesReload(t *testing.T) {
	mock, svc := newTestService(t)
	ctx := context.Background()

	mock.ExpectQuery("FROM divisions ORDER BY name").WillReturnRows(divisionRows())
	if _, err := svc.Divisions(ctx); err != nil {
		t.Fatalf("Divisions returned error: %v", err)
	}

	if err := svc.ClearCache(ctx); err != nil {
		t.Fatalf("ClearCache returned error: %v", err)
	}

	mock.ExpectQuery("FROM divisions ORDER BY name").WillReturnRows(divisionRows())
	if _, err := svc.Divisions(ctx); err != nil {
		t.Fatalf("Divisions after flush returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
