package locations

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a referenced location does not exist.
var ErrNotFound = errors.New("locations: not found")

// DB abstracts the pgx pool surface used by the store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides read access to the location directory.
type Store struct {
	db DB
}

// NewStore creates a location store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// ListDivisions returns all divisions ordered by name.
func (s *Store) ListDivisions(ctx context.Context) ([]Division, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, code FROM divisions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("locations: list divisions: %w", err)
	}
	defer rows.Close()

	var out []Division
	for rows.Next() {
		var d Division
		if err := rows.Scan(&d.ID, &d.Name, &d.Code); err != nil {
			return nil, fmt.Errorf("locations: scan division: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetDivision fetches one division.
func (s *Store) GetDivision(ctx context.Context, id int64) (*Division, error) {
	var d Division
	err := s.db.QueryRow(ctx, `SELECT id, name, code FROM divisions WHERE id = $1`, id).
		Scan(&d.ID, &d.Name, &d.Code)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("locations: get division: %w", err)
	}
	return &d, nil
}

// DistrictsByDivision returns a division's districts ordered by name.
func (s *Store) DistrictsByDivision(ctx context.Context, divisionID int64) ([]District, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, code, division_id FROM districts
		WHERE division_id = $1 ORDER BY name`, divisionID)
	if err != nil {
		return nil, fmt.Errorf("locations: list districts: %w", err)
	}
	defer rows.Close()
	return collectDistricts(rows)
}

// GetDistrict fetches one district.
func (s *Store) GetDistrict(ctx context.Context, id int64) (*District, error) {
	var d District
	err := s.db.QueryRow(ctx, `SELECT id, name, code, division_id FROM districts WHERE id = $1`, id).
		Scan(&d.ID, &d.Name, &d.Code, &d.DivisionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("locations: get district: %w", err)
	}
	return &d, nil
}

// ThanasByDistrict returns a district's thanas ordered by name.
func (s *Store) ThanasByDistrict(ctx context.Context, districtID int64) ([]Thana, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, code, district_id FROM thanas
		WHERE district_id = $1 ORDER BY name`, districtID)
	if err != nil {
		return nil, fmt.Errorf("locations: list thanas: %w", err)
	}
	defer rows.Close()
	return collectThanas(rows)
}

// GetThana fetches one thana.
func (s *Store) GetThana(ctx context.Context, id int64) (*Thana, error) {
	var t Thana
	err := s.db.QueryRow(ctx, `SELECT id, name, code, district_id FROM thanas WHERE id = $1`, id).
		Scan(&t.ID, &t.Name, &t.Code, &t.DistrictID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("locations: get thana: %w", err)
	}
	return &t, nil
}

// Search matches names case-insensitively across all three levels.
func (s *Store) Search(ctx context.Context, query string) (*SearchResults, error) {
	pattern := "%" + query + "%"
	res := &SearchResults{Query: query, Divisions: []Division{}, Districts: []District{}, Thanas: []Thana{}}

	rows, err := s.db.Query(ctx, `SELECT id, name, code FROM divisions WHERE name ILIKE $1 ORDER BY name`, pattern)
	if err != nil {
		return nil, fmt.Errorf("locations: search divisions: %w", err)
	}
	for rows.Next() {
		var d Division
		if err := rows.Scan(&d.ID, &d.Name, &d.Code); err != nil {
			rows.Close()
			return nil, fmt.Errorf("locations: scan division: %w", err)
		}
		res.Divisions = append(res.Divisions, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.Query(ctx, `SELECT id, name, code, division_id FROM districts WHERE name ILIKE $1 ORDER BY name`, pattern)
	if err != nil {
		return nil, fmt.Errorf("locations: search districts: %w", err)
	}
	districts, err := collectDistricts(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	res.Districts = append(res.Districts, districts...)

	rows, err = s.db.Query(ctx, `SELECT id, name, code, district_id FROM thanas WHERE name ILIKE $1 ORDER BY name`, pattern)
	if err != nil {
		return nil, fmt.Errorf("locations: search thanas: %w", err)
	}
	thanas, err := collectThanas(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	res.Thanas = append(res.Thanas, thanas...)

	return res, nil
}

// Counts returns directory totals.
func (s *Store) Counts(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM divisions),
			(SELECT COUNT(*) FROM districts),
			(SELECT COUNT(*) FROM thanas)`).
		Scan(&st.Divisions, &st.Districts, &st.Thanas)
	if err != nil {
		return nil, fmt.Errorf("locations: counts: %w", err)
	}
	return &st, nil
}

func collectDistricts(rows pgx.Rows) ([]District, error) {
	var out []District
	for rows.Next() {
		var d District
		if err := rows.Scan(&d.ID, &d.Name, &d.Code, &d.DivisionID); err != nil {
			return nil, fmt.Errorf("locations: scan district: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func collectThanas(rows pgx.Rows) ([]Thana, error) {
	var out []Thana
	for rows.Next() {
		var t Thana
		if err := rows.Scan(&t.ID, &t.Name, &t.Code, &t.DistrictID); err != nil {
			return nil, fmt.Errorf("locations: scan thana: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
