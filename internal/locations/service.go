package locations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/healthdesk/healthdesk-platform/internal/cache"
	"github.com/healthdesk/healthdesk-platform/pkg/logging"
)

// Service serves the location directory with read-through caching. Location
// data changes rarely, so lists and the full tree are cached aggressively and
// flushed explicitly after seeding.
type Service struct {
	store    *Store
	cache    cache.Cache
	cacheTTL time.Duration
	logger   *logging.Logger
}

// NewService constructs a location service.
func NewService(store *Store, c cache.Cache, cacheTTL time.Duration, logger *logging.Logger) *Service {
	if store == nil {
		panic("locations: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, cache: c, cacheTTL: cacheTTL, logger: logger}
}

// cachedList loads key from cache, falling back to load and repopulating.
// Cache failures degrade to direct reads.
func cachedList[T any](ctx context.Context, s *Service, key string, load func(context.Context) (T, error)) (T, error) {
	var zero T
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var v T
			if jerr := json.Unmarshal(data, &v); jerr == nil {
				return v, nil
			}
		} else if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("location cache read failed", "key", key, "error", err)
		}
	}

	v, err := load(ctx)
	if err != nil {
		return zero, err
	}
	if s.cache != nil {
		if data, jerr := json.Marshal(v); jerr == nil {
			if cerr := s.cache.Set(ctx, key, data, s.cacheTTL); cerr != nil {
				s.logger.Warn("location cache write failed", "key", key, "error", cerr)
			}
		}
	}
	return v, nil
}

// Divisions returns all divisions.
func (s *Service) Divisions(ctx context.Context) ([]Division, error) {
	return cachedList(ctx, s, "divisions", s.store.ListDivisions)
}

// DistrictsByDivision returns the districts of one division. The division must
// exist.
func (s *Service) DistrictsByDivision(ctx context.Context, divisionID int64) ([]District, error) {
	if _, err := s.store.GetDivision(ctx, divisionID); err != nil {
		return nil, err
	}
	key := fmt.Sprintf("districts:%d", divisionID)
	return cachedList(ctx, s, key, func(ctx context.Context) ([]District, error) {
		return s.store.DistrictsByDivision(ctx, divisionID)
	})
}

// ThanasByDistrict returns the thanas of one district. The district must
// exist.
func (s *Service) ThanasByDistrict(ctx context.Context, districtID int64) ([]Thana, error) {
	if _, err := s.store.GetDistrict(ctx, districtID); err != nil {
		return nil, err
	}
	key := fmt.Sprintf("thanas:%d", districtID)
	return cachedList(ctx, s, key, func(ctx context.Context) ([]Thana, error) {
		return s.store.ThanasByDistrict(ctx, districtID)
	})
}

// Hierarchy resolves the full chain from the most specific id provided.
func (s *Service) Hierarchy(ctx context.Context, divisionID, districtID, thanaID *int64) (*Hierarchy, error) {
	switch {
	case thanaID != nil:
		thana, err := s.store.GetThana(ctx, *thanaID)
		if err != nil {
			return nil, err
		}
		district, err := s.store.GetDistrict(ctx, thana.DistrictID)
		if err != nil {
			return nil, err
		}
		division, err := s.store.GetDivision(ctx, district.DivisionID)
		if err != nil {
			return nil, err
		}
		return &Hierarchy{Division: division, District: district, Thana: thana}, nil
	case districtID != nil:
		district, err := s.store.GetDistrict(ctx, *districtID)
		if err != nil {
			return nil, err
		}
		division, err := s.store.GetDivision(ctx, district.DivisionID)
		if err != nil {
			return nil, err
		}
		return &Hierarchy{Division: division, District: district}, nil
	case divisionID != nil:
		division, err := s.store.GetDivision(ctx, *divisionID)
		if err != nil {
			return nil, err
		}
		return &Hierarchy{Division: division}, nil
	default:
		return nil, errors.New("locations: no location id provided")
	}
}

// ValidateHierarchy checks that the provided ids form a consistent chain, e.g.
// that the thana actually belongs to the claimed district and division. Used
// when registering users with address fields.
func (s *Service) ValidateHierarchy(ctx context.Context, divisionID, districtID, thanaID *int64) error {
	if divisionID == nil && districtID == nil && thanaID == nil {
		return nil
	}

	if thanaID != nil {
		thana, err := s.store.GetThana(ctx, *thanaID)
		if err != nil {
			return fmt.Errorf("locations: thana %d: %w", *thanaID, err)
		}
		if districtID == nil {
			return errors.New("locations: thana requires a district")
		}
		if thana.DistrictID != *districtID {
			return errors.New("locations: thana does not belong to the specified district")
		}
	}
	if districtID != nil {
		district, err := s.store.GetDistrict(ctx, *districtID)
		if err != nil {
			return fmt.Errorf("locations: district %d: %w", *districtID, err)
		}
		if divisionID == nil {
			return errors.New("locations: district requires a division")
		}
		if district.DivisionID != *divisionID {
			return errors.New("locations: district does not belong to the specified division")
		}
	}
	if divisionID != nil {
		if _, err := s.store.GetDivision(ctx, *divisionID); err != nil {
			return fmt.Errorf("locations: division %d: %w", *divisionID, err)
		}
	}
	return nil
}

// Search matches location names across all levels. Queries shorter than two
// characters are rejected to keep scans bounded.
func (s *Service) Search(ctx context.Context, query string) (*SearchResults, error) {
	if len(query) < 2 {
		return nil, errors.New("locations: search query must be at least 2 characters")
	}
	return s.store.Search(ctx, query)
}

// Tree returns the full division > district > thana hierarchy, cached as one
// document for dropdown rendering.
func (s *Service) Tree(ctx context.Context) ([]DivisionNode, error) {
	return cachedList(ctx, s, "tree", s.buildTree)
}

func (s *Service) buildTree(ctx context.Context) ([]DivisionNode, error) {
	divisions, err := s.store.ListDivisions(ctx)
	if err != nil {
		return nil, err
	}
	tree := make([]DivisionNode, 0, len(divisions))
	for _, div := range divisions {
		node := DivisionNode{Division: div, Districts: []DistrictNode{}}
		districts, err := s.store.DistrictsByDivision(ctx, div.ID)
		if err != nil {
			return nil, err
		}
		for _, dist := range districts {
			thanas, err := s.store.ThanasByDistrict(ctx, dist.ID)
			if err != nil {
				return nil, err
			}
			if thanas == nil {
				thanas = []Thana{}
			}
			node.Districts = append(node.Districts, DistrictNode{District: dist, Thanas: thanas})
		}
		tree = append(tree, node)
	}
	return tree, nil
}

// Statistics returns directory totals for the admin dashboard.
func (s *Service) Statistics(ctx context.Context) (*Stats, error) {
	return s.store.Counts(ctx)
}

// ClearCache flushes every cached location document. Called after reseeding
// the directory.
func (s *Service) ClearCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.InvalidatePrefix(ctx, ""); err != nil {
		return fmt.Errorf("locations: clear cache: %w", err)
	}
	s.logger.Info("location cache cleared")
	return nil
}
