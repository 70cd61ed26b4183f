package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/alexivanou/georef/internal/model"
)

// ErrInvalidRequest marks requests rejected before reaching storage
var ErrInvalidRequest = errors.New("invalid request")

const maxRadiusMiles = 500

// Nearby runs a proximity search with the configured strategy. The limit
// falls back to the default when unset and is capped at the maximum.
func (s *Service) Nearby(ctx context.Context, req model.NearbyRequest) (*model.NearbyResponse, error) {
	if !finite(req.Lat, req.Lon, req.RadiusMiles) {
		return nil, fmt.Errorf("%w: coordinates and radius must be finite numbers", ErrInvalidRequest)
	}
	if req.Lat < -90 || req.Lat > 90 || req.Lon < -180 || req.Lon > 180 {
		return nil, fmt.Errorf("%w: coordinates out of range", ErrInvalidRequest)
	}
	if req.RadiusMiles <= 0 || req.RadiusMiles > maxRadiusMiles {
		return nil, fmt.Errorf("%w: radius must be in (0, %d] miles", ErrInvalidRequest, maxRadiusMiles)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = s.searchCfg.DefaultLimit
	}
	if s.searchCfg.MaxLimit > 0 && limit > s.searchCfg.MaxLimit {
		limit = s.searchCfg.MaxLimit
	}

	q := model.ProximityQuery{
		Latitude:       req.Lat,
		Longitude:      req.Lon,
		RadiusMiles:    req.RadiusMiles,
		FeatureCodes:   req.FeatureCodes,
		Limit:          limit,
		SortByDistance: req.SortByDistance,
		Scope:          model.ScopeEnabled,
	}
	matches, err := s.strategy.Nearby(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to search nearby localities: %w", err)
	}
	if matches == nil {
		matches = []model.ProximityMatch{}
	}

	return &model.NearbyResponse{
		Strategy: s.strategy.Name(),
		Request:  model.Coordinate{Lat: req.Lat, Lon: req.Lon},
		Radius:   req.RadiusMiles,
		Results:  matches,
	}, nil
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// FindLocalities looks a name up among the localities and alternate names of
// a country, ignoring case.
func (s *Service) FindLocalities(ctx context.Context, countryCode, name string) (*model.LocalitiesResponse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}

	localities, err := s.repo.FindLocalitiesByName(ctx, strings.ToUpper(countryCode), name, model.ScopeEnabled)
	if err != nil {
		return nil, fmt.Errorf("failed to find localities: %w", err)
	}
	if localities == nil {
		localities = []model.Locality{}
	}
	return &model.LocalitiesResponse{Results: localities}, nil
}

// GetLocality returns an enabled locality, or nil when there is none
func (s *Service) GetLocality(ctx context.Context, id int64) (*model.Locality, error) {
	l, err := s.repo.GetLocality(ctx, id, model.ScopeEnabled)
	if err != nil {
		return nil, fmt.Errorf("failed to get locality: %w", err)
	}
	return l, nil
}

// ListAdmin1 returns the first-level divisions of an enabled country, or nil
// when the country does not exist.
func (s *Service) ListAdmin1(ctx context.Context, countryCode string) (*model.Admin1Response, error) {
	country, err := s.repo.GetCountry(ctx, strings.ToUpper(countryCode), model.ScopeEnabled)
	if err != nil {
		return nil, fmt.Errorf("failed to get country: %w", err)
	}
	if country == nil {
		return nil, nil
	}

	codes, err := s.repo.ListAdmin1(ctx, country.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to list admin1 codes: %w", err)
	}
	if codes == nil {
		codes = []model.Admin1Code{}
	}
	return &model.Admin1Response{Country: *country, Results: codes}, nil
}

// ListAdmin2 returns the second-level divisions of an admin1, or nil when the
// admin1 does not exist.
func (s *Service) ListAdmin2(ctx context.Context, admin1ID int64) (*model.Admin2Response, error) {
	admin1, err := s.repo.GetAdmin1(ctx, admin1ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get admin1: %w", err)
	}
	if admin1 == nil {
		return nil, nil
	}

	codes, err := s.repo.ListAdmin2(ctx, admin1ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list admin2 codes: %w", err)
	}
	if codes == nil {
		codes = []model.Admin2Code{}
	}
	return &model.Admin2Response{Admin1: *admin1, Results: codes}, nil
}

// FindPostcodes looks a postal code up, ignoring case and spaces
func (s *Service) FindPostcodes(ctx context.Context, countryCode, postalCode string) (*model.PostcodesResponse, error) {
	if strings.TrimSpace(postalCode) == "" || countryCode == "" {
		return nil, fmt.Errorf("%w: country and postal code are required", ErrInvalidRequest)
	}

	postcodes, err := s.repo.FindPostcodes(ctx, strings.ToUpper(countryCode), postalCode)
	if err != nil {
		return nil, fmt.Errorf("failed to find postcodes: %w", err)
	}
	if postcodes == nil {
		postcodes = []model.Postcode{}
	}
	return &model.PostcodesResponse{Results: postcodes}, nil
}
