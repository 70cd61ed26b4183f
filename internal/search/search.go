// Package search implements the two phase proximity search over localities.
//
// The rough phase selects the localities inside the bounding box of the
// search circle. The precise phase keeps those within the radius and is
// provided by one of three strategies:
//
//   - geometry: s2 spherical geometry in process
//   - compute: the law of cosines distance in process
//   - sql: the Haversine distance evaluated by the database
//
// All strategies keep a locality when its distance is at most the radius.
package search

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/alexivanou/georef/internal/config"
	"github.com/alexivanou/georef/internal/geo"
	"github.com/alexivanou/georef/internal/model"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// Finder is the storage the strategies read from
type Finder interface {
	LocalitiesInBox(ctx context.Context, box geo.BoundingBox, q model.ProximityQuery) ([]model.ProximityMatch, error)
	LocalitiesWithinRadius(ctx context.Context, box geo.BoundingBox, q model.ProximityQuery) ([]model.ProximityMatch, error)
	SupportsMathFunctions(ctx context.Context) bool
}

// Strategy answers proximity queries
type Strategy interface {
	Name() string
	Nearby(ctx context.Context, q model.ProximityQuery) ([]model.ProximityMatch, error)
}

// New returns the strategy selected by name. Auto picks the SQL strategy when
// the database evaluates the math functions and the compute strategy
// otherwise.
func New(ctx context.Context, name config.SearchStrategy, f Finder) (Strategy, error) {
	switch name {
	case config.SearchStrategyGeometry:
		return &GeometryStrategy{finder: f}, nil
	case config.SearchStrategyCompute:
		return &ComputeStrategy{finder: f}, nil
	case config.SearchStrategySQL:
		if !f.SupportsMathFunctions(ctx) {
			return nil, fmt.Errorf("database does not support the math functions of the %s strategy", name)
		}
		return &SQLStrategy{finder: f}, nil
	case config.SearchStrategyAuto, "":
		if f.SupportsMathFunctions(ctx) {
			return &SQLStrategy{finder: f}, nil
		}
		return &ComputeStrategy{finder: f}, nil
	}
	return nil, fmt.Errorf("unknown search strategy %q", name)
}

func validate(q model.ProximityQuery) error {
	for _, v := range []float64{q.Latitude, q.Longitude, q.RadiusMiles} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("query value %v is not a finite number", v)
		}
	}
	if q.Latitude < -90 || q.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range", q.Latitude)
	}
	if q.Longitude < -180 || q.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range", q.Longitude)
	}
	if q.RadiusMiles < 0 {
		return fmt.Errorf("negative radius %v", q.RadiusMiles)
	}
	return nil
}

// GeometryStrategy filters the rough candidates with an s2 spherical cap
type GeometryStrategy struct {
	finder Finder
}

func (s *GeometryStrategy) Name() string { return string(config.SearchStrategyGeometry) }

func (s *GeometryStrategy) Nearby(ctx context.Context, q model.ProximityQuery) ([]model.ProximityMatch, error) {
	if err := validate(q); err != nil {
		return nil, err
	}
	candidates, err := s.finder.LocalitiesInBox(ctx, geo.NewBoundingBox(q.Latitude, q.Longitude, q.RadiusMiles), q)
	if err != nil {
		return nil, err
	}

	center := s2.LatLngFromDegrees(q.Latitude, q.Longitude)
	radius := s1.Angle(q.RadiusMiles / geo.EarthRadiusMiles)

	matches := candidates[:0]
	for _, c := range candidates {
		d := center.Distance(s2.LatLngFromDegrees(c.Latitude, c.Longitude))
		if d > radius {
			continue
		}
		c.DistanceMiles = d.Radians() * geo.EarthRadiusMiles
		matches = append(matches, c)
	}
	return finish(matches, q), nil
}

// ComputeStrategy filters the rough candidates with the great circle distance
type ComputeStrategy struct {
	finder Finder
}

func (s *ComputeStrategy) Name() string { return string(config.SearchStrategyCompute) }

func (s *ComputeStrategy) Nearby(ctx context.Context, q model.ProximityQuery) ([]model.ProximityMatch, error) {
	if err := validate(q); err != nil {
		return nil, err
	}
	candidates, err := s.finder.LocalitiesInBox(ctx, geo.NewBoundingBox(q.Latitude, q.Longitude, q.RadiusMiles), q)
	if err != nil {
		return nil, err
	}

	matches := candidates[:0]
	for _, c := range candidates {
		d := geo.GreatCircleDistanceMiles(q.Latitude, q.Longitude, c.Latitude, c.Longitude)
		if d > q.RadiusMiles {
			continue
		}
		c.DistanceMiles = d
		matches = append(matches, c)
	}
	return finish(matches, q), nil
}

// SQLStrategy pushes the distance computation, filter, sort and limit into
// the query
type SQLStrategy struct {
	finder Finder
}

func (s *SQLStrategy) Name() string { return string(config.SearchStrategySQL) }

func (s *SQLStrategy) Nearby(ctx context.Context, q model.ProximityQuery) ([]model.ProximityMatch, error) {
	if err := validate(q); err != nil {
		return nil, err
	}
	return s.finder.LocalitiesWithinRadius(ctx, geo.NewBoundingBox(q.Latitude, q.Longitude, q.RadiusMiles), q)
}

// finish sorts by distance when asked and applies the limit. Unsorted results
// keep the geonameid order of the rough phase.
func finish(matches []model.ProximityMatch, q model.ProximityQuery) []model.ProximityMatch {
	if q.SortByDistance {
		sort.SliceStable(matches, func(i, j int) bool {
			if matches[i].DistanceMiles != matches[j].DistanceMiles {
				return matches[i].DistanceMiles < matches[j].DistanceMiles
			}
			return matches[i].GeonameID < matches[j].GeonameID
		})
	}
	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}
	return matches
}
