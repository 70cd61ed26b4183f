package repository

import (
	"context"
	"strconv"

	"github.com/alexivanou/georef/internal/geo"
	"github.com/alexivanou/georef/internal/model"
)

const matchColumns = "geonameid, name, long_name, country_code, feature_code, population, latitude, longitude"

// LocalitiesInBox returns the localities inside box, the rough phase of a
// proximity search. Distances are left at zero.
func (s *Store) LocalitiesInBox(ctx context.Context, box geo.BoundingBox, q model.ProximityQuery) ([]model.ProximityMatch, error) {
	query := "SELECT " + matchColumns + " FROM localities WHERE latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?"
	args := boxArgs(box)
	query, args = featureFilter(query, args, q.FeatureCodes)
	query += scopeClause(q.Scope, "") + " ORDER BY geonameid"

	var matches []model.ProximityMatch
	if err := s.selectIn(ctx, &matches, query, args...); err != nil {
		return nil, err
	}
	return matches, nil
}

// LocalitiesWithinRadius runs both phases inside the database: the box
// narrows the scanned rows and the Haversine distance is computed, filtered
// and sorted by the query engine.
func (s *Store) LocalitiesWithinRadius(ctx context.Context, box geo.BoundingBox, q model.ProximityQuery) ([]model.ProximityMatch, error) {
	inner := "SELECT " + matchColumns + ", " + s.dialect.distanceExpr + ` AS distance
		FROM localities
		WHERE latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?`
	args := []interface{}{q.Latitude, q.Latitude, q.Longitude}
	args = append(args, boxArgs(box)...)
	inner, args = featureFilter(inner, args, q.FeatureCodes)
	inner += scopeClause(q.Scope, "")

	query := "SELECT " + matchColumns + ", distance FROM (" + inner + ") candidates WHERE distance <= ?"
	args = append(args, q.RadiusMiles)
	if q.SortByDistance {
		query += " ORDER BY distance, geonameid"
	} else {
		query += " ORDER BY geonameid"
	}
	if q.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(q.Limit)
	}

	var matches []model.ProximityMatch
	if err := s.selectIn(ctx, &matches, query, args...); err != nil {
		return nil, err
	}
	return matches, nil
}

// SupportsMathFunctions reports whether the engine can evaluate the
// trigonometric functions used by LocalitiesWithinRadius.
func (s *Store) SupportsMathFunctions(ctx context.Context) bool {
	var v float64
	return s.db.QueryRowxContext(ctx, s.dialect.mathProbe).Scan(&v) == nil
}

func featureFilter(query string, args []interface{}, codes []string) (string, []interface{}) {
	if len(codes) == 0 {
		return query, args
	}
	return query + " AND feature_code IN (?)", append(args, codes)
}
