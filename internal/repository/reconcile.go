package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alexivanou/georef/internal/model"
	"github.com/jmoiron/sqlx"
)

// SiblingLevel selects the group of localities searched for a timezone
type SiblingLevel int

const (
	SameAdmin2 SiblingLevel = iota
	SameAdmin1
	SameCountry
)

func (l SiblingLevel) String() string {
	switch l {
	case SameAdmin2:
		return "admin2"
	case SameAdmin1:
		return "admin1"
	}
	return "country"
}

// LocalitiesWithoutTimezone returns every locality whose timezone is unset.
func (s *Store) LocalitiesWithoutTimezone(ctx context.Context) ([]model.Locality, error) {
	var localities []model.Locality
	q := "SELECT " + localityColumns + " FROM localities WHERE timezone_name IS NULL ORDER BY geonameid"
	if err := sqlx.SelectContext(ctx, s.db, &localities, q); err != nil {
		return nil, err
	}
	return localities, nil
}

// SiblingTimezone returns the timezone of the most populated locality sharing
// the given level with l, ignoring localities without a timezone. It returns
// "" when l has no such level or no sibling qualifies.
func (s *Store) SiblingTimezone(ctx context.Context, l *model.Locality, level SiblingLevel) (string, error) {
	var column string
	var key interface{}
	switch level {
	case SameAdmin2:
		if l.Admin2ID == nil {
			return "", nil
		}
		column, key = "admin2_id", *l.Admin2ID
	case SameAdmin1:
		if l.Admin1ID == nil {
			return "", nil
		}
		column, key = "admin1_id", *l.Admin1ID
	case SameCountry:
		column, key = "country_code", l.CountryCode
	default:
		return "", fmt.Errorf("unknown sibling level %d", level)
	}

	var tz string
	q := s.db.Rebind(`
		SELECT timezone_name FROM localities
		WHERE ` + column + ` = ? AND timezone_name IS NOT NULL
		ORDER BY population DESC, geonameid
		LIMIT 1`)
	if err := sqlx.GetContext(ctx, s.db, &tz, q, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return tz, nil
}

func (s *Store) SetLocalityTimezone(ctx context.Context, id int64, tz string) error {
	q := s.db.Rebind("UPDATE localities SET timezone_name = ? WHERE geonameid = ?")
	_, err := s.db.ExecContext(ctx, q, tz, id)
	return err
}

// DisableEmptyCountries flags every country without localities as disabled.
func (s *Store) DisableEmptyCountries(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE countries SET enabled = FALSE
		WHERE enabled = TRUE
		AND NOT EXISTS (SELECT 1 FROM localities l WHERE l.country_code = countries.code)`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DisableDuplicateLocalities keeps one enabled locality per (country, long
// name), the most populated with the lowest geonameid breaking ties, and
// disables the others.
func (s *Store) DisableDuplicateLocalities(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE localities SET enabled = FALSE
		WHERE geonameid IN (
			SELECT geonameid FROM (
				SELECT geonameid, ROW_NUMBER() OVER (
					PARTITION BY country_code, long_name
					ORDER BY population DESC, geonameid
				) AS position
				FROM localities
				WHERE enabled = TRUE
			) ranked
			WHERE position > 1
		)`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DuplicateLongName is a long name shared by enabled localities of one country
type DuplicateLongName struct {
	CountryCode string `db:"country_code"`
	LongName    string `db:"long_name"`
	Count       int    `db:"n"`
}

// DuplicateLongNames lists long names used more than once among the enabled
// localities of a country.
func (s *Store) DuplicateLongNames(ctx context.Context) ([]DuplicateLongName, error) {
	var dups []DuplicateLongName
	err := sqlx.SelectContext(ctx, s.db, &dups, `
		SELECT country_code, long_name, COUNT(*) AS n
		FROM localities
		WHERE enabled = TRUE
		GROUP BY country_code, long_name
		HAVING COUNT(*) > 1
		ORDER BY country_code, long_name`)
	if err != nil {
		return nil, err
	}
	return dups, nil
}

// EnabledCountriesWithoutLocalities returns the codes of enabled countries
// that own no locality.
func (s *Store) EnabledCountriesWithoutLocalities(ctx context.Context) ([]string, error) {
	var codes []string
	err := sqlx.SelectContext(ctx, s.db, &codes, `
		SELECT code FROM countries c
		WHERE c.enabled = TRUE
		AND NOT EXISTS (SELECT 1 FROM localities l WHERE l.country_code = c.code)
		ORDER BY code`)
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// CountLocalitiesWithoutTimezone counts localities whose timezone is unset.
func (s *Store) CountLocalitiesWithoutTimezone(ctx context.Context) (int64, error) {
	var n int64
	if err := sqlx.GetContext(ctx, s.db, &n, "SELECT COUNT(*) FROM localities WHERE timezone_name IS NULL"); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) InsertUpdate(ctx context.Context, u *model.GeonamesUpdate) error {
	_, err := sqlx.NamedExecContext(ctx, s.db, `
		INSERT INTO geonames_updates (id, updated_at, localities, alternate_names)
		VALUES (:id, :updated_at, :localities, :alternate_names)`, u)
	return err
}

// LatestUpdate returns the most recent load log entry, or nil.
func (s *Store) LatestUpdate(ctx context.Context) (*model.GeonamesUpdate, error) {
	var u model.GeonamesUpdate
	err := sqlx.GetContext(ctx, s.db, &u, `
		SELECT id, updated_at, localities, alternate_names
		FROM geonames_updates ORDER BY updated_at DESC LIMIT 1`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
