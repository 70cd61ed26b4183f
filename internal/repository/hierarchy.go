package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/alexivanou/georef/internal/model"
	"github.com/alexivanou/georef/internal/slug"
	"github.com/jmoiron/sqlx"
)

const localityColumns = `geonameid, name, name_folded, long_name, slug, country_code, admin1_id, admin2_id,
	timezone_name, feature_code, population, latitude, longitude, modification_date, enabled`

func (s *Store) InsertAdmin1Codes(ctx context.Context, codes []model.Admin1Code) error {
	_, err := bulkInsert(ctx, s, `
		INSERT INTO admin1_codes (geonameid, code, name, country_code)
		VALUES (:geonameid, :code, :name, :country_code)`, 4, codes)
	return err
}

// InsertAdmin2Codes inserts the rows, ignoring duplicated geonameids.
func (s *Store) InsertAdmin2Codes(ctx context.Context, codes []model.Admin2Code) (int64, error) {
	return bulkInsert(ctx, s, `
		INSERT INTO admin2_codes (geonameid, code, name, country_code, admin1_id, slug)
		VALUES (:geonameid, :code, :name, :country_code, :admin1_id, :slug)
		ON CONFLICT DO NOTHING`, 6, codes)
}

// InsertLocalities inserts the rows. A geonameid already present is skipped
// so the first occurrence in the source wins.
func (s *Store) InsertLocalities(ctx context.Context, localities []model.Locality) (int64, error) {
	return bulkInsert(ctx, s, `
		INSERT INTO localities (`+localityColumns+`)
		VALUES (:geonameid, :name, :name_folded, :long_name, :slug, :country_code, :admin1_id, :admin2_id,
			:timezone_name, :feature_code, :population, :latitude, :longitude, :modification_date, :enabled)
		ON CONFLICT DO NOTHING`, 15, localities)
}

// InsertAlternateNames inserts the rows, ignoring conflicts on id or on (locality, name).
func (s *Store) InsertAlternateNames(ctx context.Context, names []model.AlternateName) (int64, error) {
	return bulkInsert(ctx, s, `
		INSERT INTO alternate_names (id, locality_id, name, name_folded)
		VALUES (:id, :locality_id, :name, :name_folded)
		ON CONFLICT DO NOTHING`, 4, names)
}

func (s *Store) GetAdmin1(ctx context.Context, id int64) (*model.Admin1Code, error) {
	var a model.Admin1Code
	q := s.db.Rebind("SELECT geonameid, code, name, country_code FROM admin1_codes WHERE geonameid = ?")
	if err := sqlx.GetContext(ctx, s.db, &a, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (s *Store) GetAdmin2(ctx context.Context, id int64) (*model.Admin2Code, error) {
	var a model.Admin2Code
	q := s.db.Rebind("SELECT geonameid, code, name, country_code, admin1_id, slug FROM admin2_codes WHERE geonameid = ?")
	if err := sqlx.GetContext(ctx, s.db, &a, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (s *Store) ListAdmin1(ctx context.Context, countryCode string) ([]model.Admin1Code, error) {
	var codes []model.Admin1Code
	q := s.db.Rebind("SELECT geonameid, code, name, country_code FROM admin1_codes WHERE country_code = ? ORDER BY name")
	if err := sqlx.SelectContext(ctx, s.db, &codes, q, countryCode); err != nil {
		return nil, err
	}
	return codes, nil
}

func (s *Store) ListAdmin2(ctx context.Context, admin1ID int64) ([]model.Admin2Code, error) {
	var codes []model.Admin2Code
	q := s.db.Rebind("SELECT geonameid, code, name, country_code, admin1_id, slug FROM admin2_codes WHERE admin1_id = ? ORDER BY name")
	if err := sqlx.SelectContext(ctx, s.db, &codes, q, admin1ID); err != nil {
		return nil, err
	}
	return codes, nil
}

func (s *Store) ListAllAdmin2(ctx context.Context) ([]model.Admin2Code, error) {
	var codes []model.Admin2Code
	if err := sqlx.SelectContext(ctx, s.db, &codes, "SELECT geonameid, code, name, country_code, admin1_id, slug FROM admin2_codes ORDER BY geonameid"); err != nil {
		return nil, err
	}
	return codes, nil
}

func (s *Store) UpdateAdmin1(ctx context.Context, a *model.Admin1Code) error {
	_, err := sqlx.NamedExecContext(ctx, s.db, `
		UPDATE admin1_codes SET code = :code, name = :name, country_code = :country_code
		WHERE geonameid = :geonameid`, a)
	return err
}

func (s *Store) UpdateAdmin2(ctx context.Context, a *model.Admin2Code) error {
	_, err := sqlx.NamedExecContext(ctx, s.db, `
		UPDATE admin2_codes SET code = :code, name = :name, country_code = :country_code,
			admin1_id = :admin1_id, slug = :slug
		WHERE geonameid = :geonameid`, a)
	return err
}

func (s *Store) GetLocality(ctx context.Context, id int64, scope model.Scope) (*model.Locality, error) {
	var l model.Locality
	q := s.db.Rebind("SELECT " + localityColumns + " FROM localities WHERE geonameid = ?" + scopeClause(scope, ""))
	if err := sqlx.GetContext(ctx, s.db, &l, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

// FindLocalitiesByName matches the locality name or any of its alternate
// names, case-insensitively, within one country. Most populated first.
func (s *Store) FindLocalitiesByName(ctx context.Context, countryCode, name string, scope model.Scope) ([]model.Locality, error) {
	var localities []model.Locality
	q := s.db.Rebind(`
		SELECT ` + localityColumns + `
		FROM localities l
		WHERE l.country_code = ?
		AND (
			l.name_folded = ?
			OR EXISTS (
				SELECT 1 FROM alternate_names a
				WHERE a.locality_id = l.geonameid AND a.name_folded = ?
			)
		)` + scopeClause(scope, "l.") + `
		ORDER BY l.population DESC, l.geonameid`)
	key := slug.Fold(name)
	if err := sqlx.SelectContext(ctx, s.db, &localities, q, countryCode, key, key); err != nil {
		return nil, err
	}
	return localities, nil
}

func (s *Store) LocalitiesByAdmin1(ctx context.Context, admin1ID int64) ([]model.Locality, error) {
	var localities []model.Locality
	q := s.db.Rebind("SELECT " + localityColumns + " FROM localities WHERE admin1_id = ? ORDER BY geonameid")
	if err := sqlx.SelectContext(ctx, s.db, &localities, q, admin1ID); err != nil {
		return nil, err
	}
	return localities, nil
}

func (s *Store) LocalitiesByAdmin2(ctx context.Context, admin2ID int64) ([]model.Locality, error) {
	var localities []model.Locality
	q := s.db.Rebind("SELECT " + localityColumns + " FROM localities WHERE admin2_id = ? ORDER BY geonameid")
	if err := sqlx.SelectContext(ctx, s.db, &localities, q, admin2ID); err != nil {
		return nil, err
	}
	return localities, nil
}

// LocalitiesAfter pages through every locality in geonameid order.
func (s *Store) LocalitiesAfter(ctx context.Context, afterID int64, limit int) ([]model.Locality, error) {
	var localities []model.Locality
	q := s.db.Rebind("SELECT " + localityColumns + " FROM localities WHERE geonameid > ? ORDER BY geonameid LIMIT ?")
	if err := sqlx.SelectContext(ctx, s.db, &localities, q, afterID, limit); err != nil {
		return nil, err
	}
	return localities, nil
}

// LongNameTaken reports whether another enabled locality of the country uses longName.
func (s *Store) LongNameTaken(ctx context.Context, countryCode, longName string, exceptID int64) (bool, error) {
	var n int
	q := s.db.Rebind(`
		SELECT COUNT(*) FROM localities
		WHERE country_code = ? AND long_name = ? AND geonameid <> ? AND enabled = TRUE`)
	if err := sqlx.GetContext(ctx, s.db, &n, q, countryCode, longName, exceptID); err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateLocality writes every column of l.
func (s *Store) UpdateLocality(ctx context.Context, l *model.Locality) error {
	_, err := sqlx.NamedExecContext(ctx, s.db, `
		UPDATE localities SET
			name = :name, name_folded = :name_folded, long_name = :long_name, slug = :slug,
			country_code = :country_code, admin1_id = :admin1_id, admin2_id = :admin2_id,
			timezone_name = :timezone_name, feature_code = :feature_code, population = :population,
			latitude = :latitude, longitude = :longitude, modification_date = :modification_date,
			enabled = :enabled
		WHERE geonameid = :geonameid`, l)
	return err
}

// UpdateLocalityDerived writes only the computed name columns of l.
func (s *Store) UpdateLocalityDerived(ctx context.Context, l *model.Locality) error {
	_, err := sqlx.NamedExecContext(ctx, s.db, `
		UPDATE localities SET name_folded = :name_folded, long_name = :long_name, slug = :slug
		WHERE geonameid = :geonameid`, l)
	return err
}

// AlternateNames returns the alternate names of a locality.
func (s *Store) AlternateNames(ctx context.Context, localityID int64) ([]model.AlternateName, error) {
	var names []model.AlternateName
	q := s.db.Rebind("SELECT id, locality_id, name, name_folded FROM alternate_names WHERE locality_id = ? ORDER BY name")
	if err := sqlx.SelectContext(ctx, s.db, &names, q, localityID); err != nil {
		return nil, err
	}
	return names, nil
}
