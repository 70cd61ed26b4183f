package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/alexivanou/georef/internal/model"
	"github.com/jmoiron/sqlx"
)

func (s *Store) InsertTimezones(ctx context.Context, zones []model.Timezone) error {
	_, err := bulkInsert(ctx, s, `
		INSERT INTO timezones (name, gmt_offset, dst_offset)
		VALUES (:name, :gmt_offset, :dst_offset)`, 3, zones)
	return err
}

func (s *Store) InsertLanguages(ctx context.Context, languages []model.Language) error {
	_, err := bulkInsert(ctx, s, `
		INSERT INTO languages (name, iso_639_1)
		VALUES (:name, :iso_639_1)`, 2, languages)
	return err
}

// RenameLanguages applies corrections keyed by ISO 639-1 code. A code whose
// corrected name is already taken by another row is left alone.
func (s *Store) RenameLanguages(ctx context.Context, corrections map[string]string) (int64, error) {
	var total int64
	q := s.db.Rebind(`
		UPDATE languages SET name = ?
		WHERE iso_639_1 = ? AND name <> ?
		AND NOT EXISTS (SELECT 1 FROM languages other WHERE other.name = ?)`)
	for code, name := range corrections {
		res, err := s.db.ExecContext(ctx, q, name, code, name, name)
		if err != nil {
			return total, err
		}
		if n, err := res.RowsAffected(); err == nil {
			total += n
		}
	}
	return total, nil
}

func (s *Store) ListLanguages(ctx context.Context) ([]model.Language, error) {
	var languages []model.Language
	if err := sqlx.SelectContext(ctx, s.db, &languages, "SELECT name, iso_639_1 FROM languages ORDER BY name"); err != nil {
		return nil, err
	}
	return languages, nil
}

func (s *Store) InsertCurrencies(ctx context.Context, currencies []model.Currency) error {
	_, err := bulkInsert(ctx, s, `
		INSERT INTO currencies (code, name)
		VALUES (:code, :name)`, 2, currencies)
	return err
}

func (s *Store) InsertCountries(ctx context.Context, countries []model.Country) error {
	_, err := bulkInsert(ctx, s, `
		INSERT INTO countries (code, name, currency_code, enabled)
		VALUES (:code, :name, :currency_code, :enabled)`, 4, countries)
	return err
}

func (s *Store) InsertCountryLanguages(ctx context.Context, links []model.CountryLanguage) error {
	_, err := bulkInsert(ctx, s, `
		INSERT INTO country_languages (country_code, language_name)
		VALUES (:country_code, :language_name)
		ON CONFLICT DO NOTHING`, 2, links)
	return err
}

// CountryLanguages returns the language names of a country in name order.
func (s *Store) CountryLanguages(ctx context.Context, countryCode string) ([]string, error) {
	var names []string
	q := s.db.Rebind("SELECT language_name FROM country_languages WHERE country_code = ? ORDER BY language_name")
	if err := sqlx.SelectContext(ctx, s.db, &names, q, countryCode); err != nil {
		return nil, err
	}
	return names, nil
}

func (s *Store) GetCountry(ctx context.Context, code string, scope model.Scope) (*model.Country, error) {
	var c model.Country
	q := s.db.Rebind("SELECT code, name, currency_code, enabled FROM countries WHERE code = ?" + scopeClause(scope, ""))
	if err := sqlx.GetContext(ctx, s.db, &c, q, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) ListCountries(ctx context.Context, scope model.Scope) ([]model.Country, error) {
	var countries []model.Country
	q := "SELECT code, name, currency_code, enabled FROM countries WHERE 1 = 1" + scopeClause(scope, "") + " ORDER BY name"
	if err := sqlx.SelectContext(ctx, s.db, &countries, q); err != nil {
		return nil, err
	}
	return countries, nil
}

// GetTimezone returns the zone or nil when it does not exist.
func (s *Store) GetTimezone(ctx context.Context, name string) (*model.Timezone, error) {
	var tz model.Timezone
	q := s.db.Rebind("SELECT name, gmt_offset, dst_offset FROM timezones WHERE name = ?")
	if err := sqlx.GetContext(ctx, s.db, &tz, q, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &tz, nil
}
