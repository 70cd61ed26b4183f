package repository

import (
	"context"
	"strings"

	"github.com/alexivanou/georef/internal/model"
	"github.com/jmoiron/sqlx"
)

const postcodeColumns = `country_code, postal_code, place_name, admin1_name, admin1_code,
	admin2_name, admin2_code, admin3_name, admin3_code, latitude, longitude, accuracy`

func (s *Store) InsertPostcodes(ctx context.Context, postcodes []model.Postcode) (int64, error) {
	return bulkInsert(ctx, s, `
		INSERT INTO postcodes (`+postcodeColumns+`)
		VALUES (:country_code, :postal_code, :place_name, :admin1_name, :admin1_code,
			:admin2_name, :admin2_code, :admin3_name, :admin3_code, :latitude, :longitude, :accuracy)`, 12, postcodes)
}

// RemovePostcodeSpaces strips spaces from the postal codes of the given countries.
func (s *Store) RemovePostcodeSpaces(ctx context.Context, countryCodes []string) (int64, error) {
	if len(countryCodes) == 0 {
		return 0, nil
	}
	return s.execIn(ctx, `
		UPDATE postcodes SET postal_code = REPLACE(postal_code, ' ', '')
		WHERE country_code IN (?) AND postal_code LIKE '% %'`, countryCodes)
}

// FindPostcodes looks a postal code up within a country, ignoring case and spaces.
func (s *Store) FindPostcodes(ctx context.Context, countryCode, postalCode string) ([]model.Postcode, error) {
	var postcodes []model.Postcode
	q := s.db.Rebind(`
		SELECT id, ` + postcodeColumns + `
		FROM postcodes
		WHERE country_code = ? AND REPLACE(UPPER(postal_code), ' ', '') = ?
		ORDER BY id`)
	if err := sqlx.SelectContext(ctx, s.db, &postcodes, q, countryCode, NormalizePostcode(postalCode)); err != nil {
		return nil, err
	}
	return postcodes, nil
}

// NormalizePostcode upper-cases code and removes its spaces.
func NormalizePostcode(code string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(code)), " ", "")
}
