package model

import (
	"fmt"
	"math"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
)

// Hard-coded values the GeoNames import relies on.
const (
	DefaultCurrencyCode = "USD"
	DefaultCurrencyName = "Dollar"
	DefaultLanguageCode = "en"
	DefaultLanguageName = "English"
)

// CityFeatureCodes lists the populated-place feature codes kept as localities.
var CityFeatureCodes = []string{"PPL", "PPLA", "PPLC", "PPLA2", "PPLA3", "PPLA4", "PPLG"}

// LanguageCorrections overrides upstream language names by ISO 639-1 code.
var LanguageCorrections = map[string]string{
	"km": "Khmer",
	"ia": "Interlingua",
	"ms": "Malay",
	"el": "Greek",
	"se": "Sami",
	"oc": "Occitan",
	"st": "Sotho",
	"sw": "Swahili",
	"to": "Tonga",
	"fy": "Frisian",
}

// IsCityFeatureCode reports whether code is one of CityFeatureCodes.
func IsCityFeatureCode(code string) bool {
	for _, c := range CityFeatureCodes {
		if c == code {
			return true
		}
	}
	return false
}

// Timezone represents a row of timeZones.txt
type Timezone struct {
	Name      string      `db:"name"`
	GMTOffset apd.Decimal `db:"gmt_offset"`
	DSTOffset apd.Decimal `db:"dst_offset"`
}

// String renders the zone as "(UTC+05:45) Asia/Kathmandu".
func (t Timezone) String() string {
	offset, err := t.GMTOffset.Float64()
	if err != nil {
		return t.Name
	}
	sign := "+"
	if offset < 0 {
		sign = "-"
	}
	gmt := math.Abs(offset)
	hours := int(gmt)
	minutes := int(math.Round((gmt - float64(hours)) * 60))
	return fmt.Sprintf("(UTC%s%02d:%02d) %s", sign, hours, minutes, t.Name)
}

// Language is keyed by its display name
type Language struct {
	Name    string `db:"name" json:"name"`
	ISO6391 string `db:"iso_639_1" json:"iso_639_1"`
}

// Currency represents an ISO 4217 currency
type Currency struct {
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
}

// Country represents a row of countryInfo.txt
type Country struct {
	Code         string `db:"code" json:"code"`
	Name         string `db:"name" json:"name"`
	CurrencyCode string `db:"currency_code" json:"currency_code"`
	Enabled      bool   `db:"enabled" json:"enabled"`
}

// CountryLanguage links a country to one of its languages
type CountryLanguage struct {
	CountryCode  string `db:"country_code"`
	LanguageName string `db:"language_name"`
}

// Admin1Code is a first-level administrative division
type Admin1Code struct {
	GeonameID   int64  `db:"geonameid" json:"geonameid"`
	Code        string `db:"code" json:"code"`
	Name        string `db:"name" json:"name"`
	CountryCode string `db:"country_code" json:"country_code"`
}

// Admin2Code is a second-level administrative division
type Admin2Code struct {
	GeonameID   int64  `db:"geonameid" json:"geonameid"`
	Code        string `db:"code" json:"code"`
	Name        string `db:"name" json:"name"`
	CountryCode string `db:"country_code" json:"country_code"`
	Admin1ID    *int64 `db:"admin1_id" json:"admin1_id"`
	Slug        string `db:"slug" json:"slug"`
}

// Locality is a populated place
type Locality struct {
	GeonameID        int64     `db:"geonameid" json:"geonameid"`
	Name             string    `db:"name" json:"name"`
	NameFolded       string    `db:"name_folded" json:"-"`
	LongName         string    `db:"long_name" json:"long_name"`
	Slug             string    `db:"slug" json:"slug"`
	CountryCode      string    `db:"country_code" json:"country_code"`
	Admin1ID         *int64    `db:"admin1_id" json:"admin1_id"`
	Admin2ID         *int64    `db:"admin2_id" json:"admin2_id"`
	TimezoneName     *string   `db:"timezone_name" json:"timezone"`
	FeatureCode      string    `db:"feature_code" json:"feature_code"`
	Population       int64     `db:"population" json:"population"`
	Latitude         float64   `db:"latitude" json:"latitude"`
	Longitude        float64   `db:"longitude" json:"longitude"`
	ModificationDate time.Time `db:"modification_date" json:"modification_date"`
	Enabled          bool      `db:"enabled" json:"enabled"`
}

// AlternateName is another name of a locality
type AlternateName struct {
	ID         int64  `db:"id" json:"id"`
	LocalityID int64  `db:"locality_id" json:"locality_id"`
	Name       string `db:"name" json:"name"`
	NameFolded string `db:"name_folded" json:"-"`
}

// Postcode represents a row of the GeoNames postal code dumps.
// Admin names and codes are free text.
type Postcode struct {
	ID          int64   `db:"id" json:"-"`
	CountryCode string  `db:"country_code" json:"country_code"`
	PostalCode  string  `db:"postal_code" json:"postal_code"`
	PlaceName   string  `db:"place_name" json:"place_name"`
	Admin1Name  string  `db:"admin1_name" json:"admin1_name"`
	Admin1Code  string  `db:"admin1_code" json:"admin1_code"`
	Admin2Name  string  `db:"admin2_name" json:"admin2_name"`
	Admin2Code  string  `db:"admin2_code" json:"admin2_code"`
	Admin3Name  string  `db:"admin3_name" json:"admin3_name"`
	Admin3Code  string  `db:"admin3_code" json:"admin3_code"`
	Latitude    float64 `db:"latitude" json:"latitude"`
	Longitude   float64 `db:"longitude" json:"longitude"`
	// 1 = estimated ... 6 = centroid of addresses or shape
	Accuracy *int `db:"accuracy" json:"accuracy,omitempty"`
}

// GeonamesUpdate logs one committed load
type GeonamesUpdate struct {
	ID             uuid.UUID `db:"id" json:"id"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
	Localities     int       `db:"localities" json:"localities"`
	AlternateNames int       `db:"alternate_names" json:"alternate_names"`
}

// Scope selects which rows a query sees
type Scope int

const (
	// ScopeEnabled hides disabled countries and localities.
	ScopeEnabled Scope = iota
	// ScopeIncludingDisabled returns every row.
	ScopeIncludingDisabled
)
