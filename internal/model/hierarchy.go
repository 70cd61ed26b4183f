package model

import (
	"fmt"
	"strings"

	"github.com/alexivanou/georef/internal/slug"
)

// GenerateLongName joins a locality name with its Admin2 and Admin1 names.
// Empty levels are omitted.
func GenerateLongName(name, admin2Name, admin1Name string) string {
	parts := []string{name}
	if admin2Name != "" {
		parts = append(parts, admin2Name)
	}
	if admin1Name != "" {
		parts = append(parts, admin1Name)
	}
	return strings.Join(parts, ", ")
}

// NewAdmin2Code builds an Admin2 division, failing when admin1 belongs to
// another country.
func NewAdmin2Code(geonameID int64, code, name, countryCode string, admin1 *Admin1Code) (*Admin2Code, error) {
	a := &Admin2Code{
		GeonameID:   geonameID,
		Code:        code,
		Name:        name,
		CountryCode: countryCode,
		Slug:        slug.Admin2(name),
	}
	if admin1 != nil {
		if admin1.CountryCode != countryCode {
			return nil, &ConsistencyError{
				Entity: "admin2",
				ID:     geonameID,
				Reason: fmt.Sprintf("admin1 %d %q is in country %s, not %s", admin1.GeonameID, admin1.Name, admin1.CountryCode, countryCode),
			}
		}
		id := admin1.GeonameID
		a.Admin1ID = &id
	}
	return a, nil
}

// Attach links l to its ancestors and recomputes the derived fields: long
// name, slug and folded name. Ancestors from another country are rejected.
func (l *Locality) Attach(admin1 *Admin1Code, admin2 *Admin2Code) error {
	if admin1 != nil && admin1.CountryCode != l.CountryCode {
		return &ConsistencyError{
			Entity: "locality",
			ID:     l.GeonameID,
			Reason: fmt.Sprintf("admin1 %d %q is in country %s, not %s", admin1.GeonameID, admin1.Name, admin1.CountryCode, l.CountryCode),
		}
	}
	if admin2 != nil && admin2.CountryCode != l.CountryCode {
		return &ConsistencyError{
			Entity: "locality",
			ID:     l.GeonameID,
			Reason: fmt.Sprintf("admin2 %d %q is in country %s, not %s", admin2.GeonameID, admin2.Name, admin2.CountryCode, l.CountryCode),
		}
	}

	var admin1Name, admin2Name string
	l.Admin1ID, l.Admin2ID = nil, nil
	if admin1 != nil {
		id := admin1.GeonameID
		l.Admin1ID = &id
		admin1Name = admin1.Name
	}
	if admin2 != nil {
		id := admin2.GeonameID
		l.Admin2ID = &id
		admin2Name = admin2.Name
	}

	l.LongName = GenerateLongName(l.Name, admin2Name, admin1Name)
	l.Slug = slug.Make(l.LongName)
	l.NameFolded = slug.Fold(l.Name)
	return nil
}
