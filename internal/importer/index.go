package importer

import "github.com/alexivanou/georef/internal/model"

// AdminIndex resolves the natural GeoNames keys of one load run
// (country code, admin1 code, admin2 code) to the divisions loaded so far.
// It lives only as long as the run that builds it.
type AdminIndex struct {
	countries map[string]map[string]*admin1Entry
}

type admin1Entry struct {
	admin1 *model.Admin1Code
	admin2 map[string]*model.Admin2Code
}

func NewAdminIndex() *AdminIndex {
	return &AdminIndex{countries: make(map[string]map[string]*admin1Entry)}
}

// AddCountry registers a country so that its divisions can be indexed.
func (x *AdminIndex) AddCountry(code string) {
	if _, ok := x.countries[code]; !ok {
		x.countries[code] = make(map[string]*admin1Entry)
	}
}

func (x *AdminIndex) HasCountry(code string) bool {
	_, ok := x.countries[code]
	return ok
}

// AddAdmin1 indexes a under its country and short code. The country must
// have been added.
func (x *AdminIndex) AddAdmin1(a *model.Admin1Code) bool {
	admins, ok := x.countries[a.CountryCode]
	if !ok {
		return false
	}
	admins[a.Code] = &admin1Entry{admin1: a, admin2: make(map[string]*model.Admin2Code)}
	return true
}

func (x *AdminIndex) Admin1(countryCode, code string) *model.Admin1Code {
	if e := x.entry(countryCode, code); e != nil {
		return e.admin1
	}
	return nil
}

// AddAdmin2 indexes a below the admin1 division with the given short code.
// It reports false, leaving the index untouched, when that admin1 is unknown.
func (x *AdminIndex) AddAdmin2(admin1Code string, a *model.Admin2Code) bool {
	e := x.entry(a.CountryCode, admin1Code)
	if e == nil {
		return false
	}
	e.admin2[a.Code] = a
	return true
}

// Resolve returns the divisions a locality row points at. Both are nil when
// the country or admin1 code is unknown; admin2 is nil when only that level
// is unknown.
func (x *AdminIndex) Resolve(countryCode, admin1Code, admin2Code string) (*model.Admin1Code, *model.Admin2Code) {
	e := x.entry(countryCode, admin1Code)
	if e == nil {
		return nil, nil
	}
	return e.admin1, e.admin2[admin2Code]
}

func (x *AdminIndex) entry(countryCode, admin1Code string) *admin1Entry {
	if admins, ok := x.countries[countryCode]; ok {
		return admins[admin1Code]
	}
	return nil
}
