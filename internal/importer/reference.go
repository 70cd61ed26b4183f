package importer

import (
	"context"
	"strings"

	"github.com/alexivanou/georef/internal/model"
	"github.com/cockroachdb/apd/v3"
	"go.uber.org/zap"
)

// loadTimezones reads timeZones.txt: CountryCode, TimeZoneId, GMT offset,
// DST offset, raw offset.
func loadTimezones(ctx context.Context, r *run) error {
	r.logger.Info("Loading timezones")

	var zones []model.Timezone
	err := scanFile(r.cfg.DataDir, TimezonesFile, true, func(fields []string) error {
		if err := requireFields(fields, 4); err != nil {
			return err
		}
		gmt, _, err := apd.NewFromString(fields[2])
		if err != nil {
			return malformed("gmt offset %q: %v", fields[2], err)
		}
		dst, _, err := apd.NewFromString(fields[3])
		if err != nil {
			return malformed("dst offset %q: %v", fields[3], err)
		}
		zones = append(zones, model.Timezone{Name: fields[1], GMTOffset: *gmt, DSTOffset: *dst})
		return nil
	})
	if err != nil {
		return err
	}

	if err := r.store.InsertTimezones(ctx, zones); err != nil {
		return err
	}
	for _, z := range zones {
		r.timezones[z.Name] = struct{}{}
	}
	r.result.Timezones = len(zones)
	r.logger.Info("Timezones loaded", zap.Int("count", len(zones)))
	return nil
}

// loadLanguages reads iso-languagecodes.txt: ISO 639-3, ISO 639-2,
// ISO 639-1, language name. Languages without a 639-1 code are dropped.
func loadLanguages(ctx context.Context, r *run) error {
	r.logger.Info("Loading languages")

	var languages []model.Language
	seen := make(map[string]struct{})
	err := scanFile(r.cfg.DataDir, LanguagesFile, true, func(fields []string) error {
		if err := requireFields(fields, 4); err != nil {
			return err
		}
		iso, name := fields[2], fields[3]
		if iso == "" {
			return nil
		}
		if _, dup := seen[name]; dup {
			r.result.SkippedLanguages++
			return nil
		}
		seen[name] = struct{}{}
		languages = append(languages, model.Language{Name: name, ISO6391: iso})
		return nil
	})
	if err != nil {
		return err
	}

	if err := r.store.InsertLanguages(ctx, languages); err != nil {
		return err
	}
	r.result.Languages = len(languages)
	r.logger.Info("Languages loaded", zap.Int("count", len(languages)), zap.Int("skipped", r.result.SkippedLanguages))

	renamed, err := r.store.RenameLanguages(ctx, model.LanguageCorrections)
	if err != nil {
		return err
	}
	r.result.RenamedLanguages = int(renamed)
	r.logger.Info("Language names corrected", zap.Int("count", int(renamed)))
	return nil
}

// loadCountries reads countryInfo.txt. Currencies are created on first
// sight; the languages are linked in a second pass once every country exists.
func loadCountries(ctx context.Context, r *run) error {
	r.logger.Info("Loading countries")

	currencies := []model.Currency{{Code: model.DefaultCurrencyCode, Name: model.DefaultCurrencyName}}
	knownCurrencies := map[string]struct{}{model.DefaultCurrencyCode: {}}
	var countries []model.Country

	err := scanFile(r.cfg.DataDir, CountriesFile, false, func(fields []string) error {
		if err := requireFields(fields, 16); err != nil {
			return err
		}
		code, name := fields[0], fields[4]
		if code == "" || name == "" {
			return malformed("country code and name are required")
		}
		currencyCode, currencyName := fields[10], fields[11]
		if currencyCode == "" {
			currencyCode = model.DefaultCurrencyCode
		} else if _, ok := knownCurrencies[currencyCode]; !ok {
			knownCurrencies[currencyCode] = struct{}{}
			currencies = append(currencies, model.Currency{Code: currencyCode, Name: currencyName})
		}

		countries = append(countries, model.Country{Code: code, Name: name, CurrencyCode: currencyCode, Enabled: true})
		r.countryLanguages[code] = fields[15]
		r.index.AddCountry(code)
		return nil
	})
	if err != nil {
		return err
	}

	if err := r.store.InsertCurrencies(ctx, currencies); err != nil {
		return err
	}
	if err := r.store.InsertCountries(ctx, countries); err != nil {
		return err
	}
	r.result.Currencies = len(currencies)
	r.result.Countries = len(countries)
	r.logger.Info("Countries loaded", zap.Int("count", len(countries)), zap.Int("currencies", len(currencies)))

	return linkCountryLanguages(ctx, r, countries)
}

func linkCountryLanguages(ctx context.Context, r *run, countries []model.Country) error {
	r.logger.Info("Adding languages to countries")

	languages, err := r.store.ListLanguages(ctx)
	if err != nil {
		return err
	}
	byISO := make(map[string][]string)
	for _, l := range languages {
		byISO[l.ISO6391] = append(byISO[l.ISO6391], l.Name)
	}
	fallback := byISO[model.DefaultLanguageCode]
	if len(fallback) != 1 {
		return &model.ConsistencyError{
			Entity: "language",
			Reason: "default language " + model.DefaultLanguageCode + " must exist exactly once",
		}
	}

	var links []model.CountryLanguage
	for _, c := range countries {
		linked := make(map[string]struct{})
		for _, entry := range strings.Split(r.countryLanguages[c.Code], ",") {
			iso := strings.TrimSpace(strings.SplitN(entry, "-", 2)[0])
			if len(iso) < 2 {
				continue
			}
			names := byISO[iso]
			if len(names) != 1 {
				continue
			}
			if _, dup := linked[names[0]]; dup {
				continue
			}
			linked[names[0]] = struct{}{}
			links = append(links, model.CountryLanguage{CountryCode: c.Code, LanguageName: names[0]})
		}
		if len(linked) == 0 {
			links = append(links, model.CountryLanguage{CountryCode: c.Code, LanguageName: fallback[0]})
		}
	}

	if err := r.store.InsertCountryLanguages(ctx, links); err != nil {
		return err
	}
	r.logger.Info("Country languages linked", zap.Int("count", len(links)))
	return nil
}
