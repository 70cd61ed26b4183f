package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alexivanou/georef/internal/config"
	"github.com/alexivanou/georef/internal/database"
	"github.com/alexivanou/georef/internal/model"
	"github.com/alexivanou/georef/internal/repository"
	"github.com/alexivanou/georef/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func setupStore(t *testing.T) *repository.Store {
	cfg := config.DBConfig{Type: config.DBTypeMemory, Name: strings.ReplaceAll(t.Name(), "/", "_")}
	db, err := database.Connect(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migrations.Up(db.DB, config.DBTypeMemory))
	return repository.NewStore(db, config.DBTypeMemory)
}

func tsv(rows ...[]string) string {
	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = strings.Join(r, "\t")
	}
	return strings.Join(lines, "\n") + "\n"
}

func city(id, name, lat, lon, fcode, cc, a1, a2, pop, tz string) []string {
	return []string{id, name, name, "", lat, lon, "P", fcode, cc, "", a1, a2, "", "", pop, "", "10", tz, "2020-01-01"}
}

func country(code, name, currency, currencyName, languages string) []string {
	return []string{code, code + "X", "000", code, name, "", "0", "0", "EU", "." + strings.ToLower(code),
		currency, currencyName, "", "", "", languages, "0", "", ""}
}

func altName(id, localityID, lang, name string) []string {
	return []string{id, localityID, lang, name, "", "", "", ""}
}

func postcode(cc, code, place, lat, lon, accuracy string) []string {
	return []string{cc, code, place, "Admin1", "A1", "Admin2", "A2", "", "", lat, lon, accuracy}
}

var defaultCities = tsv(
	city("2657832", "Aberdeen", "57.14369", "-2.09814", "PPLA2", "GB", "SCT", "S5", "196670", "Europe/London"),
	city("2650952", "Dyce", "57.20", "-2.17", "PPL", "GB", "SCT", "S5", "6000", ""),
	city("2646003", "Inverurie", "57.28", "-2.37", "PPL", "GB", "SCT", "T6", "13000", "Europe/London"),
	city("100", "Springfield", "37.20", "-93.30", "PPL", "US", "MO", "077", "1000", "America/Chicago"),
	city("101", "Springfield", "37.21", "-93.29", "PPL", "US", "MO", "077", "10", "America/Chicago"),
	city("102", "Nowhere Town", "38.00", "-90.00", "PPL", "US", "XX", "001", "50", "Mars/Olympus"),
	city("103", "Lighthouse", "57.00", "-2.00", "LTHSE", "GB", "SCT", "", "0", "Europe/London"),
	city("2657832", "Aberdeen Again", "57.14", "-2.09", "PPL", "GB", "SCT", "S5", "1", "Europe/London"),
)

// writeFixtures writes a small GeoNames dump into a new directory.
// Files in overrides replace the defaults.
func writeFixtures(t *testing.T, overrides map[string]string) config.LoaderConfig {
	dir := t.TempDir()
	files := map[string]string{
		TimezonesFile: tsv(
			[]string{"CountryCode", "TimeZoneId", "GMT offset 1. Jan 2024", "DST offset 1. Jul 2024", "rawOffset"},
			[]string{"GB", "Europe/London", "0.0", "1.0", "0.0"},
			[]string{"US", "America/Chicago", "-6.0", "-5.0", "-6.0"},
			[]string{"NP", "Asia/Kathmandu", "5.75", "5.75", "5.75"},
		),
		LanguagesFile: tsv(
			[]string{"ISO 639-3", "ISO 639-2", "ISO 639-1", "Language Name"},
			[]string{"eng", "eng", "en", "English"},
			[]string{"fra", "fre", "fr", "French"},
			[]string{"gla", "gla", "gd", "Gaelic"},
			[]string{"khm", "khm", "km", "Central Khmer"},
			[]string{"ace", "ace", "", "Achinese"},
		),
		CountriesFile: "# GeoNames country info\n#ISO\tISO3\n" + tsv(
			country("GB", "United Kingdom", "GBP", "Pound", "en-GB,cy-GB,gd"),
			country("US", "United States", "USD", "Dollar", "en-US,es-US,haw,fr"),
			country("FR", "France", "EUR", "Euro", "fr-FR,frp,br"),
			country("AQ", "Antarctica", "", "", ""),
		),
		Admin1File: tsv(
			[]string{"GB.SCT", "Scotland", "Scotland", "2638360"},
			[]string{"US.MO", "Missouri", "Missouri", "4398678"},
			[]string{"US.IL", "Illinois", "Illinois", "4896861"},
		),
		Admin2File: tsv(
			[]string{"GB.SCT.S5", "Aberdeen City", "Aberdeen City", "2657831"},
			[]string{"GB.SCT.T6", "Aberdeenshire", "Aberdeenshire", "2657830"},
			[]string{"GB.SCT.T7", "Aberdeen City", "Aberdeen City", "9999"},
			[]string{"US.MO.077", "Greene County", "Greene County", "4391812"},
			[]string{"US.XX.001", "Nowhere County", "Nowhere County", "5000"},
		),
		"cities500.txt": defaultCities,
		"alternateNames.txt": tsv(
			altName("1", "2657832", "gd", "Obar Dheathain"),
			altName("2", "2657832", "en", "Aberdeen"),
			altName("3", "2657832", "fr", "Aberdeen"),
			altName("4", "103", "en", "Lighthouse"),
			altName("5", "100", "en", "Springfield"),
		),
		"allCountries.txt": tsv(
			postcode("GB", "AB10 1AA", "Aberdeen", "57.14", "-2.11", "6"),
			postcode("US", "65801", "Springfield", "37.20", "-93.30", "4"),
			postcode("ZZ", "00000", "Nowhere", "0", "0", ""),
		),
		"GB_full.txt": tsv(
			postcode("GB", "AB10 1AB", "Aberdeen", "57.14", "-2.11", ""),
		),
	}
	for name, content := range overrides {
		files[name] = content
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	cfg := config.Default().Loader
	cfg.DataDir = dir
	cfg.CitiesFile = "cities500.txt"
	cfg.AltNamesFile = "alternateNames.txt"
	cfg.PostcodeFiles = []string{"allCountries.txt", "GB_full.txt"}
	cfg.LocalityBatchSize = 2
	cfg.AltNameBatchSize = 2
	cfg.PostcodeBatchSize = 2
	return cfg
}

func TestImporter_Load(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	im := New(store, writeFixtures(t, nil), zaptest.NewLogger(t))

	res, err := im.Load(ctx, Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Timezones)
	assert.Equal(t, 4, res.Languages)
	assert.Equal(t, 1, res.RenamedLanguages)
	assert.Equal(t, 3, res.Currencies)
	assert.Equal(t, 4, res.Countries)
	assert.Equal(t, 3, res.Postcodes)
	assert.Equal(t, 1, res.SkippedPostcodes)
	assert.Equal(t, 2, res.SpacelessPostcodes)
	assert.Equal(t, 3, res.Admin1)
	assert.Equal(t, 4, res.Admin2)
	assert.Equal(t, 1, res.SkippedAdmin2)
	assert.Equal(t, 1, res.Admin2WithoutAdmin1)
	assert.Equal(t, 6, res.Localities)
	assert.Equal(t, 1, res.UnknownTimezones)
	assert.Equal(t, 2, res.BackfilledTimezones)
	assert.Equal(t, 2, res.DisabledCountries)
	assert.Equal(t, 1, res.DisabledLocalities)
	assert.Equal(t, 3, res.AlternateNames)
	assert.Equal(t, 1, res.SkippedAlternateNames)

	t.Run("hierarchy", func(t *testing.T) {
		aberdeen, err := store.GetLocality(ctx, 2657832, model.ScopeEnabled)
		require.NoError(t, err)
		require.NotNil(t, aberdeen)
		assert.Equal(t, "Aberdeen", aberdeen.Name)
		assert.Equal(t, "Aberdeen, Aberdeen City, Scotland", aberdeen.LongName)
		assert.Equal(t, "aberdeen-aberdeen-city-scotland", aberdeen.Slug)
		assert.EqualValues(t, 2638360, *aberdeen.Admin1ID)
		assert.EqualValues(t, 2657831, *aberdeen.Admin2ID)

		orphanAdmin2, err := store.GetAdmin2(ctx, 5000)
		require.NoError(t, err)
		require.NotNil(t, orphanAdmin2)
		assert.Nil(t, orphanAdmin2.Admin1ID)

		skipped, err := store.GetAdmin2(ctx, 9999)
		require.NoError(t, err)
		assert.Nil(t, skipped)

		lighthouse, err := store.GetLocality(ctx, 103, model.ScopeIncludingDisabled)
		require.NoError(t, err)
		assert.Nil(t, lighthouse)
	})

	t.Run("timezone backfill", func(t *testing.T) {
		dyce, err := store.GetLocality(ctx, 2650952, model.ScopeEnabled)
		require.NoError(t, err)
		require.NotNil(t, dyce.TimezoneName)
		assert.Equal(t, "Europe/London", *dyce.TimezoneName)

		nowhere, err := store.GetLocality(ctx, 102, model.ScopeEnabled)
		require.NoError(t, err)
		assert.Nil(t, nowhere.Admin1ID)
		assert.Nil(t, nowhere.Admin2ID)
		assert.Equal(t, "Nowhere Town", nowhere.LongName)
		require.NotNil(t, nowhere.TimezoneName)
		assert.Equal(t, "America/Chicago", *nowhere.TimezoneName)
	})

	t.Run("duplicates disabled", func(t *testing.T) {
		kept, err := store.GetLocality(ctx, 100, model.ScopeEnabled)
		require.NoError(t, err)
		require.NotNil(t, kept)
		assert.Equal(t, "Springfield, Greene County, Missouri", kept.LongName)

		dup, err := store.GetLocality(ctx, 101, model.ScopeIncludingDisabled)
		require.NoError(t, err)
		require.NotNil(t, dup)
		assert.False(t, dup.Enabled)
	})

	t.Run("countries", func(t *testing.T) {
		enabled, err := store.ListCountries(ctx, model.ScopeEnabled)
		require.NoError(t, err)
		var codes []string
		for _, c := range enabled {
			codes = append(codes, c.Code)
		}
		assert.Equal(t, []string{"GB", "US"}, codes)

		aq, err := store.GetCountry(ctx, "AQ", model.ScopeIncludingDisabled)
		require.NoError(t, err)
		require.NotNil(t, aq)
		assert.Equal(t, model.DefaultCurrencyCode, aq.CurrencyCode)
		assert.False(t, aq.Enabled)

		langs, err := store.CountryLanguages(ctx, "GB")
		require.NoError(t, err)
		assert.Equal(t, []string{"English", "Gaelic"}, langs)
		langs, err = store.CountryLanguages(ctx, "US")
		require.NoError(t, err)
		assert.Equal(t, []string{"English", "French"}, langs)
		langs, err = store.CountryLanguages(ctx, "AQ")
		require.NoError(t, err)
		assert.Equal(t, []string{"English"}, langs)
	})

	t.Run("languages corrected", func(t *testing.T) {
		languages, err := store.ListLanguages(ctx)
		require.NoError(t, err)
		var names []string
		for _, l := range languages {
			names = append(names, l.Name)
		}
		assert.Equal(t, []string{"English", "French", "Gaelic", "Khmer"}, names)
	})

	t.Run("alternate names", func(t *testing.T) {
		names, err := store.AlternateNames(ctx, 2657832)
		require.NoError(t, err)
		require.Len(t, names, 2)
		assert.Equal(t, "Aberdeen", names[0].Name)
		assert.EqualValues(t, 2, names[0].ID)
		assert.Equal(t, "Obar Dheathain", names[1].Name)

		found, err := store.FindLocalitiesByName(ctx, "GB", "obar dheathain", model.ScopeEnabled)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.EqualValues(t, 2657832, found[0].GeonameID)
	})

	t.Run("postcodes", func(t *testing.T) {
		found, err := store.FindPostcodes(ctx, "GB", "AB10 1AB")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "AB101AB", found[0].PostalCode)
		assert.Nil(t, found[0].Accuracy)

		found, err = store.FindPostcodes(ctx, "US", "65801")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, 4, *found[0].Accuracy)
	})

	t.Run("timezone offsets", func(t *testing.T) {
		tz, err := store.GetTimezone(ctx, "Asia/Kathmandu")
		require.NoError(t, err)
		require.NotNil(t, tz)
		assert.Equal(t, "(UTC+05:45) Asia/Kathmandu", tz.String())
	})

	t.Run("load log", func(t *testing.T) {
		u, err := store.LatestUpdate(ctx)
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, res.RunID, u.ID)
		assert.Equal(t, 6, u.Localities)
		assert.Equal(t, 3, u.AlternateNames)
	})
}

func TestImporter_LoadRequiresEmptyDatabase(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	cfg := writeFixtures(t, nil)
	im := New(store, cfg, zaptest.NewLogger(t))

	_, err := im.Load(ctx, Options{})
	require.NoError(t, err)

	// The precondition is checked before any file is opened.
	missing := cfg
	missing.DataDir = filepath.Join(t.TempDir(), "missing")
	_, err = New(store, missing, zaptest.NewLogger(t)).Load(ctx, Options{})
	var pre *model.PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.EqualValues(t, 6, pre.Counts["localities"])

	res, err := im.Load(ctx, Options{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 6, res.Localities)

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 6, counts["localities"])
}

func TestImporter_LoadRollsBackOnParseError(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	broken := defaultCities + tsv(city("104", "Broken", "57.1", "-2.1", "PPL", "GB", "SCT", "S5", "many", "Europe/London"))
	im := New(store, writeFixtures(t, map[string]string{"cities500.txt": broken}), zaptest.NewLogger(t))

	_, err := im.Load(ctx, Options{})
	var pe *model.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "cities500.txt", pe.File)
	assert.Equal(t, 9, pe.Line)
	assert.Contains(t, pe.Content, "Broken")
	assert.Contains(t, err.Error(), "localities")

	empty, err := store.IsEmpty(ctx)
	require.NoError(t, err)
	assert.True(t, empty)
}

func TestImporter_LoadFailsWithoutTimezoneCandidate(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	cities := defaultCities + tsv(city("200", "Paris", "48.85", "2.35", "PPLC", "FR", "", "", "2000000", ""))
	im := New(store, writeFixtures(t, map[string]string{"cities500.txt": cities}), zaptest.NewLogger(t))

	_, err := im.Load(ctx, Options{})
	var re *model.ReconciliationError
	require.ErrorAs(t, err, &re)
	assert.EqualValues(t, 200, re.LocalityID)

	empty, err := store.IsEmpty(ctx)
	require.NoError(t, err)
	assert.True(t, empty)
}

func TestImporter_LoadRejectsUnknownCountry(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	cities := defaultCities + tsv(city("300", "Atlantis", "0", "0", "PPL", "ZZ", "", "", "1", ""))
	im := New(store, writeFixtures(t, map[string]string{"cities500.txt": cities}), zaptest.NewLogger(t))

	_, err := im.Load(ctx, Options{})
	var ce *model.ConsistencyError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "locality", ce.Entity)
	assert.EqualValues(t, 300, ce.ID)
}

func TestImporter_LoadMissingFile(t *testing.T) {
	store := setupStore(t)
	cfg := writeFixtures(t, nil)
	require.NoError(t, os.Remove(filepath.Join(cfg.DataDir, Admin2File)))

	_, err := New(store, cfg, zaptest.NewLogger(t)).Load(context.Background(), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, err.Error(), "admin2")
}
