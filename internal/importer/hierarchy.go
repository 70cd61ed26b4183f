package importer

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alexivanou/georef/internal/model"
	"go.uber.org/zap"
)

// geonamesDate is the layout of the modification date column
const geonamesDate = "2006-01-02"

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, malformed("geonameid %q: %v", s, err)
	}
	return id, nil
}

func unknownCountry(entity string, id int64, code string) error {
	return &model.ConsistencyError{Entity: entity, ID: id, Reason: fmt.Sprintf("unknown country %q", code)}
}

// loadAdmin1 reads admin1CodesASCII.txt: "CC.A1", name, ascii name, geonameid.
func loadAdmin1(ctx context.Context, r *run) error {
	r.logger.Info("Loading admin1 codes")

	var codes []model.Admin1Code
	err := scanFile(r.cfg.DataDir, Admin1File, false, func(fields []string) error {
		if err := requireFields(fields, 4); err != nil {
			return err
		}
		key := strings.Split(fields[0], ".")
		if len(key) != 2 {
			return malformed("admin1 key %q is not CC.A1", fields[0])
		}
		id, err := parseID(fields[3])
		if err != nil {
			return err
		}

		a := &model.Admin1Code{GeonameID: id, Code: key[1], Name: fields[1], CountryCode: key[0]}
		if !r.index.AddAdmin1(a) {
			return unknownCountry("admin1", id, key[0])
		}
		codes = append(codes, *a)
		return nil
	})
	if err != nil {
		return err
	}

	if err := r.store.InsertAdmin1Codes(ctx, codes); err != nil {
		return err
	}
	r.result.Admin1 = len(codes)
	r.logger.Info("Admin1 codes loaded", zap.Int("count", len(codes)))
	return nil
}

// loadAdmin2 reads admin2Codes.txt: "CC.A1.A2", name, ascii name, geonameid.
// A second row with the same country, admin1 code and name is skipped. A row
// whose admin1 is unknown is stored without admin1 and is not indexed, so no
// locality resolves to it.
func loadAdmin2(ctx context.Context, r *run) error {
	r.logger.Info("Loading admin2 codes")

	var codes []model.Admin2Code
	seen := make(map[string]struct{})
	err := scanFile(r.cfg.DataDir, Admin2File, false, func(fields []string) error {
		if err := requireFields(fields, 4); err != nil {
			return err
		}
		key := strings.Split(fields[0], ".")
		if len(key) != 3 {
			return malformed("admin2 key %q is not CC.A1.A2", fields[0])
		}
		countryCode, admin1Code, admin2Code := key[0], key[1], key[2]
		name := fields[1]

		dedup := countryCode + "." + admin1Code + "." + name
		if _, dup := seen[dedup]; dup {
			r.result.SkippedAdmin2++
			return nil
		}
		seen[dedup] = struct{}{}

		id, err := parseID(fields[3])
		if err != nil {
			return err
		}
		if !r.index.HasCountry(countryCode) {
			return unknownCountry("admin2", id, countryCode)
		}

		admin1 := r.index.Admin1(countryCode, admin1Code)
		a, err := model.NewAdmin2Code(id, admin2Code, name, countryCode, admin1)
		if err != nil {
			return err
		}
		if admin1 == nil {
			r.result.Admin2WithoutAdmin1++
		} else {
			r.index.AddAdmin2(admin1Code, a)
		}
		codes = append(codes, *a)
		return nil
	})
	if err != nil {
		return err
	}

	inserted, err := r.store.InsertAdmin2Codes(ctx, codes)
	if err != nil {
		return err
	}
	r.result.Admin2 = int(inserted)
	r.logger.Info("Admin2 codes loaded",
		zap.Int64("count", inserted),
		zap.Int("skipped_duplicated", r.result.SkippedAdmin2),
		zap.Int("without_admin1", r.result.Admin2WithoutAdmin1),
	)
	return nil
}

// loadLocalities reads the populated places dump, keeping the city feature
// codes only. The first row of a geonameid wins.
func loadLocalities(ctx context.Context, r *run) error {
	r.logger.Info("Loading localities", zap.String("file", r.cfg.CitiesFile))

	processed := 0
	b := newBatch(r.cfg.LocalityBatchSize, func(rows []model.Locality) error {
		n, err := r.store.InsertLocalities(ctx, rows)
		if err != nil {
			return err
		}
		r.result.Localities += int(n)
		r.logger.Info("Localities loaded", zap.Int("processed", processed))
		return nil
	})

	err := scanFile(r.cfg.DataDir, r.cfg.CitiesFile, false, func(fields []string) error {
		if err := requireFields(fields, 19); err != nil {
			return err
		}
		if !model.IsCityFeatureCode(fields[7]) {
			return nil
		}
		l, err := parseLocality(r, fields)
		if err != nil {
			return err
		}
		processed++
		r.localityIDs[l.GeonameID] = struct{}{}
		return b.add(*l)
	})
	if err != nil {
		return err
	}
	if err := b.close(); err != nil {
		return err
	}

	r.logger.Info("Localities loaded",
		zap.Int("processed", processed),
		zap.Int("inserted", r.result.Localities),
		zap.Int("unknown_timezone", r.result.UnknownTimezones),
	)
	return nil
}

// parseLocality maps a row of the GeoNames main table: 0 geonameid, 1 name,
// 4 latitude, 5 longitude, 7 feature code, 8 country code, 10 admin1 code,
// 11 admin2 code, 14 population, 17 timezone, 18 modification date.
func parseLocality(r *run, fields []string) (*model.Locality, error) {
	id, err := parseID(fields[0])
	if err != nil {
		return nil, err
	}
	population, err := strconv.ParseInt(fields[14], 10, 64)
	if err != nil {
		return nil, malformedErr(fmt.Errorf("population: %w", err))
	}
	if population < 0 {
		return nil, malformed("negative population %d", population)
	}
	lat, err := strconv.ParseFloat(fields[4], 64)
	if err != nil {
		return nil, malformedErr(fmt.Errorf("latitude: %w", err))
	}
	lon, err := strconv.ParseFloat(fields[5], 64)
	if err != nil {
		return nil, malformedErr(fmt.Errorf("longitude: %w", err))
	}
	modified, err := time.Parse(geonamesDate, fields[18])
	if err != nil {
		return nil, malformedErr(fmt.Errorf("modification date: %w", err))
	}

	countryCode := fields[8]
	if !r.index.HasCountry(countryCode) {
		return nil, unknownCountry("locality", id, countryCode)
	}

	l := &model.Locality{
		GeonameID:        id,
		Name:             fields[1],
		CountryCode:      countryCode,
		FeatureCode:      fields[7],
		Population:       population,
		Latitude:         lat,
		Longitude:        lon,
		ModificationDate: modified,
		Enabled:          true,
	}
	if tz := fields[17]; tz != "" {
		if _, ok := r.timezones[tz]; ok {
			l.TimezoneName = &tz
		} else {
			r.result.UnknownTimezones++
		}
	}

	admin1, admin2 := r.index.Resolve(countryCode, fields[10], fields[11])
	if err := l.Attach(admin1, admin2); err != nil {
		return nil, err
	}
	return l, nil
}
