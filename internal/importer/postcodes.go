package importer

import (
	"context"
	"fmt"
	"strconv"

	"github.com/alexivanou/georef/internal/model"
	"go.uber.org/zap"
)

// loadPostcodes reads every configured postcode dump in order. Rows of
// countries that were not loaded are skipped. Overlapping rows of two files
// are both kept.
func loadPostcodes(ctx context.Context, r *run) error {
	b := newBatch(r.cfg.PostcodeBatchSize, func(rows []model.Postcode) error {
		n, err := r.store.InsertPostcodes(ctx, rows)
		if err != nil {
			return err
		}
		r.result.Postcodes += int(n)
		r.logger.Info("Postcodes loaded", zap.Int("count", r.result.Postcodes))
		return nil
	})

	for _, file := range r.cfg.PostcodeFiles {
		r.logger.Info("Loading postcodes", zap.String("file", file))
		err := scanFile(r.cfg.DataDir, file, false, func(fields []string) error {
			p, err := parsePostcode(fields)
			if err != nil {
				return err
			}
			if !r.index.HasCountry(p.CountryCode) {
				r.result.SkippedPostcodes++
				return nil
			}
			return b.add(*p)
		})
		if err != nil {
			return err
		}
		if err := b.close(); err != nil {
			return err
		}
	}
	r.logger.Info("Postcodes loaded",
		zap.Int("count", r.result.Postcodes),
		zap.Int("skipped_unknown_country", r.result.SkippedPostcodes),
	)

	n, err := r.store.RemovePostcodeSpaces(ctx, r.cfg.SpacelessPostcodeCountries)
	if err != nil {
		return err
	}
	r.result.SpacelessPostcodes = int(n)
	r.logger.Info("Postcode spaces removed",
		zap.Strings("countries", r.cfg.SpacelessPostcodeCountries),
		zap.Int64("count", n),
	)
	return nil
}

// parsePostcode maps the 12 column layout: country code, postal code, place
// name, admin1 name, admin1 code, admin2 name, admin2 code, admin3 name,
// admin3 code, latitude, longitude, accuracy. Accuracy may be missing.
func parsePostcode(fields []string) (*model.Postcode, error) {
	if err := requireFields(fields, 11); err != nil {
		return nil, err
	}
	lat, err := strconv.ParseFloat(fields[9], 64)
	if err != nil {
		return nil, malformedErr(fmt.Errorf("latitude: %w", err))
	}
	lon, err := strconv.ParseFloat(fields[10], 64)
	if err != nil {
		return nil, malformedErr(fmt.Errorf("longitude: %w", err))
	}

	p := &model.Postcode{
		CountryCode: fields[0],
		PostalCode:  fields[1],
		PlaceName:   fields[2],
		Admin1Name:  fields[3],
		Admin1Code:  fields[4],
		Admin2Name:  fields[5],
		Admin2Code:  fields[6],
		Admin3Name:  fields[7],
		Admin3Code:  fields[8],
		Latitude:    lat,
		Longitude:   lon,
	}
	if len(fields) > 11 && fields[11] != "" {
		accuracy, err := strconv.Atoi(fields[11])
		if err != nil {
			return nil, malformedErr(fmt.Errorf("accuracy: %w", err))
		}
		p.Accuracy = &accuracy
	}
	return p, nil
}
