package importer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alexivanou/georef/internal/model"
	"github.com/alexivanou/georef/internal/repository"
	"go.uber.org/zap"
)

var backfillLevels = []repository.SiblingLevel{
	repository.SameAdmin2,
	repository.SameAdmin1,
	repository.SameCountry,
}

// backfillTimezones gives every locality without a timezone the one of the
// most populated sibling in its admin2, else admin1, else country. Localities
// are handled in geonameid order so a filled locality can serve the next.
func backfillTimezones(ctx context.Context, r *run) error {
	r.logger.Info("Filling missed timezones in localities")

	missing, err := r.store.LocalitiesWithoutTimezone(ctx)
	if err != nil {
		return err
	}

	for i := range missing {
		l := &missing[i]
		var tz string
		for _, level := range backfillLevels {
			tz, err = r.store.SiblingTimezone(ctx, l, level)
			if err != nil {
				return err
			}
			if tz != "" {
				break
			}
		}
		if tz == "" {
			return &model.ReconciliationError{LocalityID: l.GeonameID, LongName: l.LongName}
		}
		if err := r.store.SetLocalityTimezone(ctx, l.GeonameID, tz); err != nil {
			return err
		}
		r.result.BackfilledTimezones++
	}

	r.logger.Info("Timezones filled", zap.Int("count", r.result.BackfilledTimezones))
	return nil
}

func disableEmptyCountries(ctx context.Context, r *run) error {
	r.logger.Info("Disabling empty countries")

	n, err := r.store.DisableEmptyCountries(ctx)
	if err != nil {
		return err
	}
	r.result.DisabledCountries = int(n)
	r.logger.Info("Countries disabled", zap.Int64("count", n))
	return nil
}

func disableDuplicateLocalities(ctx context.Context, r *run) error {
	r.logger.Info("Disabling duplicated localities")

	n, err := r.store.DisableDuplicateLocalities(ctx)
	if err != nil {
		return err
	}
	r.result.DisabledLocalities = int(n)
	r.logger.Info("Localities disabled", zap.Int64("count", n))
	return nil
}

// checkConsistency verifies the loaded data before commit.
func checkConsistency(ctx context.Context, r *run) error {
	r.logger.Info("Checking errors")

	empty, err := r.store.EnabledCountriesWithoutLocalities(ctx)
	if err != nil {
		return err
	}
	if len(empty) > 0 {
		return &model.ConsistencyError{
			Entity: "country",
			Reason: "enabled countries without localities: " + strings.Join(empty, ", "),
		}
	}

	missing, err := r.store.CountLocalitiesWithoutTimezone(ctx)
	if err != nil {
		return err
	}
	if missing > 0 {
		return &model.ConsistencyError{
			Entity: "locality",
			Reason: fmt.Sprintf("%d localities without timezone", missing),
		}
	}

	dups, err := r.store.DuplicateLongNames(ctx)
	if err != nil {
		return err
	}
	if len(dups) > 0 {
		d := dups[0]
		return &model.ConsistencyError{
			Entity: "locality",
			Reason: fmt.Sprintf("%d duplicated long names, first %q in %s", len(dups), d.LongName, d.CountryCode),
		}
	}
	return nil
}

func logUpdate(ctx context.Context, r *run) error {
	return r.store.InsertUpdate(ctx, &model.GeonamesUpdate{
		ID:             r.result.RunID,
		UpdatedAt:      time.Now().UTC(),
		Localities:     r.result.Localities,
		AlternateNames: r.result.AlternateNames,
	})
}
