package importer

import (
	"context"
	"strconv"

	"github.com/alexivanou/georef/internal/model"
	"github.com/alexivanou/georef/internal/slug"
	"go.uber.org/zap"
)

// loadAlternateNames reads alternateNames.txt: 0 alternateNameId,
// 1 geonameid, 2 isolanguage, 3 alternate name. Names of localities that were
// not loaded are ignored, and a name repeated for the same locality is kept
// once.
func loadAlternateNames(ctx context.Context, r *run) error {
	r.logger.Info("Loading alternate names", zap.String("file", r.cfg.AltNamesFile))

	processed := 0
	known := make(map[int64]map[string]struct{})
	b := newBatch(r.cfg.AltNameBatchSize, func(rows []model.AlternateName) error {
		n, err := r.store.InsertAlternateNames(ctx, rows)
		if err != nil {
			return err
		}
		r.result.AlternateNames += int(n)
		r.logger.Info("Alternate names loaded", zap.Int("processed", processed))
		return nil
	})

	err := scanFile(r.cfg.DataDir, r.cfg.AltNamesFile, false, func(fields []string) error {
		if err := requireFields(fields, 4); err != nil {
			return err
		}
		localityID, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return malformed("geonameid %q: %v", fields[1], err)
		}
		if _, ok := r.localityIDs[localityID]; !ok {
			return nil
		}

		name := fields[3]
		names, ok := known[localityID]
		if !ok {
			names = make(map[string]struct{})
			known[localityID] = names
		}
		if _, dup := names[name]; dup {
			r.result.SkippedAlternateNames++
			return nil
		}

		id, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return malformed("alternateNameId %q: %v", fields[0], err)
		}
		names[name] = struct{}{}
		processed++
		return b.add(model.AlternateName{ID: id, LocalityID: localityID, Name: name, NameFolded: slug.Fold(name)})
	})
	if err != nil {
		return err
	}
	if err := b.close(); err != nil {
		return err
	}

	r.logger.Info("Alternate names loaded",
		zap.Int("processed", processed),
		zap.Int("inserted", r.result.AlternateNames),
		zap.Int("skipped_duplicated", r.result.SkippedAlternateNames),
	)
	return nil
}
