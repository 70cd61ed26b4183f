// Package importer loads the GeoNames dumps into the gazetteer tables.
//
// A load runs a fixed pipeline of stages inside one transaction. The first
// failing stage aborts the run and every change made by it is rolled back.
package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/alexivanou/georef/internal/config"
	"github.com/alexivanou/georef/internal/model"
	"github.com/alexivanou/georef/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Source files with a fixed name in the GeoNames dump
const (
	TimezonesFile = "timeZones.txt"
	LanguagesFile = "iso-languagecodes.txt"
	CountriesFile = "countryInfo.txt"
	Admin1File    = "admin1CodesASCII.txt"
	Admin2File    = "admin2Codes.txt"
)

const (
	defaultLocalityBatch = 10000
	defaultAltNameBatch  = 10000
	defaultPostcodeBatch = 20000
)

// Options tune a single load
type Options struct {
	// Force clears the GeoNames tables before loading. Without it the load
	// refuses to run on a non-empty database.
	Force bool
}

// Result summarizes a committed load
type Result struct {
	RunID uuid.UUID

	Timezones      int
	Languages      int
	Currencies     int
	Countries      int
	Postcodes      int
	Admin1         int
	Admin2         int
	Localities     int
	AlternateNames int

	SkippedLanguages      int
	SkippedPostcodes      int
	SkippedAdmin2         int
	SkippedAlternateNames int
	UnknownTimezones      int
	Admin2WithoutAdmin1   int

	RenamedLanguages    int
	SpacelessPostcodes  int
	BackfilledTimezones int
	DisabledCountries   int
	DisabledLocalities  int

	Elapsed time.Duration
}

// Importer runs GeoNames loads against a store
type Importer struct {
	store  *repository.Store
	cfg    config.LoaderConfig
	logger *zap.Logger
}

// New creates an importer reading the files of cfg.DataDir
func New(store *repository.Store, cfg config.LoaderConfig, logger *zap.Logger) *Importer {
	if cfg.LocalityBatchSize <= 0 {
		cfg.LocalityBatchSize = defaultLocalityBatch
	}
	if cfg.AltNameBatchSize <= 0 {
		cfg.AltNameBatchSize = defaultAltNameBatch
	}
	if cfg.PostcodeBatchSize <= 0 {
		cfg.PostcodeBatchSize = defaultPostcodeBatch
	}
	return &Importer{store: store, cfg: cfg, logger: logger}
}

// run is the state of one load. The admin index and the accepted locality
// ids are discarded with it.
type run struct {
	store  *repository.Store
	cfg    config.LoaderConfig
	logger *zap.Logger
	result *Result

	index       *AdminIndex
	timezones   map[string]struct{}
	localityIDs map[int64]struct{}
	// raw language lists of countryInfo.txt by country code
	countryLanguages map[string]string
}

type stage struct {
	name string
	fn   func(ctx context.Context, r *run) error
}

var pipeline = []stage{
	{"timezones", loadTimezones},
	{"languages", loadLanguages},
	{"countries", loadCountries},
	{"postcodes", loadPostcodes},
	{"admin1", loadAdmin1},
	{"admin2", loadAdmin2},
	{"localities", loadLocalities},
	{"timezone backfill", backfillTimezones},
	{"empty countries", disableEmptyCountries},
	{"duplicate localities", disableDuplicateLocalities},
	{"alternate names", loadAlternateNames},
	{"consistency check", checkConsistency},
	{"load log", logUpdate},
}

// Load runs the whole pipeline in one transaction. The emptiness check runs
// before any source file is opened.
func (im *Importer) Load(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()

	if !opts.Force {
		counts, err := im.store.Counts(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to check tables: %w", err)
		}
		existing := make(map[string]int64)
		for table, n := range counts {
			if n > 0 {
				existing[table] = n
			}
		}
		if len(existing) > 0 {
			return nil, &model.PreconditionError{Counts: existing}
		}
	}

	result := &Result{RunID: uuid.New()}
	logger := im.logger.With(zap.String("run_id", result.RunID.String()))

	err := im.store.InTx(ctx, func(tx *repository.Store) error {
		if opts.Force {
			logger.Info("Deleting data")
			if err := tx.Clear(ctx); err != nil {
				return err
			}
		}

		r := &run{
			store:            tx,
			cfg:              im.cfg,
			logger:           logger,
			result:           result,
			index:            NewAdminIndex(),
			timezones:        make(map[string]struct{}),
			localityIDs:      make(map[int64]struct{}),
			countryLanguages: make(map[string]string),
		}
		for _, st := range pipeline {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := st.fn(ctx, r); err != nil {
				return fmt.Errorf("%s: %w", st.name, err)
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("Load aborted", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return nil, err
	}

	result.Elapsed = time.Since(start)
	logger.Info("Load completed",
		zap.Int("localities", result.Localities),
		zap.Int("alternate_names", result.AlternateNames),
		zap.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

// batch collects rows and hands them to flush whenever size is reached.
type batch[T any] struct {
	rows  []T
	size  int
	flush func(rows []T) error
}

func newBatch[T any](size int, flush func(rows []T) error) *batch[T] {
	return &batch[T]{rows: make([]T, 0, size), size: size, flush: flush}
}

func (b *batch[T]) add(row T) error {
	b.rows = append(b.rows, row)
	if len(b.rows) >= b.size {
		return b.close()
	}
	return nil
}

// close flushes the remaining rows.
func (b *batch[T]) close() error {
	if len(b.rows) == 0 {
		return nil
	}
	if err := b.flush(b.rows); err != nil {
		return err
	}
	b.rows = b.rows[:0]
	return nil
}
