package repository

import (
	"context"
	"fmt"

	"github.com/alexivanou/georef/internal/config"
	"github.com/alexivanou/georef/internal/geo"
	"github.com/alexivanou/georef/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// GeoTables lists the tables filled by a GeoNames load in dependency order.
var GeoTables = []string{
	"timezones",
	"languages",
	"currencies",
	"countries",
	"country_languages",
	"postcodes",
	"admin1_codes",
	"admin2_codes",
	"localities",
	"alternate_names",
}

// LocalityRepository defines operations for localities
type LocalityRepository interface {
	GetLocality(ctx context.Context, id int64, scope model.Scope) (*model.Locality, error)
	FindLocalitiesByName(ctx context.Context, countryCode, name string, scope model.Scope) ([]model.Locality, error)
	LocalitiesByAdmin1(ctx context.Context, admin1ID int64) ([]model.Locality, error)
	LocalitiesByAdmin2(ctx context.Context, admin2ID int64) ([]model.Locality, error)
	LocalitiesAfter(ctx context.Context, afterID int64, limit int) ([]model.Locality, error)
	LongNameTaken(ctx context.Context, countryCode, longName string, exceptID int64) (bool, error)
	UpdateLocality(ctx context.Context, l *model.Locality) error
	UpdateLocalityDerived(ctx context.Context, l *model.Locality) error
}

// AdminRepository defines operations for countries and administrative divisions
type AdminRepository interface {
	GetCountry(ctx context.Context, code string, scope model.Scope) (*model.Country, error)
	ListCountries(ctx context.Context, scope model.Scope) ([]model.Country, error)
	GetAdmin1(ctx context.Context, id int64) (*model.Admin1Code, error)
	GetAdmin2(ctx context.Context, id int64) (*model.Admin2Code, error)
	ListAdmin1(ctx context.Context, countryCode string) ([]model.Admin1Code, error)
	ListAdmin2(ctx context.Context, admin1ID int64) ([]model.Admin2Code, error)
	ListAllAdmin2(ctx context.Context) ([]model.Admin2Code, error)
	UpdateAdmin1(ctx context.Context, a *model.Admin1Code) error
	UpdateAdmin2(ctx context.Context, a *model.Admin2Code) error
}

// PostcodeRepository defines operations for postcodes
type PostcodeRepository interface {
	FindPostcodes(ctx context.Context, countryCode, postalCode string) ([]model.Postcode, error)
	RemovePostcodeSpaces(ctx context.Context, countryCodes []string) (int64, error)
}

// Repository is the storage surface used by the service layer
type Repository interface {
	LocalityRepository
	AdminRepository
	PostcodeRepository
	LatestUpdate(ctx context.Context) (*model.GeonamesUpdate, error)
	// WithTx runs fn inside one transaction.
	WithTx(ctx context.Context, fn func(Repository) error) error
}

// Store implements every repository on top of sqlx. It runs either on the
// database handle or on a transaction opened by InTx.
type Store struct {
	db      sqlx.ExtContext
	dialect dialect
}

var _ Repository = (*Store)(nil)

// NewStore creates a store for the given DB type
func NewStore(db *sqlx.DB, dbType config.DBType) *Store {
	if dbType == config.DBTypePostgreSQL {
		return &Store{db: db, dialect: postgresDialect}
	}

	// Default to SQLite
	return &Store{db: db, dialect: sqliteDialect}
}

// InTx runs fn with a store bound to a new transaction, committing when fn
// returns nil and rolling back otherwise. A store already inside a
// transaction calls fn directly.
func (s *Store) InTx(ctx context.Context, fn func(*Store) error) error {
	db, ok := s.db.(*sqlx.DB)
	if !ok {
		return fn(s)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(&Store{db: tx, dialect: s.dialect}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// WithTx implements Repository.
func (s *Store) WithTx(ctx context.Context, fn func(Repository) error) error {
	return s.InTx(ctx, func(tx *Store) error { return fn(tx) })
}

// Counts returns the row count of every GeoNames table.
func (s *Store) Counts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, len(GeoTables))
	for _, table := range GeoTables {
		var n int64
		if err := sqlx.GetContext(ctx, s.db, &n, "SELECT COUNT(*) FROM "+pq.QuoteIdentifier(table)); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// IsEmpty reports whether every GeoNames table is empty. Missing tables are an error.
func (s *Store) IsEmpty(ctx context.Context) (bool, error) {
	counts, err := s.Counts(ctx)
	if err != nil {
		return false, err
	}
	for _, n := range counts {
		if n > 0 {
			return false, nil
		}
	}
	return true, nil
}

// Clear deletes every row of the GeoNames tables, children first.
func (s *Store) Clear(ctx context.Context) error {
	for i := len(GeoTables) - 1; i >= 0; i-- {
		table := GeoTables[i]
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+pq.QuoteIdentifier(table)); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

// bulkInsert runs a named multi-row insert, splitting rows so that a single
// statement never exceeds the bind parameter limit of the database.
func bulkInsert[T any](ctx context.Context, s *Store, query string, columns int, rows []T) (int64, error) {
	chunkSize := s.dialect.maxParams / columns
	var inserted int64
	for i := 0; i < len(rows); i += chunkSize {
		end := min(i+chunkSize, len(rows))
		res, err := sqlx.NamedExecContext(ctx, s.db, query, rows[i:end])
		if err != nil {
			return inserted, err
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += n
		}
	}
	return inserted, nil
}

// selectIn expands slice arguments into IN lists and rebinds for the driver.
func (s *Store) selectIn(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	q, expanded, err := sqlx.In(query, args...)
	if err != nil {
		return err
	}
	return sqlx.SelectContext(ctx, s.db, dest, s.db.Rebind(q), expanded...)
}

func (s *Store) execIn(ctx context.Context, query string, args ...interface{}) (int64, error) {
	q, expanded, err := sqlx.In(query, args...)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(q), expanded...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// dialect holds the SQL differences between the supported databases
type dialect struct {
	name string
	// maxParams is the number of bind parameters one statement may carry.
	maxParams int
	// distanceExpr computes the great-circle distance in miles from the
	// latitude and longitude columns to a bound point.
	distanceExpr string
	mathProbe    string
}

func scopeClause(scope model.Scope, alias string) string {
	if scope == model.ScopeIncludingDisabled {
		return ""
	}
	return " AND " + alias + "enabled = TRUE"
}

func boxArgs(box geo.BoundingBox) []interface{} {
	return []interface{}{box.MinLat, box.MaxLat, box.MinLon, box.MaxLon}
}
