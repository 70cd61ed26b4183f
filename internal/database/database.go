package database

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sync"

	"github.com/alexivanou/georef/internal/config"
	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver for database/sql
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

// SQLiteDriverName is the go-sqlite3 driver registered with the math
// functions used by the Haversine search query.
const SQLiteDriverName = "sqlite3_geo"

var registerOnce sync.Once

func registerSQLite() {
	registerOnce.Do(func() {
		sql.Register(SQLiteDriverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				// foreign keys are a per-connection setting in SQLite
				if _, err := conn.Exec("PRAGMA foreign_keys = ON", nil); err != nil {
					return fmt.Errorf("failed to enable foreign keys: %w", err)
				}
				return registerMathFunctions(conn)
			},
		})
		sqlx.BindDriver(SQLiteDriverName, sqlx.QUESTION)
	})
}

func registerMathFunctions(conn *sqlite3.SQLiteConn) error {
	unary := map[string]func(float64) float64{
		"radians": func(d float64) float64 { return d * math.Pi / 180.0 },
		"degrees": func(r float64) float64 { return r * 180.0 / math.Pi },
		"sin":     math.Sin,
		"cos":     math.Cos,
		"asin":    math.Asin,
		"acos":    math.Acos,
		"sqrt":    math.Sqrt,
	}
	for name, fn := range unary {
		fn := fn
		impl := func(v interface{}) float64 { return fn(toFloat(v)) }
		if err := conn.RegisterFunc(name, impl, true); err != nil {
			return fmt.Errorf("failed to register %s: %w", name, err)
		}
	}
	power := func(x, y interface{}) float64 { return math.Pow(toFloat(x), toFloat(y)) }
	if err := conn.RegisterFunc("power", power, true); err != nil {
		return fmt.Errorf("failed to register power: %w", err)
	}
	return nil
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case nil:
		return math.NaN()
	}
	return math.NaN()
}

// Connect creates a database connection based on configuration using sqlx
func Connect(ctx context.Context, cfg config.DBConfig) (*sqlx.DB, error) {
	var driverName string

	if cfg.IsSQLite() {
		registerSQLite()
		driverName = SQLiteDriverName
	} else {
		driverName = "pgx"
	}

	db, err := sqlx.ConnectContext(ctx, driverName, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// A single connection keeps the in-memory database alive and avoids
	// shared-cache table locks between a load transaction and other readers.
	if cfg.IsSQLite() {
		db.SetMaxOpenConns(1)
	}

	return db, nil
}
