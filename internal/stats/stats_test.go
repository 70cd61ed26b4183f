package stats

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alexivanou/georef/internal/config"
	"github.com/alexivanou/georef/internal/database"
	"github.com/alexivanou/georef/internal/repository"
	"github.com/alexivanou/georef/migrations"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sqlx.DB {
	cfg := config.DBConfig{Type: config.DBTypeMemory, Name: strings.ReplaceAll(t.Name(), "/", "_")}
	db, err := database.Connect(context.Background(), cfg)
	require.NoError(t, err)

	require.NoError(t, migrations.Up(db.DB, config.DBTypeMemory))
	return db
}

func tableRows(s *Stats, name string) int64 {
	for _, ts := range s.Database.TableStats {
		if ts.Name == name {
			return ts.RowCount
		}
	}
	return -1
}

func TestCollector_Collect(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	for _, q := range []string{
		"INSERT INTO currencies (code, name) VALUES ('GBP', 'Pound')",
		"INSERT INTO countries (code, name, currency_code, enabled) VALUES ('GB', 'United Kingdom', 'GBP', TRUE)",
		"INSERT INTO countries (code, name, currency_code, enabled) VALUES ('FR', 'France', 'GBP', FALSE)",
		`INSERT INTO localities (geonameid, name, name_folded, long_name, slug, country_code, feature_code,
			population, latitude, longitude, modification_date, enabled)
			VALUES (1, 'Aberdeen', 'aberdeen', 'Aberdeen', 'aberdeen', 'GB', 'PPL', 1000, 57.1, -2.1, '2020-01-02', TRUE)`,
		`INSERT INTO localities (geonameid, name, name_folded, long_name, slug, country_code, feature_code,
			population, latitude, longitude, modification_date, enabled)
			VALUES (2, 'Aberdeen', 'aberdeen', 'Aberdeen', 'aberdeen', 'GB', 'PPL', 10, 57.2, -2.2, '2020-01-02', FALSE)`,
	} {
		_, err := db.ExecContext(ctx, q)
		require.NoError(t, err)
	}
	_, err := db.ExecContext(ctx,
		"INSERT INTO geonames_updates (id, updated_at, localities, alternate_names) VALUES (?, ?, 2, 0)",
		"6f1c1b8e-2f1e-4c55-9d3b-1d2c3b4a5e6f", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	cfg := config.DBConfig{Type: config.DBTypeMemory}
	collector := NewCollector(db, cfg)

	stats, err := collector.Collect(ctx)
	require.NoError(t, err)

	assert.Equal(t, "memory", stats.Database.Type)
	assert.Len(t, stats.Database.TableStats, len(Tables))
	assert.Equal(t, int64(2), tableRows(stats, "localities"))
	assert.Equal(t, int64(2), tableRows(stats, "countries"))
	assert.Equal(t, int64(6), stats.Database.TotalRecords)

	assert.Equal(t, int64(1), stats.Gazetteer.EnabledCountries)
	assert.Equal(t, int64(1), stats.Gazetteer.EnabledLocalities)
	assert.Equal(t, int64(1), stats.Gazetteer.DisabledLocalities)
	assert.Equal(t, int64(2), stats.Gazetteer.MissingTimezones)
	require.NotNil(t, stats.Gazetteer.LatestUpdate)
	assert.Equal(t, 2, stats.Gazetteer.LatestUpdate.Localities)
	assert.Equal(t, "6f1c1b8e-2f1e-4c55-9d3b-1d2c3b4a5e6f", stats.Gazetteer.LatestUpdate.ID.String())

	assert.Greater(t, stats.Memory.Alloc, uint64(0))
	assert.GreaterOrEqual(t, stats.Runtime.NumGoroutines, 1)

	stats2, err := collector.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, stats.Memory.Alloc, stats2.Memory.Alloc)
}

func TestCollector_EmptyDB(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	cfg := config.DBConfig{Type: config.DBTypeMemory}
	collector := NewCollector(db, cfg)

	stats, err := collector.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(0), stats.Database.TotalRecords)
	assert.Nil(t, stats.Gazetteer.LatestUpdate)
}

func TestTables_CoverGeoTables(t *testing.T) {
	assert.Subset(t, Tables, repository.GeoTables)
	assert.Equal(t, "geonames_updates", Tables[len(Tables)-1])
	assert.Len(t, Tables, len(repository.GeoTables)+1)
}
