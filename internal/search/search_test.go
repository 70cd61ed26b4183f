package search

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/alexivanou/georef/internal/config"
	"github.com/alexivanou/georef/internal/database"
	"github.com/alexivanou/georef/internal/geo"
	"github.com/alexivanou/georef/internal/model"
	"github.com/alexivanou/georef/internal/repository"
	"github.com/alexivanou/georef/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T, localities []model.Locality) *repository.Store {
	cfg := config.DBConfig{Type: config.DBTypeMemory, Name: strings.ReplaceAll(t.Name(), "/", "_")}
	db, err := database.Connect(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Up(db.DB, config.DBTypeMemory))

	ctx := context.Background()
	s := repository.NewStore(db, config.DBTypeMemory)
	require.NoError(t, s.InsertCurrencies(ctx, []model.Currency{{Code: "GBP", Name: "Pound"}}))
	require.NoError(t, s.InsertCountries(ctx, []model.Country{{Code: "GB", Name: "United Kingdom", CurrencyCode: "GBP", Enabled: true}}))
	_, err = s.InsertLocalities(ctx, localities)
	require.NoError(t, err)
	return s
}

func locality(id int64, name string, lat, lon float64) model.Locality {
	l := model.Locality{
		GeonameID:        id,
		Name:             name,
		CountryCode:      "GB",
		FeatureCode:      "PPL",
		Population:       id * 100,
		Latitude:         lat,
		Longitude:        lon,
		ModificationDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Enabled:          true,
	}
	_ = l.Attach(nil, nil)
	return l
}

func strategies(t *testing.T, f Finder) []Strategy {
	var all []Strategy
	for _, name := range []config.SearchStrategy{config.SearchStrategyGeometry, config.SearchStrategyCompute, config.SearchStrategySQL} {
		s, err := New(context.Background(), name, f)
		require.NoError(t, err)
		all = append(all, s)
	}
	return all
}

func TestStrategies_AgreeOnMembership(t *testing.T) {
	// distances from the query point: 0, ~19.9 and ~20.6 miles
	store := setupStore(t, []model.Locality{
		locality(1, "Aberdeen", 57.15, -2.10),
		locality(2, "Near", 57.32, -2.53),
		locality(3, "Far", 57.33, -2.54),
	})
	q := model.ProximityQuery{Latitude: 57.15, Longitude: -2.10, RadiusMiles: 20}

	for _, s := range strategies(t, store) {
		t.Run(s.Name(), func(t *testing.T) {
			matches, err := s.Nearby(context.Background(), q)
			require.NoError(t, err)
			assert.ElementsMatch(t, []int64{1, 2}, model.IDs(matches))
			for _, m := range matches {
				want := geo.GreatCircleDistanceMiles(q.Latitude, q.Longitude, m.Latitude, m.Longitude)
				assert.InDelta(t, want, m.DistanceMiles, 1e-6)
			}
		})
	}
}

func TestStrategies_AgreeOnRandomPoints(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var localities []model.Locality
	for i := int64(1); i <= 300; i++ {
		localities = append(localities, locality(i, "P", 50+rng.Float64()*2, -3+rng.Float64()*4))
	}
	store := setupStore(t, localities)
	ctx := context.Background()
	all := strategies(t, store)

	checked := 0
queries:
	for i := 0; i < 20; i++ {
		q := model.ProximityQuery{
			Latitude:       50.5 + rng.Float64(),
			Longitude:      -2 + rng.Float64()*2,
			RadiusMiles:    5 + rng.Float64()*40,
			SortByDistance: true,
		}

		var want []int64
		for _, l := range localities {
			d := geo.GreatCircleDistanceMiles(q.Latitude, q.Longitude, l.Latitude, l.Longitude)
			// points on the circle itself may fall either way
			if d < q.RadiusMiles-1e-6 {
				want = append(want, l.GeonameID)
			} else if d <= q.RadiusMiles+1e-6 {
				continue queries
			}
		}
		checked++

		for _, s := range all {
			matches, err := s.Nearby(ctx, q)
			require.NoError(t, err)
			assert.ElementsMatch(t, want, model.IDs(matches), s.Name())
			for j := 1; j < len(matches); j++ {
				assert.LessOrEqual(t, matches[j-1].DistanceMiles, matches[j].DistanceMiles+1e-9, s.Name())
			}
		}
	}
	assert.Greater(t, checked, 0)
}

func TestStrategies_SortAndLimit(t *testing.T) {
	store := setupStore(t, []model.Locality{
		locality(1, "Far", 57.30, -2.10),
		locality(2, "Middle", 57.20, -2.10),
		locality(3, "Near", 57.16, -2.10),
		locality(4, "Other", 57.15, -2.12),
	})
	ctx := context.Background()

	for _, s := range strategies(t, store) {
		t.Run(s.Name(), func(t *testing.T) {
			q := model.ProximityQuery{Latitude: 57.15, Longitude: -2.10, RadiusMiles: 15, SortByDistance: true}
			matches, err := s.Nearby(ctx, q)
			require.NoError(t, err)
			assert.Equal(t, []int64{3, 4, 2, 1}, model.IDs(matches))

			q.Limit = 2
			matches, err = s.Nearby(ctx, q)
			require.NoError(t, err)
			assert.Equal(t, []int64{3, 4}, model.IDs(matches))

			q.SortByDistance = false
			matches, err = s.Nearby(ctx, q)
			require.NoError(t, err)
			assert.Equal(t, []int64{1, 2}, model.IDs(matches))
		})
	}
}

func TestStrategies_FeatureCodesAndScope(t *testing.T) {
	capital := locality(1, "Capital", 57.15, -2.10)
	capital.FeatureCode = "PPLC"
	hidden := locality(2, "Hidden", 57.16, -2.10)
	hidden.Enabled = false
	store := setupStore(t, []model.Locality{capital, hidden, locality(3, "Village", 57.17, -2.10)})
	ctx := context.Background()

	for _, s := range strategies(t, store) {
		t.Run(s.Name(), func(t *testing.T) {
			q := model.ProximityQuery{Latitude: 57.15, Longitude: -2.10, RadiusMiles: 5}
			matches, err := s.Nearby(ctx, q)
			require.NoError(t, err)
			assert.Equal(t, []int64{1, 3}, model.IDs(matches))

			q.Scope = model.ScopeIncludingDisabled
			matches, err = s.Nearby(ctx, q)
			require.NoError(t, err)
			assert.Equal(t, []int64{1, 2, 3}, model.IDs(matches))

			q.FeatureCodes = []string{"PPLC"}
			matches, err = s.Nearby(ctx, q)
			require.NoError(t, err)
			assert.Equal(t, []int64{1}, model.IDs(matches))
		})
	}
}

func TestStrategies_RejectInvalidQuery(t *testing.T) {
	store := setupStore(t, nil)
	for _, s := range strategies(t, store) {
		_, err := s.Nearby(context.Background(), model.ProximityQuery{Latitude: 91, RadiusMiles: 1})
		assert.Error(t, err, s.Name())
		_, err = s.Nearby(context.Background(), model.ProximityQuery{RadiusMiles: -1})
		assert.Error(t, err, s.Name())
		_, err = s.Nearby(context.Background(), model.ProximityQuery{Latitude: math.NaN(), RadiusMiles: 1})
		assert.Error(t, err, s.Name())
		_, err = s.Nearby(context.Background(), model.ProximityQuery{RadiusMiles: math.Inf(1)})
		assert.Error(t, err, s.Name())
	}
}

type MockFinder struct {
	mock.Mock
}

func (m *MockFinder) LocalitiesInBox(ctx context.Context, box geo.BoundingBox, q model.ProximityQuery) ([]model.ProximityMatch, error) {
	args := m.Called(ctx, box, q)
	return args.Get(0).([]model.ProximityMatch), args.Error(1)
}

func (m *MockFinder) LocalitiesWithinRadius(ctx context.Context, box geo.BoundingBox, q model.ProximityQuery) ([]model.ProximityMatch, error) {
	args := m.Called(ctx, box, q)
	return args.Get(0).([]model.ProximityMatch), args.Error(1)
}

func (m *MockFinder) SupportsMathFunctions(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("auto with math functions", func(t *testing.T) {
		f := new(MockFinder)
		f.On("SupportsMathFunctions", ctx).Return(true)
		s, err := New(ctx, config.SearchStrategyAuto, f)
		require.NoError(t, err)
		assert.Equal(t, "sql", s.Name())
	})

	t.Run("auto without math functions", func(t *testing.T) {
		f := new(MockFinder)
		f.On("SupportsMathFunctions", ctx).Return(false)
		s, err := New(ctx, config.SearchStrategyAuto, f)
		require.NoError(t, err)
		assert.Equal(t, "compute", s.Name())
	})

	t.Run("sql without math functions", func(t *testing.T) {
		f := new(MockFinder)
		f.On("SupportsMathFunctions", ctx).Return(false)
		_, err := New(ctx, config.SearchStrategySQL, f)
		assert.Error(t, err)
	})

	t.Run("geometry", func(t *testing.T) {
		s, err := New(ctx, config.SearchStrategyGeometry, new(MockFinder))
		require.NoError(t, err)
		assert.Equal(t, "geometry", s.Name())
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := New(ctx, "rtree", new(MockFinder))
		assert.Error(t, err)
	})
}

func TestComputeStrategy_UsesBoundingBox(t *testing.T) {
	ctx := context.Background()
	q := model.ProximityQuery{Latitude: 57.15, Longitude: -2.10, RadiusMiles: 20}
	box := geo.NewBoundingBox(q.Latitude, q.Longitude, q.RadiusMiles)

	f := new(MockFinder)
	f.On("LocalitiesInBox", ctx, box, q).Return([]model.ProximityMatch{
		{GeonameID: 1, Latitude: 57.15, Longitude: -2.10},
		// inside the box corner but outside the circle
		{GeonameID: 2, Latitude: box.MaxLat - 0.01, Longitude: box.MaxLon - 0.01},
	}, nil)

	matches, err := (&ComputeStrategy{finder: f}).Nearby(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, model.IDs(matches))
	f.AssertExpectations(t)
}
