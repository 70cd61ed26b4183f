package model

import (
	"errors"
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateLongName(t *testing.T) {
	tests := []struct {
		name     string
		locality string
		admin2   string
		admin1   string
		expected string
	}{
		{"admin1 only", "Apia", "", "Upolu", "Apia, Upolu"},
		{"both levels", "X", "Y", "Z", "X, Y, Z"},
		{"no levels", "X", "", "", "X"},
		{"admin2 only", "X", "Y", "", "X, Y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GenerateLongName(tt.locality, tt.admin2, tt.admin1))
		})
	}
}

func TestNewAdmin2Code(t *testing.T) {
	scotland := &Admin1Code{GeonameID: 2638360, Code: "SCT", Name: "Scotland", CountryCode: "GB"}

	t.Run("same country", func(t *testing.T) {
		a, err := NewAdmin2Code(2657830, "T5", "Aberdeen City", "GB", scotland)
		require.NoError(t, err)
		require.NotNil(t, a.Admin1ID)
		assert.Equal(t, int64(2638360), *a.Admin1ID)
		assert.Equal(t, "aberdeen", a.Slug)
	})

	t.Run("no admin1", func(t *testing.T) {
		a, err := NewAdmin2Code(1, "X", "Somewhere", "GB", nil)
		require.NoError(t, err)
		assert.Nil(t, a.Admin1ID)
	})

	t.Run("admin1 from another country", func(t *testing.T) {
		a, err := NewAdmin2Code(1, "X", "Somewhere", "IE", scotland)
		assert.Nil(t, a)
		var ce *ConsistencyError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, "admin2", ce.Entity)
		assert.Equal(t, int64(1), ce.ID)
	})
}

func TestLocality_Attach(t *testing.T) {
	admin1 := &Admin1Code{GeonameID: 10, Name: "Missouri", CountryCode: "US"}
	admin2 := &Admin2Code{GeonameID: 20, Name: "Greene", CountryCode: "US"}

	t.Run("derives long name and slug", func(t *testing.T) {
		l := &Locality{GeonameID: 1, Name: "Springfield", CountryCode: "US"}
		require.NoError(t, l.Attach(admin1, admin2))
		assert.Equal(t, "Springfield, Greene, Missouri", l.LongName)
		assert.Equal(t, "springfield-greene-missouri", l.Slug)
		assert.Equal(t, "springfield", l.NameFolded)
		assert.Equal(t, int64(10), *l.Admin1ID)
		assert.Equal(t, int64(20), *l.Admin2ID)
	})

	t.Run("detaching clears ids", func(t *testing.T) {
		l := &Locality{GeonameID: 1, Name: "Springfield", CountryCode: "US"}
		require.NoError(t, l.Attach(admin1, admin2))
		require.NoError(t, l.Attach(nil, nil))
		assert.Nil(t, l.Admin1ID)
		assert.Nil(t, l.Admin2ID)
		assert.Equal(t, "Springfield", l.LongName)
	})

	t.Run("admin1 from another country", func(t *testing.T) {
		l := &Locality{GeonameID: 1, Name: "Springfield", CountryCode: "CA"}
		var ce *ConsistencyError
		assert.ErrorAs(t, l.Attach(admin1, nil), &ce)
	})

	t.Run("admin2 from another country", func(t *testing.T) {
		l := &Locality{GeonameID: 1, Name: "Springfield", CountryCode: "CA"}
		var ce *ConsistencyError
		assert.ErrorAs(t, l.Attach(nil, admin2), &ce)
	})
}

func TestTimezone_String(t *testing.T) {
	tests := []struct {
		name   string
		offset string
		want   string
	}{
		{"Asia/Kathmandu", "5.75", "(UTC+05:45) Asia/Kathmandu"},
		{"America/St_Johns", "-3.5", "(UTC-03:30) America/St_Johns"},
		{"Europe/London", "0.0", "(UTC+00:00) Europe/London"},
		{"Pacific/Kiritimati", "14.0", "(UTC+14:00) Pacific/Kiritimati"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _, err := apd.NewFromString(tt.offset)
			require.NoError(t, err)
			tz := Timezone{Name: tt.name, GMTOffset: *d}
			assert.Equal(t, tt.want, tz.String())
		})
	}
}

func TestIsCityFeatureCode(t *testing.T) {
	assert.True(t, IsCityFeatureCode("PPL"))
	assert.True(t, IsCityFeatureCode("PPLC"))
	assert.False(t, IsCityFeatureCode("PPLX"))
	assert.False(t, IsCityFeatureCode("ADM1"))
}

func TestErrors(t *testing.T) {
	pe := &ParseError{File: "cities500.txt", Line: 3, Content: "bad", Err: errors.New("boom")}
	assert.Contains(t, pe.Error(), "cities500.txt line 3")
	assert.ErrorIs(t, pe, pe.Err)

	pre := &PreconditionError{Counts: map[string]int64{"localities": 2, "countries": 1}}
	assert.Equal(t, "database is not empty: countries=1, localities=2", pre.Error())
}
