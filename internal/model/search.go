package model

// ProximityQuery describes a distance based locality search
type ProximityQuery struct {
	Latitude    float64
	Longitude   float64
	RadiusMiles float64
	// FeatureCodes restricts matches to these feature codes when not empty.
	FeatureCodes   []string
	Limit          int
	SortByDistance bool
	Scope          Scope
}

// ProximityMatch is a locality found by a proximity search
type ProximityMatch struct {
	GeonameID     int64   `db:"geonameid" json:"geonameid"`
	Name          string  `db:"name" json:"name"`
	LongName      string  `db:"long_name" json:"long_name"`
	CountryCode   string  `db:"country_code" json:"country_code"`
	FeatureCode   string  `db:"feature_code" json:"feature_code"`
	Population    int64   `db:"population" json:"population"`
	Latitude      float64 `db:"latitude" json:"latitude"`
	Longitude     float64 `db:"longitude" json:"longitude"`
	DistanceMiles float64 `db:"distance" json:"distance_miles"`
}

// IDs returns the geonameids of matches in order.
func IDs(matches []ProximityMatch) []int64 {
	ids := make([]int64, len(matches))
	for i, m := range matches {
		ids[i] = m.GeonameID
	}
	return ids
}
