package model

// NearbyRequest represents the request parameters for a proximity search
type NearbyRequest struct {
	Lat            float64
	Lon            float64
	RadiusMiles    float64
	Limit          int
	SortByDistance bool
	FeatureCodes   []string
}

// NearbyResponse represents the response for a proximity search
type NearbyResponse struct {
	Strategy string           `json:"strategy"`
	Request  Coordinate       `json:"request_coordinates"`
	Radius   float64          `json:"radius_miles"`
	Results  []ProximityMatch `json:"results"`
}

// Coordinate represents geographic coordinates
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// LocalitiesResponse represents the localities matching a name
type LocalitiesResponse struct {
	Results []Locality `json:"results"`
}

// Admin1Response lists the first-level divisions of a country
type Admin1Response struct {
	Country Country      `json:"country"`
	Results []Admin1Code `json:"results"`
}

// Admin2Response lists the second-level divisions of an admin1
type Admin2Response struct {
	Admin1  Admin1Code   `json:"admin1"`
	Results []Admin2Code `json:"results"`
}

// PostcodesResponse lists the places of a postal code
type PostcodesResponse struct {
	Results []Postcode `json:"results"`
}

// RebuildResult counts the rows touched by a rebuild of derived data
type RebuildResult struct {
	Localities int   `json:"localities"`
	Admin2     int   `json:"admin2"`
	Postcodes  int64 `json:"postcodes"`
}
