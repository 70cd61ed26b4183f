// Package geo holds the spherical math used by the proximity search.
package geo

import "math"

const (
	// EarthRadiusMiles is the mean earth radius used by every distance computation.
	EarthRadiusMiles = 3959.0
	// KmToMiles converts kilometres to miles.
	KmToMiles = 0.621371192

	degreesToRadians = math.Pi / 180.0
)

// BoundingBox is an axis-aligned rectangle in decimal degrees.
type BoundingBox struct {
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}

// NewBoundingBox approximates the circle of radiusMiles around (lat, lon) with a
// rectangle. It treats the earth as a sphere and does not wrap at the antimeridian.
// Close to the poles cos(lat) tends to zero and the longitude span grows without
// bound; callers get that box as is.
func NewBoundingBox(lat, lon, radiusMiles float64) BoundingBox {
	diffLat := Degrees(radiusMiles / EarthRadiusMiles)
	diffLon := diffLat / math.Cos(Radians(lat))
	return BoundingBox{
		MinLat: lat - diffLat,
		MinLon: lon - diffLon,
		MaxLat: lat + diffLat,
		MaxLon: lon + diffLon,
	}
}

// Contains reports whether the point lies inside the box, edges included.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// GreatCircleDistanceMiles returns the distance between two points using the
// spherical law of cosines.
func GreatCircleDistanceMiles(lat1, lon1, lat2, lon2 float64) float64 {
	// phi = 90 - latitude, theta = longitude
	phi1 := (90.0 - lat1) * degreesToRadians
	phi2 := (90.0 - lat2) * degreesToRadians
	theta1 := lon1 * degreesToRadians
	theta2 := lon2 * degreesToRadians

	cosine := math.Sin(phi1)*math.Sin(phi2)*math.Cos(theta1-theta2) + math.Cos(phi1)*math.Cos(phi2)
	// rounding keeps acos inside its domain when the points coincide
	cosine = roundTo(cosine, 14)

	return math.Acos(cosine) * EarthRadiusMiles
}

// HaversineDistanceMiles is the haversine form of the same distance. It is the
// formula the SQL search strategy evaluates inside the query.
func HaversineDistanceMiles(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := Radians(lat2 - lat1)
	dLon := Radians(lon2 - lon1)
	a := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(Radians(lat1))*math.Cos(Radians(lat2))*math.Pow(math.Sin(dLon/2), 2)
	return 2 * EarthRadiusMiles * math.Asin(math.Sqrt(math.Min(1.0, a)))
}

// Radians converts degrees to radians.
func Radians(d float64) float64 {
	return d * degreesToRadians
}

// Degrees converts radians to degrees.
func Degrees(r float64) float64 {
	return r / degreesToRadians
}

func roundTo(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
