// Package geo provides great-circle distance helpers.
package geo

import "math"

// earthRadiusMiles is the mean Earth radius in miles.
const earthRadiusMiles = 3959.0

// DistanceMiles returns the haversine distance in miles between two points.
// Callers must not pass NaN or out-of-range coordinates.
func DistanceMiles(lat1, lng1, lat2, lng2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180.0
	rlat2 := lat2 * math.Pi / 180.0
	dlat := (lat2 - lat1) * math.Pi / 180.0
	dlng := (lng2 - lng1) * math.Pi / 180.0

	h := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlng/2)*math.Sin(dlng/2)

	return 2 * earthRadiusMiles * math.Asin(math.Sqrt(h))
}
