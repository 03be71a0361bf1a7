// Package geo provides great-circle math for the straight-line ETA fallback.
package geo

import "math"

const earthRadiusMeters = 6371000

// HaversineMeters returns the great-circle distance in meters between two
// points given in degrees.
func HaversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// TravelSeconds estimates travel time over distanceMeters at a fixed average
// speed in km/h. Used only for the unrouted fallback estimate.
func TravelSeconds(distanceMeters, speedKmph float64) int {
	if speedKmph <= 0 {
		return 0
	}
	return int(distanceMeters / (speedKmph * 1000 / 3600))
}
