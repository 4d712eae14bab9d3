package geo

import (
	"math"

	"fleetload/internal/model"
)

const (
	earthRadiusKm = 6371.0
	// Mean km per degree of latitude; good enough for proxy points near the depot.
	kmPerDegreeLat = 110.574
)

// HaversineKm returns the great-circle distance between two points in km.
// Deterministic for the same inputs, which the optimizer relies on.
func HaversineKm(a, b model.GeoPoint) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

// ProxyDestination synthesizes a stand-in destination for a trip that has no
// geocoded coordinates: a point due north of the depot at the trip's planned
// distance. Keeps distance matrices well-formed; degrades optimization
// quality, not correctness.
func ProxyDestination(depot model.GeoPoint, distanceKm float64) model.GeoPoint {
	if distanceKm < 0 {
		distanceKm = 0
	}
	return model.GeoPoint{Lat: depot.Lat + distanceKm/kmPerDegreeLat, Lng: depot.Lng}
}
