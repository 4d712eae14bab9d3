package geo

import (
	"math"
	"testing"

	"fleetload/internal/model"
)

func TestHaversineKm(t *testing.T) {
	a := model.GeoPoint{Lat: 19.4326, Lng: -99.1332} // CDMX
	b := model.GeoPoint{Lat: 20.6597, Lng: -103.3496} // GDL
	d := HaversineKm(a, b)
	if d < 450 || d > 480 {
		t.Fatalf("CDMX-GDL distance = %.1f km, want ~461", d)
	}
	if HaversineKm(a, a) != 0 {
		t.Fatalf("zero distance expected for identical points")
	}
	if math.Abs(HaversineKm(a, b)-HaversineKm(b, a)) > 1e-9 {
		t.Fatalf("haversine must be symmetric")
	}
}

func TestProxyDestination(t *testing.T) {
	depot := model.GeoPoint{Lat: 19.0, Lng: -99.0}
	p := ProxyDestination(depot, 100)
	got := HaversineKm(depot, p)
	if math.Abs(got-100) > 1.0 {
		t.Fatalf("proxy point at %.2f km from depot, want ~100", got)
	}
	if p.Lng != depot.Lng {
		t.Fatalf("proxy point should sit on the depot meridian")
	}
	if q := ProxyDestination(depot, -5); q != depot {
		t.Fatalf("negative distance should collapse to the depot, got %+v", q)
	}
}
