package directions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"fleetload/internal/model"
)

func TestRouteDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/route" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"routes":[{"distanceMeters":12500,"durationSeconds":900,"polyline":"abc"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 100)
	got, err := c.Route(context.Background(), model.GeoPoint{Lat: 1, Lng: 2}, model.GeoPoint{Lat: 3, Lng: 4})
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if got.DistanceKm != 12.5 || got.DurationMin != 15 || got.Polyline != "abc" {
		t.Fatalf("got %+v", got)
	}
}

func TestRouteKeepsFractionalMinutes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"routes":[{"distanceMeters":800,"durationSeconds":90}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 100)
	got, err := c.Route(context.Background(), model.GeoPoint{}, model.GeoPoint{Lat: 1})
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if got.DurationMin != 1.5 {
		t.Fatalf("90s should be 1.5 min, got %v", got.DurationMin)
	}
}

func TestRouteRetriesTransientFailure(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"routes":[{"distanceMeters":1000,"durationSeconds":60}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 100)
	got, err := c.Route(context.Background(), model.GeoPoint{}, model.GeoPoint{Lat: 1})
	if err != nil {
		t.Fatalf("route after retry: %v", err)
	}
	if attempts != 2 || got.DistanceKm != 1 {
		t.Fatalf("attempts=%d result=%+v", attempts, got)
	}
}

func TestRouteDoesNotRetryClientError(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 100)
	if _, err := c.Route(context.Background(), model.GeoPoint{}, model.GeoPoint{}); err == nil {
		t.Fatalf("expected error")
	}
	if attempts != 1 {
		t.Fatalf("4xx must not be retried, got %d attempts", attempts)
	}
}

type mapCache struct {
	mu sync.Mutex
	m  map[string]Result
}

func (c *mapCache) Get(_ context.Context, key string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.m[key]
	return r, ok
}

func (c *mapCache) Put(_ context.Context, key string, r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = r
}

func TestRouteUsesCache(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`{"routes":[{"distanceMeters":5000,"durationSeconds":300}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 100).WithCache(&mapCache{m: map[string]Result{}})
	a, b := model.GeoPoint{Lat: 1}, model.GeoPoint{Lat: 2}
	for i := 0; i < 3; i++ {
		if _, err := c.Route(context.Background(), a, b); err != nil {
			t.Fatalf("route %d: %v", i, err)
		}
	}
	if hits != 1 {
		t.Fatalf("upstream hit %d times, want 1", hits)
	}
}
