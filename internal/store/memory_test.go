package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"fleetload/internal/model"
)

func TestMemoryVehiclesAndTrips(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	v, err := m.CreateVehicle(ctx, model.VehicleInfo{Label: "T-01"})
	if err != nil {
		t.Fatalf("create vehicle: %v", err)
	}
	if v.ID == "" {
		t.Fatalf("expected generated vehicle id")
	}

	if _, err := m.GetVehicle(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_, err = m.CreateTrip(ctx, model.TripLoad{Folio: "F-1", VehicleID: v.ID, DistanceKm: 120, PlanDate: "2026-09-01"})
	if err != nil {
		t.Fatalf("create trip: %v", err)
	}
	_, err = m.CreateTrip(ctx, model.TripLoad{Folio: "F-2", VehicleID: v.ID, DistanceKm: 80, PlanDate: "2026-09-02"})
	if err != nil {
		t.Fatalf("create trip: %v", err)
	}

	trips, err := m.ListTrips(ctx, "2026-09-01")
	if err != nil {
		t.Fatalf("list trips: %v", err)
	}
	if len(trips) != 1 || trips[0].Folio != "F-1" {
		t.Fatalf("expected only F-1 for 2026-09-01, got %+v", trips)
	}

	all, err := m.ListTrips(ctx, "")
	if err != nil {
		t.Fatalf("list all trips: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 trips, got %d", len(all))
	}
}

func TestMemoryReassignTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	v1, _ := m.CreateVehicle(ctx, model.VehicleInfo{Label: "A"})
	v2, _ := m.CreateVehicle(ctx, model.VehicleInfo{Label: "B"})
	trip, _ := m.CreateTrip(ctx, model.TripLoad{Folio: "F-9", VehicleID: v1.ID, DistanceKm: 50})

	moved, err := m.ReassignTrip(ctx, trip.ID, v2.ID)
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if moved.VehicleID != v2.ID {
		t.Fatalf("expected trip on %s, got %s", v2.ID, moved.VehicleID)
	}

	if _, err := m.ReassignTrip(ctx, trip.ID, "no-such-vehicle"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown vehicle, got %v", err)
	}
	if _, err := m.ReassignTrip(ctx, "no-such-trip", v1.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown trip, got %v", err)
	}
}

func TestMemorySubscriptionMatching(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.CreateSubscription(ctx, model.SubscriptionRequest{URL: "http://a", Events: []string{"workload.overload"}, Secret: "s1"})
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	_, err = m.CreateSubscription(ctx, model.SubscriptionRequest{URL: "http://b", Events: []string{"*"}, Secret: "s2"})
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}

	subs, err := m.GetSubscriptionsForEvent(ctx, "workload.overload")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected 2 matching subscriptions, got %d", len(subs))
	}

	subs, err = m.GetSubscriptionsForEvent(ctx, "workload.window_conflict")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(subs) != 1 || subs[0].URL != "http://b" {
		t.Fatalf("expected only wildcard subscription, got %+v", subs)
	}
}

func TestMemoryWebhookQueue(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	id, err := m.EnqueueWebhook(ctx, "sub-1", "workload.overload", "http://x", "sec", []byte(`{}`))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	due, err := m.FetchDueWebhookDeliveries(ctx, 10)
	if err != nil {
		t.Fatalf("fetch due: %v", err)
	}
	if len(due) != 1 || due[0].ID != id {
		t.Fatalf("expected one due delivery %s, got %+v", id, due)
	}

	// Failure pushes the delivery into the future.
	next := time.Now().Add(time.Hour)
	if err := m.MarkWebhookDelivery(ctx, id, false, &next, "boom", 503, 12); err != nil {
		t.Fatalf("mark: %v", err)
	}
	due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 0 {
		t.Fatalf("expected no due deliveries after backoff, got %d", len(due))
	}

	// Success removes it even once due again.
	past := time.Now().Add(-time.Minute)
	if err := m.MarkWebhookDelivery(ctx, id, false, &past, "boom", 503, 12); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := m.MarkWebhookDelivery(ctx, id, true, nil, "", 200, 8); err != nil {
		t.Fatalf("mark success: %v", err)
	}
	due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 0 {
		t.Fatalf("expected empty queue after success, got %d", len(due))
	}
}
