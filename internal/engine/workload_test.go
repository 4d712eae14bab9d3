package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"fleetload/internal/model"
)

type fuelStub struct {
	perKm float64
	err   error
	calls atomic.Int32
}

func (f *fuelStub) EstimateFuelCost(_ context.Context, km float64, _, _ string) (float64, error) {
	f.calls.Add(1)
	if f.err != nil {
		return 0, f.err
	}
	return km * f.perKm, nil
}

type tollStub struct {
	perKm float64
	calls atomic.Int32
}

func (t *tollStub) EstimateTollCost(_ context.Context, km float64, _ string) (float64, error) {
	t.calls.Add(1)
	return km * t.perKm, nil
}

func newAggEngine(fuel FuelEstimator, toll TollEstimator) *Engine {
	return New(Params{
		AvgSpeedKmh:    60,
		ServiceTimeMin: 30,
		TargetKmPerDay: 200,
		UnderloadPct:   50,
		OverloadPct:    100,
		Depot:          testDepot,
		DayStart:       "06:00",
	}, nil, fuel, toll)
}

func TestAggregateClassificationAndOrder(t *testing.T) {
	e := newAggEngine(nil, nil)
	vehicles := []model.VehicleInfo{
		{ID: "v1", Label: "Unit 1"},
		{ID: "v2", Label: "Unit 2"},
		{ID: "v3", Label: "Unit 3"},
	}
	trips := []model.TripLoad{
		{ID: "a", VehicleID: "v1", DistanceKm: 80},
		{ID: "b", VehicleID: "v2", DistanceKm: 150},
		{ID: "c", VehicleID: "v3", DistanceKm: 120},
		{ID: "d", VehicleID: "v3", DistanceKm: 120},
	}
	loads := e.Aggregate(context.Background(), vehicles, trips)
	if len(loads) != 3 {
		t.Fatalf("got %d loads", len(loads))
	}
	// Sorted descending by load percentage: 120, 75, 40.
	if loads[0].VehicleID != "v3" || loads[1].VehicleID != "v2" || loads[2].VehicleID != "v1" {
		t.Fatalf("order = %s,%s,%s", loads[0].VehicleID, loads[1].VehicleID, loads[2].VehicleID)
	}
	if loads[0].LoadPct != 120 || loads[0].Status != model.StatusOverloaded {
		t.Fatalf("v3: pct=%v status=%s", loads[0].LoadPct, loads[0].Status)
	}
	if loads[1].LoadPct != 75 || loads[1].Status != model.StatusNormal {
		t.Fatalf("v2: pct=%v status=%s", loads[1].LoadPct, loads[1].Status)
	}
	if loads[2].LoadPct != 40 || loads[2].Status != model.StatusUnderloaded {
		t.Fatalf("v1: pct=%v status=%s", loads[2].LoadPct, loads[2].Status)
	}
}

func TestAggregateHoursEstimate(t *testing.T) {
	e := newAggEngine(nil, nil)
	vehicles := []model.VehicleInfo{{ID: "v1", Label: "Unit 1"}}
	trips := []model.TripLoad{
		{ID: "a", VehicleID: "v1", DistanceKm: 60},
		{ID: "b", VehicleID: "v1", DistanceKm: 60},
	}
	loads := e.Aggregate(context.Background(), vehicles, trips)
	// 120 km at 60 km/h plus two 30-minute stops.
	if loads[0].EstimatedHours != 3 {
		t.Fatalf("hours = %v, want 3", loads[0].EstimatedHours)
	}
}

func TestAggregateZeroTripsSkipsCollaborators(t *testing.T) {
	fuel := &fuelStub{perKm: 1}
	toll := &tollStub{perKm: 0.5}
	e := newAggEngine(fuel, toll)
	loads := e.Aggregate(context.Background(), []model.VehicleInfo{{ID: "v1", Label: "Idle"}}, nil)
	l := loads[0]
	if l.TripCount != 0 || l.TotalKm != 0 || l.Status != model.StatusUnderloaded {
		t.Fatalf("idle vehicle: %+v", l)
	}
	if l.CriticalPath != nil {
		t.Fatalf("criticalPath must be nil with no trips")
	}
	if fuel.calls.Load() != 0 || toll.calls.Load() != 0 {
		t.Fatalf("estimators must not be called for zero km")
	}
}

func TestAggregateCostEstimates(t *testing.T) {
	fuel := &fuelStub{perKm: 2}
	toll := &tollStub{perKm: 0.5}
	e := newAggEngine(fuel, toll)
	vehicles := []model.VehicleInfo{{ID: "v1", Label: "Unit 1", UnitType: "tractor", TariffClass: "C3"}}
	trips := []model.TripLoad{{ID: "a", VehicleID: "v1", DistanceKm: 100}}
	loads := e.Aggregate(context.Background(), vehicles, trips)
	if loads[0].FuelCost != 200 || loads[0].TollCost != 50 {
		t.Fatalf("fuel=%v toll=%v", loads[0].FuelCost, loads[0].TollCost)
	}
	if loads[0].CriticalPath == nil {
		t.Fatalf("criticalPath expected with trips assigned")
	}
}

func TestAggregateCollaboratorFailureIsolated(t *testing.T) {
	fuel := &fuelStub{err: errors.New("rate service down")}
	e := newAggEngine(fuel, nil)
	vehicles := []model.VehicleInfo{
		{ID: "v1", Label: "Broken"},
		{ID: "v2", Label: "Fine"},
	}
	trips := []model.TripLoad{
		{ID: "a", VehicleID: "v1", DistanceKm: 100},
	}
	loads := e.Aggregate(context.Background(), vehicles, trips)
	if len(loads) != 2 {
		t.Fatalf("one failing vehicle must not sink the batch")
	}
	var broken, fine *model.VehicleLoad
	for i := range loads {
		switch loads[i].VehicleID {
		case "v1":
			broken = &loads[i]
		case "v2":
			fine = &loads[i]
		}
	}
	if broken.Error == "" {
		t.Fatalf("expected error recorded on failing vehicle")
	}
	if broken.TotalKm != 100 {
		t.Fatalf("trip math must still be computed: %+v", broken)
	}
	if fine.Error != "" {
		t.Fatalf("healthy vehicle must stay clean: %+v", fine)
	}
}
