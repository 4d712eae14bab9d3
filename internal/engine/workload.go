package engine

import (
	"context"
	"math"
	"sort"
	"sync"

	"fleetload/internal/model"
)

// Aggregate computes one VehicleLoad per vehicle. Vehicles are independent,
// so they are evaluated concurrently; each vehicle's own numbers stay
// sequential. Collaborator failures are isolated per vehicle (Error field)
// so one bad lookup cannot blank a whole dashboard. Output is sorted
// descending by load percentage with stable input order on ties; callers
// rely on that ordering.
func (e *Engine) Aggregate(ctx context.Context, vehicles []model.VehicleInfo, trips []model.TripLoad) []model.VehicleLoad {
	byVehicle := make(map[string][]model.TripLoad, len(vehicles))
	for _, t := range trips {
		byVehicle[t.VehicleID] = append(byVehicle[t.VehicleID], t)
	}

	loads := make([]model.VehicleLoad, len(vehicles))
	var wg sync.WaitGroup
	for i, v := range vehicles {
		wg.Add(1)
		go func(i int, v model.VehicleInfo) {
			defer wg.Done()
			loads[i] = e.loadFor(ctx, v, byVehicle[v.ID])
		}(i, v)
	}
	wg.Wait()

	sort.SliceStable(loads, func(a, b int) bool { return loads[a].LoadPct > loads[b].LoadPct })
	return loads
}

func (e *Engine) loadFor(ctx context.Context, v model.VehicleInfo, trips []model.TripLoad) model.VehicleLoad {
	load := model.VehicleLoad{
		VehicleID:  v.ID,
		Label:      v.Label,
		Brand:      v.Brand,
		UnitType:   v.UnitType,
		DriverName: v.DriverName,
		Trips:      trips,
		TripCount:  len(trips),
	}
	if load.Trips == nil {
		load.Trips = []model.TripLoad{}
	}
	for _, t := range trips {
		load.TotalKm += t.DistanceKm
	}
	load.TotalKm = round2(load.TotalKm)
	load.EstimatedHours = round2(load.TotalKm/e.params.AvgSpeedKmh + float64(load.TripCount)*float64(e.params.ServiceTimeMin)/60)
	load.LoadPct = math.Round(load.TotalKm / e.params.TargetKmPerDay * 100)
	load.Status = e.Classify(load.LoadPct)

	if load.TotalKm > 0 {
		if e.fuel != nil {
			if cost, err := e.fuel.EstimateFuelCost(ctx, load.TotalKm, v.ID, v.UnitType); err != nil {
				load.Error = "fuel estimate: " + err.Error()
			} else {
				load.FuelCost = cost
			}
		}
		if e.toll != nil {
			if cost, err := e.toll.EstimateTollCost(ctx, load.TotalKm, v.TariffClass); err != nil {
				load.Error = "toll estimate: " + err.Error()
			} else {
				load.TollCost = cost
			}
		}
	}

	if load.TripCount > 0 {
		cp, err := e.ComputeCriticalPath(trips, e.params.Depot, e.params.DayStart)
		if err != nil {
			load.Error = "critical path: " + err.Error()
		} else {
			load.CriticalPath = &cp
		}
	}
	return load
}
