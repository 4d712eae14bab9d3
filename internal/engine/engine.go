package engine

import (
	"context"
	"errors"

	"fleetload/internal/geo"
	"fleetload/internal/model"
)

// MaxStops bounds one vehicle-day. Inputs beyond it are rejected explicitly
// rather than allowed to degrade the interactive heuristics silently.
const MaxStops = 50

var ErrTooManyStops = errors.New("too many stops for one vehicle-day")

// DistanceFunc returns the distance in km between two points. Must be
// deterministic for the same inputs so optimizer output is reproducible.
type DistanceFunc func(a, b model.GeoPoint) float64

// FuelEstimator and TollEstimator are external collaborators. The engine
// performs no retries on them; retry policy belongs to their own clients.
type FuelEstimator interface {
	EstimateFuelCost(ctx context.Context, km float64, vehicleID, unitType string) (float64, error)
}

type TollEstimator interface {
	EstimateTollCost(ctx context.Context, km float64, tariffClass string) (float64, error)
}

// Params are the process-wide workload constants, loaded once from config.
type Params struct {
	AvgSpeedKmh    float64
	ServiceTimeMin int
	TargetKmPerDay float64
	UnderloadPct   float64
	OverloadPct    float64
	Depot          model.GeoPoint
	DayStart       string // "HH:MM"
}

// Engine computes per-vehicle workload, timed itineraries, alerts, and
// redistribution suggestions. Stateless across calls: no caches, no locks.
type Engine struct {
	params Params
	dist   DistanceFunc
	fuel   FuelEstimator
	toll   TollEstimator
}

func New(p Params, dist DistanceFunc, fuel FuelEstimator, toll TollEstimator) *Engine {
	if p.AvgSpeedKmh <= 0 {
		p.AvgSpeedKmh = 60
	}
	if p.ServiceTimeMin <= 0 {
		p.ServiceTimeMin = 30
	}
	if p.TargetKmPerDay <= 0 {
		p.TargetKmPerDay = 400
	}
	if p.UnderloadPct <= 0 {
		p.UnderloadPct = 50
	}
	if p.OverloadPct <= 0 {
		p.OverloadPct = 100
	}
	if p.DayStart == "" {
		p.DayStart = "06:00"
	}
	if dist == nil {
		dist = geo.HaversineKm
	}
	return &Engine{params: p, dist: dist, fuel: fuel, toll: toll}
}

func (e *Engine) Params() Params { return e.params }

// Classify maps a load percentage onto the three statuses. Strict comparisons:
// the thresholds themselves belong to the normal band.
func (e *Engine) Classify(loadPct float64) model.LoadStatus {
	switch {
	case loadPct < e.params.UnderloadPct:
		return model.StatusUnderloaded
	case loadPct > e.params.OverloadPct:
		return model.StatusOverloaded
	default:
		return model.StatusNormal
	}
}

// destination resolves a trip's routing point, synthesizing a proxy when the
// trip was never geocoded.
func (e *Engine) destination(depot model.GeoPoint, t model.TripLoad) model.GeoPoint {
	if t.Destination != nil {
		return *t.Destination
	}
	return geo.ProxyDestination(depot, t.DistanceKm)
}

// buildMatrix returns the symmetric distance matrix over {depot} ∪ trip
// destinations. Row/column 0 is the depot; trip i maps to index i+1.
func (e *Engine) buildMatrix(depot model.GeoPoint, trips []model.TripLoad) [][]float64 {
	pts := make([]model.GeoPoint, len(trips)+1)
	pts[0] = depot
	for i, t := range trips {
		pts[i+1] = e.destination(depot, t)
	}
	mat := make([][]float64, len(pts))
	for i := range mat {
		mat[i] = make([]float64, len(pts))
	}
	for i := 0; i < len(pts); i++ {
		for j := i + 1; j < len(pts); j++ {
			d := e.dist(pts[i], pts[j])
			mat[i][j] = d
			mat[j][i] = d
		}
	}
	return mat
}
