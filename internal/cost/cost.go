// Package cost provides the fuel and toll estimator collaborators consumed by
// the workload engine. Rates come from configuration; both estimators satisfy
// the engine's interfaces so tests can swap in stubs.
package cost

import (
	"context"
	"math"
)

// FuelRates estimates fuel cost as per-km rate by unit type.
type FuelRates struct {
	DefaultPerKm float64
	PerUnitType  map[string]float64
}

func (f *FuelRates) EstimateFuelCost(_ context.Context, km float64, _ string, unitType string) (float64, error) {
	rate := f.DefaultPerKm
	if r, ok := f.PerUnitType[unitType]; ok {
		rate = r
	}
	return roundCents(km * rate), nil
}

// TollRates estimates toll cost per tariff class.
type TollRates struct {
	DefaultPerKm float64
	PerClass     map[string]float64
}

func (t *TollRates) EstimateTollCost(_ context.Context, km float64, tariffClass string) (float64, error) {
	rate := t.DefaultPerKm
	if r, ok := t.PerClass[tariffClass]; ok {
		rate = r
	}
	return roundCents(km * rate), nil
}

func roundCents(v float64) float64 { return math.Round(v*100) / 100 }
