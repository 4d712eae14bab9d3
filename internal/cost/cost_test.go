package cost

import (
	"context"
	"testing"
)

func TestFuelRatesPerUnitType(t *testing.T) {
	f := &FuelRates{DefaultPerKm: 6.5, PerUnitType: map[string]float64{"tractor": 8.2}}
	got, err := f.EstimateFuelCost(context.Background(), 100, "v1", "tractor")
	if err != nil || got != 820 {
		t.Fatalf("tractor cost = %v, %v", got, err)
	}
	got, _ = f.EstimateFuelCost(context.Background(), 10, "v1", "unknown")
	if got != 65 {
		t.Fatalf("default rate cost = %v, want 65", got)
	}
}

func TestTollRatesRounding(t *testing.T) {
	tr := &TollRates{DefaultPerKm: 1.8, PerClass: map[string]float64{"C3": 2.333}}
	got, err := tr.EstimateTollCost(context.Background(), 3, "C3")
	if err != nil || got != 7 {
		t.Fatalf("C3 cost = %v, %v (want 7.00)", got, err)
	}
	got, _ = tr.EstimateTollCost(context.Background(), 1.5, "")
	if got != 2.7 {
		t.Fatalf("default cost = %v, want 2.7", got)
	}
}
