package engine

import (
	"fmt"
	"math"
	"sort"

	"fleetload/internal/model"
)

// A normal-status vehicle still accepts trips while under this percentage.
const normalReceiverMaxPct = 70

// SuggestRedistribution proposes moving trips from overloaded vehicles to
// ones with spare capacity. Greedy single pass: biggest trip first, first
// receiver whose projected load stays within the overload threshold, at most
// one suggestion per trip. Nothing is mutated; callers apply a suggestion
// through the trip store and re-run Aggregate to rebalance further.
func (e *Engine) SuggestRedistribution(loads []model.VehicleLoad) []model.RedistributionSuggestion {
	suggestions := []model.RedistributionSuggestion{}

	// Projected km per vehicle, updated as suggestions are emitted so later
	// candidates see receivers already spoken for.
	projected := make(map[string]float64, len(loads))
	for _, l := range loads {
		projected[l.VehicleID] = l.TotalKm
	}
	target := e.params.TargetKmPerDay

	for _, from := range loads {
		if from.Status != model.StatusOverloaded || from.TripCount <= 1 {
			continue
		}
		candidates := append([]model.TripLoad(nil), from.Trips...)
		sort.SliceStable(candidates, func(a, b int) bool { return candidates[a].DistanceKm > candidates[b].DistanceKm })

		for _, trip := range candidates {
			for _, to := range loads {
				if to.VehicleID == from.VehicleID {
					continue
				}
				eligible := to.Status == model.StatusUnderloaded ||
					(to.Status == model.StatusNormal && to.LoadPct < normalReceiverMaxPct)
				if !eligible {
					continue
				}
				newKm := projected[to.VehicleID] + trip.DistanceKm
				newPct := math.Round(newKm / target * 100)
				if newPct > e.params.OverloadPct {
					continue
				}

				fromExcess := projected[from.VehicleID] - target
				toExcess := math.Max(0, newKm-target)
				saved := math.Max(0, fromExcess-toExcess)

				suggestions = append(suggestions, model.RedistributionSuggestion{
					TripID:        trip.ID,
					TripFolio:     trip.Folio,
					FromVehicleID: from.VehicleID,
					FromLabel:     from.Label,
					ToVehicleID:   to.VehicleID,
					ToLabel:       to.Label,
					KmSaved:       round2(saved),
					Reason: fmt.Sprintf("%s is overloaded at %.0f%%; moving %s (%.0f km) to %s raises it to %.0f%%",
						from.Label, from.LoadPct, trip.Folio, trip.DistanceKm, to.Label, newPct),
				})
				projected[to.VehicleID] = newKm
				projected[from.VehicleID] -= trip.DistanceKm
				break // one suggestion per trip
			}
		}
	}
	return suggestions
}
