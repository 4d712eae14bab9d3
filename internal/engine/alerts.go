package engine

import (
	"fmt"
	"strings"

	"fleetload/internal/model"
)

// GenerateAlerts derives overload, underload, and window-conflict alerts from
// aggregated loads. Pure, one pass; emitted order follows the input order and
// one vehicle can raise several distinct alerts. Vehicles with no trips are
// never flagged for underload: no work assigned is not itself a problem.
func GenerateAlerts(loads []model.VehicleLoad) []model.LoadAlert {
	alerts := []model.LoadAlert{}
	for _, l := range loads {
		switch l.Status {
		case model.StatusOverloaded:
			alerts = append(alerts, model.LoadAlert{
				Type:      model.AlertOverload,
				VehicleID: l.VehicleID,
				Label:     l.Label,
				Message:   fmt.Sprintf("%s is at %.0f%% of the daily target (%.0f km over %d trips)", l.Label, l.LoadPct, l.TotalKm, l.TripCount),
				Severity:  model.SeverityError,
				Details:   map[string]any{"loadPercentage": l.LoadPct, "totalKm": l.TotalKm, "tripCount": l.TripCount},
			})
		case model.StatusUnderloaded:
			if l.TripCount > 0 {
				alerts = append(alerts, model.LoadAlert{
					Type:      model.AlertUnderload,
					VehicleID: l.VehicleID,
					Label:     l.Label,
					Message:   fmt.Sprintf("%s is at %.0f%% of the daily target with capacity to spare", l.Label, l.LoadPct),
					Severity:  model.SeverityWarning,
					Details:   map[string]any{"loadPercentage": l.LoadPct, "totalKm": l.TotalKm, "tripCount": l.TripCount},
				})
			}
		}
		if l.CriticalPath != nil {
			var folios []string
			for i, ok := range l.CriticalPath.WindowCompliance {
				if !ok {
					folios = append(folios, l.CriticalPath.Sequence[i].Folio)
				}
			}
			if len(folios) > 0 {
				alerts = append(alerts, model.LoadAlert{
					Type:      model.AlertWindowConflict,
					VehicleID: l.VehicleID,
					Label:     l.Label,
					Message:   fmt.Sprintf("%s cannot meet the delivery window for %s", l.Label, strings.Join(folios, ", ")),
					Severity:  model.SeverityWarning,
					Details:   map[string]any{"folios": folios},
				})
			}
		}
	}
	return alerts
}
