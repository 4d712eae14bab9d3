package engine

import (
	"fmt"
	"math"

	"fleetload/internal/model"
)

// itinerary is the raw timing walk over an order: arrival minutes per stop
// (before dwell), compliance flags, and leg totals.
type itinerary struct {
	arrivals   []int
	compliance []bool
	legsKm     float64
	deadheadKm float64
	endMin     int
}

func (e *Engine) walkOrder(trips []model.TripLoad, mat [][]float64, order []int, startMin int) itinerary {
	it := itinerary{
		arrivals:   make([]int, 0, len(order)),
		compliance: make([]bool, 0, len(order)),
	}
	t := startMin
	cur := 0
	for _, idx := range order {
		leg := mat[cur][idx+1]
		it.legsKm += leg
		t += travelMin(leg, e.params.AvgSpeedKmh)
		it.arrivals = append(it.arrivals, t)
		it.compliance = append(it.compliance, withinWindow(t, trips[idx].Window))
		t += e.params.ServiceTimeMin
		cur = idx + 1
	}
	if len(order) > 0 {
		it.deadheadKm = mat[cur][0]
		t += travelMin(it.deadheadKm, e.params.AvgSpeedKmh)
	}
	it.endMin = t
	return it
}

func travelMin(km, speedKmh float64) int {
	return int(math.Round(km / speedKmh * 60))
}

// ComputeCriticalPath turns a vehicle's trips into a fully timed itinerary:
// optimized visiting order, arrival time per stop, window compliance, and the
// deadhead leg back to depot. Zero trips yield a zero-valued result; a single
// trip is a direct out-and-back with no optimizer call.
func (e *Engine) ComputeCriticalPath(trips []model.TripLoad, depot model.GeoPoint, startTime string) (model.CriticalPathInfo, error) {
	startMin := parseClockOr(startTime, parseClockOr(e.params.DayStart, 6*60))
	info := model.CriticalPathInfo{
		Sequence:         []model.TripLoad{},
		ArrivalTimes:     []string{},
		WindowCompliance: []bool{},
		StartTime:        formatClock(startMin),
		EndTime:          formatClock(startMin),
	}
	if len(trips) == 0 {
		return info, nil
	}
	if len(trips) > MaxStops {
		return model.CriticalPathInfo{}, fmt.Errorf("%w: %d stops (max %d)", ErrTooManyStops, len(trips), MaxStops)
	}

	mat := e.buildMatrix(depot, trips)
	order := e.optimizeOrder(trips, mat, startMin)
	it := e.walkOrder(trips, mat, order, startMin)

	for pos, idx := range order {
		info.Sequence = append(info.Sequence, trips[idx])
		info.ArrivalTimes = append(info.ArrivalTimes, formatClock(it.arrivals[pos]))
		info.WindowCompliance = append(info.WindowCompliance, it.compliance[pos])
	}
	info.TotalKm = round2(it.legsKm + it.deadheadKm)
	info.DeadheadKm = round2(it.deadheadKm)
	info.TotalMinutes = it.endMin - startMin
	info.EndTime = formatClock(it.endMin)
	return info, nil
}
