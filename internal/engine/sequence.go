package engine

import (
	"fmt"
	"math"

	"fleetload/internal/model"
)

// SequenceResult reports what the optimizer did to one vehicle's day.
// Order is always a valid permutation of the input indices; degenerate
// geodata degrades quality, never correctness.
type SequenceResult struct {
	Order               []int   `json:"order"`
	OriginalKm          float64 `json:"originalKm"`
	OptimizedKm         float64 `json:"optimizedKm"`
	KmSaved             float64 `json:"kmSaved"`
	MinutesSaved        float64 `json:"minutesSaved"`
	AllWindowsSatisfied bool    `json:"allWindowsSatisfied"`
}

// OptimizeSequence computes a near-minimal-distance visiting order for the
// given trips, starting and ending at depot. Heuristic (cheapest insertion
// plus bounded 2-opt), not exact: the contract is the bounded properties,
// not TSP optimality. Inputs beyond MaxStops return ErrTooManyStops.
func (e *Engine) OptimizeSequence(trips []model.TripLoad, depot model.GeoPoint, startTime string) (SequenceResult, error) {
	n := len(trips)
	if n == 0 {
		return SequenceResult{Order: []int{}, AllWindowsSatisfied: true}, nil
	}
	if n > MaxStops {
		return SequenceResult{}, fmt.Errorf("%w: %d stops (max %d)", ErrTooManyStops, n, MaxStops)
	}
	startMin := parseClockOr(startTime, parseClockOr(e.params.DayStart, 6*60))
	mat := e.buildMatrix(depot, trips)

	order := e.optimizeOrder(trips, mat, startMin)
	origKm := e.routeKm(mat, identityOrder(n))
	optKm := e.routeKm(mat, order)
	saved := origKm - optKm
	it := e.walkOrder(trips, mat, order, startMin)

	return SequenceResult{
		Order:               order,
		OriginalKm:          round2(origKm),
		OptimizedKm:         round2(optKm),
		KmSaved:             round2(saved),
		MinutesSaved:        math.Round(saved / e.params.AvgSpeedKmh * 60),
		AllWindowsSatisfied: allTrue(it.compliance),
	}, nil
}

// optimizeOrder runs the heuristic over a prebuilt matrix. The input order is
// always a candidate, so the result never costs more than the naive route.
func (e *Engine) optimizeOrder(trips []model.TripLoad, mat [][]float64, startMin int) []int {
	n := len(trips)
	if n <= 1 {
		return identityOrder(n)
	}
	order := e.cheapestInsertion(trips, mat, startMin)
	order = e.twoOpt(mat, order)
	if e.routeKm(mat, order) > e.routeKm(mat, identityOrder(n)) {
		return identityOrder(n)
	}
	return order
}

// cheapestInsertion seeds with the trip under the earliest window start
// (absent windows carry no deadline pressure and sort last), then repeatedly
// inserts the unplaced trip at the position minimizing added distance plus a
// lateness penalty. Strict comparisons make ties resolve to the earlier trip
// index and earlier position, so output is reproducible.
func (e *Engine) cheapestInsertion(trips []model.TripLoad, mat [][]float64, startMin int) []int {
	n := len(trips)
	seed := 0
	for i := 1; i < n; i++ {
		if windowStartMin(trips[i].Window) < windowStartMin(trips[seed].Window) {
			seed = i
		}
	}
	order := []int{seed}
	placed := make([]bool, n)
	placed[seed] = true

	for len(order) < n {
		bestTrip, bestPos := -1, -1
		bestCost := math.MaxFloat64
		for i := 0; i < n; i++ {
			if placed[i] {
				continue
			}
			for pos := 0; pos <= len(order); pos++ {
				cand := insertAt(order, i, pos)
				c := e.insertionDeltaKm(mat, order, i, pos) + e.latenessPenaltyKm(trips, mat, cand, startMin)
				if c < bestCost {
					bestCost, bestTrip, bestPos = c, i, pos
				}
			}
		}
		order = insertAt(order, bestTrip, bestPos)
		placed[bestTrip] = true
	}
	return order
}

// insertionDeltaKm is the distance added by placing trip i at pos:
// prev->new + new->next - prev->next, with the depot closing both ends.
func (e *Engine) insertionDeltaKm(mat [][]float64, order []int, i, pos int) float64 {
	prev := 0
	if pos > 0 {
		prev = order[pos-1] + 1
	}
	next := 0
	if pos < len(order) {
		next = order[pos] + 1
	}
	node := i + 1
	return mat[prev][node] + mat[node][next] - mat[prev][next]
}

// latenessPenaltyKm converts total window lateness of a candidate sequence
// into a km-equivalent so it competes on the same scale as travel distance.
func (e *Engine) latenessPenaltyKm(trips []model.TripLoad, mat [][]float64, order []int, startMin int) float64 {
	it := e.walkOrder(trips, mat, order, startMin)
	late := 0
	for pos, idx := range order {
		late += latenessMin(it.arrivals[pos], trips[idx].Window)
	}
	return float64(late) * e.params.AvgSpeedKmh / 60
}

// twoOpt applies pairwise segment reversal, accepting only strict distance
// improvements. Passes are capped at n so runtime stays bounded even on
// adversarial input.
func (e *Engine) twoOpt(mat [][]float64, order []int) []int {
	n := len(order)
	best := append([]int(nil), order...)
	bestKm := e.routeKm(mat, best)
	for pass := 0; pass < n; pass++ {
		improved := false
		for i := 0; i < n-1; i++ {
			for k := i + 1; k < n; k++ {
				cand := reverseSegment(best, i, k)
				if d := e.routeKm(mat, cand); d+1e-9 < bestKm {
					best, bestKm = cand, d
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return best
}

// routeKm totals depot -> stops -> depot for an order over the matrix,
// deadhead leg included.
func (e *Engine) routeKm(mat [][]float64, order []int) float64 {
	total := 0.0
	cur := 0
	for _, idx := range order {
		total += mat[cur][idx+1]
		cur = idx + 1
	}
	total += mat[cur][0]
	return total
}

func identityOrder(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func insertAt(order []int, trip, pos int) []int {
	out := make([]int, 0, len(order)+1)
	out = append(out, order[:pos]...)
	out = append(out, trip)
	out = append(out, order[pos:]...)
	return out
}

func reverseSegment(order []int, i, k int) []int {
	out := append([]int(nil), order...)
	for a, b := i, k; a < b; a, b = a+1, b-1 {
		out[a], out[b] = out[b], out[a]
	}
	return out
}

func allTrue(bs []bool) bool {
	for _, b := range bs {
		if !b {
			return false
		}
	}
	return true
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
