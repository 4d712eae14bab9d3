package engine

import (
	"fmt"

	"fleetload/internal/model"
)

// Time-of-day arithmetic is done in minutes since midnight; "HH:MM" strings
// exist only at the boundary. Itineraries are single-day, so values wrap
// modulo one day.

const minutesPerDay = 24 * 60

func parseClock(s string) (int, bool) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, false
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

func parseClockOr(s string, def int) int {
	if v, ok := parseClock(s); ok {
		return v
	}
	return def
}

func formatClock(min int) string {
	min %= minutesPerDay
	if min < 0 {
		min += minutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// windowStartMin orders trips by deadline pressure. A missing window (or an
// unparseable start) sorts to end of day: no deadline, lowest priority.
func windowStartMin(w *model.TimeWindow) int {
	if w == nil {
		return minutesPerDay
	}
	return parseClockOr(w.Start, minutesPerDay)
}

// withinWindow reports whether an arrival complies with a trip's window.
// No window means nothing to violate.
func withinWindow(arrivalMin int, w *model.TimeWindow) bool {
	if w == nil {
		return true
	}
	start, okS := parseClock(w.Start)
	end, okE := parseClock(w.End)
	if !okS && !okE {
		return true
	}
	if okS && arrivalMin < start {
		return false
	}
	if okE && arrivalMin > end {
		return false
	}
	return true
}

// latenessMin returns how many minutes past the window end an arrival is,
// zero when compliant or unconstrained.
func latenessMin(arrivalMin int, w *model.TimeWindow) int {
	if w == nil {
		return 0
	}
	end, ok := parseClock(w.End)
	if !ok || arrivalMin <= end {
		return 0
	}
	return arrivalMin - end
}
