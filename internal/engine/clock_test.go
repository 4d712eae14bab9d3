package engine

import (
	"testing"

	"fleetload/internal/model"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in   string
		min  int
		ok   bool
	}{
		{"06:00", 360, true},
		{"00:00", 0, true},
		{"23:59", 1439, true},
		{"24:00", 0, false},
		{"12:60", 0, false},
		{"", 0, false},
		{"noon", 0, false},
	}
	for _, c := range cases {
		got, ok := parseClock(c.in)
		if ok != c.ok || got != c.min {
			t.Fatalf("parseClock(%q) = %d,%v, want %d,%v", c.in, got, ok, c.min, c.ok)
		}
	}
}

func TestFormatClockWraps(t *testing.T) {
	if s := formatClock(360); s != "06:00" {
		t.Fatalf("got %s", s)
	}
	if s := formatClock(25*60 + 10); s != "01:10" {
		t.Fatalf("wrap: got %s", s)
	}
	if s := formatClock(-30); s != "23:30" {
		t.Fatalf("negative wrap: got %s", s)
	}
}

func TestWithinWindow(t *testing.T) {
	w := &model.TimeWindow{Start: "08:00", End: "10:00"}
	if !withinWindow(480, w) || !withinWindow(600, w) {
		t.Fatalf("bounds are inclusive")
	}
	if withinWindow(479, w) || withinWindow(601, w) {
		t.Fatalf("outside the window must fail")
	}
	if !withinWindow(0, nil) {
		t.Fatalf("nil window always complies")
	}
	if !withinWindow(0, &model.TimeWindow{Start: "bad", End: "worse"}) {
		t.Fatalf("unparseable window cannot be violated")
	}
}

func TestWindowStartMinOrdersAbsentLast(t *testing.T) {
	early := &model.TimeWindow{Start: "07:15", End: "09:00"}
	if windowStartMin(early) != 435 {
		t.Fatalf("got %d", windowStartMin(early))
	}
	if windowStartMin(nil) != minutesPerDay {
		t.Fatalf("absent window must sort last")
	}
}

func TestLatenessMin(t *testing.T) {
	w := &model.TimeWindow{Start: "08:00", End: "08:30"}
	if latenessMin(540, w) != 30 {
		t.Fatalf("got %d", latenessMin(540, w))
	}
	if latenessMin(500, w) != 0 || latenessMin(0, nil) != 0 {
		t.Fatalf("compliant arrivals have zero lateness")
	}
}
