package model

// Core domain types for the workload engine and its API.

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// TimeWindow is a soft preferred arrival interval, "HH:MM" local time.
// Violations are flagged downstream, never rejected.
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// TripLoad is a trip eligible for workload calculation. Read-only input:
// the engine never mutates or persists it; reassignments go through the store.
type TripLoad struct {
	ID          string      `json:"id"`
	Folio       string      `json:"folio"`
	VehicleID   string      `json:"vehicleId"`
	DistanceKm  float64     `json:"distanceKm"`
	Destination *GeoPoint   `json:"destination,omitempty"`
	Window      *TimeWindow `json:"window,omitempty"`
	PlanDate    string      `json:"planDate,omitempty"`
}

type VehicleInfo struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Brand       string `json:"brand,omitempty"`
	UnitType    string `json:"unitType,omitempty"`
	DriverName  string `json:"driverName,omitempty"`
	TariffClass string `json:"tariffClass,omitempty"`
}

// LoadStatus classifies a vehicle's day against the configured thresholds.
type LoadStatus string

const (
	StatusUnderloaded LoadStatus = "underloaded"
	StatusNormal      LoadStatus = "normal"
	StatusOverloaded  LoadStatus = "overloaded"
)

// CriticalPathInfo is the fully timed itinerary for one vehicle-day.
// ArrivalTimes and WindowCompliance are index-aligned with Sequence.
type CriticalPathInfo struct {
	Sequence         []TripLoad `json:"sequence"`
	TotalKm          float64    `json:"totalKm"`
	DeadheadKm       float64    `json:"deadheadKm"`
	TotalMinutes     int        `json:"totalMinutes"`
	StartTime        string     `json:"startTime"`
	EndTime          string     `json:"endTime"`
	ArrivalTimes     []string   `json:"arrivalTimes"`
	WindowCompliance []bool     `json:"windowCompliance"`
}

// VehicleLoad is the computed per-vehicle summary. Never persisted;
// Status is recomputed from LoadPct on every aggregation.
type VehicleLoad struct {
	VehicleID      string            `json:"vehicleId"`
	Label          string            `json:"label"`
	Brand          string            `json:"brand,omitempty"`
	UnitType       string            `json:"unitType,omitempty"`
	DriverName     string            `json:"driverName,omitempty"`
	TotalKm        float64           `json:"totalKm"`
	EstimatedHours float64           `json:"estimatedHours"`
	FuelCost       float64           `json:"fuelCostEstimate"`
	TollCost       float64           `json:"tollCostEstimate"`
	TripCount      int               `json:"tripCount"`
	LoadPct        float64           `json:"loadPercentage"`
	Status         LoadStatus        `json:"status"`
	Trips          []TripLoad        `json:"trips"`
	CriticalPath   *CriticalPathInfo `json:"criticalPath,omitempty"`
	Error          string            `json:"error,omitempty"`
}

type AlertType string

const (
	AlertOverload       AlertType = "overload"
	AlertUnderload      AlertType = "underload"
	AlertWindowConflict AlertType = "window_conflict"
)

type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

type LoadAlert struct {
	Type      AlertType      `json:"type"`
	VehicleID string         `json:"vehicleId"`
	Label     string         `json:"label"`
	Message   string         `json:"message"`
	Severity  Severity       `json:"severity"`
	Details   map[string]any `json:"details,omitempty"`
}

type RedistributionSuggestion struct {
	TripID        string  `json:"tripId"`
	TripFolio     string  `json:"tripFolio"`
	FromVehicleID string  `json:"fromVehicleId"`
	FromLabel     string  `json:"fromLabel"`
	ToVehicleID   string  `json:"toVehicleId"`
	ToLabel       string  `json:"toLabel"`
	KmSaved       float64 `json:"estimatedKmSaved"`
	Reason        string  `json:"reason"`
}

// Alert webhook subscriptions.

type SubscriptionRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret"`
}

type Subscription struct {
	ID     string   `json:"id"`
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret,omitempty"`
}
