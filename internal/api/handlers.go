package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"fleetload/internal/engine"
	"fleetload/internal/metrics"
	"fleetload/internal/model"
	"fleetload/internal/notify"
	"fleetload/internal/store"
)

// VehiclesHandler handles GET/POST /v1/vehicles
func (s *Server) VehiclesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.Store.ListVehicles(r.Context())
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List vehicles failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPost:
		var v model.VehicleInfo
		if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if strings.TrimSpace(v.Label) == "" {
			writeProblem(w, http.StatusUnprocessableEntity, "Validation failed", "label is required", r.URL.Path)
			return
		}
		created, err := s.Store.CreateVehicle(r.Context(), v)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create vehicle failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// VehicleByIDHandler handles /v1/vehicles/{id} plus the
// /critical-path and /geometry subresources.
func (s *Server) VehicleByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/vehicles/")
	if rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]
	sub := ""
	if len(parts) == 2 {
		sub = parts[1]
	}
	switch sub {
	case "":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		v, err := s.Store.GetVehicle(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Not Found", "unknown vehicle "+id, r.URL.Path)
			return
		}
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Get vehicle failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, v)
	case "critical-path":
		s.criticalPath(w, r, id)
	case "geometry":
		s.geometry(w, r, id)
	default:
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
	}
}

func (s *Server) criticalPath(w http.ResponseWriter, r *http.Request, vehicleID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	trips, err := s.vehicleTrips(r.Context(), vehicleID, r.URL.Query().Get("date"))
	if err != nil {
		s.tripsError(w, r, err, vehicleID)
		return
	}
	start := r.URL.Query().Get("startTime")
	if start == "" {
		start = s.Engine.Params().DayStart
	}
	cp, err := s.Engine.ComputeCriticalPath(trips, s.Engine.Params().Depot, start)
	if errors.Is(err, engine.ErrTooManyStops) {
		writeProblem(w, http.StatusUnprocessableEntity, "Too many stops", err.Error(), r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Critical path failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, cp)
}

// geometry returns road legs for the vehicle's optimized sequence.
// Requires a configured directions provider.
func (s *Server) geometry(w http.ResponseWriter, r *http.Request, vehicleID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.Directions == nil {
		writeProblem(w, http.StatusServiceUnavailable, "Directions unavailable", "no directions provider configured", r.URL.Path)
		return
	}
	trips, err := s.vehicleTrips(r.Context(), vehicleID, r.URL.Query().Get("date"))
	if err != nil {
		s.tripsError(w, r, err, vehicleID)
		return
	}
	cp, err := s.Engine.ComputeCriticalPath(trips, s.Engine.Params().Depot, s.Engine.Params().DayStart)
	if err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "Sequence failed", err.Error(), r.URL.Path)
		return
	}
	type leg struct {
		FromFolio   string  `json:"fromFolio,omitempty"`
		ToFolio     string  `json:"toFolio,omitempty"`
		DistanceKm  float64 `json:"distanceKm"`
		DurationMin float64 `json:"durationMin"`
		Polyline    string  `json:"polyline,omitempty"`
	}
	type waypoint struct {
		folio string
		point model.GeoPoint
	}
	depot := s.Engine.Params().Depot
	stops := []waypoint{}
	for _, t := range cp.Sequence {
		if t.Destination == nil {
			continue // no geodata, no road geometry for this stop
		}
		stops = append(stops, waypoint{folio: t.Folio, point: *t.Destination})
	}
	stops = append(stops, waypoint{point: depot}) // return leg
	prev := waypoint{point: depot}
	legs := []leg{}
	for _, wp := range stops {
		res, err := s.Directions.Route(r.Context(), prev.point, wp.point)
		if err != nil {
			writeProblem(w, http.StatusBadGateway, "Directions provider failed", err.Error(), r.URL.Path)
			return
		}
		legs = append(legs, leg{FromFolio: prev.folio, ToFolio: wp.folio, DistanceKm: res.DistanceKm, DurationMin: res.DurationMin, Polyline: res.Polyline})
		prev = wp
	}
	writeJSON(w, http.StatusOK, map[string]any{"vehicleId": vehicleID, "legs": legs})
}

// TripsHandler handles GET/POST /v1/trips
func (s *Server) TripsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.Store.ListTrips(r.Context(), r.URL.Query().Get("date"))
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List trips failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPost:
		var t model.TripLoad
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if strings.TrimSpace(t.Folio) == "" || strings.TrimSpace(t.VehicleID) == "" {
			writeProblem(w, http.StatusUnprocessableEntity, "Validation failed", "folio and vehicleId are required", r.URL.Path)
			return
		}
		if t.DistanceKm < 0 {
			writeProblem(w, http.StatusUnprocessableEntity, "Validation failed", "distanceKm must be non-negative", r.URL.Path)
			return
		}
		if _, err := s.Store.GetVehicle(r.Context(), t.VehicleID); errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusUnprocessableEntity, "Validation failed", "unknown vehicle "+t.VehicleID, r.URL.Path)
			return
		}
		created, err := s.Store.CreateTrip(r.Context(), t)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create trip failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// WorkloadHandler handles GET /v1/workload
func (s *Server) WorkloadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	loads, err := s.workloadFor(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Workload failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": loads, "generatedAt": time.Now().UTC().Format(time.RFC3339)})
}

// WorkloadAlertsHandler handles GET /v1/workload/alerts. Computed alerts are
// also fanned out to webhook subscribers and the live stream.
func (s *Server) WorkloadAlertsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	loads, err := s.workloadFor(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Workload failed", err.Error(), r.URL.Path)
		return
	}
	alerts := engine.GenerateAlerts(loads)
	for _, a := range alerts {
		s.Pub.Emit(r.Context(), alertEventType(a.Type), a)
		s.Broker.Publish(TopicWorkload, Event{Type: alertEventType(a.Type), Data: map[string]any{
			"vehicleId": a.VehicleID,
			"label":     a.Label,
			"message":   a.Message,
			"severity":  string(a.Severity),
		}})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": alerts})
}

// RedistributionHandler handles GET /v1/workload/redistribution
func (s *Server) RedistributionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	loads, err := s.workloadFor(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Workload failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": s.Engine.SuggestRedistribution(loads)})
}

// RedistributionApplyHandler handles POST /v1/workload/redistribution/apply
func (s *Server) RedistributionApplyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		TripID      string `json:"tripId"`
		ToVehicleID string `json:"toVehicleId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if req.TripID == "" || req.ToVehicleID == "" {
		writeProblem(w, http.StatusUnprocessableEntity, "Validation failed", "tripId and toVehicleId are required", r.URL.Path)
		return
	}
	trip, err := s.Store.ReassignTrip(r.Context(), req.TripID, req.ToVehicleID)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "unknown trip or vehicle", r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Reassign failed", err.Error(), r.URL.Path)
		return
	}
	s.Pub.Emit(r.Context(), notify.EventTripReassigned, trip)
	s.Broker.Publish(TopicWorkload, Event{Type: notify.EventTripReassigned, Data: map[string]any{
		"tripId":    trip.ID,
		"folio":     trip.Folio,
		"vehicleId": trip.VehicleID,
	}})
	writeJSON(w, http.StatusOK, trip)
}

// OptimizeSequenceHandler handles POST /v1/optimize/sequence for ad-hoc trip
// lists not yet persisted.
func (s *Server) OptimizeSequenceHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Trips     []model.TripLoad `json:"trips"`
		Depot     *model.GeoPoint  `json:"depot"`
		StartTime string           `json:"startTime"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	depot := s.Engine.Params().Depot
	if req.Depot != nil {
		depot = *req.Depot
	}
	start := req.StartTime
	if start == "" {
		start = s.Engine.Params().DayStart
	}
	res, err := s.Engine.OptimizeSequence(req.Trips, depot, start)
	if errors.Is(err, engine.ErrTooManyStops) {
		metrics.OptimizerRuns.WithLabelValues("rejected").Inc()
		writeProblem(w, http.StatusUnprocessableEntity, "Too many stops", err.Error(), r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Optimize failed", err.Error(), r.URL.Path)
		return
	}
	metrics.OptimizerRuns.WithLabelValues("ok").Inc()
	metrics.OptimizerKmSaved.Observe(res.KmSaved)
	writeJSON(w, http.StatusOK, res)
}

// SubscriptionsHandler handles GET/POST /v1/subscriptions
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.Store.ListSubscriptions(r.Context())
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List subscriptions failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPost:
		var req model.SubscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if !strings.HasPrefix(req.URL, "http://") && !strings.HasPrefix(req.URL, "https://") {
			writeProblem(w, http.StatusUnprocessableEntity, "Validation failed", "url must be http(s)", r.URL.Path)
			return
		}
		if len(req.Events) == 0 {
			writeProblem(w, http.StatusUnprocessableEntity, "Validation failed", "at least one event is required", r.URL.Path)
			return
		}
		sub, err := s.Store.CreateSubscription(r.Context(), req)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create subscription failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	// Check DB connectivity when using Postgres store
	type pinger interface{ Ping(ctx context.Context) error }
	if pg, ok := s.Store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := pg.Ping(ctx); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) workloadFor(ctx context.Context, date string) ([]model.VehicleLoad, error) {
	vehicles, err := s.Store.ListVehicles(ctx)
	if err != nil {
		return nil, err
	}
	trips, err := s.Store.ListTrips(ctx, date)
	if err != nil {
		return nil, err
	}
	return s.Engine.Aggregate(ctx, vehicles, trips), nil
}

func (s *Server) vehicleTrips(ctx context.Context, vehicleID, date string) ([]model.TripLoad, error) {
	if _, err := s.Store.GetVehicle(ctx, vehicleID); err != nil {
		return nil, err
	}
	all, err := s.Store.ListTrips(ctx, date)
	if err != nil {
		return nil, err
	}
	out := []model.TripLoad{}
	for _, t := range all {
		if t.VehicleID == vehicleID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Server) tripsError(w http.ResponseWriter, r *http.Request, err error, vehicleID string) {
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "unknown vehicle "+vehicleID, r.URL.Path)
		return
	}
	writeProblem(w, http.StatusInternalServerError, "List trips failed", err.Error(), r.URL.Path)
}

func alertEventType(t model.AlertType) string {
	switch t {
	case model.AlertOverload:
		return notify.EventOverload
	case model.AlertUnderload:
		return notify.EventUnderload
	default:
		return notify.EventWindowConflict
	}
}
