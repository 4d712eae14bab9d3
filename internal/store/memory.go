package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"fleetload/internal/model"
)

// Memory is the in-memory store used when no DATABASE_URL is set. Handy for
// tests and local development; state dies with the process.
type Memory struct {
	mu          sync.Mutex
	vehicles    map[string]model.VehicleInfo
	vehicleIDs  []string // insertion order
	trips       map[string]model.TripLoad
	tripIDs     []string
	subs        []model.Subscription
	deliveries  map[string]*memDelivery
	deliveryIDs []string
}

type memDelivery struct {
	WebhookDelivery
	NextAttemptAt time.Time
	Done          bool
}

func NewMemory() *Memory {
	return &Memory{
		vehicles:   map[string]model.VehicleInfo{},
		trips:      map[string]model.TripLoad{},
		deliveries: map[string]*memDelivery{},
	}
}

func (m *Memory) CreateVehicle(_ context.Context, v model.VehicleInfo) (model.VehicleInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if _, exists := m.vehicles[v.ID]; !exists {
		m.vehicleIDs = append(m.vehicleIDs, v.ID)
	}
	m.vehicles[v.ID] = v
	return v, nil
}

func (m *Memory) ListVehicles(_ context.Context) ([]model.VehicleInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.VehicleInfo, 0, len(m.vehicleIDs))
	for _, id := range m.vehicleIDs {
		out = append(out, m.vehicles[id])
	}
	return out, nil
}

func (m *Memory) GetVehicle(_ context.Context, id string) (model.VehicleInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vehicles[id]
	if !ok {
		return model.VehicleInfo{}, ErrNotFound
	}
	return v, nil
}

func (m *Memory) CreateTrip(_ context.Context, t model.TripLoad) (model.TripLoad, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if _, exists := m.trips[t.ID]; !exists {
		m.tripIDs = append(m.tripIDs, t.ID)
	}
	m.trips[t.ID] = t
	return t, nil
}

func (m *Memory) ListTrips(_ context.Context, planDate string) ([]model.TripLoad, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.TripLoad{}
	for _, id := range m.tripIDs {
		t := m.trips[id]
		if planDate == "" || t.PlanDate == planDate {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *Memory) ReassignTrip(_ context.Context, tripID, toVehicleID string) (model.TripLoad, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[tripID]
	if !ok {
		return model.TripLoad{}, ErrNotFound
	}
	if _, ok := m.vehicles[toVehicleID]; !ok {
		return model.TripLoad{}, ErrNotFound
	}
	t.VehicleID = toVehicleID
	m.trips[tripID] = t
	return t, nil
}

func (m *Memory) CreateSubscription(_ context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := model.Subscription{ID: uuid.New().String(), URL: req.URL, Events: req.Events, Secret: req.Secret}
	m.subs = append(m.subs, s)
	return s, nil
}

func (m *Memory) ListSubscriptions(_ context.Context) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Subscription(nil), m.subs...), nil
}

func (m *Memory) GetSubscriptionsForEvent(_ context.Context, eventType string) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Subscription
	for _, s := range m.subs {
		for _, e := range s.Events {
			if e == eventType || e == "*" {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) EnqueueWebhook(_ context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	m.deliveries[id] = &memDelivery{
		WebhookDelivery: WebhookDelivery{
			ID:             id,
			SubscriptionID: subscriptionID,
			EventType:      eventType,
			URL:            url,
			Secret:         secret,
			Payload:        payload,
		},
		NextAttemptAt: time.Now(),
	}
	m.deliveryIDs = append(m.deliveryIDs, id)
	return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(_ context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	now := time.Now()
	out := []WebhookDelivery{}
	for _, id := range m.deliveryIDs {
		d := m.deliveries[id]
		if d.Done || d.NextAttemptAt.After(now) {
			continue
		}
		out = append(out, d.WebhookDelivery)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) MarkWebhookDelivery(_ context.Context, id string, success bool, nextAttemptAt *time.Time, _ string, _, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	if success {
		d.Done = true
		return nil
	}
	if nextAttemptAt != nil {
		d.NextAttemptAt = *nextAttemptAt
	}
	return nil
}

func (m *Memory) FailWebhookDelivery(_ context.Context, id string, _ string, _, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.Done = true
	return nil
}
