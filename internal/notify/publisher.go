package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fleetload/internal/store"
)

// Event types emitted by the workload engine.
const (
	EventOverload       = "workload.overload"
	EventUnderload      = "workload.underload"
	EventWindowConflict = "workload.window_conflict"
	EventTripReassigned = "trip.reassigned"
)

type Publisher struct {
	Store store.Store
}

func NewPublisher(s store.Store) *Publisher {
	return &Publisher{Store: s}
}

// Emit enqueues one delivery per subscription matching the event type.
// Delivery is asynchronous; failures surface through the worker, not here.
func (p *Publisher) Emit(ctx context.Context, eventType string, data any) {
	subs, err := p.Store.GetSubscriptionsForEvent(ctx, eventType)
	if err != nil || len(subs) == 0 {
		return
	}
	payload := map[string]any{
		"id":   fmt.Sprintf("evt_%d", time.Now().UnixNano()),
		"type": eventType,
		"ts":   time.Now().UTC().Format(time.RFC3339),
		"data": data,
	}
	body, _ := json.Marshal(payload)
	for _, s := range subs {
		_, _ = p.Store.EnqueueWebhook(ctx, s.ID, eventType, s.URL, s.Secret, body)
	}
}
