package store

import (
	"context"
	"errors"
	"time"

	"fleetload/internal/model"
)

// Store is the persistence interface behind the API server: fleet data the
// engine consumes, plus the alert webhook queue. The engine itself never
// touches it; workload results are computed, not persisted.
type Store interface {
	// Vehicles
	CreateVehicle(ctx context.Context, v model.VehicleInfo) (model.VehicleInfo, error)
	ListVehicles(ctx context.Context) ([]model.VehicleInfo, error)
	GetVehicle(ctx context.Context, id string) (model.VehicleInfo, error)

	// Trips
	CreateTrip(ctx context.Context, t model.TripLoad) (model.TripLoad, error)
	ListTrips(ctx context.Context, planDate string) ([]model.TripLoad, error)
	// ReassignTrip is the trip-management operation redistribution
	// suggestions are applied through.
	ReassignTrip(ctx context.Context, tripID, toVehicleID string) (model.TripLoad, error)

	// Alert webhook subscriptions
	CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
	ListSubscriptions(ctx context.Context) ([]model.Subscription, error)
	GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error)

	// Webhook delivery queue
	EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error
	FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode, latencyMs int) error
}

// WebhookDelivery is one pending outbound notification.
type WebhookDelivery struct {
	ID             string
	SubscriptionID string
	EventType      string
	URL            string
	Secret         string
	Payload        []byte
	Attempts       int
}

var ErrNotFound = errors.New("not found")
