package api

import (
	"context"
	"os"
	"strings"

	"fleetload/internal/config"
	"fleetload/internal/cost"
	"fleetload/internal/directions"
	"fleetload/internal/engine"
	"fleetload/internal/notify"
	"fleetload/internal/store"
)

type Server struct {
	Store      store.Store
	Engine     *engine.Engine
	Pub        *notify.Publisher
	Broker     EventBroker
	Directions *directions.Client // nil when no provider configured
	cfg        config.Config
}

// NewServer wires the store, engine, broker, and optional directions client.
// If DATABASE_URL is unset, uses in-memory store.
func NewServer(cfg config.Config) (*Server, error) {
	dsn := os.Getenv("DATABASE_URL")
	var s store.Store
	if strings.TrimSpace(dsn) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(dsn)
		if err != nil {
			return nil, err
		}
		if os.Getenv("DB_MIGRATE") != "false" {
			if err := sp.Migrate(context.Background()); err != nil {
				return nil, err
			}
		}
		s = sp
	}

	var broker EventBroker
	if os.Getenv("REDIS_URL") != "" {
		if rb, err := NewRedisBroker(); err == nil {
			broker = rb
		} else {
			broker = NewBroker()
		}
	} else {
		broker = NewBroker()
	}

	fuel := &cost.FuelRates{DefaultPerKm: cfg.Fuel.DefaultPerKm, PerUnitType: cfg.Fuel.PerUnitType}
	toll := &cost.TollRates{DefaultPerKm: cfg.Toll.DefaultPerKm, PerClass: cfg.Toll.PerClass}
	eng := engine.New(engine.Params{
		AvgSpeedKmh:    cfg.Workload.AvgSpeedKmh,
		ServiceTimeMin: cfg.Workload.ServiceTimeMin,
		TargetKmPerDay: cfg.Workload.TargetKmPerDay,
		UnderloadPct:   cfg.Workload.UnderloadPct,
		OverloadPct:    cfg.Workload.OverloadPct,
		Depot:          cfg.Depot(),
		DayStart:       cfg.Workload.DayStart,
	}, nil, fuel, toll)

	var dirs *directions.Client
	if cfg.Directions.BaseURL != "" {
		dirs = directions.NewClient(cfg.Directions.BaseURL, cfg.Directions.APIKey, cfg.Directions.RPS)
		if os.Getenv("REDIS_URL") != "" {
			if rc, err := directions.NewRedisCache(os.Getenv("REDIS_URL")); err == nil {
				dirs = dirs.WithCache(rc)
			}
		}
	}

	return &Server{
		Store:      s,
		Engine:     eng,
		Pub:        notify.NewPublisher(s),
		Broker:     broker,
		Directions: dirs,
		cfg:        cfg,
	}, nil
}

// NewWebhookWorker creates the background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *notify.Worker {
	return notify.NewWorker(s.Store)
}
