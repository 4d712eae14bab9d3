package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"fleetload/internal/model"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

const schema = `
CREATE TABLE IF NOT EXISTS vehicles (
    id           text PRIMARY KEY,
    label        text NOT NULL,
    brand        text,
    unit_type    text,
    driver_name  text,
    tariff_class text,
    created_at   timestamptz NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS trips (
    id           text PRIMARY KEY,
    folio        text NOT NULL,
    vehicle_id   text NOT NULL REFERENCES vehicles(id),
    distance_km  double precision NOT NULL,
    dest_lat     double precision,
    dest_lng     double precision,
    window_start text,
    window_end   text,
    plan_date    text NOT NULL DEFAULT '',
    created_at   timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS trips_plan_date_idx ON trips (plan_date);
CREATE TABLE IF NOT EXISTS subscriptions (
    id         text PRIMARY KEY,
    url        text NOT NULL,
    events     text[] NOT NULL,
    secret     text,
    created_at timestamptz NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS webhook_deliveries (
    id              text PRIMARY KEY,
    subscription_id text,
    event_type      text NOT NULL,
    url             text NOT NULL,
    secret          text,
    payload         bytea NOT NULL,
    status          text NOT NULL DEFAULT 'pending',
    attempts        int NOT NULL DEFAULT 0,
    next_attempt_at timestamptz NOT NULL DEFAULT now(),
    last_error      text,
    response_code   int,
    latency_ms      int,
    delivered_at    timestamptz,
    updated_at      timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS webhook_due_idx ON webhook_deliveries (status, next_attempt_at);
`

// Migrate applies the schema. Idempotent; run at startup.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schema)
	return err
}

func (p *Postgres) CreateVehicle(ctx context.Context, v model.VehicleInfo) (model.VehicleInfo, error) {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	_, err := p.db.ExecContext(ctx, `INSERT INTO vehicles (id, label, brand, unit_type, driver_name, tariff_class)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (id) DO UPDATE SET label=$2, brand=$3, unit_type=$4, driver_name=$5, tariff_class=$6`,
		v.ID, v.Label, nullIfEmpty(v.Brand), nullIfEmpty(v.UnitType), nullIfEmpty(v.DriverName), nullIfEmpty(v.TariffClass))
	if err != nil {
		return model.VehicleInfo{}, err
	}
	return v, nil
}

func (p *Postgres) ListVehicles(ctx context.Context) ([]model.VehicleInfo, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, label, COALESCE(brand,''), COALESCE(unit_type,''), COALESCE(driver_name,''), COALESCE(tariff_class,'') FROM vehicles ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.VehicleInfo{}
	for rows.Next() {
		var v model.VehicleInfo
		if err := rows.Scan(&v.ID, &v.Label, &v.Brand, &v.UnitType, &v.DriverName, &v.TariffClass); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (p *Postgres) GetVehicle(ctx context.Context, id string) (model.VehicleInfo, error) {
	var v model.VehicleInfo
	err := p.db.QueryRowContext(ctx, `SELECT id, label, COALESCE(brand,''), COALESCE(unit_type,''), COALESCE(driver_name,''), COALESCE(tariff_class,'') FROM vehicles WHERE id=$1`, id).
		Scan(&v.ID, &v.Label, &v.Brand, &v.UnitType, &v.DriverName, &v.TariffClass)
	if errors.Is(err, sql.ErrNoRows) {
		return model.VehicleInfo{}, ErrNotFound
	}
	if err != nil {
		return model.VehicleInfo{}, err
	}
	return v, nil
}

func (p *Postgres) CreateTrip(ctx context.Context, t model.TripLoad) (model.TripLoad, error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	var lat, lng any
	if t.Destination != nil {
		lat = t.Destination.Lat
		lng = t.Destination.Lng
	}
	var ws, we any
	if t.Window != nil {
		ws = t.Window.Start
		we = t.Window.End
	}
	_, err := p.db.ExecContext(ctx, `INSERT INTO trips (id, folio, vehicle_id, distance_km, dest_lat, dest_lng, window_start, window_end, plan_date)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		t.ID, t.Folio, t.VehicleID, t.DistanceKm, lat, lng, ws, we, t.PlanDate)
	if err != nil {
		return model.TripLoad{}, err
	}
	return t, nil
}

func (p *Postgres) ListTrips(ctx context.Context, planDate string) ([]model.TripLoad, error) {
	q := `SELECT id, folio, vehicle_id, distance_km, dest_lat, dest_lng, window_start, window_end, plan_date FROM trips`
	var rows *sql.Rows
	var err error
	if planDate != "" {
		rows, err = p.db.QueryContext(ctx, q+` WHERE plan_date=$1 ORDER BY created_at, id`, planDate)
	} else {
		rows, err = p.db.QueryContext(ctx, q+` ORDER BY created_at, id`)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.TripLoad{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (p *Postgres) ReassignTrip(ctx context.Context, tripID, toVehicleID string) (model.TripLoad, error) {
	if _, err := p.GetVehicle(ctx, toVehicleID); err != nil {
		return model.TripLoad{}, err
	}
	res, err := p.db.ExecContext(ctx, `UPDATE trips SET vehicle_id=$2 WHERE id=$1`, tripID, toVehicleID)
	if err != nil {
		return model.TripLoad{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.TripLoad{}, ErrNotFound
	}
	row := p.db.QueryRowContext(ctx, `SELECT id, folio, vehicle_id, distance_km, dest_lat, dest_lng, window_start, window_end, plan_date FROM trips WHERE id=$1`, tripID)
	return scanTrip(row)
}

func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	s := model.Subscription{ID: uuid.New().String(), URL: req.URL, Events: req.Events, Secret: req.Secret}
	_, err := p.db.ExecContext(ctx, `INSERT INTO subscriptions (id, url, events, secret) VALUES ($1,$2,$3,$4)`,
		s.ID, s.URL, pqStringArray(s.Events), nullIfEmpty(s.Secret))
	if err != nil {
		return model.Subscription{}, err
	}
	return s, nil
}

func (p *Postgres) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, url, array_to_string(events, ','), COALESCE(secret,'') FROM subscriptions ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Subscription{}
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, url, array_to_string(events, ','), COALESCE(secret,'') FROM subscriptions WHERE $1 = ANY(events) OR '*' = ANY(events)`, eventType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Subscription{}
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.New().String()
	_, err := p.db.ExecContext(ctx, `INSERT INTO webhook_deliveries (id, subscription_id, event_type, url, secret, payload, status, attempts, next_attempt_at)
        VALUES ($1,$2,$3,$4,$5,$6,'pending',0,now())`,
		id, nullIfEmpty(subscriptionID), eventType, url, nullIfEmpty(secret), payload)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx, `SELECT id, COALESCE(subscription_id,''), event_type, url, COALESCE(secret,''), payload, attempts
        FROM webhook_deliveries WHERE status IN ('pending','retry') AND next_attempt_at <= now() ORDER BY next_attempt_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []WebhookDelivery{}
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Attempts); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error {
	if !success {
		if nextAttemptAt == nil {
			t := time.Now().Add(time.Minute)
			nextAttemptAt = &t
		}
		_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='retry', last_error=$2, next_attempt_at=$3, response_code=$4, latency_ms=$5, updated_at=now() WHERE id=$1`,
			id, nullIfEmpty(lastError), *nextAttemptAt, responseCode, latencyMs)
		return err
	}
	_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='delivered', delivered_at=now(), response_code=$2, latency_ms=$3, updated_at=now() WHERE id=$1`,
		id, responseCode, latencyMs)
	return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode, latencyMs int) error {
	_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='failed', last_error=$2, response_code=$3, latency_ms=$4, updated_at=now() WHERE id=$1`,
		id, nullIfEmpty(lastError), responseCode, latencyMs)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrip(r rowScanner) (model.TripLoad, error) {
	var t model.TripLoad
	var lat, lng sql.NullFloat64
	var ws, we sql.NullString
	if err := r.Scan(&t.ID, &t.Folio, &t.VehicleID, &t.DistanceKm, &lat, &lng, &ws, &we, &t.PlanDate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.TripLoad{}, ErrNotFound
		}
		return model.TripLoad{}, err
	}
	if lat.Valid && lng.Valid {
		t.Destination = &model.GeoPoint{Lat: lat.Float64, Lng: lng.Float64}
	}
	if ws.Valid || we.Valid {
		t.Window = &model.TimeWindow{Start: ws.String, End: we.String}
	}
	return t, nil
}

func scanSubscription(r rowScanner) (model.Subscription, error) {
	var s model.Subscription
	var events string
	if err := r.Scan(&s.ID, &s.URL, &events, &s.Secret); err != nil {
		return model.Subscription{}, err
	}
	if events != "" {
		s.Events = splitCSV(events)
	}
	return s, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// pqStringArray passes nil for empty slices so the column stays NULL-friendly.
func pqStringArray(v []string) any {
	if len(v) == 0 {
		return nil
	}
	return v
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
