// Package directions talks to the external road distance / directions
// service. The engine itself stays on the deterministic haversine oracle;
// this client only feeds the turn-by-turn geometry surface of the API.
package directions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"fleetload/internal/model"
)

// Result is one routed leg between two points.
type Result struct {
	DistanceKm  float64 `json:"distanceKm"`
	DurationMin float64 `json:"durationMin"`
	Polyline    string  `json:"polyline,omitempty"`
}

// Cache stores routed legs keyed by coordinate pair. Implementations may be
// lossy; a miss just costs one upstream call.
type Cache interface {
	Get(ctx context.Context, key string) (Result, bool)
	Put(ctx context.Context, key string, r Result)
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	cache   Cache
}

func NewClient(baseURL, apiKey string, rps float64) *Client {
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
	}
}

// WithCache attaches a leg cache (typically Redis) and returns the client.
func (c *Client) WithCache(cache Cache) *Client {
	c.cache = cache
	return c
}

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("directions: status %d: %s", e.Code, e.Body)
}

// Route returns the road distance, duration, and encoded polyline between two
// points. Transient upstream failures are retried with exponential backoff
// while respecting context cancellation.
func (c *Client) Route(ctx context.Context, from, to model.GeoPoint) (Result, error) {
	key := legKey(from, to)
	if c.cache != nil {
		if r, ok := c.cache.Get(ctx, key); ok {
			return r, nil
		}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return Result{}, err
	}

	q := url.Values{}
	q.Set("from", fmt.Sprintf("%f,%f", from.Lat, from.Lng))
	q.Set("to", fmt.Sprintf("%f,%f", to.Lat, to.Lng))
	endpoint := c.baseURL + "/route?" + q.Encode()

	resp, err := c.doWithRetry(ctx, endpoint)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	var out struct {
		Routes []struct {
			DistanceMeters  int    `json:"distanceMeters"`
			DurationSeconds int    `json:"durationSeconds"`
			Polyline        string `json:"polyline"`
		} `json:"routes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("directions: decode response: %w", err)
	}
	if len(out.Routes) == 0 {
		return Result{}, errors.New("directions: no route data")
	}
	r := Result{
		DistanceKm:  float64(out.Routes[0].DistanceMeters) / 1000,
		DurationMin: float64(out.Routes[0].DurationSeconds) / 60,
		Polyline:    out.Routes[0].Polyline,
	}
	if c.cache != nil {
		c.cache.Put(ctx, key, r)
	}
	return r, nil
}

func (c *Client) doWithRetry(ctx context.Context, endpoint string) (*http.Response, error) {
	const maxAttempts = 4
	backoff := 200 * time.Millisecond
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("directions: create request: %w", err)
		}
		if c.apiKey != "" {
			req.Header.Set("Authorization", c.apiKey)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err == nil && resp.StatusCode < 400 {
			return resp, nil
		}
		if err == nil {
			b, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			lastErr = &httpStatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
		} else {
			lastErr = err
		}

		if !retryable(lastErr) || attempt == maxAttempts {
			return nil, lastErr
		}
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
	return nil, lastErr
}

func retryable(err error) bool {
	var he *httpStatusError
	if errors.As(err, &he) {
		switch he.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// legKey rounds to ~11 m so nearby lookups share cache entries.
func legKey(from, to model.GeoPoint) string {
	return fmt.Sprintf("leg:%.4f,%.4f|%.4f,%.4f", from.Lat, from.Lng, to.Lat, to.Lng)
}
