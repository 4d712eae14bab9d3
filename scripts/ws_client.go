// Package main runs a demo WebSocket client for workload events.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Seed one overloaded vehicle
	vehicleID := postJSON(base+"/v1/vehicles", `{"label":"demo-truck"}`)
	log.Printf("Vehicle ID: %s", vehicleID)
	tripBody := fmt.Sprintf(`{"folio":"DEMO-1","vehicleId":%q,"distanceKm":500}`, vehicleID)
	_ = postJSON(base+"/v1/trips", tripBody)

	// Connect WS
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/workload/stream"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m map[string]any
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %v", m)
		}
	}()

	// Trigger alerts; overload events fan out to the stream
	time.Sleep(500 * time.Millisecond)
	resp, err := http.Get(base + "/v1/workload/alerts")
	if err != nil {
		log.Fatal(err)
	}
	_ = resp.Body.Close()

	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
}

func postJSON(endpoint, body string) string {
	req, _ := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Fatal(err)
	}
	return out.ID
}
