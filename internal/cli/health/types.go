// Package health decodes the operator API's response envelopes for the
// CLI.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Envelope is the API's response wrapper.
type Envelope[T any] struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Data      T      `json:"data"`
	Error     string `json:"error,omitempty"`
}

// Liveness is the payload of GET /health.
type Liveness struct {
	Service   string `json:"service"`
	StartedAt string `json:"started_at"`
	Uptime    string `json:"uptime"`
	UptimeSec int64  `json:"uptime_sec"`
}

// Readiness is the payload of GET /health/ready.
type Readiness struct {
	Backend           string `json:"backend"`
	Latency           string `json:"latency,omitempty"`
	ActiveConnections int32  `json:"active_connections"`
}

// Get fetches path from the API at base and decodes the envelope. Non-2xx
// responses still decode; the HTTP status is returned alongside.
func Get[T any](ctx context.Context, client *http.Client, base, path string) (*Envelope[T], int, error) {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	url := strings.TrimRight(base, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	var env Envelope[T]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode %s: %w", url, err)
	}
	return &env, resp.StatusCode, nil
}
