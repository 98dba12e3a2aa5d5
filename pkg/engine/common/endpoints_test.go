package common

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/watt-labs/triad/pkg/router"
	"github.com/watt-labs/triad/pkg/wire"
)

func TestHealthEndpointReportsStats(t *testing.T) {
	reg := prometheus.NewRegistry()
	stats := NewStats("test", reg)
	stats.TotalRequests.Add(5)

	r := router.New()
	Mount(r, stats, func() map[string]any { return map[string]any{"engine": "test"} }, reg)

	req := wire.NewRequest(wire.MethodGET, "/health", "")
	resp, err := r.Route(context.Background(), req).Wait(context.Background())
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if resp.Status != 200 {
		t.Fatalf("status = %d", resp.Status)
	}
	var snap Snapshot
	if err := json.Unmarshal(resp.Body, &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if snap.TotalRequests != 5 {
		t.Fatalf("totalRequests = %d, want 5", snap.TotalRequests)
	}
}

func TestInfoEndpointIncludesRuntimeFacts(t *testing.T) {
	reg := prometheus.NewRegistry()
	stats := NewStats("test", reg)
	r := router.New()
	Mount(r, stats, func() map[string]any { return map[string]any{"port": 8080} }, reg)

	req := wire.NewRequest(wire.MethodGET, "/info", "")
	resp, _ := r.Route(context.Background(), req).Wait(context.Background())

	var body map[string]any
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := body["goVersion"]; !ok {
		t.Fatalf("missing goVersion in /info: %v", body)
	}
	if body["port"] != float64(8080) {
		t.Fatalf("missing configured port in /info: %v", body)
	}
}

func TestMetricsPromEndpointServesExpositionFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	stats := NewStats("test", reg)
	r := router.New()
	Mount(r, stats, func() map[string]any { return map[string]any{} }, reg)

	req := wire.NewRequest(wire.MethodGET, "/metrics/prom", "")
	resp, err := r.Route(context.Background(), req).Wait(context.Background())
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if resp.Status != 200 {
		t.Fatalf("status = %d", resp.Status)
	}
	if len(resp.Body) == 0 {
		t.Fatalf("expected non-empty prometheus exposition body")
	}
}
