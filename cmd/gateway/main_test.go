package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	gateway "github.com/goliatone/go-upstream-gateway"
	"github.com/goliatone/go-upstream-gateway/adapters/prommetrics"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	registry := prometheus.NewRegistry()
	gw, err := gateway.New(gateway.DefaultConfig(), gateway.WithMetrics(prommetrics.NewRecorder(registry)))
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	server := httptest.NewServer(newRouter(gw, registry))
	t.Cleanup(server.Close)
	return server
}

func TestRouter_Healthz(t *testing.T) {
	server := newTestServer(t)
	res, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("get healthz: %v", err)
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	if res.StatusCode != http.StatusOK || string(body) != `{"status":"ok"}` {
		t.Fatalf("unexpected healthz %d %s", res.StatusCode, string(body))
	}
}

func TestRouter_GatewayRoutesAndMetrics(t *testing.T) {
	server := newTestServer(t)

	res, err := http.Post(server.URL+gateway.RouteVoucherGame, "application/json", strings.NewReader(`{"action":"purchase"}`))
	if err != nil {
		t.Fatalf("post voucher: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.StatusCode)
	}

	res, err = http.Post(server.URL+"/api/nowhere", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("post unknown: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.StatusCode)
	}

	res, err = http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(body), "gateway_requests_total") {
		t.Fatalf("expected request counter in metrics output")
	}
}
