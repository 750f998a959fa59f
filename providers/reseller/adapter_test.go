package reseller

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/goliatone/go-upstream-gateway/auth"
	"github.com/goliatone/go-upstream-gateway/core"
	"github.com/goliatone/go-upstream-gateway/providers"
	"github.com/goliatone/go-upstream-gateway/providers/devkit"
)

func newTestAdapter(transport *devkit.FakeTransportAdapter) *Adapter {
	return New(Config{BaseURL: "https://reseller.example/", APIKey: "key-1"}, &providers.Client{
		Upstream:  core.UpstreamReseller,
		Transport: transport,
		Signer:    auth.NewBasicSigner("key-1", ""),
	})
}

func decode(t *testing.T, env core.Envelope) map[string]any {
	t.Helper()
	out := map[string]any{}
	if err := json.Unmarshal(env.Body, &out); err != nil {
		t.Fatalf("decode envelope body %q: %v", string(env.Body), err)
	}
	return out
}

func TestCheckOrder_ReshapesOrderDocument(t *testing.T) {
	transport := devkit.NewFakeTransportAdapter("relay",
		devkit.JSON(200, `{"status":true,"data":{"order_id":"X1","status":"success","price":1200,"sn":"secret"},"message":"ok"}`),
	)
	adapter := newTestAdapter(transport)

	env, err := adapter.CheckOrder().Query(context.Background(), CheckOrderRequest{OrderID: "X1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", env.StatusCode)
	}
	body := decode(t, env)
	if body["success"] != true {
		t.Fatalf("expected success true, got %#v", body["success"])
	}
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %#v", body["data"])
	}
	want := map[string]any{"order_id": "X1", "status": "success", "message": "ok"}
	if len(data) != len(want) {
		t.Fatalf("expected only %v, got %v", want, data)
	}
	for key, value := range want {
		if data[key] != value {
			t.Fatalf("expected data.%s=%v, got %v", key, value, data[key])
		}
	}

	requests := transport.Requests()
	if len(requests) != 1 {
		t.Fatalf("expected one upstream call, got %d", len(requests))
	}
	req := requests[0]
	if req.Method != http.MethodPost || req.URL != "https://reseller.example/v1/orders/check" {
		t.Fatalf("unexpected upstream request %s %s", req.Method, req.URL)
	}
	wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("key-1:"))
	if req.Headers["Authorization"] != wantAuth {
		t.Fatalf("expected basic auth header, got %q", req.Headers["Authorization"])
	}
	sent := map[string]any{}
	if err := json.Unmarshal(req.Body, &sent); err != nil {
		t.Fatalf("decode upstream body: %v", err)
	}
	if sent["order_id"] != "X1" {
		t.Fatalf("expected order_id X1, got %#v", sent)
	}
}

func TestRoutes_MissingResourceIsEmptyResult(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusTeapot} {
		transport := devkit.NewFakeTransportAdapter("relay", devkit.JSON(status, `{"message":"not here"}`))
		adapter := newTestAdapter(transport)
		ctx := context.Background()

		results := map[string]func() (core.Envelope, error){
			"passthrough": func() (core.Envelope, error) {
				return adapter.Passthrough().Query(ctx, PassthroughRequest{Endpoint: "v1/products"})
			},
			"check_order": func() (core.Envelope, error) {
				return adapter.CheckOrder().Query(ctx, CheckOrderRequest{OrderID: "X1"})
			},
			"topup": func() (core.Envelope, error) {
				return adapter.Topup().Query(ctx, TopupRequest{ProductID: "P1", ProductData: json.RawMessage(`{"phone":"1"}`)})
			},
		}
		for name, run := range results {
			env, err := run()
			if err != nil {
				t.Fatalf("%s/%d: unexpected error: %v", name, status, err)
			}
			if env.StatusCode != http.StatusOK {
				t.Fatalf("%s/%d: expected 200, got %d", name, status, env.StatusCode)
			}
			data, ok := decode(t, env)["data"].([]any)
			if !ok || len(data) != 0 {
				t.Fatalf("%s/%d: expected empty data, got %s", name, status, string(env.Body))
			}
		}
	}
}

func TestRoutes_ProxyAuthFailureIsInternal(t *testing.T) {
	transport := devkit.NewFakeTransportAdapter("relay", devkit.JSON(http.StatusProxyAuthRequired, `{}`))
	adapter := newTestAdapter(transport)

	env, err := adapter.Passthrough().Query(context.Background(), PassthroughRequest{Endpoint: "v1/products"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", env.StatusCode)
	}
}

func TestTopup_DeclinedIsBadRequest(t *testing.T) {
	transport := devkit.NewFakeTransportAdapter("relay",
		devkit.JSON(200, `{"status":false,"message":"insufficient balance"}`),
	)
	adapter := newTestAdapter(transport)

	env, err := adapter.Topup().Query(context.Background(), TopupRequest{
		ProductID:   "P1",
		ProductData: json.RawMessage(`{"phone":"0812"}`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", env.StatusCode)
	}
	body := decode(t, env)
	if body["success"] != false {
		t.Fatalf("expected success false, got %#v", body["success"])
	}
	sent := map[string]any{}
	if err := json.Unmarshal(transport.Requests()[0].Body, &sent); err != nil {
		t.Fatalf("decode upstream body: %v", err)
	}
	data, ok := sent["data"].(map[string]any)
	if sent["product_id"] != "P1" || !ok || data["phone"] != "0812" {
		t.Fatalf("unexpected topup payload %#v", sent)
	}
}

func TestCheckOrder_DeclinedStaysOK(t *testing.T) {
	transport := devkit.NewFakeTransportAdapter("relay",
		devkit.JSON(200, `{"status":false,"message":"order not paid"}`),
	)
	env, err := newTestAdapter(transport).CheckOrder().Query(context.Background(), CheckOrderRequest{OrderID: "X2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", env.StatusCode)
	}
}

func TestPassthrough_ForwardsMethodAndBody(t *testing.T) {
	transport := devkit.NewFakeTransportAdapter("relay", devkit.JSON(201, `{"id":"n1"}`))
	adapter := newTestAdapter(transport)

	env, err := adapter.Passthrough().Query(context.Background(), PassthroughRequest{
		Endpoint: "/v1/notes",
		Method:   "post",
		Body:     json.RawMessage(`{"a":1}`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.StatusCode != http.StatusCreated {
		t.Fatalf("expected upstream status to pass through, got %d", env.StatusCode)
	}
	req := transport.Requests()[0]
	if req.Method != http.MethodPost || req.URL != "https://reseller.example/v1/notes" {
		t.Fatalf("unexpected upstream request %s %s", req.Method, req.URL)
	}
	if string(req.Body) != `{"a":1}` {
		t.Fatalf("expected body forwarded, got %q", string(req.Body))
	}
}

func TestPassthrough_ErrorBodyIsFlattened(t *testing.T) {
	transport := devkit.NewFakeTransportAdapter("relay",
		devkit.JSON(422, `{"error":{"message":"bad product"},"trace":"x"}`),
	)
	env, err := newTestAdapter(transport).Passthrough().Query(context.Background(), PassthroughRequest{Endpoint: "v1/x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := decode(t, env)
	if env.StatusCode != 422 || body["message"] != "bad product" || len(body) != 1 {
		t.Fatalf("unexpected envelope %d %s", env.StatusCode, string(env.Body))
	}
}

func TestRoutes_MissingConfigurationIsInternalFault(t *testing.T) {
	transport := devkit.NewFakeTransportAdapter("relay")
	adapter := New(Config{BaseURL: "https://reseller.example"}, &providers.Client{
		Upstream:  core.UpstreamReseller,
		Transport: transport,
	})

	_, err := adapter.CheckOrder().Query(context.Background(), CheckOrderRequest{OrderID: "X1"})
	if err == nil {
		t.Fatalf("expected missing configuration error")
	}
	env := core.EnvelopeFromError(err)
	if env.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", env.StatusCode)
	}
	if transport.CallCount() != 0 {
		t.Fatalf("expected no upstream call")
	}
}

func TestRoutes_TransportFailureIsUnavailable(t *testing.T) {
	transport := devkit.NewFakeTransportAdapter("relay", devkit.TransportScript{
		Err: core.NewUpstreamUnavailable(nil, "Upstream service is unavailable", nil),
	})
	_, err := newTestAdapter(transport).CheckOrder().Query(context.Background(), CheckOrderRequest{OrderID: "X1"})
	if !core.IsUpstreamUnavailable(err) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

func TestMessages_Validate(t *testing.T) {
	if err := (CheckOrderRequest{}).Validate(); err == nil {
		t.Fatalf("expected missing orderId to fail")
	}
	if err := (TopupRequest{ProductID: "P1"}).Validate(); err == nil {
		t.Fatalf("expected missing productData to fail")
	}
	if err := (PassthroughRequest{Endpoint: "v1/x", Method: "TRACE"}).Validate(); err == nil {
		t.Fatalf("expected unsupported method to fail")
	}
	if err := (PassthroughRequest{Endpoint: "v1/x"}).Validate(); err != nil {
		t.Fatalf("expected default method to validate: %v", err)
	}
}
