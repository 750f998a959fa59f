package slip

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/goliatone/go-upstream-gateway/auth"
	"github.com/goliatone/go-upstream-gateway/core"
	"github.com/goliatone/go-upstream-gateway/providers"
	"github.com/goliatone/go-upstream-gateway/providers/devkit"
)

func TestVerify_SignsAndForwards(t *testing.T) {
	transport := devkit.NewFakeTransportAdapter("rest", devkit.JSON(200, `{"valid":true,"amount":150}`))
	adapter := New(Config{BaseURL: "https://slip.example/", APIKey: "k-9"}, &providers.Client{
		Upstream:  core.UpstreamSlip,
		Transport: transport,
		Signer:    auth.NewAPIKeySigner("k-9"),
	})

	env, err := adapter.Verify().Query(context.Background(), VerifyRequest{Data: json.RawMessage(`{"qr":"000201"}`)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.StatusCode != http.StatusOK || string(env.Body) != `{"amount":150,"valid":true}` {
		t.Fatalf("unexpected envelope %d %s", env.StatusCode, string(env.Body))
	}
	req := transport.Requests()[0]
	if req.URL != "https://slip.example/api/v1/verify" || req.Headers[auth.HeaderAPIKey] != "k-9" {
		t.Fatalf("unexpected upstream request %s %v", req.URL, req.Headers)
	}
	if string(req.Body) != `{"qr":"000201"}` {
		t.Fatalf("unexpected body %s", string(req.Body))
	}
}

func TestVerify_ErrorsAreFlattened(t *testing.T) {
	transport := devkit.NewFakeTransportAdapter("rest", devkit.JSON(400, `{"code":"E1","message":"slip expired","details":{}}`))
	adapter := New(Config{BaseURL: "https://slip.example", APIKey: "k-9"}, &providers.Client{
		Transport: transport,
		Signer:    auth.NewAPIKeySigner("k-9"),
	})
	env, err := adapter.Verify().Query(context.Background(), VerifyRequest{Data: json.RawMessage(`{"qr":"x"}`)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.StatusCode != http.StatusBadRequest || string(env.Body) != `{"message":"slip expired"}` {
		t.Fatalf("unexpected envelope %d %s", env.StatusCode, string(env.Body))
	}
}

func TestVerify_Validation(t *testing.T) {
	if err := (VerifyRequest{}).Validate(); err == nil {
		t.Fatalf("expected missing data to fail")
	}
	adapter := New(Config{}, &providers.Client{Transport: devkit.NewFakeTransportAdapter("rest")})
	_, err := adapter.Verify().Query(context.Background(), VerifyRequest{Data: json.RawMessage(`{"qr":"x"}`)})
	if env := core.EnvelopeFromError(err); env.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 for missing configuration, got %d", env.StatusCode)
	}
}
