package auth

import (
	"context"
	"testing"

	"github.com/goliatone/go-upstream-gateway/core"
)

type fixedTokens string

func (f fixedTokens) GetToken(context.Context) (string, error) { return string(f), nil }

func TestSigners_SetHeaders(t *testing.T) {
	req := core.UpstreamRequest{}
	if err := NewBasicSigner("key", "").Sign(context.Background(), &req); err != nil {
		t.Fatalf("basic sign: %v", err)
	}
	if req.Headers[HeaderAuthorization] != "Basic a2V5Og==" {
		t.Fatalf("unexpected basic header %q", req.Headers[HeaderAuthorization])
	}

	if err := NewBearerSigner(fixedTokens("tok")).Sign(context.Background(), &req); err != nil {
		t.Fatalf("bearer sign: %v", err)
	}
	if req.Headers[HeaderAuthorization] != "Bearer tok" {
		t.Fatalf("unexpected bearer header %q", req.Headers[HeaderAuthorization])
	}

	if err := NewAPIKeySigner("slip-key").Sign(context.Background(), &req); err != nil {
		t.Fatalf("api key sign: %v", err)
	}
	if req.Headers[HeaderAPIKey] != "slip-key" {
		t.Fatalf("unexpected api key header %q", req.Headers[HeaderAPIKey])
	}
}

func TestSigners_RejectMissingCredential(t *testing.T) {
	req := core.UpstreamRequest{}
	if err := NewBasicSigner("", "pw").Sign(context.Background(), &req); err == nil {
		t.Fatalf("expected basic signer error")
	}
	if err := NewAPIKeySigner(" ").Sign(context.Background(), &req); err == nil {
		t.Fatalf("expected api key signer error")
	}
	if err := (BearerSigner{}).Sign(context.Background(), &req); err == nil {
		t.Fatalf("expected bearer signer error")
	}
}
