package transport

import (
	"context"
	"testing"

	"github.com/goliatone/go-upstream-gateway/core"
)

type staticAdapter struct {
	kind string
}

func (a staticAdapter) Kind() string { return a.kind }

func (a staticAdapter) Do(context.Context, core.UpstreamRequest) (core.UpstreamResponse, error) {
	return core.UpstreamResponse{StatusCode: 200}, nil
}

func TestRegistry_RegisterGetAndListDeterministic(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(staticAdapter{kind: "relay"}); err != nil {
		t.Fatalf("register relay adapter: %v", err)
	}
	if err := registry.Register(staticAdapter{kind: " REST "}); err != nil {
		t.Fatalf("register rest adapter: %v", err)
	}
	if _, ok := registry.Get("rest"); !ok {
		t.Fatalf("expected rest adapter to be registered")
	}
	if err := registry.Register(staticAdapter{kind: "rest"}); err == nil {
		t.Fatalf("expected duplicate kind to be rejected")
	}
	if err := registry.Register(staticAdapter{kind: ""}); err == nil {
		t.Fatalf("expected empty kind to be rejected")
	}

	kinds := registry.Kinds()
	if len(kinds) != 2 || kinds[0] != "relay" || kinds[1] != "rest" {
		t.Fatalf("expected sorted kinds, got %#v", kinds)
	}
}
