package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	persistence "github.com/goliatone/go-persistence-bun"

	"github.com/goliatone/go-upstream-gateway/core"
	"github.com/goliatone/go-upstream-gateway/ratelimit"
)

func newSQLiteClient(t *testing.T) *persistence.Client {
	t.Helper()
	client, err := Open(context.Background(), core.StoreConfig{
		Driver: core.StoreDriverSQLite,
		DSN:    fmt.Sprintf("file:gateway-store-%d?mode=memory&cache=shared", time.Now().UnixNano()),
	}, "gateway-tests")
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestOpen_AppliesMigrations(t *testing.T) {
	client := newSQLiteClient(t)

	var tableName string
	if err := client.DB().NewRaw(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
		"gateway_throttle_state",
	).Scan(context.Background(), &tableName); err != nil {
		t.Fatalf("query sqlite master: %v", err)
	}
	if tableName != "gateway_throttle_state" {
		t.Fatalf("expected gateway_throttle_state table, got %q", tableName)
	}
}

func TestOpen_RejectsMissingDSNAndUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), core.StoreConfig{}, "tests"); err == nil {
		t.Fatalf("expected missing dsn to fail")
	}
	if _, err := Open(context.Background(), core.StoreConfig{Driver: "mysql", DSN: "x"}, "tests"); err == nil {
		t.Fatalf("expected unsupported driver to fail")
	}
}

func TestThrottleStateStore_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	store, err := NewThrottleStateStore(newSQLiteClient(t).DB())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	key := core.RateLimitKey{Upstream: " Reseller ", BucketKey: "Default"}

	if _, err := store.Get(ctx, key); !errors.Is(err, ratelimit.ErrStateNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	until := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	retry := 1500 * time.Millisecond
	if err := store.Upsert(ctx, ratelimit.State{
		Key:            key,
		Limit:          100,
		Remaining:      0,
		RetryAfter:     &retry,
		ThrottledUntil: &until,
		LastStatus:     http.StatusTooManyRequests,
		Attempts:       2,
		UpdatedAt:      until.Add(-time.Minute),
		Metadata:       map[string]any{"source": "header"},
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := store.Get(ctx, core.RateLimitKey{Upstream: "reseller", BucketKey: "default"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Key.Upstream != "reseller" || got.Limit != 100 || got.Attempts != 2 || got.LastStatus != http.StatusTooManyRequests {
		t.Fatalf("unexpected state %#v", got)
	}
	if got.ThrottledUntil == nil || !got.ThrottledUntil.Equal(until) {
		t.Fatalf("expected throttled until %s, got %v", until, got.ThrottledUntil)
	}
	if got.RetryAfter == nil || *got.RetryAfter != time.Second {
		t.Fatalf("expected retry after stored in whole seconds, got %v", got.RetryAfter)
	}
	if got.Metadata["source"] != "header" {
		t.Fatalf("expected metadata round trip, got %#v", got.Metadata)
	}

	if err := store.Upsert(ctx, ratelimit.State{Key: key, LastStatus: http.StatusOK, UpdatedAt: until}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	var count int
	if err := store.db.NewRaw("SELECT COUNT(*) FROM gateway_throttle_state").Scan(ctx, &count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected upsert to update in place, got %d rows", count)
	}
	got, err = store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.ThrottledUntil != nil || got.Attempts != 0 || got.LastStatus != http.StatusOK {
		t.Fatalf("expected cleared throttle window, got %#v", got)
	}
}

func TestThrottleStateStore_RejectsEmptyKey(t *testing.T) {
	store, err := NewThrottleStateStore(newSQLiteClient(t).DB())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Upsert(context.Background(), ratelimit.State{Key: core.RateLimitKey{BucketKey: "default"}}); err == nil {
		t.Fatalf("expected missing upstream to fail")
	}
	if _, err := NewThrottleStateStore(nil); err == nil {
		t.Fatalf("expected nil db to fail")
	}
}

func TestAdaptivePolicy_ThrottleWindowSurvivesNewPolicy(t *testing.T) {
	ctx := context.Background()
	client := newSQLiteClient(t)
	store, err := NewStateStore(client, 0)
	if err != nil {
		t.Fatalf("new state store: %v", err)
	}
	clk := clock.NewMock()
	clk.Set(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	key := core.RateLimitKey{Upstream: core.UpstreamReseller, BucketKey: "default"}

	first := ratelimit.NewAdaptivePolicy(store, clk)
	if err := first.AfterCall(ctx, key, core.UpstreamResponseMeta{
		StatusCode: http.StatusTooManyRequests,
		Headers:    map[string]string{"Retry-After": "120"},
	}); err != nil {
		t.Fatalf("after call: %v", err)
	}

	restarted := ratelimit.NewAdaptivePolicy(store, clk)
	err = restarted.BeforeCall(ctx, key)
	if err == nil {
		t.Fatalf("expected persisted throttle window to block the call")
	}
	if status := core.AsGatewayError(err).Code; status != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", status)
	}

	clk.Add(121 * time.Second)
	if err := restarted.BeforeCall(ctx, key); err != nil {
		t.Fatalf("expected window to expire, got %v", err)
	}
}
