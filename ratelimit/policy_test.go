package ratelimit

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-upstream-gateway/core"
)

func newTestPolicy() (*AdaptivePolicy, *MemoryStateStore, *clock.Mock) {
	mock := clock.NewMock()
	mock.Set(time.Unix(1_700_000_000, 0).UTC())
	store := NewMemoryStateStore()
	return NewAdaptivePolicy(store, mock), store, mock
}

var resellerKey = core.RateLimitKey{Upstream: core.UpstreamReseller, BucketKey: "topup"}

func TestAdaptivePolicy_AllowsWithoutState(t *testing.T) {
	policy, _, _ := newTestPolicy()
	if err := policy.BeforeCall(context.Background(), resellerKey); err != nil {
		t.Fatalf("expected no error without state, got %v", err)
	}
}

func TestAdaptivePolicy_RecordsQuotaHeaders(t *testing.T) {
	policy, store, mock := newTestPolicy()
	err := policy.AfterCall(context.Background(), resellerKey, core.UpstreamResponseMeta{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			"X-Ratelimit-Limit":     "100",
			"X-Ratelimit-Remaining": "99",
			"X-Ratelimit-Reset":     "1700000045",
		},
		Metadata: map[string]any{"route": "/api/reseller-topup"},
	})
	if err != nil {
		t.Fatalf("after call: %v", err)
	}
	state, err := store.Get(context.Background(), resellerKey)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state.Limit != 100 || state.Remaining != 99 {
		t.Fatalf("unexpected quota %d/%d", state.Remaining, state.Limit)
	}
	if state.ResetAt == nil || !state.ResetAt.Equal(mock.Now().Add(45*time.Second)) {
		t.Fatalf("unexpected reset %v", state.ResetAt)
	}
	if state.Metadata["route"] != "/api/reseller-topup" {
		t.Fatalf("expected metadata, got %#v", state.Metadata)
	}
	if err := policy.BeforeCall(context.Background(), resellerKey); err != nil {
		t.Fatalf("expected call to be allowed, got %v", err)
	}
}

func TestAdaptivePolicy_RejectsAfter429UntilRetryAfter(t *testing.T) {
	policy, _, mock := newTestPolicy()
	err := policy.AfterCall(context.Background(), resellerKey, core.UpstreamResponseMeta{
		StatusCode: http.StatusTooManyRequests,
		Headers:    map[string]string{"Retry-After": "30"},
	})
	if err != nil {
		t.Fatalf("after call: %v", err)
	}

	err = policy.BeforeCall(context.Background(), resellerKey)
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if rich.Code != http.StatusTooManyRequests || rich.TextCode != core.GatewayErrorRateLimited {
		t.Fatalf("unexpected error %d %q", rich.Code, rich.TextCode)
	}
	if env := core.EnvelopeFromError(err); env.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 envelope, got %d", env.StatusCode)
	}

	other := core.RateLimitKey{Upstream: core.UpstreamReseller, BucketKey: "check-order"}
	if err := policy.BeforeCall(context.Background(), other); err != nil {
		t.Fatalf("expected other bucket to be unaffected, got %v", err)
	}

	mock.Add(30 * time.Second)
	if err := policy.BeforeCall(context.Background(), resellerKey); err != nil {
		t.Fatalf("expected window to close, got %v", err)
	}
}

func TestAdaptivePolicy_BackoffGrowsAndResets(t *testing.T) {
	policy, store, mock := newTestPolicy()
	ctx := context.Background()
	for attempt, want := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second} {
		if err := policy.AfterCall(ctx, resellerKey, core.UpstreamResponseMeta{StatusCode: http.StatusTooManyRequests}); err != nil {
			t.Fatalf("after call %d: %v", attempt, err)
		}
		state, _ := store.Get(ctx, resellerKey)
		if state.ThrottledUntil == nil || state.ThrottledUntil.Sub(mock.Now()) != want {
			t.Fatalf("attempt %d: expected backoff %s, got %v", attempt+1, want, state.ThrottledUntil)
		}
	}

	if err := policy.AfterCall(ctx, resellerKey, core.UpstreamResponseMeta{StatusCode: http.StatusOK}); err != nil {
		t.Fatalf("after call: %v", err)
	}
	state, _ := store.Get(ctx, resellerKey)
	if state.Attempts != 0 || state.ThrottledUntil != nil {
		t.Fatalf("expected success to reset throttle, got %#v", state)
	}
}

func TestAdaptivePolicy_BackoffIsCapped(t *testing.T) {
	policy, _, _ := newTestPolicy()
	policy.MaxBackoff = 5 * time.Second
	if got := policy.backoff(10); got != 5*time.Second {
		t.Fatalf("expected capped backoff, got %s", got)
	}
}

func TestAdaptivePolicy_ServerErrorsDoNotThrottle(t *testing.T) {
	policy, _, _ := newTestPolicy()
	err := policy.AfterCall(context.Background(), resellerKey, core.UpstreamResponseMeta{
		StatusCode: http.StatusBadGateway,
		Headers:    map[string]string{"X-RateLimit-Remaining": "0"},
	})
	if err != nil {
		t.Fatalf("after call: %v", err)
	}
	if err := policy.BeforeCall(context.Background(), resellerKey); err != nil {
		t.Fatalf("expected 5xx not to open a window, got %v", err)
	}
}
