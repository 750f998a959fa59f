// Package ratelimit tracks upstream throttling signals and refuses calls while
// an upstream has asked the gateway to back off. Nothing is retried.
package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/goliatone/go-upstream-gateway/core"
)

const (
	defaultInitialBackoff = time.Second
	defaultMaxBackoff     = time.Minute
)

// AdaptivePolicy opens a throttle window after a 429, or after a response
// reporting an exhausted quota, and rejects calls until it closes.
type AdaptivePolicy struct {
	Store          StateStore
	Clock          clock.Clock
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func NewAdaptivePolicy(store StateStore, clk clock.Clock) *AdaptivePolicy {
	if clk == nil {
		clk = clock.New()
	}
	return &AdaptivePolicy{
		Store:          store,
		Clock:          clk,
		InitialBackoff: defaultInitialBackoff,
		MaxBackoff:     defaultMaxBackoff,
	}
}

func (p *AdaptivePolicy) BeforeCall(ctx context.Context, key core.RateLimitKey) error {
	if p == nil || p.Store == nil {
		return nil
	}
	key = normalizeKey(key)
	state, err := p.Store.Get(ctx, key)
	if errors.Is(err, ErrStateNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	now := p.now()
	wait, throttled := state.blockedFor(now)
	if !throttled {
		return nil
	}
	return core.NewRateLimited("Upstream rate limit reached, try again later", map[string]any{
		"upstream":       key.Upstream,
		"bucket":         key.BucketKey,
		"retry_after_ms": wait.Milliseconds(),
	})
}

func (p *AdaptivePolicy) AfterCall(ctx context.Context, key core.RateLimitKey, res core.UpstreamResponseMeta) error {
	if p == nil || p.Store == nil {
		return nil
	}
	key = normalizeKey(key)
	now := p.now()
	state, err := p.Store.Get(ctx, key)
	switch {
	case errors.Is(err, ErrStateNotFound):
		state = State{Key: key}
	case err != nil:
		return err
	}

	signals := readSignals(res, now)
	state.LastStatus = res.StatusCode
	state.UpdatedAt = now
	state.RetryAfter = nil
	if signals.hasLimit {
		state.Limit = signals.limit
	}
	if signals.hasRemaining {
		state.Remaining = signals.remaining
	}
	if signals.hasResetAt {
		resetAt := signals.resetAt
		state.ResetAt = &resetAt
	}
	if signals.hasRetryAfter {
		retryAfter := signals.retryAfter
		state.RetryAfter = &retryAfter
	}
	for k, v := range res.Metadata {
		if state.Metadata == nil {
			state.Metadata = map[string]any{}
		}
		state.Metadata[k] = v
	}

	if !signals.throttled(res.StatusCode) {
		state.Attempts = 0
		state.ThrottledUntil = nil
		return p.Store.Upsert(ctx, state)
	}

	state.Attempts++
	delay := signals.retryAfter
	if !signals.hasRetryAfter {
		delay = p.backoff(state.Attempts)
	}
	until := now.Add(delay)
	state.ThrottledUntil = &until
	return p.Store.Upsert(ctx, state)
}

func (p *AdaptivePolicy) now() time.Time {
	if p.Clock == nil {
		return time.Now().UTC()
	}
	return p.Clock.Now().UTC()
}

// backoff doubles from InitialBackoff per consecutive throttled response,
// capped at MaxBackoff.
func (p *AdaptivePolicy) backoff(attempt int) time.Duration {
	delay := p.InitialBackoff
	if delay <= 0 {
		delay = defaultInitialBackoff
	}
	ceiling := p.MaxBackoff
	if ceiling <= 0 {
		ceiling = defaultMaxBackoff
	}
	for i := 1; i < attempt && delay < ceiling; i++ {
		delay *= 2
	}
	if delay > ceiling {
		return ceiling
	}
	return delay
}

func (s State) blockedFor(now time.Time) (time.Duration, bool) {
	if s.ThrottledUntil != nil && now.Before(*s.ThrottledUntil) {
		return s.ThrottledUntil.Sub(now), true
	}
	if s.Remaining == 0 && s.ResetAt != nil && now.Before(*s.ResetAt) {
		return s.ResetAt.Sub(now), true
	}
	return 0, false
}

func normalizeKey(key core.RateLimitKey) core.RateLimitKey {
	bucket := strings.TrimSpace(strings.ToLower(key.BucketKey))
	if bucket == "" {
		bucket = "default"
	}
	return core.RateLimitKey{
		Upstream:  strings.TrimSpace(strings.ToLower(key.Upstream)),
		BucketKey: bucket,
	}
}

func isServerError(status int) bool {
	return status >= http.StatusInternalServerError
}

var _ core.RateLimitPolicy = (*AdaptivePolicy)(nil)
