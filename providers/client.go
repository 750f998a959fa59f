package providers

import (
	"context"
	"time"

	"github.com/goliatone/go-upstream-gateway/core"
)

// Client runs one upstream call: rate-limit check, signing, transport,
// rate-limit bookkeeping and observation. It never retries.
type Client struct {
	Upstream  string
	Transport core.TransportAdapter
	Signer    core.Signer
	RateLimit core.RateLimitPolicy
	Observer  *core.Observer
}

func (c *Client) Call(ctx context.Context, operation string, req core.UpstreamRequest) (core.UpstreamResponse, error) {
	if c == nil || c.Transport == nil {
		return core.UpstreamResponse{}, core.NewInternalFault(nil, "providers: upstream transport is not configured", map[string]any{
			"operation": operation,
		})
	}
	key := core.RateLimitKey{Upstream: c.Upstream, BucketKey: operation}
	if c.RateLimit != nil {
		if err := c.RateLimit.BeforeCall(ctx, key); err != nil {
			c.Observer.Count(ctx, core.MetricRateLimited, map[string]string{"upstream": c.Upstream, "operation": operation})
			return core.UpstreamResponse{}, err
		}
	}
	if c.Signer != nil {
		if err := c.Signer.Sign(ctx, &req); err != nil {
			return core.UpstreamResponse{}, err
		}
	}
	if req.Headers == nil {
		req.Headers = map[string]string{}
	}
	if _, ok := req.Headers["Accept"]; !ok {
		req.Headers["Accept"] = "application/json"
	}
	if len(req.Body) > 0 {
		if _, ok := req.Headers["Content-Type"]; !ok {
			req.Headers["Content-Type"] = "application/json"
		}
	}

	startedAt := time.Now()
	res, err := c.Transport.Do(ctx, req)
	fields := map[string]any{"transport": c.Transport.Kind()}
	if err != nil {
		c.Observer.ObserveUpstreamCall(ctx, startedAt, c.Upstream, operation, 0, err, fields)
		return core.UpstreamResponse{}, err
	}
	if c.RateLimit != nil {
		meta := core.UpstreamResponseMeta{
			StatusCode: res.StatusCode,
			Headers:    res.Headers,
			Metadata:   map[string]any{"operation": operation},
		}
		if rlErr := c.RateLimit.AfterCall(ctx, key, meta); rlErr != nil {
			c.Observer.Warn(ctx, "rate limit bookkeeping failed", map[string]any{
				"upstream": c.Upstream,
				"error":    rlErr.Error(),
			})
		}
	}
	c.Observer.ObserveUpstreamCall(ctx, startedAt, c.Upstream, operation, res.StatusCode, nil, fields)
	return res, nil
}
