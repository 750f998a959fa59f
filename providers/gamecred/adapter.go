// Package gamecred adapts the mobile-game credential provider. Calls carry a
// bearer token from the token cache, and catalog reads degrade to the static
// fallback catalog when the provider is hostile.
package gamecred

import (
	"context"
	"errors"
	"net/http"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-upstream-gateway/auth"
	"github.com/goliatone/go-upstream-gateway/core"
	"github.com/goliatone/go-upstream-gateway/fallback"
	"github.com/goliatone/go-upstream-gateway/normalize"
	"github.com/goliatone/go-upstream-gateway/providers"
)

const LoginPath = "/auth/login"

const (
	fallbackAuthBlocked = "auth_blocked"
	fallbackChallenge   = "challenge"
	fallbackStatus      = "upstream_status"
	fallbackUnparseable = "unparseable"
	fallbackRateLimited = "rate_limited"
)

type Config struct {
	BaseURL string
}

// TokenInvalidator drops a cached token the provider no longer accepts.
type TokenInvalidator interface {
	Invalidate()
}

type Adapter struct {
	config Config
	client *providers.Client
	tokens TokenInvalidator
	cache  repositorycache.CacheService
}

// New builds the adapter. catalogCache is optional; without it every catalog
// read goes upstream.
func New(cfg Config, client *providers.Client, tokens TokenInvalidator, catalogCache repositorycache.CacheService) *Adapter {
	return &Adapter{
		config: Config{BaseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")},
		client: client,
		tokens: tokens,
		cache:  catalogCache,
	}
}

// LoginURL is the password login endpoint under baseURL.
func LoginURL(baseURL string) string {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return ""
	}
	return baseURL + LoginPath
}

// catalogPayload is the cached form of a live catalog answer.
type catalogPayload struct {
	StatusCode int    `json:"status_code"`
	Body       []byte `json:"body"`
}

func (a *Adapter) Handler() *Handler { return &Handler{adapter: a} }

type Handler struct{ adapter *Adapter }

func (h *Handler) Query(ctx context.Context, msg Request) (core.Envelope, error) {
	a := h.adapter
	if err := a.ready(); err != nil {
		return core.Envelope{}, err
	}
	req := core.UpstreamRequest{
		Method: msg.method(),
		URL:    a.config.BaseURL + "/" + msg.path(),
	}
	if req.Method != http.MethodGet && len(strings.TrimSpace(string(msg.Body))) > 0 && string(msg.Body) != "null" {
		req.Body = []byte(msg.Body)
	}
	if key, ok := catalogKey(msg); ok {
		return a.catalog(ctx, key, req)
	}

	res, err := a.client.Call(ctx, "request", req)
	if err != nil {
		if core.IsAuthBlocked(err) {
			return core.Envelope{}, core.NewUpstreamUnavailable(err, "Upstream service is unavailable", map[string]any{
				"upstream": core.UpstreamGameCred,
			})
		}
		return core.Envelope{}, err
	}
	a.checkUnauthorized(res)
	if auth.ContainsChallengeMarker(res.Body) {
		return core.Envelope{}, core.NewUpstreamUnavailable(nil, "Upstream service is unavailable", map[string]any{
			"upstream":    core.UpstreamGameCred,
			"status_code": res.StatusCode,
			"reason":      fallbackChallenge,
		})
	}
	return normalize.Response(res, normalize.Rules{}), nil
}

// fallbackError marks a catalog failure that is answered with fallback data.
// It travels through the cache as the fetch error, so every caller sharing an
// in-flight fetch sees the same reason.
type fallbackError struct {
	reason string
	cause  error
}

func (e *fallbackError) Error() string {
	if e.cause != nil {
		return "gamecred: catalog unavailable (" + e.reason + "): " + e.cause.Error()
	}
	return "gamecred: catalog unavailable (" + e.reason + ")"
}

func (e *fallbackError) Unwrap() error { return e.cause }

// catalog serves a catalog read. Only live answers are cached; fallback data
// is returned without touching the cache.
func (a *Adapter) catalog(ctx context.Context, key string, req core.UpstreamRequest) (core.Envelope, error) {
	fetch := func(ctx context.Context) (catalogPayload, error) {
		res, err := a.client.Call(ctx, "catalog", req)
		if err != nil {
			switch {
			case core.IsAuthBlocked(err):
				return catalogPayload{}, &fallbackError{reason: fallbackAuthBlocked, cause: err}
			case core.IsRateLimited(err):
				return catalogPayload{}, &fallbackError{reason: fallbackRateLimited, cause: err}
			}
			return catalogPayload{}, err
		}
		a.checkUnauthorized(res)
		switch {
		case auth.ContainsChallengeMarker(res.Body):
			return catalogPayload{}, &fallbackError{reason: fallbackChallenge}
		case res.StatusCode >= http.StatusBadRequest:
			return catalogPayload{}, &fallbackError{reason: fallbackStatus}
		}
		decoded, ok := normalize.Recover(string(res.Body))
		if !ok {
			return catalogPayload{}, &fallbackError{reason: fallbackUnparseable}
		}
		env := normalize.Envelope(res.StatusCode, decoded)
		return catalogPayload{StatusCode: env.StatusCode, Body: env.Body}, nil
	}

	var (
		payload catalogPayload
		err     error
	)
	if a.cache != nil {
		payload, err = repositorycache.GetOrFetch(ctx, a.cache, catalogCacheKey(key), fetch)
	} else {
		payload, err = fetch(ctx)
	}
	var degraded *fallbackError
	if errors.As(err, &degraded) {
		return a.fallback(ctx, key, degraded.reason)
	}
	if err != nil {
		return core.Envelope{}, err
	}
	return core.Envelope{StatusCode: payload.StatusCode, Body: append([]byte(nil), payload.Body...)}, nil
}

func (a *Adapter) fallback(ctx context.Context, key string, reason string) (core.Envelope, error) {
	env, ok := fallback.Lookup(key)
	if !ok {
		return core.Envelope{}, core.NewUpstreamUnavailable(nil, "Upstream service is unavailable", map[string]any{
			"catalog": key,
		})
	}
	tags := map[string]string{"upstream": core.UpstreamGameCred, "reason": reason}
	a.client.Observer.Count(ctx, core.MetricCatalogFallbacks, tags)
	a.client.Observer.Warn(ctx, "serving fallback catalog", map[string]any{
		"upstream": core.UpstreamGameCred,
		"catalog":  key,
		"reason":   reason,
	})
	return env, nil
}

func (a *Adapter) checkUnauthorized(res core.UpstreamResponse) {
	if res.StatusCode == http.StatusUnauthorized && a.tokens != nil {
		a.tokens.Invalidate()
	}
}

func (a *Adapter) ready() error {
	if a == nil || a.client == nil {
		return core.NewInternalFault(nil, "gamecred: adapter is not configured", nil)
	}
	return core.Require(core.UpstreamGameCred, map[string]string{
		"gamecred.base_url": a.config.BaseURL,
	})
}

var _ TokenInvalidator = (*auth.TokenCache)(nil)
