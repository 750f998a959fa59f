package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-upstream-gateway/core"
)

const DefaultTokenTTL = 12 * time.Hour

type TokenState string

const (
	TokenStateEmpty          TokenState = "empty"
	TokenStateAuthenticating TokenState = "authenticating"
	TokenStateValid          TokenState = "valid"
	TokenStateExpired        TokenState = "expired"
)

// LoginFunc performs the upstream login and returns a fresh token.
type LoginFunc func(ctx context.Context) (string, error)

type TokenCacheConfig struct {
	Upstream    string
	StaticToken string
	TTL         time.Duration
	Clock       clock.Clock
	Login       LoginFunc
	Observer    *core.Observer
}

type cachedToken struct {
	value     string
	expiresAt time.Time
}

// TokenCache holds the single bearer token of one upstream. A configured
// static token is returned forever and the cache is never written.
type TokenCache struct {
	upstream    string
	staticToken string
	ttl         time.Duration
	clock       clock.Clock
	login       LoginFunc
	observer    *core.Observer

	mu             sync.Mutex
	token          *cachedToken
	authenticating bool
	group          singleflight.Group
}

func NewTokenCache(cfg TokenCacheConfig) *TokenCache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &TokenCache{
		upstream:    firstNonEmpty(cfg.Upstream, "upstream"),
		staticToken: strings.TrimSpace(cfg.StaticToken),
		ttl:         ttl,
		clock:       clk,
		login:       cfg.Login,
		observer:    cfg.Observer,
	}
}

func (c *TokenCache) GetToken(ctx context.Context) (string, error) {
	if c == nil {
		return "", core.NewInternalFault(nil, "auth: token cache is nil", nil)
	}
	if c.staticToken != "" {
		return c.staticToken, nil
	}
	if value, ok := c.cached(); ok {
		return value, nil
	}

	// Concurrent callers share one login. It runs detached from the first
	// caller's cancellation so a disconnect does not fail the others; the
	// transport timeout still bounds it.
	loginCtx := context.WithoutCancel(ctx)
	result, err, _ := c.group.Do(c.upstream, func() (any, error) {
		if value, ok := c.cached(); ok {
			return value, nil
		}
		return c.refresh(loginCtx)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *TokenCache) State() TokenState {
	if c == nil {
		return TokenStateEmpty
	}
	if c.staticToken != "" {
		return TokenStateValid
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.authenticating:
		return TokenStateAuthenticating
	case c.token == nil:
		return TokenStateEmpty
	case c.clock.Now().Before(c.token.expiresAt):
		return TokenStateValid
	default:
		return TokenStateExpired
	}
}

// Invalidate drops the cached token so the next GetToken logs in again.
func (c *TokenCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.token = nil
	c.mu.Unlock()
}

// ExpiresAt returns the expiry of the cached token, if any.
func (c *TokenCache) ExpiresAt() (time.Time, bool) {
	if c == nil {
		return time.Time{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == nil {
		return time.Time{}, false
	}
	return c.token.expiresAt, true
}

func (c *TokenCache) cached() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == nil || !c.clock.Now().Before(c.token.expiresAt) {
		return "", false
	}
	return c.token.value, true
}

func (c *TokenCache) refresh(ctx context.Context) (string, error) {
	if c.login == nil {
		return "", core.NewMissingConfiguration("login", c.upstream)
	}
	c.mu.Lock()
	c.authenticating = true
	c.mu.Unlock()

	startedAt := time.Now()
	value, err := c.login(ctx)
	value = strings.TrimSpace(value)
	if err == nil && value == "" {
		err = core.NewAuthBlocked("Upstream login returned no token", map[string]any{"upstream": c.upstream})
	}

	c.mu.Lock()
	c.authenticating = false
	if err != nil {
		c.token = nil
		c.mu.Unlock()
		c.observe(ctx, startedAt, err)
		return "", err
	}
	c.token = &cachedToken{value: value, expiresAt: c.clock.Now().Add(c.ttl)}
	c.mu.Unlock()
	c.observe(ctx, startedAt, nil)
	return value, nil
}

func (c *TokenCache) observe(ctx context.Context, startedAt time.Time, err error) {
	if c.observer == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
		if core.IsAuthBlocked(err) {
			outcome = "blocked"
		}
	}
	c.observer.Count(ctx, core.MetricTokenLogins, map[string]string{
		"upstream": c.upstream,
		"outcome":  outcome,
	})
	fields := map[string]any{
		"upstream":    c.upstream,
		"outcome":     outcome,
		"duration_ms": time.Since(startedAt).Milliseconds(),
	}
	if err != nil {
		fields["error"] = err.Error()
		c.observer.Warn(ctx, "token refresh failed", fields)
		return
	}
	c.observer.Debug(ctx, "token refreshed", fields)
}

var _ TokenSource = (*TokenCache)(nil)
