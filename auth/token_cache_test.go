package auth

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/goliatone/go-upstream-gateway/core"
)

func countingLogin(calls *int32) LoginFunc {
	return func(context.Context) (string, error) {
		n := atomic.AddInt32(calls, 1)
		return fmt.Sprintf("token-%d", n), nil
	}
}

func TestTokenCache_ReusesTokenUntilExpiry(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
	var calls int32
	cache := NewTokenCache(TokenCacheConfig{
		Upstream: core.UpstreamGameCred,
		Clock:    mock,
		Login:    countingLogin(&calls),
	})
	if cache.State() != TokenStateEmpty {
		t.Fatalf("expected empty state, got %s", cache.State())
	}

	first, err := cache.GetToken(context.Background())
	if err != nil {
		t.Fatalf("get token: %v", err)
	}
	if cache.State() != TokenStateValid {
		t.Fatalf("expected valid state, got %s", cache.State())
	}

	mock.Add(12*time.Hour - time.Second)
	second, err := cache.GetToken(context.Background())
	if err != nil {
		t.Fatalf("get token: %v", err)
	}
	if second != first || atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected cached token before expiry, got %q after %d logins", second, calls)
	}

	mock.Add(time.Second)
	if cache.State() != TokenStateExpired {
		t.Fatalf("expected expired state at T+12h, got %s", cache.State())
	}
	third, err := cache.GetToken(context.Background())
	if err != nil {
		t.Fatalf("get token: %v", err)
	}
	if third == first || atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected exactly one new login at expiry, got %q after %d logins", third, calls)
	}
	expiresAt, ok := cache.ExpiresAt()
	if !ok || !expiresAt.Equal(mock.Now().Add(DefaultTokenTTL)) {
		t.Fatalf("expected refresh to replace expiry, got %s", expiresAt)
	}
}

func TestTokenCache_StaticOverrideNeverLogsIn(t *testing.T) {
	mock := clock.NewMock()
	var calls int32
	cache := NewTokenCache(TokenCacheConfig{
		StaticToken: "operator-token",
		Clock:       mock,
		Login:       countingLogin(&calls),
	})
	for i := 0; i < 3; i++ {
		token, err := cache.GetToken(context.Background())
		if err != nil {
			t.Fatalf("get token: %v", err)
		}
		if token != "operator-token" {
			t.Fatalf("expected static token, got %q", token)
		}
		mock.Add(24 * time.Hour)
	}
	if calls != 0 {
		t.Fatalf("expected no login calls, got %d", calls)
	}
}

func TestTokenCache_FailureCachesNothing(t *testing.T) {
	mock := clock.NewMock()
	attempts := 0
	cache := NewTokenCache(TokenCacheConfig{
		Clock: mock,
		Login: func(context.Context) (string, error) {
			attempts++
			if attempts == 1 {
				return "", core.NewAuthBlocked("challenge", nil)
			}
			return "fresh", nil
		},
	})
	_, err := cache.GetToken(context.Background())
	if !core.IsAuthBlocked(err) {
		t.Fatalf("expected auth blocked, got %v", err)
	}
	if cache.State() != TokenStateEmpty {
		t.Fatalf("expected empty state after failure, got %s", cache.State())
	}
	token, err := cache.GetToken(context.Background())
	if err != nil || token != "fresh" {
		t.Fatalf("expected next call to log in again, got %q %v", token, err)
	}
}

func TestTokenCache_EmptyTokenIsAuthBlocked(t *testing.T) {
	cache := NewTokenCache(TokenCacheConfig{
		Clock: clock.NewMock(),
		Login: func(context.Context) (string, error) { return " ", nil },
	})
	if _, err := cache.GetToken(context.Background()); !core.IsAuthBlocked(err) {
		t.Fatalf("expected auth blocked, got %v", err)
	}
}

func TestTokenCache_InvalidateForcesLogin(t *testing.T) {
	var calls int32
	cache := NewTokenCache(TokenCacheConfig{Clock: clock.NewMock(), Login: countingLogin(&calls)})
	if _, err := cache.GetToken(context.Background()); err != nil {
		t.Fatalf("get token: %v", err)
	}
	cache.Invalidate()
	if cache.State() != TokenStateEmpty {
		t.Fatalf("expected empty state after invalidate, got %s", cache.State())
	}
	if _, err := cache.GetToken(context.Background()); err != nil {
		t.Fatalf("get token: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected second login, got %d", calls)
	}
}

func TestTokenCache_ConcurrentCallersShareOneLogin(t *testing.T) {
	var calls int32
	entered := make(chan struct{})
	release := make(chan struct{})
	cache := NewTokenCache(TokenCacheConfig{
		Upstream: core.UpstreamGameCred,
		Clock:    clock.NewMock(),
		Login: func(context.Context) (string, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				close(entered)
			}
			<-release
			return "shared-token", nil
		},
	})

	var wg sync.WaitGroup
	tokens := make([]string, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			tokens[index], errs[index] = cache.GetToken(context.Background())
		}(i)
	}
	<-entered
	if cache.State() != TokenStateAuthenticating {
		t.Errorf("expected authenticating state during login, got %s", cache.State())
	}
	close(release)
	wg.Wait()

	for i := range tokens {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if tokens[i] != "shared-token" {
			t.Fatalf("caller %d: expected usable token, got %q", i, tokens[i])
		}
	}
	if calls != 1 {
		t.Fatalf("expected a single login, got %d", calls)
	}
}

func TestTokenCache_MissingLoginIsInternalFault(t *testing.T) {
	cache := NewTokenCache(TokenCacheConfig{Clock: clock.NewMock()})
	_, err := cache.GetToken(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if env := core.EnvelopeFromError(err); env.StatusCode != 500 {
		t.Fatalf("expected 500, got %d", env.StatusCode)
	}
}

func TestTokenCache_LoginIgnoresCallerCancellation(t *testing.T) {
	cache := NewTokenCache(TokenCacheConfig{
		Upstream: core.UpstreamGameCred,
		Clock:    clock.NewMock(),
		Login: func(ctx context.Context) (string, error) {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			return "detached-token", nil
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	token, err := cache.GetToken(ctx)
	if err != nil {
		t.Fatalf("expected login to outlive caller cancellation, got %v", err)
	}
	if token != "detached-token" {
		t.Fatalf("unexpected token %q", token)
	}
}
