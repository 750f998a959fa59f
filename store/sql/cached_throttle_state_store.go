package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-upstream-gateway/core"
	"github.com/goliatone/go-upstream-gateway/ratelimit"
)

const throttleStateCacheKeyPrefix = "gateway::throttle_state::v1"

// CachedThrottleStateStore puts a read-through cache in front of a state store.
// Writes go to the base store first and then drop the cached entry.
type CachedThrottleStateStore struct {
	base  ratelimit.StateStore
	cache repositorycache.CacheService
}

func NewCachedThrottleStateStore(base ratelimit.StateStore, cacheService repositorycache.CacheService) (*CachedThrottleStateStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base throttle state store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: throttle state cache service is required")
	}
	return &CachedThrottleStateStore{base: base, cache: cacheService}, nil
}

// ThrottleStateCacheKey is gateway::throttle_state::v1::<upstream>::<bucket>
// with each segment path-escaped after normalization.
func ThrottleStateCacheKey(key core.RateLimitKey) (string, error) {
	normalized := normalizeKey(key)
	if err := validateKey(normalized); err != nil {
		return "", err
	}
	return strings.Join([]string{
		throttleStateCacheKeyPrefix,
		url.PathEscape(normalized.Upstream),
		url.PathEscape(normalized.BucketKey),
	}, "::"), nil
}

func (s *CachedThrottleStateStore) Get(ctx context.Context, key core.RateLimitKey) (ratelimit.State, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return ratelimit.State{}, fmt.Errorf("sqlstore: cached throttle state store is not configured")
	}
	normalized := normalizeKey(key)
	cacheKey, err := ThrottleStateCacheKey(normalized)
	if err != nil {
		return ratelimit.State{}, err
	}
	state, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (ratelimit.State, error) {
		fetched, fetchErr := s.base.Get(ctx, normalized)
		if fetchErr != nil {
			return ratelimit.State{}, fetchErr
		}
		return cloneState(fetched), nil
	})
	if err != nil {
		return ratelimit.State{}, err
	}
	return cloneState(state), nil
}

func (s *CachedThrottleStateStore) Upsert(ctx context.Context, state ratelimit.State) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached throttle state store is not configured")
	}
	state.Key = normalizeKey(state.Key)
	cacheKey, err := ThrottleStateCacheKey(state.Key)
	if err != nil {
		return err
	}
	if err := s.base.Upsert(ctx, state); err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

func cloneState(state ratelimit.State) ratelimit.State {
	cloned := state
	cloned.Key = normalizeKey(state.Key)
	cloned.Metadata = copyMetadata(state.Metadata)
	cloned.ResetAt = utcPointer(state.ResetAt)
	cloned.ThrottledUntil = utcPointer(state.ThrottledUntil)
	if state.RetryAfter != nil {
		value := *state.RetryAfter
		cloned.RetryAfter = &value
	}
	return cloned
}

// NewThrottleStateCache builds the cache service used in front of the SQL store.
func NewThrottleStateCache(ttl time.Duration) (repositorycache.CacheService, error) {
	config := repositorycache.DefaultConfig()
	if ttl > 0 {
		config.TTL = ttl
	}
	return repositorycache.NewCacheService(config)
}

var _ ratelimit.StateStore = (*CachedThrottleStateStore)(nil)
