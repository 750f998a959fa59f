package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-upstream-gateway/core"
)

// signals are the throttling hints carried by one upstream response.
type signals struct {
	limit         int
	hasLimit      bool
	remaining     int
	hasRemaining  bool
	resetAt       time.Time
	hasResetAt    bool
	retryAfter    time.Duration
	hasRetryAfter bool
}

func readSignals(res core.UpstreamResponseMeta, now time.Time) signals {
	var out signals
	out.limit, out.hasLimit = headerInt(res.Headers, "X-RateLimit-Limit")
	out.remaining, out.hasRemaining = headerInt(res.Headers, "X-RateLimit-Remaining")
	if reset, ok := headerInt(res.Headers, "X-RateLimit-Reset"); ok && reset > 0 {
		out.resetAt = time.Unix(int64(reset), 0).UTC()
		out.hasResetAt = true
	}
	out.retryAfter, out.hasRetryAfter = retryAfter(res, now)
	return out
}

// throttled is true for a 429, or for a non-5xx response that reports an
// exhausted quota.
func (s signals) throttled(status int) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	if isServerError(status) {
		return false
	}
	return s.hasRemaining && s.remaining == 0
}

func retryAfter(res core.UpstreamResponseMeta, now time.Time) (time.Duration, bool) {
	if res.RetryAfter != nil && *res.RetryAfter > 0 {
		return *res.RetryAfter, true
	}
	raw := header(res.Headers, "Retry-After")
	if raw == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds <= 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	at, err := http.ParseTime(raw)
	if err != nil || !at.After(now) {
		return 0, false
	}
	return at.Sub(now), true
}

func headerInt(headers map[string]string, key string) (int, bool) {
	raw := header(headers, key)
	if raw == "" {
		return 0, false
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return value, true
}

func header(headers map[string]string, key string) string {
	for name, value := range headers {
		if strings.EqualFold(strings.TrimSpace(name), key) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
