package gateway

import (
	"github.com/benbjohnson/clock"
	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-upstream-gateway/core"
	"github.com/goliatone/go-upstream-gateway/ratelimit"
	"github.com/goliatone/go-upstream-gateway/transport"
)

type Option func(*options)

type options struct {
	logger         core.Logger
	loggerProvider core.LoggerProvider
	metrics        core.MetricsRecorder
	clock          clock.Clock
	httpClient     transport.HTTPDoer
	transports     []core.TransportAdapter
	catalogCache   repositorycache.CacheService
	rateLimitStore ratelimit.StateStore
}

func WithLogger(logger core.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(o *options) { o.loggerProvider = provider }
}

func WithMetrics(metrics core.MetricsRecorder) Option {
	return func(o *options) { o.metrics = metrics }
}

// WithClock replaces the clock used for token expiry and throttle windows.
func WithClock(clk clock.Clock) Option {
	return func(o *options) { o.clock = clk }
}

// WithHTTPClient replaces the client used by direct and relayed transports.
// Proxied transports always build their own client.
func WithHTTPClient(client transport.HTTPDoer) Option {
	return func(o *options) { o.httpClient = client }
}

// WithTransport registers adapter under its kind, replacing the built-in
// transport of that kind.
func WithTransport(adapter core.TransportAdapter) Option {
	return func(o *options) {
		if adapter != nil {
			o.transports = append(o.transports, adapter)
		}
	}
}

// WithCatalogCache supplies the cache for live catalog answers. Without it a
// cache is built when a catalog cache TTL is configured.
func WithCatalogCache(cache repositorycache.CacheService) Option {
	return func(o *options) { o.catalogCache = cache }
}

func WithRateLimitStore(store ratelimit.StateStore) Option {
	return func(o *options) { o.rateLimitStore = store }
}
