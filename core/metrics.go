package core

import "context"

const (
	MetricUpstreamCalls        = "gateway.upstream.calls.total"
	MetricUpstreamCallDuration = "gateway.upstream.calls.duration_ms"
	MetricRequests             = "gateway.requests.total"
	MetricRequestDuration      = "gateway.requests.duration_ms"
	MetricTokenLogins          = "gateway.token.logins.total"
	MetricCatalogFallbacks     = "gateway.catalog.fallbacks.total"
	MetricRateLimited          = "gateway.ratelimit.rejections.total"
)

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

func cloneTags(tags map[string]string) map[string]string {
	if len(tags) == 0 {
		return map[string]string{}
	}
	copied := make(map[string]string, len(tags))
	for key, value := range tags {
		copied[key] = value
	}
	return copied
}

var _ MetricsRecorder = NopMetricsRecorder{}
