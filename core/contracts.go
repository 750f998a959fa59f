package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// Upstream names used for logging, metrics, rate-limit buckets and the token
// single-flight key.
const (
	UpstreamReseller = "reseller"
	UpstreamVoucher  = "voucher"
	UpstreamGameCred = "gamecred"
	UpstreamSlip     = "slip"
)

type UpstreamRequest struct {
	Method   string
	URL      string
	Headers  map[string]string
	Body     []byte
	Metadata map[string]any
}

type UpstreamResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

// Envelope is the only shape written back to a gateway caller.
type Envelope struct {
	StatusCode int
	Body       []byte
}

type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req UpstreamRequest) (UpstreamResponse, error)
}

// Signer decorates an outbound request with an upstream's credential.
type Signer interface {
	Sign(ctx context.Context, req *UpstreamRequest) error
}

type RateLimitKey struct {
	Upstream  string
	BucketKey string
}

type UpstreamResponseMeta struct {
	StatusCode int
	Headers    map[string]string
	RetryAfter *time.Duration
	Metadata   map[string]any
}

type RateLimitPolicy interface {
	BeforeCall(ctx context.Context, key RateLimitKey) error
	AfterCall(ctx context.Context, key RateLimitKey, res UpstreamResponseMeta) error
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
