package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-upstream-gateway/core"
)

const (
	KindREST    = "rest"
	KindProxied = "proxied"
)

const tracerName = "github.com/goliatone/go-upstream-gateway/transport"

const defaultResponseBodyLimit int64 = 10 << 20 // 10 MiB

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RESTAdapter issues a request directly against the upstream, or through the
// forward proxy configured on its client.
type RESTAdapter struct {
	Client               HTTPDoer
	DefaultHeaders       map[string]string
	MaxResponseBodyBytes int64
	Tracer               trace.Tracer

	kind string
}

func NewRESTAdapter(client HTTPDoer) *RESTAdapter {
	if client == nil {
		client = &http.Client{Timeout: defaultClientTimeout}
	}
	return &RESTAdapter{
		Client:               client,
		DefaultHeaders:       map[string]string{},
		MaxResponseBodyBytes: defaultResponseBodyLimit,
		kind:                 KindREST,
	}
}

// NewProxiedAdapter is a RESTAdapter registered under the proxied kind so
// callers can tell a 407 from the egress proxy apart from direct calls.
func NewProxiedAdapter(client HTTPDoer) *RESTAdapter {
	adapter := NewRESTAdapter(client)
	adapter.kind = KindProxied
	return adapter
}

func (a *RESTAdapter) Kind() string {
	if a == nil || a.kind == "" {
		return KindREST
	}
	return a.kind
}

func (a *RESTAdapter) Do(ctx context.Context, req core.UpstreamRequest) (core.UpstreamResponse, error) {
	if a == nil || a.Client == nil {
		return core.UpstreamResponse{}, internalError(nil, "transport: rest adapter requires an http client", map[string]any{
			"adapter": KindREST,
		})
	}
	if ctx == nil {
		ctx = context.Background()
	}

	method := strings.TrimSpace(strings.ToUpper(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	rawURL := strings.TrimSpace(req.URL)
	parsedURL, err := url.Parse(rawURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return core.UpstreamResponse{}, internalError(err, "transport: invalid request url", map[string]any{
			"adapter": a.Kind(),
			"url":     rawURL,
		})
	}

	ctx, span := a.tracer().Start(ctx, "upstream "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(method),
			semconv.ServerAddress(parsedURL.Hostname()),
			attribute.String("gateway.transport", a.Kind()),
		),
	)
	defer span.End()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, parsedURL.String(), body)
	if err != nil {
		span.SetStatus(codes.Error, "build request")
		return core.UpstreamResponse{}, internalError(err, "transport: create http request", map[string]any{
			"adapter": a.Kind(),
			"method":  method,
		})
	}
	for key, value := range a.DefaultHeaders {
		setHeader(httpReq.Header, key, value)
	}
	for key, value := range req.Headers {
		setHeader(httpReq.Header, key, value)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	startedAt := time.Now().UTC()
	httpRes, err := a.Client.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "execute request")
		return core.UpstreamResponse{}, unavailableError(err, "Upstream service is unavailable", map[string]any{
			"adapter": a.Kind(),
			"method":  method,
			"host":    parsedURL.Host,
		})
	}
	defer httpRes.Body.Close()
	span.SetAttributes(semconv.HTTPResponseStatusCode(httpRes.StatusCode))

	payload, err := readBody(httpRes.Body, a.MaxResponseBodyBytes)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read response")
		return core.UpstreamResponse{}, unavailableError(err, "Upstream service is unavailable", map[string]any{
			"adapter":     a.Kind(),
			"status_code": httpRes.StatusCode,
		})
	}
	if httpRes.StatusCode >= 500 {
		span.SetStatus(codes.Error, http.StatusText(httpRes.StatusCode))
	}

	return core.UpstreamResponse{
		StatusCode: httpRes.StatusCode,
		Headers:    flattenHeaders(httpRes.Header),
		Body:       payload,
		Metadata: map[string]any{
			"duration_ms": time.Since(startedAt).Milliseconds(),
			"kind":        a.Kind(),
		},
	}, nil
}

func (a *RESTAdapter) tracer() trace.Tracer {
	if a.Tracer != nil {
		return a.Tracer
	}
	return otel.Tracer(tracerName)
}

func readBody(body io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = defaultResponseBodyLimit
	}
	payload, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(payload)) > limit {
		return nil, fmt.Errorf("transport: response body exceeds limit of %d bytes", limit)
	}
	return payload, nil
}

func setHeader(headers http.Header, key string, value string) {
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}
	headers.Set(key, strings.TrimSpace(value))
}

func flattenHeaders(headers http.Header) map[string]string {
	if len(headers) == 0 {
		return map[string]string{}
	}
	flat := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) == 0 {
			flat[key] = ""
			continue
		}
		flat[key] = strings.Join(values, ",")
	}
	return flat
}

var _ core.TransportAdapter = (*RESTAdapter)(nil)
