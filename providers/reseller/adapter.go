// Package reseller adapts the prepaid top-up reseller. Its API allow-lists by
// source address, so calls go through the relay when one is configured.
package reseller

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/goliatone/go-upstream-gateway/core"
	"github.com/goliatone/go-upstream-gateway/normalize"
	"github.com/goliatone/go-upstream-gateway/providers"
)

const (
	checkOrderPath = "/v1/orders/check"
	topupPath      = "/v1/topup"
)

type Config struct {
	BaseURL string
	APIKey  string
}

type Adapter struct {
	config Config
	client *providers.Client
}

// New builds the adapter. Missing configuration is reported per call, not here.
func New(cfg Config, client *providers.Client) *Adapter {
	return &Adapter{
		config: Config{
			BaseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			APIKey:  strings.TrimSpace(cfg.APIKey),
		},
		client: client,
	}
}

// every reseller route treats 404/418 as an empty result and a refused egress
// credential as an internal fault.
var resellerRules = normalize.Rules{EmptyOnMissing: true, ViaProxy: true}

func (a *Adapter) Passthrough() *PassthroughHandler { return &PassthroughHandler{adapter: a} }
func (a *Adapter) CheckOrder() *CheckOrderHandler   { return &CheckOrderHandler{adapter: a} }
func (a *Adapter) Topup() *TopupHandler             { return &TopupHandler{adapter: a} }

type PassthroughHandler struct{ adapter *Adapter }

func (h *PassthroughHandler) Query(ctx context.Context, msg PassthroughRequest) (core.Envelope, error) {
	if err := h.adapter.ready(); err != nil {
		return core.Envelope{}, err
	}
	req := core.UpstreamRequest{
		Method: msg.method(),
		URL:    h.adapter.config.BaseURL + "/" + strings.TrimLeft(strings.TrimSpace(msg.Endpoint), "/"),
	}
	if req.Method != http.MethodGet && !isEmptyJSON(msg.Body) {
		req.Body = []byte(msg.Body)
	}
	res, err := h.adapter.client.Call(ctx, "passthrough", req)
	if err != nil {
		return core.Envelope{}, err
	}
	return normalize.Response(res, resellerRules), nil
}

type CheckOrderHandler struct{ adapter *Adapter }

func (h *CheckOrderHandler) Query(ctx context.Context, msg CheckOrderRequest) (core.Envelope, error) {
	if err := h.adapter.ready(); err != nil {
		return core.Envelope{}, err
	}
	res, err := h.adapter.post(ctx, "check_order", checkOrderPath, map[string]any{
		"order_id": msg.OrderID.String(),
	})
	if err != nil {
		return core.Envelope{}, err
	}
	return orderResult(res, false)
}

type TopupHandler struct{ adapter *Adapter }

func (h *TopupHandler) Query(ctx context.Context, msg TopupRequest) (core.Envelope, error) {
	if err := h.adapter.ready(); err != nil {
		return core.Envelope{}, err
	}
	res, err := h.adapter.post(ctx, "topup", topupPath, map[string]any{
		"product_id": msg.ProductID.String(),
		"data":       msg.ProductData,
	})
	if err != nil {
		return core.Envelope{}, err
	}
	return orderResult(res, true)
}

// orderResult reduces an order document to the summary shape. A top-up the
// reseller declined is answered with 400; a declined order lookup stays 200.
func orderResult(res core.UpstreamResponse, rejectOnFalse bool) (core.Envelope, error) {
	if env, ok := normalize.Remap(res, resellerRules); ok {
		return env, nil
	}
	if res.StatusCode >= http.StatusBadRequest {
		return normalize.Envelope(res.StatusCode, normalize.Decode(res.Body)), nil
	}
	summary, ok := normalize.ParseOrder(res.Body)
	if !ok {
		return core.Envelope{}, core.NewUpstreamUnavailable(nil, "Unexpected response from reseller", map[string]any{
			"status_code": res.StatusCode,
		})
	}
	if rejectOnFalse && !summary.Success {
		return normalize.OrderEnvelope(http.StatusBadRequest, summary), nil
	}
	return normalize.OrderEnvelope(res.StatusCode, summary), nil
}

func (a *Adapter) post(ctx context.Context, operation string, path string, payload map[string]any) (core.UpstreamResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return core.UpstreamResponse{}, core.NewInternalFault(err, "reseller: encode request", nil)
	}
	return a.client.Call(ctx, operation, core.UpstreamRequest{
		Method: http.MethodPost,
		URL:    a.config.BaseURL + path,
		Body:   body,
	})
}

func (a *Adapter) ready() error {
	if a == nil || a.client == nil {
		return core.NewInternalFault(nil, "reseller: adapter is not configured", nil)
	}
	return core.Require(core.UpstreamReseller, map[string]string{
		"reseller.base_url": a.config.BaseURL,
		"reseller.api_key":  a.config.APIKey,
	})
}
