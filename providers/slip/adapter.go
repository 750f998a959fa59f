// Package slip is a thin client of the payment-slip verifier. The verdict is
// returned as normalized; interpreting it is left to the caller.
package slip

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
	VerifyMessageType = "gateway.slip.verify"
	verifyPath        = "/api/v1/verify"
)

// VerifyRequest carries the slip payload (QR data or an uploaded image
// reference) as the verifier expects it.
type VerifyRequest struct {
	Data json.RawMessage `json:"data"`
}

func (VerifyRequest) Type() string { return VerifyMessageType }

func (r VerifyRequest) Validate() error {
	trimmed := strings.TrimSpace(string(r.Data))
	if trimmed == "" || trimmed == "null" || trimmed == "{}" || trimmed == `""` {
		return core.NewCallerInputError("Missing required parameter: data", nil)
	}
	return nil
}

type Config struct {
	BaseURL string
	APIKey  string
}

type Adapter struct {
	config Config
	client *providers.Client
}

func New(cfg Config, client *providers.Client) *Adapter {
	return &Adapter{
		config: Config{
			BaseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			APIKey:  strings.TrimSpace(cfg.APIKey),
		},
		client: client,
	}
}

func (a *Adapter) Verify() *VerifyHandler { return &VerifyHandler{adapter: a} }

type VerifyHandler struct{ adapter *Adapter }

func (h *VerifyHandler) Query(ctx context.Context, msg VerifyRequest) (core.Envelope, error) {
	a := h.adapter
	if a == nil || a.client == nil {
		return core.Envelope{}, core.NewInternalFault(nil, "slip: adapter is not configured", nil)
	}
	if err := core.Require(core.UpstreamSlip, map[string]string{
		"slip.base_url": a.config.BaseURL,
		"slip.api_key":  a.config.APIKey,
	}); err != nil {
		return core.Envelope{}, err
	}
	res, err := a.client.Call(ctx, "verify", core.UpstreamRequest{
		Method: http.MethodPost,
		URL:    a.config.BaseURL + verifyPath,
		Body:   []byte(msg.Data),
	})
	if err != nil {
		return core.Envelope{}, err
	}
	return normalize.Response(res, normalize.Rules{}), nil
}
