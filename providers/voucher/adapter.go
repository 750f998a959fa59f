// Package voucher adapts the game-voucher reseller. It authenticates with
// HTTP Basic credentials and may leave through a forward proxy.
package voucher

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/goliatone/go-upstream-gateway/core"
	"github.com/goliatone/go-upstream-gateway/normalize"
	"github.com/goliatone/go-upstream-gateway/providers"
)

const transactionsPath = "/api/v1/transactions"

type Config struct {
	BaseURL     string
	Username    string
	Password    string
	CallbackURL string
}

type Adapter struct {
	config Config
	client *providers.Client
}

func New(cfg Config, client *providers.Client) *Adapter {
	return &Adapter{
		config: Config{
			BaseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Username:    strings.TrimSpace(cfg.Username),
			Password:    cfg.Password,
			CallbackURL: strings.TrimSpace(cfg.CallbackURL),
		},
		client: client,
	}
}

// upstream payloads, one per action.
type balancePayload struct {
	Type string `json:"type"`
}

type productsPayload struct {
	Type     string `json:"type"`
	Category string `json:"category,omitempty"`
}

type purchasePayload struct {
	Type         string `json:"type"`
	DestRef      string `json:"dest_ref"`
	PayToCompany string `json:"pay_to_company"`
	PayToAmount  string `json:"pay_to_amount"`
	PayToRef1    string `json:"pay_to_ref1"`
	PayToRef2    string `json:"pay_to_ref2,omitempty"`
	CallbackURL  string `json:"callback_url"`
}

type checkOrderPayload struct {
	Type    string `json:"type"`
	DestRef string `json:"dest_ref"`
}

// businessResult is the part of a voucher response that signals a rejection.
type businessResult struct {
	Status    any             `json:"status"`
	ErrorCode core.FlexString `json:"error_code"`
	Message   core.FlexString `json:"message"`
	Error     core.FlexString `json:"error"`
}

var voucherRules = normalize.Rules{ViaProxy: true}

func (a *Adapter) Game() *GameHandler { return &GameHandler{adapter: a} }

type GameHandler struct{ adapter *Adapter }

func (h *GameHandler) Query(ctx context.Context, msg GameRequest) (core.Envelope, error) {
	a := h.adapter
	if err := a.ready(); err != nil {
		return core.Envelope{}, err
	}
	payload, err := a.payload(msg)
	if err != nil {
		return core.Envelope{}, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return core.Envelope{}, core.NewInternalFault(err, "voucher: encode request", nil)
	}
	res, err := a.client.Call(ctx, msg.action(), core.UpstreamRequest{
		Method: http.MethodPost,
		URL:    a.config.BaseURL + transactionsPath,
		Body:   body,
	})
	if err != nil {
		return core.Envelope{}, err
	}
	if env, ok := normalize.Remap(res, voucherRules); ok {
		return env, nil
	}
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		if rejection := businessRejection(res.Body); rejection != nil {
			return core.Envelope{}, rejection
		}
	}
	return normalize.Envelope(res.StatusCode, normalize.Decode(res.Body)), nil
}

func (a *Adapter) payload(msg GameRequest) (any, error) {
	switch msg.action() {
	case ActionBalance:
		return balancePayload{Type: "get_balance"}, nil
	case ActionProducts:
		return productsPayload{Type: "get_products", Category: msg.Category.String()}, nil
	case ActionGameList:
		return balancePayload{Type: "get_games"}, nil
	case ActionPurchase:
		if a.config.CallbackURL == "" {
			return nil, core.NewMissingConfiguration("voucher.callback_url", core.UpstreamVoucher)
		}
		return purchasePayload{
			Type:         "purchase",
			DestRef:      msg.DestRef.String(),
			PayToCompany: msg.PayToCompany.String(),
			PayToAmount:  msg.PayToAmount.String(),
			PayToRef1:    msg.PayToRef1.String(),
			PayToRef2:    msg.PayToRef2.String(),
			CallbackURL:  a.config.CallbackURL,
		}, nil
	case ActionCheckOrder:
		return checkOrderPayload{Type: "check_order", DestRef: msg.DestRef.String()}, nil
	}
	return nil, core.NewCallerInputError("Unknown action", map[string]any{"action": msg.Action})
}

// businessRejection reports a 2xx answer whose body declines the request.
func businessRejection(raw []byte) error {
	var result businessResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil
	}
	if !rejectedStatus(result.Status) && result.ErrorCode.Empty() {
		return nil
	}
	message := result.Message.String()
	if message == "" {
		message = result.Error.String()
	}
	if message == "" {
		message = "Request rejected by voucher provider"
	}
	metadata := map[string]any{}
	if !result.ErrorCode.Empty() {
		metadata["error_code"] = result.ErrorCode.String()
	}
	return core.NewUpstreamRejection(message, metadata)
}

func rejectedStatus(status any) bool {
	switch typed := status.(type) {
	case bool:
		return !typed
	case string:
		switch strings.ToLower(strings.TrimSpace(typed)) {
		case "false", "error", "failed":
			return true
		}
	}
	return false
}

func (a *Adapter) ready() error {
	if a == nil || a.client == nil {
		return core.NewInternalFault(nil, "voucher: adapter is not configured", nil)
	}
	return core.Require(core.UpstreamVoucher, map[string]string{
		"voucher.base_url": a.config.BaseURL,
		"voucher.username": a.config.Username,
		"voucher.password": a.config.Password,
	})
}
