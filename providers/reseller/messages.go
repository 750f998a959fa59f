package reseller

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/goliatone/go-upstream-gateway/core"
)

const (
	PassthroughMessageType = "gateway.reseller.passthrough"
	CheckOrderMessageType  = "gateway.reseller.check_order"
	TopupMessageType       = "gateway.reseller.topup"
)

// PassthroughRequest forwards an arbitrary reseller endpoint.
type PassthroughRequest struct {
	Endpoint string          `json:"endpoint"`
	Method   string          `json:"method"`
	Body     json.RawMessage `json:"body"`
}

func (PassthroughRequest) Type() string { return PassthroughMessageType }

func (r PassthroughRequest) Validate() error {
	if strings.TrimSpace(r.Endpoint) == "" {
		return core.NewCallerInputError("Missing required parameter: endpoint", nil)
	}
	switch r.method() {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return nil
	}
	return core.NewCallerInputError("Unsupported method", map[string]any{"method": r.Method})
}

func (r PassthroughRequest) method() string {
	method := strings.ToUpper(strings.TrimSpace(r.Method))
	if method == "" {
		return http.MethodGet
	}
	return method
}

type CheckOrderRequest struct {
	OrderID core.FlexString `json:"orderId"`
}

func (CheckOrderRequest) Type() string { return CheckOrderMessageType }

func (r CheckOrderRequest) Validate() error {
	if r.OrderID.Empty() {
		return core.NewCallerInputError("Missing required parameter: orderId", nil)
	}
	return nil
}

type TopupRequest struct {
	ProductID   core.FlexString `json:"productId"`
	ProductData json.RawMessage `json:"productData"`
}

func (TopupRequest) Type() string { return TopupMessageType }

func (r TopupRequest) Validate() error {
	missing := []string{}
	if r.ProductID.Empty() {
		missing = append(missing, "productId")
	}
	if isEmptyJSON(r.ProductData) {
		missing = append(missing, "productData")
	}
	if len(missing) > 0 {
		return core.NewCallerInputError("Missing required parameters: "+strings.Join(missing, ", "), map[string]any{
			"missing": missing,
		})
	}
	return nil
}

func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null" || trimmed == `""` || trimmed == "{}"
}
