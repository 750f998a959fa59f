package normalize

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/goliatone/go-upstream-gateway/core"
)

// OrderSummary is the only purchase shape returned to callers.
type OrderSummary struct {
	Success bool      `json:"success"`
	Data    OrderData `json:"data"`
}

type OrderData struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// upstreamOrder is the nested result shape of the reseller order and top-up
// endpoints. Unlisted fields are dropped.
type upstreamOrder struct {
	Status  core.FlexBool   `json:"status"`
	Success core.FlexBool   `json:"success"`
	Message core.FlexString `json:"message"`
	Data    struct {
		OrderID   core.FlexString `json:"order_id"`
		ID        core.FlexString `json:"id"`
		Status    core.FlexString `json:"status"`
		Message   core.FlexString `json:"message"`
		RefID     core.FlexString `json:"ref_id"`
		TrxStatus core.FlexString `json:"trx_status"`
	} `json:"data"`
}

// ParseOrder reads a reseller order result. ok is false when the body is not
// an order document.
func ParseOrder(raw []byte) (OrderSummary, bool) {
	var decoded upstreamOrder
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return OrderSummary{}, false
	}
	flag := decoded.Status
	if !flag.Set {
		flag = decoded.Success
	}
	summary := OrderSummary{
		Success: flag.Value,
		Data: OrderData{
			OrderID: firstNonEmpty(decoded.Data.OrderID.String(), decoded.Data.ID.String(), decoded.Data.RefID.String()),
			Status:  firstNonEmpty(decoded.Data.Status.String(), decoded.Data.TrxStatus.String()),
			Message: firstNonEmpty(decoded.Message.String(), decoded.Data.Message.String()),
		},
	}
	return summary, flag.Set
}

// OrderEnvelope writes the minimized order shape.
func OrderEnvelope(status int, summary OrderSummary) core.Envelope {
	if status == 0 {
		status = http.StatusOK
	}
	return core.JSONEnvelope(status, summary)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
