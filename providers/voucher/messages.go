package voucher

import (
	"strings"

	"github.com/goliatone/go-upstream-gateway/core"
)

const GameMessageType = "gateway.voucher.game"

const (
	ActionBalance    = "balance"
	ActionProducts   = "products"
	ActionGameList   = "game_list"
	ActionPurchase   = "purchase"
	ActionCheckOrder = "check_order"
)

// GameRequest is the single inbound shape of the voucher route; Action selects
// the upstream payload.
type GameRequest struct {
	Action       string          `json:"action"`
	Category     core.FlexString `json:"category"`
	DestRef      core.FlexString `json:"dest_ref"`
	PayToCompany core.FlexString `json:"pay_to_company"`
	PayToAmount  core.FlexString `json:"pay_to_amount"`
	PayToRef1    core.FlexString `json:"pay_to_ref1"`
	PayToRef2    core.FlexString `json:"pay_to_ref2"`
}

func (GameRequest) Type() string { return GameMessageType }

func (r GameRequest) Validate() error {
	switch r.action() {
	case ActionBalance, ActionProducts, ActionGameList:
		return nil
	case ActionPurchase:
		missing := []string{}
		for _, field := range []struct {
			name  string
			value core.FlexString
		}{
			{"dest_ref", r.DestRef},
			{"pay_to_company", r.PayToCompany},
			{"pay_to_amount", r.PayToAmount},
			{"pay_to_ref1", r.PayToRef1},
		} {
			if field.value.Empty() {
				missing = append(missing, field.name)
			}
		}
		if len(missing) > 0 {
			return core.NewCallerInputError("Missing required parameters: "+strings.Join(missing, ", "), map[string]any{
				"missing": missing,
			})
		}
		return nil
	case ActionCheckOrder:
		if r.DestRef.Empty() {
			return core.NewCallerInputError("Missing required parameter: dest_ref", nil)
		}
		return nil
	case "":
		return core.NewCallerInputError("Missing required parameter: action", nil)
	}
	return core.NewCallerInputError("Unknown action", map[string]any{"action": r.Action})
}

func (r GameRequest) action() string {
	return strings.ToLower(strings.TrimSpace(r.Action))
}
