package gateway

import (
	"github.com/goliatone/go-upstream-gateway/inbound"
	"github.com/goliatone/go-upstream-gateway/providers/gamecred"
	"github.com/goliatone/go-upstream-gateway/providers/reseller"
	"github.com/goliatone/go-upstream-gateway/providers/slip"
	"github.com/goliatone/go-upstream-gateway/providers/voucher"
)

const (
	RouteReseller           = "/api/reseller"
	RouteResellerCheckOrder = "/api/reseller-check-order"
	RouteResellerTopup      = "/api/reseller-topup"
	RouteVoucherGame        = "/api/voucher-game"
	RouteGameCred           = "/api/gamecred"
	RouteSlipVerify         = "/api/slip-verify"
)

type adapters struct {
	reseller *reseller.Adapter
	voucher  *voucher.Adapter
	gamecred *gamecred.Adapter
	slip     *slip.Adapter
}

func registerRoutes(dispatcher *inbound.Dispatcher, a adapters) error {
	routes := []struct {
		path    string
		handler inbound.Handler
	}{
		{RouteReseller, inbound.Route[reseller.PassthroughRequest](a.reseller.Passthrough())},
		{RouteResellerCheckOrder, inbound.Route[reseller.CheckOrderRequest](a.reseller.CheckOrder())},
		{RouteResellerTopup, inbound.Route[reseller.TopupRequest](a.reseller.Topup())},
		{RouteVoucherGame, inbound.Route[voucher.GameRequest](a.voucher.Game())},
		{RouteGameCred, inbound.Route[gamecred.Request](a.gamecred.Handler())},
		{RouteSlipVerify, inbound.Route[slip.VerifyRequest](a.slip.Verify())},
	}
	for _, route := range routes {
		if err := dispatcher.Register(route.path, route.handler); err != nil {
			return err
		}
	}
	return nil
}
