// Package gateway wires the upstream integration gateway: credentials,
// transports, upstream adapters and the inbound dispatcher.
package gateway

import (
	"context"
	"net/http"

	"github.com/goliatone/go-upstream-gateway/auth"
	"github.com/goliatone/go-upstream-gateway/core"
	"github.com/goliatone/go-upstream-gateway/inbound"
	"github.com/goliatone/go-upstream-gateway/transport"
)

type Config = core.Config

type Envelope = core.Envelope

type Request = inbound.Request

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// LoadConfig reads GATEWAY_* variables over the defaults.
func LoadConfig(ctx context.Context) (Config, error) {
	return core.LoadConfig(ctx, Config{}, nil, nil)
}

// Gateway is a fully wired gateway. It is safe for concurrent use.
type Gateway struct {
	config      Config
	credentials core.Credentials
	observer    *core.Observer
	transports  *transport.Registry
	tokens      *auth.TokenCache
	dispatcher  *inbound.Dispatcher
}

// New builds a gateway. Missing upstream credentials do not fail construction;
// the affected routes answer with an internal fault instead.
func New(cfg Config, opts ...Option) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return build(cfg, o)
}

func (g *Gateway) Handler() http.Handler {
	if g == nil {
		return inbound.NewDispatcher(nil)
	}
	return g.dispatcher
}

func (g *Gateway) Dispatch(ctx context.Context, req Request) Envelope {
	return g.dispatcher.Dispatch(ctx, req)
}

func (g *Gateway) Routes() []string {
	if g == nil {
		return nil
	}
	return g.dispatcher.Routes()
}

func (g *Gateway) Config() Config {
	if g == nil {
		return Config{}
	}
	return g.config
}

func (g *Gateway) Credentials() core.Credentials {
	if g == nil {
		return core.Credentials{}
	}
	return g.credentials
}

// Tokens exposes the credential provider's token cache.
func (g *Gateway) Tokens() *auth.TokenCache {
	if g == nil {
		return nil
	}
	return g.tokens
}

func (g *Gateway) Transports() *transport.Registry {
	if g == nil {
		return nil
	}
	return g.transports
}

func (g *Gateway) Observer() *core.Observer {
	if g == nil {
		return nil
	}
	return g.observer
}
