package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/benbjohnson/clock"
	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-upstream-gateway/adapters/gologger"
	"github.com/goliatone/go-upstream-gateway/auth"
	"github.com/goliatone/go-upstream-gateway/core"
	"github.com/goliatone/go-upstream-gateway/inbound"
	"github.com/goliatone/go-upstream-gateway/providers"
	"github.com/goliatone/go-upstream-gateway/providers/gamecred"
	"github.com/goliatone/go-upstream-gateway/providers/reseller"
	"github.com/goliatone/go-upstream-gateway/providers/slip"
	"github.com/goliatone/go-upstream-gateway/providers/voucher"
	"github.com/goliatone/go-upstream-gateway/ratelimit"
	"github.com/goliatone/go-upstream-gateway/transport"
)

func build(cfg Config, o options) (*Gateway, error) {
	_, logger := gologger.Resolve("gateway", o.loggerProvider, o.logger)
	observer := core.NewObserver(logger, o.metrics)
	clk := o.clock
	if clk == nil {
		clk = clock.New()
	}
	creds := core.NewCredentials(cfg)

	transports, err := buildTransports(cfg, creds, o)
	if err != nil {
		return nil, err
	}
	store := o.rateLimitStore
	if store == nil {
		store = ratelimit.NewMemoryStateStore()
	}
	policy := ratelimit.NewAdaptivePolicy(store, clk)

	rest, _ := transports.Get(transport.KindREST)
	client := func(upstream string, adapter core.TransportAdapter, signer core.Signer) *providers.Client {
		return &providers.Client{
			Upstream:  upstream,
			Transport: adapter,
			Signer:    signer,
			RateLimit: policy,
			Observer:  observer,
		}
	}

	resellerTransport := rest
	if relay, ok := transports.Get(transport.KindRelay); ok {
		resellerTransport = relay
	}
	voucherTransport := rest
	if proxied, ok := transports.Get(transport.KindProxied); ok {
		voucherTransport = proxied
	}

	tokens := auth.NewTokenCache(auth.TokenCacheConfig{
		Upstream:    core.UpstreamGameCred,
		StaticToken: creds.GameCredStaticToken(),
		TTL:         creds.GameCredTokenTTL(),
		Clock:       clk,
		Observer:    observer,
		Login: auth.NewPasswordLogin(auth.PasswordLoginConfig{
			Upstream:  core.UpstreamGameCred,
			URL:       gamecred.LoginURL(creds.GameCredBaseURL()),
			Username:  creds.GameCredUsername(),
			Password:  creds.GameCredPassword(),
			Transport: rest,
		}),
	})
	catalogCache, err := buildCatalogCache(creds, o)
	if err != nil {
		return nil, err
	}

	set := adapters{
		reseller: reseller.New(reseller.Config{
			BaseURL: creds.ResellerBaseURL(),
			APIKey:  creds.ResellerAPIKey(),
		}, client(core.UpstreamReseller, resellerTransport, auth.NewBasicSigner(creds.ResellerAPIKey(), ""))),
		voucher: voucher.New(voucher.Config{
			BaseURL:     creds.VoucherBaseURL(),
			Username:    creds.VoucherUsername(),
			Password:    creds.VoucherPassword(),
			CallbackURL: creds.VoucherCallbackURL(),
		}, client(core.UpstreamVoucher, voucherTransport, auth.NewBasicSigner(creds.VoucherUsername(), creds.VoucherPassword()))),
		gamecred: gamecred.New(gamecred.Config{
			BaseURL: creds.GameCredBaseURL(),
		}, client(core.UpstreamGameCred, rest, auth.NewBearerSigner(tokens)), tokens, catalogCache),
		slip: slip.New(slip.Config{
			BaseURL: creds.SlipBaseURL(),
			APIKey:  creds.SlipAPIKey(),
		}, client(core.UpstreamSlip, rest, auth.NewAPIKeySigner(creds.SlipAPIKey()))),
	}

	dispatcher := inbound.NewDispatcher(observer)
	if err := registerRoutes(dispatcher, set); err != nil {
		return nil, err
	}

	observer.Debug(context.Background(), "gateway configured", map[string]any{
		"routes":     dispatcher.Routes(),
		"transports": transports.Kinds(),
	})
	return &Gateway{
		config:      cfg,
		credentials: creds,
		observer:    observer,
		transports:  transports,
		tokens:      tokens,
		dispatcher:  dispatcher,
	}, nil
}

// buildTransports registers rest always, proxied when a voucher proxy is
// configured and relay when a relay URL is configured. Adapters passed with
// WithTransport replace the built-in one of the same kind.
func buildTransports(cfg Config, creds core.Credentials, o options) (*transport.Registry, error) {
	doer := o.httpClient
	if doer == nil {
		client, err := transport.NewHTTPClient(transport.ClientOptions{Timeout: cfg.HTTP.UpstreamTimeout})
		if err != nil {
			return nil, err
		}
		doer = client
	}

	byKind := map[string]core.TransportAdapter{
		transport.KindREST: transport.NewRESTAdapter(doer),
	}
	if proxyURL := creds.VoucherProxyURL(); proxyURL != "" {
		proxyClient, err := transport.NewHTTPClient(transport.ClientOptions{
			Timeout:  cfg.HTTP.UpstreamTimeout,
			ProxyURL: proxyURL,
		})
		if err != nil {
			return nil, err
		}
		byKind[transport.KindProxied] = transport.NewProxiedAdapter(proxyClient)
	}
	if relayURL := creds.RelayURL(); relayURL != "" {
		byKind[transport.KindRelay] = transport.NewRelayAdapter(relayURL, creds.RelaySecret(), doer)
	}
	for _, adapter := range o.transports {
		byKind[strings.ToLower(strings.TrimSpace(adapter.Kind()))] = adapter
	}

	registry := transport.NewRegistry()
	for _, adapter := range byKind {
		if err := registry.Register(adapter); err != nil {
			return nil, err
		}
	}
	if _, ok := registry.Get(transport.KindREST); !ok {
		return nil, fmt.Errorf("gateway: %s transport is required", transport.KindREST)
	}
	return registry, nil
}

func buildCatalogCache(creds core.Credentials, o options) (repositorycache.CacheService, error) {
	if o.catalogCache != nil {
		return o.catalogCache, nil
	}
	ttl := creds.GameCredCatalogCacheTTL()
	if ttl <= 0 {
		return nil, nil
	}
	config := repositorycache.DefaultConfig()
	config.TTL = ttl
	service, err := repositorycache.NewCacheService(config)
	if err != nil {
		return nil, fmt.Errorf("gateway: catalog cache: %w", err)
	}
	return service, nil
}
