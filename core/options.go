package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

// LoadConfig resolves the process configuration with precedence
// defaults < provider (environment) < runtime overrides.
func LoadConfig(ctx context.Context, runtime Config, provider ConfigProvider, resolver OptionsResolver) (Config, error) {
	if provider == nil {
		provider = NewCfgxConfigProvider(NewEnvRawConfigLoader(""))
	}
	if resolver == nil {
		resolver = GoOptionsResolver{}
	}
	defaults := DefaultConfig()
	loaded, err := provider.Load(ctx, defaults)
	if err != nil {
		return Config{}, err
	}
	return resolver.Resolve(defaults, loaded, runtime)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true, true)
	// loaded already carries the defaults, so its flags are authoritative.
	loadedLayer := configToLayerMap(loaded, false, true)
	runtimeLayer := configToLayerMap(runtime, false, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("environment", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("environment"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool, includeFlags bool) map[string]any {
	layer := map[string]any{}
	putString(layer, "service_name", cfg.ServiceName, includeZero)

	httpLayer := map[string]any{}
	putString(httpLayer, "addr", cfg.HTTP.Addr, includeZero)
	putDuration(httpLayer, "upstream_timeout", cfg.HTTP.UpstreamTimeout, includeZero)
	putSection(layer, "http", httpLayer)

	logLayer := map[string]any{}
	putString(logLayer, "level", cfg.Log.Level, includeZero)
	putString(logLayer, "format", cfg.Log.Format, includeZero)
	putSection(layer, "log", logLayer)

	relayLayer := map[string]any{}
	putString(relayLayer, "url", cfg.Relay.URL, includeZero)
	putString(relayLayer, "secret", cfg.Relay.Secret, includeZero)
	putSection(layer, "relay", relayLayer)

	resellerLayer := map[string]any{}
	putString(resellerLayer, "base_url", cfg.Reseller.BaseURL, includeZero)
	putString(resellerLayer, "api_key", cfg.Reseller.APIKey, includeZero)
	putSection(layer, "reseller", resellerLayer)

	voucherLayer := map[string]any{}
	putString(voucherLayer, "base_url", cfg.Voucher.BaseURL, includeZero)
	putString(voucherLayer, "username", cfg.Voucher.Username, includeZero)
	putString(voucherLayer, "password", cfg.Voucher.Password, includeZero)
	putString(voucherLayer, "callback_url", cfg.Voucher.CallbackURL, includeZero)
	putString(voucherLayer, "proxy_url", cfg.Voucher.ProxyURL, includeZero)
	putSection(layer, "voucher", voucherLayer)

	gameCredLayer := map[string]any{}
	putString(gameCredLayer, "base_url", cfg.GameCred.BaseURL, includeZero)
	putString(gameCredLayer, "username", cfg.GameCred.Username, includeZero)
	putString(gameCredLayer, "password", cfg.GameCred.Password, includeZero)
	putString(gameCredLayer, "static_token", cfg.GameCred.StaticToken, includeZero)
	putDuration(gameCredLayer, "token_ttl", cfg.GameCred.TokenTTL, includeZero)
	putDuration(gameCredLayer, "catalog_cache_ttl", cfg.GameCred.CatalogCacheTTL, includeZero)
	putSection(layer, "gamecred", gameCredLayer)

	slipLayer := map[string]any{}
	putString(slipLayer, "base_url", cfg.Slip.BaseURL, includeZero)
	putString(slipLayer, "api_key", cfg.Slip.APIKey, includeZero)
	putSection(layer, "slip", slipLayer)

	storeLayer := map[string]any{}
	putString(storeLayer, "driver", cfg.Store.Driver, includeZero)
	putString(storeLayer, "dsn", cfg.Store.DSN, includeZero)
	if includeFlags || cfg.Store.Debug {
		storeLayer["debug"] = cfg.Store.Debug
	}
	putDuration(storeLayer, "cache_ttl", cfg.Store.CacheTTL, includeZero)
	putSection(layer, "store", storeLayer)

	telemetryLayer := map[string]any{}
	if includeFlags || cfg.Telemetry.Enabled {
		telemetryLayer["enabled"] = cfg.Telemetry.Enabled
	}
	putString(telemetryLayer, "endpoint", cfg.Telemetry.Endpoint, includeZero)
	putSection(layer, "telemetry", telemetryLayer)
	return layer
}

func putString(layer map[string]any, key string, value string, includeZero bool) {
	value = strings.TrimSpace(value)
	if includeZero || value != "" {
		layer[key] = value
	}
}

func putDuration(layer map[string]any, key string, value time.Duration, includeZero bool) {
	if includeZero || value != 0 {
		layer[key] = value
	}
}

func putSection(layer map[string]any, key string, section map[string]any) {
	if len(section) > 0 {
		layer[key] = section
	}
}
