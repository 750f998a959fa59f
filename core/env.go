package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const DefaultEnvPrefix = "GATEWAY_"

// gatewayEnv holds raw environment values. Pointer fields stay nil when the
// variable is unset so the layer only carries what the operator provided.
type gatewayEnv struct {
	ServiceName     *string        `env:"SERVICE_NAME"`
	HTTPAddr        *string        `env:"HTTP_ADDR"`
	UpstreamTimeout *time.Duration `env:"UPSTREAM_TIMEOUT"`
	LogLevel        *string        `env:"LOG_LEVEL"`
	LogFormat       *string        `env:"LOG_FORMAT"`

	RelayURL    *string `env:"RELAY_URL"`
	RelaySecret *string `env:"RELAY_SECRET"`

	ResellerBaseURL *string `env:"RESELLER_BASE_URL"`
	ResellerAPIKey  *string `env:"RESELLER_API_KEY"`

	VoucherBaseURL     *string `env:"VOUCHER_BASE_URL"`
	VoucherUsername    *string `env:"VOUCHER_USERNAME"`
	VoucherPassword    *string `env:"VOUCHER_PASSWORD"`
	VoucherCallbackURL *string `env:"VOUCHER_CALLBACK_URL"`
	VoucherProxyURL    *string `env:"VOUCHER_PROXY_URL"`

	GameCredBaseURL         *string        `env:"GAMECRED_BASE_URL"`
	GameCredUsername        *string        `env:"GAMECRED_USERNAME"`
	GameCredPassword        *string        `env:"GAMECRED_PASSWORD"`
	GameCredStaticToken     *string        `env:"GAMECRED_STATIC_TOKEN"`
	GameCredTokenTTL        *time.Duration `env:"GAMECRED_TOKEN_TTL"`
	GameCredCatalogCacheTTL *time.Duration `env:"GAMECRED_CATALOG_CACHE_TTL"`

	SlipBaseURL *string `env:"SLIP_BASE_URL"`
	SlipAPIKey  *string `env:"SLIP_API_KEY"`

	StoreDriver   *string        `env:"STORE_DRIVER"`
	StoreDSN      *string        `env:"STORE_DSN"`
	StoreDebug    *bool          `env:"STORE_DEBUG"`
	StoreCacheTTL *time.Duration `env:"STORE_CACHE_TTL"`

	OTelEnabled  *bool   `env:"OTEL_ENABLED"`
	OTelEndpoint *string `env:"OTEL_ENDPOINT"`
}

// EnvRawConfigLoader reads GATEWAY_* variables into a raw config layer.
type EnvRawConfigLoader struct {
	Prefix      string
	Environment map[string]string
}

func NewEnvRawConfigLoader(prefix string) *EnvRawConfigLoader {
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultEnvPrefix
	}
	return &EnvRawConfigLoader{Prefix: prefix}
}

func (l *EnvRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	prefix := DefaultEnvPrefix
	var environment map[string]string
	if l != nil {
		if strings.TrimSpace(l.Prefix) != "" {
			prefix = l.Prefix
		}
		environment = l.Environment
	}

	var raw gatewayEnv
	options := env.Options{Prefix: prefix}
	if environment != nil {
		options.Environment = environment
	}
	if err := env.ParseWithOptions(&raw, options); err != nil {
		return nil, fmt.Errorf("core: parse env: %w", err)
	}
	return raw.layer(), nil
}

func (e gatewayEnv) layer() map[string]any {
	layer := map[string]any{}
	setString(layer, "service_name", e.ServiceName)

	httpLayer := map[string]any{}
	setString(httpLayer, "addr", e.HTTPAddr)
	setDuration(httpLayer, "upstream_timeout", e.UpstreamTimeout)
	putSection(layer, "http", httpLayer)

	logLayer := map[string]any{}
	setString(logLayer, "level", e.LogLevel)
	setString(logLayer, "format", e.LogFormat)
	putSection(layer, "log", logLayer)

	relayLayer := map[string]any{}
	setString(relayLayer, "url", e.RelayURL)
	setString(relayLayer, "secret", e.RelaySecret)
	putSection(layer, "relay", relayLayer)

	resellerLayer := map[string]any{}
	setString(resellerLayer, "base_url", e.ResellerBaseURL)
	setString(resellerLayer, "api_key", e.ResellerAPIKey)
	putSection(layer, "reseller", resellerLayer)

	voucherLayer := map[string]any{}
	setString(voucherLayer, "base_url", e.VoucherBaseURL)
	setString(voucherLayer, "username", e.VoucherUsername)
	setString(voucherLayer, "password", e.VoucherPassword)
	setString(voucherLayer, "callback_url", e.VoucherCallbackURL)
	setString(voucherLayer, "proxy_url", e.VoucherProxyURL)
	putSection(layer, "voucher", voucherLayer)

	gameCredLayer := map[string]any{}
	setString(gameCredLayer, "base_url", e.GameCredBaseURL)
	setString(gameCredLayer, "username", e.GameCredUsername)
	setString(gameCredLayer, "password", e.GameCredPassword)
	setString(gameCredLayer, "static_token", e.GameCredStaticToken)
	setDuration(gameCredLayer, "token_ttl", e.GameCredTokenTTL)
	setDuration(gameCredLayer, "catalog_cache_ttl", e.GameCredCatalogCacheTTL)
	putSection(layer, "gamecred", gameCredLayer)

	slipLayer := map[string]any{}
	setString(slipLayer, "base_url", e.SlipBaseURL)
	setString(slipLayer, "api_key", e.SlipAPIKey)
	putSection(layer, "slip", slipLayer)

	storeLayer := map[string]any{}
	setString(storeLayer, "driver", e.StoreDriver)
	setString(storeLayer, "dsn", e.StoreDSN)
	if e.StoreDebug != nil {
		storeLayer["debug"] = *e.StoreDebug
	}
	setDuration(storeLayer, "cache_ttl", e.StoreCacheTTL)
	putSection(layer, "store", storeLayer)

	telemetryLayer := map[string]any{}
	if e.OTelEnabled != nil {
		telemetryLayer["enabled"] = *e.OTelEnabled
	}
	setString(telemetryLayer, "endpoint", e.OTelEndpoint)
	putSection(layer, "telemetry", telemetryLayer)
	return layer
}

func setString(layer map[string]any, key string, value *string) {
	if value == nil {
		return
	}
	layer[key] = strings.TrimSpace(*value)
}

func setDuration(layer map[string]any, key string, value *time.Duration) {
	if value == nil {
		return
	}
	layer[key] = *value
}
