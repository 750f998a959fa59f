package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultServiceName     = "upstream-gateway"
	DefaultHTTPAddr        = ":8080"
	DefaultUpstreamTimeout = 30 * time.Second
	DefaultTokenTTL        = 12 * time.Hour
	DefaultStoreDriver     = StoreDriverSQLite
	DefaultStoreCacheTTL   = 2 * time.Second
)

const (
	StoreDriverSQLite   = "sqlite3"
	StoreDriverPostgres = "postgres"
)

type HTTPConfig struct {
	Addr            string        `koanf:"addr" mapstructure:"addr"`
	UpstreamTimeout time.Duration `koanf:"upstream_timeout" mapstructure:"upstream_timeout"`
}

type LogConfig struct {
	Level  string `koanf:"level" mapstructure:"level"`
	Format string `koanf:"format" mapstructure:"format"`
}

type RelayConfig struct {
	URL    string `koanf:"url" mapstructure:"url"`
	Secret string `koanf:"secret" mapstructure:"secret"`
}

type ResellerConfig struct {
	BaseURL string `koanf:"base_url" mapstructure:"base_url"`
	APIKey  string `koanf:"api_key" mapstructure:"api_key"`
}

type VoucherConfig struct {
	BaseURL     string `koanf:"base_url" mapstructure:"base_url"`
	Username    string `koanf:"username" mapstructure:"username"`
	Password    string `koanf:"password" mapstructure:"password"`
	CallbackURL string `koanf:"callback_url" mapstructure:"callback_url"`
	ProxyURL    string `koanf:"proxy_url" mapstructure:"proxy_url"`
}

type GameCredConfig struct {
	BaseURL         string        `koanf:"base_url" mapstructure:"base_url"`
	Username        string        `koanf:"username" mapstructure:"username"`
	Password        string        `koanf:"password" mapstructure:"password"`
	StaticToken     string        `koanf:"static_token" mapstructure:"static_token"`
	TokenTTL        time.Duration `koanf:"token_ttl" mapstructure:"token_ttl"`
	CatalogCacheTTL time.Duration `koanf:"catalog_cache_ttl" mapstructure:"catalog_cache_ttl"`
}

type SlipConfig struct {
	BaseURL string `koanf:"base_url" mapstructure:"base_url"`
	APIKey  string `koanf:"api_key" mapstructure:"api_key"`
}

// StoreConfig enables persisted throttle state. An empty DSN keeps the state in
// process memory.
type StoreConfig struct {
	Driver   string        `koanf:"driver" mapstructure:"driver"`
	DSN      string        `koanf:"dsn" mapstructure:"dsn"`
	Debug    bool          `koanf:"debug" mapstructure:"debug"`
	CacheTTL time.Duration `koanf:"cache_ttl" mapstructure:"cache_ttl"`
}

func (c StoreConfig) Enabled() bool {
	return strings.TrimSpace(c.DSN) != ""
}

type TelemetryConfig struct {
	Enabled  bool   `koanf:"enabled" mapstructure:"enabled"`
	Endpoint string `koanf:"endpoint" mapstructure:"endpoint"`
}

type Config struct {
	ServiceName string          `koanf:"service_name" mapstructure:"service_name"`
	HTTP        HTTPConfig      `koanf:"http" mapstructure:"http"`
	Log         LogConfig       `koanf:"log" mapstructure:"log"`
	Relay       RelayConfig     `koanf:"relay" mapstructure:"relay"`
	Reseller    ResellerConfig  `koanf:"reseller" mapstructure:"reseller"`
	Voucher     VoucherConfig   `koanf:"voucher" mapstructure:"voucher"`
	GameCred    GameCredConfig  `koanf:"gamecred" mapstructure:"gamecred"`
	Slip        SlipConfig      `koanf:"slip" mapstructure:"slip"`
	Store       StoreConfig     `koanf:"store" mapstructure:"store"`
	Telemetry   TelemetryConfig `koanf:"telemetry" mapstructure:"telemetry"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: DefaultServiceName,
		HTTP: HTTPConfig{
			Addr:            DefaultHTTPAddr,
			UpstreamTimeout: DefaultUpstreamTimeout,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		GameCred: GameCredConfig{
			TokenTTL: DefaultTokenTTL,
		},
		Store: StoreConfig{
			Driver:   DefaultStoreDriver,
			CacheTTL: DefaultStoreCacheTTL,
		},
		Telemetry: TelemetryConfig{
			Enabled: true,
		},
	}
}

// Validate only checks process-level settings. Missing upstream credentials are
// reported per route at request time.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		return fmt.Errorf("core: http.addr is required")
	}
	if c.HTTP.UpstreamTimeout < 0 {
		return fmt.Errorf("core: http.upstream_timeout must not be negative")
	}
	if c.GameCred.TokenTTL < 0 || c.GameCred.CatalogCacheTTL < 0 {
		return fmt.Errorf("core: gamecred ttl values must not be negative")
	}
	if c.Store.CacheTTL < 0 {
		return fmt.Errorf("core: store.cache_ttl must not be negative")
	}
	switch strings.ToLower(strings.TrimSpace(c.Store.Driver)) {
	case "", StoreDriverSQLite, StoreDriverPostgres:
	default:
		return fmt.Errorf("core: store.driver %q is not supported", c.Store.Driver)
	}
	for name, raw := range map[string]string{
		"relay.url":            c.Relay.URL,
		"reseller.base_url":    c.Reseller.BaseURL,
		"voucher.base_url":     c.Voucher.BaseURL,
		"voucher.callback_url": c.Voucher.CallbackURL,
		"voucher.proxy_url":    c.Voucher.ProxyURL,
		"gamecred.base_url":    c.GameCred.BaseURL,
		"slip.base_url":        c.Slip.BaseURL,
	} {
		if err := validateOptionalURL(name, raw); err != nil {
			return err
		}
	}
	return nil
}

func validateOptionalURL(name string, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("core: %s is invalid: %w", name, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("core: %s is invalid: absolute url required", name)
	}
	return nil
}
