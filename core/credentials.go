package core

import (
	"sort"
	"strings"
	"time"
)

// Credentials is the process-wide credential store. It is built once from
// Config and only exposes read accessors, so concurrent reads need no locking.
type Credentials struct {
	relayURL    string
	relaySecret string

	resellerBaseURL string
	resellerAPIKey  string

	voucherBaseURL     string
	voucherUsername    string
	voucherPassword    string
	voucherCallbackURL string
	voucherProxyURL    string

	gameCredBaseURL     string
	gameCredUsername    string
	gameCredPassword    string
	gameCredStaticToken string
	gameCredTokenTTL    time.Duration
	gameCredCacheTTL    time.Duration

	slipBaseURL string
	slipAPIKey  string
}

func NewCredentials(cfg Config) Credentials {
	ttl := cfg.GameCred.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return Credentials{
		relayURL:            strings.TrimSpace(cfg.Relay.URL),
		relaySecret:         strings.TrimSpace(cfg.Relay.Secret),
		resellerBaseURL:     trimBaseURL(cfg.Reseller.BaseURL),
		resellerAPIKey:      strings.TrimSpace(cfg.Reseller.APIKey),
		voucherBaseURL:      trimBaseURL(cfg.Voucher.BaseURL),
		voucherUsername:     strings.TrimSpace(cfg.Voucher.Username),
		voucherPassword:     cfg.Voucher.Password,
		voucherCallbackURL:  strings.TrimSpace(cfg.Voucher.CallbackURL),
		voucherProxyURL:     strings.TrimSpace(cfg.Voucher.ProxyURL),
		gameCredBaseURL:     trimBaseURL(cfg.GameCred.BaseURL),
		gameCredUsername:    strings.TrimSpace(cfg.GameCred.Username),
		gameCredPassword:    cfg.GameCred.Password,
		gameCredStaticToken: strings.TrimSpace(cfg.GameCred.StaticToken),
		gameCredTokenTTL:    ttl,
		gameCredCacheTTL:    cfg.GameCred.CatalogCacheTTL,
		slipBaseURL:         trimBaseURL(cfg.Slip.BaseURL),
		slipAPIKey:          strings.TrimSpace(cfg.Slip.APIKey),
	}
}

func (c Credentials) RelayURL() string    { return c.relayURL }
func (c Credentials) RelaySecret() string { return c.relaySecret }

func (c Credentials) ResellerBaseURL() string { return c.resellerBaseURL }
func (c Credentials) ResellerAPIKey() string  { return c.resellerAPIKey }

func (c Credentials) VoucherBaseURL() string     { return c.voucherBaseURL }
func (c Credentials) VoucherUsername() string    { return c.voucherUsername }
func (c Credentials) VoucherPassword() string    { return c.voucherPassword }
func (c Credentials) VoucherCallbackURL() string { return c.voucherCallbackURL }
func (c Credentials) VoucherProxyURL() string    { return c.voucherProxyURL }

func (c Credentials) GameCredBaseURL() string         { return c.gameCredBaseURL }
func (c Credentials) GameCredUsername() string        { return c.gameCredUsername }
func (c Credentials) GameCredPassword() string        { return c.gameCredPassword }
func (c Credentials) GameCredStaticToken() string     { return c.gameCredStaticToken }
func (c Credentials) GameCredTokenTTL() time.Duration { return c.gameCredTokenTTL }
func (c Credentials) GameCredCatalogCacheTTL() time.Duration {
	return c.gameCredCacheTTL
}

func (c Credentials) SlipBaseURL() string { return c.slipBaseURL }
func (c Credentials) SlipAPIKey() string  { return c.slipAPIKey }

// Require returns a missing-configuration fault for the first empty setting.
func Require(upstream string, settings map[string]string) error {
	keys := make([]string, 0, len(settings))
	for key := range settings {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if strings.TrimSpace(settings[key]) == "" {
			return NewMissingConfiguration(key, upstream)
		}
	}
	return nil
}

func trimBaseURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}
