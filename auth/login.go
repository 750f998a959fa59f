package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/goliatone/go-upstream-gateway/core"
)

type PasswordLoginConfig struct {
	Upstream  string
	URL       string
	Username  string
	Password  string
	Transport core.TransportAdapter
}

// NewPasswordLogin posts {username,password} to the login URL and reads the
// token from the response. A 403, a challenge page or any other non-2xx answer
// is AuthBlocked; a transport failure stays UpstreamUnavailable.
func NewPasswordLogin(cfg PasswordLoginConfig) LoginFunc {
	return func(ctx context.Context) (string, error) {
		if cfg.Transport == nil {
			return "", core.NewInternalFault(nil, "auth: login transport is not configured", nil)
		}
		if cfg.URL == "" || cfg.Username == "" || cfg.Password == "" {
			return "", core.NewMissingConfiguration("login credentials", cfg.Upstream)
		}
		payload, err := json.Marshal(map[string]string{
			"username": cfg.Username,
			"password": cfg.Password,
		})
		if err != nil {
			return "", core.NewInternalFault(err, "auth: encode login payload", nil)
		}
		res, err := cfg.Transport.Do(ctx, core.UpstreamRequest{
			Method: http.MethodPost,
			URL:    cfg.URL,
			Headers: map[string]string{
				"Content-Type": "application/json",
				"Accept":       "application/json",
			},
			Body: payload,
		})
		if err != nil {
			return "", err
		}

		metadata := map[string]any{"upstream": cfg.Upstream, "status_code": res.StatusCode}
		if IsBlocked(res.StatusCode, res.Body) {
			return "", core.NewAuthBlocked("Upstream login was blocked", metadata)
		}
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			return "", core.NewAuthBlocked("Upstream login failed", metadata)
		}
		token := ExtractToken(res.Body)
		if token == "" {
			return "", core.NewAuthBlocked("Upstream login returned no token", metadata)
		}
		return token, nil
	}
}
