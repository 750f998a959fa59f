package transport

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultClientTimeout = 30 * time.Second

type ClientOptions struct {
	Timeout time.Duration
	// ProxyURL routes every request through a forward proxy. Credentials may be
	// embedded as user info.
	ProxyURL string
}

// NewHTTPClient builds the outbound client. Timeout is the only deadline the
// gateway applies to upstream calls.
func NewHTTPClient(opts ClientOptions) (*http.Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return &http.Client{Timeout: timeout}, nil
	}
	transport := base.Clone()

	if raw := strings.TrimSpace(opts.ProxyURL); raw != "" {
		proxyURL, err := url.Parse(raw)
		if err != nil {
			return nil, internalError(err, "transport: invalid proxy url", nil)
		}
		if proxyURL.Scheme == "" || proxyURL.Host == "" {
			return nil, internalError(nil, "transport: proxy url must be absolute", nil)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	return &http.Client{Timeout: timeout, Transport: transport}, nil
}
