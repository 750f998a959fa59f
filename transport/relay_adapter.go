package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/goliatone/go-upstream-gateway/core"
)

const KindRelay = "relay"

const RelaySecretHeader = "X-Relay-Secret"

// RelayPayload is the single document POSTed to the relay. The relay replays
// it against TargetURL from its own allow-listed address.
type RelayPayload struct {
	TargetURL string            `json:"targetUrl"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	Body      json.RawMessage   `json:"body,omitempty"`
}

// RelayAdapter tunnels requests through the relay endpoint. The relay's
// response is returned unmodified; only transport failures are errors.
type RelayAdapter struct {
	RelayURL string
	Secret   string
	Direct   *RESTAdapter
}

func NewRelayAdapter(relayURL string, secret string, client HTTPDoer) *RelayAdapter {
	direct := NewRESTAdapter(client)
	direct.kind = KindRelay
	return &RelayAdapter{
		RelayURL: strings.TrimSpace(relayURL),
		Secret:   strings.TrimSpace(secret),
		Direct:   direct,
	}
}

func (*RelayAdapter) Kind() string {
	return KindRelay
}

func (a *RelayAdapter) Do(ctx context.Context, req core.UpstreamRequest) (core.UpstreamResponse, error) {
	if a == nil || a.Direct == nil {
		return core.UpstreamResponse{}, internalError(nil, "transport: relay adapter is not configured", nil)
	}
	if a.RelayURL == "" {
		return core.UpstreamResponse{}, core.NewMissingConfiguration("relay.url", KindRelay)
	}

	payload, err := json.Marshal(BuildRelayPayload(req))
	if err != nil {
		return core.UpstreamResponse{}, internalError(err, "transport: encode relay payload", nil)
	}
	headers := map[string]string{"Content-Type": "application/json"}
	if a.Secret != "" {
		headers[RelaySecretHeader] = a.Secret
	}

	res, err := a.Direct.Do(ctx, core.UpstreamRequest{
		Method:  http.MethodPost,
		URL:     a.RelayURL,
		Headers: headers,
		Body:    payload,
	})
	if err != nil {
		return core.UpstreamResponse{}, err
	}
	if res.Metadata == nil {
		res.Metadata = map[string]any{}
	}
	res.Metadata["kind"] = KindRelay
	return res, nil
}

func BuildRelayPayload(req core.UpstreamRequest) RelayPayload {
	method := strings.TrimSpace(strings.ToUpper(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	headers := make(map[string]string, len(req.Headers))
	for key, value := range req.Headers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		headers[strings.TrimSpace(key)] = value
	}
	payload := RelayPayload{
		TargetURL: strings.TrimSpace(req.URL),
		Method:    method,
		Headers:   headers,
	}
	if len(req.Body) == 0 {
		return payload
	}
	if json.Valid(req.Body) {
		payload.Body = json.RawMessage(req.Body)
		return payload
	}
	encoded, _ := json.Marshal(string(req.Body))
	payload.Body = encoded
	return payload
}

var _ core.TransportAdapter = (*RelayAdapter)(nil)
