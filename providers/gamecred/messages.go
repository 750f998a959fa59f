package gamecred

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/goliatone/go-upstream-gateway/core"
)

const RequestMessageType = "gateway.gamecred.request"

// Request addresses any credential provider endpoint relative to its base URL.
type Request struct {
	Endpoint string          `json:"endpoint"`
	Method   string          `json:"method"`
	Body     json.RawMessage `json:"body"`
}

func (Request) Type() string { return RequestMessageType }

func (r Request) Validate() error {
	if strings.TrimSpace(r.Endpoint) == "" {
		return core.NewCallerInputError("Missing required parameter: endpoint", nil)
	}
	switch r.method() {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return nil
	}
	return core.NewCallerInputError("Unsupported method", map[string]any{"method": r.Method})
}

func (r Request) method() string {
	method := strings.ToUpper(strings.TrimSpace(r.Method))
	if method == "" {
		return http.MethodGet
	}
	return method
}

func (r Request) path() string {
	return strings.Trim(strings.TrimSpace(r.Endpoint), "/")
}
