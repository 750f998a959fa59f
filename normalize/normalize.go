package normalize

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/goliatone/go-upstream-gateway/core"
)

// Decode parses an upstream body. Text that is not JSON is wrapped as
// {"message": text}.
func Decode(raw []byte) any {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return map[string]any{}
	}
	var decoded any
	if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
		return core.MessageBody(trimmed)
	}
	return decoded
}

// Envelope shapes a decoded upstream body. Error statuses never forward the
// upstream's error document, only a flat message.
func Envelope(status int, decoded any) core.Envelope {
	if status >= http.StatusBadRequest {
		return core.JSONEnvelope(status, core.MessageBody(ErrorMessage(status, decoded)))
	}
	if decoded == nil {
		decoded = map[string]any{}
	}
	return core.JSONEnvelope(status, decoded)
}

// ErrorMessage picks the upstream's message, error or msg field, falling back
// to the status text.
func ErrorMessage(status int, decoded any) string {
	if body, ok := decoded.(map[string]any); ok {
		for _, key := range []string{"message", "error", "msg"} {
			if text := messageText(body[key]); text != "" {
				return text
			}
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "Upstream request failed"
}

func messageText(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case map[string]any:
		if nested, ok := typed["message"].(string); ok {
			return strings.TrimSpace(nested)
		}
	}
	return ""
}

// EmptyResult is the successful empty answer used when an upstream says a
// resource does not exist for this account.
func EmptyResult() core.Envelope {
	return core.JSONEnvelope(http.StatusOK, map[string]any{"data": []any{}})
}

// ProxyAuthFailure reports that the gateway's own egress credential was
// refused.
func ProxyAuthFailure() core.Envelope {
	return core.JSONEnvelope(http.StatusInternalServerError, core.MessageBody("Upstream proxy authentication failed"))
}
