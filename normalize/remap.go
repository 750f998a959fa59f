package normalize

import (
	"net/http"

	"github.com/goliatone/go-upstream-gateway/core"
)

// Rules selects which status remappings apply to an upstream call.
type Rules struct {
	// EmptyOnMissing maps 404 and 418 to a successful empty result.
	EmptyOnMissing bool
	// ViaProxy maps 407 to an internal fault.
	ViaProxy bool
}

// Remap applies the status remapping rules. It reports false when the response
// should be normalized as is.
func Remap(res core.UpstreamResponse, rules Rules) (core.Envelope, bool) {
	switch {
	case rules.ViaProxy && res.StatusCode == http.StatusProxyAuthRequired:
		return ProxyAuthFailure(), true
	case rules.EmptyOnMissing && (res.StatusCode == http.StatusNotFound || res.StatusCode == http.StatusTeapot):
		return EmptyResult(), true
	}
	return core.Envelope{}, false
}

// Response runs decode, remap and normalize over a raw upstream response.
func Response(res core.UpstreamResponse, rules Rules) core.Envelope {
	if env, ok := Remap(res, rules); ok {
		return env
	}
	return Envelope(res.StatusCode, Decode(res.Body))
}
