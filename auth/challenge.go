package auth

import (
	"bytes"
	"net/http"
)

// Substrings that identify an anti-automation interstitial served in place of
// real data.
var challengeMarkers = [][]byte{
	[]byte("Just a moment..."),
	[]byte("cf-browser-verification"),
	[]byte("challenge-platform"),
	[]byte("cf_chl_opt"),
	[]byte("Attention Required! | Cloudflare"),
	[]byte("cf-challenge"),
}

func ContainsChallengeMarker(body []byte) bool {
	if len(body) == 0 {
		return false
	}
	for _, marker := range challengeMarkers {
		if bytes.Contains(body, marker) {
			return true
		}
	}
	return false
}

// IsBlocked reports whether a login response was a block rather than a
// credential answer.
func IsBlocked(statusCode int, body []byte) bool {
	return statusCode == http.StatusForbidden || ContainsChallengeMarker(body)
}
