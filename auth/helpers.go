package auth

import (
	"encoding/json"
	"strings"
)

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

type loginResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
	Data        struct {
		Token       string `json:"token"`
		AccessToken string `json:"access_token"`
	} `json:"data"`
}

// ExtractToken reads the bearer token from a login response body. It returns
// an empty string when the body carries none.
func ExtractToken(body []byte) string {
	var decoded loginResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return ""
	}
	return firstNonEmpty(
		decoded.Token,
		decoded.AccessToken,
		decoded.Data.Token,
		decoded.Data.AccessToken,
	)
}
