package gamecred

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-upstream-gateway/fallback"
)

const catalogCacheKeyPrefix = "gateway::gamecred::catalog::v1"

var packSegments = map[string]bool{
	"packs":    true,
	"packages": true,
	"products": true,
}

// catalogKey reports the fallback key of a catalog read. Only GET reads of
// games and games/{id}/packs (or packages, products) are catalog calls.
func catalogKey(req Request) (string, bool) {
	if req.method() != http.MethodGet {
		return "", false
	}
	path := req.path()
	if index := strings.IndexAny(path, "?#"); index >= 0 {
		path = path[:index]
	}
	segments := strings.Split(strings.ToLower(path), "/")
	switch {
	case len(segments) == 1 && segments[0] == "games":
		return fallback.KeyGameList, true
	case len(segments) == 3 && segments[0] == "games" && segments[1] != "" && packSegments[segments[2]]:
		return fallback.PackListKey(segments[1]), true
	}
	return "", false
}

func catalogCacheKey(key string) string {
	return catalogCacheKeyPrefix + "::" + key
}
