// Package fallback serves the fixed catalog returned when the game-credential
// upstream is blocked or unparseable.
package fallback

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-upstream-gateway/core"
)

const (
	KeyGameList    = "game_list"
	packListPrefix = "pack_list:"
)

type Game struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

type Pack struct {
	ID     string `json:"id"`
	GameID string `json:"game_id"`
	Name   string `json:"name"`
	Price  int    `json:"price"`
}

// PackListKey is the logical endpoint key for the packs of one game.
func PackListKey(gameID string) string {
	return packListPrefix + strings.ToLower(strings.TrimSpace(gameID))
}

var games = []Game{
	{ID: "mlbb", Name: "Mobile Legends: Bang Bang", Category: "moba"},
	{ID: "ff", Name: "Free Fire", Category: "battle_royale"},
	{ID: "pubgm", Name: "PUBG Mobile", Category: "battle_royale"},
	{ID: "genshin", Name: "Genshin Impact", Category: "rpg"},
}

var packs = map[string][]Pack{
	"mlbb": {
		{ID: "mlbb-86", GameID: "mlbb", Name: "86 Diamonds", Price: 20000},
		{ID: "mlbb-172", GameID: "mlbb", Name: "172 Diamonds", Price: 40000},
		{ID: "mlbb-257", GameID: "mlbb", Name: "257 Diamonds", Price: 60000},
	},
	"ff": {
		{ID: "ff-100", GameID: "ff", Name: "100 Diamonds", Price: 15000},
		{ID: "ff-310", GameID: "ff", Name: "310 Diamonds", Price: 45000},
	},
	"pubgm": {
		{ID: "pubgm-60", GameID: "pubgm", Name: "60 UC", Price: 15000},
		{ID: "pubgm-325", GameID: "pubgm", Name: "325 UC", Price: 75000},
	},
	"genshin": {
		{ID: "genshin-60", GameID: "genshin", Name: "60 Genesis Crystals", Price: 16000},
		{ID: "genshin-330", GameID: "genshin", Name: "300+30 Genesis Crystals", Price: 79000},
	},
}

type catalogResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// Lookup returns the fixed data set for a logical endpoint as a successful
// envelope. ok is false for keys that have no fallback.
func Lookup(key string) (core.Envelope, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	switch {
	case key == KeyGameList:
		return core.JSONEnvelope(http.StatusOK, catalogResponse{Success: true, Data: Games()}), true
	case strings.HasPrefix(key, packListPrefix):
		gameID := strings.TrimPrefix(key, packListPrefix)
		return core.JSONEnvelope(http.StatusOK, catalogResponse{Success: true, Data: Packs(gameID)}), true
	}
	return core.Envelope{}, false
}

// Games returns a copy of the fallback game list.
func Games() []Game {
	out := make([]Game, len(games))
	copy(out, games)
	return out
}

// Packs returns a copy of the fallback packs for a game; unknown games get an
// empty list.
func Packs(gameID string) []Pack {
	list := packs[strings.ToLower(strings.TrimSpace(gameID))]
	out := make([]Pack, len(list))
	copy(out, list)
	return out
}
