package fallback

import (
	"encoding/json"
	"net/http"
	"testing"
)

type decodedCatalog struct {
	Success bool             `json:"success"`
	Data    []map[string]any `json:"data"`
}

func decode(t *testing.T, body []byte) decodedCatalog {
	t.Helper()
	var out decodedCatalog
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode catalog: %v", err)
	}
	return out
}

func TestLookup_GameListIsDeterministic(t *testing.T) {
	first, ok := Lookup(KeyGameList)
	if !ok {
		t.Fatalf("expected game list fallback")
	}
	second, _ := Lookup(KeyGameList)
	if string(first.Body) != string(second.Body) {
		t.Fatalf("expected identical fallback bodies")
	}
	if first.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", first.StatusCode)
	}
	catalog := decode(t, first.Body)
	if !catalog.Success || len(catalog.Data) != len(Games()) {
		t.Fatalf("unexpected catalog %#v", catalog)
	}
}

func TestLookup_PackLists(t *testing.T) {
	env, ok := Lookup(PackListKey("MLBB"))
	if !ok {
		t.Fatalf("expected pack list fallback")
	}
	catalog := decode(t, env.Body)
	if len(catalog.Data) != 3 || catalog.Data[0]["game_id"] != "mlbb" {
		t.Fatalf("unexpected packs %#v", catalog.Data)
	}

	env, ok = Lookup(PackListKey("unknown"))
	if !ok {
		t.Fatalf("expected fallback for unknown game")
	}
	if catalog := decode(t, env.Body); !catalog.Success || len(catalog.Data) != 0 {
		t.Fatalf("expected empty pack list, got %s", env.Body)
	}
	if string(env.Body) != `{"success":true,"data":[]}` {
		t.Fatalf("expected empty array not null, got %s", env.Body)
	}
}

func TestLookup_UnknownKey(t *testing.T) {
	if _, ok := Lookup("balance"); ok {
		t.Fatalf("expected no fallback for non-catalog key")
	}
}

func TestGames_ReturnsCopy(t *testing.T) {
	list := Games()
	list[0].Name = "changed"
	if Games()[0].Name == "changed" {
		t.Fatalf("expected fallback data to be immutable")
	}
}
