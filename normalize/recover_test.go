package normalize

import (
	"reflect"
	"testing"
)

func TestRecover(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  any
		ok    bool
	}{
		{"prefixed object", `xxx{"a":1}yyy`, map[string]any{"a": float64(1)}, true},
		{"prefixed array", `xxx[1,2]yyy`, []any{float64(1), float64(2)}, true},
		{"object before array", `warn: {"data":[1]} trailing`, map[string]any{"data": []any{float64(1)}}, true},
		{"array before object", `log [{"id":"mlbb"}] end`, []any{map[string]any{"id": "mlbb"}}, true},
		{"noise", `upstream exploded`, nil, false},
		{"empty", ``, nil, false},
		{"reversed braces", `} nothing {`, nil, false},
		{"broken object", `xx{"a":}yy`, nil, false},
		{"broken object falls through", `{"a": [1, 2}`, nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Recover(tc.input)
			if ok != tc.ok {
				t.Fatalf("expected ok=%v, got %v (%#v)", tc.ok, ok, got)
			}
			if tc.ok && !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("expected %#v, got %#v", tc.want, got)
			}
		})
	}
}
