package core

import (
	"encoding/json"
	"testing"
)

func TestFlexString_AcceptsScalars(t *testing.T) {
	var payload struct {
		Text   FlexString `json:"text"`
		Number FlexString `json:"number"`
		Flag   FlexString `json:"flag"`
		Null   FlexString `json:"null"`
	}
	if err := json.Unmarshal([]byte(`{"text":" X1 ","number":15000,"flag":true,"null":null}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.Text.String() != "X1" || payload.Number.String() != "15000" || payload.Flag.String() != "true" {
		t.Fatalf("unexpected values %#v", payload)
	}
	if !payload.Null.Empty() {
		t.Fatalf("expected null to be empty")
	}
}

func TestFlexBool_Truthiness(t *testing.T) {
	cases := map[string]bool{
		`true`:      true,
		`false`:     false,
		`"success"`: true,
		`"failed"`:  false,
		`1`:         true,
		`0`:         false,
		`"0"`:       false,
	}
	for raw, want := range cases {
		var flag FlexBool
		if err := json.Unmarshal([]byte(raw), &flag); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if !flag.Set || flag.Value != want {
			t.Fatalf("%s: expected %v, got %#v", raw, want, flag)
		}
	}
}
