package models

import (
	"encoding/json"
	"math"
	"testing"
)

func TestRawRecord_Number(t *testing.T) {
	r := RawRecord{
		"float":    float64(42),
		"fraction": 4.5,
		"number":   json.Number("7"),
		"decimal":  json.Number("12.0"),
		"exponent": json.Number("1.5e3"),
		"huge":     float64(1e20),
		"badnum":   json.Number("x"),
		"nan":      math.NaN(),
		"inf":      math.Inf(1),
		"int":      3,
		"string":   "12",
		"nil":      nil,
	}

	tests := []struct {
		key    string
		want   float64
		wantOK bool
	}{
		{"float", 42, true},
		{"fraction", 4.5, true},
		{"number", 7, true},
		{"decimal", 12, true},
		{"exponent", 1500, true},
		{"huge", 1e20, true},
		{"badnum", 0, false},
		{"nan", 0, false},
		{"inf", 0, false},
		{"int", 3, true},
		{"string", 0, false},
		{"nil", 0, false},
		{"missing", 0, false},
	}
	for _, tt := range tests {
		got, ok := r.Number(tt.key)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Number(%q) = (%v, %v), want (%v, %v)", tt.key, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestRawRecord_MapNeverNil(t *testing.T) {
	var nilRecord RawRecord
	if m := nilRecord.Map("user"); m == nil {
		t.Fatal("Map on nil record returned nil")
	}

	r := RawRecord{"user": "not a map"}
	if m := r.Map("user"); m == nil || len(m) != 0 {
		t.Fatalf("mistyped user should yield empty map, got %v", m)
	}

	r = RawRecord{"user": map[string]any{"description": "bio"}}
	if s, ok := r.Map("user").String("description"); !ok || s != "bio" {
		t.Fatalf("nested lookup = (%q, %v)", s, ok)
	}
}

func TestNormalizedRow_ValuesOnlyPresent(t *testing.T) {
	text := "hello"
	likes := float64(5)
	row := NormalizedRow{PostText: &text, LikeCount: &likes}

	v := row.Values()
	if len(v) != 2 {
		t.Fatalf("expected 2 present fields, got %d: %v", len(v), v)
	}
	if v[FieldPostText] != "hello" || v[FieldLikeCount] != float64(5) {
		t.Fatalf("unexpected values: %v", v)
	}
}

func TestScrapeRequest_Validate(t *testing.T) {
	tests := []struct {
		name string
		req  ScrapeRequest
		code string
	}{
		{"missing token", ScrapeRequest{Targets: []string{"a"}}, ErrCodeAuth},
		{"no targets", ScrapeRequest{Token: "t", Targets: []string{"  ", ""}}, ErrCodeValidation},
		{"count too high", ScrapeRequest{Token: "t", Targets: []string{"a"}, DesiredCount: 3001}, ErrCodeValidation},
		{"count negative", ScrapeRequest{Token: "t", Targets: []string{"a"}, DesiredCount: -1}, ErrCodeValidation},
		{"ok", ScrapeRequest{Token: "t", Targets: []string{" a "}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			req.Defaults()
			err := req.Validate()
			if got := CodeOf(err); got != tt.code {
				t.Fatalf("code = %q, want %q (err=%v)", got, tt.code, err)
			}
		})
	}
}

func TestScrapeRequest_Defaults(t *testing.T) {
	req := ScrapeRequest{Token: "t", Targets: []string{"acct"}}
	req.Defaults()
	if req.DesiredCount != DefaultDesiredCount {
		t.Errorf("DesiredCount = %d, want %d", req.DesiredCount, DefaultDesiredCount)
	}
	if !req.Replies() || !req.UserInfo() {
		t.Error("replies and user info should default to true")
	}
}

func TestParseTargets(t *testing.T) {
	got := ParseTargets("https://x.com/a\n  \n b ,c\r\n")
	want := []string{"https://x.com/a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
