package record

import (
	"encoding/json"
	"net"
	"reflect"
	"testing"
	"time"

	"github.com/mholtzmann/qualys-api-client/pkg/decode"
)

func TestNewItemKeyProbing(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]any
		want   string
	}{
		{"upper ID", map[string]any{"ID": "42"}, "42"},
		{"lower id", map[string]any{"id": "abc"}, "abc"},
		{"asset id", map[string]any{"assetId": float64(9001)}, "9001"},
		{"qid", map[string]any{"QID": "105943"}, "105943"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewItem(tt.fields).Key(); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewItemExplicitKeyFields(t *testing.T) {
	r := NewItem(map[string]any{"host": "db01", "port": "5432", "ID": "ignored"}, "host", "port")
	if r.Key() != "db01:5432" {
		t.Errorf("Key() = %q, want db01:5432", r.Key())
	}
}

func TestNewItemNoIdentifierIsStructural(t *testing.T) {
	a := NewItem(map[string]any{"x": "1", "y": "2"})
	b := NewItem(map[string]any{"y": "2", "x": "1"})
	if a.Key() != b.Key() {
		t.Errorf("structurally equal records got different keys: %q vs %q", a.Key(), b.Key())
	}
}

func TestSerializable(t *testing.T) {
	when := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)
	nested := NewItem(map[string]any{"ID": "7", "name": "child"})

	r := NewItem(map[string]any{
		"ID":      "1",
		"seen":    when,
		"address": net.ParseIP("10.1.2.3"),
		"child":   nested,
		"tags":    NewList(NewItem(map[string]any{"ID": "t1"})),
		"count":   float64(3),
	})

	s := r.Serializable()
	if s["seen"] != "2024-06-01T12:30:00Z" {
		t.Errorf("datetime = %v, want ISO-8601", s["seen"])
	}
	if s["address"] != "10.1.2.3" {
		t.Errorf("ip = %v", s["address"])
	}
	if child, ok := s["child"].(map[string]any); !ok || child["name"] != "child" {
		t.Errorf("nested record = %v", s["child"])
	}
	if tags, ok := s["tags"].([]any); !ok || len(tags) != 1 {
		t.Errorf("nested list = %v", s["tags"])
	}

	// The serializable view must be valid JSON and round-trip to an equal
	// structure for the supported value domain.
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back map[string]any
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back["seen"] != s["seen"] || back["address"] != s["address"] {
		t.Error("round trip changed scalar fields")
	}
	if !reflect.DeepEqual(back["child"], s["child"]) {
		t.Errorf("round trip changed nested record: %v vs %v", back["child"], s["child"])
	}
}

func TestSerializableRoundTripRebuildsEqualRecord(t *testing.T) {
	when := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)
	orig := NewItem(map[string]any{
		"ID":       json.Number("977"),
		"name":     "web-frontend",
		"tracked":  true,
		"severity": json.Number("3.5"),
		"seen":     when,
		"address":  net.ParseIP("10.1.2.3"),
		"child":    NewItem(map[string]any{"ID": "7", "name": "child"}),
		"ports":    []any{json.Number("22"), json.Number("443")},
	})

	data, err := json.Marshal(orig.Serializable())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	parsed, err := decode.JSON(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	fields, ok := parsed.(map[string]any)
	if !ok {
		t.Fatalf("decoded payload is %T, want map", parsed)
	}

	rebuilt := NewItem(fields)
	if rebuilt.Key() != orig.Key() {
		t.Errorf("rebuilt Key() = %q, want %q", rebuilt.Key(), orig.Key())
	}
	if !reflect.DeepEqual(rebuilt.Serializable(), orig.Serializable()) {
		t.Errorf("rebuilt fields differ:\n got %v\nwant %v", rebuilt.Serializable(), orig.Serializable())
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"2", "10", -1},
		{"10", "2", 1},
		{"5", "5", 0},
		{"abc", "abd", -1},
		{"10", "abc", -1}, // mixed falls back to lexical
	}

	for _, tt := range tests {
		a := NewItem(map[string]any{"ID": tt.a})
		b := NewItem(map[string]any{"ID": tt.b})
		if got := Compare(a, b); got != tt.want {
			t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
