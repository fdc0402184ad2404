package types

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestParseRawParam_Shapes(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		wantKind ParamKind
		wantList bool
	}{
		{"string", "text", KindValue, false},
		{"number", json.Number("1.50"), KindValue, false},
		{"bool", true, KindValue, false},
		{"int from yaml", 42, KindValue, false},
		{"string list", []any{"a", "b"}, KindValue, true},
		{"empty list", []any{}, KindValue, true},
		{"flat map", map[string]any{"a": "b", "n": 1}, KindStringMap, false},
		{"list of flat maps", []any{map[string]any{"a": "b"}, map[string]any{"c": "d"}}, KindStringMap, true},
		{"nested map", map[string]any{"name": "not", "predicate": map[string]any{"name": "any"}}, KindMap, false},
		{"list of nested maps", []any{map[string]any{"name": "x", "inner": []any{"a"}}}, KindMap, true},
		{"yaml map", map[any]any{"a": "b"}, KindStringMap, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseRawParam(tt.input)
			if err != nil {
				t.Fatalf("ParseRawParam() error = %v", err)
			}
			if p.Kind() != tt.wantKind {
				t.Errorf("Kind() = %v, want %v", p.Kind(), tt.wantKind)
			}
			if p.IsList() != tt.wantList {
				t.Errorf("IsList() = %v, want %v", p.IsList(), tt.wantList)
			}
		})
	}
}

func TestParseRawParam_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input any
	}{
		{"null", nil},
		{"mixed list", []any{"a", map[string]any{"b": "c"}}},
		{"non-string key", map[any]any{1: "a"}},
		{"unsupported", struct{}{}},
		{"nested null", map[string]any{"a": map[string]any{"b": nil, "c": []any{}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseRawParam(tt.input); err == nil {
				t.Errorf("ParseRawParam(%v) expected error", tt.input)
			}
		})
	}
}

func TestParseRawParam_ScalarText(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		input any
		want  string
	}{
		{"abc", "abc"},
		{json.Number("12345678901234567890.123"), "12345678901234567890.123"},
		{false, "false"},
		{int64(-7), "-7"},
		{2.5, "2.5"},
		{ts, ts.String()},
	}
	for _, tt := range tests {
		p, err := ParseRawParam(tt.input)
		if err != nil {
			t.Fatalf("ParseRawParam(%v) error = %v", tt.input, err)
		}
		got, ok := p.AsValue()
		if !ok || got != tt.want {
			t.Errorf("AsValue() = %q, %v, want %q", got, ok, tt.want)
		}
	}
}

func TestRawConfigParam_AccessorsRejectOtherShapes(t *testing.T) {
	v := Value("a")
	if _, ok := v.AsValues(); ok {
		t.Error("singular value must not read as a list")
	}
	if _, ok := v.AsStringMap(); ok {
		t.Error("value must not read as a string map")
	}
	if _, ok := v.AsMap(); ok {
		t.Error("value must not read as a map")
	}

	list := Values("a", "b")
	if _, ok := list.AsValue(); ok {
		t.Error("list must not read as a singular value")
	}
	got, ok := list.AsValues()
	if !ok || !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("AsValues() = %v, %v", got, ok)
	}
}

func TestRawConfigParam_StringMapPromotesToMap(t *testing.T) {
	p := StringMap(map[string]string{"name": "startsWith", "prefix": "x"})
	m, ok := p.AsMap()
	if !ok {
		t.Fatal("AsMap() on string map should promote")
	}
	name, ok := m["name"].AsValue()
	if !ok || name != "startsWith" {
		t.Errorf("promoted name = %q, %v", name, ok)
	}

	list := StringMaps(map[string]string{"name": "a"}, map[string]string{"name": "b"})
	maps, ok := list.AsMaps()
	if !ok || len(maps) != 2 {
		t.Fatalf("AsMaps() = %v, %v", maps, ok)
	}
}

func TestRawConfigParam_Immutable(t *testing.T) {
	src := map[string]string{"a": "b"}
	p := StringMap(src)
	src["a"] = "changed"

	got, _ := p.AsStringMap()
	if got["a"] != "b" {
		t.Errorf("constructor must copy input, got %q", got["a"])
	}
	got["a"] = "mutated"
	again, _ := p.AsStringMap()
	if again["a"] != "b" {
		t.Errorf("accessor must return a copy, got %q", again["a"])
	}
}

func TestAssignOrder(t *testing.T) {
	specs := []RuleSpec{{Name: "a", Order: 7}, {Name: "b", Order: 7}, {Name: "c", Order: -1}}
	AssignOrder(specs)
	for i, s := range specs {
		if s.Order != i {
			t.Errorf("specs[%d].Order = %d, want %d", i, s.Order, i)
		}
	}
}

func TestConfigError_Message(t *testing.T) {
	err := &ConfigError{Category: CategorySupplier, Component: "string", Key: "value", Err: ErrMissingKey}
	if got, want := err.Error(), `supplier "string": missing key: value`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrMissingKey) {
		t.Error("ConfigError must unwrap to its sentinel")
	}

	noName := &ConfigError{Category: CategoryRule, Err: ErrNoName}
	if got, want := noName.Error(), "rule: no name"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestIsAbort(t *testing.T) {
	abort := &AbortError{Rule: "validate", Order: 2, Reason: "3 violations"}
	if !IsAbort(abort) {
		t.Error("IsAbort(abort) = false")
	}
	wrapped := &InstantiationError{Category: CategoryRule, Name: "x", Err: abort}
	if !IsAbort(wrapped) {
		t.Error("IsAbort must see through wrapping")
	}
	if IsAbort(ErrStopRuleProcessing) {
		t.Error("stop signal is not an abort")
	}
}

func TestRunID(t *testing.T) {
	id := NewRunID()
	if _, err := ParseRunID(string(id)); err != nil {
		t.Fatalf("ParseRunID(%q) error = %v", id, err)
	}
	if RunIDTime(id).IsZero() {
		t.Error("RunIDTime() of a v7 id must not be zero")
	}
	if _, err := ParseRunID("not-a-uuid"); err == nil {
		t.Error("ParseRunID should reject malformed ids")
	}
}
