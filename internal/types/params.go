// internal/types/params.go
package types

import (
	"fmt"
	"sort"
	"strconv"
)

/*
 * Raw configuration parameters.
 *
 * RawConfigParam is the uniform input to parameter binding. Every value in a
 * component configuration map is one of three shapes, each either singular or
 * a list:
 *   - Value:     "k": "text"            or "k": ["a", "b"]
 *   - StringMap: "k": {"a": "b"}        or "k": [{"a": "b"}, ...]
 *   - Map:       "k": {"name": "x", "nested": {...}} or a list of such maps
 *
 * Map is recursive and is how embedded component references are expressed.
 * Values are immutable once built: constructors copy their inputs and
 * accessors return copies.
 *
 * ParseRawParam converts a decoded YAML/JSON tree. Scalars of any JSON type
 * are carried as text; the binder and the factories decide how to interpret
 * them.
 */

// ParamKind discriminates the RawConfigParam variants.
type ParamKind int

const (
	KindValue ParamKind = iota + 1
	KindStringMap
	KindMap
)

func (k ParamKind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindStringMap:
		return "string map"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// RawConfigParam is a tagged configuration value.
type RawConfigParam struct {
	kind ParamKind
	list bool

	value  string
	values []string

	stringMap  map[string]string
	stringMaps []map[string]string

	nested     map[string]RawConfigParam
	nestedList []map[string]RawConfigParam
}

// Value builds a scalar parameter.
func Value(s string) RawConfigParam {
	return RawConfigParam{kind: KindValue, value: s}
}

// Values builds a string list parameter.
func Values(ss ...string) RawConfigParam {
	return RawConfigParam{kind: KindValue, list: true, values: append([]string{}, ss...)}
}

// StringMap builds a string-to-string map parameter.
func StringMap(m map[string]string) RawConfigParam {
	return RawConfigParam{kind: KindStringMap, stringMap: copyStringMap(m)}
}

// StringMaps builds a list of string-to-string maps.
func StringMaps(ms ...map[string]string) RawConfigParam {
	out := make([]map[string]string, len(ms))
	for i, m := range ms {
		out[i] = copyStringMap(m)
	}
	return RawConfigParam{kind: KindStringMap, list: true, stringMaps: out}
}

// Map builds a nested parameter map.
func Map(m map[string]RawConfigParam) RawConfigParam {
	return RawConfigParam{kind: KindMap, nested: copyParamMap(m)}
}

// Maps builds a list of nested parameter maps.
func Maps(ms ...map[string]RawConfigParam) RawConfigParam {
	out := make([]map[string]RawConfigParam, len(ms))
	for i, m := range ms {
		out[i] = copyParamMap(m)
	}
	return RawConfigParam{kind: KindMap, list: true, nestedList: out}
}

// Kind returns the variant of p.
func (p RawConfigParam) Kind() ParamKind { return p.kind }

// IsList reports whether p holds the list form of its variant.
func (p RawConfigParam) IsList() bool { return p.list }

// AsValue returns the scalar held by a singular Value.
func (p RawConfigParam) AsValue() (string, bool) {
	if p.kind != KindValue || p.list {
		return "", false
	}
	return p.value, true
}

// AsValues returns the strings held by a Value list.
func (p RawConfigParam) AsValues() ([]string, bool) {
	if p.kind != KindValue || !p.list {
		return nil, false
	}
	return append([]string{}, p.values...), true
}

// AsStringMap returns the map held by a singular StringMap.
func (p RawConfigParam) AsStringMap() (map[string]string, bool) {
	if p.kind != KindStringMap || p.list {
		return nil, false
	}
	return copyStringMap(p.stringMap), true
}

// AsStringMaps returns the maps held by a StringMap list.
func (p RawConfigParam) AsStringMaps() ([]map[string]string, bool) {
	if p.kind != KindStringMap || !p.list {
		return nil, false
	}
	out := make([]map[string]string, len(p.stringMaps))
	for i, m := range p.stringMaps {
		out[i] = copyStringMap(m)
	}
	return out, true
}

// AsMap returns the nested map held by a singular Map. A singular StringMap
// is promoted: each entry becomes a Value. This lets an embedded component
// whose own parameters are all scalars be written as a flat map.
func (p RawConfigParam) AsMap() (map[string]RawConfigParam, bool) {
	if p.list {
		return nil, false
	}
	switch p.kind {
	case KindMap:
		return copyParamMap(p.nested), true
	case KindStringMap:
		return promote(p.stringMap), true
	default:
		return nil, false
	}
}

// AsMaps returns the nested maps held by a Map list, promoting a StringMap
// list the same way AsMap does.
func (p RawConfigParam) AsMaps() ([]map[string]RawConfigParam, bool) {
	if !p.list {
		return nil, false
	}
	switch p.kind {
	case KindMap:
		out := make([]map[string]RawConfigParam, len(p.nestedList))
		for i, m := range p.nestedList {
			out[i] = copyParamMap(m)
		}
		return out, true
	case KindStringMap:
		out := make([]map[string]RawConfigParam, len(p.stringMaps))
		for i, m := range p.stringMaps {
			out[i] = promote(m)
		}
		return out, true
	default:
		return nil, false
	}
}

// String renders p for logs and error messages.
func (p RawConfigParam) String() string {
	switch {
	case p.kind == KindValue && !p.list:
		return strconv.Quote(p.value)
	case p.kind == KindValue:
		return fmt.Sprintf("%q", p.values)
	case p.kind == KindStringMap && !p.list:
		return fmt.Sprintf("%v", p.stringMap)
	case p.kind == KindStringMap:
		return fmt.Sprintf("%v", p.stringMaps)
	case p.kind == KindMap && !p.list:
		return formatParamMap(p.nested)
	case p.kind == KindMap:
		s := "["
		for i, m := range p.nestedList {
			if i > 0 {
				s += " "
			}
			s += formatParamMap(m)
		}
		return s + "]"
	default:
		return "<invalid>"
	}
}

// ParseRawParams converts a decoded configuration map into raw parameters.
func ParseRawParams(m map[string]any) (map[string]RawConfigParam, error) {
	out := make(map[string]RawConfigParam, len(m))
	for k, v := range m {
		p, err := ParseRawParam(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = p
	}
	return out, nil
}

// ParseRawParam converts one decoded YAML/JSON value.
func ParseRawParam(v any) (RawConfigParam, error) {
	if s, ok := scalarText(v); ok {
		return Value(s), nil
	}
	switch t := v.(type) {
	case nil:
		return RawConfigParam{}, fmt.Errorf("null is not a valid parameter value")
	case map[string]any:
		return parseMap(t)
	case map[any]any:
		m, err := stringKeys(t)
		if err != nil {
			return RawConfigParam{}, err
		}
		return parseMap(m)
	case []any:
		return parseList(t)
	case []string:
		return Values(t...), nil
	case map[string]string:
		return StringMap(t), nil
	default:
		return RawConfigParam{}, fmt.Errorf("unsupported parameter type %T", v)
	}
}

func parseMap(m map[string]any) (RawConfigParam, error) {
	if flat, ok := flatStrings(m); ok {
		return StringMap(flat), nil
	}
	nested, err := ParseRawParams(m)
	if err != nil {
		return RawConfigParam{}, err
	}
	return Map(nested), nil
}

func parseList(items []any) (RawConfigParam, error) {
	if len(items) == 0 {
		return Values(), nil
	}

	strs := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := scalarText(item)
		if !ok {
			break
		}
		strs = append(strs, s)
	}
	if len(strs) == len(items) {
		return Values(strs...), nil
	}

	maps := make([]map[string]any, 0, len(items))
	for i, item := range items {
		switch t := item.(type) {
		case map[string]any:
			maps = append(maps, t)
		case map[any]any:
			m, err := stringKeys(t)
			if err != nil {
				return RawConfigParam{}, fmt.Errorf("[%d]: %w", i, err)
			}
			maps = append(maps, m)
		default:
			return RawConfigParam{}, fmt.Errorf("[%d]: lists must hold only scalars or only maps, got %T", i, item)
		}
	}

	flats := make([]map[string]string, 0, len(maps))
	for _, m := range maps {
		flat, ok := flatStrings(m)
		if !ok {
			break
		}
		flats = append(flats, flat)
	}
	if len(flats) == len(maps) {
		return StringMaps(flats...), nil
	}

	nested := make([]map[string]RawConfigParam, len(maps))
	for i, m := range maps {
		p, err := ParseRawParams(m)
		if err != nil {
			return RawConfigParam{}, fmt.Errorf("[%d]: %w", i, err)
		}
		nested[i] = p
	}
	return Maps(nested...), nil
}

// scalarText renders JSON/YAML scalars as text. Numbers keep their literal
// form when decoded as json.Number (a fmt.Stringer).
func scalarText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case fmt.Stringer:
		return t.String(), true
	default:
		return "", false
	}
}

func flatStrings(m map[string]any) (map[string]string, bool) {
	out := make(map[string]string, len(m))
	for k, v := range m {
		s, ok := scalarText(v)
		if !ok {
			return nil, false
		}
		out[k] = s
	}
	return out, true
}

func stringKeys(m map[any]any) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		ks, ok := k.(string)
		if !ok {
			return nil, fmt.Errorf("map key %v is not a string", k)
		}
		out[ks] = v
	}
	return out, nil
}

func promote(m map[string]string) map[string]RawConfigParam {
	out := make(map[string]RawConfigParam, len(m))
	for k, v := range m {
		out[k] = Value(v)
	}
	return out
}

func copyStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyParamMap(m map[string]RawConfigParam) map[string]RawConfigParam {
	out := make(map[string]RawConfigParam, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func formatParamMap(m map[string]RawConfigParam) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := "{"
	for i, k := range keys {
		if i > 0 {
			s += " "
		}
		s += k + ":" + m[k].String()
	}
	return s + "}"
}
