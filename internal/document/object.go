// internal/document/object.go
package document

import (
	"bytes"
	"encoding/json"
	"reflect"
	"slices"
	"sort"
)

// Object is a JSON object that keeps its members in document order.
// Set appends new keys and replaces existing ones in place.
type Object struct {
	keys   []string
	values map[string]any
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{keys: []string{}, values: map[string]any{}}
}

// ObjectFromMap builds an object from m with keys in sorted order.
func ObjectFromMap(m map[string]any) *Object {
	o := NewObject()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		o.Set(k, m[k])
	}
	return o
}

// Len returns the number of members.
func (o *Object) Len() int { return len(o.keys) }

// Keys returns the member keys in order.
func (o *Object) Keys() []string { return slices.Clone(o.keys) }

// Get returns the value stored under key.
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.values[key]
	return ok
}

// Set stores v under key.
func (o *Object) Set(key string, v any) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// Delete removes key and reports whether it was present.
func (o *Object) Delete(key string) bool {
	if _, ok := o.values[key]; !ok {
		return false
	}
	delete(o.values, key)
	o.keys = slices.Delete(o.keys, o.position(key), o.position(key)+1)
	return true
}

// Rename moves the value of oldKey to newKey at oldKey's position. An
// existing newKey member is replaced. Reports whether oldKey was present.
func (o *Object) Rename(oldKey, newKey string) bool {
	v, ok := o.values[oldKey]
	if !ok {
		return false
	}
	if oldKey == newKey {
		return true
	}
	if _, taken := o.values[newKey]; taken {
		o.Delete(newKey)
	}
	o.keys[o.position(oldKey)] = newKey
	delete(o.values, oldKey)
	o.values[newKey] = v
	return true
}

// Range calls fn for each member in order until fn returns false.
func (o *Object) Range(fn func(key string, v any) bool) {
	for _, k := range o.keys {
		if !fn(k, o.values[k]) {
			return
		}
	}
}

// ToMap returns the members as a map. Values are not copied.
func (o *Object) ToMap() map[string]any {
	out := make(map[string]any, len(o.keys))
	for _, k := range o.keys {
		out[k] = o.values[k]
	}
	return out
}

// Equal reports whether both objects hold equal members in the same order.
func (o *Object) Equal(other *Object) bool {
	if o == nil || other == nil {
		return o == other
	}
	return slices.Equal(o.keys, other.keys) && reflect.DeepEqual(o.values, other.values)
}

// position returns the index of key in member order, or -1.
func (o *Object) position(key string) int {
	return slices.Index(o.keys, key)
}

// MarshalJSON writes members in order without HTML escaping.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(k); err != nil {
			return nil, err
		}
		trimNewline(&buf)
		buf.WriteByte(':')
		if err := enc.Encode(o.values[k]); err != nil {
			return nil, err
		}
		trimNewline(&buf)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func trimNewline(buf *bytes.Buffer) {
	if n := buf.Len(); n > 0 && buf.Bytes()[n-1] == '\n' {
		buf.Truncate(n - 1)
	}
}
