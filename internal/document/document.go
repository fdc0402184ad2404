// internal/document/document.go
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/solatis/jsonforge/internal/types"
)

/*
 * Mutable JSON document.
 *
 * A Document owns one decoded JSON tree: *Object for objects, []any for
 * arrays, json.Number for numbers, plus string, bool and nil. Decoding reads
 * the token stream with UseNumber, so member order and numeric literals both
 * survive a parse/serialize round trip byte for byte.
 *
 * All mutations are path scoped and apply to every matched node. Values
 * written into the tree are normalized to the JSON model and deep-copied, so
 * no two nodes ever share a container.
 *
 * A Document is owned by a single pipeline run and is not safe for
 * concurrent use.
 */

// ErrNotObject reports a mutation that needs an object at a node that is not one.
var ErrNotObject = errors.New("node is not an object")

// ErrKeyNotFound reports a rename of a key that does not exist.
var ErrKeyNotFound = errors.New("key not found")

// ErrRootDelete reports an attempt to delete the document root.
var ErrRootDelete = errors.New("cannot delete the document root")

// Document is a mutable JSON tree.
type Document struct {
	root any
}

// New wraps an already decoded tree. The value is normalized and copied.
func New(root any) *Document {
	return &Document{root: Normalize(root)}
}

// Parse decodes JSON text into a Document.
func Parse(data []byte) (*Document, error) {
	v, err := decode(data)
	if err != nil {
		return nil, err
	}
	return &Document{root: v}, nil
}

// Root returns the root value. Callers must not retain it across mutations.
func (d *Document) Root() any { return d.root }

// Bytes serializes the document as compact JSON.
func (d *Document) Bytes() ([]byte, error) {
	return encode(d.root, "")
}

// Indent serializes the document with the given indent.
func (d *Document) Indent(indent string) ([]byte, error) {
	return encode(d.root, indent)
}

// Clone returns an independent copy of d.
func (d *Document) Clone() *Document {
	return &Document{root: DeepCopy(d.root)}
}

// Read returns the values of every node matched by p, in match order.
// The values are live; callers that keep or mutate them must DeepCopy.
func (d *Document) Read(p *Path) []any {
	nodes := resolve(p, d.root)
	out := make([]any, len(nodes))
	for i, n := range nodes {
		out[i] = n.value
	}
	return out
}

// Get returns the single value matched by a definite path.
func (d *Document) Get(p *Path) (any, bool) {
	nodes := resolve(p, d.root)
	if len(nodes) != 1 {
		return nil, false
	}
	return nodes[0].value, true
}

// Locations returns the canonical location of every node matched by p.
func (d *Document) Locations(p *Path) []string {
	nodes := resolve(p, d.root)
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.location()
	}
	return out
}

// Put stores a copy of value under key in every object matched by p. A new
// key is appended; an existing key keeps its position. Non-object matches
// are skipped; their errors are joined and returned after every object has
// been written.
func (d *Document) Put(p *Path, key string, value any) (int, error) {
	value = Normalize(value)
	var errs []error
	written := 0
	for _, n := range resolve(p, d.root) {
		obj, ok := n.value.(*Object)
		if !ok {
			errs = append(errs, fmt.Errorf("%s: %w", n.location(), ErrNotObject))
			continue
		}
		obj.Set(key, DeepCopy(value))
		written++
	}
	return written, errors.Join(errs...)
}

// Delete removes every node matched by p. Returns the number removed.
func (d *Document) Delete(p *Path) (int, error) {
	nodes := resolve(p, d.root)
	if len(nodes) == 0 {
		return 0, nil
	}

	// Group by parent, then work from the deepest parents up so array
	// indices held by outer groups stay valid while inner arrays shrink.
	type group struct {
		parent  *node
		keys    []string
		indices []int
	}
	groups := map[string]*group{}
	var order []string
	var errs []error
	for _, n := range nodes {
		if n.parent == nil {
			errs = append(errs, ErrRootDelete)
			continue
		}
		loc := n.parent.location()
		g, ok := groups[loc]
		if !ok {
			g = &group{parent: n.parent}
			groups[loc] = g
			order = append(order, loc)
		}
		if n.member {
			g.keys = append(g.keys, n.key)
		} else {
			g.indices = append(g.indices, n.index)
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return groups[order[i]].parent.depth() > groups[order[j]].parent.depth()
	})

	removed := 0
	for _, loc := range order {
		g := groups[loc]
		switch v := g.parent.value.(type) {
		case *Object:
			for _, k := range g.keys {
				if v.Delete(k) {
					removed++
				}
			}
		case []any:
			drop := make(map[int]bool, len(g.indices))
			for _, i := range g.indices {
				drop[i] = true
			}
			kept := make([]any, 0, len(v)-len(drop))
			for i, elem := range v {
				if !drop[i] {
					kept = append(kept, elem)
				}
			}
			removed += len(drop)
			d.set(g.parent, kept)
		}
	}
	return removed, errors.Join(errs...)
}

// RenameKey moves oldKey to newKey in every object matched by p. The member
// keeps its position. Objects missing oldKey and non-object matches are
// reported, not fatal.
func (d *Document) RenameKey(p *Path, oldKey, newKey string) (int, error) {
	var errs []error
	renamed := 0
	for _, n := range resolve(p, d.root) {
		obj, ok := n.value.(*Object)
		if !ok {
			errs = append(errs, fmt.Errorf("%s: %w", n.location(), ErrNotObject))
			continue
		}
		if !obj.Has(oldKey) {
			errs = append(errs, fmt.Errorf("%s: %w: %q", n.location(), ErrKeyNotFound, oldKey))
			continue
		}
		if oldKey == newKey {
			continue
		}
		obj.Rename(oldKey, newKey)
		renamed++
	}
	return renamed, errors.Join(errs...)
}

// MapFunc transforms one matched node. loc is the node's canonical location.
// Returning keep=false leaves the node unchanged.
type MapFunc func(loc string, value any) (out any, keep bool, err error)

// Map replaces every node matched by p with fn's result.
// The first error stops the walk and is returned; earlier replacements stay.
func (d *Document) Map(p *Path, fn MapFunc) (int, error) {
	replaced := 0
	for _, n := range resolve(p, d.root) {
		out, keep, err := fn(n.location(), n.value)
		if err != nil {
			return replaced, err
		}
		if !keep {
			continue
		}
		d.set(n, Normalize(out))
		replaced++
	}
	return replaced, nil
}

// set writes v at n's location and updates n.
func (d *Document) set(n *node, v any) {
	n.value = v
	if n.parent == nil {
		d.root = v
		return
	}
	switch parent := n.parent.value.(type) {
	case *Object:
		parent.Set(n.key, v)
	case []any:
		parent[n.index] = v
	}
}

// DeepCopy returns a copy of a JSON-model value sharing no containers.
func DeepCopy(v any) any {
	switch t := v.(type) {
	case *Object:
		out := NewObject()
		for _, k := range t.keys {
			out.Set(k, DeepCopy(t.values[k]))
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, elem := range t {
			out[i] = DeepCopy(elem)
		}
		return out
	default:
		return v
	}
}

// Normalize converts common Go values into the JSON model used by Document.
// Objects keep their order; Go maps become objects with sorted keys. Types
// outside the model take a JSON round trip; values that cannot be marshalled
// are returned unchanged.
func Normalize(v any) any {
	switch t := v.(type) {
	case nil, string, bool, json.Number:
		return t
	case *Object:
		out := NewObject()
		for _, k := range t.keys {
			out.Set(k, Normalize(t.values[k]))
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, elem := range t {
			out[k] = Normalize(elem)
		}
		return ObjectFromMap(out)
	case []any:
		out := make([]any, len(t))
		for i, elem := range t {
			out[i] = Normalize(elem)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, s := range t {
			out[k] = s
		}
		return ObjectFromMap(out)
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return v
		}
		out, err := decode(b)
		if err != nil {
			return v
		}
		return out
	}
}

func decode(data []byte) (any, error) {
	if len(data) > types.MaxDocumentSize {
		return nil, types.ErrDocumentTooLarge
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrMalformedDocument, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after top-level value", types.ErrMalformedDocument)
	}
	return v, nil
}

// decodeValue reads one value from the token stream. Objects are built in
// member order; a repeated key keeps its first position and its last value.
func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch delim {
	case '{':
		obj := NewObject()
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := kt.(string)
			if !ok {
				return nil, fmt.Errorf("object key is %T", kt)
			}
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			obj.Set(key, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		list := []any{}
		for dec.More() {
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unexpected %q", rune(delim))
	}
}

func encode(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
