// internal/document/path.go
package document

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/solatis/jsonforge/internal/types"
	"github.com/theory/jsonpath"
	"github.com/theory/jsonpath/spec"
)

/*
 * Path compilation and resolution.
 *
 * Expressions are RFC 9535 JSONPath queries parsed by theory/jsonpath:
 * member names, indexes (negative counts from the end), wildcards, slices,
 * unions, filters and descendant segments ("..").
 *
 * The query runs over a read-only view of the tree (plain maps, float64
 * numbers) and every match comes back as a normalized path. Each normalized
 * path is walked again on the ordered tree, so callers receive live nodes
 * they can mutate in place. Matches are deduplicated and returned in
 * document order.
 *
 * A path is definite when it has no wildcard, descendant, slice, union or
 * filter selector; a definite path matches at most one node.
 */

// Path is a compiled path expression. Immutable and safe for concurrent use.
type Path struct {
	raw      string
	query    *jsonpath.Path
	definite bool
	depth    int
}

// Root is the compiled "$" path.
var Root = MustCompile("$")

// Compile parses a path expression.
// Returns ErrInvalidPath for syntax errors, ErrPathTooDeep beyond MaxPathDepth.
func Compile(expr string) (*Path, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" || expr[0] != '$' {
		return nil, fmt.Errorf("%w: %q must start with '$'", types.ErrInvalidPath, expr)
	}
	q, err := jsonpath.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", types.ErrInvalidPath, expr, err)
	}
	depth, definite := shape(expr)
	if depth > types.MaxPathDepth {
		return nil, types.ErrPathTooDeep
	}
	return &Path{raw: expr, query: q, definite: definite, depth: depth}, nil
}

// MustCompile is like Compile but panics on error. For tests and literals.
func MustCompile(expr string) *Path {
	p, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// shape counts the segments of an already parsed expression and reports
// whether every segment selects a single member or index.
func shape(expr string) (segments int, definite bool) {
	definite = true
	depth := 0
	var quote byte
	descendant := false
	for i := 1; i < len(expr); i++ {
		c := expr[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '[':
			if depth == 0 {
				if !descendant {
					segments++
				}
				descendant = false
			}
			depth++
		case ']':
			depth--
		case '.':
			if depth > 0 {
				continue
			}
			if i+1 < len(expr) && expr[i+1] == '.' {
				definite = false
				descendant = true
				segments++
				i++
				continue
			}
			segments++
			if i+1 < len(expr) && expr[i+1] == '*' {
				definite = false
			}
		case '*', '?', ':', ',':
			if depth == 1 {
				definite = false
			}
			if depth == 0 {
				descendant = false
			}
		default:
			if depth == 0 && c != ' ' {
				descendant = false
			}
		}
	}
	return segments, definite
}

// String returns the expression the path was compiled from.
func (p *Path) String() string { return p.raw }

// Depth returns the number of segments in the expression.
func (p *Path) Depth() int { return p.depth }

// IsRoot reports whether the path selects only the document root.
func (p *Path) IsRoot() bool { return p.depth == 0 }

// IsDefinite reports whether the path can match at most one node.
func (p *Path) IsDefinite() bool { return p.definite }

// node is one matched location. parent is nil for the root.
type node struct {
	value  any
	parent *node
	key    string // member key when parent is an object
	index  int    // element index when parent is an array
	pos    int    // position among the parent's children
	member bool
}

// location renders the canonical bracket path of n, used for dedupe and logs.
func (n *node) location() string {
	if n.parent == nil {
		return "$"
	}
	if n.member {
		return n.parent.location() + "['" + strings.ReplaceAll(n.key, "'", "\\'") + "']"
	}
	return n.parent.location() + "[" + strconv.Itoa(n.index) + "]"
}

func (n *node) depth() int {
	d := 0
	for x := n; x.parent != nil; x = x.parent {
		d++
	}
	return d
}

// positions lists the child positions from the root down to n.
func (n *node) positions() []int {
	out := make([]int, n.depth())
	for x, i := n, len(out)-1; x.parent != nil; x, i = x.parent, i-1 {
		out[i] = x.pos
	}
	return out
}

// resolve returns every node matched by p under root, in document order,
// without duplicates.
func resolve(p *Path, root any) []*node {
	located := p.query.SelectLocated(view(root))
	if len(located) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(located))
	out := make([]*node, 0, len(located))
	for _, ln := range located {
		n, ok := walk(root, ln.Path)
		if !ok {
			continue
		}
		loc := n.location()
		if seen[loc] {
			continue
		}
		seen[loc] = true
		out = append(out, n)
	}
	sortDocumentOrder(out)
	return out
}

// walk follows a normalized path through the ordered tree.
func walk(root any, path spec.NormalizedPath) (*node, bool) {
	n := &node{value: root}
	for _, sel := range path {
		switch s := sel.(type) {
		case spec.Name:
			obj, ok := n.value.(*Object)
			if !ok {
				return nil, false
			}
			key := string(s)
			v, ok := obj.Get(key)
			if !ok {
				return nil, false
			}
			n = &node{value: v, parent: n, key: key, pos: obj.position(key), member: true}
		case spec.Index:
			list, ok := n.value.([]any)
			idx := int(s)
			if !ok || idx < 0 || idx >= len(list) {
				return nil, false
			}
			n = &node{value: list[idx], parent: n, index: idx, pos: idx}
		default:
			return nil, false
		}
	}
	return n, true
}

// sortDocumentOrder orders nodes as a pre-order walk of the tree visits them.
func sortDocumentOrder(nodes []*node) {
	if len(nodes) < 2 {
		return
	}
	keys := make(map[*node][]int, len(nodes))
	for _, n := range nodes {
		keys[n] = n.positions()
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		pa, pb := keys[nodes[i]], keys[nodes[j]]
		for k := 0; k < len(pa) && k < len(pb); k++ {
			if pa[k] != pb[k] {
				return pa[k] < pb[k]
			}
		}
		return len(pa) < len(pb)
	})
}

// view renders the tree as plain Go values for query evaluation. Numbers
// become float64 so filter comparisons work; out-of-range literals compare
// as strings.
func view(v any) any {
	switch t := v.(type) {
	case *Object:
		out := make(map[string]any, t.Len())
		for _, k := range t.keys {
			out[k] = view(t.values[k])
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, elem := range t {
			out[i] = view(elem)
		}
		return out
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return string(t)
	default:
		return v
	}
}
