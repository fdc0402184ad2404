// Package types provides domain models shared across jsonforge components.
//
// Zero-dependency design: everything except ids.go uses only the standard
// library so the registry, document and pipeline packages can depend on it
// without pulling in transport or storage code.
//
// The configuration model (RawConfigParam), rule declarations (RuleSpec),
// component categories and the error taxonomy live here because every layer
// from the binder to the gRPC handlers needs to agree on them.
package types

// Category names one of the four kinds of pluggable component.
type Category string

const (
	CategorySupplier  Category = "supplier"
	CategoryFunction  Category = "function"
	CategoryPredicate Category = "predicate"
	CategoryRule      Category = "rule"
)

// Valid reports whether c is one of the four known categories.
func (c Category) Valid() bool {
	switch c {
	case CategorySupplier, CategoryFunction, CategoryPredicate, CategoryRule:
		return true
	default:
		return false
	}
}

// Embeddable reports whether components of this category may appear as an
// embedded parameter of another component. Rules never can.
func (c Category) Embeddable() bool {
	return c == CategorySupplier || c == CategoryFunction || c == CategoryPredicate
}

// RequestContext describes one fetch performed by an HTTP collaborator.
type RequestContext struct {
	URI     string
	Method  string
	Headers map[string]string
	Charset string
}

// Resource limits enforced by the registry, document and service layers.
const (
	// MaxEmbedDepth bounds recursive resolution of embedded components.
	// Configuration trees are static so cycles cannot occur; 16 levels is far
	// beyond any hand-written rule file.
	MaxEmbedDepth = 16

	// MaxPathDepth bounds the number of segments in a compiled path.
	MaxPathDepth = 32

	// MaxDocumentSize limits documents accepted by the service layer.
	// 4MB covers typical configuration and API payloads.
	MaxDocumentSize = 4 * 1024 * 1024
)
