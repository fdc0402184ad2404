package registry

import (
	"context"

	"github.com/solatis/jsonforge/internal/document"
	"github.com/solatis/jsonforge/internal/types"
)

// Supplier produces a value from configuration or an external source.
type Supplier interface {
	Supply(ctx context.Context) (any, error)
}

// SupplierFunc adapts a function to Supplier.
type SupplierFunc func(ctx context.Context) (any, error)

func (f SupplierFunc) Supply(ctx context.Context) (any, error) { return f(ctx) }

// Function transforms one value into another.
type Function interface {
	Apply(ctx context.Context, in any) (any, error)
}

// FunctionFunc adapts a function to Function.
type FunctionFunc func(ctx context.Context, in any) (any, error)

func (f FunctionFunc) Apply(ctx context.Context, in any) (any, error) { return f(ctx, in) }

// Predicate tests a value.
type Predicate interface {
	Test(ctx context.Context, v any) (bool, error)
}

// PredicateFunc adapts a function to Predicate.
type PredicateFunc func(ctx context.Context, v any) (bool, error)

func (f PredicateFunc) Test(ctx context.Context, v any) (bool, error) { return f(ctx, v) }

// Rule mutates a document at the nodes selected by its path.
//
// Apply returns nil to continue the pipeline, types.ErrStopRuleProcessing to
// end it successfully, a *types.AbortError to fail the document, or any other
// error for a hard failure.
type Rule interface {
	Name() string
	Order() int
	Path() *document.Path
	Apply(ctx context.Context, doc *document.Document) error
}

// Descriptor registers one named component.
type Descriptor[T any] struct {
	Name       string
	Params     []ParamSpec
	Qualifiers map[string]string // formal name -> configuration key alias
	Doc        string
	Settings   []ParamSpec // schema of a rule's params map, for listings only
	New        func(Args) (T, error)
}

// RuleFactory builds a rule from the facade and its declaration.
type RuleFactory func(reg *Registries, spec types.RuleSpec) (Rule, error)

// RuleDescriptor wraps a RuleFactory in a descriptor with the fixed rule
// signature. settings documents the params the factory binds itself.
func RuleDescriptor(name, doc string, settings []ParamSpec, factory RuleFactory) Descriptor[Rule] {
	return Descriptor[Rule]{
		Name:     name,
		Params:   append([]ParamSpec{}, ruleSignature...),
		Doc:      doc,
		Settings: append([]ParamSpec{}, settings...),
		New: func(a Args) (Rule, error) {
			return factory(a.Registries(), a.RuleSpec())
		},
	}
}

// Info is the read-only view of a registered descriptor.
type Info struct {
	Category   types.Category
	Name       string
	Params     []ParamSpec
	Qualifiers map[string]string
	Settings   []ParamSpec
	Doc        string
}
