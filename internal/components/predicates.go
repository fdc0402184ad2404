package components

import (
	"context"
	"regexp"

	"github.com/solatis/jsonforge/internal/registry"
	"github.com/solatis/jsonforge/internal/types"
)

// predicates returns the built-in predicate table.
func predicates() []registry.Descriptor[registry.Predicate] {
	return []registry.Descriptor[registry.Predicate]{
		{
			Name: "any",
			Doc:  "Accepts every value.",
			New:  func(registry.Args) (registry.Predicate, error) { return MatchAny(), nil },
		},
		{
			Name: "none",
			Doc:  "Rejects every value.",
			New: func(registry.Args) (registry.Predicate, error) {
				return registry.PredicateFunc(func(context.Context, any) (bool, error) { return false, nil }), nil
			},
		},
		operatorPredicate("notNull", "Accepts non-null values.", OpExists, ""),
		operatorPredicate("isNull", "Accepts null.", OpIsNull, ""),
		operatorPredicate("equals", "Accepts values equal to value; numbers compare numerically.", OpEq, "value"),
		operatorPredicate("startsWith", "Accepts strings starting with prefix.", OpPrefix, "prefix"),
		operatorPredicate("endsWith", "Accepts strings ending with suffix.", OpSuffix, "suffix"),
		operatorPredicate("contains", "Accepts strings containing text.", OpContains, "text"),
		operatorPredicate("greaterThan", "Accepts numbers greater than value.", OpGt, "value"),
		operatorPredicate("greaterOrEqual", "Accepts numbers greater than or equal to value.", OpGte, "value"),
		operatorPredicate("lessThan", "Accepts numbers less than value.", OpLt, "value"),
		operatorPredicate("lessOrEqual", "Accepts numbers less than or equal to value.", OpLte, "value"),
		{
			Name:   "in",
			Doc:    "Accepts values equal to one of values.",
			Params: []registry.ParamSpec{registry.Value("values").List()},
			New: func(a registry.Args) (registry.Predicate, error) {
				values := a.Strings("values")
				return registry.PredicateFunc(func(_ context.Context, v any) (bool, error) {
					return Compare(OpIn, v, values), nil
				}), nil
			},
		},
		{
			Name:   "matches",
			Doc:    "Accepts strings matching the regular expression pattern.",
			Params: []registry.ParamSpec{registry.Value("pattern")},
			New: func(a registry.Args) (registry.Predicate, error) {
				re, err := regexp.Compile(a.String("pattern"))
				if err != nil {
					return nil, err
				}
				return registry.PredicateFunc(func(_ context.Context, v any) (bool, error) {
					s, ok := v.(string)
					return ok && re.MatchString(s), nil
				}), nil
			},
		},
		{
			Name:   "not",
			Doc:    "Negates predicate.",
			Params: []registry.ParamSpec{registry.Embedded("predicate", types.CategoryPredicate)},
			New: func(a registry.Args) (registry.Predicate, error) {
				inner := a.Predicate("predicate")
				return registry.PredicateFunc(func(ctx context.Context, v any) (bool, error) {
					ok, err := inner.Test(ctx, v)
					return !ok, err
				}), nil
			},
		},
		{
			Name:   "and",
			Doc:    "Accepts values every predicate accepts; stops at the first rejection.",
			Params: []registry.ParamSpec{registry.Embedded("predicates", types.CategoryPredicate).List()},
			New: func(a registry.Args) (registry.Predicate, error) {
				preds := a.Predicates("predicates")
				return registry.PredicateFunc(func(ctx context.Context, v any) (bool, error) {
					for _, p := range preds {
						ok, err := p.Test(ctx, v)
						if err != nil || !ok {
							return false, err
						}
					}
					return true, nil
				}), nil
			},
		},
		{
			Name:   "or",
			Doc:    "Accepts values any predicate accepts; stops at the first match.",
			Params: []registry.ParamSpec{registry.Embedded("predicates", types.CategoryPredicate).List()},
			New: func(a registry.Args) (registry.Predicate, error) {
				preds := a.Predicates("predicates")
				return registry.PredicateFunc(func(ctx context.Context, v any) (bool, error) {
					for _, p := range preds {
						ok, err := p.Test(ctx, v)
						if err != nil || ok {
							return ok, err
						}
					}
					return false, nil
				}), nil
			},
		},
		{
			Name:   "expr",
			Doc:    "Accepts values for which the boolean expression holds; the node is bound to value.",
			Params: []registry.ParamSpec{registry.Value("expression")},
			New: func(a registry.Args) (registry.Predicate, error) {
				return newExprPredicate(a.String("expression"))
			},
		},
	}
}

// operatorPredicate builds a predicate comparing against one configured operand.
// An empty param name declares no operand.
func operatorPredicate(name, doc string, op Operator, param string) registry.Descriptor[registry.Predicate] {
	var params []registry.ParamSpec
	if param != "" {
		params = []registry.ParamSpec{registry.Value(param)}
	}
	return registry.Descriptor[registry.Predicate]{
		Name:   name,
		Doc:    doc,
		Params: params,
		New: func(a registry.Args) (registry.Predicate, error) {
			var operand any
			if param != "" {
				operand = a.String(param)
			}
			return registry.PredicateFunc(func(_ context.Context, v any) (bool, error) {
				return Compare(op, v, operand), nil
			}), nil
		},
	}
}
