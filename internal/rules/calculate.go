// internal/rules/calculate.go
package rules

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
	"github.com/solatis/jsonforge/internal/components"
	"github.com/solatis/jsonforge/internal/document"
	"github.com/solatis/jsonforge/internal/registry"
	"github.com/solatis/jsonforge/internal/types"
)

/*
 * calculate applies a numeric function to number nodes.
 *
 * Flow per matched node:
 *   1. coerce to decimal (JSON numbers and numeric strings); anything else
 *      is logged and skipped
 *   2. test the predicate (default not-null) against the canonical number
 *   3. apply the function to the decimal; a non-numeric result is logged
 *      and skipped
 *   4. rescale to the configured scale, or to the input's own scale, with
 *      the configured rounding (default HALF_UP)
 *
 * The node keeps its kind: a JSON number stays a number and a numeric
 * string stays a string.
 */

var calculateSettings = []registry.ParamSpec{
	registry.Embedded("predicate", types.CategoryPredicate).Optional(),
	registry.Embedded("function", types.CategoryFunction),
	registry.Value("scale").Optional(),
	registry.Value("rounding").Optional(),
}

type calculateRule struct {
	base
	predicate registry.Predicate
	function  registry.Function
	scale     int32
	hasScale  bool
	rounding  components.RoundingMode
}

func newCalculate(reg *registry.Registries, spec types.RuleSpec) (registry.Rule, error) {
	b, err := newBase(reg, spec)
	if err != nil {
		return nil, err
	}
	a, err := reg.Bind(spec, calculateSettings)
	if err != nil {
		return nil, err
	}
	r := &calculateRule{
		base:      b,
		predicate: orDefault(a.Predicate("predicate"), components.NotNull()),
		function:  a.Function("function"),
	}
	if a.Has("scale") {
		if r.scale, err = components.ParseScale(a.String("scale")); err != nil {
			return nil, &types.ConfigError{Category: types.CategoryRule, Component: spec.Name, Key: "scale", Err: err}
		}
		r.hasScale = true
	}
	if r.rounding, err = components.ParseRoundingMode(a.String("rounding")); err != nil {
		return nil, &types.ConfigError{Category: types.CategoryRule, Component: spec.Name, Key: "rounding", Err: err}
	}
	return r, nil
}

func (r *calculateRule) Apply(ctx context.Context, doc *document.Document) error {
	_, err := doc.Map(r.path, func(loc string, v any) (any, bool, error) {
		in, err := components.ToDecimal(v)
		if err != nil {
			r.warn("not a number", "node", loc, "err", err)
			return nil, false, nil
		}
		match, err := test(ctx, r.predicate, canonical(in))
		if err != nil || !match {
			if err == nil {
				r.skip("predicate rejected node", "node", loc)
			}
			return nil, false, err
		}
		out, err := transform(ctx, r.function, in)
		if err != nil {
			return nil, false, err
		}
		result, err := components.ToDecimal(out)
		if err != nil {
			r.softFail("function result is not a number", "node", loc, "err", err)
			return nil, false, nil
		}

		scale := components.Scale(in)
		if r.hasScale {
			scale = r.scale
		}
		text := components.FormatDecimal(result, scale, r.rounding)
		if _, isString := v.(string); isString {
			return text, true, nil
		}
		return json.Number(text), true, nil
	})
	return err
}

// canonical renders d as the JSON number predicates see.
func canonical(d decimal.Decimal) json.Number {
	return components.DecimalNumber(d, components.Scale(d))
}
