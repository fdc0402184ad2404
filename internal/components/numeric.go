package components

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/solatis/jsonforge/internal/document"
	"github.com/solatis/jsonforge/internal/registry"
)

/*
 * Numeric functions.
 *
 * Inputs are coerced with ToDecimal and results are returned as
 * decimal.Decimal so a chain of numeric functions never loses precision.
 * Rules that write numbers back into a document (calculate) decide the
 * final scale and representation.
 */

func numericFunctions() []registry.Descriptor[registry.Function] {
	return []registry.Descriptor[registry.Function]{
		binaryFunction("add", "Adds operand.", decimal.Decimal.Add),
		binaryFunction("subtract", "Subtracts operand.", decimal.Decimal.Sub),
		binaryFunction("multiply", "Multiplies by operand.", decimal.Decimal.Mul),
		{
			Name: "divide",
			Doc:  "Divides by operand, rounding to scale (default 16) with rounding (default HALF_UP).",
			Params: []registry.ParamSpec{
				registry.Value("operand"),
				registry.Value("scale").Optional(),
				registry.Value("rounding").Optional(),
			},
			New: func(a registry.Args) (registry.Function, error) {
				operand, err := ToDecimal(a.String("operand"))
				if err != nil {
					return nil, err
				}
				if operand.IsZero() {
					return nil, fmt.Errorf("divide: operand is zero")
				}
				scale := int32(16)
				if a.Has("scale") {
					if scale, err = ParseScale(a.String("scale")); err != nil {
						return nil, err
					}
				}
				mode, err := ParseRoundingMode(a.String("rounding"))
				if err != nil {
					return nil, err
				}
				return decimalFunc(func(d decimal.Decimal) decimal.Decimal {
					// Divide with headroom, then apply the configured rounding.
					return Rescale(d.DivRound(operand, scale+2), scale, mode)
				}), nil
			},
		},
		unaryFunction("negate", "Negates a number.", decimal.Decimal.Neg),
		unaryFunction("abs", "Absolute value of a number.", decimal.Decimal.Abs),
		{
			Name:   "round",
			Doc:    "Rounds a number to scale digits with rounding (default HALF_UP).",
			Params: []registry.ParamSpec{registry.Value("scale"), registry.Value("rounding").Optional()},
			New: func(a registry.Args) (registry.Function, error) {
				scale, err := ParseScale(a.String("scale"))
				if err != nil {
					return nil, err
				}
				mode, err := ParseRoundingMode(a.String("rounding"))
				if err != nil {
					return nil, err
				}
				return decimalFunc(func(d decimal.Decimal) decimal.Decimal {
					// StringFixed keeps trailing zeros; re-parse so the scale sticks.
					return decimal.RequireFromString(FormatDecimal(d, scale, mode))
				}), nil
			},
		},
	}
}

func binaryFunction(name, doc string, op func(decimal.Decimal, decimal.Decimal) decimal.Decimal) registry.Descriptor[registry.Function] {
	return registry.Descriptor[registry.Function]{
		Name:   name,
		Doc:    doc,
		Params: []registry.ParamSpec{registry.Value("operand")},
		New: func(a registry.Args) (registry.Function, error) {
			operand, err := ToDecimal(a.String("operand"))
			if err != nil {
				return nil, err
			}
			return decimalFunc(func(d decimal.Decimal) decimal.Decimal { return op(d, operand) }), nil
		},
	}
}

func unaryFunction(name, doc string, op func(decimal.Decimal) decimal.Decimal) registry.Descriptor[registry.Function] {
	return registry.Descriptor[registry.Function]{
		Name: name,
		Doc:  doc,
		New: func(registry.Args) (registry.Function, error) {
			return decimalFunc(op), nil
		},
	}
}

func decimalFunc(op func(decimal.Decimal) decimal.Decimal) registry.Function {
	return registry.FunctionFunc(func(_ context.Context, in any) (any, error) {
		d, err := ToDecimal(in)
		if err != nil {
			return nil, err
		}
		return op(d), nil
	})
}

// DecimalNumber renders d as a JSON number literal.
func DecimalNumber(d decimal.Decimal, scale int32) json.Number {
	return json.Number(d.StringFixed(scale))
}

// ToJSON converts decimals produced by numeric functions into json.Number,
// descending into objects and arrays. Other values are returned unchanged.
func ToJSON(v any) any {
	switch t := v.(type) {
	case decimal.Decimal:
		return json.Number(t.StringFixed(Scale(t)))
	case *document.Object:
		out := document.NewObject()
		t.Range(func(k string, elem any) bool {
			out.Set(k, ToJSON(elem))
			return true
		})
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, elem := range t {
			out[k] = ToJSON(elem)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, elem := range t {
			out[i] = ToJSON(elem)
		}
		return out
	default:
		return v
	}
}
