package components

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/shopspring/decimal"
	"github.com/solatis/jsonforge/internal/document"
	"github.com/solatis/jsonforge/internal/registry"
)

// Expressions see the node as "value". Numbers are converted to int or
// float64 so expr arithmetic and comparisons work on them; results are
// normalized back into the JSON model by the rule that writes them.

func compileExpr(src string) (*vm.Program, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("empty expression")
	}
	return expr.Compile(src)
}

func runExpr(prg *vm.Program, in any) (any, error) {
	return expr.Run(prg, map[string]any{"value": exprValue(in)})
}

func newExprFunction(src string) (registry.Function, error) {
	prg, err := compileExpr(src)
	if err != nil {
		return nil, err
	}
	return registry.FunctionFunc(func(_ context.Context, in any) (any, error) {
		return runExpr(prg, in)
	}), nil
}

func newExprPredicate(src string) (registry.Predicate, error) {
	prg, err := compileExpr(src)
	if err != nil {
		return nil, err
	}
	return registry.PredicateFunc(func(_ context.Context, v any) (bool, error) {
		out, err := runExpr(prg, v)
		if err != nil {
			return false, err
		}
		b, ok := out.(bool)
		if !ok {
			return false, fmt.Errorf("expression %q returned %T, want bool", src, out)
		}
		return b, nil
	}), nil
}

// exprValue converts JSON-model numbers for expression evaluation.
func exprValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i)
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return string(t)
	case decimal.Decimal:
		f, _ := t.Float64()
		return f
	case *document.Object:
		out := make(map[string]any, t.Len())
		t.Range(func(k string, elem any) bool {
			out[k] = exprValue(elem)
			return true
		})
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, elem := range t {
			out[k] = exprValue(elem)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, elem := range t {
			out[i] = exprValue(elem)
		}
		return out
	default:
		return v
	}
}
