// internal/components/operators.go
package components

import (
	"strings"

	"github.com/solatis/jsonforge/internal/document"
)

/*
 * Comparison operators.
 *
 * Compare node values against configured operands. Operands always arrive
 * as text (configuration is textual), so each operator decides how to read
 * them:
 *
 *   - exists/is_null: null checks, operand ignored
 *   - eq/neq: numeric equality when the node is a number and the operand
 *     parses as one, otherwise text equality
 *   - lt/lte/gt/gte: decimal comparison, false when either side is not numeric
 *   - prefix/suffix/contains: string matching, false for non-string nodes
 *   - in: eq against each operand of a list
 *
 * Function-based like the rest of the package: one switch, no per-operator types.
 */

// Operator names a comparison.
type Operator int

const (
	OpUnspecified Operator = iota
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpPrefix
	OpSuffix
	OpContains
	OpIn
	OpExists
	OpIsNull
)

// Compare applies op to a node value and a configured operand.
// target is a string, or []string for OpIn.
func Compare(op Operator, value, target any) bool {
	switch op {
	case OpExists:
		return value != nil
	case OpIsNull:
		return value == nil
	case OpEq:
		return compareEqual(value, target)
	case OpNeq:
		return !compareEqual(value, target)
	case OpLt:
		c, ok := compareNumeric(value, target)
		return ok && c < 0
	case OpLte:
		c, ok := compareNumeric(value, target)
		return ok && c <= 0
	case OpGt:
		c, ok := compareNumeric(value, target)
		return ok && c > 0
	case OpGte:
		c, ok := compareNumeric(value, target)
		return ok && c >= 0
	case OpPrefix:
		return compareStrings(value, target, strings.HasPrefix)
	case OpSuffix:
		return compareStrings(value, target, strings.HasSuffix)
	case OpContains:
		return compareStrings(value, target, strings.Contains)
	case OpIn:
		return compareIn(value, target)
	default:
		return false
	}
}

// compareEqual compares numerically when the node is a number, by text otherwise.
// null only equals the operand "null".
func compareEqual(value, target any) bool {
	if IsNumber(value) {
		if c, ok := compareNumeric(value, target); ok {
			return c == 0
		}
	}
	if value == nil {
		return target == nil || target == "null"
	}
	switch value.(type) {
	case *document.Object, map[string]any, []any:
		return false
	}
	return ToText(value) == ToText(target)
}

// compareNumeric performs a three-way decimal comparison.
// ok is false when either side cannot be coerced.
func compareNumeric(a, b any) (int, bool) {
	da, err := ToDecimal(a)
	if err != nil {
		return 0, false
	}
	db, err := ToDecimal(b)
	if err != nil {
		return 0, false
	}
	return da.Cmp(db), true
}

// compareStrings applies match when both sides are strings.
// Returns false for non-string types.
func compareStrings(value, target any, match func(s, sub string) bool) bool {
	vs, ok1 := value.(string)
	ts, ok2 := target.(string)
	if !ok1 || !ok2 {
		return false
	}
	return match(vs, ts)
}

// compareIn checks value against every operand using equality semantics.
func compareIn(value, set any) bool {
	switch s := set.(type) {
	case []string:
		for _, elem := range s {
			if compareEqual(value, elem) {
				return true
			}
		}
	case []any:
		for _, elem := range s {
			if compareEqual(value, elem) {
				return true
			}
		}
	}
	return false
}
