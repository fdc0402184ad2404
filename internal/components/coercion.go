// internal/components/coercion.go
package components

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/solatis/jsonforge/internal/document"
	"github.com/solatis/jsonforge/internal/types"
)

/*
 * Value coercion.
 *
 * Two modes, matching how components consume node values:
 *   - Decimal: strict. Accepts decimal.Decimal, json.Number, Go integers and
 *     floats, and numeric strings (trimmed). Rejects booleans, nil, empty
 *     or whitespace-only strings and every other type.
 *   - Text: lenient. Renders scalars as their JSON text; numbers keep their
 *     literal form.
 *
 * Arbitrary precision is kept end to end: json.Number literals go straight
 * into decimal.Decimal without passing through float64.
 */

// RoundingMode names how Rescale discards digits.
type RoundingMode string

const (
	RoundHalfUp   RoundingMode = "HALF_UP"   // half away from zero
	RoundHalfEven RoundingMode = "HALF_EVEN" // banker's rounding
	RoundDown     RoundingMode = "DOWN"      // toward zero
	RoundUp       RoundingMode = "UP"        // away from zero
	RoundFloor    RoundingMode = "FLOOR"     // toward negative infinity
	RoundCeiling  RoundingMode = "CEILING"   // toward positive infinity
)

// ParseRoundingMode validates a configured rounding mode. Empty means HALF_UP.
func ParseRoundingMode(s string) (RoundingMode, error) {
	switch m := RoundingMode(strings.ToUpper(strings.TrimSpace(s))); m {
	case "":
		return RoundHalfUp, nil
	case RoundHalfUp, RoundHalfEven, RoundDown, RoundUp, RoundFloor, RoundCeiling:
		return m, nil
	default:
		return "", fmt.Errorf("unknown rounding mode %q", s)
	}
}

// ParseScale validates a configured, non-negative decimal scale.
func ParseScale(s string) (int32, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("scale must be a non-negative integer, got %q", s)
	}
	return int32(n), nil
}

// ToDecimal converts a node value to a decimal.
// Returns ErrCoercionFailed for anything that is not a number or numeric string.
func ToDecimal(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case json.Number:
		d, err := decimal.NewFromString(string(v))
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("%w: %q", types.ErrCoercionFailed, v)
		}
		return d, nil
	case string:
		// Whitespace-only strings are not valid numbers
		s := strings.TrimSpace(v)
		if s == "" {
			return decimal.Decimal{}, fmt.Errorf("%w: empty string", types.ErrCoercionFailed)
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("%w: %q", types.ErrCoercionFailed, v)
		}
		return d, nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int32:
		return decimal.NewFromInt32(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case uint64:
		return decimal.RequireFromString(strconv.FormatUint(v, 10)), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	default:
		// Strict mode: booleans, nil and containers are not numbers
		return decimal.Decimal{}, fmt.Errorf("%w: %T is not numeric", types.ErrCoercionFailed, value)
	}
}

// IsNumber reports whether value is a number type (not a numeric string).
func IsNumber(value any) bool {
	switch value.(type) {
	case decimal.Decimal, json.Number, int, int32, int64, uint64, float32, float64:
		return true
	default:
		return false
	}
}

// ToText renders a node value as text. nil renders as "null".
func ToText(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case json.Number:
		return string(v)
	case decimal.Decimal:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case *document.Object, map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Scale returns the number of fractional digits d carries, never negative.
func Scale(d decimal.Decimal) int32 {
	if exp := d.Exponent(); exp < 0 {
		return -exp
	}
	return 0
}

// Rescale rounds d to scale fractional digits using mode.
func Rescale(d decimal.Decimal, scale int32, mode RoundingMode) decimal.Decimal {
	switch mode {
	case RoundHalfEven:
		return d.RoundBank(scale)
	case RoundDown:
		return d.RoundDown(scale)
	case RoundUp:
		return d.RoundUp(scale)
	case RoundFloor:
		return d.RoundFloor(scale)
	case RoundCeiling:
		return d.RoundCeil(scale)
	default:
		return d.Round(scale)
	}
}

// FormatDecimal renders d with exactly scale fractional digits.
func FormatDecimal(d decimal.Decimal, scale int32, mode RoundingMode) string {
	return Rescale(d, scale, mode).StringFixed(scale)
}
