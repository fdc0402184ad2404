package rules

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/solatis/jsonforge/internal/components"
	"github.com/solatis/jsonforge/internal/document"
)

// jsonString quotes s as a JSON string.
func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// childrenDoc renders an object with one child per name, in the order given.
// Each child holds key between two fixed members, so neither level is in
// sorted key order. Duplicate names are dropped.
func childrenDoc(names []string, key string, values []string) string {
	var b strings.Builder
	b.WriteByte('{')
	seen := map[string]bool{}
	for i, name := range names {
		if seen[name] {
			continue
		}
		if len(seen) > 0 {
			b.WriteByte(',')
		}
		seen[name] = true
		value := ""
		if i < len(values) {
			value = values[i]
		}
		fmt.Fprintf(&b, `%s:{"_z":%d,%s:%s,"_a":null}`, jsonString(name), i, jsonString(key), jsonString(value))
	}
	b.WriteByte('}')
	return b.String()
}

func genNames() gopter.Gen {
	return gen.SliceOf(gen.Identifier())
}

func TestRename_PropertyRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	reg := testRegistries(t, nil)
	e := newEngine(t, reg, `[
		{"name":"rename","path":"$.*","params":{"oldKey":"a","newKey":"b"}},
		{"name":"rename","path":"$.*","params":{"oldKey":"b","newKey":"a"}}]`)

	properties.Property("renaming there and back is the identity", prop.ForAll(
		func(names, values []string) bool {
			input := childrenDoc(names, "a", values)
			out, _, err := transformString(t, e, input)
			return err == nil && out == input
		},
		genNames(),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

func TestRename_PropertySameKeyIsIdentity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	reg := testRegistries(t, nil)

	properties.Property("renaming a key to itself leaves the document byte-identical", prop.ForAll(
		func(names []string, key string, path string) bool {
			params, _ := json.Marshal(map[string]string{"oldKey": key, "newKey": key})
			e := newEngine(t, reg, `[{"name":"rename","path":`+jsonString(path)+`,"params":`+string(params)+`}]`)
			input := childrenDoc(names, "member", names)
			out, _, err := transformString(t, e, input)
			return err == nil && out == input
		},
		genNames(),
		gen.OneGenOf(gen.AlphaString(), gen.Const("member"), gen.Const("_z")),
		gen.OneConstOf("$", "$.*", "$..*"),
	))

	properties.TestingRun(t)
}

func TestDeleteFromMap_PropertyNoPredicatesIsIdentity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	e := newEngine(t, testRegistries(t, nil), `[{"name":"deleteFromMap","path":"$..*"}]`)

	properties.Property("no predicates leaves every object alone", prop.ForAll(
		func(names, values []string) bool {
			input := childrenDoc(names, "x", values)
			out, _, err := transformString(t, e, input)
			return err == nil && out == input
		},
		genNames(),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

func TestCopy_PropertyIndefiniteSourceNeverCopies(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	reg := testRegistries(t, nil)

	properties.Property("an indefinite source path leaves the document unchanged", prop.ForAll(
		func(names, values []string, source string) bool {
			e := newEngine(t, reg,
				`[{"name":"copy","path":`+jsonString(source)+`,"params":{"destination":"$","key":{"name":"string","value":"copied"}}}]`)
			input := childrenDoc(names, "a", values)
			out, _, err := transformString(t, e, input)
			return err == nil && out == input
		},
		genNames(),
		gen.SliceOf(gen.AlphaString()),
		gen.OneConstOf("$..a", "$.*", "$.*.a", "$[?@._z >= 0]", "$..['_z','_a']"),
	))

	properties.TestingRun(t)
}

func TestCalculate_PropertyAddZeroPreservesNumber(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	e := newEngine(t, testRegistries(t, nil),
		`[{"name":"calculate","path":"$.v","params":{"function":{"name":"add","operand":"0"}}}]`)

	properties.Property("adding zero keeps the literal and its scale", prop.ForAll(
		func(unscaled int64, scale int32) bool {
			text := decimal.New(unscaled, -scale).StringFixed(scale)
			for _, input := range []string{`{"v":` + text + `,"a":1}`, `{"v":"` + text + `","a":1}`} {
				out, _, err := transformString(t, e, input)
				if err != nil || out != input {
					return false
				}
			}
			return true
		},
		gen.Int64Range(-1_000_000, 1_000_000),
		gen.Int32Range(0, 6),
	))

	properties.TestingRun(t)
}

// numberLiteral renders unscaled * 10^exp as a JSON number in one of
// several notations.
func numberLiteral(unscaled int64, exp int32, form int) string {
	switch form {
	case 1:
		return fmt.Sprintf("%de%d", unscaled, exp)
	case 2:
		return fmt.Sprintf("%dE+%d", unscaled, max(exp, 0))
	case 3:
		return decimal.New(unscaled, exp).String()
	default:
		if exp >= 0 {
			return decimal.New(unscaled, exp).String()
		}
		return decimal.New(unscaled, exp).StringFixed(-exp)
	}
}

func TestCalculate_PropertyIdentityPreservesValue(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	e := newEngine(t, testRegistries(t, nil),
		`[{"name":"calculate","path":"$.v","params":{"predicate":{"name":"any"},"function":{"name":"identity"}}}]`)

	properties.Property("identity with an always-true predicate keeps the numeric value and kind", prop.ForAll(
		func(unscaled int64, exp int32, form int, quoted bool) bool {
			literal := numberLiteral(unscaled, exp, form)
			field := literal
			if quoted {
				field = jsonString(literal)
			}
			out, _, err := transformString(t, e, `{"z":0,"v":`+field+`}`)
			if err != nil {
				return false
			}
			doc, err := document.Parse([]byte(out))
			if err != nil {
				return false
			}
			obj := doc.Root().(*document.Object)
			if keys := obj.Keys(); len(keys) != 2 || keys[0] != "z" {
				return false
			}
			got, _ := obj.Get("v")
			if _, isString := got.(string); isString != quoted {
				return false
			}
			want, err := decimal.NewFromString(literal)
			if err != nil {
				return false
			}
			have, err := components.ToDecimal(got)
			return err == nil && have.Equal(want)
		},
		gen.Int64Range(-1_000_000_000, 1_000_000_000),
		gen.Int32Range(-8, 8),
		gen.IntRange(0, 3),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
