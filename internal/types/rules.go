// internal/types/rules.go
package types

/*
 * Rule declarations.
 *
 * RuleSpec is the unresolved form of one entry in a rule list:
 * { name, path, params }. Order is not user settable; AssignOrder numbers a
 * loaded list positionally and is the only place Order gets written.
 */

// RuleSpec declares one rule of a transformation.
type RuleSpec struct {
	Name   string                    // registered rule name
	Order  int                       // position in the rule list, assigned by AssignOrder
	Path   string                    // path expression the rule is scoped to
	Params map[string]RawConfigParam // rule specific parameters
}

// AssignOrder numbers specs 0..n-1 by position, overwriting any existing
// Order. It returns the same slice for chaining.
func AssignOrder(specs []RuleSpec) []RuleSpec {
	for i := range specs {
		specs[i].Order = i
	}
	return specs
}
