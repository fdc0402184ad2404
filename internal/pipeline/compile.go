// internal/pipeline/compile.go
package pipeline

import (
	"fmt"

	"github.com/solatis/jsonforge/internal/registry"
	"github.com/solatis/jsonforge/internal/types"
)

/*
 * Rule list compilation.
 *
 * Compile turns a declared rule list into a Pipeline:
 *   1. Copy the specs and number them 0..n-1 by position (AssignOrder)
 *   2. Resolve every spec through the rule registry
 *   3. Build the pipeline, which re-validates the order invariant
 *
 * Compilation is atomic: the first failing rule aborts it and no pipeline is
 * returned. Resolution errors (ConfigError, InstantiationError) are wrapped
 * with the rule's position so they point at the offending entry.
 */

// Compile resolves specs against reg and returns a ready pipeline.
// The registries' logger is used unless an Option overrides it.
func Compile(reg *registry.Registries, specs []types.RuleSpec, opts ...Option) (*Pipeline, error) {
	ordered := types.AssignOrder(append([]types.RuleSpec{}, specs...))

	rules := make([]registry.Rule, 0, len(ordered))
	for _, spec := range ordered {
		rule, err := reg.Rule(spec)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", spec.Order, spec.Name, err)
		}
		rules = append(rules, rule)
	}

	return New(rules, append([]Option{WithLogger(reg.Logger())}, opts...)...)
}
