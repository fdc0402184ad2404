// Package rules provides the built-in document rules.
//
// Each rule is registered through registry.RuleDescriptor: the factory gets
// the registries facade and its RuleSpec, compiles the path, binds its own
// params with Registries.Bind and resolves embedded components eagerly, so
// every configuration error surfaces when the pipeline is compiled rather
// than while a document is being transformed.
//
// Soft failures (type mismatch, false predicate, unmatched or indefinite
// path, missing rename key) are logged through the registries' logger and
// leave the document unchanged. Errors returned by suppliers and functions
// are hard errors: Apply returns them and the pipeline aborts.
package rules

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/solatis/jsonforge/internal/components"
	"github.com/solatis/jsonforge/internal/document"
	"github.com/solatis/jsonforge/internal/registry"
	"github.com/solatis/jsonforge/internal/types"
)

// Register adds every built-in rule to reg.
func Register(reg *registry.Registries) error {
	for _, d := range descriptors() {
		if err := reg.Rules.Register(d); err != nil {
			return err
		}
	}
	return nil
}

func descriptors() []registry.Descriptor[registry.Rule] {
	return []registry.Descriptor[registry.Rule]{
		registry.RuleDescriptor("add", "Puts value under key in every object matched by path.", addSettings, newAdd),
		registry.RuleDescriptor("copy", "Copies the single node at path under key at destination.", copySettings, newCopy),
		registry.RuleDescriptor("delete", "Removes every node matched by path.", nil, newDelete),
		registry.RuleDescriptor("rename", "Renames oldKey to newKey in every object matched by path.", renameSettings, newRename),
		registry.RuleDescriptor("replace", "Transforms string nodes accepted by predicate.", replaceSettings, newReplace),
		registry.RuleDescriptor("replaceMap", "Transforms object nodes accepted by predicate.", replaceSettings, newReplaceMap),
		registry.RuleDescriptor("deleteFromMap", "Filters object entries by key and value predicates.", deleteFromMapSettings, newDeleteFromMap),
		registry.RuleDescriptor("calculate", "Applies a numeric function to number nodes and rescales the result.", calculateSettings, newCalculate),
		registry.RuleDescriptor("validate", "Checks nodes against a JSON schema and reports violations.", validateSettings, newValidate),
		registry.RuleDescriptor("jsonPatch", "Applies an RFC 6902 patch to the node at path.", jsonPatchSettings, newJSONPatch),
	}
}

// base carries what every rule shares.
type base struct {
	spec   types.RuleSpec
	path   *document.Path
	logger *slog.Logger
}

func newBase(reg *registry.Registries, spec types.RuleSpec) (base, error) {
	p, err := document.Compile(spec.Path)
	if err != nil {
		return base{}, &types.ConfigError{Category: types.CategoryRule, Component: spec.Name, Key: "path", Err: err}
	}
	return base{
		spec:   spec,
		path:   p,
		logger: reg.Logger().With("rule", spec.Name, "order", spec.Order, "path", spec.Path),
	}, nil
}

func (b base) Name() string         { return b.spec.Name }
func (b base) Order() int           { return b.spec.Order }
func (b base) Path() *document.Path { return b.path }

// skip logs a node left alone on purpose.
func (b base) skip(reason string, args ...any) {
	b.logger.Debug(reason, args...)
}

// warn logs an application that could not take place.
func (b base) warn(reason string, args ...any) {
	b.logger.Warn(reason, args...)
}

// softFail logs a node left alone because it did not fit the rule.
func (b base) softFail(reason string, args ...any) {
	b.logger.Error(reason, args...)
}

// test runs p and wraps its error.
func test(ctx context.Context, p registry.Predicate, v any) (bool, error) {
	ok, err := p.Test(ctx, v)
	if err != nil {
		return false, fmt.Errorf("predicate: %w", err)
	}
	return ok, nil
}

// transform runs fn and converts its result into the JSON model.
func transform(ctx context.Context, fn registry.Function, v any) (any, error) {
	out, err := fn.Apply(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("function: %w", err)
	}
	return components.ToJSON(out), nil
}

func orDefault(p registry.Predicate, def registry.Predicate) registry.Predicate {
	if p == nil {
		return def
	}
	return p
}
