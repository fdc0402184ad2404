// internal/rules/structural.go
package rules

import (
	"context"
	"fmt"

	"github.com/solatis/jsonforge/internal/components"
	"github.com/solatis/jsonforge/internal/document"
	"github.com/solatis/jsonforge/internal/registry"
	"github.com/solatis/jsonforge/internal/types"
)

/*
 * Structural rules: add, copy, delete, rename.
 *
 * These reshape the tree without looking at node values. Keys come from
 * suppliers so they can be computed (env, lookup, ...); values are deep
 * copied per destination so no two nodes share a container.
 */

var addSettings = []registry.ParamSpec{
	registry.Embedded("key", types.CategorySupplier),
	registry.Embedded("value", types.CategorySupplier),
}

type addRule struct {
	base
	key   registry.Supplier
	value registry.Supplier
}

func newAdd(reg *registry.Registries, spec types.RuleSpec) (registry.Rule, error) {
	b, err := newBase(reg, spec)
	if err != nil {
		return nil, err
	}
	a, err := reg.Bind(spec, addSettings)
	if err != nil {
		return nil, err
	}
	return &addRule{base: b, key: a.Supplier("key"), value: a.Supplier("value")}, nil
}

func (r *addRule) Apply(ctx context.Context, doc *document.Document) error {
	key, err := components.SupplyText(ctx, r.key)
	if err != nil {
		return fmt.Errorf("key: %w", err)
	}
	value, err := r.value.Supply(ctx)
	if err != nil {
		return fmt.Errorf("value: %w", err)
	}
	n, err := doc.Put(r.path, key, components.ToJSON(value))
	if err != nil {
		r.softFail("skipped non-object nodes", "err", err)
	}
	if n == 0 {
		r.warn("nothing added", "key", key)
	}
	return nil
}

var copySettings = []registry.ParamSpec{
	registry.Value("destination"),
	registry.Embedded("key", types.CategorySupplier),
}

type copyRule struct {
	base
	destination *document.Path
	key         registry.Supplier
}

func newCopy(reg *registry.Registries, spec types.RuleSpec) (registry.Rule, error) {
	b, err := newBase(reg, spec)
	if err != nil {
		return nil, err
	}
	a, err := reg.Bind(spec, copySettings)
	if err != nil {
		return nil, err
	}
	dest, err := document.Compile(a.String("destination"))
	if err != nil {
		return nil, &types.ConfigError{Category: types.CategoryRule, Component: spec.Name, Key: "destination", Err: err}
	}
	return &copyRule{base: b, destination: dest, key: a.Supplier("key")}, nil
}

func (r *copyRule) Apply(ctx context.Context, doc *document.Document) error {
	if !r.path.IsDefinite() {
		r.warn("source path is not definite, nothing copied")
		return nil
	}
	v, ok := doc.Get(r.path)
	if !ok {
		r.warn("source path matched nothing, nothing copied")
		return nil
	}
	key, err := components.SupplyText(ctx, r.key)
	if err != nil {
		return fmt.Errorf("key: %w", err)
	}
	if _, err := doc.Put(r.destination, key, v); err != nil {
		r.softFail("skipped non-object destinations", "destination", r.destination.String(), "err", err)
	}
	return nil
}

type deleteRule struct {
	base
}

func newDelete(reg *registry.Registries, spec types.RuleSpec) (registry.Rule, error) {
	b, err := newBase(reg, spec)
	if err != nil {
		return nil, err
	}
	return &deleteRule{base: b}, nil
}

func (r *deleteRule) Apply(_ context.Context, doc *document.Document) error {
	n, err := doc.Delete(r.path)
	if err != nil {
		r.softFail("cannot delete", "err", err)
	}
	if n == 0 && err == nil {
		r.skip("path matched nothing")
	}
	return nil
}

var renameSettings = []registry.ParamSpec{
	registry.Value("oldKey"),
	registry.Value("newKey"),
}

type renameRule struct {
	base
	oldKey, newKey string
}

func newRename(reg *registry.Registries, spec types.RuleSpec) (registry.Rule, error) {
	b, err := newBase(reg, spec)
	if err != nil {
		return nil, err
	}
	a, err := reg.Bind(spec, renameSettings)
	if err != nil {
		return nil, err
	}
	return &renameRule{base: b, oldKey: a.String("oldKey"), newKey: a.String("newKey")}, nil
}

func (r *renameRule) Apply(_ context.Context, doc *document.Document) error {
	if r.oldKey == r.newKey {
		r.skip("old and new key are equal", "key", r.oldKey)
		return nil
	}
	if _, err := doc.RenameKey(r.path, r.oldKey, r.newKey); err != nil {
		r.softFail("rename incomplete", "oldKey", r.oldKey, "err", err)
	}
	return nil
}
