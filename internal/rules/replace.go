// internal/rules/replace.go
package rules

import (
	"context"

	"github.com/solatis/jsonforge/internal/components"
	"github.com/solatis/jsonforge/internal/document"
	"github.com/solatis/jsonforge/internal/registry"
	"github.com/solatis/jsonforge/internal/types"
)

/*
 * Value rules: replace, replaceMap, deleteFromMap.
 *
 * All three map over the nodes matched by the rule path and only touch
 * nodes of the kind they handle (strings, objects). A node of another kind
 * is logged and left as it is. Omitted predicates fall back to a default:
 * match-any for replace, not-null for replaceMap.
 *
 * deleteFromMap filters a copy of each object in a fixed order:
 *   1. drop entries whose key deleteKey accepts
 *   2. drop entries whose key keepKey rejects
 *   3. drop entries whose value deleteValue accepts
 *   4. drop entries whose value keepValue rejects
 * An absent predicate skips its step. Entries are visited in key order so
 * predicate side effects (fetches, lookups) are deterministic.
 */

var replaceSettings = []registry.ParamSpec{
	registry.Embedded("predicate", types.CategoryPredicate).Optional(),
	registry.Embedded("function", types.CategoryFunction),
}

type replaceRule struct {
	base
	predicate registry.Predicate
	function  registry.Function
}

func newReplace(reg *registry.Registries, spec types.RuleSpec) (registry.Rule, error) {
	b, err := newBase(reg, spec)
	if err != nil {
		return nil, err
	}
	a, err := reg.Bind(spec, replaceSettings)
	if err != nil {
		return nil, err
	}
	return &replaceRule{
		base:      b,
		predicate: orDefault(a.Predicate("predicate"), components.MatchAny()),
		function:  a.Function("function"),
	}, nil
}

func (r *replaceRule) Apply(ctx context.Context, doc *document.Document) error {
	_, err := doc.Map(r.path, func(loc string, v any) (any, bool, error) {
		s, ok := v.(string)
		if !ok {
			r.softFail("not a string", "node", loc)
			return nil, false, nil
		}
		match, err := test(ctx, r.predicate, s)
		if err != nil || !match {
			if err == nil {
				r.skip("predicate rejected node", "node", loc)
			}
			return nil, false, err
		}
		out, err := transform(ctx, r.function, s)
		return out, err == nil, err
	})
	return err
}

type replaceMapRule struct {
	base
	predicate registry.Predicate
	function  registry.Function
}

func newReplaceMap(reg *registry.Registries, spec types.RuleSpec) (registry.Rule, error) {
	b, err := newBase(reg, spec)
	if err != nil {
		return nil, err
	}
	a, err := reg.Bind(spec, replaceSettings)
	if err != nil {
		return nil, err
	}
	return &replaceMapRule{
		base:      b,
		predicate: orDefault(a.Predicate("predicate"), components.NotNull()),
		function:  a.Function("function"),
	}, nil
}

func (r *replaceMapRule) Apply(ctx context.Context, doc *document.Document) error {
	_, err := doc.Map(r.path, func(loc string, v any) (any, bool, error) {
		obj, ok := v.(*document.Object)
		if !ok {
			r.softFail("not an object", "node", loc)
			return nil, false, nil
		}
		cp := document.DeepCopy(obj)
		match, err := test(ctx, r.predicate, cp)
		if err != nil || !match {
			if err == nil {
				r.skip("predicate rejected node", "node", loc)
			}
			return nil, false, err
		}
		out, err := transform(ctx, r.function, cp)
		return out, err == nil, err
	})
	return err
}

var deleteFromMapSettings = []registry.ParamSpec{
	registry.Embedded("deleteKey", types.CategoryPredicate).Optional(),
	registry.Embedded("keepKey", types.CategoryPredicate).Optional(),
	registry.Embedded("deleteValue", types.CategoryPredicate).Optional(),
	registry.Embedded("keepValue", types.CategoryPredicate).Optional(),
}

// entryFilter is one filtering step. onKey selects whether the predicate
// sees the entry's key or its value; drop is the predicate result that
// removes the entry.
type entryFilter struct {
	predicate registry.Predicate
	onKey     bool
	drop      bool
}

type deleteFromMapRule struct {
	base
	filters []entryFilter
}

func newDeleteFromMap(reg *registry.Registries, spec types.RuleSpec) (registry.Rule, error) {
	b, err := newBase(reg, spec)
	if err != nil {
		return nil, err
	}
	a, err := reg.Bind(spec, deleteFromMapSettings)
	if err != nil {
		return nil, err
	}
	steps := []entryFilter{
		{predicate: a.Predicate("deleteKey"), onKey: true, drop: true},
		{predicate: a.Predicate("keepKey"), onKey: true, drop: false},
		{predicate: a.Predicate("deleteValue"), onKey: false, drop: true},
		{predicate: a.Predicate("keepValue"), onKey: false, drop: false},
	}
	r := &deleteFromMapRule{base: b}
	for _, s := range steps {
		if s.predicate != nil {
			r.filters = append(r.filters, s)
		}
	}
	return r, nil
}

func (r *deleteFromMapRule) Apply(ctx context.Context, doc *document.Document) error {
	if len(r.filters) == 0 {
		r.skip("no predicates configured")
		return nil
	}
	_, err := doc.Map(r.path, func(loc string, v any) (any, bool, error) {
		obj, ok := v.(*document.Object)
		if !ok {
			r.softFail("not an object", "node", loc)
			return nil, false, nil
		}
		cp := document.DeepCopy(obj).(*document.Object)
		for _, f := range r.filters {
			if err := f.apply(ctx, cp); err != nil {
				return nil, false, err
			}
		}
		return cp, true, nil
	})
	return err
}

func (f entryFilter) apply(ctx context.Context, obj *document.Object) error {
	for _, k := range obj.Keys() {
		var subject any = k
		if !f.onKey {
			subject, _ = obj.Get(k)
		}
		ok, err := test(ctx, f.predicate, subject)
		if err != nil {
			return err
		}
		if ok == f.drop {
			obj.Delete(k)
		}
	}
	return nil
}
