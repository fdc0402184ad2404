package rules

import (
	"context"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/solatis/jsonforge/internal/document"
	"github.com/solatis/jsonforge/internal/registry"
	"github.com/solatis/jsonforge/internal/types"
)

// jsonPatch applies an RFC 6902 patch to the single node at its path.
// The patch is supplied and decoded once at construction. A patch that
// fails against a node is logged and the node is left unchanged. Members
// that survive the patch keep their original order; added members follow.

var jsonPatchSettings = []registry.ParamSpec{
	registry.Embedded("patch", types.CategorySupplier),
}

type jsonPatchRule struct {
	base
	patch  jsonpatch.Patch
	mapper document.Mapper
}

func newJSONPatch(reg *registry.Registries, spec types.RuleSpec) (registry.Rule, error) {
	b, err := newBase(reg, spec)
	if err != nil {
		return nil, err
	}
	a, err := reg.Bind(spec, jsonPatchSettings)
	if err != nil {
		return nil, err
	}
	raw, err := a.Supplier("patch").Supply(context.Background())
	if err != nil {
		return nil, fmt.Errorf("supply patch: %w", err)
	}
	ops, err := reg.Mapper().MapTo(raw, document.HintList)
	if err != nil {
		return nil, fmt.Errorf("patch: %w", err)
	}
	text, err := reg.Mapper().Serialize(ops)
	if err != nil {
		return nil, fmt.Errorf("patch: %w", err)
	}
	patch, err := jsonpatch.DecodePatch(text)
	if err != nil {
		return nil, fmt.Errorf("decode patch: %w", err)
	}
	return &jsonPatchRule{base: b, patch: patch, mapper: reg.Mapper()}, nil
}

func (r *jsonPatchRule) Apply(_ context.Context, doc *document.Document) error {
	if !r.path.IsDefinite() {
		r.warn("path is not definite, patch not applied")
		return nil
	}
	_, err := doc.Map(r.path, func(loc string, v any) (any, bool, error) {
		in, err := r.mapper.Serialize(v)
		if err != nil {
			return nil, false, err
		}
		out, err := r.patch.Apply(in)
		if err != nil {
			r.softFail("patch failed", "node", loc, "err", err)
			return nil, false, nil
		}
		patched, err := r.mapper.Parse(out)
		if err != nil {
			return nil, false, err
		}
		return keepOrder(v, patched), true, nil
	})
	return err
}

// keepOrder rebuilds after so members also present in before appear in
// before's order, followed by new members in after's order.
func keepOrder(before, after any) any {
	switch a := after.(type) {
	case *document.Object:
		b, ok := before.(*document.Object)
		if !ok {
			return after
		}
		out := document.NewObject()
		b.Range(func(k string, bv any) bool {
			if av, ok := a.Get(k); ok {
				out.Set(k, keepOrder(bv, av))
			}
			return true
		})
		a.Range(func(k string, av any) bool {
			if !out.Has(k) {
				out.Set(k, av)
			}
			return true
		})
		return out
	case []any:
		b, ok := before.([]any)
		if !ok {
			return after
		}
		for i := range a {
			if i < len(b) {
				a[i] = keepOrder(b[i], a[i])
			}
		}
		return a
	default:
		return after
	}
}
