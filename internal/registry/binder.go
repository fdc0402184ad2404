// internal/registry/binder.go
package registry

import (
	"fmt"
	"strconv"

	"github.com/solatis/jsonforge/internal/types"
)

/*
 * Parameter binding.
 *
 * bind walks a []ParamSpec schema against a raw configuration map:
 *
 *   key resolution   ParamSpec.Key > Descriptor.Qualifiers[Name] > Name
 *   UseValue         scalar, or string list when Collection
 *   UseMap           string map, or list of string maps when Collection
 *   UseEmbedded      nested map (or list of maps) resolved recursively
 *                    against the registry named by ParamSpec.Category
 *   UseRegistry      the facade itself
 *   UseRuleSpec      the RuleSpec being resolved
 *
 * A missing key binds as absent when Nullable, otherwise it fails with
 * ErrMissingKey. Shape and cardinality mismatches fail with ErrShapeMismatch.
 * Binding is all-or-nothing: the first failure is returned and no Args
 * escape. Embedded recursion is bounded by MaxEmbedDepth.
 *
 * Binding has no side effects beyond the factories of embedded components,
 * so the same schema and map always bind to equivalent Args.
 */

// Args holds bound parameter values keyed by formal name.
type Args struct {
	category  types.Category
	component string
	values    map[string]any
	reg       *Registries
	spec      types.RuleSpec
}

// Component returns the name of the component being bound.
func (a Args) Component() string { return a.component }

// Has reports whether the parameter was bound (false for absent nullables).
func (a Args) Has(name string) bool {
	_, ok := a.values[name]
	return ok
}

// String returns a bound scalar, or "" when absent.
func (a Args) String(name string) string {
	s, _ := a.values[name].(string)
	return s
}

// StringOr returns a bound scalar, or def when absent.
func (a Args) StringOr(name, def string) string {
	if s, ok := a.values[name].(string); ok {
		return s
	}
	return def
}

// Int parses a bound scalar as an integer, returning def when absent.
func (a Args) Int(name string, def int) (int, error) {
	s, ok := a.values[name].(string)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &types.ConfigError{Category: a.category, Component: a.component, Key: name,
			Err: fmt.Errorf("%w: %q is not an integer", types.ErrShapeMismatch, s)}
	}
	return n, nil
}

// Strings returns a bound string list.
func (a Args) Strings(name string) []string {
	ss, _ := a.values[name].([]string)
	return append([]string{}, ss...)
}

// StringMap returns a bound string map.
func (a Args) StringMap(name string) map[string]string {
	m, _ := a.values[name].(map[string]string)
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// StringMaps returns a bound list of string maps.
func (a Args) StringMaps(name string) []map[string]string {
	ms, _ := a.values[name].([]map[string]string)
	return append([]map[string]string{}, ms...)
}

// Supplier returns a bound embedded supplier, or nil when absent.
func (a Args) Supplier(name string) Supplier {
	s, _ := a.values[name].(Supplier)
	return s
}

// Suppliers returns a bound list of embedded suppliers.
func (a Args) Suppliers(name string) []Supplier {
	s, _ := a.values[name].([]Supplier)
	return s
}

// Function returns a bound embedded function, or nil when absent.
func (a Args) Function(name string) Function {
	f, _ := a.values[name].(Function)
	return f
}

// Functions returns a bound list of embedded functions.
func (a Args) Functions(name string) []Function {
	f, _ := a.values[name].([]Function)
	return f
}

// Predicate returns a bound embedded predicate, or nil when absent.
func (a Args) Predicate(name string) Predicate {
	p, _ := a.values[name].(Predicate)
	return p
}

// Predicates returns a bound list of embedded predicates.
func (a Args) Predicates(name string) []Predicate {
	p, _ := a.values[name].([]Predicate)
	return p
}

// Registries returns the facade the arguments were bound through.
func (a Args) Registries() *Registries { return a.reg }

// RuleSpec returns the rule declaration being resolved.
func (a Args) RuleSpec() types.RuleSpec { return a.spec }

// bind binds params against cfg for one component.
func (r *Registries) bind(
	category types.Category,
	component string,
	params []ParamSpec,
	qualifiers map[string]string,
	cfg map[string]types.RawConfigParam,
	spec *types.RuleSpec,
	depth int,
) (Args, error) {
	args := Args{category: category, component: component, values: make(map[string]any, len(params)), reg: r}
	if spec != nil {
		args.spec = *spec
	}

	for _, p := range params {
		switch p.Use {
		case UseRegistry:
			args.values[p.Name] = r
			continue
		case UseRuleSpec:
			if spec == nil {
				return Args{}, &types.ConfigError{Category: category, Component: component, Key: p.Name, Err: types.ErrMissingKey}
			}
			args.values[p.Name] = *spec
			continue
		}

		key := resolveKey(p, qualifiers)
		raw, ok := cfg[key]
		if !ok {
			if p.Nullable {
				continue
			}
			return Args{}, &types.ConfigError{Category: category, Component: component, Key: key, Err: types.ErrMissingKey}
		}

		v, err := r.extract(category, component, key, p, raw, depth)
		if err != nil {
			return Args{}, err
		}
		args.values[p.Name] = v
	}
	return args, nil
}

// resolveKey applies the key precedence: explicit key, qualifier, formal name.
func resolveKey(p ParamSpec, qualifiers map[string]string) string {
	if p.Key != "" {
		return p.Key
	}
	if q, ok := qualifiers[p.Name]; ok && q != "" {
		return q
	}
	return p.Name
}

func (r *Registries) extract(
	category types.Category,
	component, key string,
	p ParamSpec,
	raw types.RawConfigParam,
	depth int,
) (any, error) {
	switch p.Use {
	case UseValue:
		if p.Collection {
			if ss, ok := raw.AsValues(); ok {
				return ss, nil
			}
			return nil, shapeError(category, component, key, "value list", raw)
		}
		if s, ok := raw.AsValue(); ok {
			return s, nil
		}
		return nil, shapeError(category, component, key, "value", raw)

	case UseMap:
		if p.Collection {
			if ms, ok := raw.AsStringMaps(); ok {
				return ms, nil
			}
			return nil, shapeError(category, component, key, "string map list", raw)
		}
		if m, ok := raw.AsStringMap(); ok {
			return m, nil
		}
		return nil, shapeError(category, component, key, "string map", raw)

	case UseEmbedded:
		if depth+1 > types.MaxEmbedDepth {
			return nil, &types.ConfigError{Category: category, Component: component, Key: key, Err: types.ErrEmbedTooDeep}
		}
		if p.Collection {
			maps, ok := raw.AsMaps()
			if !ok {
				return nil, shapeError(category, component, key, "component list", raw)
			}
			return r.embedList(p.Category, maps, depth+1)
		}
		m, ok := raw.AsMap()
		if !ok {
			return nil, shapeError(category, component, key, "component", raw)
		}
		return r.embed(p.Category, m, depth+1)

	default:
		return nil, &types.ConfigError{Category: category, Component: component, Key: key, Err: types.ErrUnboundParameter}
	}
}

// embed resolves one nested component configuration.
func (r *Registries) embed(category types.Category, cfg map[string]types.RawConfigParam, depth int) (any, error) {
	switch category {
	case types.CategorySupplier:
		return r.Suppliers.lookup(cfg, depth)
	case types.CategoryFunction:
		return r.Functions.lookup(cfg, depth)
	case types.CategoryPredicate:
		return r.Predicates.lookup(cfg, depth)
	default:
		return nil, &types.ConfigError{Category: category, Err: types.ErrUnboundParameter}
	}
}

func (r *Registries) embedList(category types.Category, cfgs []map[string]types.RawConfigParam, depth int) (any, error) {
	switch category {
	case types.CategorySupplier:
		return lookupAll(r.Suppliers, cfgs, depth)
	case types.CategoryFunction:
		return lookupAll(r.Functions, cfgs, depth)
	case types.CategoryPredicate:
		return lookupAll(r.Predicates, cfgs, depth)
	default:
		return nil, &types.ConfigError{Category: category, Err: types.ErrUnboundParameter}
	}
}

func lookupAll[T any](reg *Registry[T], cfgs []map[string]types.RawConfigParam, depth int) ([]T, error) {
	out := make([]T, 0, len(cfgs))
	for _, cfg := range cfgs {
		inst, err := reg.lookup(cfg, depth)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

func shapeError(category types.Category, component, key, want string, got types.RawConfigParam) error {
	have := got.Kind().String()
	if got.IsList() {
		have += " list"
	}
	return &types.ConfigError{
		Category:  category,
		Component: component,
		Key:       key,
		Err:       fmt.Errorf("%w: want %s, got %s", types.ErrShapeMismatch, want, have),
	}
}
