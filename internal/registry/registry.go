// internal/registry/registry.go
package registry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/solatis/jsonforge/internal/types"
)

/*
 * Generic component registry.
 *
 * One Registry[T] per category maps names to descriptors. Register validates
 * the whole descriptor before touching the entry map, so a rejected
 * registration leaves the registry exactly as it was. Lookup reads the
 * component name from the configuration map, binds the declared parameters
 * and invokes the factory.
 *
 * Registries are built once at startup. Registration is not safe for
 * concurrent use; lookups after startup are read-only and may run in
 * parallel.
 */

// Registry holds the descriptors of one component category.
type Registry[T any] struct {
	category types.Category
	entries  map[string]Descriptor[T]
	owner    *Registries
}

func newRegistry[T any](category types.Category, owner *Registries) *Registry[T] {
	return &Registry[T]{
		category: category,
		entries:  make(map[string]Descriptor[T]),
		owner:    owner,
	}
}

// Category returns the category this registry serves.
func (r *Registry[T]) Category() types.Category { return r.category }

// Register validates d and adds it under d.Name.
func (r *Registry[T]) Register(d Descriptor[T]) error {
	if err := r.validate(d); err != nil {
		return &types.RegistrationError{Category: r.category, Name: d.Name, Err: err}
	}
	if _, exists := r.entries[d.Name]; exists {
		return &types.RegistrationError{Category: r.category, Name: d.Name, Err: types.ErrDuplicateName}
	}

	stored := d
	stored.Params = append([]ParamSpec{}, d.Params...)
	stored.Settings = append([]ParamSpec{}, d.Settings...)
	if d.Qualifiers != nil {
		stored.Qualifiers = make(map[string]string, len(d.Qualifiers))
		for k, v := range d.Qualifiers {
			stored.Qualifiers[k] = v
		}
	}
	r.entries[d.Name] = stored

	r.owner.logger.Debug("component registered", "category", r.category, "name", d.Name)
	return nil
}

// MustRegister is like Register but panics on error. For static tables.
func (r *Registry[T]) MustRegister(d Descriptor[T]) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

func (r *Registry[T]) validate(d Descriptor[T]) error {
	if d.Name == "" {
		return fmt.Errorf("%w: empty name", types.ErrMalformedFactory)
	}
	if d.New == nil {
		return fmt.Errorf("%w: nil factory", types.ErrMalformedFactory)
	}

	if r.category == types.CategoryRule {
		if len(d.Params) != len(ruleSignature) {
			return types.ErrRuleSignature
		}
		for i, p := range d.Params {
			if p.Use != ruleSignature[i].Use {
				return types.ErrRuleSignature
			}
		}
	}

	seen := make(map[string]bool, len(d.Params))
	for _, p := range d.Params {
		if p.Name == "" {
			return fmt.Errorf("%w: parameter without a name", types.ErrMalformedFactory)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: duplicate parameter %q", types.ErrMalformedFactory, p.Name)
		}
		seen[p.Name] = true

		if r.category == types.CategoryRule {
			continue
		}
		if err := checkUse(p); err != nil {
			return err
		}
	}

	for formal := range d.Qualifiers {
		if !seen[formal] {
			return fmt.Errorf("%w: qualifier for undeclared parameter %q", types.ErrMalformedFactory, formal)
		}
	}
	return nil
}

// checkUse accepts the use cases available to non-rule components.
func checkUse(p ParamSpec) error {
	switch p.Use {
	case UseValue, UseMap:
		return nil
	case UseEmbedded:
		if !p.Category.Embeddable() {
			return fmt.Errorf("%w: %q embeds category %q", types.ErrUnboundParameter, p.Name, p.Category)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q uses %s", types.ErrUnboundParameter, p.Name, p.Use)
	}
}

// Lookup resolves a component configuration map into an instance.
//
// For the rule registry the map carries "name", "path" and "params" keys
// and is converted to a RuleSpec first. Order stays zero.
func (r *Registry[T]) Lookup(cfg map[string]types.RawConfigParam) (T, error) {
	return r.lookup(cfg, 0)
}

func (r *Registry[T]) lookup(cfg map[string]types.RawConfigParam, depth int) (T, error) {
	var zero T
	if r.category == types.CategoryRule {
		spec, err := ruleSpecFromConfig(cfg)
		if err != nil {
			return zero, err
		}
		return r.resolve(spec.Name, cfg, &spec, depth)
	}

	name, err := componentName(r.category, cfg)
	if err != nil {
		return zero, err
	}
	return r.resolve(name, cfg, nil, depth)
}

func (r *Registry[T]) resolve(name string, cfg map[string]types.RawConfigParam, spec *types.RuleSpec, depth int) (T, error) {
	var zero T
	d, ok := r.entries[name]
	if !ok {
		return zero, &types.ConfigError{Category: r.category, Component: name, Err: types.ErrUnknownName}
	}

	args, err := r.owner.bind(r.category, d.Name, d.Params, d.Qualifiers, cfg, spec, depth)
	if err != nil {
		return zero, err
	}
	return instantiate(r.category, d, args)
}

// instantiate runs the factory, converting errors and panics into
// InstantiationError with the cause preserved. A ConfigError from the
// factory is returned as is.
func instantiate[T any](category types.Category, d Descriptor[T], args Args) (inst T, err error) {
	defer func() {
		if p := recover(); p != nil {
			var zero T
			inst = zero
			cause, ok := p.(error)
			if !ok {
				cause = fmt.Errorf("panic: %v", p)
			}
			err = &types.InstantiationError{Category: category, Name: d.Name, Err: cause}
		}
	}()

	inst, err = d.New(args)
	if err != nil {
		var zero T
		var cfgErr *types.ConfigError
		if errors.As(err, &cfgErr) {
			return zero, err
		}
		return zero, &types.InstantiationError{Category: category, Name: d.Name, Err: err}
	}
	return inst, nil
}

// Names returns the registered names in sorted order.
func (r *Registry[T]) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns the read-only view of one descriptor.
func (r *Registry[T]) Describe(name string) (Info, bool) {
	d, ok := r.entries[name]
	if !ok {
		return Info{}, false
	}
	info := Info{
		Category: r.category,
		Name:     d.Name,
		Params:   append([]ParamSpec{}, d.Params...),
		Settings: append([]ParamSpec{}, d.Settings...),
		Doc:      d.Doc,
	}
	if d.Qualifiers != nil {
		info.Qualifiers = make(map[string]string, len(d.Qualifiers))
		for k, v := range d.Qualifiers {
			info.Qualifiers[k] = v
		}
	}
	return info, true
}

// Len returns the number of registered components.
func (r *Registry[T]) Len() int { return len(r.entries) }

// componentName extracts the mandatory scalar "name" key.
func componentName(category types.Category, cfg map[string]types.RawConfigParam) (string, error) {
	raw, ok := cfg["name"]
	if !ok {
		return "", &types.ConfigError{Category: category, Err: types.ErrNoName}
	}
	name, ok := raw.AsValue()
	if !ok || name == "" {
		return "", &types.ConfigError{Category: category, Err: types.ErrNoName}
	}
	return name, nil
}

// ruleSpecFromConfig converts a rule configuration map into a RuleSpec.
// Order is positional and never read from the map.
func ruleSpecFromConfig(cfg map[string]types.RawConfigParam) (types.RuleSpec, error) {
	name, err := componentName(types.CategoryRule, cfg)
	if err != nil {
		return types.RuleSpec{}, err
	}
	spec := types.RuleSpec{Name: name, Path: "$", Params: map[string]types.RawConfigParam{}}

	if raw, ok := cfg["path"]; ok {
		path, ok := raw.AsValue()
		if !ok {
			return types.RuleSpec{}, shapeError(types.CategoryRule, name, "path", "value", raw)
		}
		spec.Path = path
	}
	if raw, ok := cfg["params"]; ok {
		params, ok := raw.AsMap()
		if !ok {
			return types.RuleSpec{}, shapeError(types.CategoryRule, name, "params", "map", raw)
		}
		spec.Params = params
	}
	return spec, nil
}
