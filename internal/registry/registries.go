package registry

import (
	"fmt"
	"log/slog"

	"github.com/solatis/jsonforge/internal/document"
	"github.com/solatis/jsonforge/internal/logging"
	"github.com/solatis/jsonforge/internal/types"
)

// Registries is the facade over the four component registries. Rule
// factories receive it to resolve their embedded components, bind their own
// params and reach the shared logger and mapper.
type Registries struct {
	Suppliers  *Registry[Supplier]
	Functions  *Registry[Function]
	Predicates *Registry[Predicate]
	Rules      *Registry[Rule]

	logger *slog.Logger
	mapper document.Mapper
}

// Option configures a Registries.
type Option func(*Registries)

// WithLogger sets the logger rules report soft failures through.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registries) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMapper sets the JSON mapper.
func WithMapper(m document.Mapper) Option {
	return func(r *Registries) {
		if m != nil {
			r.mapper = m
		}
	}
}

// New creates four empty registries.
func New(opts ...Option) *Registries {
	r := &Registries{
		logger: logging.NewNop(),
		mapper: document.JSONMapper{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.Suppliers = newRegistry[Supplier](types.CategorySupplier, r)
	r.Functions = newRegistry[Function](types.CategoryFunction, r)
	r.Predicates = newRegistry[Predicate](types.CategoryPredicate, r)
	r.Rules = newRegistry[Rule](types.CategoryRule, r)
	return r
}

// Logger returns the shared logger.
func (r *Registries) Logger() *slog.Logger { return r.logger }

// Mapper returns the shared JSON mapper.
func (r *Registries) Mapper() document.Mapper { return r.mapper }

// Supplier resolves a supplier configuration.
func (r *Registries) Supplier(cfg map[string]types.RawConfigParam) (Supplier, error) {
	return r.Suppliers.Lookup(cfg)
}

// Function resolves a function configuration.
func (r *Registries) Function(cfg map[string]types.RawConfigParam) (Function, error) {
	return r.Functions.Lookup(cfg)
}

// Predicate resolves a predicate configuration.
func (r *Registries) Predicate(cfg map[string]types.RawConfigParam) (Predicate, error) {
	return r.Predicates.Lookup(cfg)
}

// Rule resolves a rule declaration.
func (r *Registries) Rule(spec types.RuleSpec) (Rule, error) {
	if spec.Name == "" {
		return nil, &types.ConfigError{Category: types.CategoryRule, Err: types.ErrNoName}
	}
	if spec.Path == "" {
		spec.Path = "$"
	}
	if spec.Params == nil {
		spec.Params = map[string]types.RawConfigParam{}
	}
	return r.Rules.resolve(spec.Name, nil, &spec, 0)
}

// Bind binds a rule's params against schema with the component binder.
// schema may use UseValue, UseMap and UseEmbedded only.
func (r *Registries) Bind(spec types.RuleSpec, schema []ParamSpec) (Args, error) {
	seen := make(map[string]bool, len(schema))
	for _, p := range schema {
		if seen[p.Name] {
			return Args{}, &types.ConfigError{Category: types.CategoryRule, Component: spec.Name, Key: p.Name,
				Err: fmt.Errorf("%w: duplicate parameter", types.ErrMalformedFactory)}
		}
		seen[p.Name] = true
		if err := checkUse(p); err != nil {
			return Args{}, &types.ConfigError{Category: types.CategoryRule, Component: spec.Name, Key: p.Name, Err: err}
		}
	}
	args, err := r.bind(types.CategoryRule, spec.Name, schema, nil, spec.Params, &spec, 0)
	if err != nil {
		return Args{}, err
	}
	return args, nil
}

// Describe lists every registered component across the four categories.
func (r *Registries) Describe() []Info {
	var out []Info
	out = appendInfos(out, r.Suppliers)
	out = appendInfos(out, r.Functions)
	out = appendInfos(out, r.Predicates)
	out = appendInfos(out, r.Rules)
	return out
}

func appendInfos[T any](out []Info, reg *Registry[T]) []Info {
	for _, name := range reg.Names() {
		info, _ := reg.Describe(name)
		out = append(out, info)
	}
	return out
}
