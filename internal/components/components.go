// Package components provides the built-in suppliers, functions and
// predicates.
//
// Every component is a factory closure plus a parameter schema literal,
// registered into the shared registries by Register. Collaborators that do
// I/O (HTTP, key/value store, environment, files) are injected through Deps
// so tests can substitute them and the core never imports a transport.
package components

import (
	"context"
	"errors"
	"os"

	"github.com/solatis/jsonforge/internal/registry"
	"github.com/solatis/jsonforge/internal/types"
)

// ErrUnavailable indicates a component whose collaborator was not configured.
var ErrUnavailable = errors.New("collaborator not configured")

// Fetcher retrieves a remote resource as text.
type Fetcher interface {
	Fetch(ctx context.Context, req types.RequestContext) (string, error)
}

// KeyValueStore looks up string values by key. found is false for missing keys.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
}

// Deps carries the collaborators components may use. Nil fields disable the
// components that need them: their factories fail with ErrUnavailable.
type Deps struct {
	Fetcher   Fetcher
	Store     KeyValueStore
	LookupEnv func(key string) (string, bool)
	ReadFile  func(path string) ([]byte, error)
}

func (d Deps) withDefaults() Deps {
	if d.LookupEnv == nil {
		d.LookupEnv = os.LookupEnv
	}
	if d.ReadFile == nil {
		d.ReadFile = os.ReadFile
	}
	return d
}

// Register adds every built-in supplier, function and predicate to reg.
func Register(reg *registry.Registries, deps Deps) error {
	deps = deps.withDefaults()
	for _, d := range suppliers(reg.Mapper(), deps) {
		if err := reg.Suppliers.Register(d); err != nil {
			return err
		}
	}
	for _, d := range functions(reg.Mapper(), deps) {
		if err := reg.Functions.Register(d); err != nil {
			return err
		}
	}
	for _, d := range predicates() {
		if err := reg.Predicates.Register(d); err != nil {
			return err
		}
	}
	return nil
}

// MatchAny is the predicate that accepts every value.
func MatchAny() registry.Predicate {
	return registry.PredicateFunc(func(context.Context, any) (bool, error) { return true, nil })
}

// NotNull is the predicate that accepts every non-null value.
func NotNull() registry.Predicate {
	return registry.PredicateFunc(func(_ context.Context, v any) (bool, error) { return v != nil, nil })
}

// Identity is the function returning its input.
func Identity() registry.Function {
	return registry.FunctionFunc(func(_ context.Context, in any) (any, error) { return in, nil })
}

// SupplyText runs s and renders its value as text.
func SupplyText(ctx context.Context, s registry.Supplier) (string, error) {
	v, err := s.Supply(ctx)
	if err != nil {
		return "", err
	}
	return ToText(v), nil
}
