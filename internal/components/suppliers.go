package components

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/solatis/jsonforge/internal/document"
	"github.com/solatis/jsonforge/internal/registry"
	"github.com/solatis/jsonforge/internal/types"
)

// suppliers returns the built-in supplier table.
func suppliers(mapper document.Mapper, deps Deps) []registry.Descriptor[registry.Supplier] {
	return []registry.Descriptor[registry.Supplier]{
		{
			Name:   "string",
			Doc:    "Supplies a constant string.",
			Params: []registry.ParamSpec{registry.Value("value")},
			New: func(a registry.Args) (registry.Supplier, error) {
				value := a.String("value")
				return registry.SupplierFunc(func(context.Context) (any, error) { return value, nil }), nil
			},
		},
		{
			Name:   "list",
			Doc:    "Supplies a constant list of strings.",
			Params: []registry.ParamSpec{registry.Value("values").List()},
			New: func(a registry.Args) (registry.Supplier, error) {
				values := a.Strings("values")
				return registry.SupplierFunc(func(context.Context) (any, error) {
					out := make([]any, len(values))
					for i, v := range values {
						out[i] = v
					}
					return out, nil
				}), nil
			},
		},
		{
			Name:   "stringMap",
			Doc:    "Supplies a constant object of string values.",
			Params: []registry.ParamSpec{registry.Map("entries")},
			New: func(a registry.Args) (registry.Supplier, error) {
				entries := a.StringMap("entries")
				return registry.SupplierFunc(func(context.Context) (any, error) {
					out := make(map[string]any, len(entries))
					for k, v := range entries {
						out[k] = v
					}
					return out, nil
				}), nil
			},
		},
		{
			Name:   "json",
			Doc:    "Supplies the JSON value parsed from text.",
			Params: []registry.ParamSpec{registry.Value("value")},
			New: func(a registry.Args) (registry.Supplier, error) {
				tree, err := mapper.Parse([]byte(a.String("value")))
				if err != nil {
					return nil, err
				}
				return registry.SupplierFunc(func(context.Context) (any, error) {
					return document.DeepCopy(tree), nil
				}), nil
			},
		},
		{
			Name: "null",
			Doc:  "Supplies JSON null.",
			New: func(registry.Args) (registry.Supplier, error) {
				return registry.SupplierFunc(func(context.Context) (any, error) { return nil, nil }), nil
			},
		},
		{
			Name: "uuid",
			Doc:  "Supplies a new time-ordered UUID on every call.",
			New: func(registry.Args) (registry.Supplier, error) {
				return registry.SupplierFunc(func(context.Context) (any, error) {
					id, err := uuid.NewV7()
					if err != nil {
						return nil, err
					}
					return id.String(), nil
				}), nil
			},
		},
		{
			Name:   "env",
			Doc:    "Supplies an environment variable, or default when unset.",
			Params: []registry.ParamSpec{registry.Value("variable"), registry.Value("default").Optional()},
			New: func(a registry.Args) (registry.Supplier, error) {
				variable := a.String("variable")
				def, hasDefault := a.String("default"), a.Has("default")
				return registry.SupplierFunc(func(context.Context) (any, error) {
					if v, ok := deps.LookupEnv(variable); ok {
						return v, nil
					}
					if hasDefault {
						return def, nil
					}
					return nil, fmt.Errorf("environment variable %q is not set", variable)
				}), nil
			},
		},
		{
			Name:   "file",
			Doc:    "Supplies the contents of a local file as text.",
			Params: []registry.ParamSpec{registry.Value("path")},
			New: func(a registry.Args) (registry.Supplier, error) {
				path := a.String("path")
				return registry.SupplierFunc(func(context.Context) (any, error) {
					b, err := deps.ReadFile(path)
					if err != nil {
						return nil, fmt.Errorf("read %s: %w", path, err)
					}
					return string(b), nil
				}), nil
			},
		},
		{
			Name: "http",
			Doc:  "Supplies the body fetched from the URI produced by the uri supplier.",
			Params: []registry.ParamSpec{
				registry.Embedded("uri", types.CategorySupplier),
				registry.Value("method").Optional(),
				registry.Map("headers").Optional(),
				registry.Value("charset").Optional(),
			},
			New: func(a registry.Args) (registry.Supplier, error) {
				if deps.Fetcher == nil {
					return nil, fmt.Errorf("http: %w", ErrUnavailable)
				}
				uri := a.Supplier("uri")
				req := requestTemplate(a)
				return registry.SupplierFunc(func(ctx context.Context) (any, error) {
					target, err := SupplyText(ctx, uri)
					if err != nil {
						return nil, err
					}
					r := req
					r.URI = target
					return deps.Fetcher.Fetch(ctx, r)
				}), nil
			},
		},
		{
			Name:   "redis",
			Doc:    "Supplies the value stored under key, or null when missing.",
			Params: []registry.ParamSpec{registry.Value("key")},
			New: func(a registry.Args) (registry.Supplier, error) {
				if deps.Store == nil {
					return nil, fmt.Errorf("redis: %w", ErrUnavailable)
				}
				key := a.String("key")
				return registry.SupplierFunc(func(ctx context.Context) (any, error) {
					v, found, err := deps.Store.Get(ctx, key)
					if err != nil || !found {
						return nil, err
					}
					return v, nil
				}), nil
			},
		},
		{
			Name: "apply",
			Doc:  "Supplies the result of function applied to the source supplier's value.",
			Params: []registry.ParamSpec{
				registry.Embedded("source", types.CategorySupplier),
				registry.Embedded("function", types.CategoryFunction),
			},
			New: func(a registry.Args) (registry.Supplier, error) {
				source, fn := a.Supplier("source"), a.Function("function")
				return registry.SupplierFunc(func(ctx context.Context) (any, error) {
					v, err := source.Supply(ctx)
					if err != nil {
						return nil, err
					}
					return fn.Apply(ctx, v)
				}), nil
			},
		},
	}
}

// requestTemplate builds the fixed part of a fetch from optional params.
func requestTemplate(a registry.Args) types.RequestContext {
	return types.RequestContext{
		Method:  strings.ToUpper(a.StringOr("method", "GET")),
		Headers: a.StringMap("headers"),
		Charset: a.String("charset"),
	}
}
