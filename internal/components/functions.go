package components

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/solatis/jsonforge/internal/document"
	"github.com/solatis/jsonforge/internal/registry"
	"github.com/solatis/jsonforge/internal/types"
)

// functions returns the built-in function table, numeric functions included.
func functions(mapper document.Mapper, deps Deps) []registry.Descriptor[registry.Function] {
	table := []registry.Descriptor[registry.Function]{
		{
			Name: "identity",
			Doc:  "Returns its input unchanged.",
			New: func(registry.Args) (registry.Function, error) {
				return Identity(), nil
			},
		},
		{
			Name:   "constant",
			Doc:    "Ignores its input and returns the supplier's value.",
			Params: []registry.ParamSpec{registry.Embedded("value", types.CategorySupplier)},
			New: func(a registry.Args) (registry.Function, error) {
				s := a.Supplier("value")
				return registry.FunctionFunc(func(ctx context.Context, _ any) (any, error) {
					return s.Supply(ctx)
				}), nil
			},
		},
		stringFunction("upperCase", "Upper-cases a string.", strings.ToUpper),
		stringFunction("lowerCase", "Lower-cases a string.", strings.ToLower),
		stringFunction("trim", "Removes leading and trailing white space.", strings.TrimSpace),
		{
			Name:   "prepend",
			Doc:    "Prefixes a string with text.",
			Params: []registry.ParamSpec{registry.Value("text")},
			New: func(a registry.Args) (registry.Function, error) {
				text := a.String("text")
				return textFunc("prepend", func(s string) string { return text + s }), nil
			},
		},
		{
			Name:   "append",
			Doc:    "Suffixes a string with text.",
			Params: []registry.ParamSpec{registry.Value("text")},
			New: func(a registry.Args) (registry.Function, error) {
				text := a.String("text")
				return textFunc("append", func(s string) string { return s + text }), nil
			},
		},
		{
			Name:   "regexReplace",
			Doc:    "Replaces every match of pattern; replacement may reference groups as $1.",
			Params: []registry.ParamSpec{registry.Value("pattern"), registry.Value("replacement")},
			New: func(a registry.Args) (registry.Function, error) {
				re, err := regexp.Compile(a.String("pattern"))
				if err != nil {
					return nil, err
				}
				replacement := a.String("replacement")
				return textFunc("regexReplace", func(s string) string {
					return re.ReplaceAllString(s, replacement)
				}), nil
			},
		},
		{
			Name:   "lookup",
			Doc:    "Maps a value through a table; unmatched values yield default, or pass through.",
			Params: []registry.ParamSpec{registry.Map("table"), registry.Value("default").Optional()},
			New: func(a registry.Args) (registry.Function, error) {
				table := a.StringMap("table")
				def, hasDefault := a.String("default"), a.Has("default")
				return registry.FunctionFunc(func(_ context.Context, in any) (any, error) {
					if v, ok := table[ToText(in)]; ok {
						return v, nil
					}
					if hasDefault {
						return def, nil
					}
					return in, nil
				}), nil
			},
		},
		{
			Name:   "redisLookup",
			Doc:    "Maps a value through the key/value store under an optional key prefix.",
			Params: []registry.ParamSpec{registry.Value("prefix").Optional()},
			New: func(a registry.Args) (registry.Function, error) {
				if deps.Store == nil {
					return nil, fmt.Errorf("redisLookup: %w", ErrUnavailable)
				}
				prefix := a.String("prefix")
				return registry.FunctionFunc(func(ctx context.Context, in any) (any, error) {
					v, found, err := deps.Store.Get(ctx, prefix+ToText(in))
					if err != nil {
						return nil, err
					}
					if !found {
						return in, nil
					}
					return v, nil
				}), nil
			},
		},
		{
			Name: "fetch",
			Doc:  "Fetches the URI given by the input (optionally mapped by uri) and returns the body.",
			Params: []registry.ParamSpec{
				registry.Embedded("uri", types.CategoryFunction).Optional(),
				registry.Value("method").Optional(),
				registry.Map("headers").Optional(),
				registry.Value("charset").Optional(),
			},
			New: func(a registry.Args) (registry.Function, error) {
				if deps.Fetcher == nil {
					return nil, fmt.Errorf("fetch: %w", ErrUnavailable)
				}
				uri := a.Function("uri")
				if uri == nil {
					uri = Identity()
				}
				req := requestTemplate(a)
				return registry.FunctionFunc(func(ctx context.Context, in any) (any, error) {
					target, err := uri.Apply(ctx, in)
					if err != nil {
						return nil, err
					}
					r := req
					r.URI = ToText(target)
					return deps.Fetcher.Fetch(ctx, r)
				}), nil
			},
		},
		{
			Name:   "json",
			Doc:    "Parses a string as JSON text.",
			Params: nil,
			New: func(registry.Args) (registry.Function, error) {
				return registry.FunctionFunc(func(_ context.Context, in any) (any, error) {
					s, ok := in.(string)
					if !ok {
						return nil, fmt.Errorf("%w: json expects a string, got %T", types.ErrCoercionFailed, in)
					}
					return mapper.Parse([]byte(s))
				}), nil
			},
		},
		{
			Name:   "expr",
			Doc:    "Evaluates an expression with the input bound to value.",
			Params: []registry.ParamSpec{registry.Value("expression")},
			New: func(a registry.Args) (registry.Function, error) {
				return newExprFunction(a.String("expression"))
			},
		},
		{
			Name:   "chain",
			Doc:    "Applies functions left to right.",
			Params: []registry.ParamSpec{registry.Embedded("functions", types.CategoryFunction).List()},
			New: func(a registry.Args) (registry.Function, error) {
				fns := a.Functions("functions")
				return registry.FunctionFunc(func(ctx context.Context, in any) (any, error) {
					v := in
					for _, fn := range fns {
						out, err := fn.Apply(ctx, v)
						if err != nil {
							return nil, err
						}
						v = out
					}
					return v, nil
				}), nil
			},
		},
		{
			Name:   "putAll",
			Doc:    "Adds the entries to an object, overwriting existing keys.",
			Params: []registry.ParamSpec{registry.Map("entries")},
			New: func(a registry.Args) (registry.Function, error) {
				entries := a.StringMap("entries")
				keys := make([]string, 0, len(entries))
				for k := range entries {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				return mapFunc("putAll", func(o *document.Object) {
					for _, k := range keys {
						o.Set(k, entries[k])
					}
				}), nil
			},
		},
		{
			Name:   "removeKeys",
			Doc:    "Removes the listed keys from an object.",
			Params: []registry.ParamSpec{registry.Value("keys").List()},
			New: func(a registry.Args) (registry.Function, error) {
				keys := a.Strings("keys")
				return mapFunc("removeKeys", func(o *document.Object) {
					for _, k := range keys {
						o.Delete(k)
					}
				}), nil
			},
		},
	}
	return append(table, numericFunctions()...)
}

func stringFunction(name, doc string, fn func(string) string) registry.Descriptor[registry.Function] {
	return registry.Descriptor[registry.Function]{
		Name: name,
		Doc:  doc,
		New: func(registry.Args) (registry.Function, error) {
			return textFunc(name, fn), nil
		},
	}
}

// textFunc lifts a string transform. Non-string input is a coercion error.
func textFunc(name string, fn func(string) string) registry.Function {
	return registry.FunctionFunc(func(_ context.Context, in any) (any, error) {
		s, ok := in.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects a string, got %T", types.ErrCoercionFailed, name, in)
		}
		return fn(s), nil
	})
}

// mapFunc lifts an in-place object edit. The input is copied first; plain Go
// maps are accepted and converted.
func mapFunc(name string, edit func(*document.Object)) registry.Function {
	return registry.FunctionFunc(func(_ context.Context, in any) (any, error) {
		var out *document.Object
		switch t := in.(type) {
		case *document.Object:
			out = document.DeepCopy(t).(*document.Object)
		case map[string]any:
			out = document.Normalize(t).(*document.Object)
		default:
			return nil, fmt.Errorf("%w: %s expects an object, got %T", types.ErrCoercionFailed, name, in)
		}
		edit(out)
		return out, nil
	})
}
