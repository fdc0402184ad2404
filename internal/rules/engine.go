package rules

import (
	"context"

	"github.com/solatis/jsonforge/internal/components"
	"github.com/solatis/jsonforge/internal/document"
	"github.com/solatis/jsonforge/internal/pipeline"
	"github.com/solatis/jsonforge/internal/registry"
	"github.com/solatis/jsonforge/internal/types"
)

// NewRegistries builds registries holding every built-in component and rule.
func NewRegistries(deps components.Deps, opts ...registry.Option) (*registry.Registries, error) {
	reg := registry.New(opts...)
	if err := components.Register(reg, deps); err != nil {
		return nil, err
	}
	if err := Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// Engine is a compiled rule list ready to transform documents.
// It is safe for concurrent use: every call owns its document.
type Engine struct {
	reg      *registry.Registries
	pipeline *pipeline.Pipeline
}

// NewEngine compiles specs against reg.
func NewEngine(reg *registry.Registries, specs []types.RuleSpec, opts ...pipeline.Option) (*Engine, error) {
	p, err := pipeline.Compile(reg, specs, opts...)
	if err != nil {
		return nil, err
	}
	return &Engine{reg: reg, pipeline: p}, nil
}

// Rules returns the compiled rules in order.
func (e *Engine) Rules() []registry.Rule { return e.pipeline.Rules() }

// Run transforms doc in place.
func (e *Engine) Run(ctx context.Context, doc *document.Document) (pipeline.Result, error) {
	return e.pipeline.Run(ctx, doc)
}

// Transform parses input, runs the pipeline and serializes the result with
// the registries' mapper. No output is returned when the run fails.
func (e *Engine) Transform(ctx context.Context, input []byte) ([]byte, pipeline.Result, error) {
	doc, err := document.Parse(input)
	if err != nil {
		return nil, pipeline.Result{}, err
	}
	res, err := e.pipeline.Run(ctx, doc)
	if err != nil {
		return nil, res, err
	}
	out, err := e.reg.Mapper().Serialize(doc.Root())
	if err != nil {
		return nil, res, err
	}
	return out, res, nil
}
