// internal/rules/validate.go
package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/solatis/jsonforge/internal/document"
	"github.com/solatis/jsonforge/internal/registry"
	"github.com/solatis/jsonforge/internal/types"
)

/*
 * validate checks the nodes matched by its path against a JSON schema.
 *
 * The schema comes from a supplier resolved once at construction and is
 * decoded as an OpenAPI 3 schema object. Each node is checked with
 * VisitJSON collecting every violation. Two independent strategies then
 * decide what happens:
 *
 *   violation  annotate  append {path, message} objects under violationKey
 *                        (default "_violations") at the document root
 *              log       log each violation
 *              ignore    do nothing
 *   control    CONTINUE  keep running the pipeline
 *              STOP      end the pipeline, keeping the document
 *              ABORT     fail the whole transformation
 *
 * Control only applies when at least one violation was found. A schema that
 * does not decode or validate fails construction; a node that cannot be
 * mapped into plain JSON fails the application with an InstantiationError.
 */

// ViolationMode selects what validate does with violations.
type ViolationMode string

const (
	ViolationAnnotate ViolationMode = "annotate"
	ViolationLog      ViolationMode = "log"
	ViolationIgnore   ViolationMode = "ignore"
)

// Control selects how validate steers the pipeline after violations.
type Control string

const (
	ControlContinue Control = "CONTINUE"
	ControlStop     Control = "STOP"
	ControlAbort    Control = "ABORT"
)

// DefaultViolationKey is where annotate writes violations.
const DefaultViolationKey = "_violations"

// Violation is one schema violation.
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

var validateSettings = []registry.ParamSpec{
	registry.Embedded("schema", types.CategorySupplier),
	registry.Value("violation").Optional(),
	registry.Value("violationKey").Optional(),
	registry.Value("control").Optional(),
}

type validateRule struct {
	base
	schema       *openapi3.Schema
	mode         ViolationMode
	violationKey string
	control      Control
}

func newValidate(reg *registry.Registries, spec types.RuleSpec) (registry.Rule, error) {
	b, err := newBase(reg, spec)
	if err != nil {
		return nil, err
	}
	a, err := reg.Bind(spec, validateSettings)
	if err != nil {
		return nil, err
	}

	r := &validateRule{
		base:         b,
		mode:         ViolationMode(strings.ToLower(a.StringOr("violation", string(ViolationAnnotate)))),
		violationKey: a.StringOr("violationKey", DefaultViolationKey),
		control:      Control(strings.ToUpper(a.StringOr("control", string(ControlContinue)))),
	}
	switch r.mode {
	case ViolationAnnotate, ViolationLog, ViolationIgnore:
	default:
		return nil, &types.ConfigError{Category: types.CategoryRule, Component: spec.Name, Key: "violation",
			Err: fmt.Errorf("%w: unknown violation mode %q", types.ErrShapeMismatch, r.mode)}
	}
	switch r.control {
	case ControlContinue, ControlStop, ControlAbort:
	default:
		return nil, &types.ConfigError{Category: types.CategoryRule, Component: spec.Name, Key: "control",
			Err: fmt.Errorf("%w: unknown control %q", types.ErrShapeMismatch, r.control)}
	}

	r.schema, err = loadSchema(reg.Mapper(), a.Supplier("schema"))
	if err != nil {
		return nil, err
	}
	return r, nil
}

// loadSchema supplies, decodes and checks the schema.
func loadSchema(mapper document.Mapper, s registry.Supplier) (*openapi3.Schema, error) {
	raw, err := s.Supply(context.Background())
	if err != nil {
		return nil, fmt.Errorf("supply schema: %w", err)
	}
	tree, err := mapper.MapTo(raw, document.HintMap)
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	b, err := mapper.Serialize(tree)
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	var schema openapi3.Schema
	if err := json.Unmarshal(b, &schema); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	if err := schema.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &schema, nil
}

func (r *validateRule) Apply(_ context.Context, doc *document.Document) error {
	values := doc.Read(r.path)
	locations := doc.Locations(r.path)
	if len(values) == 0 {
		r.warn("path matched nothing, nothing validated")
		return nil
	}

	var violations []Violation
	for i, v := range values {
		plain, err := plainJSON(v)
		if err != nil {
			return &types.InstantiationError{Category: types.CategoryRule, Name: r.spec.Name, Err: err}
		}
		if err := r.schema.VisitJSON(plain, openapi3.MultiErrors()); err != nil {
			violations = collectViolations(err, locations[i], violations)
		}
	}
	if len(violations) == 0 {
		return nil
	}

	switch r.mode {
	case ViolationAnnotate:
		r.annotate(doc, violations)
	case ViolationLog:
		for _, v := range violations {
			r.warn("schema violation", "node", v.Path, "message", v.Message)
		}
	}

	switch r.control {
	case ControlStop:
		return types.ErrStopRuleProcessing
	case ControlAbort:
		return &types.AbortError{
			Rule:   r.spec.Name,
			Order:  r.spec.Order,
			Reason: fmt.Sprintf("%d schema violation(s), first at %s: %s", len(violations), violations[0].Path, violations[0].Message),
		}
	default:
		return nil
	}
}

// annotate appends violations to the list under violationKey at the root.
func (r *validateRule) annotate(doc *document.Document, violations []Violation) {
	root, ok := doc.Root().(*document.Object)
	if !ok {
		r.softFail("cannot annotate a non-object document", "violations", len(violations))
		return
	}
	existing, _ := root.Get(r.violationKey)
	list, _ := existing.([]any)
	for _, v := range violations {
		entry := document.NewObject()
		entry.Set("path", v.Path)
		entry.Set("message", v.Message)
		list = append(list, entry)
	}
	if _, err := doc.Put(document.Root, r.violationKey, list); err != nil {
		r.softFail("cannot annotate", "err", err)
	}
}

// plainJSON converts a node into the value shapes the schema visitor
// understands: float64 numbers instead of json.Number.
func plainJSON(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("map node: %w", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("map node: %w", err)
	}
	return out, nil
}

func collectViolations(err error, loc string, out []Violation) []Violation {
	switch e := err.(type) {
	case openapi3.MultiError:
		for _, inner := range e {
			out = collectViolations(inner, loc, out)
		}
	case *openapi3.SchemaError:
		msg := e.Reason
		if msg == "" {
			msg = e.Error()
		}
		out = append(out, Violation{Path: pointerPath(loc, e.JSONPointer()), Message: msg})
	default:
		out = append(out, Violation{Path: loc, Message: err.Error()})
	}
	return out
}

// pointerPath extends a node location with a schema error's JSON pointer.
func pointerPath(loc string, pointer []string) string {
	var sb strings.Builder
	sb.WriteString(loc)
	for _, seg := range pointer {
		if _, err := strconv.Atoi(seg); err == nil {
			sb.WriteString("[" + seg + "]")
			continue
		}
		sb.WriteString("['" + strings.ReplaceAll(seg, "'", `\'`) + "']")
	}
	return sb.String()
}
