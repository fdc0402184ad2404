// internal/registry/params.go
package registry

import (
	"strings"

	"github.com/solatis/jsonforge/internal/types"
)

/*
 * Parameter schemas.
 *
 * A component declares its formal parameters as a []ParamSpec literal next
 * to its factory. The binder reads the schema as data; there is no
 * reflection over factory signatures.
 *
 *   registry.Value("prefix")                           required scalar
 *   registry.Value("values").List()                    required string list
 *   registry.Map("entries").Optional()                 optional string map
 *   registry.Embedded("predicate", CategoryPredicate)  nested component
 *   registry.Value("key").From("field")                read from a different key
 *
 * UseRegistry and UseRuleSpec are reserved for the fixed rule factory
 * signature; see RuleDescriptor.
 */

// UseCase tells the binder how to extract a parameter.
type UseCase int

const (
	UseValue    UseCase = iota + 1 // string or list of strings
	UseMap                         // string map or list of string maps
	UseEmbedded                    // nested component resolved through a registry
	UseRegistry                    // the Registries facade (rules only)
	UseRuleSpec                    // the RuleSpec being resolved (rules only)
)

func (u UseCase) String() string {
	switch u {
	case UseValue:
		return "value"
	case UseMap:
		return "map"
	case UseEmbedded:
		return "embedded"
	case UseRegistry:
		return "registry"
	case UseRuleSpec:
		return "rule spec"
	default:
		return "unknown"
	}
}

// ParamSpec is one formal parameter of a component factory.
type ParamSpec struct {
	Name       string         // formal name, the key Args is read by
	Key        string         // explicit configuration key, overrides qualifiers and Name
	Use        UseCase        // extraction form
	Category   types.Category // target registry for UseEmbedded
	Nullable   bool           // missing key binds as absent
	Collection bool           // list form instead of singular
}

// Value declares a required scalar parameter.
func Value(name string) ParamSpec {
	return ParamSpec{Name: name, Use: UseValue}
}

// Map declares a required string map parameter.
func Map(name string) ParamSpec {
	return ParamSpec{Name: name, Use: UseMap}
}

// Embedded declares a required nested component of the given category.
func Embedded(name string, category types.Category) ParamSpec {
	return ParamSpec{Name: name, Use: UseEmbedded, Category: category}
}

// Optional marks the parameter nullable.
func (p ParamSpec) Optional() ParamSpec {
	p.Nullable = true
	return p
}

// List switches the parameter to its collection form.
func (p ParamSpec) List() ParamSpec {
	p.Collection = true
	return p
}

// From reads the parameter from key instead of its formal name.
func (p ParamSpec) From(key string) ParamSpec {
	p.Key = key
	return p
}

// String renders the parameter for component listings.
func (p ParamSpec) String() string {
	var b strings.Builder
	b.WriteString(p.Name)
	if p.Key != "" && p.Key != p.Name {
		b.WriteString(" (key " + p.Key + ")")
	}
	b.WriteString(": ")
	if p.Use == UseEmbedded {
		b.WriteString(string(p.Category))
	} else {
		b.WriteString(p.Use.String())
	}
	if p.Collection {
		b.WriteString(" list")
	}
	if p.Nullable {
		b.WriteString(", optional")
	}
	return b.String()
}

// ruleSignature is the only parameter list a rule descriptor may declare.
var ruleSignature = []ParamSpec{
	{Name: "registries", Use: UseRegistry},
	{Name: "spec", Use: UseRuleSpec},
}
