// Package rulesfile loads rule lists from YAML or JSON files.
//
// A file holds either a top-level list of rule entries or an object with a
// "rules" key. Each entry is {name, path, params}; order is positional.
// JSON files keep numeric literals as written; YAML scalars are converted
// to text by the parameter parser.
package rulesfile

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/solatis/jsonforge/internal/types"
)

// Format selects the decoder.
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
)

// FormatFor picks the format from a file extension. Anything other than
// .json is read as YAML.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

type entry struct {
	Name   string         `mapstructure:"name"`
	Path   string         `mapstructure:"path"`
	Params map[string]any `mapstructure:"params"`
}

// Load reads and parses the rule file at path.
func Load(path string) ([]types.RuleSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	specs, err := Parse(data, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return specs, nil
}

// Parse decodes a rule list.
func Parse(data []byte, format Format) ([]types.RuleSpec, error) {
	var doc any
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to parse rules JSON: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse rules YAML: %w", err)
		}
	}

	items, err := ruleItems(doc)
	if err != nil {
		return nil, err
	}

	specs := make([]types.RuleSpec, 0, len(items))
	for i, item := range items {
		spec, err := decodeEntry(item)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		specs = append(specs, spec)
	}
	return types.AssignOrder(specs), nil
}

// ruleItems finds the entry list: the document itself or its "rules" key.
func ruleItems(doc any) ([]any, error) {
	switch t := doc.(type) {
	case nil:
		return nil, nil
	case []any:
		return t, nil
	case map[string]any:
		rules, ok := t["rules"]
		if !ok {
			return nil, fmt.Errorf("%w: rules file object has no %q key", types.ErrMissingKey, "rules")
		}
		if rules == nil {
			return nil, nil
		}
		list, ok := rules.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: %q must be a list, got %T", types.ErrShapeMismatch, "rules", rules)
		}
		return list, nil
	default:
		return nil, fmt.Errorf("%w: rules file must hold a list or an object, got %T", types.ErrShapeMismatch, doc)
	}
}

func decodeEntry(item any) (types.RuleSpec, error) {
	var e entry
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &e,
		ErrorUnused: true,
	})
	if err != nil {
		return types.RuleSpec{}, err
	}
	if err := dec.Decode(item); err != nil {
		return types.RuleSpec{}, fmt.Errorf("%w: %v", types.ErrShapeMismatch, err)
	}
	if e.Name == "" {
		return types.RuleSpec{}, types.ErrNoName
	}

	params, err := types.ParseRawParams(e.Params)
	if err != nil {
		return types.RuleSpec{}, fmt.Errorf("rule %q params: %w", e.Name, err)
	}
	return types.RuleSpec{Name: e.Name, Path: e.Path, Params: params}, nil
}

// Digest fingerprints a rule list so journal entries can be tied to the
// rules that produced them. Equal lists yield equal digests regardless of
// parameter map ordering.
func Digest(specs []types.RuleSpec) string {
	h := sha256.New()
	for _, s := range specs {
		fmt.Fprintf(h, "%d\x00%s\x00%s\x00", s.Order, s.Name, s.Path)
		fmt.Fprintf(h, "%s\x00", types.Map(s.Params).String())
	}
	return fmt.Sprintf("%x", h.Sum(nil))[:16]
}
