package document

import (
	"encoding/json"
	"fmt"
)

// Hint names the shape MapTo should produce.
type Hint int

const (
	HintAny  Hint = iota // any JSON value
	HintMap              // an object
	HintList             // an array
)

func (h Hint) String() string {
	switch h {
	case HintMap:
		return "object"
	case HintList:
		return "array"
	default:
		return "value"
	}
}

// Mapper converts between text, Go values and the JSON model.
type Mapper interface {
	// Parse decodes JSON text.
	Parse(data []byte) (any, error)
	// MapTo converts a supplied value into the JSON model. Strings and byte
	// slices are parsed as JSON text.
	MapTo(value any, hint Hint) (any, error)
	// Serialize encodes a JSON-model tree.
	Serialize(tree any) ([]byte, error)
}

// JSONMapper is the encoding/json backed Mapper. Numbers are kept as
// json.Number and objects as *Object, so literals and member order are
// preserved.
type JSONMapper struct {
	Indent string
}

// Parse implements Mapper.
func (m JSONMapper) Parse(data []byte) (any, error) {
	return decode(data)
}

// MapTo implements Mapper.
func (m JSONMapper) MapTo(value any, hint Hint) (any, error) {
	var out any
	switch t := value.(type) {
	case string:
		v, err := decode([]byte(t))
		if err != nil {
			return nil, err
		}
		out = v
	case []byte:
		v, err := decode(t)
		if err != nil {
			return nil, err
		}
		out = v
	case json.RawMessage:
		v, err := decode(t)
		if err != nil {
			return nil, err
		}
		out = v
	default:
		out = Normalize(DeepCopy(value))
	}

	switch hint {
	case HintMap:
		if _, ok := out.(*Object); !ok {
			return nil, fmt.Errorf("map to %s: got %T", hint, out)
		}
	case HintList:
		if _, ok := out.([]any); !ok {
			return nil, fmt.Errorf("map to %s: got %T", hint, out)
		}
	}
	return out, nil
}

// Serialize implements Mapper.
func (m JSONMapper) Serialize(tree any) ([]byte, error) {
	return encode(tree, m.Indent)
}
