package schema

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/bindery/pkg/domain"
	"gopkg.in/yaml.v3"
)

// ParseMap builds a Schema from a decoded document. Each value is a type
// expression, a mapping for a Shape or a one-item sequence for an array.
func ParseMap(raw map[string]any) (Schema, error) {
	s := make(Schema, len(raw))
	for id, v := range raw {
		if !domain.Valid(id) {
			return nil, fmt.Errorf("invalid identifier %q", id)
		}
		t, err := parseValue(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", id, err)
		}
		s[id] = t
	}
	return s, nil
}

func parseValue(v any) (Type, error) {
	switch c := v.(type) {
	case string:
		return Parse(c)
	case map[string]any:
		fields, err := ParseMap(c)
		if err != nil {
			return nil, err
		}
		return Shape(fields), nil
	case []any:
		if len(c) != 1 {
			return nil, fmt.Errorf("array type needs exactly one item type, got %d", len(c))
		}
		item, err := parseValue(c[0])
		if err != nil {
			return nil, err
		}
		return ArrayOf(item), nil
	}
	return nil, fmt.Errorf("expected a type expression, got %T", v)
}

// encode is the inverse of ParseMap for the types Parse knows.
func (s Schema) encode() (map[string]any, error) {
	out := make(map[string]any, len(s))
	for id, t := range s {
		v, err := encodeType(t)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", id, err)
		}
		out[id] = v
	}
	return out, nil
}

func encodeType(t Type) (any, error) {
	switch c := t.(type) {
	case nil:
		return nil, fmt.Errorf("nil type")
	case shape:
		return c.fields.encode()
	case array:
		item, err := encodeType(c.item)
		if err != nil {
			return nil, err
		}
		if name, ok := item.(string); ok {
			return "[" + name + "]", nil
		}
		return []any{item}, nil
	case optional:
		if _, ok := c.inner.(shape); ok {
			return nil, fmt.Errorf("optional shapes have no document form")
		}
	}
	return t.Name(), nil
}

func (s Schema) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	raw, err := s.encode()
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	return json.Marshal(raw)
}

func (s *Schema) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	if raw == nil {
		*s = nil
		return nil
	}
	parsed, err := ParseMap(raw)
	if err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	*s = parsed
	return nil
}

func (s Schema) MarshalYAML() (any, error) {
	if s == nil {
		return nil, nil
	}
	raw, err := s.encode()
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	return raw, nil
}

func (s *Schema) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	parsed, err := ParseMap(raw)
	if err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	*s = parsed
	return nil
}
