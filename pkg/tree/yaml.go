package tree

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// MarshalYAML encodes the object as a mapping with keys in insertion order.
func (o *Object) MarshalYAML() (any, error) {
	return toYAMLNode(o)
}

// UnmarshalYAML replaces the object's properties with the decoded mapping,
// keeping document order.
func (o *Object) UnmarshalYAML(node *yaml.Node) error {
	v, err := fromYAMLNode(node)
	if err != nil {
		return err
	}
	decoded, ok := v.(*Object)
	if !ok {
		return fmt.Errorf("tree: expected a YAML mapping, got %s", KindOf(v))
	}
	o.keys = decoded.keys
	o.slots = decoded.slots
	return nil
}

// MarshalYAML encodes the raw values of the array as a sequence.
func (a *Array) MarshalYAML() (any, error) {
	return toYAMLNode(a)
}

// UnmarshalYAML replaces the array's items with the decoded sequence.
func (a *Array) UnmarshalYAML(node *yaml.Node) error {
	v, err := fromYAMLNode(node)
	if err != nil {
		return err
	}
	decoded, ok := v.(*Array)
	if !ok {
		return fmt.Errorf("tree: expected a YAML sequence, got %s", KindOf(v))
	}
	a.rewrite(decoded.Values())
	return nil
}

func toYAMLNode(v any) (*yaml.Node, error) {
	switch c := v.(type) {
	case *Object:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, key := range c.keys {
			child, err := toYAMLNode(c.slots[key].value)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", key, err)
			}
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
				child,
			)
		}
		return node, nil
	case *Array:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for i, item := range c.Values() {
			child, err := toYAMLNode(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			node.Content = append(node.Content, child)
		}
		return node, nil
	}
	node := &yaml.Node{}
	if err := node.Encode(v); err != nil {
		return nil, err
	}
	return node, nil
}

func fromYAMLNode(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return fromYAMLNode(node.Content[0])
	case yaml.AliasNode:
		return fromYAMLNode(node.Alias)
	case yaml.MappingNode:
		obj := NewObject()
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			v, err := fromYAMLNode(node.Content[i+1])
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", key, err)
			}
			obj.EnsureSlot(key).value = v
		}
		return obj, nil
	case yaml.SequenceNode:
		vals := make([]any, 0, len(node.Content))
		for _, child := range node.Content {
			v, err := fromYAMLNode(child)
			if err != nil {
				return nil, err
			}
			vals = append(vals, v)
		}
		return NewArray(vals...), nil
	}
	var v any
	if err := node.Decode(&v); err != nil {
		return nil, fmt.Errorf("tree: decode yaml scalar: %w", err)
	}
	return v, nil
}
