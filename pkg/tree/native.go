package tree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
)

// FromNative converts plain Go data (maps with string keys, slices) into a
// tree. Map keys are inserted in sorted order. Existing *Object and *Array
// values are kept as they are.
func FromNative(v any) any {
	switch c := v.(type) {
	case nil:
		return nil
	case *Object, *Array:
		return c
	case map[string]any:
		obj := NewObject()
		keys := make([]string, 0, len(c))
		for k := range c {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			obj.EnsureSlot(k).value = FromNative(c[k])
		}
		return obj
	case []any:
		vals := make([]any, len(c))
		for i, item := range c {
			vals[i] = FromNative(item)
		}
		return NewArray(vals...)
	case json.Number:
		return fromNumber(c)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		native := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			native[iter.Key().String()] = iter.Value().Interface()
		}
		return FromNative(native)
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		vals := make([]any, rv.Len())
		for i := range vals {
			vals[i] = rv.Index(i).Interface()
		}
		return FromNative(vals)
	}
	return v
}

// ToNative converts a tree back into plain Go data: *Object becomes
// map[string]any and *Array becomes []any. Reads bypass traps.
func ToNative(v any) any {
	switch c := v.(type) {
	case *Object:
		if c == nil {
			return nil
		}
		out := make(map[string]any, c.Len())
		c.Range(func(key string, s *Slot) bool {
			out[key] = ToNative(s.value)
			return true
		})
		return out
	case *Array:
		if c == nil {
			return nil
		}
		vals := c.Values()
		for i, item := range vals {
			vals[i] = ToNative(item)
		}
		return vals
	default:
		return v
	}
}

// MarshalJSON encodes the object with its keys in insertion order.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(o.slots[key].value)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON replaces the object's properties with the decoded ones,
// keeping document order. Whole numbers decode to int, others to float64.
func (o *Object) UnmarshalJSON(data []byte) error {
	v, err := decodeJSON(data)
	if err != nil {
		return err
	}
	decoded, ok := v.(*Object)
	if !ok {
		return fmt.Errorf("tree: expected a JSON object, got %s", KindOf(v))
	}
	o.keys = decoded.keys
	o.slots = decoded.slots
	return nil
}

// MarshalJSON encodes the raw values of the array.
func (a *Array) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Values())
}

// UnmarshalJSON replaces the array's items with the decoded ones.
func (a *Array) UnmarshalJSON(data []byte) error {
	v, err := decodeJSON(data)
	if err != nil {
		return err
	}
	decoded, ok := v.(*Array)
	if !ok {
		return fmt.Errorf("tree: expected a JSON array, got %s", KindOf(v))
	}
	a.rewrite(decoded.Values())
	return nil
}

// DecodeJSON parses any JSON document into a tree value.
func DecodeJSON(data []byte) (any, error) {
	return decodeJSON(data)
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, fmt.Errorf("tree: decode: %w", err)
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected key token %v", keyTok)
				}
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				obj.EnsureSlot(key).value = v
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			var vals []any
			for dec.More() {
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				vals = append(vals, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return NewArray(vals...), nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	case json.Number:
		return fromNumber(t), nil
	default:
		return t, nil
	}
}

func fromNumber(n json.Number) any {
	if i, err := n.Int64(); err == nil && i >= math.MinInt && i <= math.MaxInt {
		return int(i)
	}
	f, err := n.Float64()
	if err != nil {
		return n.String()
	}
	return f
}
