package graph

import (
	"encoding/json"
	"fmt"
)

// ValueKind identifies the variant held by a Value.
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindBool
	KindMap
)

// Value is a closed sum type for node and edge property values. The open
// property maps of the domain stay flexible without collapsing into untyped
// interface{} plumbing: a property is a string, a number, a bool, or a
// nested map of Values.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	m    map[string]Value
}

// Constructors for each variant.

func StringValue(s string) Value  { return Value{kind: KindString, str: s} }
func NumberValue(n float64) Value { return Value{kind: KindNumber, num: n} }
func BoolValue(b bool) Value      { return Value{kind: KindBool, b: b} }

func MapValue(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: KindMap, m: m}
}

// Kind returns the variant held by the value.
func (v Value) Kind() ValueKind { return v.kind }

// AsString returns the string variant, reporting whether the value holds one.
func (v Value) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

// AsNumber returns the number variant, reporting whether the value holds one.
func (v Value) AsNumber() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// AsBool returns the bool variant, reporting whether the value holds one.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsMap returns the map variant, reporting whether the value holds one.
func (v Value) AsMap() (map[string]Value, bool) {
	return v.m, v.kind == KindMap
}

// Interface converts the value to its plain Go representation. Used at the
// persistence boundary, which marshals plain maps.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, nested := range v.m {
			out[k] = nested.Interface()
		}
		return out
	default:
		return nil
	}
}

// ValueFromInterface converts a plain Go value into a Value. Integers
// surface as numbers; unsupported variants are rejected.
func ValueFromInterface(raw any) (Value, error) {
	switch t := raw.(type) {
	case string:
		return StringValue(t), nil
	case float64:
		return NumberValue(t), nil
	case float32:
		return NumberValue(float64(t)), nil
	case int:
		return NumberValue(float64(t)), nil
	case int64:
		return NumberValue(float64(t)), nil
	case bool:
		return BoolValue(t), nil
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, nested := range t {
			nv, err := ValueFromInterface(nested)
			if err != nil {
				return Value{}, err
			}
			m[k] = nv
		}
		return MapValue(m), nil
	default:
		return Value{}, fmt.Errorf("unsupported property value type %T", raw)
	}
}

// MarshalJSON encodes the value as its plain representation.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes any of the supported variants.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ValueFromInterface(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Properties is a string-keyed map of typed values, used for both the
// domain-facing `properties` and system-facing `metadata` maps.
type Properties map[string]Value

// String returns the string property at key, or def when absent or of
// another kind.
func (p Properties) String(key, def string) string {
	if p == nil {
		return def
	}
	if s, ok := p[key].AsString(); ok {
		return s
	}
	return def
}

// Number returns the numeric property at key, or def when absent or of
// another kind.
func (p Properties) Number(key string, def float64) float64 {
	if p == nil {
		return def
	}
	if n, ok := p[key].AsNumber(); ok {
		return n
	}
	return def
}

// Bool returns the boolean property at key, or def when absent or of
// another kind.
func (p Properties) Bool(key string, def bool) bool {
	if p == nil {
		return def
	}
	if b, ok := p[key].AsBool(); ok {
		return b
	}
	return def
}

// Clone returns a deep copy of the property map.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		if m, ok := v.AsMap(); ok {
			v = MapValue(Properties(m).Clone())
		}
		out[k] = v
	}
	return out
}

// Interface converts the map to its plain Go representation.
func (p Properties) Interface() map[string]any {
	if p == nil {
		return nil
	}
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v.Interface()
	}
	return out
}

// PropertiesFromInterface converts a plain map into Properties.
func PropertiesFromInterface(raw map[string]any) (Properties, error) {
	if raw == nil {
		return nil, nil
	}
	out := make(Properties, len(raw))
	for k, v := range raw {
		pv, err := ValueFromInterface(v)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		out[k] = pv
	}
	return out, nil
}
