package sim

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Kind is the type tag of an attribute value.
type Kind uint8

const (
	// KindFloat is a numeric attribute.
	KindFloat Kind = iota
	// KindBool is a boolean attribute.
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is the tagged union exchanged between entities.
// The zero Value is the float 0.
type Value struct {
	kind Kind
	f    float64
	b    bool
}

// Float returns a numeric Value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind reports the value's type tag.
func (v Value) Kind() Kind { return v.kind }

// Float returns the numeric view of v. Booleans read as 0 or 1.
func (v Value) Float() float64 {
	if v.kind == KindBool {
		if v.b {
			return 1
		}
		return 0
	}
	return v.f
}

// Bool returns the boolean view of v. Numbers read as true when >= 0.5,
// which is what averaging several boolean sources produces for a majority.
func (v Value) Bool() bool {
	if v.kind == KindBool {
		return v.b
	}
	return v.f >= 0.5
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	if v.kind == KindBool {
		return v.b == o.b
	}
	return v.f == o.f
}

func (v Value) String() string {
	if v.kind == KindBool {
		return strconv.FormatBool(v.b)
	}
	return strconv.FormatFloat(v.f, 'g', -1, 64)
}

// MarshalJSON encodes v as a JSON number or boolean.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindBool {
		return json.Marshal(v.b)
	}
	return json.Marshal(v.f)
}

// UnmarshalJSON accepts a JSON number or boolean.
func (v *Value) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = Bool(b)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("value must be a number or boolean, got %s", string(data))
	}
	*v = Float(f)
	return nil
}

// UnmarshalYAML accepts a YAML scalar that is a number or boolean.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: value must be a scalar", node.Line)
	}
	switch node.Tag {
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		*v = Bool(b)
		return nil
	case "!!int", "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return err
		}
		*v = Float(f)
		return nil
	}
	return fmt.Errorf("line %d: value must be a number or boolean, got %q", node.Line, node.Value)
}
