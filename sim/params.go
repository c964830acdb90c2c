package sim

import (
	"fmt"
	"sort"
)

// Params holds the construction parameters of one entity, as decoded from a scenario.
// Numbers arrive as int or float64 depending on the decoder; accessors normalise them.
type Params map[string]any

// Float returns a numeric parameter or def when it is absent.
func (p Params) Float(name string, def float64) (float64, error) {
	raw, ok := p[name]
	if !ok {
		return def, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("parameter %q must be a number, got %T", name, raw)
	}
}

// Int returns an integer parameter or def when it is absent.
func (p Params) Int(name string, def int64) (int64, error) {
	raw, ok := p[name]
	if !ok {
		return def, nil
	}
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != float64(int64(v)) {
			return 0, fmt.Errorf("parameter %q must be an integer, got %v", name, v)
		}
		return int64(v), nil
	default:
		return 0, fmt.Errorf("parameter %q must be an integer, got %T", name, raw)
	}
}

// Bool returns a boolean parameter or def when it is absent.
func (p Params) Bool(name string, def bool) (bool, error) {
	raw, ok := p[name]
	if !ok {
		return def, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("parameter %q must be a boolean, got %T", name, raw)
	}
	return b, nil
}

// String returns a string parameter or def when it is absent.
func (p Params) String(name, def string) (string, error) {
	raw, ok := p[name]
	if !ok {
		return def, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("parameter %q must be a string, got %T", name, raw)
	}
	return s, nil
}

// Floats returns a list-of-numbers parameter, or nil when it is absent.
func (p Params) Floats(name string) ([]float64, error) {
	raw, ok := p[name]
	if !ok {
		return nil, nil
	}
	switch v := raw.(type) {
	case []float64:
		return v, nil
	case []any:
		out := make([]float64, len(v))
		for i, item := range v {
			f, err := Params{name: item}.Float(name, 0)
			if err != nil {
				return nil, fmt.Errorf("parameter %q[%d]: %w", name, i, err)
			}
			out[i] = f
		}
		return out, nil
	default:
		return nil, fmt.Errorf("parameter %q must be a list of numbers, got %T", name, raw)
	}
}

// check rejects parameters the schema does not declare.
func (p Params) check(s *Schema) error {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !s.HasParam(name) {
			return fmt.Errorf("%w %q", ErrUnknownParam, name)
		}
	}
	return nil
}
