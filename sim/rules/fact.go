package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/homesim/homesim/sim"
)

// FactKind separates sensed inputs, derived state and pending outputs in working memory.
type FactKind uint8

const (
	KindInput FactKind = iota
	KindState
	KindOutput
)

func (k FactKind) String() string {
	switch k {
	case KindInput:
		return "Input"
	case KindState:
		return "State"
	case KindOutput:
		return "Output"
	default:
		return fmt.Sprintf("FactKind(%d)", uint8(k))
	}
}

// Slots is the key → value payload used to declare a fact.
type Slots map[string]sim.Value

// Fact is an immutable entry of working memory. IDs grow with declaration order
// within a pass, so a higher ID means a more recent fact.
type Fact struct {
	ID    int
	Kind  FactKind
	Clock int64
	slots Slots
}

// Get returns the value stored under key.
func (f *Fact) Get(key string) (sim.Value, bool) {
	v, ok := f.slots[key]
	return v, ok
}

// Keys lists the fact's keys in sorted order.
func (f *Fact) Keys() []string {
	keys := make([]string, 0, len(f.slots))
	for k := range f.slots {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders the fact as Kind(k1=v1, k2=v2) with keys sorted.
func (f *Fact) String() string {
	return render(f.Kind, f.slots)
}

func render(kind FactKind, slots Slots) string {
	keys := make([]string, 0, len(slots))
	for k := range slots {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + slots[k].String()
	}
	return kind.String() + "(" + strings.Join(parts, ", ") + ")"
}

// sameAs reports whether f carries exactly kind and slots.
func (f *Fact) sameAs(kind FactKind, slots Slots) bool {
	if f.Kind != kind || len(f.slots) != len(slots) {
		return false
	}
	for k, v := range slots {
		have, ok := f.slots[k]
		if !ok || !have.Equal(v) {
			return false
		}
	}
	return true
}

// Bindings maps pattern keys to the values matched for them.
type Bindings map[string]sim.Value

// Float returns the numeric value bound to key (0 when unbound).
func (b Bindings) Float(key string) float64 { return b[key].Float() }

// Bool returns the boolean value bound to key (false when unbound).
func (b Bindings) Bool(key string) bool { return b[key].Bool() }
