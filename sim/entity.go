package sim

import (
	"fmt"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/homesim/homesim/sim/trace"
)

// Model is the private state and behaviour of one simulated unit.
// Step is the only method allowed to mutate state.
type Model interface {
	// Step advances the model to now using the aggregated inputs.
	Step(now int64, in Inputs) error
	// Get reports the current value of a declared output attribute.
	Get(attr string) (Value, error)
}

// Env carries what a model may use at construction. Nothing here is global.
type Env struct {
	// RNG is seeded from the scenario seed and the entity id.
	RNG *rand.Rand
	// Trace is nil unless decision tracing is enabled.
	Trace *trace.SimulationTrace
}

// EntityType describes one kind of entity: its schema, fixed step interval and constructor.
type EntityType struct {
	Name     string
	Schema   Schema
	StepSize int64
	New      func(id string, p Params, env Env) (Model, error)
}

// Handle is the dense arena index of an entity.
type Handle int

// Entity is one instance in the arena.
type Entity struct {
	Handle  Handle
	ID      string
	Type    *EntityType
	Model   Model
	NextDue int64
	// Steps counts completed steps.
	Steps int
}

// Step validates the inputs against the schema, steps the model and returns the next due time.
func (e *Entity) Step(now int64, in map[string]map[string]Value) (int64, error) {
	for attr := range in {
		if _, ok := e.Type.Schema.Input(attr); !ok {
			return 0, &AttributeError{Entity: e.ID, Attr: attr, Role: "input"}
		}
	}
	if err := e.Model.Step(now, Inputs{attrs: in, schema: &e.Type.Schema}); err != nil {
		return 0, err
	}
	e.NextDue = now + e.Type.StepSize
	e.Steps++
	return e.NextDue, nil
}

// Get returns one declared output of the entity.
func (e *Entity) Get(attr string) (Value, error) {
	if _, ok := e.Type.Schema.Output(attr); !ok {
		return Value{}, &AttributeError{Entity: e.ID, Attr: attr, Role: "output"}
	}
	v, err := e.Model.Get(attr)
	if err != nil {
		return Value{}, fmt.Errorf("entity %s output %q: %w", e.ID, attr, err)
	}
	return v, nil
}

// InputBundle is entity id → attribute → source id → value.
type InputBundle map[string]map[string]map[string]Value

// Inputs is the per-entity view of an InputBundle handed to Model.Step.
// Fan-in is resolved here, once, using the destination schema's aggregation.
type Inputs struct {
	attrs  map[string]map[string]Value
	schema *Schema
}

// NewInputs builds Inputs outside a World, mainly for tests of individual models.
func NewInputs(s *Schema, attrs map[string]map[string]Value) Inputs {
	return Inputs{attrs: attrs, schema: s}
}

// Has reports whether at least one source delivered attr this step.
func (in Inputs) Has(attr string) bool {
	return len(in.attrs[attr]) > 0
}

// Sources returns the raw per-source values of attr.
func (in Inputs) Sources(attr string) map[string]Value {
	return in.attrs[attr]
}

// Float aggregates attr as a number. ok is false when nothing was delivered.
func (in Inputs) Float(attr string) (float64, bool) {
	srcs := in.attrs[attr]
	if len(srcs) == 0 {
		return 0, false
	}
	ids := make([]string, 0, len(srcs))
	for id := range srcs {
		ids = append(ids, id)
	}
	// sorted so that float summation order is reproducible
	sort.Strings(ids)
	xs := make([]float64, len(ids))
	for i, id := range ids {
		xs[i] = srcs[id].Float()
	}
	agg := AggMean
	if in.schema != nil {
		if spec, ok := in.schema.Input(attr); ok {
			agg = spec.Agg
		}
	}
	switch agg {
	case AggSum:
		return floats.Sum(xs), true
	case AggLast:
		return xs[len(xs)-1], true
	default:
		return stat.Mean(xs, nil), true
	}
}

// Bool aggregates attr as a boolean: the aggregated number read as a Value.
func (in Inputs) Bool(attr string) (bool, bool) {
	f, ok := in.Float(attr)
	if !ok {
		return false, false
	}
	return Float(f).Bool(), true
}
