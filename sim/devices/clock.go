package devices

import (
	"fmt"

	"github.com/homesim/homesim/sim"
)

// ClockType counts minutes: val advances by delta every step.
var ClockType = &sim.EntityType{
	Name: "Clock",
	Schema: sim.Schema{
		Params:  []string{"init_val"},
		Inputs:  []sim.AttrSpec{sim.SumAttr("delta")},
		Outputs: []sim.AttrSpec{sim.FloatAttr("val"), sim.FloatAttr("delta")},
	},
	StepSize: 60,
	New:      newClock,
}

// Clock is the state of one Clock entity.
type Clock struct {
	val, delta float64
}

func newClock(_ string, p sim.Params, _ sim.Env) (sim.Model, error) {
	start, err := p.Float("init_val", 0)
	if err != nil {
		return nil, err
	}
	return &Clock{val: start, delta: 1}, nil
}

// Step implements sim.Model. A connected delta replaces the increment from then on.
func (c *Clock) Step(_ int64, in sim.Inputs) error {
	if v, ok := in.Float("delta"); ok {
		c.delta = v
	}
	c.val += c.delta
	return nil
}

// Get implements sim.Model.
func (c *Clock) Get(attr string) (sim.Value, error) {
	switch attr {
	case "val":
		return sim.Float(c.val), nil
	case "delta":
		return sim.Float(c.delta), nil
	}
	return sim.Value{}, fmt.Errorf("no attribute %q", attr)
}
