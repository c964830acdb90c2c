package devices

import (
	"fmt"
	"math"

	"github.com/homesim/homesim/sim"
)

const batteryStep = 5 // seconds

// BatteryType is a storage unit whose power follows its setpoint at a limited rate.
// Capacities are in kWh and kW; Pset < 0 charges.
var BatteryType = &sim.EntityType{
	Name: "Battery",
	Schema: sim.Schema{
		Params: []string{
			"rated_capacity", "rated_discharge_capacity", "rated_charge_capacity",
			"initial_charge_rel", "charge_change_rate",
		},
		Inputs: []sim.AttrSpec{sim.FloatAttr("Pset")},
		Outputs: []sim.AttrSpec{
			sim.FloatAttr("P"),
			sim.FloatAttr("SoC"),
			sim.FloatAttr("relSoC"),
		},
	},
	StepSize: batteryStep,
	New:      newBattery,
}

// Battery is the state of one Battery entity.
type Battery struct {
	capacity, maxDischarge, maxCharge float64
	rate                              float64
	dt                                float64 // hours per step

	pset, p, soc float64
}

func newBattery(_ string, p sim.Params, _ sim.Env) (sim.Model, error) {
	b := &Battery{dt: float64(batteryStep) / 3600}
	var rel float64
	if err := floatParams(p, []floatParam{
		{"rated_capacity", 10, &b.capacity},
		{"rated_discharge_capacity", 5, &b.maxDischarge},
		{"rated_charge_capacity", 5, &b.maxCharge},
		{"initial_charge_rel", 0.5, &rel},
		{"charge_change_rate", 0.9, &b.rate},
	}); err != nil {
		return nil, err
	}
	if b.capacity <= 0 {
		return nil, fmt.Errorf("rated_capacity must be > 0, got %v", b.capacity)
	}
	if rel < 0 || rel > 1 {
		return nil, fmt.Errorf("initial_charge_rel must be in [0, 1], got %v", rel)
	}
	if b.rate <= 0 || b.rate > 1 {
		return nil, fmt.Errorf("charge_change_rate must be in (0, 1], got %v", b.rate)
	}
	b.soc = rel * b.capacity
	return b, nil
}

// Step implements sim.Model. The delivered energy never takes the charge outside [0, capacity].
func (b *Battery) Step(_ int64, in sim.Inputs) error {
	if v, ok := in.Float("Pset"); ok {
		b.pset = v
	}
	p := b.p + b.rate*(b.pset-b.p)
	p = clamp(p, -b.maxCharge, b.maxDischarge)
	switch {
	case p > 0:
		p = math.Min(p, b.soc/b.dt)
	case p < 0:
		p = math.Max(p, -(b.capacity-b.soc)/b.dt)
	}
	b.p = p
	b.soc = clamp(b.soc-p*b.dt, 0, b.capacity)
	return nil
}

// Get implements sim.Model.
func (b *Battery) Get(attr string) (sim.Value, error) {
	switch attr {
	case "P":
		return sim.Float(b.p), nil
	case "SoC":
		return sim.Float(b.soc), nil
	case "relSoC":
		return sim.Float(b.soc / b.capacity), nil
	}
	return sim.Value{}, fmt.Errorf("no attribute %q", attr)
}
