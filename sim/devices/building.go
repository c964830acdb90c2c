// Package devices holds the physical and appliance models a home scenario is built from.
//
// Power follows the grid convention throughout: production is positive, consumption negative.
package devices

import (
	"fmt"

	"github.com/homesim/homesim/sim"
)

const buildingStep = 5 // seconds

// BuildingType is a single-zone thermal envelope with an electric heater.
// Coefficients are in °C per hour: heat_coeff at full heater power, solar_heat_coeff at full sun,
// insulation_coeff per degree of indoor/outdoor difference.
var BuildingType = &sim.EntityType{
	Name: "Building",
	Schema: sim.Schema{
		Params: []string{"heat_coeff", "solar_heat_coeff", "insulation_coeff", "init_T_int", "init_T_amb", "heater_power"},
		Inputs: []sim.AttrSpec{
			sim.FloatAttr("x"),
			sim.FloatAttr("Pset"),
			sim.FloatAttr("T_amb"),
			sim.FloatAttr("zs"),
		},
		Outputs: []sim.AttrSpec{
			sim.FloatAttr("P"),
			sim.FloatAttr("x"),
			sim.FloatAttr("T_int"),
			sim.FloatAttr("zs"),
			sim.FloatAttr("T_amb"),
		},
	},
	StepSize: buildingStep,
	New:      newBuilding,
}

// Building is the state of one Building entity.
type Building struct {
	heatCoeff, solarCoeff, insulation float64
	heaterPower                       float64
	dt                                float64 // hours per step

	x, tInt, tAmb, zs float64
}

func newBuilding(_ string, p sim.Params, _ sim.Env) (sim.Model, error) {
	b := &Building{dt: float64(buildingStep) / 3600}
	if err := floatParams(p, []floatParam{
		{"heat_coeff", 9, &b.heatCoeff},
		{"solar_heat_coeff", 6, &b.solarCoeff},
		{"insulation_coeff", 0.2, &b.insulation},
		{"init_T_int", 12, &b.tInt},
		{"init_T_amb", 12, &b.tAmb},
		{"heater_power", 5, &b.heaterPower},
	}); err != nil {
		return nil, err
	}
	if b.heaterPower <= 0 {
		return nil, fmt.Errorf("heater_power must be > 0, got %v", b.heaterPower)
	}
	return b, nil
}

// Step implements sim.Model. Pset takes precedence over x when both are connected.
func (b *Building) Step(_ int64, in sim.Inputs) error {
	if v, ok := in.Float("x"); ok {
		b.x = v
	}
	if v, ok := in.Float("Pset"); ok {
		b.x = -v / b.heaterPower
	}
	b.x = clamp(b.x, 0, 1)
	if v, ok := in.Float("T_amb"); ok {
		b.tAmb = v
	}
	if v, ok := in.Float("zs"); ok {
		b.zs = v
	}
	b.tInt += b.dt * (b.heatCoeff*b.x + b.solarCoeff*b.zs - b.insulation*(b.tInt-b.tAmb))
	return nil
}

// Get implements sim.Model.
func (b *Building) Get(attr string) (sim.Value, error) {
	switch attr {
	case "P":
		return sim.Float(-b.x * b.heaterPower), nil
	case "x":
		return sim.Float(b.x), nil
	case "T_int":
		return sim.Float(b.tInt), nil
	case "zs":
		return sim.Float(b.zs), nil
	case "T_amb":
		return sim.Float(b.tAmb), nil
	}
	return sim.Value{}, fmt.Errorf("no attribute %q", attr)
}
