package devices

import (
	"fmt"

	"github.com/homesim/homesim/sim"
)

// GridType is the connection point to the public grid. It balances every power flow
// connected to P: Pgrid > 0 is import.
var GridType = &sim.EntityType{
	Name: "Grid",
	Schema: sim.Schema{
		Params:  []string{"V0", "droop"},
		Inputs:  []sim.AttrSpec{sim.SumAttr("P")},
		Outputs: []sim.AttrSpec{sim.FloatAttr("Pgrid"), sim.FloatAttr("V")},
	},
	StepSize: 5,
	New:      newGrid,
}

// Grid is the state of one Grid entity.
type Grid struct {
	v0, droop float64
	pGrid     float64
}

func newGrid(_ string, p sim.Params, _ sim.Env) (sim.Model, error) {
	g := &Grid{}
	if err := floatParams(p, []floatParam{
		{"V0", 230, &g.v0},
		{"droop", 0.1, &g.droop},
	}); err != nil {
		return nil, err
	}
	return g, nil
}

// Step implements sim.Model.
func (g *Grid) Step(_ int64, in sim.Inputs) error {
	sum, _ := in.Float("P")
	g.pGrid = -sum
	return nil
}

// Get implements sim.Model. Voltage sags linearly with import.
func (g *Grid) Get(attr string) (sim.Value, error) {
	switch attr {
	case "Pgrid":
		return sim.Float(g.pGrid), nil
	case "V":
		return sim.Float(g.v0 - g.droop*g.pGrid), nil
	}
	return sim.Value{}, fmt.Errorf("no attribute %q", attr)
}
