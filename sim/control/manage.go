package control

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/homesim/homesim/sim"
	"github.com/homesim/homesim/sim/rules"
	"github.com/homesim/homesim/sim/trace"
)

// ManageAppType switches appliances on at scheduled clock readings.
var ManageAppType = &sim.EntityType{
	Name: "ManageApp",
	Schema: sim.Schema{
		Params:  []string{"coffee_time"},
		Inputs:  []sim.AttrSpec{sim.FloatAttr("time")},
		Outputs: []sim.AttrSpec{sim.BoolAttr("coffee_on"), sim.FloatAttr("coffee_time")},
	},
	StepSize: 5,
	New:      newManager,
}

// ApplianceRules builds the appliance schedule rule set. coffee_on is true only on passes
// whose clock reading equals coffee_time.
func ApplianceRules() []rules.Rule {
	return []rules.Rule{
		{
			Name:     "time_for_coffee",
			Salience: 5,
			Match:    []rules.Pattern{rules.Input("coffee_time", "time")},
			Not:      []rules.Pattern{rules.Output().With("coffee_on", sim.Bool(true))},
			Test:     func(b rules.Bindings) bool { return b.Float("coffee_time") == b.Float("time") },
			Action: func(ctx *rules.Context) {
				logrus.Infof("[tick %07d] coffee time at clock %v", ctx.Clock, ctx.Bindings["time"])
				ctx.Declare(rules.KindOutput, rules.Slots{"coffee_on": sim.Bool(true)})
			},
		},
		{
			Name:     "not_coffee_time",
			Salience: 5,
			Match:    []rules.Pattern{rules.Input("coffee_time", "time")},
			Test:     func(b rules.Bindings) bool { return b.Float("coffee_time") != b.Float("time") },
			Action: func(ctx *rules.Context) {
				ctx.Declare(rules.KindOutput, rules.Slots{"coffee_on": sim.Bool(false)})
			},
		},
		rules.Collect("return_outputs", 0),
	}
}

// Manager is the state of one ManageApp entity.
type Manager struct {
	id         string
	engine     *rules.Engine
	trace      *trace.SimulationTrace
	coffeeTime float64
	clock      float64
	coffeeOn   bool
}

func newManager(id string, p sim.Params, env sim.Env) (sim.Model, error) {
	at, err := p.Int("coffee_time", 0)
	if err != nil {
		return nil, err
	}
	if at < 0 {
		return nil, fmt.Errorf("coffee_time must be >= 0, got %d", at)
	}
	engine, err := rules.NewEngine(ApplianceRules(), rules.WithRequiredOutputs("coffee_on"))
	if err != nil {
		return nil, fmt.Errorf("building rule set: %w", err)
	}
	return &Manager{id: id, engine: engine, trace: env.Trace, coffeeTime: float64(at)}, nil
}

// Step implements sim.Model.
func (m *Manager) Step(now int64, in sim.Inputs) error {
	if v, ok := in.Float("time"); ok {
		m.clock = v
	}
	res, err := m.engine.Run(now, rules.Slots{
		"coffee_time": sim.Float(m.coffeeTime),
		"time":        sim.Float(m.clock),
	})
	recordPass(m.trace, m.id, now, res, err)
	if err != nil {
		return fmt.Errorf("rule pass: %w", err)
	}
	m.coffeeOn = res.Outputs["coffee_on"].Bool()
	return nil
}

// Get implements sim.Model.
func (m *Manager) Get(attr string) (sim.Value, error) {
	switch attr {
	case "coffee_on":
		return sim.Bool(m.coffeeOn), nil
	case "coffee_time":
		return sim.Float(m.coffeeTime), nil
	}
	return sim.Value{}, fmt.Errorf("no attribute %q", attr)
}

// Register adds the controller types to c.
func Register(c *sim.Catalog) error {
	for _, t := range []*sim.EntityType{ControlType, ManageAppType} {
		if err := c.Register(t); err != nil {
			return err
		}
	}
	return nil
}
