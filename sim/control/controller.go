// Package control provides the rule-driven controller entity types.
//
// A controller step aggregates its inputs, runs one rule pass over a fresh working memory
// seeded with the inputs and the controller's carried state, and low-pass filters the
// resulting setpoints before publishing them.
package control

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/homesim/homesim/sim"
	"github.com/homesim/homesim/sim/rules"
	"github.com/homesim/homesim/sim/trace"
)

// ControlType is the heating and battery controller.
var ControlType = &sim.EntityType{
	Name: "Control",
	Schema: sim.Schema{
		Params: []string{
			"setpoint_change_rate", "T_min", "T_max", "P_max", "hysteresis",
			"rated_discharge_capacity", "rated_charge_capacity",
			"soc_min", "soc_max", "soc_discharge_floor",
			"charge_setpoint", "discharge_setpoint", "heat_on_gain", "heat_hold_gain",
		},
		Inputs: []sim.AttrSpec{
			sim.FloatAttr("Pgrid"),
			sim.FloatAttr("T"),
			sim.FloatAttr("zs"),
			sim.FloatAttr("SOC"),
		},
		Outputs: []sim.AttrSpec{
			sim.FloatAttr("Pset_heat"),
			sim.FloatAttr("Pset_batt"),
			sim.BoolAttr("heating"),
			sim.FloatAttr("T"),
			sim.FloatAttr("Pgrid"),
		},
	},
	StepSize: 5,
	New:      newController,
}

// Controller is the state of one Control entity.
type Controller struct {
	id     string
	engine *rules.Engine
	trace  *trace.SimulationTrace

	tMin, tMax, pMax             float64
	maxCharge, maxDischarge      float64
	heat, batt                   *LowPass
	heating                      bool
	temperature, pGrid, soc, sun float64
}

func newController(id string, p sim.Params, env sim.Env) (sim.Model, error) {
	var (
		cfg  = DefaultRuleConfig()
		c    = &Controller{id: id, trace: env.Trace, temperature: 22, soc: 0.5}
		rate float64
		err  error
	)
	for _, f := range []struct {
		name string
		def  float64
		dst  *float64
	}{
		{"setpoint_change_rate", 0.8, &rate},
		{"T_min", 19, &c.tMin},
		{"T_max", 24, &c.tMax},
		{"P_max", 5, &c.pMax},
		{"rated_discharge_capacity", 5, &c.maxDischarge},
		{"rated_charge_capacity", 5, &c.maxCharge},
		{"hysteresis", cfg.Hysteresis, &cfg.Hysteresis},
		{"soc_min", cfg.SOCMin, &cfg.SOCMin},
		{"soc_max", cfg.SOCMax, &cfg.SOCMax},
		{"soc_discharge_floor", cfg.DischargeFloor, &cfg.DischargeFloor},
		{"charge_setpoint", cfg.ChargeSetpoint, &cfg.ChargeSetpoint},
		{"discharge_setpoint", cfg.DischargeSetpoint, &cfg.DischargeSetpoint},
		{"heat_on_gain", cfg.StartGain, &cfg.StartGain},
		{"heat_hold_gain", cfg.HoldGain, &cfg.HoldGain},
	} {
		if *f.dst, err = p.Float(f.name, f.def); err != nil {
			return nil, err
		}
	}
	if c.tMin > c.tMax {
		return nil, fmt.Errorf("T_min %v above T_max %v", c.tMin, c.tMax)
	}
	if cfg.SOCMin >= cfg.SOCMax {
		return nil, fmt.Errorf("soc_min %v must be below soc_max %v", cfg.SOCMin, cfg.SOCMax)
	}
	if c.heat, err = NewLowPass(rate, 0); err != nil {
		return nil, err
	}
	c.batt, _ = NewLowPass(rate, 0)
	c.engine, err = rules.NewEngine(HomeRules(cfg),
		rules.WithRequiredOutputs(KeyHeatTarget, KeyBattTarget, KeyHeating))
	if err != nil {
		return nil, fmt.Errorf("building rule set: %w", err)
	}
	return c, nil
}

// Step implements sim.Model.
func (c *Controller) Step(now int64, in sim.Inputs) error {
	if v, ok := in.Float("T"); ok {
		c.temperature = v
	}
	if v, ok := in.Float("Pgrid"); ok {
		c.pGrid = v
	}
	if v, ok := in.Float("SOC"); ok {
		c.soc = v
	}
	if v, ok := in.Float("zs"); ok {
		c.sun = v
	}

	res, err := c.engine.Run(now, c.snapshot())
	recordPass(c.trace, c.id, now, res, err)
	if err != nil {
		return fmt.Errorf("rule pass: %w", err)
	}

	heating := res.Outputs[KeyHeating].Bool()
	if heating != c.heating {
		logrus.Debugf("[tick %07d] %s heating %v -> %v at T=%.2f", now, c.id, c.heating, heating, c.temperature)
	}
	c.heating = heating
	c.heat.Update(res.Outputs[KeyHeatTarget].Float())
	c.batt.Update(res.Outputs[KeyBattTarget].Float())
	c.batt.Value = math.Max(-c.maxCharge, math.Min(c.maxDischarge, c.batt.Value))
	return nil
}

// snapshot is the Input fact of one pass: sensed values, carried setpoints and limits.
func (c *Controller) snapshot() rules.Slots {
	return rules.Slots{
		"T":         sim.Float(c.temperature),
		"T_min":     sim.Float(c.tMin),
		"T_max":     sim.Float(c.tMax),
		"P_max":     sim.Float(c.pMax),
		"Pgrid":     sim.Float(c.pGrid),
		"SOC":       sim.Float(c.soc),
		"zs":        sim.Float(c.sun),
		"Pset_heat": sim.Float(c.heat.Value),
		"Pset_batt": sim.Float(c.batt.Value),
		KeyHeating:  sim.Bool(c.heating),
	}
}

// Get implements sim.Model.
func (c *Controller) Get(attr string) (sim.Value, error) {
	switch attr {
	case "Pset_heat":
		return sim.Float(c.heat.Value), nil
	case "Pset_batt":
		return sim.Float(c.batt.Value), nil
	case "heating":
		return sim.Bool(c.heating), nil
	case "T":
		return sim.Float(c.temperature), nil
	case "Pgrid":
		return sim.Float(c.pGrid), nil
	}
	return sim.Value{}, fmt.Errorf("no attribute %q", attr)
}

// recordPass copies the firings and the outcome of one pass into tr.
func recordPass(tr *trace.SimulationTrace, id string, clock int64, res *rules.Result, err error) {
	if !tr.Enabled() || res == nil {
		return
	}
	for _, f := range res.Firings {
		tr.RecordFiring(trace.FiringRecord{
			Entity:   id,
			Clock:    clock,
			Rule:     f.Rule,
			Salience: f.Salience,
			Facts:    f.Facts,
			Declared: f.Declared,
		})
	}
	pr := trace.PassRecord{
		Entity:  id,
		Clock:   clock,
		Firings: len(res.Firings),
		Outputs: make(map[string]string, len(res.Outputs)),
	}
	for k, v := range res.Outputs {
		pr.Outputs[k] = v.String()
	}
	if err != nil {
		pr.Err = err.Error()
	}
	tr.RecordPass(pr)
}
