package control

import (
	"github.com/homesim/homesim/sim"
	"github.com/homesim/homesim/sim/rules"
)

// Output keys every home-energy pass must produce.
const (
	KeyHeatTarget = "newPset_heat"
	KeyBattTarget = "newPset_batt"
	KeyHeating    = "heating"
)

// RuleConfig holds the thresholds and gains of the home-energy rule set.
type RuleConfig struct {
	// Hysteresis is the margin above T_min that switches heating on (below) and off (at or above).
	Hysteresis float64
	// SOCMin and SOCMax bound the state of charge in which the battery may be used.
	SOCMin, SOCMax float64
	// DischargeFloor is the state of charge at or below which the battery is not discharged.
	DischargeFloor float64
	// ChargeSetpoint and DischargeSetpoint are battery power magnitudes in kW.
	ChargeSetpoint, DischargeSetpoint float64
	// StartGain is the share of P_max requested on the pass heating switches on,
	// HoldGain the share requested while it stays on.
	StartGain, HoldGain float64
}

// DefaultRuleConfig returns the gains and thresholds used when a scenario sets none.
func DefaultRuleConfig() RuleConfig {
	return RuleConfig{
		Hysteresis:        0.1,
		SOCMin:            0.1,
		SOCMax:            0.9,
		DischargeFloor:    0.2,
		ChargeSetpoint:    0.5,
		DischargeSetpoint: 0.4,
		StartGain:         0.1,
		HoldGain:          0.7,
	}
}

// HomeRules builds the heating and battery rule set. Heater and battery setpoints follow the
// grid convention: consumption is negative.
//
// Input facts carry T, T_min, T_max, P_max, heating, Pset_heat, Pset_batt, Pgrid, SOC.
func HomeRules(cfg RuleConfig) []rules.Rule {
	on, off := sim.Bool(true), sim.Bool(false)
	threshold := func(b rules.Bindings) float64 { return b.Float("T_min") + cfg.Hysteresis }

	return []rules.Rule{
		// input processing
		{
			Name:     "high_temp",
			Salience: 5,
			Match:    []rules.Pattern{rules.Input("T", "T_min").With(KeyHeating, on)},
			Test:     func(b rules.Bindings) bool { return b.Float("T") >= threshold(b) },
			Action: func(ctx *rules.Context) {
				ctx.Declare(rules.KindState, rules.Slots{KeyHeating: off})
			},
		},
		{
			Name:     "low_temp",
			Salience: 5,
			Match:    []rules.Pattern{rules.Input("T", "T_min").With(KeyHeating, off)},
			Test:     func(b rules.Bindings) bool { return b.Float("T") < threshold(b) },
			Action: func(ctx *rules.Context) {
				ctx.Declare(rules.KindState, rules.Slots{KeyHeating: on})
			},
		},
		{
			Name:     "soc_ok",
			Salience: 5,
			Match:    []rules.Pattern{rules.Input("SOC")},
			Test: func(b rules.Bindings) bool {
				soc := b.Float("SOC")
				return soc > cfg.SOCMin && soc < cfg.SOCMax
			},
			Action: func(ctx *rules.Context) {
				ctx.Declare(rules.KindState, rules.Slots{"SOCok": on, "SOC": ctx.Bindings["SOC"]})
			},
		},
		{
			Name:     "soc_bad",
			Salience: 5,
			Match:    []rules.Pattern{rules.Input("SOC")},
			Test: func(b rules.Bindings) bool {
				soc := b.Float("SOC")
				return soc <= cfg.SOCMin || soc >= cfg.SOCMax
			},
			Action: func(ctx *rules.Context) {
				ctx.Declare(rules.KindState, rules.Slots{"SOCok": off, "SOC": ctx.Bindings["SOC"]})
			},
		},

		// decisions
		{
			Name:     "soc_ok_charge",
			Salience: 4,
			Match:    []rules.Pattern{rules.State().With("SOCok", on), rules.Input("Pgrid")},
			Test:     func(b rules.Bindings) bool { return b.Float("Pgrid") <= 0 },
			Action: func(ctx *rules.Context) {
				ctx.Declare(rules.KindOutput, rules.Slots{KeyBattTarget: sim.Float(-cfg.ChargeSetpoint)})
			},
		},
		{
			Name:     "heating_on",
			Salience: 3,
			Match:    []rules.Pattern{rules.Input("P_max", "Pset_heat"), rules.State().With(KeyHeating, on)},
			Action: func(ctx *rules.Context) {
				ctx.Declare(rules.KindOutput, rules.Slots{
					KeyHeatTarget: sim.Float(ramp(cfg.StartGain, ctx.Bindings)),
					KeyHeating:    on,
				})
			},
		},
		{
			Name:     "heating_off",
			Salience: 3,
			Match:    []rules.Pattern{rules.State().With(KeyHeating, off)},
			Action: func(ctx *rules.Context) {
				ctx.Declare(rules.KindOutput, rules.Slots{KeyHeatTarget: sim.Float(0), KeyHeating: off})
			},
		},
		{
			Name:     "heating_hold",
			Salience: 3,
			Match:    []rules.Pattern{rules.Input("P_max", "Pset_heat").With(KeyHeating, on)},
			Not:      []rules.Pattern{rules.State(KeyHeating)},
			Action: func(ctx *rules.Context) {
				ctx.Declare(rules.KindOutput, rules.Slots{
					KeyHeatTarget: sim.Float(ramp(cfg.HoldGain, ctx.Bindings)),
					KeyHeating:    on,
				})
			},
		},
		{
			Name:     "soc_ok_discharge",
			Salience: 3,
			Match:    []rules.Pattern{rules.State().With("SOCok", on), rules.Input("Pgrid", "SOC")},
			Test: func(b rules.Bindings) bool {
				return b.Float("Pgrid") > 0 && b.Float("SOC") > cfg.DischargeFloor
			},
			Action: func(ctx *rules.Context) {
				ctx.Declare(rules.KindOutput, rules.Slots{KeyBattTarget: sim.Float(cfg.DischargeSetpoint)})
			},
		},
		{
			Name:     "soc_ok_hold",
			Salience: 3,
			Match:    []rules.Pattern{rules.State().With("SOCok", on), rules.Input("Pgrid", "SOC")},
			Test: func(b rules.Bindings) bool {
				return b.Float("Pgrid") > 0 && b.Float("SOC") <= cfg.DischargeFloor
			},
			Action: func(ctx *rules.Context) {
				ctx.Declare(rules.KindOutput, rules.Slots{KeyBattTarget: sim.Float(0)})
			},
		},
		{
			Name:     "soc_bad_idle",
			Salience: 3,
			Match:    []rules.Pattern{rules.State().With("SOCok", off)},
			Action: func(ctx *rules.Context) {
				ctx.Declare(rules.KindOutput, rules.Slots{KeyBattTarget: sim.Float(0)})
			},
		},
		{
			Name:     "heating_idle",
			Salience: 3,
			Match:    []rules.Pattern{rules.Input().With(KeyHeating, off)},
			Not:      []rules.Pattern{rules.State(KeyHeating)},
			Action: func(ctx *rules.Context) {
				ctx.Declare(rules.KindOutput, rules.Slots{KeyHeatTarget: sim.Float(0), KeyHeating: off})
			},
		},

		rules.Collect("return_outputs", 0),
	}
}

// ramp moves the heater setpoint a share gain of the way toward full power (-P_max).
func ramp(gain float64, b rules.Bindings) float64 {
	return -gain*b.Float("P_max") + (1-gain)*b.Float("Pset_heat")
}
