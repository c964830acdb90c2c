package control

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homesim/homesim/sim"
	"github.com/homesim/homesim/sim/internal/testutil"
	"github.com/homesim/homesim/sim/rules"
	"github.com/homesim/homesim/sim/trace"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.WarnLevel)
	}
	os.Exit(m.Run())
}

// sensed builds controller inputs, each attribute delivered by a single source.
func sensed(t *testing.T, s *sim.Schema, vals map[string]float64) sim.Inputs {
	t.Helper()
	attrs := make(map[string]map[string]sim.Value, len(vals))
	for k, v := range vals {
		attrs[k] = map[string]sim.Value{"src_0": sim.Float(v)}
	}
	return sim.NewInputs(s, attrs)
}

func newTestController(t *testing.T, p sim.Params, tr *trace.SimulationTrace) *Controller {
	t.Helper()
	m, err := ControlType.New("ctl_0", p, sim.Env{Trace: tr})
	require.NoError(t, err)
	return m.(*Controller)
}

func TestLowPass_ConvergesGeometrically(t *testing.T) {
	// GIVEN rate 0.8 starting at 0
	f, err := NewLowPass(0.8, 0)
	require.NoError(t, err)

	// WHEN the target is held at 5
	// THEN the error shrinks by (1-r) each pass
	testutil.AssertFloat64Equal(t, "pass 1", 4, f.Update(5), 1e-12)
	testutil.AssertFloat64Equal(t, "pass 2", 4.8, f.Update(5), 1e-12)
	testutil.AssertFloat64Equal(t, "pass 3", 4.96, f.Update(5), 1e-12)
}

func TestNewLowPass_RejectsRateOutsideUnitInterval(t *testing.T) {
	for _, r := range []float64{0, -0.1, 1.5} {
		_, err := NewLowPass(r, 0)
		assert.Error(t, err, "rate %v", r)
	}
	_, err := NewLowPass(1, 0)
	assert.NoError(t, err)
}

func TestController_HeatingHysteresis(t *testing.T) {
	// GIVEN T_min 19 and margin 0.1 (threshold 19.1)
	c := newTestController(t, sim.Params{"T_min": 19, "hysteresis": 0.1}, nil)

	temps := []float64{20, 19.5, 19.2, 19.1, 19.05, 19.0, 18.5, 19.05, 19.09, 19.1, 19.5}
	want := []bool{false, false, false, false, true, true, true, true, true, false, false}

	// WHEN temperature falls through the threshold and rises back
	var got []bool
	switches := 0
	prev := false
	for i, temp := range temps {
		require.NoError(t, c.Step(int64(i*5), sensed(t, &ControlType.Schema, map[string]float64{"T": temp})))
		h, err := c.Get("heating")
		require.NoError(t, err)
		got = append(got, h.Bool())
		if h.Bool() != prev {
			switches++
		}
		prev = h.Bool()
	}

	// THEN heating switches on once below the threshold and off once at it
	assert.Equal(t, want, got)
	assert.Equal(t, 2, switches)
}

func TestController_HeaterSetpointIsSmoothed(t *testing.T) {
	// GIVEN a cold room, P_max 5, rate 0.8
	c := newTestController(t, sim.Params{}, nil)
	in := sensed(t, &ControlType.Schema, map[string]float64{"T": 18})

	// WHEN heating switches on: target -0.1*5 + 0.9*0 = -0.5
	require.NoError(t, c.Step(0, in))
	v, _ := c.Get("Pset_heat")
	testutil.AssertFloat64Equal(t, "switch-on pass", -0.4, v.Float(), 1e-12)

	// WHEN heating holds: target -0.7*5 + 0.3*(-0.4) = -3.62
	require.NoError(t, c.Step(5, in))
	v, _ = c.Get("Pset_heat")
	testutil.AssertFloat64Equal(t, "hold pass", 0.8*-3.62+0.2*-0.4, v.Float(), 1e-12)
}

func TestController_BatterySetpoint(t *testing.T) {
	tests := []struct {
		name  string
		pgrid float64
		soc   float64
		want  float64
	}{
		{name: "export charges", pgrid: -1, soc: 0.5, want: 0.8 * -0.5},
		{name: "import discharges", pgrid: 2, soc: 0.5, want: 0.8 * 0.4},
		{name: "import below floor holds", pgrid: 2, soc: 0.15, want: 0},
		{name: "charge out of range idles", pgrid: -1, soc: 0.95, want: 0},
		{name: "depleted idles", pgrid: 2, soc: 0.05, want: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestController(t, sim.Params{}, nil)
			in := sensed(t, &ControlType.Schema, map[string]float64{"T": 21, "Pgrid": tc.pgrid, "SOC": tc.soc})
			require.NoError(t, c.Step(0, in))
			v, err := c.Get("Pset_batt")
			require.NoError(t, err)
			testutil.AssertFloat64Equal(t, "Pset_batt", tc.want, v.Float(), 1e-12)
		})
	}
}

func TestController_BatterySetpointIsClamped(t *testing.T) {
	// GIVEN a charge setpoint above the rated charge capacity
	c := newTestController(t, sim.Params{
		"setpoint_change_rate":  1,
		"charge_setpoint":       3,
		"rated_charge_capacity": 2,
	}, nil)

	// WHEN the grid exports
	require.NoError(t, c.Step(0, sensed(t, &ControlType.Schema, map[string]float64{"T": 21, "Pgrid": -1})))

	// THEN the setpoint stops at the rated capacity
	v, _ := c.Get("Pset_batt")
	assert.Equal(t, -2.0, v.Float())
}

func TestController_EveryPassProducesAllOutputs(t *testing.T) {
	// GIVEN every combination of heating state, SOC band and grid direction
	c := newTestController(t, sim.Params{}, nil)
	clock := int64(0)
	for _, temp := range []float64{15, 25, 15} {
		for _, soc := range []float64{0, 0.15, 0.5, 1} {
			for _, pgrid := range []float64{-3, 0, 3} {
				// WHEN a pass runs
				err := c.Step(clock, sensed(t, &ControlType.Schema, map[string]float64{"T": temp, "SOC": soc, "Pgrid": pgrid}))
				// THEN no required output is left unset
				require.NoError(t, err, "T=%v SOC=%v Pgrid=%v", temp, soc, pgrid)
				clock += 5
			}
		}
	}
}

func TestController_UnknownOutputAttribute(t *testing.T) {
	c := newTestController(t, sim.Params{}, nil)
	_, err := c.Get("P")
	assert.Error(t, err)
}

func TestNewController_RejectsInvalidParams(t *testing.T) {
	for _, p := range []sim.Params{
		{"setpoint_change_rate": 0},
		{"T_min": 25, "T_max": 20},
		{"soc_min": 0.9, "soc_max": 0.1},
		{"P_max": "high"},
	} {
		_, err := ControlType.New("ctl_0", p, sim.Env{})
		assert.Error(t, err, "params %v", p)
	}
}

func TestController_DecisionTraceGolden(t *testing.T) {
	// GIVEN a traced controller with gains chosen so every setpoint is exact in binary
	tr := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})
	c := newTestController(t, sim.Params{
		"setpoint_change_rate": 0.5,
		"P_max":                4,
		"heat_on_gain":         0.25,
		"heat_hold_gain":       0.5,
	}, tr)

	// WHEN a cold exporting pass is followed by a cold importing pass
	require.NoError(t, c.Step(0, sensed(t, &ControlType.Schema, map[string]float64{"T": 18, "Pgrid": 0, "SOC": 0.5})))
	require.NoError(t, c.Step(5, sensed(t, &ControlType.Schema, map[string]float64{"T": 18.5, "Pgrid": 1.5, "SOC": 0.5})))

	// THEN the firing sequence matches the recorded trace
	testutil.Golden(t).Assert(t, "control_trace", renderTrace(tr))

	sum := trace.Summarize(tr)
	assert.Equal(t, 2, sum.TotalPasses)
	assert.Equal(t, 11, sum.TotalFirings)
	assert.Equal(t, 4, sum.RuleDistribution["return_outputs"])
}

func renderTrace(tr *trace.SimulationTrace) []byte {
	var buf bytes.Buffer
	for _, p := range tr.Passes {
		for _, f := range tr.Firings {
			if f.Entity != p.Entity || f.Clock != p.Clock {
				continue
			}
			fmt.Fprintf(&buf, "[tick %07d] %s %s (%d) facts=%v\n", f.Clock, f.Entity, f.Rule, f.Salience, f.Facts)
			for _, d := range f.Declared {
				fmt.Fprintf(&buf, "\t+ %s\n", d)
			}
		}
		keys := make([]string, 0, len(p.Outputs))
		for k := range p.Outputs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(&buf, "[tick %07d] %s outputs:", p.Clock, p.Entity)
		for _, k := range keys {
			fmt.Fprintf(&buf, " %s=%s", k, p.Outputs[k])
		}
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

func TestManager_CoffeeOnOnlyAtScheduledTime(t *testing.T) {
	// GIVEN coffee scheduled at clock reading 3
	m, err := ManageAppType.New("mgr_0", sim.Params{"coffee_time": 3}, sim.Env{})
	require.NoError(t, err)

	// WHEN the clock reads 1..5
	var got []bool
	for i, reading := range []float64{1, 2, 3, 4, 5} {
		require.NoError(t, m.Step(int64(i*5), sensed(t, &ManageAppType.Schema, map[string]float64{"time": reading})))
		v, err := m.Get("coffee_on")
		require.NoError(t, err)
		got = append(got, v.Bool())
	}

	// THEN coffee_on is set only on the matching reading
	assert.Equal(t, []bool{false, false, true, false, false}, got)
	v, _ := m.Get("coffee_time")
	assert.Equal(t, 3.0, v.Float())
}

func TestManager_RejectsNegativeCoffeeTime(t *testing.T) {
	_, err := ManageAppType.New("mgr_0", sim.Params{"coffee_time": -1}, sim.Env{})
	assert.Error(t, err)
}

func TestApplianceRules_MissingOutputIsReported(t *testing.T) {
	// GIVEN the schedule rules without their collect rule
	rs := ApplianceRules()
	e, err := rules.NewEngine(rs[:len(rs)-1], rules.WithRequiredOutputs("coffee_on"))
	require.NoError(t, err)

	// WHEN a pass runs
	_, err = e.Run(0, rules.Slots{"coffee_time": sim.Float(3), "time": sim.Float(3)})

	// THEN the unset output is an error, not a silent default
	assert.True(t, errors.Is(err, rules.ErrNoMatchingOutput))
}

func TestRegister(t *testing.T) {
	c := sim.NewCatalog()
	require.NoError(t, Register(c))
	assert.Equal(t, []string{"Control", "ManageApp"}, c.Names())
	assert.Error(t, Register(c))
}
