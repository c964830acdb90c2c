package devices

import (
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/homesim/homesim/sim"
)

// beansPerCup is the bean level, in percent, one brew consumes.
const beansPerCup = 10

// CoffeeMachineType brews once switched on and switches itself off when the brew completes.
// working_time is the brew duration in seconds; cpt counts seconds into the current brew.
var CoffeeMachineType = &sim.EntityType{
	Name: "CoffeeMachine",
	Schema: sim.Schema{
		Params: []string{"init_bean_level", "init_time", "failure_prob"},
		Inputs: []sim.AttrSpec{{Name: "turn_on", Kind: sim.KindBool, Agg: sim.AggSum}},
		Outputs: []sim.AttrSpec{
			sim.BoolAttr("broken"),
			sim.FloatAttr("bean_level"),
			sim.FloatAttr("working_time"),
			sim.BoolAttr("on"),
			sim.FloatAttr("cpt"),
		},
	},
	StepSize: 60,
	New:      newCoffeeMachine,
}

// CoffeeMachine is the state of one CoffeeMachine entity.
type CoffeeMachine struct {
	id          string
	rng         *rand.Rand
	failureProb float64
	workingTime float64
	beans       float64
	broken, on  bool
	cpt         float64
	cups        int
}

func newCoffeeMachine(id string, p sim.Params, env sim.Env) (sim.Model, error) {
	m := &CoffeeMachine{id: id, rng: env.RNG}
	if err := floatParams(p, []floatParam{
		{"init_bean_level", 100, &m.beans},
		{"init_time", 5 * 60, &m.workingTime},
		{"failure_prob", 0.001, &m.failureProb},
	}); err != nil {
		return nil, err
	}
	if m.failureProb < 0 || m.failureProb > 1 {
		return nil, fmt.Errorf("failure_prob must be in [0, 1], got %v", m.failureProb)
	}
	if m.failureProb > 0 && m.rng == nil {
		return nil, fmt.Errorf("coffee machine %s: random failure needs an RNG", id)
	}
	return m, nil
}

// Step implements sim.Model.
func (m *CoffeeMachine) Step(now int64, in sim.Inputs) error {
	m.broken = m.failureProb > 0 && m.rng.Float64() < m.failureProb
	if m.broken {
		m.on = false
		return nil
	}
	if turnOn, ok := in.Bool("turn_on"); ok && turnOn && m.beans >= beansPerCup {
		m.on = true
	}
	if !m.on {
		return nil
	}
	m.cpt += float64(CoffeeMachineType.StepSize)
	if m.cpt >= m.workingTime {
		m.on = false
		m.cpt = 0
		m.beans -= beansPerCup
		m.cups++
		logrus.Infof("[tick %07d] %s: coffee is ready (%d cups, beans %v%%)", now, m.id, m.cups, m.beans)
	}
	return nil
}

// Get implements sim.Model.
func (m *CoffeeMachine) Get(attr string) (sim.Value, error) {
	switch attr {
	case "broken":
		return sim.Bool(m.broken), nil
	case "bean_level":
		return sim.Float(m.beans), nil
	case "working_time":
		return sim.Float(m.workingTime), nil
	case "on":
		return sim.Bool(m.on), nil
	case "cpt":
		return sim.Float(m.cpt), nil
	}
	return sim.Value{}, fmt.Errorf("no attribute %q", attr)
}

// LampType is a dimmable lamp. A progressive lamp ramps up 10% per step instead of
// switching straight to full brightness.
var LampType = &sim.EntityType{
	Name: "Lamp",
	Schema: sim.Schema{
		Params: []string{"Pmax", "progressive", "failure_prob"},
		Inputs: []sim.AttrSpec{sim.BoolAttr("on")},
		Outputs: []sim.AttrSpec{
			sim.BoolAttr("broken"),
			sim.FloatAttr("state"),
			sim.FloatAttr("Pmax"),
			sim.BoolAttr("on"),
			sim.BoolAttr("progressive"),
			sim.FloatAttr("P"),
		},
	},
	StepSize: 1,
	New:      newLamp,
}

// Lamp is the state of one Lamp entity.
type Lamp struct {
	rng         *rand.Rand
	failureProb float64
	pMax        float64
	progressive bool
	broken, on  bool
	state       float64 // percent
}

func newLamp(id string, p sim.Params, env sim.Env) (sim.Model, error) {
	l := &Lamp{rng: env.RNG}
	if err := floatParams(p, []floatParam{
		{"Pmax", 0, &l.pMax},
		{"failure_prob", 0, &l.failureProb},
	}); err != nil {
		return nil, err
	}
	var err error
	if l.progressive, err = p.Bool("progressive", false); err != nil {
		return nil, err
	}
	if l.failureProb < 0 || l.failureProb > 1 {
		return nil, fmt.Errorf("failure_prob must be in [0, 1], got %v", l.failureProb)
	}
	if l.failureProb > 0 && l.rng == nil {
		return nil, fmt.Errorf("lamp %s: random failure needs an RNG", id)
	}
	return l, nil
}

// Step implements sim.Model. A broken lamp stays dark for the step.
func (l *Lamp) Step(_ int64, in sim.Inputs) error {
	if v, ok := in.Bool("on"); ok {
		l.on = v
	}
	l.broken = l.failureProb > 0 && l.rng.Float64() < l.failureProb
	switch {
	case l.broken || !l.on:
		l.state = 0
	case l.progressive:
		l.state = clamp(l.state+10, 0, 100)
	default:
		l.state = 100
	}
	return nil
}

// Get implements sim.Model.
func (l *Lamp) Get(attr string) (sim.Value, error) {
	switch attr {
	case "broken":
		return sim.Bool(l.broken), nil
	case "state":
		return sim.Float(l.state), nil
	case "Pmax":
		return sim.Float(l.pMax), nil
	case "on":
		return sim.Bool(l.on), nil
	case "progressive":
		return sim.Bool(l.progressive), nil
	case "P":
		return sim.Float(-l.state / 100 * l.pMax), nil
	}
	return sim.Value{}, fmt.Errorf("no attribute %q", attr)
}
