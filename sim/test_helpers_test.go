package sim

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// counter publishes v = value * steps taken and logs every step it makes.
type counter struct {
	id     string
	value  float64
	n      int
	jitter bool
	noise  float64
	env    Env
	log    *[]string
}

func (c *counter) Step(now int64, _ Inputs) error {
	c.n++
	if c.jitter {
		c.noise = c.env.RNG.Float64()
	}
	if c.log != nil {
		*c.log = append(*c.log, fmt.Sprintf("%s@%d", c.id, now))
	}
	return nil
}

func (c *counter) Get(attr string) (Value, error) {
	switch attr {
	case "v":
		return Float(c.value*float64(c.n) + c.noise), nil
	case "on":
		return Bool(c.n%2 == 1), nil
	}
	return Value{}, fmt.Errorf("no attribute %q", attr)
}

// counterType builds a counter type with the given step size.
// Steps are appended to log when it is non-nil.
func counterType(name string, step int64, log *[]string) *EntityType {
	return &EntityType{
		Name: name,
		Schema: Schema{
			Params:  []string{"value", "jitter"},
			Outputs: []AttrSpec{FloatAttr("v"), BoolAttr("on")},
		},
		StepSize: step,
		New: func(id string, p Params, env Env) (Model, error) {
			v, err := p.Float("value", 1)
			if err != nil {
				return nil, err
			}
			jitter, err := p.Bool("jitter", false)
			if err != nil {
				return nil, err
			}
			return &counter{id: id, value: v, jitter: jitter, env: env, log: log}, nil
		},
	}
}

// meter remembers what it was fed at each step and republishes it.
type meter struct {
	mean, total, last map[int64]float64
	flag              map[int64]bool
	failAt            int64
	cur               float64
}

func (m *meter) Step(now int64, in Inputs) error {
	if now == m.failAt {
		return fmt.Errorf("meter broke")
	}
	if v, ok := in.Float("in"); ok {
		m.mean[now] = v
		m.cur = v
	}
	if v, ok := in.Float("total"); ok {
		m.total[now] = v
	}
	if v, ok := in.Float("last"); ok {
		m.last[now] = v
	}
	if v, ok := in.Bool("flag"); ok {
		m.flag[now] = v
	}
	return nil
}

func (m *meter) Get(attr string) (Value, error) {
	if attr == "out" {
		return Float(m.cur), nil
	}
	return Value{}, fmt.Errorf("no attribute %q", attr)
}

var meterType = &EntityType{
	Name: "Meter",
	Schema: Schema{
		Params: []string{"fail_at"},
		Inputs: []AttrSpec{
			FloatAttr("in"),
			SumAttr("total"),
			{Name: "last", Kind: KindFloat, Agg: AggLast},
			BoolAttr("flag"),
		},
		Outputs: []AttrSpec{FloatAttr("out")},
	},
	StepSize: 1,
	New: func(id string, p Params, env Env) (Model, error) {
		failAt, err := p.Int("fail_at", -1)
		if err != nil {
			return nil, err
		}
		return &meter{
			mean:   make(map[int64]float64),
			total:  make(map[int64]float64),
			last:   make(map[int64]float64),
			flag:   make(map[int64]bool),
			failAt: failAt,
		}, nil
	},
}

// testCatalog has a one-second counter, a five-second counter and the meter.
func testCatalog(t *testing.T, log *[]string) *Catalog {
	t.Helper()
	c := NewCatalog()
	require.NoError(t, c.Register(counterType("Fast", 1, log)))
	require.NoError(t, c.Register(counterType("Slow", 5, log)))
	require.NoError(t, c.Register(meterType))
	return c
}

func meterOf(t *testing.T, w *World, id string) *meter {
	t.Helper()
	e, err := w.Arena().Lookup(id)
	require.NoError(t, err)
	return e.Model.(*meter)
}

func create(t *testing.T, w *World, typeName, prefix string, p Params) string {
	t.Helper()
	ids, err := w.Create(1, typeName, prefix, p)
	require.NoError(t, err)
	return ids[0]
}

func valuePtr(v Value) *Value { return &v }
