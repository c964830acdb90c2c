package sim

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestValue_Views(t *testing.T) {
	assert.Equal(t, KindFloat, Value{}.Kind(), "zero value is the float 0")
	assert.Equal(t, 1.0, Bool(true).Float())
	assert.Equal(t, 0.0, Bool(false).Float())
	assert.True(t, Float(0.5).Bool())
	assert.False(t, Float(0.49).Bool())
	assert.True(t, Float(2).Equal(Float(2)))
	assert.False(t, Float(1).Equal(Bool(true)), "kinds differ")
	assert.Equal(t, "1.5", Float(1.5).String())
	assert.Equal(t, "true", Bool(true).String())
	assert.Equal(t, "bool", KindBool.String())
}

func TestValue_JSON(t *testing.T) {
	data, err := json.Marshal([]Value{Float(2.5), Bool(true)})
	require.NoError(t, err)
	assert.JSONEq(t, `[2.5, true]`, string(data))

	var got []Value
	require.NoError(t, json.Unmarshal([]byte(`[3, false]`), &got))
	assert.Equal(t, []Value{Float(3), Bool(false)}, got)

	var v Value
	assert.Error(t, json.Unmarshal([]byte(`"warm"`), &v))
}

func TestValue_YAML(t *testing.T) {
	var doc struct {
		A Value `yaml:"a"`
		B Value `yaml:"b"`
		C Value `yaml:"c"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("a: 1\nb: 0.25\nc: true\n"), &doc))
	assert.Equal(t, Float(1), doc.A)
	assert.Equal(t, Float(0.25), doc.B)
	assert.Equal(t, Bool(true), doc.C)

	assert.Error(t, yaml.Unmarshal([]byte("a: warm\n"), &doc))
	assert.Error(t, yaml.Unmarshal([]byte("a: [1]\n"), &doc))
}

func TestInputs_Aggregation(t *testing.T) {
	s := &Schema{Inputs: []AttrSpec{FloatAttr("mean"), SumAttr("sum"), BoolAttr("flag")}}
	in := NewInputs(s, map[string]map[string]Value{
		"mean": {"a_0": Float(3), "b_0": Float(5)},
		"sum":  {"a_0": Float(3), "b_0": Float(5)},
		"flag": {"a_0": Bool(true), "b_0": Bool(false), "c_0": Bool(false)},
	})

	v, ok := in.Float("mean")
	assert.True(t, ok)
	assert.Equal(t, 4.0, v)
	v, _ = in.Float("sum")
	assert.Equal(t, 8.0, v)

	// GIVEN one of three boolean sources true
	// THEN the mean 1/3 reads as false
	b, ok := in.Bool("flag")
	assert.True(t, ok)
	assert.False(t, b)

	_, ok = in.Float("missing")
	assert.False(t, ok)
	assert.False(t, in.Has("missing"))
	assert.Len(t, in.Sources("flag"), 3)
}

func TestInputs_LastComparesIdsAsStrings(t *testing.T) {
	// GIVEN sources x_9 and x_10 feeding a "last" input
	s := &Schema{Inputs: []AttrSpec{{Name: "pick", Kind: KindFloat, Agg: AggLast}}}
	in := NewInputs(s, map[string]map[string]Value{
		"pick": {"x_10": Float(10), "x_9": Float(9)},
	})

	// THEN x_9 wins because ids are compared as strings
	v, ok := in.Float("pick")
	assert.True(t, ok)
	assert.Equal(t, 9.0, v)
}

func TestParams_Accessors(t *testing.T) {
	p := Params{
		"i":    3,
		"f":    2.5,
		"b":    true,
		"s":    "pv.csv",
		"list": []any{1, 2.5},
		"frac": 1.5,
	}

	f, err := p.Float("i", 0)
	require.NoError(t, err)
	assert.Equal(t, 3.0, f)
	f, err = p.Float("absent", 9)
	require.NoError(t, err)
	assert.Equal(t, 9.0, f)
	_, err = p.Float("s", 0)
	assert.Error(t, err)

	n, err := p.Int("i", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	_, err = p.Int("frac", 0)
	assert.Error(t, err, "1.5 is not an integer")

	b, err := p.Bool("b", false)
	require.NoError(t, err)
	assert.True(t, b)
	_, err = p.Bool("i", false)
	assert.Error(t, err)

	s, err := p.String("s", "")
	require.NoError(t, err)
	assert.Equal(t, "pv.csv", s)

	xs, err := p.Floats("list")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2.5}, xs)
	_, err = Params{"list": []any{1, "x"}}.Floats("list")
	assert.Error(t, err)
	xs, err = p.Floats("absent")
	require.NoError(t, err)
	assert.Nil(t, xs)
}

func TestCatalog_Register(t *testing.T) {
	noop := func(string, Params, Env) (Model, error) { return nil, nil }
	tests := []struct {
		name string
		typ  *EntityType
	}{
		{name: "no name", typ: &EntityType{StepSize: 1, New: noop}},
		{name: "zero step", typ: &EntityType{Name: "A", New: noop}},
		{name: "no constructor", typ: &EntityType{Name: "A", StepSize: 1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, NewCatalog().Register(tc.typ))
		})
	}

	c := NewCatalog()
	c.MustRegister(&EntityType{Name: "B", StepSize: 1, New: noop}, &EntityType{Name: "A", StepSize: 5, New: noop})
	assert.Equal(t, []string{"A", "B"}, c.Names())
	assert.Error(t, c.Register(&EntityType{Name: "A", StepSize: 1, New: noop}), "duplicate name")
	assert.Panics(t, func() { c.MustRegister(&EntityType{Name: "B", StepSize: 1, New: noop}) })

	typ, err := c.Lookup("A")
	require.NoError(t, err)
	assert.Equal(t, int64(5), typ.StepSize)
	_, err = c.Lookup("C")
	assert.True(t, errors.Is(err, ErrUnknownType))
}

func TestStepError(t *testing.T) {
	inner := errors.New("boom")
	err := error(&StepError{Entity: "house_0", Clock: 42, Err: inner})
	assert.Equal(t, "[tick 0000042] entity house_0: boom", err.Error())
	assert.True(t, errors.Is(err, inner))

	attrErr := error(&AttributeError{Entity: "house_0", Attr: "Q", Role: "output"})
	assert.Equal(t, `entity house_0 has no output attribute "Q"`, attrErr.Error())
	assert.True(t, errors.Is(attrErr, ErrUnknownAttribute))
}
