package rules

import "github.com/homesim/homesim/sim"

// Pattern matches facts of one kind. Every key in Where must be present with exactly that
// value; every key in Bind must be present and its value is bound under the same name.
// A key bound by two patterns of the same rule must carry the same value in both facts.
type Pattern struct {
	Kind  FactKind
	Where Slots
	Bind  []string
}

// Input matches an input fact that has all of the bind keys.
func Input(bind ...string) Pattern { return Pattern{Kind: KindInput, Bind: bind} }

// State matches a state fact that has all of the bind keys.
func State(bind ...string) Pattern { return Pattern{Kind: KindState, Bind: bind} }

// Output matches an output fact that has all of the bind keys.
func Output(bind ...string) Pattern { return Pattern{Kind: KindOutput, Bind: bind} }

// With returns a copy of p that additionally requires key == v.
func (p Pattern) With(key string, v sim.Value) Pattern {
	where := make(Slots, len(p.Where)+1)
	for k, x := range p.Where {
		where[k] = x
	}
	where[key] = v
	p.Where = where
	return p
}

// Rule is a guarded condition with a priority and an action.
// The rule is eligible when every pattern in Match is satisfied by a distinct fact,
// no fact satisfies any pattern in Not, and Test (if set) accepts the bindings.
type Rule struct {
	Name     string
	Salience int
	Match    []Pattern
	Not      []Pattern
	Test     func(b Bindings) bool
	Action   func(ctx *Context)
}

// Context is what an action sees when its rule fires.
type Context struct {
	Clock    int64
	Bindings Bindings
	// Facts holds the matched facts, one per Match pattern.
	Facts []*Fact
	pass  *pass
	fired *Firing
}

// Declare adds a fact to working memory. Declaring a fact identical to an existing one
// returns the existing fact.
func (c *Context) Declare(kind FactKind, slots Slots) *Fact {
	f, added := c.pass.declare(kind, slots)
	if added {
		c.fired.Declared = append(c.fired.Declared, f.String())
	}
	return f
}

// Emit writes key into the pass result. Later emits of the same key overwrite earlier ones.
func (c *Context) Emit(key string, v sim.Value) {
	c.pass.outputs[key] = v
}

// Collect returns the catch-all rule that unions every output fact into the pass result.
// It matches output facts newest first, so when several rules declared the same key the
// one that fired earliest, i.e. the higher-priority one, is written last and wins.
func Collect(name string, salience int) Rule {
	return Rule{
		Name:     name,
		Salience: salience,
		Match:    []Pattern{{Kind: KindOutput}},
		Action: func(ctx *Context) {
			out := ctx.Facts[0]
			for _, k := range out.Keys() {
				v, _ := out.Get(k)
				ctx.Emit(k, v)
			}
		},
	}
}
