// Package rules is a small forward-chaining rule engine.
//
// A pass has three phases:
//   - Assert: the caller's input snapshot is loaded as Input facts.
//   - Resolve-and-Fire: the best eligible activation fires, repeatedly, until none is left.
//     Activations are ordered by salience (high first), then rule declaration order, then
//     recency of the matched facts (newest first). An activation, i.e. a rule together with
//     the exact facts it matched, fires at most once per pass.
//   - Collect: a catch-all rule (see Collect) unions Output facts into the result.
//
// Working memory is discarded at the end of each pass.
package rules

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/homesim/homesim/sim"
)

var (
	// ErrNoMatchingOutput is returned when a pass ends without a required output.
	ErrNoMatchingOutput = errors.New("no matching output")
	// ErrNonConvergentRuleSet is returned when a pass exceeds the firing bound.
	ErrNonConvergentRuleSet = errors.New("rule set did not converge")
)

// DefaultMaxFirings bounds the firings of one pass.
const DefaultMaxFirings = 1000

// Firing records one rule activation that fired.
type Firing struct {
	Rule     string
	Salience int
	Facts    []int
	Declared []string
}

// Result is the outcome of a pass.
type Result struct {
	Outputs map[string]sim.Value
	Firings []Firing
	// Facts is the final working memory, for diagnostics.
	Facts []*Fact
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxFirings overrides DefaultMaxFirings.
func WithMaxFirings(n int) Option {
	return func(e *Engine) { e.maxFirings = n }
}

// WithRequiredOutputs makes a pass fail with ErrNoMatchingOutput unless every key was emitted.
func WithRequiredOutputs(keys ...string) Option {
	return func(e *Engine) { e.required = append(e.required, keys...) }
}

// Engine evaluates a fixed rule set. It holds no per-pass state and can be reused.
type Engine struct {
	rules      []Rule
	maxFirings int
	required   []string
}

// NewEngine validates the rule set and returns an engine.
func NewEngine(rules []Rule, opts ...Option) (*Engine, error) {
	seen := make(map[string]bool, len(rules))
	for i, r := range rules {
		if r.Name == "" {
			return nil, fmt.Errorf("rule %d has no name", i)
		}
		if seen[r.Name] {
			return nil, fmt.Errorf("rule %q declared twice", r.Name)
		}
		seen[r.Name] = true
		if r.Action == nil {
			return nil, fmt.Errorf("rule %q has no action", r.Name)
		}
		if len(r.Match) == 0 {
			return nil, fmt.Errorf("rule %q has no patterns", r.Name)
		}
	}
	e := &Engine{
		rules:      append([]Rule(nil), rules...),
		maxFirings: DefaultMaxFirings,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.maxFirings < 1 {
		return nil, fmt.Errorf("max firings must be >= 1, got %d", e.maxFirings)
	}
	return e, nil
}

// Rules returns the rule set in declaration order.
func (e *Engine) Rules() []Rule { return e.rules }

// Run performs one full pass over the given input snapshots.
// On error the partial Result is still returned for diagnostics.
func (e *Engine) Run(clock int64, inputs ...Slots) (*Result, error) {
	p := &pass{
		clock:   clock,
		outputs: make(map[string]sim.Value),
		fired:   make(map[string]bool),
	}
	for _, in := range inputs {
		p.declare(KindInput, in)
	}

	res := &Result{Outputs: p.outputs}
	for {
		act, ok := e.next(p)
		if !ok {
			break
		}
		if len(res.Firings) >= e.maxFirings {
			res.Facts = p.facts
			return res, fmt.Errorf("%w: more than %d firings, next rule %q", ErrNonConvergentRuleSet, e.maxFirings, e.rules[act.rule].Name)
		}
		p.fired[act.key] = true
		r := e.rules[act.rule]
		f := Firing{Rule: r.Name, Salience: r.Salience, Facts: act.ids()}
		r.Action(&Context{Clock: clock, Bindings: act.bindings, Facts: act.facts, pass: p, fired: &f})
		res.Firings = append(res.Firings, f)
	}
	res.Facts = p.facts

	var missing []string
	for _, k := range e.required {
		if _, ok := p.outputs[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return res, fmt.Errorf("%w: %s", ErrNoMatchingOutput, strings.Join(missing, ", "))
	}
	return res, nil
}

// next returns the best activation that has not fired yet.
func (e *Engine) next(p *pass) (activation, bool) {
	var best activation
	found := false
	for i := range e.rules {
		for _, act := range e.activations(p, i) {
			if p.fired[act.key] {
				continue
			}
			if !found || e.before(act, best) {
				best, found = act, true
			}
		}
	}
	return best, found
}

// before reports whether a should fire before b.
func (e *Engine) before(a, b activation) bool {
	sa, sb := e.rules[a.rule].Salience, e.rules[b.rule].Salience
	if sa != sb {
		return sa > sb
	}
	if a.rule != b.rule {
		return a.rule < b.rule
	}
	ra, rb := a.recency(), b.recency()
	for i := 0; i < len(ra) && i < len(rb); i++ {
		if ra[i] != rb[i] {
			return ra[i] > rb[i]
		}
	}
	return len(ra) > len(rb)
}

// activations enumerates every complete match of rule i against working memory.
func (e *Engine) activations(p *pass, i int) []activation {
	r := e.rules[i]
	var out []activation
	var walk func(depth int, facts []*Fact, b Bindings)
	walk = func(depth int, facts []*Fact, b Bindings) {
		if depth == len(r.Match) {
			for _, neg := range r.Not {
				for _, f := range p.facts {
					if _, ok := matchFact(neg, f, b); ok {
						return
					}
				}
			}
			if r.Test != nil && !r.Test(b) {
				return
			}
			act := activation{rule: i, facts: append([]*Fact(nil), facts...), bindings: b}
			act.key = strconv.Itoa(i) + ":" + joinIDs(act.ids())
			out = append(out, act)
			return
		}
		for _, f := range p.facts {
			if containsFact(facts, f) {
				continue
			}
			nb, ok := matchFact(r.Match[depth], f, b)
			if !ok {
				continue
			}
			walk(depth+1, append(facts, f), nb)
		}
	}
	walk(0, nil, Bindings{})
	return out
}

// matchFact checks f against pat under the current bindings and returns the extended bindings.
func matchFact(pat Pattern, f *Fact, b Bindings) (Bindings, bool) {
	if f.Kind != pat.Kind {
		return nil, false
	}
	for k, want := range pat.Where {
		have, ok := f.Get(k)
		if !ok || !have.Equal(want) {
			return nil, false
		}
	}
	nb := b
	for _, k := range pat.Bind {
		have, ok := f.Get(k)
		if !ok {
			return nil, false
		}
		if prev, bound := nb[k]; bound {
			if !prev.Equal(have) {
				return nil, false
			}
			continue
		}
		if len(nb) == len(b) {
			// copy on first write so sibling branches keep their own bindings
			nb = make(Bindings, len(b)+len(pat.Bind))
			for bk, bv := range b {
				nb[bk] = bv
			}
		}
		nb[k] = have
	}
	return nb, true
}

type activation struct {
	rule     int
	facts    []*Fact
	bindings Bindings
	key      string
}

func (a activation) ids() []int {
	ids := make([]int, len(a.facts))
	for i, f := range a.facts {
		ids[i] = f.ID
	}
	return ids
}

// recency is the matched fact ids sorted newest first.
func (a activation) recency() []int {
	ids := a.ids()
	sort.Sort(sort.Reverse(sort.IntSlice(ids)))
	return ids
}

// pass is the working memory of one Run.
type pass struct {
	clock   int64
	facts   []*Fact
	outputs map[string]sim.Value
	fired   map[string]bool
}

func (p *pass) declare(kind FactKind, slots Slots) (*Fact, bool) {
	for _, f := range p.facts {
		if f.sameAs(kind, slots) {
			return f, false
		}
	}
	own := make(Slots, len(slots))
	for k, v := range slots {
		own[k] = v
	}
	f := &Fact{ID: len(p.facts) + 1, Kind: kind, Clock: p.clock, slots: own}
	p.facts = append(p.facts, f)
	return f, true
}

func containsFact(facts []*Fact, f *Fact) bool {
	for _, x := range facts {
		if x == f {
			return true
		}
	}
	return false
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
