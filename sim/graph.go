package sim

import (
	"fmt"
	"sort"
	"strings"
)

// Connection routes one output attribute of a source entity into one input attribute
// of a destination entity. A delayed connection delivers the value the source produced
// before the current tick, or Initial until it has produced one.
type Connection struct {
	From     string
	FromAttr string
	To       string
	ToAttr   string
	Delayed  bool
	Initial  *Value
}

func (c Connection) String() string {
	s := fmt.Sprintf("%s.%s -> %s.%s", c.From, c.FromAttr, c.To, c.ToAttr)
	if c.Delayed {
		s += " (delayed)"
	}
	return s
}

// edge is a validated connection resolved to handles.
type edge struct {
	src, dst         Handle
	srcAttr, dstAttr string
	delayed          bool
	initial          Value
}

// Graph is the fixed connection graph of a run.
type Graph struct {
	arena *Arena
	edges []edge
	// inbound[h] lists edge indices whose destination is h, in declaration order.
	inbound map[Handle][]int
	seen    map[string]bool
}

// NewGraph returns an empty graph over the arena's entities.
func NewGraph(a *Arena) *Graph {
	return &Graph{
		arena:   a,
		inbound: make(map[Handle][]int),
		seen:    make(map[string]bool),
	}
}

// Connect validates c against both schemas and adds it.
func (g *Graph) Connect(c Connection) error {
	src, err := g.arena.Lookup(c.From)
	if err != nil {
		return fmt.Errorf("connect %s: %w", c, err)
	}
	dst, err := g.arena.Lookup(c.To)
	if err != nil {
		return fmt.Errorf("connect %s: %w", c, err)
	}
	if src.Handle == dst.Handle {
		return fmt.Errorf("connect %s: entity cannot feed itself", c)
	}
	out, ok := src.Type.Schema.Output(c.FromAttr)
	if !ok {
		return fmt.Errorf("connect %s: %w", c, &AttributeError{Entity: src.ID, Attr: c.FromAttr, Role: "output"})
	}
	in, ok := dst.Type.Schema.Input(c.ToAttr)
	if !ok {
		return fmt.Errorf("connect %s: %w", c, &AttributeError{Entity: dst.ID, Attr: c.ToAttr, Role: "input"})
	}
	if out.Kind != in.Kind {
		return fmt.Errorf("connect %s: kind mismatch, source is %s and destination is %s", c, out.Kind, in.Kind)
	}
	var initial Value
	if c.Delayed {
		if c.Initial == nil {
			return fmt.Errorf("connect %s: delayed connection needs an initial value", c)
		}
		if c.Initial.Kind() != out.Kind {
			return fmt.Errorf("connect %s: initial value is %s, attribute is %s", c, c.Initial.Kind(), out.Kind)
		}
		initial = *c.Initial
	} else if c.Initial != nil {
		return fmt.Errorf("connect %s: initial value is only allowed on delayed connections", c)
	}
	key := c.From + "." + c.FromAttr + "->" + c.To + "." + c.ToAttr
	if g.seen[key] {
		return fmt.Errorf("connect %s: duplicate connection", c)
	}
	g.seen[key] = true

	g.edges = append(g.edges, edge{
		src:     src.Handle,
		dst:     dst.Handle,
		srcAttr: c.FromAttr,
		dstAttr: c.ToAttr,
		delayed: c.Delayed,
		initial: initial,
	})
	g.inbound[dst.Handle] = append(g.inbound[dst.Handle], len(g.edges)-1)
	return nil
}

// Len is the number of connections.
func (g *Graph) Len() int { return len(g.edges) }

// Order returns every handle in an order where each entity comes after the sources of its
// non-delayed inbound connections. Ties go to the lower handle. Delayed connections are
// ignored, which is what lets them close feedback loops.
func (g *Graph) Order() ([]Handle, error) {
	n := g.arena.Len()
	indeg := make([]int, n)
	next := make([][]Handle, n)
	for _, e := range g.edges {
		if e.delayed {
			continue
		}
		indeg[e.dst]++
		next[e.src] = append(next[e.src], e.dst)
	}

	ready := make([]Handle, 0, n)
	for h := 0; h < n; h++ {
		if indeg[h] == 0 {
			ready = append(ready, Handle(h))
		}
	}
	order := make([]Handle, 0, n)
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
		h := ready[0]
		ready = ready[1:]
		order = append(order, h)
		for _, d := range next[h] {
			indeg[d]--
			if indeg[d] == 0 {
				ready = append(ready, d)
			}
		}
	}
	if len(order) < n {
		stuck := make([]string, 0)
		for h := 0; h < n; h++ {
			if indeg[h] > 0 {
				stuck = append(stuck, g.arena.At(Handle(h)).ID)
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrDependencyCycle, strings.Join(stuck, ", "))
	}
	return order, nil
}

// requestedOutputs lists, per source handle, the attributes some connection reads.
func (g *Graph) requestedOutputs() map[Handle][]string {
	req := make(map[Handle][]string)
	seen := make(map[Handle]map[string]bool)
	for _, e := range g.edges {
		if seen[e.src] == nil {
			seen[e.src] = make(map[string]bool)
		}
		if seen[e.src][e.srcAttr] {
			continue
		}
		seen[e.src][e.srcAttr] = true
		req[e.src] = append(req[e.src], e.srcAttr)
	}
	return req
}
