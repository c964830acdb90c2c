package sim

import "fmt"

// sample is a value latched together with the tick that produced it.
type sample struct {
	clock int64
	v     Value
}

// slot keeps the two most recent samples of one source attribute.
type slot struct {
	cur, prev       sample
	hasCur, hasPrev bool
}

// Router turns the connection graph into per-entity inputs using a latch of published outputs.
// The latch is written once per entity per tick and read only by entities stepped after the
// writer in topological order, so it needs no lock.
type Router struct {
	graph *Graph
	latch map[Handle]map[string]*slot
}

// NewRouter returns a router over g with an empty latch.
func NewRouter(g *Graph) *Router {
	return &Router{
		graph: g,
		latch: make(map[Handle]map[string]*slot),
	}
}

// Publish latches the outputs h produced at clock.
func (r *Router) Publish(h Handle, clock int64, outputs map[string]Value) {
	slots := r.latch[h]
	if slots == nil {
		slots = make(map[string]*slot)
		r.latch[h] = slots
	}
	for attr, v := range outputs {
		s := slots[attr]
		if s == nil {
			s = &slot{}
			slots[attr] = s
		}
		if s.hasCur && s.cur.clock < clock {
			s.prev, s.hasPrev = s.cur, true
		}
		s.cur, s.hasCur = sample{clock: clock, v: v}, true
	}
}

// Latest returns the most recent value h published for attr.
func (r *Router) Latest(h Handle, attr string) (Value, bool) {
	s := r.latch[h][attr]
	if s == nil || !s.hasCur {
		return Value{}, false
	}
	return s.cur.v, true
}

// Collect builds the inputs of dst for the tick at clock.
// Non-delayed edges read the latest sample at or before clock and fail with ErrUnboundInput
// when there is none; delayed edges read the latest sample strictly before clock and fall
// back to the edge's initial value.
func (r *Router) Collect(dst Handle, clock int64) (map[string]map[string]Value, error) {
	idx := r.graph.inbound[dst]
	if len(idx) == 0 {
		return nil, nil
	}
	in := make(map[string]map[string]Value)
	for _, i := range idx {
		e := r.graph.edges[i]
		v, err := r.read(e, clock)
		if err != nil {
			return nil, err
		}
		srcs := in[e.dstAttr]
		if srcs == nil {
			srcs = make(map[string]Value)
			in[e.dstAttr] = srcs
		}
		srcs[r.graph.arena.At(e.src).ID] = v
	}
	return in, nil
}

func (r *Router) read(e edge, clock int64) (Value, error) {
	s := r.latch[e.src][e.srcAttr]
	if e.delayed {
		switch {
		case s != nil && s.hasCur && s.cur.clock < clock:
			return s.cur.v, nil
		case s != nil && s.hasPrev:
			return s.prev.v, nil
		default:
			return e.initial, nil
		}
	}
	if s == nil || !s.hasCur {
		src := r.graph.arena.At(e.src)
		dst := r.graph.arena.At(e.dst)
		return Value{}, fmt.Errorf("%w: %s.%s has no value for %s.%s at tick %d",
			ErrUnboundInput, src.ID, e.srcAttr, dst.ID, e.dstAttr, clock)
	}
	return s.cur.v, nil
}
