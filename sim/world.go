package sim

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/homesim/homesim/sim/trace"
)

// WorldConfig groups the run-wide settings of a World.
type WorldConfig struct {
	Catalog *Catalog
	Seed    int64
	// End is the last logical time that is still simulated.
	End   int64
	Trace *trace.SimulationTrace // nil disables decision tracing
}

// World is the orchestrator: it owns the arena, the connection graph and the router,
// and drives every entity through logical time.
type World struct {
	config WorldConfig
	arena  *Arena
	graph  *Graph
	router *Router
	rng    *PartitionedRNG
	probes []Probe
	probed map[string]bool
	clock  int64
	ticks  int
	hasRun bool
}

// NewWorld creates an empty world.
func NewWorld(config WorldConfig) *World {
	if config.Catalog == nil {
		panic("NewWorld: nil catalog")
	}
	arena := NewArena()
	graph := NewGraph(arena)
	return &World{
		config: config,
		arena:  arena,
		graph:  graph,
		router: NewRouter(graph),
		rng:    NewPartitionedRNG(NewSimulationKey(config.Seed)),
		probed: make(map[string]bool),
	}
}

// Create instantiates count entities of typeName and returns their ids.
// prefix defaults to the type name.
func (w *World) Create(count int, typeName, prefix string, params Params) ([]string, error) {
	if w.hasRun {
		return nil, fmt.Errorf("create %s: world already ran", typeName)
	}
	if count < 1 {
		return nil, fmt.Errorf("create %s: count must be >= 1, got %d", typeName, count)
	}
	t, err := w.config.Catalog.Lookup(typeName)
	if err != nil {
		return nil, err
	}
	if err := params.check(&t.Schema); err != nil {
		return nil, fmt.Errorf("create %s: %w", typeName, err)
	}
	if prefix == "" {
		prefix = t.Name
	}
	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		e, err := w.arena.add(prefix, t, func(id string) (Model, error) {
			return t.New(id, params, Env{
				RNG:   w.rng.ForSubsystem(SubsystemEntity(id)),
				Trace: w.config.Trace,
			})
		})
		if err != nil {
			return nil, err
		}
		ids = append(ids, e.ID)
	}
	logrus.Debugf("created %d %s entities: %v", count, typeName, ids)
	return ids, nil
}

// Connect adds a connection to the graph.
func (w *World) Connect(c Connection) error {
	if w.hasRun {
		return fmt.Errorf("connect %s: world already ran", c)
	}
	return w.graph.Connect(c)
}

// Record adds a probe whose value is emitted to the sink after every tick.
func (w *World) Record(entity, attr string) error {
	e, err := w.arena.Lookup(entity)
	if err != nil {
		return fmt.Errorf("record %s.%s: %w", entity, attr, err)
	}
	if _, ok := e.Type.Schema.Output(attr); !ok {
		return fmt.Errorf("record: %w", &AttributeError{Entity: entity, Attr: attr, Role: "output"})
	}
	p := Probe{Entity: entity, Attr: attr}
	if w.probed[p.Key()] {
		return nil
	}
	w.probed[p.Key()] = true
	w.probes = append(w.probes, p)
	return nil
}

// Arena exposes the entities of the world.
func (w *World) Arena() *Arena { return w.arena }

// Graph exposes the connection graph.
func (w *World) Graph() *Graph { return w.graph }

// Clock is the logical time of the last executed tick.
func (w *World) Clock() int64 { return w.clock }

// Ticks is the number of executed ticks.
func (w *World) Ticks() int { return w.ticks }

// Validate checks that the connection graph can be scheduled.
func (w *World) Validate() error {
	_, err := w.graph.Order()
	return err
}

// Step steps every entity named in bundle at now, in handle order, and returns their next
// due times. It does not touch the router; Run is the normal way to advance a world.
func (w *World) Step(now int64, bundle InputBundle) (map[string]int64, error) {
	ents := make([]*Entity, 0, len(bundle))
	for id := range bundle {
		e, err := w.arena.Lookup(id)
		if err != nil {
			return nil, err
		}
		ents = append(ents, e)
	}
	sort.Slice(ents, func(i, j int) bool { return ents[i].Handle < ents[j].Handle })
	next := make(map[string]int64, len(ents))
	for _, e := range ents {
		due, err := e.Step(now, bundle[e.ID])
		if err != nil {
			return nil, &StepError{Entity: e.ID, Clock: now, Err: err}
		}
		next[e.ID] = due
	}
	return next, nil
}

// GetOutputs reports the requested attributes of the requested entities.
// Any attribute outside an entity's schema fails with ErrUnknownAttribute, and so does
// any attribute of an entity that does not exist (the error also matches ErrUnknownEntity).
func (w *World) GetOutputs(requested map[string][]string) (map[string]map[string]Value, error) {
	ids := make([]string, 0, len(requested))
	for id := range requested {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make(map[string]map[string]Value, len(ids))
	for _, id := range ids {
		e, err := w.arena.Lookup(id)
		if err != nil {
			return nil, fmt.Errorf("%w %v: %w", ErrUnknownAttribute, requested[id], err)
		}
		vals, err := outputsOf(e, requested[id])
		if err != nil {
			return nil, err
		}
		out[id] = vals
	}
	return out, nil
}

func outputsOf(e *Entity, attrs []string) (map[string]Value, error) {
	vals := make(map[string]Value, len(attrs))
	for _, attr := range attrs {
		v, err := e.Get(attr)
		if err != nil {
			return nil, err
		}
		vals[attr] = v
	}
	return vals, nil
}

// Run drives the world from time 0 until the clock passes the configured end.
// Per tick it steps every due entity in topological order, latches their outputs and
// writes one TickRecord to sink (which may be nil). The first failure aborts the run
// with a *StepError. ctx is only consulted between ticks.
// Run may be called once.
func (w *World) Run(ctx context.Context, sink Sink) error {
	if w.hasRun {
		return fmt.Errorf("World.Run called more than once")
	}
	w.hasRun = true

	order, err := w.graph.Order()
	if err != nil {
		return err
	}
	requested := w.graph.requestedOutputs()
	for _, p := range w.probes {
		e, _ := w.arena.Lookup(p.Entity)
		if !containsString(requested[e.Handle], p.Attr) {
			requested[e.Handle] = append(requested[e.Handle], p.Attr)
		}
	}

	due := NewDueHeap()
	for rank, h := range order {
		due.schedule(dueEntry{due: 0, rank: rank, handle: h})
	}

	logrus.Infof("[tick %07d] starting run: %d entities, %d connections, end=%d",
		0, w.arena.Len(), w.graph.Len(), w.config.End)

	for {
		head, ok := due.peek()
		if !ok || head.due > w.config.End {
			break
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run interrupted at tick %d: %w", w.clock, err)
		}
		now := head.due
		w.clock = now
		w.ticks++
		for due.Len() > 0 {
			head, _ = due.peek()
			if head.due != now {
				break
			}
			entry := due.popNext()
			next, err := w.stepOne(w.arena.At(entry.handle), now, requested[entry.handle])
			if err != nil {
				return err
			}
			entry.due = next
			due.schedule(entry)
		}
		if sink != nil {
			if err := sink.Write(w.snapshot(now)); err != nil {
				return fmt.Errorf("[tick %07d] recording: %w", now, err)
			}
		}
	}

	logrus.Infof("[tick %07d] run ended after %d ticks", w.clock, w.ticks)
	return nil
}

func (w *World) stepOne(e *Entity, now int64, requested []string) (int64, error) {
	in, err := w.router.Collect(e.Handle, now)
	if err != nil {
		return 0, &StepError{Entity: e.ID, Clock: now, Err: err}
	}
	logrus.Debugf("[tick %07d] stepping %s", now, e.ID)
	next, err := e.Step(now, in)
	if err != nil {
		return 0, &StepError{Entity: e.ID, Clock: now, Err: err}
	}
	outs, err := outputsOf(e, requested)
	if err != nil {
		return 0, &StepError{Entity: e.ID, Clock: now, Err: err}
	}
	w.router.Publish(e.Handle, now, outs)
	return next, nil
}

func (w *World) snapshot(now int64) TickRecord {
	rec := TickRecord{Clock: now, Samples: make([]Sample, 0, len(w.probes))}
	for _, p := range w.probes {
		e, _ := w.arena.Lookup(p.Entity)
		if v, ok := w.router.Latest(e.Handle, p.Attr); ok {
			rec.Samples = append(rec.Samples, Sample{Entity: p.Entity, Attr: p.Attr, Value: v})
		}
	}
	return rec
}

func containsString(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
