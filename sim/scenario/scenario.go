// Package scenario loads YAML scenario files and builds runnable worlds from them.
package scenario

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/homesim/homesim/sim"
	"github.com/homesim/homesim/sim/control"
	"github.com/homesim/homesim/sim/devices"
	"github.com/homesim/homesim/sim/trace"
)

// Scenario is the declarative description of one run.
type Scenario struct {
	Version     int              `yaml:"version"`
	Seed        int64            `yaml:"seed"`
	End         int64            `yaml:"end"`
	Trace       trace.TraceLevel `yaml:"trace"`
	Entities    []EntitySpec     `yaml:"entities"`
	Connections []ConnectionSpec `yaml:"connections"`
	Record      []string         `yaml:"record"`
}

// EntitySpec creates Count entities of one type, with ids Prefix_0 .. Prefix_{Count-1}.
type EntitySpec struct {
	Type   string     `yaml:"type"`
	Prefix string     `yaml:"prefix"`
	Count  int        `yaml:"count"`
	Params sim.Params `yaml:"params"`
}

// ConnectionSpec wires "id.attr" to "id.attr".
type ConnectionSpec struct {
	From    string     `yaml:"from"`
	To      string     `yaml:"to"`
	Delayed bool       `yaml:"delayed"`
	Initial *sim.Value `yaml:"initial"`
}

// Load reads, schema-checks and strictly decodes a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	return Parse(data)
}

// Parse schema-checks and strictly decodes scenario YAML.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func Parse(data []byte) (*Scenario, error) {
	if err := validateDocument(data); err != nil {
		return nil, err
	}
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	for i := range s.Entities {
		if s.Entities[i].Count == 0 {
			s.Entities[i].Count = 1
		}
	}
	return &s, nil
}

// DefaultCatalog returns a catalog with every built-in device and controller type.
func DefaultCatalog() *sim.Catalog {
	c := sim.NewCatalog()
	if err := devices.Register(c); err != nil {
		panic(err)
	}
	if err := control.Register(c); err != nil {
		panic(err)
	}
	return c
}

// Options override scenario fields at build time. Zero values keep the scenario's own.
type Options struct {
	End   *int64
	Seed  *int64
	Trace trace.TraceLevel
}

// Build instantiates the scenario's entities, connections and probes. The returned trace is
// nil unless decision tracing is on.
func Build(s *Scenario, cat *sim.Catalog, opts Options) (*sim.World, *trace.SimulationTrace, error) {
	cfg := sim.WorldConfig{Catalog: cat, Seed: s.Seed, End: s.End}
	if opts.End != nil {
		cfg.End = *opts.End
	}
	if opts.Seed != nil {
		cfg.Seed = *opts.Seed
	}
	level := s.Trace
	if opts.Trace != "" {
		level = opts.Trace
	}
	if !trace.IsValidTraceLevel(string(level)) {
		return nil, nil, fmt.Errorf("unknown trace level %q", level)
	}
	if level == trace.TraceLevelDecisions {
		cfg.Trace = trace.NewSimulationTrace(trace.TraceConfig{Level: level})
	}

	w := sim.NewWorld(cfg)
	for i, e := range s.Entities {
		count := e.Count
		if count == 0 {
			count = 1
		}
		if _, err := w.Create(count, e.Type, e.Prefix, e.Params); err != nil {
			return nil, nil, fmt.Errorf("entities[%d]: %w", i, err)
		}
	}
	for i, c := range s.Connections {
		from, fromAttr, err := splitEndpoint(c.From)
		if err != nil {
			return nil, nil, fmt.Errorf("connections[%d].from: %w", i, err)
		}
		to, toAttr, err := splitEndpoint(c.To)
		if err != nil {
			return nil, nil, fmt.Errorf("connections[%d].to: %w", i, err)
		}
		conn := sim.Connection{From: from, FromAttr: fromAttr, To: to, ToAttr: toAttr, Delayed: c.Delayed, Initial: c.Initial}
		if err := w.Connect(conn); err != nil {
			return nil, nil, fmt.Errorf("connections[%d]: %w", i, err)
		}
	}
	for i, r := range s.Record {
		id, attr, err := splitEndpoint(r)
		if err != nil {
			return nil, nil, fmt.Errorf("record[%d]: %w", i, err)
		}
		if err := w.Record(id, attr); err != nil {
			return nil, nil, fmt.Errorf("record[%d]: %w", i, err)
		}
	}
	if err := w.Validate(); err != nil {
		return nil, nil, err
	}
	return w, cfg.Trace, nil
}

func splitEndpoint(s string) (id, attr string, err error) {
	id, attr, ok := strings.Cut(s, ".")
	if !ok || id == "" || attr == "" {
		return "", "", fmt.Errorf("endpoint %q must be entity.attr", s)
	}
	return id, attr, nil
}
