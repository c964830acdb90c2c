// Package sim provides the discrete-time co-simulation kernel for homesim.
//
// # Reading Guide
//
// Start with these three files to understand the kernel:
//   - entity.go: EntityType, Model and the per-step Inputs view with fan-in aggregation
//   - graph.go: Connection validation and the topological step order
//   - world.go: the run loop that steps due entities, latches outputs and records ticks
//
// # Architecture
//
// The sim package defines the kernel types; entity types and tooling live in
// sub-packages:
//   - sim/devices/: physical models (building, battery, grid, PV, appliances)
//   - sim/control/: rule-driven controllers built on sim/rules/
//   - sim/rules/: the forward-chaining rule engine used by controllers
//   - sim/scenario/: scenario files, schema validation and world construction
//   - sim/record/: persistent sinks (compressed JSONL, SQLite)
//   - sim/trace/: decision trace recording
//
// There is no package-level registry. Callers build a Catalog explicitly and hand it
// to NewWorld, so two worlds never share state.
//
// # Time
//
// Time is an integer number of seconds. Each entity type has a fixed step size and every
// entity first steps at 0. A tick is one logical time at which at least one entity is due;
// ticks where nobody is due are skipped.
package sim
