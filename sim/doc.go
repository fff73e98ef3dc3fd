// Package sim provides the core hierarchical DEVS simulation engine.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - port.go: typed message bags (Port[T]) and the port sets every component owns
//   - atomic.go: the Behavior contract of leaf models and the default confluent policy
//   - coupled.go: composition, coupling registration and build-time validation
//   - simulator.go / coordinator.go: the abstract-simulator protocol
//   - root.go: the driver loop (collect output, transition, clear, repeat)
//
// # Architecture
//
// A model tree of Atomic and Coupled components is mirrored by a tree of
// Simulator and Coordinator nodes, both implementing AbstractSimulator. Every
// cycle runs in two phases over the whole tree: first every imminent atomic
// model produces output and the coordinators route it along their couplings,
// then every model that is imminent or received input transitions. Ports are
// cleared after the second phase, so a message lives for exactly one cycle.
//
// Couplings are type-checked once, when they are registered. Routing at run
// time never inspects message types.
//
// Sub-packages build on the kernel:
//   - sim/trace/: trajectory records and loggers (CSV, SQLite, in-memory)
//   - sim/celldevs/: Cell-DEVS cells, scenario loading and grid construction
//   - sim/efp/: the experimental frame / processor example models
//
// # Key Interfaces
//
// The extension points are small interfaces:
//   - Behavior[S]: time advance, output, internal and external transitions of an atomic model
//   - ConfluentBehavior[S]: optional tie-break override for simultaneous events
//   - trace.Logger: trajectory sink receiving every state and output message
package sim
