// Tracks run-wide execution statistics such as cycles executed, transitions
// fired per kind, and messages moved along couplings.

package sim

import (
	"fmt"
	"io"
	"math"
	"sync/atomic"
	"time"
)

// Metrics aggregates statistics about a simulation run for final reporting.
// Counters are updated atomically so parallel coordinators can share them.
type Metrics struct {
	Cycles               atomic.Int64 // output/transition cycles executed by the root driver
	InternalTransitions  atomic.Int64
	ExternalTransitions  atomic.Int64
	ConfluentTransitions atomic.Int64
	OutputMessages       atomic.Int64 // messages written by atomic models' output functions
	RoutedMessages       atomic.Int64 // messages copied along couplings (fan-out counted per edge)

	SimStartTime float64   // simulation time the run started at
	SimEndedTime float64   // simulation time of the last executed cycle
	WallStart    time.Time // wall-clock start of the run
	WallDuration time.Duration
}

// NewMetrics creates an empty Metrics.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Transitions returns the total number of transitions of every kind.
func (m *Metrics) Transitions() int64 {
	return m.InternalTransitions.Load() + m.ExternalTransitions.Load() + m.ConfluentTransitions.Load()
}

// Print displays aggregated metrics at the end of the simulation.
func (m *Metrics) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Simulation Metrics ===")
	fmt.Fprintf(w, "Start Time           : %v\n", m.SimStartTime)
	fmt.Fprintf(w, "End Time             : %v\n", m.SimEndedTime)
	fmt.Fprintf(w, "Cycles               : %d\n", m.Cycles.Load())
	fmt.Fprintf(w, "Internal Transitions : %d\n", m.InternalTransitions.Load())
	fmt.Fprintf(w, "External Transitions : %d\n", m.ExternalTransitions.Load())
	fmt.Fprintf(w, "Confluent Transitions: %d\n", m.ConfluentTransitions.Load())
	fmt.Fprintf(w, "Output Messages      : %d\n", m.OutputMessages.Load())
	fmt.Fprintf(w, "Routed Messages      : %d\n", m.RoutedMessages.Load())
	if span := m.SimEndedTime - m.SimStartTime; span > 0 && !math.IsInf(span, 0) {
		fmt.Fprintf(w, "Cycles per Time Unit : %.4f\n", float64(m.Cycles.Load())/span)
	}
	fmt.Fprintf(w, "Wall Time            : %s\n", m.WallDuration)
}
