package efp

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/devs-sim/devs-sim/sim"
)

// Report is what the transducer observed during its window.
type Report struct {
	EndTime   float64
	Generated int
	Processed int
	// AverageTA is the mean turnaround time of processed jobs; zero when none were processed.
	AverageTA float64
	// Throughput is Processed / EndTime; zero when the window is empty.
	Throughput float64
}

// Print displays the report in the same layout as the run metrics.
func (r Report) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Experimental Frame Report ===")
	fmt.Fprintf(w, "End Time       : %v\n", r.EndTime)
	fmt.Fprintf(w, "Jobs Generated : %d\n", r.Generated)
	fmt.Fprintf(w, "Jobs Processed : %d\n", r.Processed)
	if r.Processed > 0 {
		fmt.Fprintf(w, "Average TA     : %v\n", r.AverageTA)
	}
	if r.EndTime > 0 {
		fmt.Fprintf(w, "Throughput     : %v\n", r.Throughput)
	}
}

// TransducerState is the state of a Transducer.
type TransducerState struct {
	Clock     float64
	Sigma     float64
	TotalTA   float64
	Generated int
	Processed int
	Done      bool
	Report    Report
}

// Transducer counts generated and processed jobs during an observation
// window. When the window ends it sends true on its stop port and freezes
// its report.
type Transducer struct {
	*sim.Atomic[TransducerState]
	generated *sim.Port[Job]
	processed *sim.Port[Job]
	stop      *sim.Port[bool]
}

// NewTransducer creates a transducer observing for obsTime time units.
func NewTransducer(id string, obsTime float64) *Transducer {
	t := &Transducer{}
	t.Atomic = sim.NewAtomic(id, TransducerState{Sigma: obsTime}, sim.Behavior[TransducerState](t))
	t.generated = sim.AddInPort[Job](t, "generated")
	t.processed = sim.AddInPort[Job](t, "processed")
	t.stop = sim.AddOutPort[bool](t, "stop")
	return t
}

func (t *Transducer) TimeAdvance(s TransducerState) float64 { return s.Sigma }

func (t *Transducer) Output(s TransducerState, y *sim.PortSet) {
	t.stop.AddMessage(true)
}

func (t *Transducer) InternalTransition(s *TransducerState) {
	s.Clock += s.Sigma
	s.Sigma = sim.Infinity
	s.Done = true

	r := Report{EndTime: s.Clock, Generated: s.Generated, Processed: s.Processed}
	if s.Processed > 0 {
		r.AverageTA = s.TotalTA / float64(s.Processed)
	}
	if s.Clock > 0 {
		r.Throughput = float64(s.Processed) / s.Clock
	}
	s.Report = r
	logrus.Infof("[transducer] window closed at t=%v: %d generated, %d processed", r.EndTime, r.Generated, r.Processed)
}

func (t *Transducer) ExternalTransition(s *TransducerState, e float64, x *sim.PortSet) {
	s.Clock += e
	s.Sigma -= e
	for _, job := range t.generated.Messages() {
		s.Generated++
		logrus.Debugf("[transducer] job %d generated at t=%v", job.ID, s.Clock)
	}
	for _, job := range t.processed.Messages() {
		s.Processed++
		job.TimeProcessed = s.Clock
		s.TotalTA += job.TimeProcessed - job.TimeGenerated
		logrus.Debugf("[transducer] job %d processed at t=%v", job.ID, s.Clock)
	}
}

// Report returns the report frozen when the window closed, and whether it has closed.
func (t *Transducer) Report() (Report, bool) {
	s := t.State()
	return s.Report, s.Done
}
