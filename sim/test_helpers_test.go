package sim

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devs-sim/devs-sim/sim/trace"
)

// tickerState counts emitted ticks; Sigma is the time to the next tick.
type tickerState struct {
	Count int
	Sigma float64
}

// ticker emits its tick count on "out" every period until limit ticks were sent.
type ticker struct {
	*Atomic[tickerState]
	period float64
	limit  int
	out    *Port[int]
}

func newTicker(id string, first, period float64, limit int) *ticker {
	t := &ticker{period: period, limit: limit}
	t.Atomic = NewAtomic(id, tickerState{Sigma: first}, Behavior[tickerState](t))
	t.out = AddOutPort[int](t, "out")
	return t
}

func (t *ticker) TimeAdvance(s tickerState) float64 { return s.Sigma }

func (t *ticker) Output(s tickerState, y *PortSet) {
	if err := AddMessage(y, "out", s.Count); err != nil {
		panic(err)
	}
}

func (t *ticker) InternalTransition(s *tickerState) {
	s.Count++
	s.Sigma = t.period
	if s.Count >= t.limit {
		s.Sigma = Infinity
	}
}

func (t *ticker) ExternalTransition(s *tickerState, e float64, x *PortSet) {
	s.Sigma -= e
}

// sinkState remembers every message received and the elapsed time of each external transition.
type sinkState struct {
	Received []int
	Elapsed  []float64
}

// sink is a passive model that stores what arrives on "in".
type sink struct {
	*Atomic[sinkState]
	in *Port[int]
}

func newSink(id string) *sink {
	s := &sink{}
	s.Atomic = NewAtomic(id, sinkState{}, Behavior[sinkState](s))
	s.in = AddInPort[int](s, "in")
	return s
}

func (k *sink) TimeAdvance(sinkState) float64 { return Infinity }
func (k *sink) Output(sinkState, *PortSet)    {}
func (k *sink) InternalTransition(*sinkState) {}

func (k *sink) ExternalTransition(s *sinkState, e float64, x *PortSet) {
	s.Received = append(s.Received, k.in.Messages()...)
	s.Elapsed = append(s.Elapsed, e)
}

// probeState logs the transitions fired on a probe.
type probeState struct {
	Log   []string
	Sigma float64
}

// probe fires one internal event at Sigma and logs every transition it sees.
type probe struct {
	*Atomic[probeState]
	in  *Port[string]
	out *Port[string]
}

func newProbe(id string, sigma float64) *probe {
	p := &probe{}
	p.Atomic = NewAtomic(id, probeState{Sigma: sigma}, Behavior[probeState](p))
	p.in = AddInPort[string](p, "in")
	p.out = AddOutPort[string](p, "out")
	return p
}

func (p *probe) TimeAdvance(s probeState) float64 { return s.Sigma }

func (p *probe) Output(s probeState, y *PortSet) { p.out.AddMessage(p.ID()) }

func (p *probe) InternalTransition(s *probeState) {
	s.Log = append(s.Log, "int")
	s.Sigma = Infinity
}

func (p *probe) ExternalTransition(s *probeState, e float64, x *PortSet) {
	s.Log = append(s.Log, fmt.Sprintf("ext(%v)%v", e, p.in.Messages()))
	s.Sigma -= e
}

// confluentProbe overrides the default tie-break: external first, then internal.
type confluentProbe struct {
	*probe
}

func newConfluentProbe(id string, sigma float64) *confluentProbe {
	p := &confluentProbe{probe: &probe{}}
	p.Atomic = NewAtomic(id, probeState{Sigma: sigma}, Behavior[probeState](p))
	p.in = AddInPort[string](p, "in")
	p.out = AddOutPort[string](p, "out")
	return p
}

func (p *confluentProbe) ConfluentTransition(s *probeState, x *PortSet) {
	s.Log = append(s.Log, "conf")
	p.ExternalTransition(s, 0, x)
	p.InternalTransition(s)
}

// pipeline builds top{ticker -> sink} with an IC between them.
func pipeline(t *testing.T, limit int) (*Coupled, *ticker, *sink) {
	t.Helper()
	top := NewCoupled("top")
	tk := newTicker("ticker", 0, 1, limit)
	sk := newSink("sink")
	require.NoError(t, top.AddComponent(tk))
	require.NoError(t, top.AddComponent(sk))
	require.NoError(t, top.AddCoupling(tk.out, sk.in))
	return top, tk, sk
}

// runRecorded simulates model until the horizon with an in-memory trajectory.
func runRecorded(t *testing.T, model CoupledModel, until float64, parallel bool) ([]trace.Record, *RootCoordinator) {
	t.Helper()
	rec := trace.NewRecorder()
	root, err := NewRootCoordinator(model, Config{Logger: rec, Parallel: parallel})
	require.NoError(t, err)
	require.NoError(t, root.Start(0))
	require.NoError(t, root.Simulate(until))
	require.NoError(t, root.Stop())
	return rec.Records(), root
}

func isInf(t float64) bool {
	return t == Infinity
}
