package sim

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devs-sim/devs-sim/sim/internal/testutil"
)

func TestCoordinator_FanOutPreservesMessages(t *testing.T) {
	// GIVEN one ticker coupled to two sinks
	top, tk, first := pipeline(t, 3)
	second := newSink("second")
	require.NoError(t, top.AddComponent(second))
	require.NoError(t, top.AddCoupling(tk.out, second.in))

	// WHEN the model runs to completion
	_, root := runRecorded(t, top, Infinity, false)

	// THEN both sinks received every message in order
	assert.Equal(t, []int{0, 1, 2}, first.State().Received)
	assert.Equal(t, []int{0, 1, 2}, second.State().Received)
	assert.Equal(t, int64(3), root.Metrics().OutputMessages.Load())
	assert.Equal(t, int64(6), root.Metrics().RoutedMessages.Load())
}

func TestCoordinator_BagsEmptyBetweenCycles(t *testing.T) {
	top, tk, sk := pipeline(t, 5)
	root, err := NewRootCoordinator(top, Config{})
	require.NoError(t, err)
	require.NoError(t, root.Start(0))

	for !isInf(root.TimeNext()) {
		require.NoError(t, root.Step())
		for _, c := range []Component{top, tk, sk} {
			assert.True(t, c.InPorts().Empty(), "%s input ports at t=%v", c.ID(), root.Clock())
			assert.True(t, c.OutPorts().Empty(), "%s output ports at t=%v", c.ID(), root.Clock())
		}
	}
	assert.Len(t, sk.State().Received, 5)
}

func TestCoordinator_NestedCouplings(t *testing.T) {
	// GIVEN top{ source{ticker}, dest{sink} } wired through EOC, IC and EIC
	top := NewCoupled("top")
	source := NewCoupled("source")
	sourceOut := AddOutPort[int](source, "out")
	tk := newTicker("ticker", 0, 1, 3)
	require.NoError(t, source.AddComponent(tk))
	require.NoError(t, source.AddExternalOutputCoupling("ticker", "out", "out"))

	dest := NewCoupled("dest")
	destIn := AddInPort[int](dest, "in")
	sk := newSink("sink")
	require.NoError(t, dest.AddComponent(sk))
	require.NoError(t, dest.AddCoupling(destIn, sk.in))

	topOut := AddOutPort[int](top, "out")
	require.NoError(t, top.AddComponent(source))
	require.NoError(t, top.AddComponent(dest))
	require.NoError(t, top.AddCoupling(sourceOut, destIn))
	require.NoError(t, top.AddCoupling(sourceOut, topOut))

	// WHEN the model runs
	records, root := runRecorded(t, top, 10, false)

	// THEN the messages crossed both levels of the hierarchy in one cycle each
	assert.Equal(t, []int{0, 1, 2}, sk.State().Received)
	assert.Equal(t, []float64{0, 1, 1}, sk.State().Elapsed)
	assert.Equal(t, 2.0, root.Clock())
	assert.Equal(t, Infinity, root.TimeNext())

	var sinkStates []float64
	for _, r := range records {
		if r.Model == "top.dest.sink" && r.IsState() {
			sinkStates = append(sinkStates, r.Time)
		}
	}
	assert.Equal(t, []float64{0, 0, 1, 2}, sinkStates)
}

func TestCoordinator_FanInOrderFollowsSourceChildren(t *testing.T) {
	// GIVEN two probes firing together into a third, coupled in reverse attachment order
	top := NewCoupled("top")
	dst := newProbe("dst", Infinity)
	a, b := newProbe("a", 1), newProbe("b", 1)
	for _, c := range []Component{dst, a, b} {
		require.NoError(t, top.AddComponent(c))
	}
	require.NoError(t, top.AddCoupling(b.out, dst.in))
	require.NoError(t, top.AddCoupling(a.out, dst.in))

	// WHEN they fire
	runRecorded(t, top, Infinity, false)

	// THEN the destination bag lists a before b
	assert.Equal(t, []string{"ext(1)[a b]"}, dst.State().Log)
}

func TestCoordinator_ConfluentTieBreak(t *testing.T) {
	// GIVEN a receiver whose internal event coincides with an incoming message
	top := NewCoupled("top")
	src, dst := newProbe("src", 1), newProbe("dst", 1)
	require.NoError(t, top.AddComponent(src))
	require.NoError(t, top.AddComponent(dst))
	require.NoError(t, top.AddCoupling(src.out, dst.in))

	runRecorded(t, top, Infinity, false)

	// THEN the default policy ran internal then external with zero elapsed time
	assert.Equal(t, []string{"int", "ext(0)[src]"}, dst.State().Log)
}

func TestCoordinator_SelfCoupling(t *testing.T) {
	top := NewCoupled("top")
	p := newProbe("p", 1)
	require.NoError(t, top.AddComponent(p))
	require.NoError(t, top.AddCoupling(p.out, p.in))

	runRecorded(t, top, Infinity, false)

	assert.Equal(t, []string{"int", "ext(0)[p]"}, p.State().Log)
}

func TestCoordinator_ExternalInputReachesNestedChild(t *testing.T) {
	// GIVEN a coordinator for a coupled model with an input port
	inner := NewCoupled("inner")
	in := AddInPort[string](inner, "in")
	p := newProbe("p", 10)
	require.NoError(t, inner.AddComponent(p))
	require.NoError(t, inner.AddCoupling(in, p.in))
	c, err := NewCoordinator(inner, Config{})
	require.NoError(t, err)
	require.NoError(t, c.Start(0))

	// WHEN a message is injected and the coordinator transitions before its next event
	in.AddMessage("hello")
	require.NoError(t, c.Transition(4))

	// THEN the child saw an external event and every bag was cleared
	assert.Equal(t, []string{"ext(4)[hello]"}, p.State().Log)
	assert.True(t, in.Empty())
	assert.True(t, p.in.Empty())
	assert.Equal(t, 4.0, c.TimeLast())
	assert.Equal(t, 10.0, c.TimeNext())
}

func TestCoordinator_ClockViolations(t *testing.T) {
	top, _, _ := pipeline(t, 2)
	c, err := NewCoordinator(top, Config{})
	require.NoError(t, err)
	require.NoError(t, c.Start(0))

	assert.ErrorIs(t, c.CollectOutput(1), ErrClock)
	assert.ErrorIs(t, c.Transition(0), ErrClock, "imminent transition without collection")
	require.NoError(t, c.CollectOutput(0))
	assert.Panics(t, func() { _ = c.CollectOutput(0) })
}

func TestCoordinator_InvalidTimeAdvanceAbortsRun(t *testing.T) {
	top := NewCoupled("top")
	require.NoError(t, top.AddComponent(newProbe("bad", -1)))
	root, err := NewRootCoordinator(top, Config{})
	require.NoError(t, err)

	assert.ErrorIs(t, root.Start(0), ErrInvalidTimeAdvance)
}

// grid builds n rows of ticker -> sink nested one level deep.
func grid(t *testing.T, n int) (*Coupled, []*sink) {
	t.Helper()
	top := NewCoupled("top")
	var sinks []*sink
	for i := 0; i < n; i++ {
		row := NewCoupled(fmt.Sprintf("row%d", i))
		tk := newTicker("ticker", float64(i%3), float64(1+i%2), 4)
		sk := newSink("sink")
		require.NoError(t, row.AddComponent(tk))
		require.NoError(t, row.AddComponent(sk))
		require.NoError(t, row.AddCoupling(tk.out, sk.in))
		require.NoError(t, top.AddComponent(row))
		sinks = append(sinks, sk)
	}
	return top, sinks
}

func TestCoordinator_ParallelMatchesSequential(t *testing.T) {
	seqModel, seqSinks := grid(t, 8)
	parModel, parSinks := grid(t, 8)

	seqRecords, seqRoot := runRecorded(t, seqModel, 100, false)
	parRecords, parRoot := runRecorded(t, parModel, 100, true)

	for i := range seqSinks {
		assert.Equal(t, seqSinks[i].State(), parSinks[i].State(), "row %d", i)
	}
	testutil.AssertSameRecords(t, seqRecords, parRecords)
	assert.Equal(t, seqRoot.Metrics().Transitions(), parRoot.Metrics().Transitions())
	assert.Equal(t, seqRoot.Clock(), parRoot.Clock())
}
