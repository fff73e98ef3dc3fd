package celldevs

import (
	"fmt"
	"sort"

	"github.com/devs-sim/devs-sim/sim"
)

// delayBuffer holds the state changes a cell has computed but not published yet.
// Times are in the cell's local clock.
type delayBuffer[S any] interface {
	// add schedules state for publication at time t.
	add(state S, t float64)
	// next returns the time of the earliest pending publication, or sim.Infinity.
	next() float64
	// peek returns the state published at next().
	peek() S
	// pop drops the publication at next().
	pop()
}

func newDelayBuffer[S any](d DelayType) (delayBuffer[S], error) {
	switch d {
	case DelayInertial, "":
		return &inertialBuffer[S]{t: sim.Infinity}, nil
	case DelayTransport:
		return &transportBuffer[S]{}, nil
	default:
		return nil, fmt.Errorf("unknown delay %q: %w", d, sim.ErrConfig)
	}
}

// inertialBuffer has room for one state: a newer change replaces a pending one.
type inertialBuffer[S any] struct {
	state S
	t     float64
}

func (b *inertialBuffer[S]) add(state S, t float64) {
	b.state, b.t = state, t
}

func (b *inertialBuffer[S]) next() float64 { return b.t }
func (b *inertialBuffer[S]) peek() S       { return b.state }

func (b *inertialBuffer[S]) pop() {
	var zero S
	b.state, b.t = zero, sim.Infinity
}

type pending[S any] struct {
	t     float64
	state S
}

// transportBuffer publishes every change in time order. Two changes scheduled
// for the same time collapse into the later one.
type transportBuffer[S any] struct {
	queue []pending[S]
}

func (b *transportBuffer[S]) add(state S, t float64) {
	i := sort.Search(len(b.queue), func(i int) bool { return b.queue[i].t >= t })
	if i < len(b.queue) && b.queue[i].t == t {
		b.queue[i].state = state
		return
	}
	b.queue = append(b.queue, pending[S]{})
	copy(b.queue[i+1:], b.queue[i:])
	b.queue[i] = pending[S]{t: t, state: state}
}

func (b *transportBuffer[S]) next() float64 {
	if len(b.queue) == 0 {
		return sim.Infinity
	}
	return b.queue[0].t
}

func (b *transportBuffer[S]) peek() S {
	return b.queue[0].state
}

func (b *transportBuffer[S]) pop() {
	b.queue = b.queue[1:]
}
