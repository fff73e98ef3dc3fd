package sim

import (
	"fmt"
	"math"
)

// Infinity is the time advance of a passive model.
var Infinity = math.Inf(1)

// Behavior is implemented by concrete atomic models. Every method receives the
// model's state; Output and TimeAdvance get a copy and must not change it.
type Behavior[S any] interface {
	// TimeAdvance returns the time until the next internal event, or Infinity.
	TimeAdvance(s S) float64
	// Output writes the messages produced right before an internal or
	// confluent transition to the model's output ports.
	Output(s S, y *PortSet)
	// InternalTransition computes the state after an autonomous event.
	InternalTransition(s *S)
	// ExternalTransition computes the state after input arrived e time units
	// after the last transition and strictly before the next internal event.
	ExternalTransition(s *S, e float64, x *PortSet)
}

// ConfluentBehavior lets a model choose its own tie-break when input arrives
// exactly at its next internal event. Models that do not implement it get the
// default: InternalTransition, then ExternalTransition with e = 0.
type ConfluentBehavior[S any] interface {
	ConfluentTransition(s *S, x *PortSet)
}

// AtomicModel is the capability set the Simulator drives. Only types that
// embed *Atomic[S] implement it.
type AtomicModel interface {
	Component
	timeAdvance() float64
	output()
	internalTransition()
	externalTransition(e float64)
	confluentTransition()
	stateString() string
}

// Atomic is the leaf model: a component that owns a state of type S and
// delegates its dynamics to a Behavior. Model types usually embed *Atomic[S]
// and pass themselves as the behavior:
//
//	g := &Generator{period: period}
//	g.Atomic = sim.NewAtomic[GeneratorState]("generator", GeneratorState{}, g)
//	g.out = sim.AddOutPort[Job](g, "out")
type Atomic[S any] struct {
	component
	state    S
	behavior Behavior[S]
}

// NewAtomic creates an atomic model with the given initial state.
func NewAtomic[S any](id string, initial S, behavior Behavior[S]) *Atomic[S] {
	a := &Atomic[S]{state: initial, behavior: behavior}
	a.component.init(a, id)
	if behavior == nil {
		a.fail(fmt.Errorf("atomic model %q has no behavior: %w", id, ErrConfig))
	}
	return a
}

// State returns a copy of the current state, for inspection after or between runs.
func (a *Atomic[S]) State() S {
	return a.state
}

func (a *Atomic[S]) timeAdvance() float64 {
	return a.behavior.TimeAdvance(a.state)
}

func (a *Atomic[S]) output() {
	a.behavior.Output(a.state, a.out)
}

func (a *Atomic[S]) internalTransition() {
	a.behavior.InternalTransition(&a.state)
}

func (a *Atomic[S]) externalTransition(e float64) {
	a.behavior.ExternalTransition(&a.state, e, a.in)
}

func (a *Atomic[S]) confluentTransition() {
	if c, ok := a.behavior.(ConfluentBehavior[S]); ok {
		c.ConfluentTransition(&a.state, a.in)
		return
	}
	a.behavior.InternalTransition(&a.state)
	a.behavior.ExternalTransition(&a.state, 0, a.in)
}

func (a *Atomic[S]) stateString() string {
	return fmt.Sprintf("%+v", a.state)
}
