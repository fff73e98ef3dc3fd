package sim

import (
	"fmt"
	"math"

	"go.opentelemetry.io/otel/metric"
)

// AbstractSimulator is the contract a coordinator uses to drive its children.
// Simulator and Coordinator both implement it, so a coordinator cannot tell
// an atomic child from a coupled one.
type AbstractSimulator interface {
	// Model returns the component being simulated.
	Model() Component
	TimeLast() float64
	TimeNext() float64
	// Start initializes the clocks at the simulation start time t.
	Start(t float64) error
	// CollectOutput produces the outputs of the event at t, which must equal TimeNext.
	CollectOutput(t float64) error
	// Transition fires the transition due at t given the current input ports.
	Transition(t float64) error
	// Clear empties the model's input and output ports.
	Clear()
}

// Simulator wraps one atomic model and owns its local clock.
type Simulator struct {
	model     AtomicModel
	path      string
	env       *environment
	tLast     float64
	tNext     float64
	collected bool
}

// NewSimulator creates a standalone simulator for an atomic model. Inside a
// hierarchy, coordinators create their simulators themselves.
func NewSimulator(model AtomicModel, cfg Config) (*Simulator, error) {
	if err := model.base().err(); err != nil {
		return nil, err
	}
	return newSimulator(model, Path(model), newEnvironment(cfg)), nil
}

func newSimulator(model AtomicModel, path string, env *environment) *Simulator {
	return &Simulator{model: model, path: path, env: env, tNext: Infinity}
}

func (s *Simulator) Model() Component  { return s.model }
func (s *Simulator) TimeLast() float64 { return s.tLast }
func (s *Simulator) TimeNext() float64 { return s.tNext }

// Start sets tLast to t and schedules the first internal event.
func (s *Simulator) Start(t float64) error {
	s.tLast = t
	s.collected = false
	ta, err := s.timeAdvance()
	if err != nil {
		return err
	}
	s.tNext = t + ta
	s.logState(t)
	return nil
}

// CollectOutput calls the model's output function for the internal event at t.
// Collecting twice for the same event is a programming error and panics.
func (s *Simulator) CollectOutput(t float64) error {
	if t != s.tNext {
		return fmt.Errorf("%s: output collected at t=%v, next event at t=%v: %w", s.path, t, s.tNext, ErrClock)
	}
	if s.collected {
		panic(fmt.Sprintf("sim: output of %s collected twice at t=%v", s.path, t))
	}
	s.model.output()
	s.collected = true

	for _, p := range s.model.OutPorts().Ports() {
		if p.Empty() {
			continue
		}
		s.env.metrics.OutputMessages.Add(int64(p.Len()))
		if s.env.logger != nil {
			for _, msg := range p.Values() {
				s.env.logger.LogOutput(t, s.path, p.ID(), fmt.Sprint(msg))
			}
		}
	}
	return nil
}

// Transition fires the transition due at t:
//   - input pending and t == tNext: confluent transition
//   - no input and t == tNext: internal transition
//   - input pending and t < tNext: external transition with e = t - tLast
//   - otherwise nothing happens
func (s *Simulator) Transition(t float64) error {
	if t < s.tLast || t > s.tNext {
		return fmt.Errorf("%s: transition at t=%v outside [%v, %v]: %w", s.path, t, s.tLast, s.tNext, ErrClock)
	}
	hasInput := !s.model.InPorts().Empty()
	imminent := t == s.tNext
	if imminent && !s.collected {
		return fmt.Errorf("%s: internal event at t=%v fired without output collection: %w", s.path, t, ErrClock)
	}

	ctx := s.env.ctx
	switch {
	case imminent && hasInput:
		s.model.confluentTransition()
		s.env.metrics.ConfluentTransitions.Add(1)
		transitionsCounter.Add(ctx, 1, metric.WithAttributeSet(confluentAttrs))
	case imminent:
		s.model.internalTransition()
		s.env.metrics.InternalTransitions.Add(1)
		transitionsCounter.Add(ctx, 1, metric.WithAttributeSet(internalAttrs))
	case hasInput:
		s.model.externalTransition(t - s.tLast)
		s.env.metrics.ExternalTransitions.Add(1)
		transitionsCounter.Add(ctx, 1, metric.WithAttributeSet(externalAttrs))
	default:
		return nil
	}

	s.collected = false
	s.tLast = t
	ta, err := s.timeAdvance()
	if err != nil {
		return err
	}
	s.tNext = t + ta
	s.logState(t)
	return nil
}

// Clear empties the model's input and output ports.
func (s *Simulator) Clear() {
	s.model.InPorts().Clear()
	s.model.OutPorts().Clear()
}

func (s *Simulator) timeAdvance() (float64, error) {
	ta := s.model.timeAdvance()
	if math.IsNaN(ta) || ta < 0 {
		s.tNext = Infinity
		return 0, fmt.Errorf("%s: time advance %v at t=%v: %w", s.path, ta, s.tLast, ErrInvalidTimeAdvance)
	}
	return ta, nil
}

func (s *Simulator) logState(t float64) {
	if s.env.logger != nil {
		s.env.logger.LogState(t, s.path, s.model.stateString())
	}
}
