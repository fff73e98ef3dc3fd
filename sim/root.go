package sim

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RootCoordinator drives a top-level coupled model: it owns the run lifecycle
// (start, cycles, stop), the trajectory logger and the run metrics.
type RootCoordinator struct {
	model   CoupledModel
	coord   *Coordinator
	env     *environment
	clock   float64
	started bool
	stopped bool
}

// NewRootCoordinator builds the simulator hierarchy for model. Declaration
// errors recorded on the model surface here.
func NewRootCoordinator(model CoupledModel, cfg Config) (*RootCoordinator, error) {
	if model == nil {
		return nil, fmt.Errorf("nil root model: %w", ErrConfig)
	}
	if model.Parent() != nil {
		return nil, fmt.Errorf("root model %q is attached to %q: %w", model.ID(), model.Parent().ID(), ErrConfig)
	}
	if err := model.base().err(); err != nil {
		return nil, err
	}
	env := newEnvironment(cfg)
	coord, err := newCoordinator(model.coupled(), model.ID(), env)
	if err != nil {
		return nil, err
	}
	return &RootCoordinator{model: model, coord: coord, env: env}, nil
}

// Start opens the trajectory logger and initializes every model at t0.
func (r *RootCoordinator) Start(t0 float64) error {
	if r.started {
		return fmt.Errorf("root coordinator of %q already started: %w", r.model.ID(), ErrClock)
	}
	if math.IsNaN(t0) || math.IsInf(t0, 0) {
		return fmt.Errorf("start time %v must be finite: %w", t0, ErrClock)
	}
	r.started = true
	if r.env.logger != nil {
		if err := r.env.logger.Start(); err != nil {
			return fmt.Errorf("starting trajectory logger: %w", err)
		}
	}
	r.env.metrics.SimStartTime = t0
	r.env.metrics.SimEndedTime = t0
	r.env.metrics.WallStart = time.Now()
	r.clock = t0
	logrus.Debugf("[root %s] starting at t=%v", r.model.ID(), t0)
	return r.coord.Start(t0)
}

// Simulate runs cycles while the next event time is not later than until.
// A root that was not started explicitly is started at time 0.
func (r *RootCoordinator) Simulate(until float64) error {
	return r.SimulateContext(context.Background(), until)
}

// SimulateContext is Simulate with cancellation checked between cycles.
func (r *RootCoordinator) SimulateContext(ctx context.Context, until float64) error {
	if err := r.ensureStarted(); err != nil {
		return err
	}
	ctx, span := tracer.Start(ctx, "devs.Simulate", trace.WithAttributes(
		attribute.String(modelKey, r.model.ID()),
		attribute.Float64("devs.until", until),
	))
	defer span.End()

	start := time.Now()
	defer func() { measureSimulate(ctx, r.model.ID(), time.Since(start)) }()

	r.env.ctx = ctx
	defer func() { r.env.ctx = context.Background() }()

	for r.coord.TimeNext() <= until && !math.IsInf(r.coord.TimeNext(), 1) {
		err := ctx.Err()
		if err == nil {
			err = r.step()
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}
	span.SetAttributes(attribute.Int64("devs.cycles", r.env.metrics.Cycles.Load()))
	return nil
}

// SimulateIterations runs at most n cycles, stopping early when every model is passive.
func (r *RootCoordinator) SimulateIterations(n int) error {
	if err := r.ensureStarted(); err != nil {
		return err
	}
	for i := 0; i < n && !math.IsInf(r.coord.TimeNext(), 1); i++ {
		if err := r.step(); err != nil {
			return err
		}
	}
	return nil
}

// Step runs exactly one cycle at the next event time. Stepping a model whose
// next event time is Infinity is a no-op.
func (r *RootCoordinator) Step() error {
	if err := r.ensureStarted(); err != nil {
		return err
	}
	if math.IsInf(r.coord.TimeNext(), 1) {
		return nil
	}
	return r.step()
}

func (r *RootCoordinator) step() error {
	t := r.coord.TimeNext()
	if err := r.coord.CollectOutput(t); err != nil {
		return err
	}
	if err := r.coord.Transition(t); err != nil {
		return err
	}
	r.coord.Clear()
	r.clock = t
	r.env.metrics.SimEndedTime = t
	r.env.metrics.Cycles.Add(1)
	cyclesCounter.Add(r.env.ctx, 1)
	logrus.Debugf("[root %s] cycle at t=%v, next event at t=%v", r.model.ID(), t, r.coord.TimeNext())
	return nil
}

// Stop flushes and closes the trajectory logger and finalizes the metrics.
// The root coordinator cannot be used after Stop.
func (r *RootCoordinator) Stop() error {
	if r.stopped {
		return nil
	}
	r.stopped = true
	if r.started {
		r.env.metrics.WallDuration = time.Since(r.env.metrics.WallStart)
	}
	logrus.Debugf("[root %s] stopped at t=%v after %d cycles", r.model.ID(), r.clock, r.env.metrics.Cycles.Load())
	if r.env.logger != nil && r.started {
		if err := r.env.logger.Stop(); err != nil {
			return fmt.Errorf("stopping trajectory logger: %w", err)
		}
	}
	return nil
}

func (r *RootCoordinator) ensureStarted() error {
	if r.stopped {
		panic(fmt.Sprintf("sim: root coordinator of %q used after Stop", r.model.ID()))
	}
	if !r.started {
		return r.Start(0)
	}
	return nil
}

// TimeNext returns the time of the next event, or Infinity when every model is passive.
func (r *RootCoordinator) TimeNext() float64 { return r.coord.TimeNext() }

// Clock returns the time of the last executed cycle, or the start time.
func (r *RootCoordinator) Clock() float64 { return r.clock }

// Metrics returns the statistics of the run.
func (r *RootCoordinator) Metrics() *Metrics { return r.env.metrics }

// Model returns the top-level model.
func (r *RootCoordinator) Model() CoupledModel { return r.model }
