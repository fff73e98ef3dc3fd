package efp

import (
	"fmt"
	"math/rand"

	"github.com/devs-sim/devs-sim/sim"
)

// ServiceMode selects how the processor draws its processing times.
type ServiceMode string

const (
	// ServiceConstant spends the configured processing time on every job.
	ServiceConstant ServiceMode = "constant"
	// ServiceExponential draws processing times from an exponential
	// distribution whose mean is the configured processing time.
	ServiceExponential ServiceMode = "exponential"
)

// validServiceModes is the registry of accepted service modes.
var validServiceModes = map[ServiceMode]bool{
	ServiceConstant:    true,
	ServiceExponential: true,
	"":                 true, // empty defaults to constant
}

// IsValidServiceMode returns true if name is a recognized service mode.
func IsValidServiceMode(name string) bool {
	return validServiceModes[ServiceMode(name)]
}

// ProcessorState is the state of a Processor.
type ProcessorState struct {
	Sigma float64
	Busy  bool
	Job   Job
}

// Processor works on one job at a time for a fixed or exponentially drawn
// processing time. Jobs arriving while it is busy are dropped; of several
// jobs arriving together it takes the last one.
type Processor struct {
	*sim.Atomic[ProcessorState]
	processingTime float64
	rng            *rand.Rand // nil for constant processing times
	in             *sim.Port[Job]
	out            *sim.Port[Job]
}

// NewProcessor creates an idle processor.
func NewProcessor(id string, processingTime float64) *Processor {
	p := &Processor{processingTime: processingTime}
	p.Atomic = sim.NewAtomic(id, ProcessorState{Sigma: sim.Infinity}, sim.Behavior[ProcessorState](p))
	p.in = sim.AddInPort[Job](p, "in")
	p.out = sim.AddOutPort[Job](p, "out")
	return p
}

// NewExponentialProcessor creates a processor whose processing times are
// exponentially distributed with mean processingTime, drawn from rng.
func NewExponentialProcessor(id string, processingTime float64, rng *rand.Rand) (*Processor, error) {
	if rng == nil {
		return nil, fmt.Errorf("processor %q: exponential service needs a random source: %w", id, sim.ErrConfig)
	}
	p := NewProcessor(id, processingTime)
	p.rng = rng
	return p, nil
}

func (p *Processor) serviceTime() float64 {
	if p.rng == nil {
		return p.processingTime
	}
	return p.rng.ExpFloat64() * p.processingTime
}

func (p *Processor) TimeAdvance(s ProcessorState) float64 { return s.Sigma }

func (p *Processor) Output(s ProcessorState, y *sim.PortSet) {
	p.out.AddMessage(s.Job)
}

func (p *Processor) InternalTransition(s *ProcessorState) {
	s.Sigma = sim.Infinity
	s.Busy = false
	s.Job = Job{}
}

func (p *Processor) ExternalTransition(s *ProcessorState, e float64, x *sim.PortSet) {
	s.Sigma -= e
	if s.Busy {
		return
	}
	if job, ok := p.in.Last(); ok {
		s.Job = job
		s.Busy = true
		s.Sigma = p.serviceTime()
	}
}
