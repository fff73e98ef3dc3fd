package efp

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/devs-sim/devs-sim/sim"
)

// ArrivalMode selects how the generator spaces jobs.
type ArrivalMode string

const (
	// ArrivalConstant emits one job every period.
	ArrivalConstant ArrivalMode = "constant"
	// ArrivalExponential draws inter-arrival times from an exponential
	// distribution whose mean is the period.
	ArrivalExponential ArrivalMode = "exponential"
)

// validArrivalModes is the registry of accepted arrival modes.
var validArrivalModes = map[ArrivalMode]bool{
	ArrivalConstant:    true,
	ArrivalExponential: true,
}

// IsValidArrivalMode returns true if name is a recognized arrival mode.
func IsValidArrivalMode(name string) bool {
	return validArrivalModes[ArrivalMode(name)]
}

// GeneratorState is the state of a Generator.
type GeneratorState struct {
	Clock    float64
	Sigma    float64
	JobCount int
}

// Generator emits a job at time 0 and then one per inter-arrival time until a
// true message arrives on its stop port.
type Generator struct {
	*sim.Atomic[GeneratorState]
	period float64
	rng    *rand.Rand // nil for constant arrivals
	stop   *sim.Port[bool]
	out    *sim.Port[Job]
}

// NewGenerator creates a generator with constant inter-arrival times.
func NewGenerator(id string, period float64) *Generator {
	g := &Generator{period: period}
	g.Atomic = sim.NewAtomic(id, GeneratorState{}, sim.Behavior[GeneratorState](g))
	g.stop = sim.AddInPort[bool](g, "stop")
	g.out = sim.AddOutPort[Job](g, "out")
	return g
}

// NewExponentialGenerator creates a generator whose inter-arrival times are
// exponentially distributed with mean period, drawn from rng.
func NewExponentialGenerator(id string, period float64, rng *rand.Rand) (*Generator, error) {
	if rng == nil {
		return nil, fmt.Errorf("generator %q: exponential arrivals need a random source: %w", id, sim.ErrConfig)
	}
	g := NewGenerator(id, period)
	g.rng = rng
	return g, nil
}

func (g *Generator) interArrival() float64 {
	if g.rng == nil {
		return g.period
	}
	return g.rng.ExpFloat64() * g.period
}

func (g *Generator) TimeAdvance(s GeneratorState) float64 { return s.Sigma }

func (g *Generator) Output(s GeneratorState, y *sim.PortSet) {
	g.out.AddMessage(Job{ID: s.JobCount, TimeGenerated: s.Clock + s.Sigma})
}

func (g *Generator) InternalTransition(s *GeneratorState) {
	s.Clock += s.Sigma
	s.Sigma = g.interArrival()
	s.JobCount++
}

func (g *Generator) ExternalTransition(s *GeneratorState, e float64, x *sim.PortSet) {
	s.Clock += e
	if stop, ok := g.stop.Last(); ok && stop {
		s.Sigma = sim.Infinity
		return
	}
	s.Sigma = math.Max(s.Sigma-e, 0)
}
