package efp

import (
	"fmt"
	"math"

	"github.com/devs-sim/devs-sim/sim"
)

// Config parameterizes the experimental frame.
type Config struct {
	Period         float64     // mean time between generated jobs
	ProcessingTime float64     // time the processor spends on a job
	ObsTime        float64     // length of the transducer's observation window
	Arrival        ArrivalMode // constant or exponential inter-arrival times
	Service        ServiceMode // constant or exponential processing times; empty means constant
	Seed           int64       // master seed; only used by exponential modes
}

// DefaultConfig returns the classic frame: a job every 3 time units, processed
// in 1, observed for 100.
func DefaultConfig() Config {
	return Config{Period: 3, ProcessingTime: 1, ObsTime: 100, Arrival: ArrivalConstant, Service: ServiceConstant, Seed: 42}
}

// Validate checks that every duration is positive and finite and both modes are known.
func (c Config) Validate() error {
	for name, v := range map[string]float64{"period": c.Period, "processing time": c.ProcessingTime, "observation time": c.ObsTime} {
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("%s %v must be positive and finite: %w", name, v, sim.ErrConfig)
		}
	}
	if !validArrivalModes[c.Arrival] {
		return fmt.Errorf("unknown arrival mode %q: %w", c.Arrival, sim.ErrConfig)
	}
	if !validServiceModes[c.Service] {
		return fmt.Errorf("unknown service mode %q: %w", c.Service, sim.ErrConfig)
	}
	return nil
}

// EFP is the experimental frame / processor coupled model.
type EFP struct {
	*sim.Coupled
	Generator  *Generator
	Processor  *Processor
	Transducer *Transducer
}

// New builds the frame: generator.out feeds processor.in and
// transducer.generated, processor.out feeds transducer.processed, and
// transducer.stop feeds generator.stop.
func New(id string, cfg Config) (*EFP, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &EFP{
		Coupled:    sim.NewCoupled(id),
		Transducer: NewTransducer("transducer", cfg.ObsTime),
	}
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed))
	switch cfg.Arrival {
	case ArrivalExponential:
		g, err := NewExponentialGenerator("generator", cfg.Period, rng.ForSubsystem(sim.SubsystemArrivals))
		if err != nil {
			return nil, err
		}
		e.Generator = g
	default:
		e.Generator = NewGenerator("generator", cfg.Period)
	}
	switch cfg.Service {
	case ServiceExponential:
		p, err := NewExponentialProcessor("processor", cfg.ProcessingTime, rng.ForSubsystem(sim.SubsystemService))
		if err != nil {
			return nil, err
		}
		e.Processor = p
	default:
		e.Processor = NewProcessor("processor", cfg.ProcessingTime)
	}

	for _, c := range []sim.Component{e.Generator, e.Processor, e.Transducer} {
		if err := e.AddComponent(c); err != nil {
			return nil, err
		}
	}
	couplings := [][4]string{
		{"generator", "out", "processor", "in"},
		{"generator", "out", "transducer", "generated"},
		{"processor", "out", "transducer", "processed"},
		{"transducer", "stop", "generator", "stop"},
	}
	for _, cp := range couplings {
		if err := e.AddInternalCoupling(cp[0], cp[1], cp[2], cp[3]); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Report returns the transducer's report, and whether its window has closed.
func (e *EFP) Report() (Report, bool) {
	return e.Transducer.Report()
}
