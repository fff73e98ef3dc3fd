// Package sirds implements the SIRDS epidemic cell model: every cell holds the
// susceptible, infected, recovered and deceased fractions of its population
// and updates them once per output delay from the infected fractions of its
// neighbors.
package sirds

import (
	"fmt"
	"math"
	"strconv"

	"github.com/devs-sim/devs-sim/sim"
	"github.com/devs-sim/devs-sim/sim/celldevs"
)

// ModelName is the "model" value of SIRDS cell configurations.
const ModelName = "sirds"

// Precision is the resolution population fractions are rounded to, so that a
// cell stops publishing once its dynamics settle.
const Precision = 1e-4

// State is the population split of one cell.
type State struct {
	Susceptible float64 `json:"susceptible"`
	Infected    float64 `json:"infected"`
	Recovered   float64 `json:"recovered"`
	Deceased    float64 `json:"deceased"`
}

// String renders the state as <S,I,R,D>.
func (s State) String() string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return "<" + f(s.Susceptible) + "," + f(s.Infected) + "," + f(s.Recovered) + "," + f(s.Deceased) + ">"
}

// Alive returns the fraction of the population that is not deceased.
func (s State) Alive() float64 {
	return s.Susceptible + s.Infected + s.Recovered
}

// Validate checks that every fraction is in [0, 1] and that they add up to 1.
func (s State) Validate() error {
	for name, v := range map[string]float64{
		"susceptible": s.Susceptible, "infected": s.Infected,
		"recovered": s.Recovered, "deceased": s.Deceased,
	} {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return fmt.Errorf("%s fraction %v outside [0, 1]: %w", name, v, sim.ErrConfig)
		}
	}
	if total := s.Alive() + s.Deceased; math.Abs(total-1) > Precision {
		return fmt.Errorf("population fractions add up to %v, not 1: %w", total, sim.ErrConfig)
	}
	return nil
}

// Vicinity describes how strongly a neighbor's infections reach a cell.
type Vicinity struct {
	Connectivity float64 `json:"connectivity"`
	Mobility     float64 `json:"mobility"`
}

// Params are the per-configuration disease parameters, all rates per time unit.
type Params struct {
	Virulence    float64 `json:"virulence"`
	Recovery     float64 `json:"recovery"`
	ImmunityLoss float64 `json:"immunity_loss"`
	Fatality     float64 `json:"fatality"`
	Delay        float64 `json:"delay"` // output delay; 1 when omitted
}

// Validate checks that every rate is a probability and that recovery and
// fatality do not remove more than the infected population.
func (p Params) Validate() error {
	for name, v := range map[string]float64{
		"virulence": p.Virulence, "recovery": p.Recovery,
		"immunity_loss": p.ImmunityLoss, "fatality": p.Fatality,
	} {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return fmt.Errorf("%s %v outside [0, 1]: %w", name, v, sim.ErrConfig)
		}
	}
	if p.Recovery+p.Fatality > 1 {
		return fmt.Errorf("recovery %v + fatality %v exceed 1: %w", p.Recovery, p.Fatality, sim.ErrConfig)
	}
	if p.Delay <= 0 || math.IsNaN(p.Delay) || math.IsInf(p.Delay, 0) {
		return fmt.Errorf("delay %v must be positive and finite: %w", p.Delay, sim.ErrConfig)
	}
	return nil
}

// Model is the SIRDS local rule.
type Model struct {
	Params
}

// NewModel is the celldevs.ModelFactory of SIRDS cells.
func NewModel(cellID string, cfg *celldevs.CellConfig[State, Vicinity]) (celldevs.CellModel[State, Vicinity], error) {
	if cfg.Model != "" && cfg.Model != ModelName {
		return nil, fmt.Errorf("unknown cell model %q: %w", cfg.Model, sim.ErrConfig)
	}
	p := Params{Delay: 1}
	if err := cfg.DecodeParams(&p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("config %q: %w", cfg.ID, err)
	}
	if err := cfg.State.Validate(); err != nil {
		return nil, fmt.Errorf("config %q: state: %w", cfg.ID, err)
	}
	return &Model{Params: p}, nil
}

// LocalComputation advances the cell by one time unit.
func (m *Model) LocalComputation(s State, neighborhood []celldevs.Neighbor[State, Vicinity]) State {
	exposure := 0.0
	for _, n := range neighborhood {
		exposure += n.Vicinity.Connectivity * n.Vicinity.Mobility * n.State.Infected
	}
	newInfections := math.Min(s.Susceptible, s.Susceptible*m.Virulence*exposure)
	newRecoveries := s.Infected * m.Recovery
	newDeaths := s.Infected * m.Fatality
	lostImmunity := s.Recovered * m.ImmunityLoss

	next := State{
		Susceptible: s.Susceptible - newInfections + lostImmunity,
		Infected:    s.Infected + newInfections - newRecoveries - newDeaths,
		Recovered:   s.Recovered + newRecoveries - lostImmunity,
		Deceased:    s.Deceased + newDeaths,
	}
	return round(next)
}

// OutputDelay returns the configured delay, whatever the state.
func (m *Model) OutputDelay(State) float64 {
	return m.Delay
}

// round snaps every fraction to Precision, keeping the total at 1 by giving
// the rounding residue to the susceptible fraction.
func round(s State) State {
	const scale = 1 / Precision
	r := func(v float64) float64 { return math.Max(0, math.Round(v*scale)/scale) }
	out := State{Infected: r(s.Infected), Recovered: r(s.Recovered), Deceased: r(s.Deceased)}
	out.Susceptible = r(1 - out.Infected - out.Recovered - out.Deceased)
	return out
}

// NewCoupled creates a SIRDS grid for scenario with an "out" port that EOC
// entries of the scenario may publish to. Call BuildModel before simulating.
func NewCoupled(id string, scenario *celldevs.Scenario) *celldevs.Coupled[State, Vicinity] {
	c := celldevs.NewCoupled[State, Vicinity](id, scenario, NewModel)
	sim.AddOutPort[celldevs.CellStateMessage[State]](c, "out")
	return c
}
