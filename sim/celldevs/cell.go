package celldevs

import (
	"fmt"

	"github.com/devs-sim/devs-sim/sim"
)

// Port ids every cell declares.
const (
	NeighborhoodInput  = "neighborhoodInput"
	NeighborhoodOutput = "neighborhoodOutput"
)

// CellStateMessage is what a cell publishes to its neighbors: its id and its new state.
type CellStateMessage[S any] struct {
	CellID string
	State  S
}

func (m CellStateMessage[S]) String() string {
	return fmt.Sprintf("%s:%v", m.CellID, m.State)
}

// Neighbor is the last state received from one neighbor, with the vicinity
// the cell configuration declares for it.
type Neighbor[S any, V any] struct {
	ID       string
	State    S
	Vicinity V
}

// CellModel is the local rule of a cell.
type CellModel[S comparable, V any] interface {
	// LocalComputation returns the next cell state given the current one and
	// the known neighbors, ordered by id.
	LocalComputation(state S, neighborhood []Neighbor[S, V]) S
	// OutputDelay returns how long a new state waits before it is published.
	OutputDelay(state S) float64
}

// CellState is the state of the Cell atomic model. It logs as the cell state alone.
type CellState[S comparable] struct {
	Clock float64 // local time since the cell started
	State S

	neighbors map[string]S
	buffer    delayBuffer[S]
}

func (s CellState[S]) String() string {
	return fmt.Sprint(s.State)
}

// Cell is a generic Cell-DEVS atomic model. It recomputes its state whenever a
// neighbor publishes, and publishes its own changes through the configured
// delay buffer. The initial state is published when the simulation starts.
type Cell[S comparable, V any] struct {
	*sim.Atomic[CellState[S]]
	config    *CellConfig[S, V]
	model     CellModel[S, V]
	neighbors []string
	in        *sim.Port[CellStateMessage[S]]
	out       *sim.Port[CellStateMessage[S]]
}

// NewCell creates the cell id configured by cfg and ruled by model.
func NewCell[S comparable, V any](id string, cfg *CellConfig[S, V], model CellModel[S, V]) (*Cell[S, V], error) {
	if cfg == nil || model == nil {
		return nil, fmt.Errorf("cell %q needs a configuration and a model: %w", id, sim.ErrConfig)
	}
	buffer, err := newDelayBuffer[S](cfg.Delay)
	if err != nil {
		return nil, fmt.Errorf("cell %q: %w", id, err)
	}
	buffer.add(cfg.State, 0)

	c := &Cell[S, V]{config: cfg, model: model, neighbors: cfg.Neighbors()}
	initial := CellState[S]{State: cfg.State, neighbors: make(map[string]S), buffer: buffer}
	c.Atomic = sim.NewAtomic(id, initial, sim.Behavior[CellState[S]](c))
	c.in = sim.AddInPort[CellStateMessage[S]](c, NeighborhoodInput)
	c.out = sim.AddOutPort[CellStateMessage[S]](c, NeighborhoodOutput)
	return c, nil
}

// Config returns the configuration the cell was built from.
func (c *Cell[S, V]) Config() *CellConfig[S, V] { return c.config }

// Neighbors returns the ids of the declared neighbors, sorted.
func (c *Cell[S, V]) Neighbors() []string { return c.neighbors }

func (c *Cell[S, V]) TimeAdvance(s CellState[S]) float64 {
	next := s.buffer.next()
	if next == sim.Infinity {
		return sim.Infinity
	}
	return next - s.Clock
}

func (c *Cell[S, V]) Output(s CellState[S], y *sim.PortSet) {
	c.out.AddMessage(CellStateMessage[S]{CellID: c.ID(), State: s.buffer.peek()})
}

func (c *Cell[S, V]) InternalTransition(s *CellState[S]) {
	s.Clock = s.buffer.next()
	s.buffer.pop()
}

func (c *Cell[S, V]) ExternalTransition(s *CellState[S], e float64, x *sim.PortSet) {
	s.Clock += e
	for _, msg := range c.in.Messages() {
		if _, ok := c.config.Neighborhood[msg.CellID]; ok {
			s.neighbors[msg.CellID] = msg.State
		}
	}

	view := make([]Neighbor[S, V], 0, len(c.neighbors))
	for _, id := range c.neighbors {
		state, known := s.neighbors[id]
		if !known {
			continue
		}
		view = append(view, Neighbor[S, V]{ID: id, State: state, Vicinity: c.config.Neighborhood[id]})
	}

	next := c.model.LocalComputation(s.State, view)
	if next != s.State {
		s.State = next
		s.buffer.add(next, s.Clock+c.model.OutputDelay(next))
	}
}
