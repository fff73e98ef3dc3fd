package celldevs

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/devs-sim/devs-sim/sim"
)

// ModelFactory creates the local rule of one cell from its configuration.
// It is called once per cell, so models may keep per-cell data.
type ModelFactory[S comparable, V any] func(cellID string, cfg *CellConfig[S, V]) (CellModel[S, V], error)

// Coupled is a Cell-DEVS coupled model built from a scenario: one Cell per
// configured cell id, and one internal coupling per declared neighbor.
type Coupled[S comparable, V any] struct {
	*sim.Coupled
	scenario *Scenario
	factory  ModelFactory[S, V]
	configs  map[string]*CellConfig[S, V]
	order    []string // config ids: named entries sorted, then the default
	cells    []*Cell[S, V]
	built    bool
}

// NewCoupled creates an empty Cell-DEVS coupled model. Ports the scenario's
// EIC and EOC entries refer to must be declared on it before BuildModel.
func NewCoupled[S comparable, V any](id string, scenario *Scenario, factory ModelFactory[S, V]) *Coupled[S, V] {
	return &Coupled[S, V]{
		Coupled:  sim.NewCoupled(id),
		scenario: scenario,
		factory:  factory,
		configs:  make(map[string]*CellConfig[S, V]),
	}
}

// BuildModel loads the cell configurations, adds the cells and adds the couplings.
func (c *Coupled[S, V]) BuildModel() error {
	if c.built {
		return fmt.Errorf("cell-devs model %q already built: %w", c.ID(), sim.ErrConfig)
	}
	if c.scenario == nil || c.factory == nil {
		return fmt.Errorf("cell-devs model %q needs a scenario and a model factory: %w", c.ID(), sim.ErrConfig)
	}
	if err := c.LoadCellConfigs(); err != nil {
		return err
	}
	if err := c.AddCells(); err != nil {
		return err
	}
	if err := c.AddCouplings(); err != nil {
		return err
	}
	c.built = true
	logrus.Infof("[celldevs %s] built %d cells from %d configurations", c.ID(), len(c.cells), len(c.configs))
	return nil
}

// LoadCellConfigs decodes the default configuration and every named
// configuration merged over it.
func (c *Coupled[S, V]) LoadCellConfigs() error {
	ids := append(c.scenario.EntryIDs(), DefaultConfigID)
	for _, id := range ids {
		merged, err := c.scenario.Merged(id)
		if err != nil {
			return err
		}
		cfg, err := ParseCellConfig[S, V](id, merged, c.scenario.declaresCellMap(id))
		if err != nil {
			return err
		}
		c.configs[id] = cfg
	}
	c.order = ids
	return nil
}

// AddCells adds one cell per id mapped by a named configuration, then one per
// id mapped by the default configuration that no named configuration claimed.
func (c *Coupled[S, V]) AddCells() error {
	claimed := make(map[string]bool)
	for _, configID := range c.order {
		cfg := c.configs[configID]
		for _, cellID := range cfg.CellMap {
			if configID == DefaultConfigID && claimed[cellID] {
				continue
			}
			if err := c.addCell(cellID, cfg); err != nil {
				return err
			}
			claimed[cellID] = true
		}
	}
	return nil
}

func (c *Coupled[S, V]) addCell(cellID string, cfg *CellConfig[S, V]) error {
	model, err := c.factory(cellID, cfg)
	if err != nil {
		return fmt.Errorf("cell %q (config %q): %w", cellID, cfg.ID, err)
	}
	cell, err := NewCell(cellID, cfg, model)
	if err != nil {
		return err
	}
	if err := c.AddComponent(cell); err != nil {
		return fmt.Errorf("cell %q (config %q): %w", cellID, cfg.ID, err)
	}
	c.cells = append(c.cells, cell)
	return nil
}

// AddCouplings connects every declared neighbor's output to the cell's input,
// and adds the external couplings of every cell configuration.
func (c *Coupled[S, V]) AddCouplings() error {
	for _, cell := range c.cells {
		for _, neighbor := range cell.Neighbors() {
			if err := c.AddInternalCoupling(neighbor, NeighborhoodOutput, cell.ID(), NeighborhoodInput); err != nil {
				return err
			}
		}
		for _, eic := range cell.Config().EIC {
			if err := c.AddExternalInputCoupling(eic.From, cell.ID(), eic.To); err != nil {
				return err
			}
		}
		for _, eoc := range cell.Config().EOC {
			if err := c.AddExternalOutputCoupling(cell.ID(), eoc.From, eoc.To); err != nil {
				return err
			}
		}
	}
	return nil
}

// Cells returns the cells in the order they were added.
func (c *Coupled[S, V]) Cells() []*Cell[S, V] { return c.cells }

// Cell returns the cell with the given id.
func (c *Coupled[S, V]) Cell(id string) (*Cell[S, V], bool) {
	comp, ok := c.Component(id)
	if !ok {
		return nil, false
	}
	cell, ok := comp.(*Cell[S, V])
	return cell, ok
}

// CellConfig returns the decoded configuration of a scenario entry.
func (c *Coupled[S, V]) CellConfig(id string) (*CellConfig[S, V], bool) {
	cfg, ok := c.configs[id]
	return cfg, ok
}
