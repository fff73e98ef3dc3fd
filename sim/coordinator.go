package sim

import (
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Coordinator wraps one coupled model. It drives a Simulator or Coordinator per
// child, keeps the children ordered by next event time, and routes messages
// along the model's couplings. It implements AbstractSimulator itself, which is
// what lets coupled models nest to any depth.
type Coordinator struct {
	model    *Coupled
	path     string
	env      *environment
	children []AbstractSimulator
	schedule *schedule

	outRoutes [][]route // IC and EOC routes, indexed by source child
	eicRoutes []route

	tLast     float64
	tNext     float64
	collected bool
	imminent  []int
	receiving []bool
	receivers []int
}

// route is a coupling ready to fire: the source bag and the pre-typed append.
type route struct {
	from  AnyPort
	apply func()
	dst   int // receiving child index; -1 for the coordinator's own output ports
}

// NewCoordinator builds the simulator hierarchy for a coupled model.
func NewCoordinator(model CoupledModel, cfg Config) (*Coordinator, error) {
	if model == nil {
		return nil, fmt.Errorf("nil coupled model: %w", ErrConfig)
	}
	if err := model.base().err(); err != nil {
		return nil, err
	}
	return newCoordinator(model.coupled(), Path(model), newEnvironment(cfg))
}

func newCoordinator(model *Coupled, path string, env *environment) (*Coordinator, error) {
	c := &Coordinator{
		model:     model,
		path:      path,
		env:       env,
		children:  make([]AbstractSimulator, len(model.children)),
		outRoutes: make([][]route, len(model.children)),
		receiving: make([]bool, len(model.children)),
		tNext:     Infinity,
	}
	for i, child := range model.children {
		childPath := path + "." + child.ID()
		if err := child.base().err(); err != nil {
			return nil, fmt.Errorf("%s: %w", childPath, err)
		}
		switch m := child.(type) {
		case CoupledModel:
			sub, err := newCoordinator(m.coupled(), childPath, env)
			if err != nil {
				return nil, err
			}
			c.children[i] = sub
		case AtomicModel:
			c.children[i] = newSimulator(m, childPath, env)
		default:
			return nil, fmt.Errorf("%s: component %q is neither atomic nor coupled: %w", path, child.ID(), ErrConfig)
		}
	}

	for _, cp := range model.ic {
		src := c.mustChild(cp.from)
		c.outRoutes[src] = append(c.outRoutes[src], route{from: cp.from, apply: cp.route, dst: c.mustChild(cp.to)})
	}
	for _, cp := range model.eoc {
		src := c.mustChild(cp.from)
		c.outRoutes[src] = append(c.outRoutes[src], route{from: cp.from, apply: cp.route, dst: -1})
	}
	for _, cp := range model.eic {
		c.eicRoutes = append(c.eicRoutes, route{from: cp.from, apply: cp.route, dst: c.mustChild(cp.to)})
	}
	return c, nil
}

// mustChild resolves the child owning a port of a coupling that passed validation.
func (c *Coordinator) mustChild(p AnyPort) int {
	i, ok := c.model.childIndex(p.Parent())
	if !ok {
		panic(fmt.Sprintf("sim: coupling port %q of %s has no owning child", p.ID(), c.path))
	}
	return i
}

func (c *Coordinator) Model() Component  { return c.model }
func (c *Coordinator) TimeLast() float64 { return c.tLast }
func (c *Coordinator) TimeNext() float64 { return c.tNext }

// Start starts every child at t and computes the first next event time.
func (c *Coordinator) Start(t float64) error {
	for _, child := range c.children {
		if err := child.Start(t); err != nil {
			return err
		}
	}
	c.schedule = newSchedule(c.children)
	c.tLast = t
	c.tNext = c.schedule.next()
	c.collected = false
	return nil
}

// CollectOutput collects the outputs of every imminent child and then
// propagates every IC and EOC whose source port is non-empty, once per edge.
func (c *Coordinator) CollectOutput(t float64) error {
	if t != c.tNext {
		return fmt.Errorf("%s: output collected at t=%v, next event at t=%v: %w", c.path, t, c.tNext, ErrClock)
	}
	if c.collected {
		panic(fmt.Sprintf("sim: output of %s collected twice at t=%v", c.path, t))
	}
	c.imminent = c.schedule.imminent(t)
	if err := c.each(c.imminent, func(child AbstractSimulator) error {
		return child.CollectOutput(t)
	}); err != nil {
		return err
	}
	for _, i := range c.imminent {
		for _, r := range c.outRoutes[i] {
			c.fire(r)
		}
	}
	c.collected = true
	return nil
}

// Transition propagates the EICs, transitions every child that is imminent or
// received input, clears the ports touched during the cycle, and reschedules.
func (c *Coordinator) Transition(t float64) error {
	if t < c.tLast || t > c.tNext {
		return fmt.Errorf("%s: transition at t=%v outside [%v, %v]: %w", c.path, t, c.tLast, c.tNext, ErrClock)
	}
	if t == c.tNext && !c.collected {
		return fmt.Errorf("%s: internal event at t=%v fired without output collection: %w", c.path, t, ErrClock)
	}
	for _, r := range c.eicRoutes {
		c.fire(r)
	}

	active := c.active()
	if err := c.each(active, func(child AbstractSimulator) error {
		return child.Transition(t)
	}); err != nil {
		return err
	}

	for _, i := range active {
		c.children[i].Clear()
		c.schedule.update(i, c.children[i].TimeNext())
		c.receiving[i] = false
	}
	c.model.in.Clear()
	c.model.out.Clear()
	c.imminent = nil
	c.receivers = c.receivers[:0]
	c.collected = false
	c.tLast = t
	c.tNext = c.schedule.next()
	return nil
}

// Clear empties the coupled model's own input and output ports.
func (c *Coordinator) Clear() {
	c.model.in.Clear()
	c.model.out.Clear()
}

func (c *Coordinator) fire(r route) {
	if r.from.Empty() {
		return
	}
	r.apply()
	c.env.metrics.RoutedMessages.Add(int64(r.from.Len()))
	if r.dst >= 0 && !c.receiving[r.dst] {
		c.receiving[r.dst] = true
		c.receivers = append(c.receivers, r.dst)
	}
}

// active returns the union of imminent and receiving children, in attachment order.
func (c *Coordinator) active() []int {
	if len(c.receivers) == 0 {
		return c.imminent
	}
	out := make([]int, 0, len(c.imminent)+len(c.receivers))
	out = append(out, c.receivers...)
	for _, i := range c.imminent {
		if !c.receiving[i] {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

// each runs fn on the given children, concurrently in parallel mode. Within a
// phase children touch disjoint state and ports, so the only synchronization
// needed is the barrier at the end.
func (c *Coordinator) each(indices []int, fn func(AbstractSimulator) error) error {
	if !c.env.parallel || len(indices) < 2 {
		for _, i := range indices {
			if err := fn(c.children[i]); err != nil {
				return err
			}
		}
		return nil
	}
	var g errgroup.Group
	for _, i := range indices {
		child := c.children[i]
		g.Go(func() error {
			return fn(child)
		})
	}
	return g.Wait()
}
