package sim

import "fmt"

// CoupledModel is implemented by *Coupled and by model types embedding it.
type CoupledModel interface {
	Component
	coupled() *Coupled
}

// Coupled is a network of child components connected by couplings. It owns its
// children; a child only refers back to it for identity (Parent, Path).
type Coupled struct {
	component
	children []Component
	index    map[string]int
	bases    map[*component]int
	ic       []*Coupling
	eic      []*Coupling
	eoc      []*Coupling
	keys     map[couplingKey]bool
}

// NewCoupled creates an empty coupled model.
func NewCoupled(id string) *Coupled {
	c := &Coupled{
		index: make(map[string]int),
		bases: make(map[*component]int),
		keys:  make(map[couplingKey]bool),
	}
	c.component.init(c, id)
	return c
}

func (c *Coupled) coupled() *Coupled { return c }

// AddComponent attaches child under its id. It fails with ErrDuplicateComponent
// when a sibling already uses the id, and with a ConfigError when the child
// was declared incorrectly or is already attached elsewhere.
func (c *Coupled) AddComponent(child Component) error {
	if child == nil {
		return fmt.Errorf("%s: nil component: %w", c.id, ErrConfig)
	}
	b := child.base()
	if err := b.err(); err != nil {
		return fmt.Errorf("%s: %w", c.id, err)
	}
	if b == &c.component {
		return fmt.Errorf("%s: a coupled model cannot contain itself: %w", c.id, ErrConfig)
	}
	if b.parent != nil {
		return fmt.Errorf("%s: component %q is already attached to %q: %w", c.id, b.id, b.parent.id, ErrConfig)
	}
	if _, exists := c.index[b.id]; exists {
		return fmt.Errorf("%s: component %q: %w", c.id, b.id, ErrDuplicateComponent)
	}
	b.parent = c
	c.index[b.id] = len(c.children)
	c.bases[b] = len(c.children)
	c.children = append(c.children, child)
	return nil
}

// Component returns the child with the given id.
func (c *Coupled) Component(id string) (Component, bool) {
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return c.children[i], true
}

// Components returns the children in attachment order.
func (c *Coupled) Components() []Component {
	return c.children
}

// InternalCouplings returns the IC relation in registration order.
func (c *Coupled) InternalCouplings() []Coupling { return values(c.ic) }

// ExternalInputCouplings returns the EIC relation in registration order.
func (c *Coupled) ExternalInputCouplings() []Coupling { return values(c.eic) }

// ExternalOutputCouplings returns the EOC relation in registration order.
func (c *Coupled) ExternalOutputCouplings() []Coupling { return values(c.eoc) }

// Couplings returns every coupling: EIC first, then IC, then EOC.
func (c *Coupled) Couplings() []Coupling {
	all := values(c.eic)
	all = append(all, values(c.ic)...)
	return append(all, values(c.eoc)...)
}

func values(cs []*Coupling) []Coupling {
	out := make([]Coupling, len(cs))
	for i, cp := range cs {
		out[i] = *cp
	}
	return out
}

// AddCoupling connects two ports, inferring the coupling kind from their owners:
// this model's input port to a child's input port is an EIC, a child's output
// port to this model's output port is an EOC, and a child's output port to a
// child's input port is an IC.
func (c *Coupled) AddCoupling(from, to AnyPort) error {
	if from == nil || to == nil {
		return fmt.Errorf("%s: nil coupling endpoint: %w", c.id, ErrUnknownPort)
	}
	fromOwner, toOwner := from.Parent(), to.Parent()
	fromRef, toRef := portRef(from), portRef(to)
	switch {
	case sameComponent(fromOwner, c) && sameComponent(toOwner, c):
		return c.couplingError(InternalCoupling, fromRef, toRef,
			fmt.Errorf("input port coupled directly to output port: %w", ErrConfig))
	case sameComponent(fromOwner, c):
		return c.addCoupling(ExternalInputCoupling, from, to, fromRef, toRef)
	case sameComponent(toOwner, c):
		return c.addCoupling(ExternalOutputCoupling, from, to, fromRef, toRef)
	default:
		return c.addCoupling(InternalCoupling, from, to, fromRef, toRef)
	}
}

// AddInternalCoupling connects port fromPort of child fromID to port toPort of child toID.
func (c *Coupled) AddInternalCoupling(fromID, fromPort, toID, toPort string) error {
	fromRef := PortRef{Component: fromID, Port: fromPort}
	toRef := PortRef{Component: toID, Port: toPort}
	from, err := c.childPort(fromID, fromPort, true)
	if err != nil {
		return c.couplingError(InternalCoupling, fromRef, toRef, err)
	}
	to, err := c.childPort(toID, toPort, false)
	if err != nil {
		return c.couplingError(InternalCoupling, fromRef, toRef, err)
	}
	return c.addCoupling(InternalCoupling, from, to, fromRef, toRef)
}

// AddExternalInputCoupling connects this model's input port fromPort to port toPort of child toID.
func (c *Coupled) AddExternalInputCoupling(fromPort, toID, toPort string) error {
	fromRef := PortRef{Component: c.id, Port: fromPort}
	toRef := PortRef{Component: toID, Port: toPort}
	from, ok := c.in.Get(fromPort)
	if !ok {
		return c.couplingError(ExternalInputCoupling, fromRef, toRef,
			fmt.Errorf("input port %q of %q: %w", fromPort, c.id, ErrUnknownPort))
	}
	to, err := c.childPort(toID, toPort, false)
	if err != nil {
		return c.couplingError(ExternalInputCoupling, fromRef, toRef, err)
	}
	return c.addCoupling(ExternalInputCoupling, from, to, fromRef, toRef)
}

// AddExternalOutputCoupling connects port fromPort of child fromID to this model's output port toPort.
func (c *Coupled) AddExternalOutputCoupling(fromID, fromPort, toPort string) error {
	fromRef := PortRef{Component: fromID, Port: fromPort}
	toRef := PortRef{Component: c.id, Port: toPort}
	from, err := c.childPort(fromID, fromPort, true)
	if err != nil {
		return c.couplingError(ExternalOutputCoupling, fromRef, toRef, err)
	}
	to, ok := c.out.Get(toPort)
	if !ok {
		return c.couplingError(ExternalOutputCoupling, fromRef, toRef,
			fmt.Errorf("output port %q of %q: %w", toPort, c.id, ErrUnknownPort))
	}
	return c.addCoupling(ExternalOutputCoupling, from, to, fromRef, toRef)
}

func (c *Coupled) childPort(id, port string, output bool) (AnyPort, error) {
	child, ok := c.Component(id)
	if !ok {
		return nil, fmt.Errorf("component %q: %w", id, ErrUnknownComponent)
	}
	set, dir := child.InPorts(), "input"
	if output {
		set, dir = child.OutPorts(), "output"
	}
	p, ok := set.Get(port)
	if !ok {
		return nil, fmt.Errorf("%s port %q of %q: %w", dir, port, id, ErrUnknownPort)
	}
	return p, nil
}

// addCoupling validates endpoint ownership and direction for kind, checks the
// message types once, and stores the coupling with its pre-typed route.
func (c *Coupled) addCoupling(kind CouplingKind, from, to AnyPort, fromRef, toRef PortRef) error {
	if err := c.checkEndpoint(kind, from, true); err != nil {
		return c.couplingError(kind, fromRef, toRef, err)
	}
	if err := c.checkEndpoint(kind, to, false); err != nil {
		return c.couplingError(kind, fromRef, toRef, err)
	}
	key := couplingKey{from: from, to: to}
	if c.keys[key] {
		return c.couplingError(kind, fromRef, toRef, ErrDuplicateCoupling)
	}
	route, err := to.link(from)
	if err != nil {
		return c.couplingError(kind, fromRef, toRef, err)
	}
	cp := &Coupling{Kind: kind, From: fromRef, To: toRef, from: from, to: to, route: route}
	switch kind {
	case InternalCoupling:
		c.ic = append(c.ic, cp)
	case ExternalInputCoupling:
		c.eic = append(c.eic, cp)
	case ExternalOutputCoupling:
		c.eoc = append(c.eoc, cp)
	}
	c.keys[key] = true
	return nil
}

// checkEndpoint resolves the owner of one coupling endpoint and checks that
// the port sits on the side the coupling kind requires.
func (c *Coupled) checkEndpoint(kind CouplingKind, p AnyPort, source bool) error {
	owner := p.Parent()
	if owner == nil {
		return fmt.Errorf("port %q is not attached to a component: %w", p.ID(), ErrUnknownPort)
	}
	own := (kind == ExternalInputCoupling && source) || (kind == ExternalOutputCoupling && !source)
	var set *PortSet
	switch {
	case own:
		if !sameComponent(owner, c) {
			return fmt.Errorf("port %q must belong to %q: %w", p.ID(), c.id, ErrConfig)
		}
		set = c.in
		if !source {
			set = c.out
		}
	default:
		i, ok := c.bases[owner.base()]
		if !ok {
			return fmt.Errorf("component %q is not a child of %q: %w", owner.ID(), c.id, ErrUnknownComponent)
		}
		child := c.children[i]
		set = child.InPorts()
		if source {
			set = child.OutPorts()
		}
	}
	if !set.Contains(p) {
		dir := "input"
		if source != own {
			dir = "output"
		}
		return fmt.Errorf("port %q of %q is not an %s port: %w", p.ID(), owner.ID(), dir, ErrUnknownPort)
	}
	return nil
}

func (c *Coupled) couplingError(kind CouplingKind, from, to PortRef, err error) error {
	return &CouplingError{Coupled: Path(c), Kind: kind, From: from, To: to, Err: err}
}

func portRef(p AnyPort) PortRef {
	owner := ""
	if p.Parent() != nil {
		owner = p.Parent().ID()
	}
	return PortRef{Component: owner, Port: p.ID()}
}

// childIndex returns the attachment index of a child by its base component.
func (c *Coupled) childIndex(comp Component) (int, bool) {
	i, ok := c.bases[comp.base()]
	return i, ok
}
