package sim

import (
	"fmt"
	"reflect"
)

// AnyPort is the type-erased view of a Port used by port sets, couplings and loggers.
// Only *Port[T] implements it.
type AnyPort interface {
	ID() string
	// Parent returns the component owning the port, or nil while unattached.
	Parent() Component
	// Type returns the declared message type.
	Type() reflect.Type
	Len() int
	Empty() bool
	Clear()
	// Values returns the bag contents boxed as any, in insertion order.
	Values() []any
	// Propagate appends every message of from to this port's bag.
	Propagate(from AnyPort) error

	setParent(c Component)
	// link type-checks from against this port once and returns a closure that
	// propagates from's bag without further checks.
	link(from AnyPort) (func(), error)
}

// Port is a typed message bag attached to a component. A bag only lives for one
// simulation cycle: it is appended to during output collection and routing,
// read during the transition phase, and cleared by the owning coordinator.
type Port[T any] struct {
	id     string
	parent Component
	bag    []T
}

// NewPort creates an unattached port. Most models use AddInPort/AddOutPort instead.
func NewPort[T any](id string) *Port[T] {
	return &Port[T]{id: id}
}

func (p *Port[T]) ID() string        { return p.id }
func (p *Port[T]) Parent() Component { return p.parent }
func (p *Port[T]) Len() int          { return len(p.bag) }
func (p *Port[T]) Empty() bool       { return len(p.bag) == 0 }

func (p *Port[T]) setParent(c Component) { p.parent = c }

// Type returns the declared message type T.
func (p *Port[T]) Type() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// AddMessage appends a message to the bag.
func (p *Port[T]) AddMessage(msg T) {
	p.bag = append(p.bag, msg)
}

// Messages returns the bag. The slice is only valid until the port is cleared
// and must not be modified.
func (p *Port[T]) Messages() []T {
	return p.bag
}

// Last returns the most recent message, if any.
func (p *Port[T]) Last() (T, bool) {
	var zero T
	if len(p.bag) == 0 {
		return zero, false
	}
	return p.bag[len(p.bag)-1], true
}

// Clear empties the bag, keeping its capacity for the next cycle.
func (p *Port[T]) Clear() {
	clear(p.bag)
	p.bag = p.bag[:0]
}

func (p *Port[T]) Values() []any {
	out := make([]any, len(p.bag))
	for i, m := range p.bag {
		out[i] = m
	}
	return out
}

// Propagate appends all messages of from. It fails with ErrTypeMismatch when
// from does not carry messages of type T.
func (p *Port[T]) Propagate(from AnyPort) error {
	src, ok := from.(*Port[T])
	if !ok {
		return fmt.Errorf("propagate %s (%s) -> %s (%s): %w", from.ID(), from.Type(), p.id, p.Type(), ErrTypeMismatch)
	}
	p.bag = append(p.bag, src.bag...)
	return nil
}

func (p *Port[T]) link(from AnyPort) (func(), error) {
	src, ok := from.(*Port[T])
	if !ok {
		return nil, fmt.Errorf("%s carries %s, %s carries %s: %w", from.ID(), from.Type(), p.id, p.Type(), ErrCouplingType)
	}
	return func() { p.bag = append(p.bag, src.bag...) }, nil
}

// PortSet is the ordered collection of input or output ports of one component.
type PortSet struct {
	owner Component
	ports []AnyPort
	index map[string]int
}

func newPortSet(owner Component) *PortSet {
	return &PortSet{owner: owner, index: make(map[string]int)}
}

// Add attaches a port to the set. It fails with ErrDuplicatePort on an id
// collision and with ErrConfig when the port already belongs to another component.
func (ps *PortSet) Add(p AnyPort) error {
	if _, exists := ps.index[p.ID()]; exists {
		return fmt.Errorf("port %q: %w", p.ID(), ErrDuplicatePort)
	}
	if p.Parent() != nil && p.Parent() != ps.owner {
		return fmt.Errorf("port %q already belongs to %q: %w", p.ID(), p.Parent().ID(), ErrConfig)
	}
	p.setParent(ps.owner)
	ps.index[p.ID()] = len(ps.ports)
	ps.ports = append(ps.ports, p)
	return nil
}

// Get returns the port with the given id, if any.
func (ps *PortSet) Get(id string) (AnyPort, bool) {
	i, ok := ps.index[id]
	if !ok {
		return nil, false
	}
	return ps.ports[i], true
}

// Has reports whether a port with the given id exists.
func (ps *PortSet) Has(id string) bool {
	_, ok := ps.index[id]
	return ok
}

// Contains reports whether this exact port belongs to the set.
func (ps *PortSet) Contains(p AnyPort) bool {
	i, ok := ps.index[p.ID()]
	return ok && ps.ports[i] == p
}

// Ports returns the ports in declaration order.
func (ps *PortSet) Ports() []AnyPort {
	return ps.ports
}

// Empty reports whether every port in the set has an empty bag.
func (ps *PortSet) Empty() bool {
	for _, p := range ps.ports {
		if !p.Empty() {
			return false
		}
	}
	return true
}

// Clear empties every port in the set.
func (ps *PortSet) Clear() {
	for _, p := range ps.ports {
		p.Clear()
	}
}

// GetPort looks up a port by id and checks its message type.
func GetPort[T any](ps *PortSet, id string) (*Port[T], error) {
	p, ok := ps.Get(id)
	if !ok {
		return nil, fmt.Errorf("port %q: %w", id, ErrUnknownPort)
	}
	typed, ok := p.(*Port[T])
	if !ok {
		want := reflect.TypeOf((*T)(nil)).Elem()
		return nil, fmt.Errorf("port %q carries %s, not %s: %w", id, p.Type(), want, ErrTypeMismatch)
	}
	return typed, nil
}

// AddMessage writes a message to the port with the given id.
func AddMessage[T any](ps *PortSet, id string, msg T) error {
	p, err := GetPort[T](ps, id)
	if err != nil {
		return err
	}
	p.AddMessage(msg)
	return nil
}
