package sim

import (
	"errors"
	"fmt"
	"strings"
)

// Component is the identity and port contract shared by atomic and coupled
// models. Components are created with NewAtomic or NewCoupled (directly or
// embedded in a model type) and attached to a parent with Coupled.AddComponent.
type Component interface {
	ID() string
	// Parent returns the coupled model this component is attached to, or nil for the root.
	Parent() *Coupled
	InPorts() *PortSet
	OutPorts() *PortSet

	base() *component
}

// component is embedded by Atomic and Coupled.
type component struct {
	id     string
	parent *Coupled
	in     *PortSet
	out    *PortSet
	errs   []error
}

func (c *component) init(self Component, id string) {
	c.id = id
	c.in = newPortSet(self)
	c.out = newPortSet(self)
	if id == "" {
		c.fail(fmt.Errorf("component id must not be empty: %w", ErrConfig))
	}
	if strings.Contains(id, ".") {
		c.fail(fmt.Errorf("component id %q must not contain '.': %w", id, ErrConfig))
	}
}

func (c *component) ID() string         { return c.id }
func (c *component) Parent() *Coupled   { return c.parent }
func (c *component) InPorts() *PortSet  { return c.in }
func (c *component) OutPorts() *PortSet { return c.out }

func (c *component) base() *component { return c }

// fail remembers a declaration error; it surfaces when the component is attached.
func (c *component) fail(err error) {
	c.errs = append(c.errs, err)
}

func (c *component) err() error {
	if len(c.errs) == 0 {
		return nil
	}
	return fmt.Errorf("component %q: %w", c.id, errors.Join(c.errs...))
}

// AddInPort declares a typed input port on c and returns it. Declaration
// errors (such as a duplicate id) are reported when c is attached to its
// parent, or when a coordinator is built for c or any model containing it.
func AddInPort[T any](c Component, id string) *Port[T] {
	p := NewPort[T](id)
	if err := c.InPorts().Add(p); err != nil {
		c.base().fail(fmt.Errorf("input %w", err))
	}
	return p
}

// AddOutPort declares a typed output port on c and returns it.
func AddOutPort[T any](c Component, id string) *Port[T] {
	p := NewPort[T](id)
	if err := c.OutPorts().Add(p); err != nil {
		c.base().fail(fmt.Errorf("output %w", err))
	}
	return p
}

// Path returns the dot-separated ids from the root model down to c.
func Path(c Component) string {
	ids := []string{c.ID()}
	for p := c.Parent(); p != nil; p = p.Parent() {
		ids = append(ids, p.ID())
	}
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	return strings.Join(ids, ".")
}

// sameComponent reports whether a and b are views of the same component,
// e.g. a model type and the Atomic or Coupled embedded in it.
func sameComponent(a, b Component) bool {
	if a == nil || b == nil {
		return false
	}
	return a.base() == b.base()
}
