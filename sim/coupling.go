package sim

import "fmt"

// CouplingKind distinguishes the three DEVS coupling relations.
type CouplingKind int

const (
	// InternalCoupling connects a child's output port to a child's input port.
	InternalCoupling CouplingKind = iota
	// ExternalInputCoupling connects the coupled model's input port to a child's input port.
	ExternalInputCoupling
	// ExternalOutputCoupling connects a child's output port to the coupled model's output port.
	ExternalOutputCoupling
)

func (k CouplingKind) String() string {
	switch k {
	case InternalCoupling:
		return "IC"
	case ExternalInputCoupling:
		return "EIC"
	case ExternalOutputCoupling:
		return "EOC"
	default:
		return fmt.Sprintf("CouplingKind(%d)", int(k))
	}
}

// PortRef names a coupling endpoint: a component id and one of its port ids.
// For the coupled model's own ports, Component is the coupled model's id.
type PortRef struct {
	Component string
	Port      string
}

func (r PortRef) String() string {
	return r.Component + "." + r.Port
}

// Coupling is a directed, type-checked edge between two ports.
type Coupling struct {
	Kind CouplingKind
	From PortRef
	To   PortRef

	from  AnyPort
	to    AnyPort
	route func()
}

func (c *Coupling) String() string {
	return fmt.Sprintf("%s %s -> %s", c.Kind, c.From, c.To)
}

type couplingKey struct {
	from AnyPort
	to   AnyPort
}
