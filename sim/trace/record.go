// Package trace provides trajectory recording for DEVS simulations.
// It has no dependencies on sim/ and only stores and writes plain data types.
package trace

import "strconv"

// Record captures a single trajectory line: either a message a model wrote to
// one of its output ports, or the state a model reached after a transition.
type Record struct {
	Time  float64
	Model string // dot-separated component path from the root model
	Port  string // output port id; empty for state records
	Data  string
}

// IsState reports whether the record describes a model state rather than an output message.
func (r Record) IsState() bool {
	return r.Port == ""
}

// FormatTime renders a simulation time the way every logger in this package writes it.
func FormatTime(t float64) string {
	return strconv.FormatFloat(t, 'g', -1, 64)
}
