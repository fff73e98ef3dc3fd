package sim

import (
	"errors"
	"fmt"
)

// ErrConfig marks every error detected while a model is being built: malformed
// scenario fields, duplicate ids, and unresolved or mistyped couplings.
// The more specific structural errors below all match ErrConfig with errors.Is.
var ErrConfig = errors.New("config error")

// Structural build errors. Each matches ErrConfig.
var (
	ErrDuplicatePort      = &configError{"duplicate port"}
	ErrDuplicateComponent = &configError{"duplicate component"}
	ErrDuplicateCoupling  = &configError{"duplicate coupling"}
	ErrUnknownPort        = &configError{"unknown port"}
	ErrUnknownComponent   = &configError{"unknown component"}
	ErrCouplingType       = &configError{"coupling type mismatch"}
)

var (
	// ErrTypeMismatch is returned when messages are moved between ports whose
	// declared message types differ.
	ErrTypeMismatch = errors.New("port type mismatch")

	// ErrInvalidTimeAdvance is returned when a model reports a negative or NaN time advance.
	ErrInvalidTimeAdvance = errors.New("invalid time advance")

	// ErrClock is returned when a simulator is asked to act at a time outside
	// [tLast, tNext], or to fire an internal event it never produced output for.
	ErrClock = errors.New("clock violation")
)

// configError is a sentinel that also matches ErrConfig.
type configError struct{ msg string }

func (e *configError) Error() string { return e.msg }

func (e *configError) Is(target error) bool { return target == ErrConfig }

// CouplingError identifies the coupling a build-time check rejected.
type CouplingError struct {
	Coupled string // path of the coupled model the coupling was registered on
	Kind    CouplingKind
	From    PortRef
	To      PortRef
	Err     error
}

func (e *CouplingError) Error() string {
	return fmt.Sprintf("%s: %s coupling %s -> %s: %v", e.Coupled, e.Kind, e.From, e.To, e.Err)
}

func (e *CouplingError) Unwrap() error { return e.Err }
