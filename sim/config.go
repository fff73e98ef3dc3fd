package sim

import (
	"context"

	"github.com/devs-sim/devs-sim/sim/trace"
)

// Config groups the execution options shared by every simulator and
// coordinator of one model hierarchy.
type Config struct {
	Logger   trace.Logger // trajectory sink; nil disables trajectory logging
	Parallel bool         // run the children of each coordinator concurrently within a phase
}

// environment is the per-run state every node of the hierarchy shares.
type environment struct {
	ctx      context.Context
	logger   trace.Logger
	parallel bool
	metrics  *Metrics
}

func newEnvironment(cfg Config) *environment {
	logger := cfg.Logger
	if logger != nil && cfg.Parallel {
		logger = trace.Synchronized(logger)
	}
	return &environment{
		ctx:      context.Background(),
		logger:   logger,
		parallel: cfg.Parallel,
		metrics:  NewMetrics(),
	}
}
