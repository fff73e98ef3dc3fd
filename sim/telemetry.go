package sim

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("github.com/devs-sim/devs-sim/sim")
var meter = otel.Meter("github.com/devs-sim/devs-sim/sim")

const (
	// transitionKindKey labels transition records with the kind of transition
	// fired: internal, external or confluent.
	transitionKindKey = "devs.transition.kind"
	// modelKey labels run-level records with the id of the root model.
	modelKey = "devs.model"
)

var (
	// cyclesCounter counts output/transition cycles executed by root coordinators.
	cyclesCounter metric.Int64Counter
	// transitionsCounter counts atomic transitions, labeled by transitionKindKey.
	transitionsCounter metric.Int64Counter
	// simulateDuration measures the wall-clock duration of one Simulate call.
	simulateDuration metric.Float64Histogram
)

var (
	internalAttrs  = attribute.NewSet(attribute.String(transitionKindKey, "internal"))
	externalAttrs  = attribute.NewSet(attribute.String(transitionKindKey, "external"))
	confluentAttrs = attribute.NewSet(attribute.String(transitionKindKey, "confluent"))
)

func init() {
	var err error
	cyclesCounter, err = meter.Int64Counter(
		"devs.cycles",
		metric.WithDescription("The number of output/transition cycles executed by root coordinators."),
	)
	if err != nil {
		panic("sim: failed to init 'devs.cycles' instrument")
	}

	transitionsCounter, err = meter.Int64Counter(
		"devs.transitions",
		metric.WithDescription("The number of atomic model transitions, by transition kind."),
	)
	if err != nil {
		panic("sim: failed to init 'devs.transitions' instrument")
	}

	simulateDuration, err = meter.Float64Histogram(
		"devs.simulate.duration",
		metric.WithDescription("The wall-clock duration of a single Simulate call."),
		metric.WithUnit("ms"),
	)
	if err != nil {
		panic("sim: failed to init 'devs.simulate.duration' instrument")
	}
}

// measureSimulate records the wall-clock duration of a Simulate call for the
// root model named model.
func measureSimulate(ctx context.Context, model string, d time.Duration) {
	attrs := attribute.NewSet(attribute.String(modelKey, model))
	simulateDuration.Record(ctx, float64(d)/float64(time.Millisecond), metric.WithAttributeSet(attrs))
}
