package gateway

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// stagePolicy declares how a stage failure affects the turn. Adding a stage
// means declaring its policy here rather than branching ad hoc in VoiceTurn.
type stagePolicy int

const (
	// mandatory stages abort the turn on failure.
	mandatory stagePolicy = iota

	// bestEffort stages are suppressed on failure; the turn continues
	// without their output.
	bestEffort

	// degradedSuccess stages let the turn complete on failure, flagged as
	// degraded.
	degradedSuccess
)

// outcome classifies how a stage ended under its policy.
type outcome int

const (
	outcomeOK outcome = iota
	outcomeSuppressed
	outcomeDegraded
	outcomeFatal
)

// stage bundles one pipeline step with its failure policy, time budget, and
// latency instrument.
type stage struct {
	kind     string
	provider string
	timeout  time.Duration
	policy   stagePolicy
	hist     metric.Float64Histogram
	run      func(context.Context) error
}

// runStage executes st.run under its own timeout, records stage latency and
// provider request/error counters, and maps any failure through the stage's
// policy. No stage retries; resubmission is the caller's concern.
func (o *Orchestrator) runStage(ctx context.Context, st stage) (outcome, error) {
	sctx := ctx
	cancel := func() {}
	if st.timeout > 0 {
		sctx, cancel = context.WithTimeout(ctx, st.timeout)
	}
	defer cancel()

	start := time.Now()
	err := st.run(sctx)
	st.hist.Record(ctx, time.Since(start).Seconds())

	if err == nil {
		o.metrics.RecordProviderRequest(ctx, st.provider, st.kind, "ok")
		return outcomeOK, nil
	}
	o.metrics.RecordProviderRequest(ctx, st.provider, st.kind, "error")
	o.metrics.RecordProviderError(ctx, st.provider, st.kind)

	switch st.policy {
	case bestEffort:
		return outcomeSuppressed, err
	case degradedSuccess:
		return outcomeDegraded, err
	default:
		return outcomeFatal, err
	}
}
