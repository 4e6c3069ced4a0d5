package gc

import "time"

// Sweep names one of the two passes of a reconciliation cycle.
type Sweep string

const (
	SweepPrimary   Sweep = "primary"
	SweepSecondary Sweep = "secondary"
)

// Outcome is the result of processing a single candidate in a sweep.
type Outcome string

const (
	OutcomeAdvanced        Outcome = "advanced" // moved to deleted_from_primary
	OutcomeDeleted         Outcome = "deleted"
	OutcomeHeld            Outcome = "held"
	OutcomeLockInterrupted Outcome = "lock_interrupted"
	OutcomeInvalidLocation Outcome = "invalid_location"
	OutcomeGatewayFailed   Outcome = "gateway_failed"
	OutcomeLookupFailed    Outcome = "lookup_failed"
	OutcomeUpdateFailed    Outcome = "update_failed"
	OutcomePanicked        Outcome = "panicked"
)

// Failed reports whether the outcome is an error that will be retried next cycle.
// Held and skipped candidates are not failures.
func (o Outcome) Failed() bool {
	switch o {
	case OutcomeGatewayFailed, OutcomeLookupFailed, OutcomeUpdateFailed, OutcomePanicked:
		return true
	default:
		return false
	}
}

// Metrics receives reconciliation outcomes.
type Metrics interface {
	RecordOutcome(sweep Sweep, outcome Outcome, elapsed time.Duration)
	RecordLookupFailure(sweep Sweep)
	RecordCycle(report *CycleReport)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) RecordOutcome(Sweep, Outcome, time.Duration) {}
func (NopMetrics) RecordLookupFailure(Sweep)                  {}
func (NopMetrics) RecordCycle(*CycleReport)                   {}
