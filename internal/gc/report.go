package gc

import "time"

// SweepReport counts what happened to the candidates of one sweep.
type SweepReport struct {
	Candidates int
	Advanced   int // deleting -> deleted_from_primary
	Deleted    int // reached deleted
	Held       int // retained because live dependents exist
	Skipped    int // lock interrupted or unusable location
	Failed     int // gateway, lookup, status update failure or panic

	// LookupErr is set when the candidate query failed and the sweep was abandoned.
	LookupErr error
}

func (r *SweepReport) record(o Outcome) {
	switch {
	case o == OutcomeAdvanced:
		r.Advanced++
	case o == OutcomeDeleted:
		r.Deleted++
	case o == OutcomeHeld:
		r.Held++
	case o.Failed():
		r.Failed++
	default:
		r.Skipped++
	}
}

// Clean reports whether the sweep ran without any failure.
func (r *SweepReport) Clean() bool {
	return r.LookupErr == nil && r.Failed == 0
}

// CycleReport summarises one reconciliation cycle.
type CycleReport struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Primary    SweepReport
	Secondary  SweepReport
}

// Duration returns how long the cycle took.
func (c *CycleReport) Duration() time.Duration {
	return c.FinishedAt.Sub(c.StartedAt)
}

// Status is "success" when neither sweep failed and "partial" otherwise.
func (c *CycleReport) Status() string {
	if c.Primary.Clean() && c.Secondary.Clean() {
		return "success"
	}
	return "partial"
}
