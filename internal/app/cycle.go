package app

import (
	"database/sql"

	"snapgc/internal/gc"
	"snapgc/internal/model"
)

// applyReport copies the outcome of a finished cycle into its history row.
// Snapshots advanced to deleted_from_primary count as deleted from the
// primary tier. An abandoned sweep counts as one failure.
func applyReport(row *model.Cycle, report *gc.CycleReport) {
	row.FinishedAt = sql.NullTime{Time: report.FinishedAt.UTC(), Valid: true}
	row.Status = report.Status()

	row.PrimaryCandidates = report.Primary.Candidates
	row.PrimaryDeleted = report.Primary.Advanced + report.Primary.Deleted
	row.PrimaryFailed = failures(report.Primary)

	row.SecondaryCandidates = report.Secondary.Candidates
	row.SecondaryDeleted = report.Secondary.Deleted
	row.SecondaryHeld = report.Secondary.Held
	row.SecondaryFailed = failures(report.Secondary)
}

func failures(r gc.SweepReport) int {
	if r.LookupErr != nil {
		return r.Failed + 1
	}
	return r.Failed
}
