package app

import (
	"errors"
	"testing"
	"time"

	"snapgc/internal/gc"
	"snapgc/internal/model"
)

func TestApplyReport(t *testing.T) {
	start := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	row := &model.Cycle{ID: 7, RunID: "id-1", StartedAt: start, Status: "running"}

	applyReport(row, &gc.CycleReport{
		RunID:      "id-1",
		StartedAt:  start,
		FinishedAt: start.Add(time.Second),
		Primary:    gc.SweepReport{Candidates: 4, Advanced: 2, Deleted: 1, Failed: 1},
		Secondary:  gc.SweepReport{LookupErr: errors.New("database is locked")},
	})

	want := model.Cycle{
		ID:                7,
		RunID:             "id-1",
		StartedAt:         start,
		Status:            "partial",
		PrimaryCandidates: 4,
		PrimaryDeleted:    3,
		PrimaryFailed:     1,
		SecondaryFailed:   1,
	}
	want.FinishedAt.Time = start.Add(time.Second)
	want.FinishedAt.Valid = true

	if *row != want {
		t.Errorf("applyReport() = %+v, want %+v", *row, want)
	}
}
