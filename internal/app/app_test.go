package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"snapgc/internal/config"
	"snapgc/internal/model"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.NewConfig("zone-1", t.TempDir())
	cfg.Database = config.DatabaseConfig{Type: "memory"}
	cfg.BlockTier = config.BlockTierConfig{Type: "memory", Name: "block"}
	cfg.ObjectTier = config.ObjectTierConfig{Type: "memory", Name: "object"}
	cfg.LogLevel = "error"
	return cfg
}

func newTestApp(t *testing.T) *SnapGCApp {
	t.Helper()

	a, err := NewSnapGCApp(context.Background(), testConfig(t), "test")
	if err != nil {
		t.Fatalf("NewSnapGCApp() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func seed(t *testing.T, a *SnapGCApp, snaps ...*model.SnapshotRecord) {
	t.Helper()
	for _, s := range snaps {
		if s.VolumeID == "" {
			s.VolumeID = "vol-1"
		}
		if s.TierName == "" {
			s.TierName = "block"
		}
		if err := a.db.InsertSnapshot(context.Background(), s); err != nil {
			t.Fatalf("InsertSnapshot(%s) error = %v", s.ID, err)
		}
	}
}

func TestNewSnapGCApp(t *testing.T) {
	t.Run("rejects invalid config", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.ObjectTier.Type = "tape"

		if _, err := NewSnapGCApp(context.Background(), cfg, "test"); err == nil {
			t.Fatal("NewSnapGCApp() error = nil, want invalid config")
		}
	})

	t.Run("refuses an unmigrated database", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Database = config.DatabaseConfig{Type: "sqlite", DataDir: t.TempDir()}

		_, err := NewSnapGCApp(context.Background(), cfg, "test")
		if err == nil || !strings.Contains(err.Error(), "database schema out of date") {
			t.Fatalf("NewSnapGCApp() error = %v, want schema out of date", err)
		}
	})
}

func TestSnapGCApp_RunCycle(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)
	seed(t, a,
		&model.SnapshotRecord{ID: "snap-A", Status: model.StatusDeleting, Origin: model.OriginLocal},
		&model.SnapshotRecord{ID: "snap-B", Status: model.StatusDeletedFromPrimary, Origin: model.OriginCopied, RemoteLocation: "bucket1/key-b"},
		&model.SnapshotRecord{ID: "snap-C", Status: model.StatusDeletedFromPrimary, Origin: model.OriginLocal, RemoteLocation: "bucket1/key-c"},
		&model.SnapshotRecord{ID: "snap-D", Status: "normal", Origin: model.OriginLocal, PreviousID: "snap-C"},
	)

	report, err := a.RunCycle(ctx)
	if err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	if report.Status() != "success" {
		t.Errorf("Status() = %q, want success", report.Status())
	}

	counts, err := a.GetStatus(ctx)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if counts[model.StatusDeleted] != 2 || counts[model.StatusDeletedFromPrimary] != 1 {
		t.Errorf("counts = %v, want 2 deleted and 1 held", counts)
	}

	history, err := a.GetHistory(ctx, 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("len(history) = %d, want 1", len(history))
	}
	got := history[0]
	if got.RunID != report.RunID || got.Status != "success" || !got.FinishedAt.Valid {
		t.Errorf("cycle = %+v, want finished success row for %s", got, report.RunID)
	}
	if got.PrimaryDeleted != 1 || got.SecondaryDeleted != 1 || got.SecondaryHeld != 1 {
		t.Errorf("counters = primary %d, secondary %d, held %d; want 1, 1, 1",
			got.PrimaryDeleted, got.SecondaryDeleted, got.SecondaryHeld)
	}
	if n := a.locks.Len(); n != 0 {
		t.Errorf("lock registry entries = %d, want 0", n)
	}
}

func TestSnapGCApp_MarkForDeletion(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)
	seed(t, a, &model.SnapshotRecord{ID: "snap-A", Status: "normal", Origin: model.OriginLocal, RemoteLocation: "bucket1/key1"})

	if err := a.MarkForDeletion(ctx, "snap-A"); err != nil {
		t.Fatalf("MarkForDeletion() error = %v", err)
	}
	if err := a.MarkForDeletion(ctx, "snap-A"); err == nil {
		t.Error("second MarkForDeletion() error = nil, want conflict")
	}

	if _, err := a.RunCycle(ctx); err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}

	snap, err := a.db.GetSnapshot(ctx, "snap-A")
	if err != nil {
		t.Fatalf("GetSnapshot() error = %v", err)
	}
	if snap.Status != model.StatusDeleted {
		t.Errorf("Status = %q, want %q", snap.Status, model.StatusDeleted)
	}
}

func TestSnapGCApp_Serve(t *testing.T) {
	a := newTestApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, 10*time.Millisecond) }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		history, err := a.GetHistory(context.Background(), 10)
		if err != nil {
			t.Fatalf("GetHistory() error = %v", err)
		}
		if len(history) >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("only %d cycles ran before the deadline", len(history))
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}

func TestSnapGCApp_MetricsHandler(t *testing.T) {
	a := newTestApp(t)
	if _, err := a.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}

	srv := httptest.NewServer(a.MetricsHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{`snapgc_cycle_total{status="success"} 1`, "go_goroutines"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
