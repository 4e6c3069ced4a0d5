package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSnapgcHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		runID   string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			runID:   "run-123",
			level:   slog.LevelInfo,
			message: "snapshot deleted",
			want:    "2024-06-15T14:30:45Z\tINFO\trun-123\tsnapshot deleted\n",
		},
		{
			name:    "warn level",
			runID:   "run-456",
			level:   slog.LevelWarn,
			message: "unable to delete snapshot from block tier, will retry later",
			want:    "2024-06-15T14:30:45Z\tWARN\trun-456\tunable to delete snapshot from block tier, will retry later\n",
		},
		{
			name:    "with record attrs",
			runID:   "run-789",
			level:   slog.LevelInfo,
			message: "snapshot deleted",
			attrs:   []slog.Attr{slog.String("snapshot", "snap-A"), slog.String("tier", "object")},
			want:    "2024-06-15T14:30:45Z\tINFO\trun-789\tsnapshot deleted\tsnapshot=snap-A\ttier=object\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &snapgcHandler{w: &buf, runID: tt.runID}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			for _, a := range tt.attrs {
				r.AddAttrs(a)
			}

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestSnapgcHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &snapgcHandler{w: &buf, runID: "run-1", attrs: []slog.Attr{slog.String("zone", "z1")}}

	h2 := h.WithAttrs([]slog.Attr{slog.String("sweep", "secondary")}).(*snapgcHandler)

	if len(h.attrs) != 1 {
		t.Errorf("original handler attrs modified: got %d, want 1", len(h.attrs))
	}

	r := slog.NewRecord(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), slog.LevelInfo, "held", 0)
	r.AddAttrs(slog.String("snapshot", "snap-A"))

	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	for _, want := range []string{"zone=z1", "sweep=secondary", "snapshot=snap-A"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %s in output, got: %q", want, got)
		}
	}
}

func TestSnapgcHandler_Enabled(t *testing.T) {
	tests := []struct {
		name  string
		level slog.Leveler
		check slog.Level
		want  bool
	}{
		{name: "no level enables everything", check: slog.LevelDebug, want: true},
		{name: "info hides debug", level: slog.LevelInfo, check: slog.LevelDebug, want: false},
		{name: "info shows warn", level: slog.LevelInfo, check: slog.LevelWarn, want: true},
		{name: "error hides warn", level: slog.LevelError, check: slog.LevelWarn, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &snapgcHandler{level: tt.level}
			if got := h.Enabled(context.Background(), tt.check); got != tt.want {
				t.Errorf("Enabled(%v) = %v, want %v", tt.check, got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "", want: slog.LevelInfo},
		{in: "debug", want: slog.LevelDebug},
		{in: "WARN", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "trace", wantErr: true},
	}

	for _, tt := range tests {
		got, err := parseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	dir := t.TempDir()

	logger, f, err := newLogger(dir, "debug", "test-run")
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	defer f.Close()

	logger.Debug("cycle started", "run", "test-run")

	data, err := os.ReadFile(filepath.Join(dir, "snapgc.log"))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "\tDEBUG\ttest-run\tcycle started\trun=test-run") {
		t.Errorf("log file = %q, want debug line", data)
	}

	if _, _, err := newLogger(dir, "loud", "x"); err == nil {
		t.Error("newLogger() with unknown level should fail")
	}
}
