package telemetry

import (
	"testing"
	"time"

	"obx-bot/internal/config"

	"go.uber.org/zap"
)

func TestNewDisabledReturnsNil(t *testing.T) {
	w, err := New(config.TelemetryConfig{Enabled: false}, zap.NewNop())
	if err != nil {
		t.Fatalf("expected no error for disabled telemetry, got %v", err)
	}
	if w != nil {
		t.Fatalf("expected nil writer when disabled")
	}
}

func TestNewRequiresDSN(t *testing.T) {
	if _, err := New(config.TelemetryConfig{Enabled: true}, zap.NewNop()); err == nil {
		t.Fatalf("expected error for missing dsn")
	}
}

func TestNilWriterIsNoop(t *testing.T) {
	var w *Writer
	w.WriteSnapshot(SnapshotRow{Time: time.Now()})
	w.WriteRisk(RiskRow{Time: time.Now()})
	if w.DroppedSnapshots() != 0 {
		t.Fatalf("expected zero drops on nil writer")
	}
	if err := w.Start(nil); err != nil {
		t.Fatalf("expected nil start on nil writer, got %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("expected nil close on nil writer, got %v", err)
	}
}

func TestWriterDropsOnFullBuffer(t *testing.T) {
	w := &Writer{
		log:       zap.NewNop(),
		snapshots: make(chan SnapshotRow, 1),
		riskRows:  make(chan RiskRow, 1),
	}
	w.WriteSnapshot(SnapshotRow{})
	w.WriteSnapshot(SnapshotRow{})
	if got := w.DroppedSnapshots(); got != 1 {
		t.Fatalf("expected 1 dropped snapshot, got %d", got)
	}
}
