package stats

import (
	"testing"
	"time"
)

func TestWindowSnapshotPercentiles(t *testing.T) {
	w := NewWindow(time.Hour)
	for _, ms := range []int64{100, 200, 300, 400, 500} {
		w.Record(time.Duration(ms) * time.Millisecond)
	}

	snap := w.Snapshot()
	if snap.Count != 5 {
		t.Fatalf("expected count=5, got %d", snap.Count)
	}
	if snap.MinMs != 100 {
		t.Fatalf("expected min=100, got %d", snap.MinMs)
	}
	if snap.MaxMs != 500 {
		t.Fatalf("expected max=500, got %d", snap.MaxMs)
	}
	if snap.AvgMs != 300 {
		t.Fatalf("expected avg=300, got %f", snap.AvgMs)
	}
	if snap.P50Ms != 300 {
		t.Fatalf("expected p50=300, got %f", snap.P50Ms)
	}
	if snap.P95Ms != 480 {
		t.Fatalf("expected p95=480, got %f", snap.P95Ms)
	}
	if snap.P99Ms != 496 {
		t.Fatalf("expected p99=496, got %f", snap.P99Ms)
	}
}

func TestWindowPrunesExpiredSamples(t *testing.T) {
	w := NewWindow(10 * time.Millisecond)
	w.Record(100 * time.Millisecond)
	time.Sleep(25 * time.Millisecond)

	if snap := w.Snapshot(); snap.Count != 0 {
		t.Fatalf("expected count=0 after prune, got %d", snap.Count)
	}

	w.Record(200 * time.Millisecond)
	snap := w.Snapshot()
	if snap.Count != 1 {
		t.Fatalf("expected count=1 for fresh sample, got %d", snap.Count)
	}
	if snap.MinMs != 200 || snap.MaxMs != 200 {
		t.Fatalf("expected min=max=200, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
}

func TestWindowClampsNegativeDuration(t *testing.T) {
	w := NewWindow(time.Hour)
	w.Record(-10 * time.Millisecond)
	snap := w.Snapshot()
	if snap.Count != 1 {
		t.Fatalf("expected count=1, got %d", snap.Count)
	}
	if snap.MinMs != 0 || snap.MaxMs != 0 {
		t.Fatalf("expected clamped duration=0, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
}

func TestLatencyPerStage(t *testing.T) {
	l := NewLatency(time.Hour)
	l.Record(StageRecognize, 40*time.Millisecond)
	l.Record(StageRecognize, 60*time.Millisecond)
	l.Record(StageExtract, 2*time.Millisecond)
	l.Time(StagePreprocess)()

	snap := l.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 stages, got %d", len(snap))
	}
	if snap[StageRecognize].Count != 2 || snap[StageRecognize].AvgMs != 50 {
		t.Fatalf("unexpected recognize snapshot: %+v", snap[StageRecognize])
	}
	if snap[StagePreprocess].Count != 1 {
		t.Fatalf("expected timed preprocess sample, got %+v", snap[StagePreprocess])
	}
}

func TestLatencyNilIsNoop(t *testing.T) {
	var l *Latency
	l.Record(StageExtract, time.Second)
	l.Time(StageExtract)()
	if got := l.Snapshot(); len(got) != 0 {
		t.Fatalf("expected empty snapshot, got %v", got)
	}
}
