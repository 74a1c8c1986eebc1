package stats

import (
	"sort"
	"sync"
	"time"
)

// Stage names a timed pipeline step.
type Stage string

const (
	StagePreprocess Stage = "preprocess"
	StageRecognize  Stage = "recognize"
	StageExtract    Stage = "extract"
	StageReport     Stage = "report"
)

type sample struct {
	timestamp  time.Time
	durationMs int64
}

// Snapshot is a point-in-time aggregate of latency samples.
type Snapshot struct {
	Count int     `json:"count"`
	MinMs int64   `json:"min_ms"`
	MaxMs int64   `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
}

// Window tracks recent durations within a rolling time window.
type Window struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
}

func NewWindow(maxAge time.Duration) *Window {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Window{
		samples: make([]sample, 0, 256),
		maxAge:  maxAge,
	}
}

func (w *Window) Record(d time.Duration) {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	now := time.Now()

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(now)
	w.samples = append(w.samples, sample{timestamp: now, durationMs: ms})
}

func (w *Window) Snapshot() Snapshot {
	now := time.Now()

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(now)
	if len(w.samples) == 0 {
		return Snapshot{}
	}

	values := make([]int64, 0, len(w.samples))
	var sum int64
	for _, sm := range w.samples {
		values = append(values, sm.durationMs)
		sum += sm.durationMs
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	return Snapshot{
		Count: len(values),
		MinMs: values[0],
		MaxMs: values[len(values)-1],
		AvgMs: float64(sum) / float64(len(values)),
		P50Ms: percentile(values, 50),
		P95Ms: percentile(values, 95),
		P99Ms: percentile(values, 99),
	}
}

func (w *Window) pruneLocked(now time.Time) {
	cutoff := now.Add(-w.maxAge)
	keep := w.samples[:0]
	for _, sm := range w.samples {
		if !sm.timestamp.Before(cutoff) {
			keep = append(keep, sm)
		}
	}
	w.samples = keep
}

// percentile interpolates linearly between the two nearest ranks.
func percentile(sorted []int64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sorted[0])
	}
	if pct >= 100 {
		return float64(sorted[len(sorted)-1])
	}

	index := (float64(len(sorted)-1) * pct) / 100.0
	lower := int(index)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	weight := index - float64(lower)
	lo := float64(sorted[lower])
	hi := float64(sorted[lower+1])
	return lo + (hi-lo)*weight
}

// Latency keeps one Window per stage.
type Latency struct {
	mu      sync.Mutex
	maxAge  time.Duration
	windows map[Stage]*Window
}

func NewLatency(maxAge time.Duration) *Latency {
	return &Latency{maxAge: maxAge, windows: make(map[Stage]*Window)}
}

func (l *Latency) window(stage Stage) *Window {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.windows[stage]
	if !ok {
		w = NewWindow(l.maxAge)
		l.windows[stage] = w
	}
	return w
}

// Record adds one duration for stage. A nil Latency discards it.
func (l *Latency) Record(stage Stage, d time.Duration) {
	if l == nil {
		return
	}
	l.window(stage).Record(d)
}

// Time starts a timer; calling the returned func records the elapsed time.
//
//	defer lat.Time(stats.StageExtract)()
func (l *Latency) Time(stage Stage) func() {
	start := time.Now()
	return func() { l.Record(stage, time.Since(start)) }
}

// Snapshot returns an aggregate for every stage seen so far.
func (l *Latency) Snapshot() map[Stage]Snapshot {
	out := make(map[Stage]Snapshot)
	if l == nil {
		return out
	}
	l.mu.Lock()
	windows := make(map[Stage]*Window, len(l.windows))
	for k, w := range l.windows {
		windows[k] = w
	}
	l.mu.Unlock()

	for k, w := range windows {
		out[k] = w.Snapshot()
	}
	return out
}
