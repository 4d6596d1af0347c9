package ai

import (
	"testing"
	"time"

	"github.com/dgallion1/mindgest/internal/document"
)

func TestLLMStatsSnapshotPercentiles(t *testing.T) {
	stats := NewLLMStats(time.Hour)
	stats.Record(100)
	stats.Record(200)
	stats.Record(300)
	stats.Record(400)
	stats.Record(500)

	snap := stats.Snapshot()
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

func TestLLMStatsPrunesExpiredSamples(t *testing.T) {
	stats := NewLLMStats(10 * time.Millisecond)
	stats.Record(100)
	time.Sleep(25 * time.Millisecond)

	snap := stats.Snapshot()
	if snap.Count != 0 {
		t.Fatalf("expected count=0 after prune, got %d", snap.Count)
	}

	stats.Record(200)
	snap = stats.Snapshot()
	if snap.Count != 1 {
		t.Fatalf("expected count=1 for fresh sample, got %d", snap.Count)
	}
	if snap.MinMs != 200 || snap.MaxMs != 200 {
		t.Fatalf("expected min=max=200, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
}

func TestLLMStatsRecordClampsNegativeDuration(t *testing.T) {
	stats := NewLLMStats(time.Hour)
	stats.Record(-10)
	snap := stats.Snapshot()
	if snap.Count != 1 {
		t.Fatalf("expected count=1, got %d", snap.Count)
	}
	if snap.MinMs != 0 || snap.MaxMs != 0 {
		t.Fatalf("expected clamped duration=0, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
}

func TestStatsPerTaskCounters(t *testing.T) {
	s := NewStats(time.Hour)
	s.RecordLatency(document.TaskSummary, 120*time.Millisecond)
	s.RecordLatency(document.TaskSummary, 80*time.Millisecond)
	s.RecordFailure(document.TaskOutline)
	s.RecordPolicyRetry(document.TaskOutline)
	s.RecordRateLimitRetry(document.TaskMindMap)

	snap := s.Snapshot()
	if got := snap[document.TaskSummary].Latency.Count; got != 2 {
		t.Fatalf("expected 2 summary samples, got %d", got)
	}
	if got := snap[document.TaskSummary].Latency.MaxMs; got != 120 {
		t.Fatalf("expected max=120, got %d", got)
	}
	if snap[document.TaskOutline].Failures != 1 || snap[document.TaskOutline].PolicyRetries != 1 {
		t.Fatalf("unexpected outline counters: %+v", snap[document.TaskOutline])
	}
	if snap[document.TaskMindMap].RateLimitRetries != 1 {
		t.Fatalf("expected one rate limit retry, got %+v", snap[document.TaskMindMap])
	}
}

func TestStatsNilSafe(t *testing.T) {
	var s *Stats
	s.RecordLatency(document.TaskSummary, time.Second)
	s.RecordFailure(document.TaskSummary)
}
