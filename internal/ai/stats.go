package ai

import (
	"sort"
	"sync"
	"time"

	"github.com/dgallion1/mindgest/internal/document"
)

type sample struct {
	timestamp  time.Time
	durationMs int64
}

// StatsSnapshot is a point-in-time aggregate of LLM latency samples.
type StatsSnapshot struct {
	Count int     `json:"count"`
	MinMs int64   `json:"min_ms"`
	MaxMs int64   `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
}

// LLMStats tracks recent LLM call latencies within a rolling window.
type LLMStats struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
}

func NewLLMStats(maxAge time.Duration) *LLMStats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &LLMStats{
		samples: make([]sample, 0, 256),
		maxAge:  maxAge,
	}
}

func (s *LLMStats) Record(durationMs int64) {
	if durationMs < 0 {
		durationMs = 0
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	s.samples = append(s.samples, sample{
		timestamp:  now,
		durationMs: durationMs,
	})
}

func (s *LLMStats) Snapshot() StatsSnapshot {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	if len(s.samples) == 0 {
		return StatsSnapshot{}
	}

	values := make([]int64, 0, len(s.samples))
	var sum int64
	for _, sm := range s.samples {
		values = append(values, sm.durationMs)
		sum += sm.durationMs
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	return StatsSnapshot{
		Count: len(values),
		MinMs: values[0],
		MaxMs: values[len(values)-1],
		AvgMs: float64(sum) / float64(len(values)),
		P50Ms: percentile(values, 50),
		P95Ms: percentile(values, 95),
		P99Ms: percentile(values, 99),
	}
}

func (s *LLMStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	writeIdx := 0
	for _, sm := range s.samples {
		if !sm.timestamp.Before(cutoff) {
			s.samples[writeIdx] = sm
			writeIdx++
		}
	}
	s.samples = s.samples[:writeIdx]
}

func percentile(sortedValues []int64, pct float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sortedValues[0])
	}
	if pct >= 100 {
		return float64(sortedValues[len(sortedValues)-1])
	}

	index := (float64(len(sortedValues)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sortedValues) {
		return float64(sortedValues[lower])
	}
	weight := index - float64(lower)
	lo := float64(sortedValues[lower])
	hi := float64(sortedValues[upper])
	return lo + ((hi - lo) * weight)
}

// TaskSnapshot is the per-task view served by the stats endpoint.
type TaskSnapshot struct {
	Latency          StatsSnapshot `json:"latency"`
	Failures         int64         `json:"failures"`
	PolicyRetries    int64         `json:"policy_retries"`
	RateLimitRetries int64         `json:"rate_limit_retries"`
}

// Stats keeps latency and failure counters per analysis task.
type Stats struct {
	maxAge time.Duration

	mu    sync.Mutex
	tasks map[document.Task]*taskStats
}

type taskStats struct {
	latency          *LLMStats
	failures         int64
	policyRetries    int64
	rateLimitRetries int64
}

func NewStats(maxAge time.Duration) *Stats {
	return &Stats{maxAge: maxAge, tasks: make(map[document.Task]*taskStats)}
}

func (s *Stats) task(t document.Task) *taskStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.tasks[t]
	if !ok {
		ts = &taskStats{latency: NewLLMStats(s.maxAge)}
		s.tasks[t] = ts
	}
	return ts
}

// RecordLatency adds a successful call's duration.
func (s *Stats) RecordLatency(t document.Task, d time.Duration) {
	if s == nil {
		return
	}
	s.task(t).latency.Record(d.Milliseconds())
}

// RecordFailure counts a call that returned an error.
func (s *Stats) RecordFailure(t document.Task) {
	if s == nil {
		return
	}
	ts := s.task(t)
	s.mu.Lock()
	ts.failures++
	s.mu.Unlock()
}

// RecordPolicyRetry counts a retry with the aggressive sanitiser.
func (s *Stats) RecordPolicyRetry(t document.Task) {
	if s == nil {
		return
	}
	ts := s.task(t)
	s.mu.Lock()
	ts.policyRetries++
	s.mu.Unlock()
}

// RecordRateLimitRetry counts a retry after a 429.
func (s *Stats) RecordRateLimitRetry(t document.Task) {
	if s == nil {
		return
	}
	ts := s.task(t)
	s.mu.Lock()
	ts.rateLimitRetries++
	s.mu.Unlock()
}

// Snapshot returns counters for every task seen so far.
func (s *Stats) Snapshot() map[document.Task]TaskSnapshot {
	s.mu.Lock()
	tasks := make(map[document.Task]*taskStats, len(s.tasks))
	counts := make(map[document.Task]TaskSnapshot, len(s.tasks))
	for t, ts := range s.tasks {
		tasks[t] = ts
		counts[t] = TaskSnapshot{
			Failures:         ts.failures,
			PolicyRetries:    ts.policyRetries,
			RateLimitRetries: ts.rateLimitRetries,
		}
	}
	s.mu.Unlock()

	for t, ts := range tasks {
		snap := counts[t]
		snap.Latency = ts.latency.Snapshot()
		counts[t] = snap
	}
	return counts
}
