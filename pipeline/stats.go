package pipeline

import (
	"sync"
	"time"

	"github.com/montanaflynn/stats"
)

// maxLatencySamples bounds the per-stage history kept for the latency summary.
const maxLatencySamples = 1024

// Stats are the counters of a run.
type Stats struct {
	RunID           string
	State           State
	Ticks           uint64
	Processed       uint64
	CaptureFailures uint64
	Skipped         uint64
	// Latency maps a stage name, or "total", to a summary of its recent durations.
	Latency map[string]LatencySummary
}

// LatencySummary summarizes the most recent durations of one stage.
type LatencySummary struct {
	Samples int
	Mean    time.Duration
	P50     time.Duration
	P95     time.Duration
}

// latencyTracker keeps a ring of recent samples per stage.
type latencyTracker struct {
	mu      sync.Mutex
	samples map[string][]float64
	next    map[string]int
}

func newLatencyTracker() *latencyTracker {
	return &latencyTracker{samples: map[string][]float64{}, next: map[string]int{}}
}

func (lt *latencyTracker) add(st *StageTiming) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	for _, s := range st.Stages {
		lt.addLocked(s.Stage, s.Duration)
	}
	lt.addLocked(totalKey, st.Total)
}

const totalKey = "total"

func (lt *latencyTracker) addLocked(stage string, d time.Duration) {
	buf := lt.samples[stage]
	if len(buf) < maxLatencySamples {
		lt.samples[stage] = append(buf, float64(d))
		return
	}
	i := lt.next[stage]
	buf[i] = float64(d)
	lt.next[stage] = (i + 1) % maxLatencySamples
}

func (lt *latencyTracker) summary() map[string]LatencySummary {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	out := make(map[string]LatencySummary, len(lt.samples))
	for stage, data := range lt.samples {
		if len(data) == 0 {
			continue
		}
		sum := LatencySummary{Samples: len(data)}
		if mean, err := stats.Mean(data); err == nil {
			sum.Mean = time.Duration(mean)
		}
		if p50, err := stats.Percentile(data, 50); err == nil {
			sum.P50 = time.Duration(p50)
		}
		if p95, err := stats.Percentile(data, 95); err == nil {
			sum.P95 = time.Duration(p95)
		}
		out[stage] = sum
	}
	return out
}
