package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
)

// Stage names, in the order they run within a tick.
const (
	StageCapture     = "capture"
	StagePreprocess  = "preprocess"
	StageInference   = "inference"
	StagePostprocess = "postprocess"
)

// Stages lists every stage in tick order.
var Stages = []string{StageCapture, StagePreprocess, StageInference, StagePostprocess}

// StageDuration is the time one stage of a tick took.
type StageDuration struct {
	Stage    string
	Duration time.Duration
}

// StageTiming is the per-stage latency of one tick. Total runs from the tick start to the end
// of the last measured stage, so reporting itself is never included.
type StageTiming struct {
	Stages []StageDuration
	Total  time.Duration
}

// Get returns the duration recorded for a stage.
func (st *StageTiming) Get(stage string) (time.Duration, bool) {
	for _, s := range st.Stages {
		if s.Stage == stage {
			return s.Duration, true
		}
	}
	return 0, false
}

func (st *StageTiming) String() string {
	parts := make([]string, 0, len(st.Stages)+1)
	for _, s := range st.Stages {
		parts = append(parts, fmt.Sprintf("%s=%s", s.Stage, ms(s.Duration)))
	}
	parts = append(parts, fmt.Sprintf("total=%s", ms(st.Total)))
	return strings.Join(parts, " ")
}

func ms(d time.Duration) string {
	return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
}

// stopwatch records lap times off a clock. It only reads the clock, so the cost of timing is
// a handful of Now calls per tick.
type stopwatch struct {
	clock clock.Clock
	start time.Time
	last  time.Time
	laps  []StageDuration
}

func startStopwatch(c clock.Clock) *stopwatch {
	now := c.Now()
	return &stopwatch{clock: c, start: now, last: now, laps: make([]StageDuration, 0, len(Stages))}
}

func (sw *stopwatch) lap(stage string) {
	now := sw.clock.Now()
	sw.laps = append(sw.laps, StageDuration{Stage: stage, Duration: now.Sub(sw.last)})
	sw.last = now
}

func (sw *stopwatch) timing() *StageTiming {
	return &StageTiming{Stages: sw.laps, Total: sw.last.Sub(sw.start)}
}
