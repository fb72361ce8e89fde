package experiment

import (
	"math/rand/v2"
)

// PerformanceSample is one synthetic per-algorithm performance reading
// for comparison displays. Samples are demo-grade: they come from fixed
// baseline profiles with bounded jitter, never from recorded metrics,
// and must never be written into the metrics store.
type PerformanceSample struct {
	AlgorithmID    string  `json:"algorithm_id"`
	ResponseTimeMs float64 `json:"response_time_ms"`
	Accuracy       float64 `json:"accuracy"`
	EngagementRate float64 `json:"engagement_rate"`
}

// Baseline profiles per known algorithm. Unknown algorithms fall back to
// the generic profile so comparison views always render something.
var performanceBaselines = map[string]PerformanceSample{
	"collaborative_filtering": {ResponseTimeMs: 120, Accuracy: 0.78, EngagementRate: 0.34},
	"content_based":           {ResponseTimeMs: 95, Accuracy: 0.72, EngagementRate: 0.29},
	"hybrid":                  {ResponseTimeMs: 150, Accuracy: 0.83, EngagementRate: 0.38},
	"popularity":              {ResponseTimeMs: 40, Accuracy: 0.61, EngagementRate: 0.22},
}

var genericBaseline = PerformanceSample{ResponseTimeMs: 110, Accuracy: 0.70, EngagementRate: 0.30}

// PerformanceSimulator generates plausible per-algorithm samples by
// applying bounded jitter to a baseline profile.
type PerformanceSimulator struct {
	// jitter is the maximum relative deviation from the baseline
	// (0.1 means +-10%).
	jitter float64
}

func NewPerformanceSimulator() *PerformanceSimulator {
	return &PerformanceSimulator{jitter: 0.1}
}

// Simulate returns one synthetic sample for the algorithm.
func (s *PerformanceSimulator) Simulate(algorithmID string) PerformanceSample {
	baseline, ok := performanceBaselines[algorithmID]
	if !ok {
		baseline = genericBaseline
	}

	return PerformanceSample{
		AlgorithmID:    algorithmID,
		ResponseTimeMs: s.jittered(baseline.ResponseTimeMs),
		Accuracy:       clamp01(s.jittered(baseline.Accuracy)),
		EngagementRate: clamp01(s.jittered(baseline.EngagementRate)),
	}
}

func (s *PerformanceSimulator) jittered(v float64) float64 {
	// Uniform in [1-jitter, 1+jitter).
	factor := 1 + s.jitter*(2*rand.Float64()-1)
	return v * factor
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
