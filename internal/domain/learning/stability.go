package learning

import (
	"time"
)

// PerformanceTrend summarizes the direction of recent overall accuracy.
type PerformanceTrend string

const (
	TrendImproving        PerformanceTrend = "improving"
	TrendStable           PerformanceTrend = "stable"
	TrendDegrading        PerformanceTrend = "degrading"
	TrendInsufficientData PerformanceTrend = "insufficient_data"
)

// PerformanceSnapshot is one evaluation of a candidate model. Immutable;
// appended to the monitor's bounded history.
type PerformanceSnapshot struct {
	Timestamp           time.Time                   `json:"timestamp"`
	Version             int64                       `json:"version"`
	OverallAccuracy     float64                     `json:"overallAccuracy"`
	WinRate             float64                     `json:"winRate"`
	PatternDefenseRates map[LossPatternType]float64 `json:"patternDefenseRates"`
	TestScores          map[string]float64          `json:"testScores"`
	MemoryUsage         uint64                      `json:"memoryUsage"`
	InferenceTime       time.Duration               `json:"inferenceTime"`
}

// StabilityReport is the verdict on whether a candidate is safe to promote.
// Produced per cycle and consumed immediately by the orchestrator.
type StabilityReport struct {
	IsStable         bool             `json:"isStable"`
	StabilityScore   float64          `json:"stabilityScore"`
	PerformanceTrend PerformanceTrend `json:"performanceTrend"`
	RiskFactors      []string         `json:"riskFactors"`
	Recommendations  []string         `json:"recommendations"`
}
