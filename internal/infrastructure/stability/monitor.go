package stability

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gridmind/gridmind-go/internal/domain/learning"
	"github.com/gridmind/gridmind-go/internal/shared"
)

// Trend slope thresholds over the last ten overall-accuracy points.
const (
	improvingSlope = 0.02
	degradingSlope = -0.05
	trendWindow    = 10
	trendMinPoints = 5
)

// Risk factor identifiers.
const (
	RiskCatastrophicForgetting = "catastrophic_forgetting"
	RiskHighVariability        = "high_variability"
)

// Monitor evaluates candidate models against the fixed suites and a
// permanent baseline, producing stability verdicts.
type Monitor struct {
	mu       sync.Mutex
	config   shared.MonitorConfig
	suites   map[string][]learning.TestCase
	baseline *learning.PerformanceSnapshot
	history  []learning.PerformanceSnapshot
}

// NewMonitor creates a monitor over the default fixed suites.
func NewMonitor(config shared.MonitorConfig) *Monitor {
	return NewMonitorWithSuites(config, Suites())
}

// NewMonitorWithSuites creates a monitor over caller-provided suites.
// Zero config fields fall back to the defaults so a partial config cannot
// zero the catastrophic threshold or the stability floor.
func NewMonitorWithSuites(config shared.MonitorConfig, suites map[string][]learning.TestCase) *Monitor {
	defaults := shared.DefaultMonitorConfig()
	if config.CatastrophicThreshold <= 0 {
		config.CatastrophicThreshold = defaults.CatastrophicThreshold
	}
	if config.StabilityFloor <= 0 {
		config.StabilityFloor = defaults.StabilityFloor
	}
	if config.PatternDegradedRatio <= 0 {
		config.PatternDegradedRatio = defaults.PatternDegradedRatio
	}
	if config.VariabilityThreshold <= 0 {
		config.VariabilityThreshold = defaults.VariabilityThreshold
	}
	if config.SuiteFloor <= 0 {
		config.SuiteFloor = defaults.SuiteFloor
	}
	if config.HistorySize <= 0 {
		config.HistorySize = defaults.HistorySize
	}
	return &Monitor{
		config: config,
		suites: suites,
	}
}

// Evaluate runs every suite against the model and aggregates a snapshot.
// The snapshot is appended to the bounded history.
func (m *Monitor) Evaluate(ctx context.Context, model learning.TrainableModel, version int64, winRate float64) (*learning.PerformanceSnapshot, error) {
	snapshot := &learning.PerformanceSnapshot{
		Timestamp:           time.Now(),
		Version:             version,
		WinRate:             winRate,
		PatternDefenseRates: make(map[learning.LossPatternType]float64),
		TestScores:          make(map[string]float64),
	}

	start := time.Now()
	calls := 0
	var total float64
	for name, cases := range m.suites {
		score, err := model.Evaluate(ctx, cases)
		if err != nil {
			return nil, fmt.Errorf("suite %s evaluation failed: %w", name, err)
		}
		snapshot.TestScores[name] = score
		total += score
		calls++
	}
	if calls > 0 {
		snapshot.OverallAccuracy = total / float64(calls)
		snapshot.InferenceTime = time.Since(start) / time.Duration(calls)
	}

	// Pattern-specific defense rates from the pattern suite, per type.
	byPattern := make(map[learning.LossPatternType][]learning.TestCase)
	for _, tc := range m.suites[SuitePattern] {
		if tc.Pattern != "" {
			byPattern[tc.Pattern] = append(byPattern[tc.Pattern], tc)
		}
	}
	for pattern, cases := range byPattern {
		score, err := model.Evaluate(ctx, cases)
		if err != nil {
			return nil, fmt.Errorf("pattern %s evaluation failed: %w", pattern, err)
		}
		snapshot.PatternDefenseRates[pattern] = score
	}

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	snapshot.MemoryUsage = stats.HeapAlloc

	m.mu.Lock()
	m.history = append(m.history, *snapshot)
	if len(m.history) > m.config.HistorySize {
		m.history = m.history[1:]
	}
	m.mu.Unlock()

	return snapshot, nil
}

// CheckStability scores a snapshot against the baseline. The first snapshot
// checked becomes the permanent baseline and is never overwritten.
func (m *Monitor) CheckStability(snapshot *learning.PerformanceSnapshot) *learning.StabilityReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.baseline == nil {
		copied := *snapshot
		m.baseline = &copied
	}
	baseline := m.baseline

	var components []float64

	// Retention against the baseline's overall accuracy.
	drop := baseline.OverallAccuracy - snapshot.OverallAccuracy
	retention := 1.0 - drop/m.config.CatastrophicThreshold
	retention = clip01(retention)
	components = append(components, retention)

	// Consistency over the last ten snapshots, when enough history exists.
	recent := m.recentAccuraciesLocked(trendWindow)
	if len(recent) >= trendWindow {
		mean, sd := meanStddev(recent)
		if mean > 0 {
			components = append(components, clip01(1.0-sd/mean))
		}
	}

	// Pattern retention: mean of min(1, current/baseline) per pattern.
	if len(baseline.PatternDefenseRates) > 0 {
		var sum float64
		for pattern, base := range baseline.PatternDefenseRates {
			if base == 0 {
				sum += 1.0
				continue
			}
			sum += math.Min(1.0, snapshot.PatternDefenseRates[pattern]/base)
		}
		components = append(components, sum/float64(len(baseline.PatternDefenseRates)))
	}

	// Mean of the current suite scores.
	if len(snapshot.TestScores) > 0 {
		var sum float64
		for _, score := range snapshot.TestScores {
			sum += score
		}
		components = append(components, sum/float64(len(snapshot.TestScores)))
	}

	var score float64
	for _, c := range components {
		score += c
	}
	if len(components) > 0 {
		score /= float64(len(components))
	}

	report := &learning.StabilityReport{
		StabilityScore:   score,
		PerformanceTrend: trendLocked(m.recentAccuraciesLocked(trendWindow)),
	}

	// Risk factors, in fixed order.
	catastrophic := drop > m.config.CatastrophicThreshold
	if catastrophic {
		report.RiskFactors = append(report.RiskFactors, RiskCatastrophicForgetting)
	}
	for _, pattern := range sortedPatterns(baseline.PatternDefenseRates) {
		base := baseline.PatternDefenseRates[pattern]
		if base > 0 && snapshot.PatternDefenseRates[pattern] < m.config.PatternDegradedRatio*base {
			report.RiskFactors = append(report.RiskFactors,
				fmt.Sprintf("pattern %s degraded", pattern))
		}
	}
	if len(recent) >= trendWindow {
		_, sd := meanStddev(recent)
		if sd > m.config.VariabilityThreshold {
			report.RiskFactors = append(report.RiskFactors, RiskHighVariability)
		}
	}
	for _, suite := range sortedSuites(snapshot.TestScores) {
		if snapshot.TestScores[suite] < m.config.SuiteFloor {
			report.RiskFactors = append(report.RiskFactors,
				fmt.Sprintf("poor performance on suite %s", suite))
		}
	}

	report.Recommendations = recommendations(report.RiskFactors)
	report.IsStable = score > m.config.StabilityFloor && !catastrophic

	return report
}

// recommendations maps risk-factor categories to remediation actions.
func recommendations(risks []string) []string {
	var recs []string
	seen := map[string]bool{}
	add := func(rec string) {
		if !seen[rec] {
			seen[rec] = true
			recs = append(recs, rec)
		}
	}

	for _, risk := range risks {
		switch {
		case risk == RiskCatastrophicForgetting:
			add("lower learning rate and rehearse basic positions")
		case risk == RiskHighVariability:
			add("increase batch size or extend cooldown between updates")
		case strings.Contains(risk, "degraded"):
			add("focus pattern training on degraded patterns")
		case strings.Contains(risk, "poor performance"):
			add("rehearse failing suite positions")
		}
	}
	return recs
}

func sortedPatterns(rates map[learning.LossPatternType]float64) []learning.LossPatternType {
	keys := make([]learning.LossPatternType, 0, len(rates))
	for k := range rates {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortedSuites(scores map[string]float64) []string {
	keys := make([]string, 0, len(scores))
	for k := range scores {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Baseline returns a copy of the baseline snapshot, if set.
func (m *Monitor) Baseline() *learning.PerformanceSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.baseline == nil {
		return nil
	}
	copied := *m.baseline
	return &copied
}

// History returns a copy of the retained snapshots, oldest first.
func (m *Monitor) History() []learning.PerformanceSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]learning.PerformanceSnapshot, len(m.history))
	copy(out, m.history)
	return out
}

func (m *Monitor) recentAccuraciesLocked(n int) []float64 {
	start := len(m.history) - n
	if start < 0 {
		start = 0
	}
	out := make([]float64, 0, len(m.history)-start)
	for _, s := range m.history[start:] {
		out = append(out, s.OverallAccuracy)
	}
	return out
}

// trendLocked fits a least-squares slope over the recent accuracies.
func trendLocked(points []float64) learning.PerformanceTrend {
	if len(points) < trendMinPoints {
		return learning.TrendInsufficientData
	}

	n := float64(len(points))
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range points {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return learning.TrendStable
	}
	slope := (n*sumXY - sumX*sumY) / denom

	switch {
	case slope > improvingSlope:
		return learning.TrendImproving
	case slope < degradingSlope:
		return learning.TrendDegrading
	default:
		return learning.TrendStable
	}
}

func meanStddev(points []float64) (float64, float64) {
	var mean float64
	for _, p := range points {
		mean += p
	}
	mean /= float64(len(points))

	var variance float64
	for _, p := range points {
		diff := p - mean
		variance += diff * diff
	}
	variance /= float64(len(points))

	return mean, math.Sqrt(variance)
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
