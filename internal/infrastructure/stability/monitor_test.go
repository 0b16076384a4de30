package stability

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/gridmind/gridmind-go/internal/domain/learning"
	"github.com/gridmind/gridmind-go/internal/shared"
)

// scriptedModel answers every Evaluate call with the next scripted score.
type scriptedModel struct {
	scores []float64
	calls  int
}

func (m *scriptedModel) Fit(ctx context.Context, batch []learning.Experience, lr float64, epochs int) (*learning.FitResult, error) {
	return &learning.FitResult{}, nil
}

func (m *scriptedModel) Evaluate(ctx context.Context, cases []learning.TestCase) (float64, error) {
	score := m.scores[len(m.scores)-1]
	if m.calls < len(m.scores) {
		score = m.scores[m.calls]
	}
	m.calls++
	return score, nil
}

func (m *scriptedModel) Snapshot() ([]byte, error) { return []byte("{}"), nil }
func (m *scriptedModel) Restore([]byte) error      { return nil }

// constantModel answers every Evaluate call with a fixed score.
func constantModel(score float64) *scriptedModel {
	return &scriptedModel{scores: []float64{score}}
}

func TestEvaluateAggregatesSuites(t *testing.T) {
	m := NewMonitor(shared.DefaultMonitorConfig())

	snapshot, err := m.Evaluate(context.Background(), constantModel(0.8), 1, 0.6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(snapshot.OverallAccuracy-0.8) > 1e-9 {
		t.Errorf("expected overall accuracy 0.8, got %v", snapshot.OverallAccuracy)
	}
	if len(snapshot.TestScores) != 3 {
		t.Errorf("expected 3 suite scores, got %d", len(snapshot.TestScores))
	}
	if len(snapshot.PatternDefenseRates) != 4 {
		t.Errorf("expected 4 pattern defense rates, got %d", len(snapshot.PatternDefenseRates))
	}
	if snapshot.WinRate != 0.6 {
		t.Errorf("expected win rate 0.6 carried through, got %v", snapshot.WinRate)
	}
	if len(m.History()) != 1 {
		t.Errorf("expected snapshot in history, got %d", len(m.History()))
	}
}

func TestBaselineIdenticalIsStable(t *testing.T) {
	m := NewMonitor(shared.DefaultMonitorConfig())
	model := constantModel(1.0)

	snapshot, err := m.Evaluate(context.Background(), model, 1, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report := m.CheckStability(snapshot)
	if !report.IsStable {
		t.Errorf("baseline-identical snapshot should be stable: %+v", report)
	}
	if math.Abs(report.StabilityScore-1.0) > 1e-9 {
		t.Errorf("expected stability score 1.0, got %v", report.StabilityScore)
	}
	if len(report.RiskFactors) != 0 {
		t.Errorf("expected no risk factors, got %v", report.RiskFactors)
	}
}

func TestCatastrophicDropRejected(t *testing.T) {
	m := NewMonitor(shared.DefaultMonitorConfig())

	base, err := m.Evaluate(context.Background(), constantModel(0.90), 1, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.CheckStability(base)

	degraded, err := m.Evaluate(context.Background(), constantModel(0.70), 2, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report := m.CheckStability(degraded)
	if report.IsStable {
		t.Error("20-point drop past the 0.15 threshold should be unstable")
	}

	found := false
	for _, risk := range report.RiskFactors {
		if risk == RiskCatastrophicForgetting {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %s in %v", RiskCatastrophicForgetting, report.RiskFactors)
	}
	if len(report.Recommendations) == 0 {
		t.Error("expected recommendations for catastrophic drop")
	}
}

func TestBaselineIsPermanent(t *testing.T) {
	m := NewMonitor(shared.DefaultMonitorConfig())

	first, _ := m.Evaluate(context.Background(), constantModel(0.90), 1, 0.5)
	m.CheckStability(first)

	better, _ := m.Evaluate(context.Background(), constantModel(0.95), 2, 0.5)
	m.CheckStability(better)

	baseline := m.Baseline()
	if baseline == nil {
		t.Fatal("expected baseline set")
	}
	if math.Abs(baseline.OverallAccuracy-0.90) > 1e-9 {
		t.Errorf("baseline overwritten: got %v", baseline.OverallAccuracy)
	}
}

func TestSparseConfigFillsThresholds(t *testing.T) {
	m := NewMonitor(shared.MonitorConfig{})

	snapshot, err := m.Evaluate(context.Background(), constantModel(1.0), 1, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A zero catastrophic threshold would make the retention score NaN.
	report := m.CheckStability(snapshot)
	if math.Abs(report.StabilityScore-1.0) > 1e-9 {
		t.Errorf("expected stability score 1.0, got %v", report.StabilityScore)
	}
	if !report.IsStable {
		t.Error("expected baseline snapshot to be stable")
	}
}

func TestPatternDegradationFlagged(t *testing.T) {
	config := shared.DefaultMonitorConfig()
	// Only the pattern suite, so pattern scores drive everything.
	m := NewMonitorWithSuites(config, map[string][]learning.TestCase{
		SuitePattern: PatternSuite(),
	})

	// First evaluation: all four pattern cases pass.
	base, err := m.Evaluate(context.Background(), constantModel(1.0), 1, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.CheckStability(base)

	// Second evaluation: every pattern case fails.
	degraded, err := m.Evaluate(context.Background(), constantModel(0.0), 2, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report := m.CheckStability(degraded)
	var degradedRisks int
	for _, risk := range report.RiskFactors {
		if strings.HasPrefix(risk, "pattern ") {
			degradedRisks++
		}
	}
	if degradedRisks != 4 {
		t.Errorf("expected 4 degraded-pattern risks, got %v", report.RiskFactors)
	}
}

func TestTrendInsufficientData(t *testing.T) {
	m := NewMonitor(shared.DefaultMonitorConfig())

	snapshot, _ := m.Evaluate(context.Background(), constantModel(0.8), 1, 0.5)
	report := m.CheckStability(snapshot)

	if report.PerformanceTrend != learning.TrendInsufficientData {
		t.Errorf("expected insufficient_data with one point, got %s", report.PerformanceTrend)
	}
}

func TestTrendDirections(t *testing.T) {
	tests := []struct {
		name   string
		points []float64
		want   learning.PerformanceTrend
	}{
		{"improving", []float64{0.5, 0.55, 0.6, 0.65, 0.7, 0.75}, learning.TrendImproving},
		{"degrading", []float64{0.9, 0.8, 0.7, 0.6, 0.5, 0.4}, learning.TrendDegrading},
		{"stable", []float64{0.7, 0.71, 0.7, 0.69, 0.7, 0.7}, learning.TrendStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := trendLocked(tt.points); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestSuitesCoverAllPatterns(t *testing.T) {
	suites := Suites()
	if len(suites) != 3 {
		t.Fatalf("expected 3 suites, got %d", len(suites))
	}

	covered := map[learning.LossPatternType]bool{}
	for _, tc := range suites[SuitePattern] {
		covered[tc.Pattern] = true
	}
	for _, pattern := range []learning.LossPatternType{
		learning.LossHorizontal, learning.LossVertical,
		learning.LossDiagonal, learning.LossAntiDiagonal,
	} {
		if !covered[pattern] {
			t.Errorf("pattern suite missing %s", pattern)
		}
	}
}
