package patterns

import (
	"math"
	"testing"

	"github.com/gridmind/gridmind-go/internal/domain/learning"
)

func movesInColumns(columns ...int) []learning.Move {
	moves := make([]learning.Move, 0, len(columns))
	for _, c := range columns {
		moves = append(moves, learning.Move{PlayerID: "agent", Column: c})
	}
	return moves
}

func diagonalLoss() learning.GameOutcome {
	return learning.GameOutcome{
		AgentID: "agent",
		Moves:   movesInColumns(3, 3, 3, 3),
		Outcome: learning.OutcomeLoss,
		LossPattern: &learning.LossPattern{
			Type: learning.LossDiagonal,
			CriticalPositions: []learning.Position{
				{Row: 5, Column: 0}, {Row: 4, Column: 1},
				{Row: 3, Column: 2}, {Row: 2, Column: 3},
			},
		},
	}
}

func TestLossPatternAccumulates(t *testing.T) {
	a := NewAnalyzer()

	for i := 0; i < 3; i++ {
		a.Ingest(diagonalLoss())
	}

	record, ok := a.Record("diagonal_default")
	if !ok {
		t.Fatal("expected diagonal_default record")
	}
	if record.Occurrences != 3 {
		t.Errorf("expected 3 occurrences, got %d", record.Occurrences)
	}
	if record.WinRate != 0 {
		t.Errorf("expected win rate 0 for pure losses, got %v", record.WinRate)
	}
	if len(record.CriticalPositions) != 4 {
		t.Errorf("expected 4 critical positions, got %d", len(record.CriticalPositions))
	}
}

func TestWinRateIncremental(t *testing.T) {
	a := NewAnalyzer()

	win := learning.GameOutcome{
		AgentID: "agent",
		Moves:   movesInColumns(3, 3, 3, 3, 2),
		Outcome: learning.OutcomeWin,
	}
	loss := learning.GameOutcome{
		AgentID: "agent",
		Moves:   movesInColumns(3, 3, 3, 3, 2),
		Outcome: learning.OutcomeLoss,
	}

	a.Ingest(win)
	a.Ingest(loss)

	record, ok := a.Record("opening_center_control")
	if !ok {
		t.Fatal("expected opening_center_control record")
	}
	if record.Occurrences != 2 {
		t.Errorf("expected 2 occurrences, got %d", record.Occurrences)
	}
	if math.Abs(record.WinRate-0.5) > 1e-9 {
		t.Errorf("expected win rate 0.5, got %v", record.WinRate)
	}
}

func TestOpeningObservations(t *testing.T) {
	tests := []struct {
		name    string
		columns []int
		want    string
	}{
		{"center_control", []int{2, 3, 4, 3, 0, 1, 5, 6}, "opening_center_control"},
		{"edge_play", []int{0, 6, 1, 2, 5, 1, 1, 1}, "opening_edge_play"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			game := learning.GameOutcome{
				AgentID: "agent",
				Moves:   movesInColumns(tt.columns...),
				Outcome: learning.OutcomeWin,
			}

			observations := NewAnalyzer().Analyze(game)
			found := false
			for _, obs := range observations {
				if obs.Key() == tt.want {
					found = true
				}
			}
			if !found {
				t.Errorf("expected %s in %v", tt.want, observations)
			}
		})
	}
}

func TestTacticalForkCreation(t *testing.T) {
	game := learning.GameOutcome{
		AgentID: "agent",
		Moves:   movesInColumns(0, 3, 6),
		Outcome: learning.OutcomeWin,
	}

	observations := NewAnalyzer().Analyze(game)
	found := false
	for _, obs := range observations {
		if obs.Key() == "tactical_fork_creation" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected tactical_fork_creation in %v", observations)
	}
}

func TestEndgameColumnFocus(t *testing.T) {
	game := learning.GameOutcome{
		AgentID: "agent",
		Moves:   movesInColumns(0, 1, 2, 3, 4, 5, 6, 0, 1, 2, 3, 3, 3, 1, 2),
		Outcome: learning.OutcomeWin,
	}

	observations := NewAnalyzer().Analyze(game)
	found := false
	for _, obs := range observations {
		if obs.Key() == "endgame_column_focus" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected endgame_column_focus in %v", observations)
	}
}

func TestMistakeObservations(t *testing.T) {
	game := diagonalLoss()
	game.LossPattern.AIMistakes = []int{1, 3}

	observations := NewAnalyzer().Analyze(game)
	var mistakes int
	for _, obs := range observations {
		if obs.Key() == "mistake_missed_threat" {
			mistakes++
		}
	}
	if mistakes != 2 {
		t.Errorf("expected 2 mistake observations, got %d", mistakes)
	}
}

func TestRecordsSortedByOccurrences(t *testing.T) {
	a := NewAnalyzer()
	for i := 0; i < 3; i++ {
		a.Ingest(diagonalLoss())
	}
	a.Ingest(learning.GameOutcome{
		AgentID: "agent",
		Moves:   movesInColumns(0, 6, 0),
		Outcome: learning.OutcomeWin,
	})

	records := a.Records()
	if len(records) < 2 {
		t.Fatalf("expected at least 2 records, got %d", len(records))
	}
	for i := 1; i < len(records); i++ {
		if records[i].Occurrences > records[i-1].Occurrences {
			t.Errorf("records not sorted by occurrences at %d", i)
		}
	}
}

func TestInsightsEnrichment(t *testing.T) {
	a := NewAnalyzer()
	for i := 0; i < 5; i++ {
		a.Ingest(diagonalLoss())
	}

	insights := a.Insights(10)
	var insight *learning.PatternInsight
	for i := range insights {
		if insights[i].PatternKey == "diagonal_default" {
			insight = &insights[i]
		}
	}
	if insight == nil {
		t.Fatal("expected diagonal_default insight")
	}

	if insight.Validation == nil || !insight.Validation.Valid {
		t.Error("expected insight valid at 5 occurrences")
	}
	if math.Abs(insight.Validation.Confidence-0.25) > 1e-9 {
		t.Errorf("expected confidence 0.25, got %v", insight.Validation.Confidence)
	}
	if insight.Actionability == nil || !insight.Actionability.Actionable {
		t.Error("expected actionable insight for losing pattern")
	}
	if insight.Actionability.Action != "focus_pattern_training" {
		t.Errorf("unexpected action %q", insight.Actionability.Action)
	}
	if insight.Impact == nil || math.Abs(insight.Impact.ExpectedWinRateGain-0.125) > 1e-9 {
		t.Errorf("expected gain 0.125, got %+v", insight.Impact)
	}
	if insight.CrossValidation == nil || insight.CrossValidation.OverallWinRate != 0 {
		t.Errorf("expected overall win rate 0, got %+v", insight.CrossValidation)
	}
}

func TestInsightsLimit(t *testing.T) {
	a := NewAnalyzer()
	for i := 0; i < 3; i++ {
		a.Ingest(diagonalLoss())
	}

	if got := len(a.Insights(1)); got != 1 {
		t.Errorf("expected 1 insight with limit 1, got %d", got)
	}
}
