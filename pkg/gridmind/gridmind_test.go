package gridmind

import (
	"context"
	"testing"
	"time"
)

func newTestLearner(t *testing.T) *Learner {
	t.Helper()

	learner, err := NewLearner(LearnerConfig{InMemoryRegistry: true})
	if err != nil {
		t.Fatalf("failed to create learner: %v", err)
	}
	t.Cleanup(func() { learner.Close() })

	return learner
}

func sampleGame(outcome Outcome) GameOutcome {
	board := make(Board, 6)
	for r := range board {
		board[r] = make([]int, 7)
	}

	moves := make([]Move, 0, 8)
	for i := 0; i < 8; i++ {
		player := "agent"
		if i%2 == 1 {
			player = "opponent"
		}
		moves = append(moves, Move{
			PlayerID:         player,
			Column:           i % 7,
			BoardStateBefore: board,
			BoardStateAfter:  board,
		})
	}

	return GameOutcome{AgentID: "agent", Moves: moves, Outcome: outcome}
}

func TestLearnerIngestAndStatus(t *testing.T) {
	learner := newTestLearner(t)

	learner.Ingest(sampleGame(OutcomeWin))
	learner.Ingest(sampleGame(OutcomeLoss))

	status := learner.Status()
	if status.GamesProcessed != 2 {
		t.Errorf("expected 2 games processed, got %d", status.GamesProcessed)
	}
	if status.WinRate != 0.5 {
		t.Errorf("expected win rate 0.5, got %v", status.WinRate)
	}
	if status.BufferLen != 8 {
		t.Errorf("expected 8 buffered experiences, got %d", status.BufferLen)
	}
}

func TestLearnerFullUpdateCycle(t *testing.T) {
	learner := newTestLearner(t)

	events := learner.SubscribeAll()
	for i := 0; i < 10; i++ {
		learner.Ingest(sampleGame(OutcomeWin))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := learner.UpdateModel(ctx, nil); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	versions, err := learner.Versions(ctx)
	if err != nil {
		t.Fatalf("versions failed: %v", err)
	}
	if len(versions) == 0 {
		t.Error("expected retained versions after an update cycle")
	}

	// The cycle publishes at least a stability report.
	sawReport := false
	deadline := time.After(time.Second)
	for !sawReport {
		select {
		case event := <-events:
			if event.Type == EventStabilityReport {
				sawReport = true
			}
		case <-deadline:
			t.Fatal("no stability report observed")
		}
	}
}

func TestLearnerPartialConfigKeepsCallerFields(t *testing.T) {
	learner, err := NewLearner(LearnerConfig{
		Config:           Config{Scheduler: SchedulerConfig{InitialLR: 0.002}},
		InMemoryRegistry: true,
	})
	if err != nil {
		t.Fatalf("failed to create learner: %v", err)
	}
	t.Cleanup(func() { learner.Close() })

	if got := learner.Status().CurrentLR; got != 0.002 {
		t.Fatalf("expected caller's initial LR 0.002, got %v", got)
	}

	// The rest of the config falls back to defaults, so a full update
	// cycle runs end to end.
	for i := 0; i < 10; i++ {
		learner.Ingest(sampleGame(OutcomeWin))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := learner.UpdateModel(ctx, nil); err != nil {
		t.Fatalf("update failed: %v", err)
	}
}

func TestLearnerRollbackAfterUpdate(t *testing.T) {
	learner := newTestLearner(t)

	for i := 0; i < 10; i++ {
		learner.Ingest(sampleGame(OutcomeWin))
	}

	ctx := context.Background()
	if err := learner.UpdateModel(ctx, nil); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if err := learner.Rollback(ctx); err != nil {
		t.Fatalf("rollback failed: %v", err)
	}
}
