package learning

import (
	"context"
)

// TestCase is one fixed evaluation position: a board plus the set of
// columns accepted as a correct response.
type TestCase struct {
	Name            string          `json:"name"`
	Board           Board           `json:"board"`
	AcceptedColumns []int           `json:"acceptedColumns"`
	Pattern         LossPatternType `json:"pattern,omitempty"`
}

// Accepts reports whether the given column satisfies the test case.
func (tc TestCase) Accepts(column int) bool {
	for _, c := range tc.AcceptedColumns {
		if c == column {
			return true
		}
	}
	return false
}

// FitResult is the per-epoch training outcome returned by a model.
type FitResult struct {
	LossPerEpoch     []float64 `json:"lossPerEpoch"`
	AccuracyPerEpoch []float64 `json:"accuracyPerEpoch"`
}

// FinalLoss returns the last epoch's loss, or 0 when empty.
func (r *FitResult) FinalLoss() float64 {
	if r == nil || len(r.LossPerEpoch) == 0 {
		return 0
	}
	return r.LossPerEpoch[len(r.LossPerEpoch)-1]
}

// FinalAccuracy returns the last epoch's accuracy, or 0 when empty.
func (r *FitResult) FinalAccuracy() float64 {
	if r == nil || len(r.AccuracyPerEpoch) == 0 {
		return 0
	}
	return r.AccuracyPerEpoch[len(r.AccuracyPerEpoch)-1]
}

// TrainableModel is the external collaborator the orchestrator trains and
// validates. The loop never inspects model internals; it only snapshots,
// restores, fits, and evaluates.
type TrainableModel interface {
	// Fit trains on the batch for the given number of epochs at the given
	// learning rate and returns per-epoch losses and accuracies.
	Fit(ctx context.Context, batch []Experience, learningRate float64, epochs int) (*FitResult, error)

	// Evaluate scores the model against a set of test cases, in [0, 1].
	Evaluate(ctx context.Context, cases []TestCase) (float64, error)

	// Snapshot serializes the full model state.
	Snapshot() ([]byte, error)

	// Restore replaces the model state with a prior snapshot.
	Restore(state []byte) error
}
