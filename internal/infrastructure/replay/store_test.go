package replay

import (
	"math"
	"testing"

	"github.com/gridmind/gridmind-go/internal/domain/learning"
	"github.com/gridmind/gridmind-go/internal/shared"
)

func testConfig(capacity int) shared.StoreConfig {
	config := shared.DefaultStoreConfig()
	config.Capacity = capacity
	return config
}

func winExp(action int) learning.Experience {
	return learning.Experience{
		Action:  action,
		Outcome: learning.OutcomeWin,
	}
}

func lossExp(action int, pattern learning.LossPatternType) learning.Experience {
	return learning.Experience{
		Action:      action,
		Outcome:     learning.OutcomeLoss,
		LossPattern: &learning.LossPattern{Type: pattern},
	}
}

func TestAddEvictsOldestAtCapacity(t *testing.T) {
	store := NewExperienceStore(testConfig(5))

	for i := 1; i <= 7; i++ {
		store.Add(winExp(i), 1.0)
	}

	if store.Len() != 5 {
		t.Fatalf("expected len 5, got %d", store.Len())
	}

	snapshot := store.Snapshot()
	for i, exp := range snapshot {
		want := i + 3
		if exp.Action != want {
			t.Errorf("slot %d: expected action %d, got %d", i, want, exp.Action)
		}
	}
}

func TestAddDefaultPriorityTracksMax(t *testing.T) {
	store := NewExperienceStore(testConfig(10))

	store.Add(winExp(0), 0)
	if got := store.Snapshot()[0].Priority; got != 1.0 {
		t.Errorf("expected default priority 1.0 on empty buffer, got %v", got)
	}

	store.Add(winExp(1), 5.0)
	store.Add(winExp(2), 0)
	if got := store.Snapshot()[2].Priority; got != 5.0 {
		t.Errorf("expected default priority to track max 5.0, got %v", got)
	}
}

func TestSampleSizes(t *testing.T) {
	store := NewExperienceStore(testConfig(100))
	for i := 0; i < 10; i++ {
		store.Add(winExp(i), 1.0)
	}

	if got := len(store.Sample(4, nil)); got != 4 {
		t.Errorf("expected batch of 4, got %d", got)
	}
	if got := len(store.Sample(50, nil)); got != 10 {
		t.Errorf("oversized request should return whole buffer, got %d", got)
	}
	if got := len(store.Sample(0, nil)); got != 0 {
		t.Errorf("expected empty batch for n=0, got %d", got)
	}
}

func TestSampleWithoutReplacement(t *testing.T) {
	store := NewExperienceStore(testConfig(100))
	for i := 0; i < 8; i++ {
		store.Add(winExp(i), float64(i+1))
	}

	batch := store.Sample(8, nil)
	seen := map[int]bool{}
	for _, exp := range batch {
		if seen[exp.Action] {
			t.Fatalf("action %d sampled twice", exp.Action)
		}
		seen[exp.Action] = true
	}
}

func TestPrioritizedSamplingFavorsHighPriority(t *testing.T) {
	store := NewExperienceStore(testConfig(100))
	store.Add(winExp(0), 9.0)
	store.Add(winExp(1), 1.0)

	var high int
	const rounds = 2000
	for i := 0; i < rounds; i++ {
		batch := store.Sample(1, nil)
		if len(batch) != 1 {
			t.Fatalf("expected single-item batch, got %d", len(batch))
		}
		if batch[0].Action == 0 {
			high++
		}
	}

	// With priorities 9 vs 1 and beta in [0.4, 1.0], the high-priority item
	// should win well over half the draws.
	if high < rounds*6/10 {
		t.Errorf("high-priority item sampled only %d/%d times", high, rounds)
	}
}

func TestPatternFocusedSampling(t *testing.T) {
	store := NewExperienceStore(testConfig(100))
	for i := 0; i < 10; i++ {
		store.Add(lossExp(i, learning.LossDiagonal), 3.0)
	}
	for i := 10; i < 20; i++ {
		store.Add(winExp(i), 1.0)
	}

	focus := learning.LossDiagonal
	batch := store.Sample(10, &focus)
	if len(batch) != 10 {
		t.Fatalf("expected batch of 10, got %d", len(batch))
	}

	var diagonal int
	for _, exp := range batch {
		if exp.LossPattern != nil && exp.LossPattern.Type == learning.LossDiagonal {
			diagonal++
		}
	}

	// ceil(0.7*10) = 7 must come from the diagonal sub-buffer; prioritized
	// remainder may add more.
	if diagonal < 7 {
		t.Errorf("expected at least 7 diagonal experiences, got %d", diagonal)
	}
}

func TestPatternFocusFallsBackWhenSubBufferEmpty(t *testing.T) {
	store := NewExperienceStore(testConfig(100))
	for i := 0; i < 10; i++ {
		store.Add(winExp(i), 1.0)
	}

	focus := learning.LossVertical
	batch := store.Sample(5, &focus)
	if len(batch) != 5 {
		t.Errorf("expected prioritized fallback batch of 5, got %d", len(batch))
	}
}

func TestPatternSubBufferBounded(t *testing.T) {
	config := testConfig(8)
	store := NewExperienceStore(config)

	for i := 0; i < 6; i++ {
		store.Add(lossExp(i, learning.LossVertical), 2.0)
	}

	// capacity/divisor = 8/4 = 2
	if got := store.PatternLen(learning.LossVertical); got != 2 {
		t.Errorf("expected sub-buffer len 2, got %d", got)
	}
}

func TestBetaAnneals(t *testing.T) {
	store := NewExperienceStore(testConfig(10))
	store.Add(winExp(0), 1.0)

	if got := store.Beta(); got != 0.4 {
		t.Fatalf("expected initial beta 0.4, got %v", got)
	}

	store.Sample(1, nil)
	if got := store.Beta(); math.Abs(got-0.401) > 1e-9 {
		t.Errorf("expected beta 0.401 after one sample, got %v", got)
	}

	for i := 0; i < 1000; i++ {
		store.Sample(1, nil)
	}
	if got := store.Beta(); got != 1.0 {
		t.Errorf("expected beta capped at 1.0, got %v", got)
	}
}

func TestSparseConfigKeepsPrioritiesPositive(t *testing.T) {
	store := NewExperienceStore(shared.StoreConfig{Capacity: 8})

	if got := store.Beta(); got != 0.4 {
		t.Errorf("expected default initial beta 0.4, got %v", got)
	}

	store.Add(winExp(0), 1.0)
	store.UpdatePriorities([]int{0}, []float64{0})

	if got := store.Snapshot()[0].Priority; got != 0.01 {
		t.Errorf("expected epsilon floor 0.01, got %v", got)
	}
}

func TestUpdatePriorities(t *testing.T) {
	store := NewExperienceStore(testConfig(10))
	for i := 0; i < 3; i++ {
		store.Add(winExp(i), 1.0)
	}

	store.UpdatePriorities([]int{1, 99, -1}, []float64{2.0, 7.0, 7.0})

	snapshot := store.Snapshot()
	if got := snapshot[1].Priority; math.Abs(got-2.01) > 1e-9 {
		t.Errorf("expected priority 2.01 at index 1, got %v", got)
	}
	if got := snapshot[0].Priority; got != 1.0 {
		t.Errorf("index 0 should be untouched, got %v", got)
	}
	if got := snapshot[2].Priority; got != 1.0 {
		t.Errorf("index 2 should be untouched, got %v", got)
	}
}
