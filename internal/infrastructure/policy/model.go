// Package policy provides a reference softmax policy over board columns.
// It implements the TrainableModel contract so the learning loop can be
// exercised end to end; the orchestrator itself only ever sees the
// interface.
package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/gridmind/gridmind-go/internal/domain/learning"
)

const inputDim = learning.Rows * learning.Columns

// Config configures the policy network.
type Config struct {
	// HiddenDim is the hidden layer width.
	HiddenDim int `json:"hiddenDim"`

	// MaxGradNorm is the per-weight gradient clip.
	MaxGradNorm float64 `json:"maxGradNorm"`

	// Momentum is the SGD momentum coefficient.
	Momentum float64 `json:"momentum"`

	// Seed fixes weight initialization for reproducible tests; 0 uses
	// the clock.
	Seed int64 `json:"seed,omitempty"`
}

// DefaultConfig returns the default policy configuration.
func DefaultConfig() Config {
	return Config{
		HiddenDim:   64,
		MaxGradNorm: 1.0,
		Momentum:    0.9,
	}
}

// Model is a two-layer softmax policy over the seven columns.
type Model struct {
	mu     sync.RWMutex
	config Config
	rng    *rand.Rand

	// weights[0]: inputDim x hiddenDim, weights[1]: hiddenDim x Columns.
	weights  [][]float64
	momentum [][]float64
}

// New creates a new policy model.
func New(config Config) *Model {
	if config.HiddenDim <= 0 {
		config.HiddenDim = 64
	}
	if config.MaxGradNorm <= 0 {
		config.MaxGradNorm = 1.0
	}

	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	m := &Model{
		config: config,
		rng:    rand.New(rand.NewSource(seed)),
	}
	m.weights = m.initializeNetwork()
	m.momentum = zerosLike(m.weights)

	return m
}

func (m *Model) initializeNetwork() [][]float64 {
	hidden := m.config.HiddenDim

	weights := make([][]float64, 2)

	w1 := make([]float64, inputDim*hidden)
	scale1 := math.Sqrt(2.0 / float64(inputDim))
	for i := range w1 {
		w1[i] = (m.rng.Float64() - 0.5) * scale1
	}
	weights[0] = w1

	w2 := make([]float64, hidden*learning.Columns)
	scale2 := math.Sqrt(2.0 / float64(hidden))
	for i := range w2 {
		w2[i] = (m.rng.Float64() - 0.5) * scale2
	}
	weights[1] = w2

	return weights
}

func zerosLike(weights [][]float64) [][]float64 {
	out := make([][]float64, len(weights))
	for i := range weights {
		out[i] = make([]float64, len(weights[i]))
	}
	return out
}

// encode flattens a board into the network input: the agent's stones as
// +1, the opponent's as -1.
func encode(board learning.Board) []float64 {
	state := make([]float64, inputDim)
	for r := 0; r < learning.Rows && r < len(board); r++ {
		for c := 0; c < learning.Columns && c < len(board[r]); c++ {
			switch board[r][c] {
			case 1:
				state[r*learning.Columns+c] = 1
			case 2:
				state[r*learning.Columns+c] = -1
			}
		}
	}
	return state
}

// forward returns hidden activations and column logits.
func (m *Model) forward(state []float64) ([]float64, []float64) {
	hiddenDim := m.config.HiddenDim

	hidden := make([]float64, hiddenDim)
	for h := 0; h < hiddenDim; h++ {
		var sum float64
		for i := 0; i < inputDim; i++ {
			sum += state[i] * m.weights[0][i*hiddenDim+h]
		}
		hidden[h] = math.Max(0, sum)
	}

	logits := make([]float64, learning.Columns)
	for c := 0; c < learning.Columns; c++ {
		var sum float64
		for h := 0; h < hiddenDim; h++ {
			sum += hidden[h] * m.weights[1][h*learning.Columns+c]
		}
		logits[c] = sum
	}

	return hidden, logits
}

func softmax(logits []float64) []float64 {
	maxLogit := logits[0]
	for _, l := range logits[1:] {
		if l > maxLogit {
			maxLogit = l
		}
	}

	probs := make([]float64, len(logits))
	var total float64
	for i, l := range logits {
		probs[i] = math.Exp(l - maxLogit)
		total += probs[i]
	}
	for i := range probs {
		probs[i] /= total
	}
	return probs
}

// Fit trains on the batch with a reward-weighted policy gradient.
func (m *Model) Fit(ctx context.Context, batch []learning.Experience, learningRate float64, epochs int) (*learning.FitResult, error) {
	if len(batch) == 0 {
		return nil, fmt.Errorf("empty training batch")
	}
	if epochs <= 0 {
		epochs = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	result := &learning.FitResult{}
	hiddenDim := m.config.HiddenDim

	for epoch := 0; epoch < epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		gradients := zerosLike(m.weights)
		var totalLoss float64
		var correct, positives int

		for _, exp := range batch {
			state := encode(exp.BoardBefore)
			hidden, logits := m.forward(state)
			probs := softmax(logits)

			// Reward-weighted negative log likelihood of the taken action.
			p := math.Max(probs[exp.Action], 1e-9)
			totalLoss += -exp.Reward * math.Log(p)

			if exp.Reward > 0 {
				positives++
				if argmax(probs) == exp.Action {
					correct++
				}
			}

			// dL/dlogit = -reward * (onehot - probs)
			for c := 0; c < learning.Columns; c++ {
				indicator := 0.0
				if c == exp.Action {
					indicator = 1.0
				}
				dLogit := -exp.Reward * (indicator - probs[c])

				for h := 0; h < hiddenDim; h++ {
					gradients[1][h*learning.Columns+c] += hidden[h] * dLogit
				}
			}

			for h := 0; h < hiddenDim; h++ {
				if hidden[h] <= 0 {
					continue
				}
				var dHidden float64
				for c := 0; c < learning.Columns; c++ {
					indicator := 0.0
					if c == exp.Action {
						indicator = 1.0
					}
					dHidden += -exp.Reward * (indicator - probs[c]) * m.weights[1][h*learning.Columns+c]
				}
				for i := 0; i < inputDim; i++ {
					if state[i] != 0 {
						gradients[0][i*hiddenDim+h] += state[i] * dHidden
					}
				}
			}
		}

		m.applyGradients(gradients, learningRate, len(batch))

		accuracy := 0.0
		if positives > 0 {
			accuracy = float64(correct) / float64(positives)
		}
		result.LossPerEpoch = append(result.LossPerEpoch, totalLoss/float64(len(batch)))
		result.AccuracyPerEpoch = append(result.AccuracyPerEpoch, accuracy)
	}

	return result, nil
}

func (m *Model) applyGradients(gradients [][]float64, learningRate float64, batchSize int) {
	lr := learningRate / float64(batchSize)
	beta := m.config.Momentum

	for layer := range gradients {
		for i := range gradients[layer] {
			grad := gradients[layer][i]
			if grad > m.config.MaxGradNorm {
				grad = m.config.MaxGradNorm
			} else if grad < -m.config.MaxGradNorm {
				grad = -m.config.MaxGradNorm
			}

			m.momentum[layer][i] = beta*m.momentum[layer][i] + (1-beta)*grad
			m.weights[layer][i] -= lr * m.momentum[layer][i]
		}
	}
}

func argmax(values []float64) int {
	best := 0
	for i, v := range values[1:] {
		if v > values[best] {
			best = i + 1
		}
	}
	return best
}

// BestColumn returns the highest-probability playable column for a board.
func (m *Model) BestColumn(board learning.Board) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bestColumn(board)
}

func (m *Model) bestColumn(board learning.Board) int {
	_, logits := m.forward(encode(board))
	probs := softmax(logits)

	best := -1
	for c := 0; c < learning.Columns; c++ {
		if len(board) > 0 && board[0][c] != 0 {
			continue // column full
		}
		if best < 0 || probs[c] > probs[best] {
			best = c
		}
	}
	if best < 0 {
		return argmax(probs)
	}
	return best
}

// Evaluate scores the model as the fraction of test cases answered with an
// accepted column.
func (m *Model) Evaluate(ctx context.Context, cases []learning.TestCase) (float64, error) {
	if len(cases) == 0 {
		return 0, fmt.Errorf("empty test suite")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var passed int
	for _, tc := range cases {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if tc.Accepts(m.bestColumn(tc.Board)) {
			passed++
		}
	}

	return float64(passed) / float64(len(cases)), nil
}

// snapshotState is the serialized model layout.
type snapshotState struct {
	Config   Config      `json:"config"`
	Weights  [][]float64 `json:"weights"`
	Momentum [][]float64 `json:"momentum"`
}

// Snapshot serializes the full model state.
func (m *Model) Snapshot() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return json.Marshal(snapshotState{
		Config:   m.config,
		Weights:  m.weights,
		Momentum: m.momentum,
	})
}

// Restore replaces the model state with a prior snapshot.
func (m *Model) Restore(state []byte) error {
	var snap snapshotState
	if err := json.Unmarshal(state, &snap); err != nil {
		return fmt.Errorf("corrupt model snapshot: %w", err)
	}
	if len(snap.Weights) != 2 {
		return fmt.Errorf("corrupt model snapshot: expected 2 layers, got %d", len(snap.Weights))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.config = snap.Config
	m.weights = snap.Weights
	m.momentum = snap.Momentum
	if m.momentum == nil {
		m.momentum = zerosLike(m.weights)
	}

	return nil
}

var _ learning.TrainableModel = (*Model)(nil)
