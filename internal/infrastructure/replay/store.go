// Package replay provides the prioritized experience replay store.
package replay

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/gridmind/gridmind-go/internal/domain/learning"
	"github.com/gridmind/gridmind-go/internal/shared"
)

// ExperienceStore is a bounded, priority-sampled buffer of training
// experiences with pattern-segmented sub-buffers. Adds never fail: when the
// buffer is at capacity the oldest entry is evicted first.
type ExperienceStore struct {
	mu     sync.Mutex
	config shared.StoreConfig
	rng    *rand.Rand

	buffer     []learning.Experience
	priorities []float64

	// Per-loss-pattern sub-buffers, each bounded to capacity/divisor.
	patterns map[learning.LossPatternType][]learning.Experience

	// Importance-sampling exponent, annealed toward 1.0 per sample call.
	beta float64
}

// NewExperienceStore creates a new experience store. Zero config fields
// fall back to the defaults so a partial config cannot disable annealing
// or the positive-priority floor.
func NewExperienceStore(config shared.StoreConfig) *ExperienceStore {
	defaults := shared.DefaultStoreConfig()
	if config.Capacity <= 0 {
		config.Capacity = defaults.Capacity
	}
	if config.PatternCapacityDivisor <= 0 {
		config.PatternCapacityDivisor = defaults.PatternCapacityDivisor
	}
	if config.BetaInitial <= 0 {
		config.BetaInitial = defaults.BetaInitial
	}
	if config.BetaIncrement <= 0 {
		config.BetaIncrement = defaults.BetaIncrement
	}
	if config.PriorityEpsilon <= 0 {
		config.PriorityEpsilon = defaults.PriorityEpsilon
	}
	if config.PatternSampleFraction <= 0 {
		config.PatternSampleFraction = defaults.PatternSampleFraction
	}

	return &ExperienceStore{
		config:   config,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		buffer:   make([]learning.Experience, 0, config.Capacity),
		patterns: make(map[learning.LossPatternType][]learning.Experience),
		beta:     config.BetaInitial,
	}
}

// Add appends an experience. A non-positive priority selects the default:
// the maximum existing priority, or 1.0 on an empty buffer. Losses carrying
// a loss pattern are also appended to the matching sub-buffer.
func (s *ExperienceStore) Add(exp learning.Experience, priority float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if priority <= 0 {
		priority = 1.0
		for _, p := range s.priorities {
			if p > priority {
				priority = p
			}
		}
	}
	exp.Priority = priority

	if len(s.buffer) >= s.config.Capacity {
		s.buffer = s.buffer[1:]
		s.priorities = s.priorities[1:]
	}
	s.buffer = append(s.buffer, exp)
	s.priorities = append(s.priorities, priority)

	if exp.Outcome == learning.OutcomeLoss && exp.LossPattern != nil {
		key := exp.LossPattern.Type
		sub := s.patterns[key]
		if len(sub) >= s.patternCapacity() {
			sub = sub[1:]
		}
		s.patterns[key] = append(sub, exp)
	}
}

func (s *ExperienceStore) patternCapacity() int {
	return s.config.Capacity / s.config.PatternCapacityDivisor
}

// Len returns the number of buffered experiences.
func (s *ExperienceStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffer)
}

// PatternLen returns the length of a pattern sub-buffer.
func (s *ExperienceStore) PatternLen(pattern learning.LossPatternType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.patterns[pattern])
}

// Sample draws n experiences. With a pattern focus whose sub-buffer is
// non-empty, ceil(fraction*n) items come uniformly without replacement from
// the sub-buffer and the remainder via prioritized sampling from the main
// buffer. Without a focus, all n come via prioritized sampling. Requests
// larger than the buffer return the whole buffer.
func (s *ExperienceStore) Sample(n int, patternFocus *learning.LossPatternType) []learning.Experience {
	s.mu.Lock()
	buffer := make([]learning.Experience, len(s.buffer))
	copy(buffer, s.buffer)
	priorities := make([]float64, len(s.priorities))
	copy(priorities, s.priorities)

	var sub []learning.Experience
	if patternFocus != nil {
		src := s.patterns[*patternFocus]
		sub = make([]learning.Experience, len(src))
		copy(sub, src)
	}

	beta := s.beta
	s.beta = math.Min(1.0, s.beta+s.config.BetaIncrement)
	s.mu.Unlock()

	if n <= 0 {
		return nil
	}

	if len(sub) > 0 {
		want := int(math.Ceil(s.config.PatternSampleFraction * float64(n)))
		if want > len(sub) {
			want = len(sub)
		}
		result := s.sampleUniform(sub, want)
		if rest := n - len(result); rest > 0 {
			result = append(result, s.samplePrioritized(buffer, priorities, rest, beta)...)
		}
		return result
	}

	return s.samplePrioritized(buffer, priorities, n, beta)
}

// sampleUniform draws n items uniformly without replacement.
func (s *ExperienceStore) sampleUniform(pool []learning.Experience, n int) []learning.Experience {
	if n >= len(pool) {
		out := make([]learning.Experience, len(pool))
		copy(out, pool)
		return out
	}

	perm := s.rng.Perm(len(pool))
	out := make([]learning.Experience, 0, n)
	for _, idx := range perm[:n] {
		out = append(out, pool[idx])
	}
	return out
}

// samplePrioritized draws n items without replacement with probability
// proportional to priority^beta.
func (s *ExperienceStore) samplePrioritized(pool []learning.Experience, priorities []float64, n int, beta float64) []learning.Experience {
	if n >= len(pool) {
		out := make([]learning.Experience, len(pool))
		copy(out, pool)
		return out
	}

	weights := make([]float64, len(priorities))
	var total float64
	for i, p := range priorities {
		w := math.Pow(p, beta)
		weights[i] = w
		total += w
	}

	out := make([]learning.Experience, 0, n)
	for len(out) < n && total > 0 {
		target := s.rng.Float64() * total
		var cum float64
		picked := -1
		for i, w := range weights {
			if w == 0 {
				continue
			}
			cum += w
			if target <= cum {
				picked = i
				break
			}
		}
		if picked < 0 {
			// Float accumulation can land past the last non-zero weight.
			for i := len(weights) - 1; i >= 0; i-- {
				if weights[i] > 0 {
					picked = i
					break
				}
			}
		}
		if picked < 0 {
			break
		}

		out = append(out, pool[picked])
		total -= weights[picked]
		weights[picked] = 0
	}

	return out
}

// UpdatePriorities sets priority[idx] = value + epsilon for each pair.
// Indices outside the current bounds are ignored.
func (s *ExperienceStore) UpdatePriorities(indices []int, priorities []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(indices)
	if len(priorities) < n {
		n = len(priorities)
	}

	for i := 0; i < n; i++ {
		idx := indices[i]
		if idx < 0 || idx >= len(s.priorities) {
			continue
		}
		p := priorities[i] + s.config.PriorityEpsilon
		s.priorities[idx] = p
		s.buffer[idx].Priority = p
	}
}

// Beta returns the current importance-sampling exponent.
func (s *ExperienceStore) Beta() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.beta
}

// Snapshot returns a copy of the buffered experiences, oldest first.
func (s *ExperienceStore) Snapshot() []learning.Experience {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]learning.Experience, len(s.buffer))
	copy(out, s.buffer)
	return out
}
