// Package schedule provides the adaptive learning-rate scheduler.
package schedule

import (
	"math"
	"sync"

	"github.com/gridmind/gridmind-go/internal/shared"
)

// historyEntry pairs an observed performance with the learning rate that
// produced it.
type historyEntry struct {
	performance float64
	lr          float64
}

// AdaptiveScheduler tunes the training learning rate from recent
// performance history: plateaus halve the rate, sustained improvement
// grows it, both clamped to configured bounds.
type AdaptiveScheduler struct {
	mu      sync.Mutex
	config  shared.SchedulerConfig
	current float64
	history []historyEntry
}

// NewAdaptiveScheduler creates a new scheduler. Zero config fields fall
// back to the defaults so a partial config cannot zero the bounds, the
// adjustment factors, or the optimal-LR history minimum.
func NewAdaptiveScheduler(config shared.SchedulerConfig) *AdaptiveScheduler {
	defaults := shared.DefaultSchedulerConfig()
	if config.InitialLR <= 0 {
		config.InitialLR = defaults.InitialLR
	}
	if config.MinLR <= 0 {
		config.MinLR = defaults.MinLR
	}
	if config.MaxLR <= 0 {
		config.MaxLR = defaults.MaxLR
	}
	if config.Patience <= 0 {
		config.Patience = defaults.Patience
	}
	if config.PlateauStdDev <= 0 {
		config.PlateauStdDev = defaults.PlateauStdDev
	}
	if config.DecayFactor <= 0 {
		config.DecayFactor = defaults.DecayFactor
	}
	if config.GrowthFactor <= 0 {
		config.GrowthFactor = defaults.GrowthFactor
	}
	if config.HistorySize <= 0 {
		config.HistorySize = defaults.HistorySize
	}
	if config.OptimalLRMinimum <= 0 {
		config.OptimalLRMinimum = defaults.OptimalLRMinimum
	}

	return &AdaptiveScheduler{
		config:  config,
		current: config.InitialLR,
	}
}

// Update records a performance observation and returns the possibly
// adjusted learning rate. The loss argument is accepted for symmetry with
// the training contract; only performance drives the schedule.
func (s *AdaptiveScheduler) Update(performance, loss float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, historyEntry{performance: performance, lr: s.current})
	if len(s.history) > s.config.HistorySize {
		s.history = s.history[1:]
	}

	if len(s.history) < s.config.Patience {
		return s.current
	}

	recent := s.history[len(s.history)-s.config.Patience:]

	if stddev(recent) < s.config.PlateauStdDev {
		s.current = math.Max(s.config.MinLR, s.current*s.config.DecayFactor)
		return s.current
	}

	if strictlyIncreasing(recent) {
		s.current = math.Min(s.config.MaxLR, s.current*s.config.GrowthFactor)
	}

	return s.current
}

// CurrentLR returns the current learning rate.
func (s *AdaptiveScheduler) CurrentLR() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// OptimalLR returns the learning rate paired with the best historical
// performance once enough history exists, otherwise the current rate.
func (s *AdaptiveScheduler) OptimalLR() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.history) < s.config.OptimalLRMinimum {
		return s.current
	}

	best := s.history[0]
	for _, entry := range s.history[1:] {
		if entry.performance > best.performance {
			best = entry
		}
	}
	return best.lr
}

// HistoryLen returns the number of recorded observations.
func (s *AdaptiveScheduler) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

func stddev(entries []historyEntry) float64 {
	var mean float64
	for _, e := range entries {
		mean += e.performance
	}
	mean /= float64(len(entries))

	var variance float64
	for _, e := range entries {
		diff := e.performance - mean
		variance += diff * diff
	}
	variance /= float64(len(entries))

	return math.Sqrt(variance)
}

func strictlyIncreasing(entries []historyEntry) bool {
	for i := 1; i < len(entries); i++ {
		if entries[i].performance <= entries[i-1].performance {
			return false
		}
	}
	return true
}
