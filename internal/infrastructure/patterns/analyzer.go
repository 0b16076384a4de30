// Package patterns provides rule-based pattern extraction over game traces.
package patterns

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gridmind/gridmind-go/internal/domain/learning"
)

// Column classification bounds for opening analysis.
const (
	centerLow  = 2
	centerHigh = 4
)

// Rule thresholds.
const (
	openingWindow     = 8
	centerControlMin  = 4
	edgePlayMin       = 2
	tacticalWindow    = 3
	tacticalSpreadMin = 2
	endgameWindow     = 10
	columnFocusMin    = 3
)

// Analyzer extracts structural patterns from game traces and maintains a
// running pattern database.
type Analyzer struct {
	mu       sync.RWMutex
	database map[string]*learning.PatternRecord

	gamesSeen int
	winsSeen  int
}

// NewAnalyzer creates a new pattern analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		database: make(map[string]*learning.PatternRecord),
	}
}

// Analyze classifies a game trace into pattern observations. It does not
// touch the database; use Ingest to record a game.
func (a *Analyzer) Analyze(game learning.GameOutcome) []learning.PatternObservation {
	var observations []learning.PatternObservation

	observations = append(observations, analyzeOpening(game.Moves)...)
	observations = append(observations, analyzeTactical(game.Moves)...)
	observations = append(observations, analyzeEndgame(game.Moves)...)

	if game.Outcome == learning.OutcomeLoss && game.LossPattern != nil {
		observations = append(observations, analyzeMistakes(game.LossPattern)...)

		// The loss line itself is recorded under its own category.
		observations = append(observations, learning.PatternObservation{
			Category:          string(game.LossPattern.Type),
			Subtype:           "default",
			CriticalPositions: game.LossPattern.CriticalPositions,
		})
	}

	return observations
}

func analyzeOpening(moves []learning.Move) []learning.PatternObservation {
	window := moves
	if len(window) > openingWindow {
		window = window[:openingWindow]
	}

	var center, edge int
	for _, m := range window {
		switch {
		case m.Column >= centerLow && m.Column <= centerHigh:
			center++
		case m.Column == 0 || m.Column == learning.Columns-1:
			edge++
		}
	}

	var obs []learning.PatternObservation
	if center >= centerControlMin {
		obs = append(obs, learning.PatternObservation{Category: "opening", Subtype: "center_control"})
	}
	if edge >= edgePlayMin {
		obs = append(obs, learning.PatternObservation{Category: "opening", Subtype: "edge_play"})
	}
	return obs
}

func analyzeTactical(moves []learning.Move) []learning.PatternObservation {
	var obs []learning.PatternObservation

	for i := 0; i+tacticalWindow <= len(moves); i++ {
		window := moves[i : i+tacticalWindow]
		lo, hi := window[0].Column, window[0].Column
		distinct := map[int]struct{}{}
		for _, m := range window {
			distinct[m.Column] = struct{}{}
			if m.Column < lo {
				lo = m.Column
			}
			if m.Column > hi {
				hi = m.Column
			}
		}
		if len(distinct) >= 2 && hi-lo >= tacticalSpreadMin {
			obs = append(obs, learning.PatternObservation{Category: "tactical", Subtype: "fork_creation"})
			break
		}
	}

	for _, m := range moves {
		if m.Forced {
			obs = append(obs, learning.PatternObservation{Category: "tactical", Subtype: "forced_move"})
			break
		}
	}

	return obs
}

func analyzeEndgame(moves []learning.Move) []learning.PatternObservation {
	window := moves
	if len(window) > endgameWindow {
		window = window[len(window)-endgameWindow:]
	}

	counts := map[int]int{}
	for _, m := range window {
		counts[m.Column]++
		if counts[m.Column] >= columnFocusMin {
			return []learning.PatternObservation{{Category: "endgame", Subtype: "column_focus"}}
		}
	}
	return nil
}

func analyzeMistakes(pattern *learning.LossPattern) []learning.PatternObservation {
	obs := make([]learning.PatternObservation, 0, len(pattern.AIMistakes))
	for range pattern.AIMistakes {
		obs = append(obs, learning.PatternObservation{
			Category:          "mistake",
			Subtype:           "missed_threat",
			CriticalPositions: pattern.CriticalPositions,
		})
	}
	return obs
}

// Ingest analyzes a game and folds every observation into the database
// with an incremental win-rate update.
func (a *Analyzer) Ingest(game learning.GameOutcome) []learning.PatternObservation {
	observations := a.Analyze(game)
	isWin := 0.0
	if game.Outcome == learning.OutcomeWin {
		isWin = 1.0
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.gamesSeen++
	if game.Outcome == learning.OutcomeWin {
		a.winsSeen++
	}

	now := time.Now()
	for _, obs := range observations {
		key := obs.Key()
		record, ok := a.database[key]
		if !ok {
			record = &learning.PatternRecord{PatternKey: key}
			a.database[key] = record
		}

		n := float64(record.Occurrences + 1)
		record.WinRate = (record.WinRate*float64(record.Occurrences) + isWin) / n
		record.Occurrences++
		record.LastSeen = now
		if len(obs.CriticalPositions) > 0 {
			record.CriticalPositions = obs.CriticalPositions
		}
	}

	return observations
}

// Record returns a copy of the record for a pattern key.
func (a *Analyzer) Record(key string) (learning.PatternRecord, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	record, ok := a.database[key]
	if !ok {
		return learning.PatternRecord{}, false
	}
	return *record, true
}

// Records returns a copy of all pattern records.
func (a *Analyzer) Records() []learning.PatternRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]learning.PatternRecord, 0, len(a.database))
	for _, record := range a.database {
		out = append(out, *record)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Occurrences > out[j].Occurrences
	})
	return out
}

// Insights builds enriched insights for the most frequent patterns.
func (a *Analyzer) Insights(limit int) []learning.PatternInsight {
	records := a.Records()
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	a.mu.RLock()
	overall := 0.0
	if a.gamesSeen > 0 {
		overall = float64(a.winsSeen) / float64(a.gamesSeen)
	}
	a.mu.RUnlock()

	insights := make([]learning.PatternInsight, 0, len(records))
	for rank, record := range records {
		insight := learning.PatternInsight{
			ID:          uuid.New().String(),
			PatternKey:  record.PatternKey,
			Occurrences: record.Occurrences,
			WinRate:     record.WinRate,
			ObservedAt:  record.LastSeen,
		}

		confidence := float64(record.Occurrences) / 20.0
		if confidence > 1.0 {
			confidence = 1.0
		}
		insight.Validation = &learning.InsightValidation{
			SampleSize: record.Occurrences,
			Confidence: confidence,
			Valid:      record.Occurrences >= 5,
		}

		insight.Context = &learning.InsightContext{
			DominantPhase: phaseForKey(record.PatternKey),
			GamesCovered:  record.Occurrences,
		}

		insight.CrossValidation = &learning.InsightCrossValidation{
			OverallWinRate: overall,
			Delta:          record.WinRate - overall,
		}

		insight.MetaAnalysis = &learning.InsightMetaAnalysis{
			RelatedKeys: relatedKeys(records, record.PatternKey),
			Rank:        rank + 1,
		}

		actionable := insight.Validation.Valid && record.WinRate < 0.4
		action := ""
		if actionable {
			action = "focus_pattern_training"
		}
		insight.Actionability = &learning.InsightActionability{
			Actionable: actionable,
			Action:     action,
		}

		gain := (0.5 - record.WinRate) * confidence
		if gain < 0 {
			gain = 0
		}
		priority := "normal"
		if gain > 0.2 {
			priority = "high"
		}
		insight.Impact = &learning.InsightImpact{
			ExpectedWinRateGain: gain,
			Priority:            priority,
		}

		insights = append(insights, insight)
	}

	return insights
}

func phaseForKey(key string) learning.GamePhase {
	switch {
	case strings.HasPrefix(key, "opening_"):
		return learning.PhaseOpening
	case strings.HasPrefix(key, "endgame_"):
		return learning.PhaseEndgame
	default:
		return learning.PhaseMiddle
	}
}

func relatedKeys(records []learning.PatternRecord, key string) []string {
	prefix := key
	if i := strings.IndexByte(key, '_'); i >= 0 {
		prefix = key[:i+1]
	}

	var related []string
	for _, record := range records {
		if record.PatternKey != key && strings.HasPrefix(record.PatternKey, prefix) {
			related = append(related, record.PatternKey)
		}
	}
	return related
}
