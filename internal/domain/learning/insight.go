package learning

import (
	"time"
)

// PatternInsight is an analyzer finding carried on pattern_insights events.
// Each enrichment phase fills its own optional field; a nil field means the
// phase has not run.
type PatternInsight struct {
	ID          string    `json:"id"`
	PatternKey  string    `json:"patternKey"`
	Occurrences int       `json:"occurrences"`
	WinRate     float64   `json:"winRate"`
	ObservedAt  time.Time `json:"observedAt"`

	Validation      *InsightValidation      `json:"validation,omitempty"`
	Context         *InsightContext         `json:"context,omitempty"`
	CrossValidation *InsightCrossValidation `json:"crossValidation,omitempty"`
	MetaAnalysis    *InsightMetaAnalysis    `json:"metaAnalysis,omitempty"`
	Actionability   *InsightActionability   `json:"actionability,omitempty"`
	Impact          *InsightImpact          `json:"impact,omitempty"`
}

// InsightValidation records whether the pattern has enough support.
type InsightValidation struct {
	SampleSize int     `json:"sampleSize"`
	Confidence float64 `json:"confidence"`
	Valid      bool    `json:"valid"`
}

// InsightContext situates the pattern within the game phase it dominates.
type InsightContext struct {
	DominantPhase GamePhase `json:"dominantPhase"`
	GamesCovered  int       `json:"gamesCovered"`
}

// InsightCrossValidation compares the pattern's win rate against the
// overall win rate.
type InsightCrossValidation struct {
	OverallWinRate float64 `json:"overallWinRate"`
	Delta          float64 `json:"delta"`
}

// InsightMetaAnalysis relates the pattern to other recorded patterns.
type InsightMetaAnalysis struct {
	RelatedKeys []string `json:"relatedKeys,omitempty"`
	Rank        int      `json:"rank"`
}

// InsightActionability says what, if anything, the loop should do.
type InsightActionability struct {
	Actionable bool   `json:"actionable"`
	Action     string `json:"action,omitempty"`
}

// InsightImpact estimates the expected effect of acting on the insight.
type InsightImpact struct {
	ExpectedWinRateGain float64 `json:"expectedWinRateGain"`
	Priority            string  `json:"priority"`
}
