// Package learning provides domain types for the continuous-learning loop.
package learning

import (
	"time"
)

// Board is a Connect-Four board: 6 rows by 7 columns, row 0 at the top.
// Cells hold 0 (empty), 1 (the learning agent), or 2 (the opponent).
type Board [][]int

// Rows and Columns are the fixed board dimensions.
const (
	Rows    = 6
	Columns = 7
)

// NewBoard returns an empty board.
func NewBoard() Board {
	board := make(Board, Rows)
	for r := range board {
		board[r] = make([]int, Columns)
	}
	return board
}

// Clone returns a deep copy of the board.
func (b Board) Clone() Board {
	clone := make(Board, len(b))
	for r := range b {
		clone[r] = make([]int, len(b[r]))
		copy(clone[r], b[r])
	}
	return clone
}

// Outcome is the result of a completed game from the agent's perspective.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
	OutcomeDraw Outcome = "draw"
)

// Value maps an outcome to its reward sign.
func (o Outcome) Value() float64 {
	switch o {
	case OutcomeWin:
		return 1.0
	case OutcomeLoss:
		return -1.0
	default:
		return 0.0
	}
}

// GamePhase classifies where in a game a move occurred.
type GamePhase string

const (
	PhaseOpening GamePhase = "opening"
	PhaseMiddle  GamePhase = "middle"
	PhaseEndgame GamePhase = "endgame"
)

// PhaseOf returns the phase for a move index within a game of the given length.
func PhaseOf(moveIndex, totalMoves int) GamePhase {
	switch {
	case moveIndex < 8:
		return PhaseOpening
	case totalMoves-moveIndex <= 10:
		return PhaseEndgame
	default:
		return PhaseMiddle
	}
}

// LossPatternType is the structural category of a losing line.
type LossPatternType string

const (
	LossHorizontal   LossPatternType = "horizontal"
	LossVertical     LossPatternType = "vertical"
	LossDiagonal     LossPatternType = "diagonal"
	LossAntiDiagonal LossPatternType = "anti_diagonal"
)

// Position is a board coordinate.
type Position struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// LossPattern describes how the opponent won.
type LossPattern struct {
	// Type is the line category of the winning four.
	Type LossPatternType `json:"type"`

	// CriticalPositions are the cells forming the winning line.
	CriticalPositions []Position `json:"criticalPositions,omitempty"`

	// AIMistakes are the agent moves judged to have missed the threat.
	AIMistakes []int `json:"aiMistakes,omitempty"`
}

// Move is a single move within a game trace.
type Move struct {
	PlayerID         string    `json:"playerId"`
	Column           int       `json:"column"`
	BoardStateBefore Board     `json:"boardStateBefore,omitempty"`
	BoardStateAfter  Board     `json:"boardStateAfter,omitempty"`
	Forced           bool      `json:"forced,omitempty"`
	Timestamp        time.Time `json:"timestamp,omitempty"`
}

// GameOutcome is the ingestion payload for one completed game.
type GameOutcome struct {
	// AgentID identifies the learning agent's moves within Moves.
	AgentID string `json:"agentId"`

	// Moves is the full move trace in play order.
	Moves []Move `json:"moves"`

	// Outcome is the result from the agent's perspective.
	Outcome Outcome `json:"outcome"`

	// LossPattern is present when the outcome is a loss.
	LossPattern *LossPattern `json:"lossPattern,omitempty"`
}

// Experience is one recorded (state, action, outcome) tuple used as a
// training example. Immutable once stored; destroyed only by eviction.
type Experience struct {
	BoardBefore Board           `json:"boardBefore"`
	BoardAfter  Board           `json:"boardAfter"`
	Action      int             `json:"action"`
	Outcome     Outcome         `json:"outcome"`
	Reward      float64         `json:"reward"`
	MoveNumber  int             `json:"moveNumber"`
	TotalMoves  int             `json:"totalMoves"`
	GamePhase   GamePhase       `json:"gamePhase"`
	LossPattern *LossPattern    `json:"lossPattern,omitempty"`
	Priority    float64         `json:"priority"`
	Timestamp   time.Time       `json:"timestamp"`
}

// PatternObservation is one structural pattern extracted from a game trace.
type PatternObservation struct {
	// Category is the analyzer rule family: opening, tactical, endgame, mistake.
	Category string `json:"category"`

	// Subtype is the concrete pattern within the category.
	Subtype string `json:"subtype"`

	// CriticalPositions are the cells the observation refers to, when known.
	CriticalPositions []Position `json:"criticalPositions,omitempty"`
}

// Key returns the pattern database key for this observation.
func (p PatternObservation) Key() string {
	return p.Category + "_" + p.Subtype
}

// PatternRecord is the running aggregate for one pattern key.
type PatternRecord struct {
	PatternKey        string     `json:"patternKey"`
	Occurrences       int        `json:"occurrences"`
	WinRate           float64    `json:"winRate"`
	CriticalPositions []Position `json:"criticalPositions,omitempty"`
	LastSeen          time.Time  `json:"lastSeen"`
}
