// Package learner provides the update orchestrator composing the replay
// store, pattern analyzer, scheduler, stability monitor, and version
// registry into the ingest, train, validate, promote-or-rollback cycle.
package learner

import (
	"time"

	"github.com/gridmind/gridmind-go/internal/domain/learning"
	"github.com/gridmind/gridmind-go/internal/shared"
)

// BuildExperiences converts a game outcome into training experiences, one
// per agent-attributed move, with shaped rewards and replay priorities.
func BuildExperiences(game learning.GameOutcome, config shared.OrchestratorConfig) []learning.Experience {
	total := len(game.Moves)
	if total == 0 {
		return nil
	}

	priority := experiencePriority(game, config)
	now := time.Now()

	var experiences []learning.Experience
	for i, move := range game.Moves {
		if move.PlayerID != game.AgentID {
			continue
		}

		// Later moves matter more; terminal moves of a loss are doubled
		// so the mistakes that ended the game dominate replay.
		reward := game.Outcome.Value() * (0.5 + 0.5*float64(i+1)/float64(total))
		if game.Outcome == learning.OutcomeLoss && i >= total-config.TerminalLossWindow {
			reward *= 2
		}

		experiences = append(experiences, learning.Experience{
			BoardBefore: move.BoardStateBefore,
			BoardAfter:  move.BoardStateAfter,
			Action:      move.Column,
			Outcome:     game.Outcome,
			Reward:      reward,
			MoveNumber:  i,
			TotalMoves:  total,
			GamePhase:   learning.PhaseOf(i, total),
			LossPattern: game.LossPattern,
			Priority:    priority,
			Timestamp:   now,
		})
	}

	return experiences
}

// experiencePriority selects the replay priority for a game's experiences.
// Diagonal losses are the hardest to learn from organic play, so they get
// the strongest boost.
func experiencePriority(game learning.GameOutcome, config shared.OrchestratorConfig) float64 {
	if game.Outcome != learning.OutcomeLoss {
		return config.BasePriority
	}
	if game.LossPattern != nil {
		switch game.LossPattern.Type {
		case learning.LossDiagonal, learning.LossAntiDiagonal:
			return config.PatternLossPriority
		}
	}
	return config.LossPriority
}
