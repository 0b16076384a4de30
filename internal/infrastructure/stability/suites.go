// Package stability provides model validation against fixed test suites
// and a historical baseline.
package stability

import (
	"github.com/gridmind/gridmind-go/internal/domain/learning"
)

// Suite names.
const (
	SuiteBasic     = "basic"
	SuitePattern   = "pattern"
	SuiteEdgeCases = "edge_cases"
)

// drop places a stone for player in the given column, respecting gravity.
func drop(board learning.Board, column, player int) learning.Board {
	for row := learning.Rows - 1; row >= 0; row-- {
		if board[row][column] == 0 {
			board[row][column] = player
			return board
		}
	}
	return board
}

func build(moves ...[2]int) learning.Board {
	board := learning.NewBoard()
	for _, m := range moves {
		board = drop(board, m[0], m[1])
	}
	return board
}

const (
	agent    = 1
	opponent = 2
)

// BasicSuite holds immediate-win, immediate-block, and opening positions.
func BasicSuite() []learning.TestCase {
	return []learning.TestCase{
		{
			Name: "immediate_win",
			Board: build(
				[2]int{0, agent}, [2]int{1, agent}, [2]int{2, agent},
				[2]int{4, opponent}, [2]int{5, opponent},
			),
			AcceptedColumns: []int{3},
		},
		{
			Name: "immediate_block",
			Board: build(
				[2]int{3, opponent}, [2]int{4, opponent}, [2]int{5, opponent},
				[2]int{0, agent}, [2]int{1, agent},
			),
			AcceptedColumns: []int{2, 6},
		},
		{
			Name:            "opening_center",
			Board:           learning.NewBoard(),
			AcceptedColumns: []int{3},
		},
	}
}

// PatternSuite holds one fixed threat board per loss-pattern type, each with
// the set of columns that block it.
func PatternSuite() []learning.TestCase {
	return []learning.TestCase{
		{
			Name:    "horizontal_threat",
			Pattern: learning.LossHorizontal,
			Board: build(
				[2]int{1, opponent}, [2]int{2, opponent}, [2]int{3, opponent},
				[2]int{1, agent}, [2]int{5, agent},
			),
			AcceptedColumns: []int{0, 4},
		},
		{
			Name:    "vertical_threat",
			Pattern: learning.LossVertical,
			Board: build(
				[2]int{2, opponent}, [2]int{2, opponent}, [2]int{2, opponent},
				[2]int{3, agent}, [2]int{4, agent},
			),
			AcceptedColumns: []int{2},
		},
		{
			// Opponent holds (5,0) (4,1) (3,2); column 3 is filled to the
			// height where the diagonal completes, so dropping there blocks.
			Name:    "diagonal_threat",
			Pattern: learning.LossDiagonal,
			Board: build(
				[2]int{0, opponent},
				[2]int{1, agent}, [2]int{1, opponent},
				[2]int{2, agent}, [2]int{2, agent}, [2]int{2, opponent},
				[2]int{3, agent}, [2]int{3, opponent}, [2]int{3, agent},
			),
			AcceptedColumns: []int{3},
		},
		{
			Name:    "anti_diagonal_threat",
			Pattern: learning.LossAntiDiagonal,
			Board: build(
				[2]int{6, opponent},
				[2]int{5, agent}, [2]int{5, opponent},
				[2]int{4, agent}, [2]int{4, agent}, [2]int{4, opponent},
				[2]int{3, agent}, [2]int{3, opponent}, [2]int{3, agent},
			),
			AcceptedColumns: []int{3},
		},
	}
}

// EdgeCaseSuite holds near-full-board positions.
func EdgeCaseSuite() []learning.TestCase {
	return []learning.TestCase{
		{
			Name:            "single_open_column",
			Board:           nearFullBoard([]int{6}),
			AcceptedColumns: []int{6},
		},
		{
			Name: "two_open_columns_block",
			Board: drop(drop(drop(
				nearFullBoard([]int{2, 4}),
				2, opponent), 2, opponent), 2, opponent),
			AcceptedColumns: []int{2},
		},
	}
}

// nearFullBoard fills every column except those listed, alternating players
// so neither side holds a completed line in the filled regions.
func nearFullBoard(open []int) learning.Board {
	openSet := map[int]bool{}
	for _, c := range open {
		openSet[c] = true
	}

	board := learning.NewBoard()
	for col := 0; col < learning.Columns; col++ {
		if openSet[col] {
			continue
		}
		for i := 0; i < learning.Rows; i++ {
			player := agent
			if (i/2+col)%2 == 0 {
				player = opponent
			}
			board = drop(board, col, player)
		}
	}
	return board
}

// Suites returns all fixed suites keyed by name.
func Suites() map[string][]learning.TestCase {
	return map[string][]learning.TestCase{
		SuiteBasic:     BasicSuite(),
		SuitePattern:   PatternSuite(),
		SuiteEdgeCases: EdgeCaseSuite(),
	}
}
