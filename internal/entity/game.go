package entity

import (
	"encoding/json"
	"fmt"
)

const (
	StatusFinished = "finished"
	StatusOngoing  = "ongoing"
	StatusWaiting  = "waiting"

	PlayerX = "X"
	PlayerO = "O"

	// ResultDraw is the winner value of a game that ended without a line.
	ResultDraw = "draw"

	EmptyCell = ""
)

const BoardSize = 9

var WinCombos = [][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Board holds the 9 cells in row-major order. Empty cells travel as null.
type Board [BoardSize]string

func (that Board) MarshalJSON() ([]byte, error) {
	cells := make([]*string, BoardSize)
	for i := range that {
		if that[i] != EmptyCell {
			cell := that[i]
			cells[i] = &cell
		}
	}

	return json.Marshal(cells)
}

func (that *Board) UnmarshalJSON(data []byte) error {
	var cells []*string
	if err := json.Unmarshal(data, &cells); err != nil {
		return fmt.Errorf("failed to unmarshal board: %w", err)
	}

	if len(cells) != BoardSize {
		return fmt.Errorf("board must have %d cells, got %d", BoardSize, len(cells))
	}

	for i, cell := range cells {
		that[i] = EmptyCell
		if cell != nil {
			that[i] = *cell
		}
	}

	return nil
}

// Filled - number of non-empty cells.
func (that Board) Filled() int {
	filled := 0
	for _, cell := range that {
		if cell != EmptyCell {
			filled++
		}
	}

	return filled
}

func (that Board) IsFull() bool {
	return that.Filled() == BoardSize
}

// Outcome is the result derived from a board.
type Outcome struct {
	// Winner is PlayerX, PlayerO, ResultDraw or empty while the game goes on.
	Winner string `json:"winner,omitempty"`
	Line   []int  `json:"line,omitempty"`
}

func (that Outcome) IsTerminal() bool {
	return that.Winner != ""
}

func (that Outcome) IsDraw() bool {
	return that.Winner == ResultDraw
}

// DetermineOutcome - scans the winning triples in order, the first complete one wins.
func DetermineOutcome(board Board) Outcome {
	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != EmptyCell && a == b && b == c {
			return Outcome{Winner: a, Line: []int{combo[0], combo[1], combo[2]}}
		}
	}

	// the game will continue until all the squares are full
	if !board.IsFull() {
		return Outcome{}
	}

	return Outcome{Winner: ResultDraw}
}

func ToggleMark(mark string) string {
	if mark == PlayerX {
		return PlayerO
	}
	return PlayerX
}

func IsMark(mark string) bool {
	return mark == PlayerX || mark == PlayerO
}
