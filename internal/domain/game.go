package domain

import (
	"errors"
	"fmt"
)

// Game holds the current state of a Tic-Tac-Toe match.
type Game struct {
	Board  Board
	Turn   Cell
	Result Result
	Moves  int
}

// Errors returned by domain operations. All of them match ErrInvalidMove.
var (
	ErrInvalidMove = errors.New("invalid move")
	ErrOutOfBounds = fmt.Errorf("%w: out of bounds", ErrInvalidMove)
	ErrOccupied    = fmt.Errorf("%w: cell occupied", ErrInvalidMove)
	ErrGameOver    = fmt.Errorf("%w: game over", ErrInvalidMove)
)

// NewGame returns an empty game with first to move. Anything other than O
// starts with X.
func NewGame(first Cell) Game {
	if first != O {
		first = X
	}
	return Game{Turn: first, Result: Result{Outcome: InProgress, Line: -1}}
}

// Over reports whether the game has been won or drawn.
func (g *Game) Over() bool { return g.Result.Over() }

// Winner returns the winning player, or Empty.
func (g *Game) Winner() Cell { return g.Result.Winner }

// Play places the current turn's mark at cell idx (0..8).
func (g *Game) Play(idx int) error {
	if g.Over() {
		return ErrGameOver
	}
	if idx < 0 || idx >= len(g.Board) {
		return ErrOutOfBounds
	}
	if g.Board[idx] != Empty {
		return ErrOccupied
	}

	g.Board[idx] = g.Turn
	g.Moves++

	g.Result = Evaluate(g.Board)
	if g.Over() {
		return nil
	}
	g.Turn = g.Turn.Opponent()
	return nil
}

// PlayAt attempts to play the current turn at row r, column c (0..2).
func (g *Game) PlayAt(r, c int) error {
	if r < 0 || r > 2 || c < 0 || c > 2 {
		if g.Over() {
			return ErrGameOver
		}
		return ErrOutOfBounds
	}
	return g.Play(r*3 + c)
}
