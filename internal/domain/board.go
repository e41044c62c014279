package domain

import (
	"fmt"
	"strings"
)

// Cell represents a board cell state.
type Cell uint8

const (
	Empty Cell = iota
	X
	O
)

func (c Cell) String() string {
	switch c {
	case X:
		return "X"
	case O:
		return "O"
	default:
		return ""
	}
}

// Opponent returns the other player. Empty has no opponent.
func (c Cell) Opponent() Cell {
	switch c {
	case X:
		return O
	case O:
		return X
	default:
		return Empty
	}
}

// IsPlayer reports whether c is X or O.
func (c Cell) IsPlayer() bool { return c == X || c == O }

// ParseCell converts "X", "O" or an empty marker into a Cell.
func ParseCell(s string) (Cell, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "X":
		return X, nil
	case "O":
		return O, nil
	case "", "-", "_":
		return Empty, nil
	}
	return Empty, fmt.Errorf("invalid cell %q", s)
}

// ParsePlayer is ParseCell restricted to X and O.
func ParsePlayer(s string) (Cell, error) {
	c, err := ParseCell(s)
	if err != nil {
		return Empty, err
	}
	if !c.IsPlayer() {
		return Empty, fmt.Errorf("invalid player %q", s)
	}
	return c, nil
}

// Board is a fixed 3x3 board stored row-major.
type Board [9]Cell

// WinningLines lists every row, column and diagonal. Order matters: Evaluate
// and the medium bot scan it front to back.
var WinningLines = [8][3]int{
	// rows
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	// cols
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	// diags
	{0, 4, 8}, {2, 4, 6},
}

// ParseBoard builds a Board from nine cell strings.
func ParseBoard(cells []string) (Board, error) {
	var b Board
	if len(cells) != len(b) {
		return b, fmt.Errorf("board needs %d cells, got %d", len(b), len(cells))
	}
	for i, s := range cells {
		c, err := ParseCell(s)
		if err != nil {
			return b, fmt.Errorf("cell %d: %w", i, err)
		}
		b[i] = c
	}
	return b, nil
}

// Strings is the inverse of ParseBoard.
func (b Board) Strings() []string {
	out := make([]string, len(b))
	for i, c := range b {
		out[i] = c.String()
	}
	return out
}

// EmptyCells returns the indices of unoccupied cells in ascending order.
func (b Board) EmptyCells() []int {
	out := make([]int, 0, len(b))
	for i, c := range b {
		if c == Empty {
			out = append(out, i)
		}
	}
	return out
}

// Count returns how many cells hold c.
func (b Board) Count(c Cell) int {
	n := 0
	for _, v := range b {
		if v == c {
			n++
		}
	}
	return n
}

// Full reports whether no empty cell is left.
func (b Board) Full() bool { return b.Count(Empty) == 0 }

func (b Board) String() string {
	var sb strings.Builder
	for i, c := range b {
		if c == Empty {
			sb.WriteByte('.')
		} else {
			sb.WriteString(c.String())
		}
		if i%3 == 2 && i != len(b)-1 {
			sb.WriteByte('/')
		}
	}
	return sb.String()
}
