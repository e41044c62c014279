package bot

import "github.com/jaminalder/tic-tac-toe-ai/internal/domain"

// mediumMove will win if it can, block if it must, otherwise move randomly.
func (s *Selector) mediumMove(b domain.Board, computer domain.Cell) int {
	if idx, ok := completingCell(b, computer); ok {
		return idx
	}
	if idx, ok := completingCell(b, computer.Opponent()); ok {
		return idx
	}
	return s.randomMove(b)
}

// completingCell finds the first line, in WinningLines order, holding two of
// mark and one empty cell, and returns that empty cell.
func completingCell(b domain.Board, mark domain.Cell) (int, bool) {
	for _, ln := range domain.WinningLines {
		count, empty := 0, -1
		for _, idx := range ln {
			switch b[idx] {
			case mark:
				count++
			case domain.Empty:
				empty = idx
			}
		}
		if count == 2 && empty >= 0 {
			return empty, true
		}
	}
	return -1, false
}
