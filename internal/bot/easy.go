package bot

import "github.com/jaminalder/tic-tac-toe-ai/internal/domain"

// randomMove picks uniformly among the empty cells. b must not be full.
func (s *Selector) randomMove(b domain.Board) int {
	available := b.EmptyCells()
	return available[s.intN(len(available))]
}
