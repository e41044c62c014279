package bot

import (
	"math"

	"github.com/jaminalder/tic-tac-toe-ai/internal/domain"
)

const winScore = 10

// BestMove searches the whole remaining game tree and returns the cell with
// the highest minimax score for computer. Ties go to the lowest index. It
// returns -1 when b has no empty cell.
func BestMove(b domain.Board, computer domain.Cell) int {
	best, bestScore := -1, math.MinInt
	for _, idx := range b.EmptyCells() {
		b[idx] = computer
		score := minimax(&b, 0, false, computer)
		b[idx] = domain.Empty
		if score > bestScore {
			best, bestScore = idx, score
		}
	}
	return best
}

// ScoreMoves returns the minimax score of every legal move for computer.
func ScoreMoves(b domain.Board, computer domain.Cell) map[int]int {
	scores := make(map[int]int, 9)
	for _, idx := range b.EmptyCells() {
		b[idx] = computer
		scores[idx] = minimax(&b, 0, false, computer)
		b[idx] = domain.Empty
	}
	return scores
}

// minimax scores b from computer's point of view. Wins count 10-depth and
// losses depth-10 so faster wins and slower losses rank higher.
//
// b is a scratch board owned by the search: every placement is undone before
// the next sibling is tried.
func minimax(b *domain.Board, depth int, maximizing bool, computer domain.Cell) int {
	switch r := domain.Evaluate(*b); {
	case r.Outcome == domain.Win && r.Winner == computer:
		return winScore - depth
	case r.Outcome == domain.Win:
		return depth - winScore
	case r.Outcome == domain.Draw:
		return 0
	}

	if maximizing {
		best := math.MinInt
		for idx := range b {
			if b[idx] != domain.Empty {
				continue
			}
			b[idx] = computer
			best = max(best, minimax(b, depth+1, false, computer))
			b[idx] = domain.Empty
		}
		return best
	}

	opponent := computer.Opponent()
	best := math.MaxInt
	for idx := range b {
		if b[idx] != domain.Empty {
			continue
		}
		b[idx] = opponent
		best = min(best, minimax(b, depth+1, true, computer))
		b[idx] = domain.Empty
	}
	return best
}
