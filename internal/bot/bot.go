// Package bot picks moves for the computer player.
package bot

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/jaminalder/tic-tac-toe-ai/internal/domain"
)

// Difficulty selects the move strategy.
type Difficulty uint8

const (
	Easy Difficulty = iota
	Medium
	Hard
)

func (d Difficulty) String() string {
	switch d {
	case Easy:
		return "easy"
	case Medium:
		return "medium"
	case Hard:
		return "hard"
	default:
		return fmt.Sprintf("difficulty(%d)", uint8(d))
	}
}

// Valid reports whether d is one of the known difficulties.
func (d Difficulty) Valid() bool { return d <= Hard }

// ParseDifficulty accepts "easy", "medium" or "hard" in any case.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return Easy, nil
	case "medium":
		return Medium, nil
	case "hard":
		return Hard, nil
	}
	return Easy, fmt.Errorf("unknown difficulty %q", s)
}

// ErrInvalidState is returned when a move is requested for a board that has
// none, or with arguments no game can produce. Callers must check for game
// over before asking for a move.
var ErrInvalidState = errors.New("invalid state")

// Selector picks computer moves. Its random source is only used by Easy and
// by Medium's fallback.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector returns a Selector drawing from src. A nil src uses a randomly
// seeded PCG.
func NewSelector(src rand.Source) *Selector {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Selector{rng: rand.New(src)}
}

var defaultSelector = NewSelector(nil)

// SelectMove picks a move with the package default Selector.
func SelectMove(b domain.Board, d Difficulty, computer domain.Cell) (int, error) {
	return defaultSelector.SelectMove(b, d, computer)
}

// SelectMove returns the cell the computer should play on b.
func (s *Selector) SelectMove(b domain.Board, d Difficulty, computer domain.Cell) (int, error) {
	if !computer.IsPlayer() {
		return -1, fmt.Errorf("%w: computer must be X or O, got %d", ErrInvalidState, computer)
	}
	if b.Full() {
		return -1, fmt.Errorf("%w: board is full", ErrInvalidState)
	}
	switch d {
	case Easy:
		return s.randomMove(b), nil
	case Medium:
		return s.mediumMove(b, computer), nil
	case Hard:
		return BestMove(b, computer), nil
	default:
		return -1, fmt.Errorf("%w: %v", ErrInvalidState, d)
	}
}

func (s *Selector) intN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}
