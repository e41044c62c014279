package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jaminalder/tic-tac-toe-ai/internal/bot"
	"github.com/jaminalder/tic-tac-toe-ai/internal/domain"
)

// Mode says who plays O (or X) opposite the human.
type Mode uint8

const (
	// PvC pits the human against the computer.
	PvC Mode = iota
	// PvP is two humans sharing one board.
	PvP
)

func (m Mode) String() string {
	if m == PvP {
		return "pvp"
	}
	return "pvc"
}

// ParseMode accepts "pvp" or "pvc".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pvc":
		return PvC, nil
	case "pvp":
		return PvP, nil
	}
	return PvC, fmt.Errorf("%w: unknown mode %q", ErrInvalidSettings, s)
}

// ErrInvalidSettings is returned for settings no game can be played with.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings configure a game session.
type Settings struct {
	Mode        Mode
	Difficulty  bot.Difficulty
	FirstPlayer domain.Cell
	Computer    domain.Cell
}

// DefaultSettings is human X against a hard computer O, X first.
func DefaultSettings() Settings {
	return Settings{Mode: PvC, Difficulty: bot.Hard, FirstPlayer: domain.X, Computer: domain.O}
}

// Human returns the side played by the human in PvC.
func (s Settings) Human() domain.Cell { return s.Computer.Opponent() }

func (s Settings) validate() error {
	if s.Mode != PvC && s.Mode != PvP {
		return fmt.Errorf("%w: mode %d", ErrInvalidSettings, s.Mode)
	}
	if !s.Difficulty.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, s.Difficulty)
	}
	if !s.FirstPlayer.IsPlayer() {
		return fmt.Errorf("%w: first player must be X or O", ErrInvalidSettings)
	}
	if !s.Computer.IsPlayer() {
		return fmt.Errorf("%w: computer must be X or O", ErrInvalidSettings)
	}
	return nil
}

// ParseSettings overlays the non-empty strings onto base.
func ParseSettings(base Settings, mode, difficulty, first, computer string) (Settings, error) {
	s := base
	var err error
	if mode != "" {
		if s.Mode, err = ParseMode(mode); err != nil {
			return base, err
		}
	}
	if difficulty != "" {
		if s.Difficulty, err = bot.ParseDifficulty(difficulty); err != nil {
			return base, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
		}
	}
	if first != "" {
		if s.FirstPlayer, err = domain.ParsePlayer(first); err != nil {
			return base, fmt.Errorf("%w: first player: %v", ErrInvalidSettings, err)
		}
	}
	if computer != "" {
		if s.Computer, err = domain.ParsePlayer(computer); err != nil {
			return base, fmt.Errorf("%w: computer: %v", ErrInvalidSettings, err)
		}
	}
	return s, s.validate()
}

// Score tallies finished games of one session.
type Score struct {
	X     int
	O     int
	Draws int
}

func (s *Score) record(r domain.Result) {
	switch {
	case r.Outcome == domain.Draw:
		s.Draws++
	case r.Outcome == domain.Win && r.Winner == domain.X:
		s.X++
	case r.Outcome == domain.Win && r.Winner == domain.O:
		s.O++
	}
}
