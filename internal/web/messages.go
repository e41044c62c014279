package web

import (
	"github.com/jaminalder/tic-tac-toe-ai/internal/app"
	"github.com/jaminalder/tic-tac-toe-ai/internal/domain"
)

// MakeMoveRequest plays a cell, given by index or by row and column.
type MakeMoveRequest struct {
	Cell *int `json:"cell"`
	Row  *int `json:"row"`
	Col  *int `json:"col"`
}

func (m MakeMoveRequest) play(svc *app.Service, id string) (*app.GameState, error) {
	switch {
	case m.Cell != nil:
		return svc.Play(id, *m.Cell)
	case m.Row != nil && m.Col != nil:
		return svc.PlayAt(id, *m.Row, *m.Col)
	}
	return svc.Play(id, -1)
}

// SettingsRequest carries optional settings. Empty fields keep the current value.
type SettingsRequest struct {
	Mode        string `json:"mode"`
	Difficulty  string `json:"difficulty"`
	FirstPlayer string `json:"firstPlayer"`
	Computer    string `json:"computer"`
}

func (s SettingsRequest) apply(base app.Settings) (app.Settings, error) {
	return app.ParseSettings(base, s.Mode, s.Difficulty, s.FirstPlayer, s.Computer)
}

// RestartRequest starts a new round, optionally with new settings.
type RestartRequest SettingsRequest

// ConfigureRequest changes the settings of the running round.
type ConfigureRequest SettingsRequest

// HintRequest asks for the best move of the side to move.
type HintRequest struct{}

// ResetScoreRequest zeroes the session score.
type ResetScoreRequest struct{}

// HintResponse answers a HintRequest.
type HintResponse struct {
	Cell int `json:"cell"`
}

// ScoreView is the session tally.
type ScoreView struct {
	X     int `json:"x"`
	O     int `json:"o"`
	Draws int `json:"draws"`
}

// StateBroadcast is the JSON view of a game, sent on every change.
type StateBroadcast struct {
	ID          string    `json:"id"`
	Board       []string  `json:"board"`
	Turn        string    `json:"turn"`
	Outcome     string    `json:"outcome"`
	Winner      string    `json:"winner,omitempty"`
	Line        []int     `json:"line,omitempty"`
	Active      bool      `json:"active"`
	LastMove    int       `json:"lastMove"`
	Mode        string    `json:"mode"`
	Difficulty  string    `json:"difficulty"`
	FirstPlayer string    `json:"firstPlayer"`
	Computer    string    `json:"computer"`
	Score       ScoreView `json:"score"`
}

func newStateBroadcast(gs app.GameState) StateBroadcast {
	r := gs.Game.Result
	out := StateBroadcast{
		ID:          gs.ID,
		Board:       gs.Game.Board.Strings(),
		Turn:        gs.Game.Turn.String(),
		Outcome:     r.Outcome.String(),
		Line:        r.Cells(),
		Active:      gs.Active,
		LastMove:    gs.LastMove,
		Mode:        gs.Settings.Mode.String(),
		Difficulty:  gs.Settings.Difficulty.String(),
		FirstPlayer: gs.Settings.FirstPlayer.String(),
		Computer:    gs.Settings.Computer.String(),
		Score:       ScoreView{X: gs.Score.X, O: gs.Score.O, Draws: gs.Score.Draws},
	}
	if r.Outcome == domain.Win {
		out.Winner = r.Winner.String()
	}
	return out
}
