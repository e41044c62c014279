package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jaminalder/tic-tac-toe-ai/internal/app"
	"github.com/jaminalder/tic-tac-toe-ai/internal/bot"
	"github.com/jaminalder/tic-tac-toe-ai/internal/domain"
)

type evaluateRequest struct {
	Board []string `json:"board"`
}

type evaluateResponse struct {
	Outcome string `json:"outcome"`
	Winner  string `json:"winner,omitempty"`
	Line    []int  `json:"line,omitempty"`
}

type moveRequest struct {
	Board      []string `json:"board"`
	Difficulty string   `json:"difficulty"`
	Computer   string   `json:"computer"`
}

type moveResponse struct {
	Cell int `json:"cell"`
}

type apiError struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *handlers) state(w http.ResponseWriter, r *http.Request) {
	gs, ok := h.svc.Get(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, apiError{Error: app.ErrNotFound.Error()})
		return
	}
	writeJSON(w, http.StatusOK, newStateBroadcast(*gs))
}

func (h *handlers) hint(w http.ResponseWriter, r *http.Request) {
	idx, err := h.svc.Hint(chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, app.ErrNotFound):
		writeJSON(w, http.StatusNotFound, apiError{Error: err.Error()})
	case err != nil:
		writeJSON(w, http.StatusConflict, apiError{Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, HintResponse{Cell: idx})
	}
}

func (h *handlers) evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "malformed body"})
		return
	}
	b, err := domain.ParseBoard(req.Board)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}
	res := domain.Evaluate(b)
	out := evaluateResponse{Outcome: res.Outcome.String(), Line: res.Cells()}
	if res.Outcome == domain.Win {
		out.Winner = res.Winner.String()
	}
	writeJSON(w, http.StatusOK, out)
}

// move asks the engine for a move on an arbitrary board. A board with no
// move left to make answers 409.
func (h *handlers) move(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "malformed body"})
		return
	}
	b, err := domain.ParseBoard(req.Board)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}
	d := bot.Hard
	if req.Difficulty != "" {
		if d, err = bot.ParseDifficulty(req.Difficulty); err != nil {
			writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
			return
		}
	}
	computer := domain.O
	if req.Computer != "" {
		if computer, err = domain.ParsePlayer(req.Computer); err != nil {
			writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
			return
		}
	}
	if domain.Evaluate(b).Over() {
		writeJSON(w, http.StatusConflict, apiError{Error: "game is over"})
		return
	}
	idx, err := bot.SelectMove(b, d, computer)
	if err != nil {
		h.log.Warn("select move", zap.Stringer("board", b), zap.Error(err))
		writeJSON(w, http.StatusConflict, apiError{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, moveResponse{Cell: idx})
}
