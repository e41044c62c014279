package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jaminalder/tic-tac-toe-ai/internal/app"
	"github.com/jaminalder/tic-tac-toe-ai/internal/comms"
	"github.com/jaminalder/tic-tac-toe-ai/internal/domain"
)

type handlers struct {
	svc       *app.Service
	tpl       *templates
	log       *zap.Logger
	heartbeat time.Duration
}

func (h *handlers) renderBoard(gs app.GameState, errMsg string) []byte {
	return renderTemplate(h.tpl.board, "", newBoardView(gs, errMsg))
}

func writeHTML(w http.ResponseWriter, b []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	writeHTML(w, renderTemplate(h.tpl.index, "base", newSettingsForm(h.svc.Defaults())))
}

// settingsFromForm overlays posted settings on base. Missing fields keep
// their base value.
func settingsFromForm(r *http.Request, base app.Settings) (app.Settings, error) {
	_ = r.ParseForm()
	return app.ParseSettings(base,
		r.Form.Get("mode"), r.Form.Get("difficulty"), r.Form.Get("first"), r.Form.Get("computer"))
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	st, err := settingsFromForm(r, h.svc.Defaults())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	gs, err := h.svc.CreateGame(&st)
	if err != nil {
		h.log.Error("create game", zap.Error(err))
		http.Error(w, "failed to create", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/game/"+gs.ID, http.StatusSeeOther)
}

func (h *handlers) view(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	gs, ok := h.svc.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	data := struct {
		ID    string
		Board boardView
		Form  settingsForm
	}{ID: gs.ID, Board: newBoardView(*gs, ""), Form: newSettingsForm(gs.Settings)}
	writeHTML(w, renderTemplate(h.tpl.game, "base", data))
}

// playFromForm plays the posted "cell", falling back to row "r" and column "c".
func (h *handlers) playFromForm(r *http.Request, id string) (*app.GameState, error) {
	_ = r.ParseForm()
	if v := r.Form.Get("cell"); v != "" {
		idx, err := strconv.Atoi(v)
		if err != nil {
			idx = -1
		}
		return h.svc.Play(id, idx)
	}
	row, err := strconv.Atoi(r.Form.Get("r"))
	if err != nil {
		row = -1
	}
	col, err := strconv.Atoi(r.Form.Get("c"))
	if err != nil {
		col = -1
	}
	return h.svc.PlayAt(id, row, col)
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, app.ErrNotFound):
		return "Game not found"
	case errors.Is(err, app.ErrNotYourTurn):
		return "Not your turn"
	case errors.Is(err, domain.ErrOccupied):
		return "Cell is occupied"
	case errors.Is(err, domain.ErrOutOfBounds):
		return "Out of bounds"
	case errors.Is(err, domain.ErrGameOver):
		return "Game is over"
	case errors.Is(err, app.ErrInvalidSettings):
		return "Invalid settings"
	case errors.Is(err, comms.ErrMalformed):
		return "Malformed request"
	default:
		return "Invalid move"
	}
}

func (h *handlers) play(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	gs, err := h.playFromForm(r, id)
	var errMsg string
	if err != nil {
		if errors.Is(err, app.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		errMsg = errorMessage(err)
		gs, _ = h.svc.Get(id)
	}
	if gs == nil {
		http.NotFound(w, r)
		return
	}
	writeHTML(w, h.renderBoard(*gs, errMsg))
}

func (h *handlers) restart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cur, ok := h.svc.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	st, err := settingsFromForm(r, cur.Settings)
	if err != nil {
		writeHTML(w, h.renderBoard(*cur, errorMessage(err)))
		return
	}
	gs, err := h.svc.Restart(id, &st)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	writeHTML(w, h.renderBoard(*gs, ""))
}

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.svc.Get(id); !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	// In tests or non-EventSource requests, just acknowledge headers and return
	if r.Header.Get("Accept") != "text/event-stream" {
		w.WriteHeader(http.StatusOK)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}
	ctx := r.Context()
	ch, unsub, err := h.svc.Subscribe(ctx, id)
	if err != nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	defer unsub()
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	flusher.Flush()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = io.WriteString(w, ": ping\n\n")
			flusher.Flush()
		case b, ok := <-ch:
			if !ok {
				return
			}
			_, _ = fmt.Fprintf(w, "event: board\n")
			_, _ = fmt.Fprintf(w, "data: %s\n\n", singleLine(b))
			flusher.Flush()
		}
	}
}

// singleLine strips newlines so a fragment fits in one SSE data field.
func singleLine(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		if c != '\n' && c != '\r' {
			out = append(out, c)
		}
	}
	return out
}
