package web

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jaminalder/tic-tac-toe-ai/internal/app"
	"github.com/jaminalder/tic-tac-toe-ai/internal/comms"
)

const writeWait = 10 * time.Second

type socketHandler struct {
	svc       *app.Service
	log       *zap.Logger
	heartbeat time.Duration
	upgrader  websocket.Upgrader
}

func newSocketHandler(svc *app.Service, log *zap.Logger, heartbeat time.Duration, origins []string) *socketHandler {
	return &socketHandler{
		svc:       svc,
		log:       log,
		heartbeat: heartbeat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(origins),
		},
	}
}

func checkOrigin(origins []string) func(*http.Request) bool {
	if len(origins) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		for _, o := range origins {
			if strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// socketConn serialises writes; gorilla connections allow one writer at a time.
type socketConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *socketConn) send(contents interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(comms.ToMessage(contents))
}

func (c *socketConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (h *socketHandler) serve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates, unsub, err := h.svc.Subscribe(ctx, id)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer unsub()

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade", zap.String("game", id), zap.Error(err))
		return
	}
	conn := &socketConn{conn: ws}
	defer ws.Close()
	log := h.log.With(zap.String("game", id), zap.String("remote", r.RemoteAddr))
	log.Debug("socket opened")

	if gs, ok := h.svc.Get(id); ok {
		_ = conn.send(newStateBroadcast(*gs))
	}
	go h.writeLoop(ctx, conn, id, updates)

	pongWait := 2 * h.heartbeat
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var m comms.Message
		if err := ws.ReadJSON(&m); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("socket read", zap.Error(err))
			}
			break
		}
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		if reply := h.dispatch(id, m); reply != nil {
			if err := conn.send(reply); err != nil {
				break
			}
		}
	}
	log.Debug("socket closed")
}

// writeLoop pushes the current state on every update and keeps the
// connection alive until ctx ends or the subscription is dropped.
func (h *socketHandler) writeLoop(ctx context.Context, conn *socketConn, id string, updates <-chan []byte) {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		case _, ok := <-updates:
			if !ok {
				_ = conn.conn.Close()
				return
			}
			gs, found := h.svc.Get(id)
			if !found {
				_ = conn.conn.Close()
				return
			}
			if err := conn.send(newStateBroadcast(*gs)); err != nil {
				return
			}
		}
	}
}

// dispatch runs one client request. State changes reach the client through
// the subscription, so only rejections and hints produce a direct reply.
func (h *socketHandler) dispatch(id string, m comms.Message) interface{} {
	var err error
	switch m.Type {
	case "MakeMoveRequest":
		var req MakeMoveRequest
		if err = comms.Decode(m, &req); err == nil {
			_, err = req.play(h.svc, id)
		}
	case "RestartRequest":
		var req RestartRequest
		if err = comms.Decode(m, &req); err == nil {
			err = h.resettle(id, SettingsRequest(req), true)
		}
	case "ConfigureRequest":
		var req ConfigureRequest
		if err = comms.Decode(m, &req); err == nil {
			err = h.resettle(id, SettingsRequest(req), false)
		}
	case "ResetScoreRequest":
		_, err = h.svc.ResetScore(id)
	case "HintRequest":
		var idx int
		if idx, err = h.svc.Hint(id); err == nil {
			return HintResponse{Cell: idx}
		}
	default:
		return comms.ErrorResponse{Reason: "Unknown request " + m.Type}
	}
	if err != nil {
		return comms.ErrorResponse{Reason: errorMessage(err)}
	}
	return nil
}

// resettle overlays req on the game's settings and restarts or reconfigures.
func (h *socketHandler) resettle(id string, req SettingsRequest, restart bool) error {
	cur, ok := h.svc.Get(id)
	if !ok {
		return app.ErrNotFound
	}
	st, err := req.apply(cur.Settings)
	if err != nil {
		return err
	}
	if restart {
		_, err = h.svc.Restart(id, &st)
	} else {
		_, err = h.svc.Configure(id, st)
	}
	return err
}
