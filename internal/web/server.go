package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/jaminalder/tic-tac-toe-ai/internal/app"
)

type serverOptions struct {
	log       *zap.Logger
	heartbeat time.Duration
	origins   []string
}

// Option configures NewServer.
type Option func(*serverOptions)

// WithLogger sets the logger for requests and sockets. The default discards.
func WithLogger(log *zap.Logger) Option {
	return func(o *serverOptions) {
		if log != nil {
			o.log = log
		}
	}
}

// WithHeartbeat sets the keep-alive period of event streams and sockets.
func WithHeartbeat(d time.Duration) Option {
	return func(o *serverOptions) {
		if d > 0 {
			o.heartbeat = d
		}
	}
}

// WithAllowedOrigins limits websocket upgrades to the given origins. An
// empty list accepts any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(o *serverOptions) { o.origins = origins }
}

// NewServer wires routes and returns an http.Handler.
func NewServer(s *app.Service, opts ...Option) http.Handler {
	o := serverOptions{log: zap.NewNop(), heartbeat: 15 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	h := &handlers{svc: s, tpl: loadTemplates(), log: o.log, heartbeat: o.heartbeat}
	s.SetRenderer(func(gs app.GameState) []byte { return h.renderBoard(gs, "") })
	ws := newSocketHandler(s, o.log, o.heartbeat, o.origins)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(o.log))
	r.Use(middleware.Recoverer)

	r.Get("/", h.index)
	r.Post("/game", h.create)
	r.Route("/game/{id}", func(r chi.Router) {
		r.Get("/", h.view)
		r.Post("/play", h.play)
		r.Post("/restart", h.restart)
		r.Get("/events", h.events)
		r.Get("/ws", ws.serve)
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/game/{id}", h.state)
		r.Get("/game/{id}/hint", h.hint)
		r.Post("/evaluate", h.evaluate)
		r.Post("/move", h.move)
	})
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
