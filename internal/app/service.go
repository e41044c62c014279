package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jaminalder/tic-tac-toe-ai/internal/bot"
	"github.com/jaminalder/tic-tac-toe-ai/internal/domain"
)

// Errors exposed by the service layer.
var (
	ErrNotFound    = errors.New("game not found")
	ErrNotYourTurn = errors.New("not your turn")
)

// GameState is the in-memory state tracked per game.
type GameState struct {
	ID       string
	Game     domain.Game
	Settings Settings
	Score    Score
	Active   bool
	LastMove int
	Created  time.Time
	Updated  time.Time

	// epoch invalidates scheduled computer moves on restart or reschedule.
	epoch uint64
	// pending is set while a computer move is scheduled or being searched.
	pending bool
}

// ComputerToMove reports whether the next move belongs to the computer.
func (gs *GameState) ComputerToMove() bool {
	return gs.Active && gs.Settings.Mode == PvC && gs.Game.Turn == gs.Settings.Computer
}

// MoveSelector picks computer moves. *bot.Selector implements it.
type MoveSelector interface {
	SelectMove(b domain.Board, d bot.Difficulty, computer domain.Cell) (int, error)
}

type subscriber struct {
	ch        chan []byte
	closeOnce sync.Once
}

func (s *subscriber) close() { s.closeOnce.Do(func() { close(s.ch) }) }

// Service manages games and subscribers.
type Service struct {
	mu       sync.Mutex
	games    map[string]*GameState
	subs     map[string]map[*subscriber]struct{}
	render   func(GameState) []byte
	log      *zap.Logger
	selector MoveSelector
	delay    time.Duration
	defaults Settings
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithRenderer sets the broadcast payload renderer.
func WithRenderer(renderer func(GameState) []byte) Option {
	return func(s *Service) {
		if renderer != nil {
			s.render = renderer
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithSelector replaces the computer move selector.
func WithSelector(sel MoveSelector) Option {
	return func(s *Service) {
		if sel != nil {
			s.selector = sel
		}
	}
}

// WithComputerDelay sets the pause before the computer answers a human move.
func WithComputerDelay(d time.Duration) Option {
	return func(s *Service) { s.delay = d }
}

// WithDefaults sets the settings used when a game is created without any.
func WithDefaults(st Settings) Option {
	return func(s *Service) { s.defaults = st }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a service. Without options it renders nothing, logs
// nothing and answers after 500ms.
func NewService(opts ...Option) *Service {
	s := &Service{
		games:    make(map[string]*GameState),
		subs:     make(map[string]map[*subscriber]struct{}),
		render:   func(GameState) []byte { return nil },
		log:      zap.NewNop(),
		selector: bot.NewSelector(nil),
		delay:    500 * time.Millisecond,
		defaults: DefaultSettings(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetRenderer replaces the broadcast renderer function.
func (s *Service) SetRenderer(renderer func(GameState) []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if renderer == nil {
		s.render = func(GameState) []byte { return nil }
		return
	}
	s.render = renderer
}

// Defaults returns the settings used for games created without any.
func (s *Service) Defaults() Settings { return s.defaults }

// CreateGame creates and registers a new game. A nil st uses the defaults.
// When the computer moves first it does so before CreateGame returns.
func (s *Service) CreateGame(st *Settings) (*GameState, error) {
	settings := s.defaults
	if st != nil {
		settings = *st
	}
	if err := settings.validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	now := s.now()
	gs := &GameState{
		ID:       uuid.NewString(),
		Game:     domain.NewGame(settings.FirstPlayer),
		Settings: settings,
		Active:   true,
		LastMove: -1,
		Created:  now,
		Updated:  now,
	}
	s.games[gs.ID] = gs
	s.log.Info("game created",
		zap.String("game", gs.ID),
		zap.Stringer("mode", settings.Mode),
		zap.Stringer("difficulty", settings.Difficulty),
		zap.Stringer("first", settings.FirstPlayer))
	first := gs.ComputerToMove()
	gs.pending = first
	id, epoch := gs.ID, gs.epoch
	cp := *gs
	s.mu.Unlock()
	if first {
		if moved := s.computerMove(id, epoch); moved != nil {
			return moved, nil
		}
	}
	return &cp, nil
}

// Get returns a copy of the game state if present.
func (s *Service) Get(id string) (*GameState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.games[id]
	if !ok {
		return nil, false
	}
	cp := *gs
	return &cp, true
}

// Play applies a human move at cell idx. In PvC the human may only move on
// their own turn, which also rejects clicks made while the computer's answer
// is pending. Rejected moves leave the game untouched.
func (s *Service) Play(id string, idx int) (*GameState, error) {
	s.mu.Lock()
	gs, ok := s.games[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if !gs.Active {
		s.mu.Unlock()
		return nil, domain.ErrGameOver
	}
	if gs.ComputerToMove() {
		s.mu.Unlock()
		return nil, ErrNotYourTurn
	}
	mark := gs.Game.Turn
	if err := gs.Game.Play(idx); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.log.Debug("move", zap.String("game", id), zap.Stringer("player", mark), zap.Int("cell", idx))
	s.afterMoveLocked(gs, idx)
	if gs.ComputerToMove() {
		s.scheduleComputerLocked(gs)
	}
	return s.publishUnlock(gs), nil
}

// PlayAt is Play addressed by row and column.
func (s *Service) PlayAt(id string, r, c int) (*GameState, error) {
	if r < 0 || r > 2 || c < 0 || c > 2 {
		return s.Play(id, -1)
	}
	return s.Play(id, r*3+c)
}

// Restart clears the board and reactivates the game, whatever state it was
// in. A non-nil st replaces the settings first. The score is kept.
func (s *Service) Restart(id string, st *Settings) (*GameState, error) {
	if st != nil {
		if err := st.validate(); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	gs, ok := s.games[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if st != nil {
		gs.Settings = *st
	}
	gs.Game = domain.NewGame(gs.Settings.FirstPlayer)
	gs.Active = true
	gs.LastMove = -1
	gs.epoch++
	gs.pending = false
	gs.Updated = s.now()
	s.log.Info("game restarted", zap.String("game", id), zap.Stringer("first", gs.Settings.FirstPlayer))
	if !gs.ComputerToMove() {
		return s.publishUnlock(gs), nil
	}
	gs.pending = true
	epoch := gs.epoch
	s.mu.Unlock()
	if moved := s.computerMove(id, epoch); moved != nil {
		return moved, nil
	}
	s.mu.Lock()
	if gs, ok = s.games[id]; !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	return s.publishUnlock(gs), nil
}

// Configure changes the settings of a running game. Mode, difficulty and the
// computer's side apply at once; the first player applies on restart. A
// computer move that is already pending keeps its schedule.
func (s *Service) Configure(id string, st Settings) (*GameState, error) {
	if err := st.validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	gs, ok := s.games[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	gs.Settings = st
	gs.Updated = s.now()
	if gs.ComputerToMove() && !gs.pending {
		s.scheduleComputerLocked(gs)
	}
	return s.publishUnlock(gs), nil
}

// ResetScore zeroes the session tally.
func (s *Service) ResetScore(id string) (*GameState, error) {
	s.mu.Lock()
	gs, ok := s.games[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	gs.Score = Score{}
	gs.Updated = s.now()
	return s.publishUnlock(gs), nil
}

// Hint returns the best move for the side to move.
func (s *Service) Hint(id string) (int, error) {
	s.mu.Lock()
	gs, ok := s.games[id]
	if !ok {
		s.mu.Unlock()
		return -1, ErrNotFound
	}
	if !gs.Active {
		s.mu.Unlock()
		return -1, domain.ErrGameOver
	}
	board, turn := gs.Game.Board, gs.Game.Turn
	s.mu.Unlock()
	return bot.BestMove(board, turn), nil
}

// afterMoveLocked records a move and ends the game when it is over.
func (s *Service) afterMoveLocked(gs *GameState, idx int) {
	gs.LastMove = idx
	gs.Updated = s.now()
	if !gs.Game.Over() {
		return
	}
	gs.Active = false
	gs.Score.record(gs.Game.Result)
	s.log.Info("game over",
		zap.String("game", gs.ID),
		zap.Stringer("outcome", gs.Game.Result.Outcome),
		zap.Stringer("winner", gs.Game.Result.Winner),
		zap.Int("moves", gs.Game.Moves))
}

// scheduleComputerLocked answers after the presentation delay. The move is
// dropped if the game was restarted or rescheduled in the meantime.
func (s *Service) scheduleComputerLocked(gs *GameState) {
	gs.epoch++
	gs.pending = true
	id, epoch := gs.ID, gs.epoch
	time.AfterFunc(s.delay, func() { s.computerMove(id, epoch) })
}

// computerMove plays the computer's turn in game id while epoch is current.
// The search runs without s.mu held. It returns the published state, or nil
// when no move was made.
func (s *Service) computerMove(id string, epoch uint64) *GameState {
	s.mu.Lock()
	gs, ok := s.games[id]
	if !ok || gs.epoch != epoch {
		s.mu.Unlock()
		return nil
	}
	if !gs.ComputerToMove() {
		gs.pending = false
		s.mu.Unlock()
		return nil
	}
	gs.pending = true
	board, st := gs.Game.Board, gs.Settings
	s.mu.Unlock()

	idx, err := s.selector.SelectMove(board, st.Difficulty, st.Computer)

	s.mu.Lock()
	gs, ok = s.games[id]
	if !ok || gs.epoch != epoch {
		s.mu.Unlock()
		return nil
	}
	gs.pending = false
	if err != nil {
		s.log.Error("computer move", zap.String("game", id), zap.Error(err))
		s.mu.Unlock()
		return nil
	}
	if gs.Settings != st || gs.Game.Board != board {
		// Reconfigured during the search: answer again under the new settings.
		if gs.ComputerToMove() {
			s.scheduleComputerLocked(gs)
		}
		s.mu.Unlock()
		return nil
	}
	if err := gs.Game.Play(idx); err != nil {
		s.log.Error("computer move rejected", zap.String("game", id), zap.Int("cell", idx), zap.Error(err))
		s.mu.Unlock()
		return nil
	}
	s.log.Debug("computer move",
		zap.String("game", id),
		zap.Stringer("difficulty", st.Difficulty),
		zap.Int("cell", idx))
	s.afterMoveLocked(gs, idx)
	return s.publishUnlock(gs)
}

// publishUnlock snapshots gs, fans the rendered state out to subscribers and
// releases the lock. It must be called with s.mu held. Sends never block: a
// subscriber whose buffer is full is closed and dropped.
func (s *Service) publishUnlock(gs *GameState) *GameState {
	defer s.mu.Unlock()
	cp := *gs
	payload := s.render(cp)
	dropped := 0
	for sub := range s.subs[gs.ID] {
		select {
		case sub.ch <- payload:
		default:
			sub.close()
			delete(s.subs[gs.ID], sub)
			dropped++
		}
	}
	if dropped > 0 {
		s.log.Debug("dropped slow subscribers", zap.String("game", gs.ID), zap.Int("count", dropped))
	}
	return &cp
}

// Subscribe registers a subscriber for a game. Returns a channel and an unsubscribe func.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan []byte, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[id]; !ok {
		return nil, nil, ErrNotFound
	}
	set := s.subs[id]
	if set == nil {
		set = make(map[*subscriber]struct{})
		s.subs[id] = set
	}
	sub := &subscriber{ch: make(chan []byte, 1)}
	set[sub] = struct{}{}

	unsubOnce := &sync.Once{}
	unsub := func() {
		unsubOnce.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
			}
			sub.close()
		})
	}
	go func() {
		<-ctx.Done()
		unsub()
	}()
	return sub.ch, unsub, nil
}

// Subscribers returns the number of live subscribers of a game.
func (s *Service) Subscribers(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs[id])
}
