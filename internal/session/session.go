// Package session holds the games in progress. The Manager is the session
// store: it creates games, matches players into them, serializes every
// action on a game behind that game's lock, archives finished results, and
// evicts sessions that have gone idle.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/dwjuston/axkan-ii-backen/internal/errs"
	"github.com/dwjuston/axkan-ii-backen/internal/game"
	"github.com/dwjuston/axkan-ii-backen/internal/metrics"
	"github.com/dwjuston/axkan-ii-backen/internal/model"
	"github.com/dwjuston/axkan-ii-backen/internal/random"
	"github.com/dwjuston/axkan-ii-backen/internal/store"
)

var (
	ErrGameNotFound = fmt.Errorf("%w: session: game not found", errs.ErrNotFound)
	ErrNoResult     = fmt.Errorf("%w: session: game has not ended", errs.ErrIllegalPhaseAction)
)

// Session is one game and the lock that serializes access to it.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	game       *game.Context
	lastActive time.Time
	closed     bool
}

// Outcome is what a successful action produced.
type Outcome struct {
	GameID string
	Phase  game.Phase
	Boards map[string]game.Board // keyed by player id
	// Result and RecordID are set only by the action that ended the game.
	Result   *game.Result
	RecordID string
}

// Notifier receives every successful outcome while the game's lock is
// still held, so one game's outcomes arrive in the order they were applied.
// Publish must not block.
type Notifier interface {
	Publish(out *Outcome)
}

// Config configures a Manager. Zero values select defaults.
type Config struct {
	Store       store.Store
	Clock       quartz.Clock
	Seed        uint64 // non-zero for reproducible games
	IdleTimeout time.Duration
	Logger      *slog.Logger
	Notifier    Notifier // optional
}

// DefaultIdleTimeout applies when Config.IdleTimeout is zero.
const DefaultIdleTimeout = 30 * time.Minute

// Manager is the session store. Lock order is Manager.mu before Session.mu.
type Manager struct {
	store  store.Store
	clock  quartz.Clock
	idle   time.Duration
	logger *slog.Logger
	notify Notifier

	mu       sync.RWMutex
	sessions map[string]*Session
	rngs     *random.Factory
}

// NewManager creates a session manager.
func NewManager(cfg Config) *Manager {
	m := &Manager{
		store:    cfg.Store,
		clock:    cfg.Clock,
		idle:     cfg.IdleTimeout,
		logger:   cfg.Logger,
		notify:   cfg.Notifier,
		sessions: make(map[string]*Session),
		rngs:     random.NewFactory(cfg.Seed),
	}
	if m.store == nil {
		m.store = store.NewMemoryStore()
	}
	if m.clock == nil {
		m.clock = quartz.NewReal()
	}
	if m.idle <= 0 {
		m.idle = DefaultIdleTimeout
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// Create starts a new game in the Lobby phase.
func (m *Manager) Create() *Session {
	now := m.clock.Now()

	m.mu.Lock()
	s := &Session{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		game:       game.New(m.rngs.Next()),
		lastActive: now,
	}
	m.sessions[s.ID] = s
	n := len(m.sessions)
	m.mu.Unlock()

	metrics.GamesCreated.Inc()
	metrics.ActiveSessions.Set(float64(n))
	m.logger.Info("game created", "game_id", s.ID)
	return s
}

// Get returns the session for gameID.
func (m *Manager) Get(gameID string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[gameID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	return s, nil
}

// Len returns the number of sessions held.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Joined is the result of a successful Join.
type Joined struct {
	PlayerID string
	Outcome
}

// Join adds a new player named name. With an empty gameID the player is
// matched into the oldest game waiting for a second player, or a new game
// is created for them.
func (m *Manager) Join(ctx context.Context, gameID, name string) (*Joined, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: player name", game.ErrMissingField)
	}
	if gameID != "" {
		s, err := m.Get(gameID)
		if err != nil {
			return nil, err
		}
		return m.join(ctx, s, name)
	}

	for _, s := range m.waiting() {
		j, err := m.join(ctx, s, name)
		if err == nil {
			return j, nil
		}
		if errs.Kind(err) == errs.ErrValidation {
			return nil, err
		}
		// The game filled up or went away since we looked; try the next.
	}
	return m.join(ctx, m.Create(), name)
}

// waiting returns the lobby games with one player, oldest first.
func (m *Manager) waiting() []*Session {
	m.mu.RLock()
	candidates := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		candidates = append(candidates, s)
	}
	m.mu.RUnlock()

	open := candidates[:0]
	for _, s := range candidates {
		s.mu.Lock()
		if !s.closed && s.game.Phase() == game.Lobby && len(s.game.Players()) == 1 {
			open = append(open, s)
		}
		s.mu.Unlock()
	}
	sort.Slice(open, func(i, j int) bool { return open[i].CreatedAt.Before(open[j].CreatedAt) })
	return open
}

func (m *Manager) join(ctx context.Context, s *Session, name string) (*Joined, error) {
	playerID := uuid.NewString()
	out, err := m.apply(ctx, s, playerID, game.JoinGame, game.Payload{Name: name})
	if err != nil {
		return nil, err
	}
	m.logger.Info("player joined", "game_id", s.ID, "player_id", playerID, "name", name, "phase", out.Phase)
	return &Joined{PlayerID: playerID, Outcome: *out}, nil
}

// Dispatch applies one player action to a game and returns every player's
// board afterwards. Actions on one game are serialized; games are
// independent of each other.
func (m *Manager) Dispatch(ctx context.Context, gameID, playerID string, action game.Action, p game.Payload) (*Outcome, error) {
	s, err := m.Get(gameID)
	if err != nil {
		return nil, err
	}
	return m.apply(ctx, s, playerID, action, p)
}

func (m *Manager) apply(ctx context.Context, s *Session, playerID string, action game.Action, p game.Payload) (*Outcome, error) {
	start := time.Now()
	defer func() {
		metrics.DispatchLatency.WithLabelValues(string(action)).Observe(time.Since(start).Seconds())
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		metrics.ActionsTotal.WithLabelValues(string(action), errs.Code(ErrGameNotFound)).Inc()
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, s.ID)
	}

	before := s.game.Phase()
	err := s.game.Apply(playerID, action, p)
	if err == nil {
		err = s.game.Advance()
	}
	if err != nil {
		metrics.ActionsTotal.WithLabelValues(string(action), errs.Code(err)).Inc()
		level := slog.LevelDebug
		if errs.Kind(err) == errs.ErrInvariant || errs.Kind(err) == nil {
			level = slog.LevelError
		}
		m.logger.Log(ctx, level, "action rejected",
			"game_id", s.ID, "player_id", playerID, "action", action,
			"phase", s.game.Phase(), "err", err)
		return nil, err
	}
	metrics.ActionsTotal.WithLabelValues(string(action), "ok").Inc()
	s.lastActive = m.clock.Now()

	out := &Outcome{
		GameID: s.ID,
		Phase:  s.game.Phase(),
		Boards: s.game.Boards(),
	}
	m.logger.Debug("action applied",
		"game_id", s.ID, "player_id", playerID, "action", action,
		"phase", out.Phase, "turn", s.game.Turn(), "price", s.game.Price())

	if before != game.GameEnd && out.Phase == game.GameEnd {
		res, _ := s.game.Result()
		out.Result = &res
		out.RecordID = m.archive(ctx, s, res)
	}
	if m.notify != nil {
		m.notify.Publish(out)
	}
	return out, nil
}

// archive records a finished game. Archive failures are logged, never
// returned: the game itself has already ended.
func (m *Manager) archive(ctx context.Context, s *Session, res game.Result) string {
	rec := NewRecord(s.ID, res, m.clock.Now())

	outcome := "win"
	if res.Winner == game.Tie {
		outcome = "tie"
	}
	metrics.GamesFinished.WithLabelValues(outcome).Inc()
	metrics.FinalPrice.Observe(float64(res.FinalPrice))

	if err := m.store.SaveResult(ctx, rec); err != nil {
		m.logger.Error("archive result failed", "game_id", s.ID, "result_id", rec.ID, "err", err)
		return ""
	}
	m.logger.Info("game finished",
		"game_id", s.ID, "result_id", rec.ID, "winner", res.Winner.String(),
		"initial_price", res.InitialPrice, "final_price", res.FinalPrice)
	return rec.ID
}

// NewRecord converts a game result into its archived form.
func NewRecord(gameID string, res game.Result, finishedAt time.Time) *model.GameRecord {
	rec := &model.GameRecord{
		ID:           uuid.NewString(),
		GameID:       gameID,
		WinnerSeat:   int(res.Winner),
		InitialPrice: res.InitialPrice,
		FinalPrice:   res.FinalPrice,
		FinishedAt:   finishedAt.UTC(),
	}
	if res.Winner == game.Tie {
		rec.WinnerSeat = model.TieSeat
	}
	for _, p := range res.Players {
		rec.Players = append(rec.Players, model.PlayerRecord{
			ResultID:  rec.ID,
			PlayerID:  p.View.ID,
			Name:      p.View.Name,
			Seat:      p.View.Seat,
			Cost:      p.View.Cost,
			Value:     p.View.Value,
			PnL:       p.PnL,
			ReturnPct: p.ReturnPct,
		})
	}
	return rec
}

// Board returns playerID's view of a game.
func (m *Manager) Board(gameID, playerID string) (game.Board, error) {
	s, err := m.Get(gameID)
	if err != nil {
		return game.Board{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.Board(playerID)
}

// Result returns the result of a game at GameEnd.
func (m *Manager) Result(gameID string) (game.Result, error) {
	s, err := m.Get(gameID)
	if err != nil {
		return game.Result{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.game.Result()
	if !ok {
		return game.Result{}, fmt.Errorf("%w: %s is in %s", ErrNoResult, gameID, s.game.Phase())
	}
	return res, nil
}

// EvictIdle removes sessions with no successful action for longer than the
// idle timeout and returns their ids.
func (m *Manager) EvictIdle() []string {
	now := m.clock.Now()

	m.mu.Lock()
	var evicted []string
	for id, s := range m.sessions {
		s.mu.Lock()
		if now.Sub(s.lastActive) > m.idle {
			s.closed = true
			delete(m.sessions, id)
			evicted = append(evicted, id)
		}
		s.mu.Unlock()
	}
	n := len(m.sessions)
	m.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	for _, id := range evicted {
		m.logger.Info("session evicted", "game_id", id, "idle_timeout", m.idle)
	}
	return evicted
}

// Run sweeps idle sessions every interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	w := m.clock.TickerFunc(ctx, interval, func() error {
		m.EvictIdle()
		return nil
	}, "session", "sweep")
	err := w.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}
