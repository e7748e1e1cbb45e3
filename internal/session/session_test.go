package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/dwjuston/axkan-ii-backen/internal/errs"
	"github.com/dwjuston/axkan-ii-backen/internal/game"
	"github.com/dwjuston/axkan-ii-backen/internal/model"
	"github.com/dwjuston/axkan-ii-backen/internal/store"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newManager(t *testing.T, clock quartz.Clock, seed uint64) (*Manager, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	m := NewManager(Config{
		Store:       st,
		Clock:       clock,
		Seed:        seed,
		IdleTimeout: 30 * time.Minute,
		Logger:      quiet(),
	})
	return m, st
}

func ptr(i int) *int { return &i }

// seats maps seat number to player id using the boards of an outcome.
func seats(out *Outcome) map[int]string {
	ids := make(map[int]string, len(out.Boards))
	for id, b := range out.Boards {
		ids[b.You.Seat] = id
	}
	return ids
}

func awaiting(t *testing.T, out *Outcome) string {
	t.Helper()
	for _, b := range out.Boards {
		require.NotNil(t, b.Awaiting, "phase %s has no designated actor", out.Phase)
		return seats(out)[*b.Awaiting]
	}
	t.Fatal("outcome has no boards")
	return ""
}

// pair starts a two-player game and returns its id and both player ids.
func pair(t *testing.T, m *Manager) (string, string, string) {
	t.Helper()
	ctx := context.Background()
	a, err := m.Join(ctx, "", "alice")
	require.NoError(t, err)
	b, err := m.Join(ctx, a.GameID, "bob")
	require.NoError(t, err)
	require.Equal(t, game.GameStart, b.Phase)
	return a.GameID, a.PlayerID, b.PlayerID
}

// toReview drives a game from GameStart to FinalReview. The first selector
// takes pair 0, the second takes pair 1 and rolls the regular dice.
func toReview(ctx context.Context, m *Manager, gameID, a, b string) (*Outcome, error) {
	if _, err := m.Dispatch(ctx, gameID, a, game.Ready, game.Payload{}); err != nil {
		return nil, err
	}
	out, err := m.Dispatch(ctx, gameID, b, game.Ready, game.Payload{})
	if err != nil {
		return nil, err
	}

	for out.Phase != game.FinalReview {
		var board game.Board
		for _, board = range out.Boards {
			break
		}
		if board.Awaiting == nil {
			return nil, fmt.Errorf("phase %s has no designated actor", out.Phase)
		}
		actor := seats(out)[*board.Awaiting]

		var action game.Action
		var p game.Payload
		switch out.Phase {
		case game.GameInit, game.TurnComplete:
			action = game.RollDice
		case game.TurnSelectFirst:
			action, p = game.SelectPair, game.Payload{PairIndex: ptr(0)}
		case game.TurnSelectSecond:
			action, p = game.SelectPair, game.Payload{PairIndex: ptr(1)}
		default:
			return nil, fmt.Errorf("unexpected phase %s", out.Phase)
		}
		if out, err = m.Dispatch(ctx, gameID, actor, action, p); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// play drives a game from GameStart to GameEnd, alice ending review first.
func play(ctx context.Context, m *Manager, gameID, a, b string) (*Outcome, error) {
	if _, err := toReview(ctx, m, gameID, a, b); err != nil {
		return nil, err
	}
	if _, err := m.Dispatch(ctx, gameID, a, game.EndReview, game.Payload{}); err != nil {
		return nil, err
	}
	return m.Dispatch(ctx, gameID, b, game.EndReview, game.Payload{})
}

func playToEnd(t *testing.T, m *Manager, gameID, a, b string) *Outcome {
	t.Helper()
	out, err := play(context.Background(), m, gameID, a, b)
	require.NoError(t, err)
	require.Equal(t, game.GameEnd, out.Phase)
	return out
}

func TestJoin_Matchmaking(t *testing.T) {
	m, _ := newManager(t, quartz.NewMock(t), 1)
	ctx := context.Background()

	alice, err := m.Join(ctx, "", "alice")
	require.NoError(t, err)
	assert.Equal(t, game.Lobby, alice.Phase)
	assert.Len(t, alice.Boards, 1)

	bob, err := m.Join(ctx, "", "bob")
	require.NoError(t, err)
	assert.Equal(t, alice.GameID, bob.GameID, "bob fills alice's game")
	assert.Equal(t, game.GameStart, bob.Phase)
	assert.Len(t, bob.Boards, 2)
	assert.NotEqual(t, alice.PlayerID, bob.PlayerID)

	carol, err := m.Join(ctx, "", "carol")
	require.NoError(t, err)
	assert.NotEqual(t, alice.GameID, carol.GameID)
	assert.Equal(t, 2, m.Len())
}

func TestJoin_OldestWaitingGameFirst(t *testing.T) {
	clock := quartz.NewMock(t)
	m, _ := newManager(t, clock, 1)
	ctx := context.Background()

	first := m.Create()
	clock.Advance(time.Second).MustWait(ctx)
	second := m.Create()
	for _, s := range []*Session{second, first} {
		_, err := m.Join(ctx, s.ID, "host")
		require.NoError(t, err)
	}

	j, err := m.Join(ctx, "", "guest")
	require.NoError(t, err)
	assert.Equal(t, first.ID, j.GameID)
}

func TestJoin_Errors(t *testing.T) {
	m, _ := newManager(t, quartz.NewMock(t), 1)
	ctx := context.Background()

	_, err := m.Join(ctx, "", "  ")
	assert.ErrorIs(t, err, errs.ErrValidation)
	assert.Zero(t, m.Len())

	_, err = m.Join(ctx, "no-such-game", "alice")
	assert.ErrorIs(t, err, ErrGameNotFound)

	gameID, _, _ := pair(t, m)
	_, err = m.Join(ctx, gameID, "carol")
	assert.ErrorIs(t, err, errs.ErrIllegalPhaseAction)
}

func TestDispatch_UnknownGameOrPlayer(t *testing.T) {
	m, _ := newManager(t, quartz.NewMock(t), 1)
	ctx := context.Background()
	gameID, _, _ := pair(t, m)

	_, err := m.Dispatch(ctx, "missing", "p", game.Ready, game.Payload{})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = m.Dispatch(ctx, gameID, "stranger", game.Ready, game.Payload{})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = m.Board(gameID, "stranger")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDispatch_FullGameIsArchived(t *testing.T) {
	m, st := newManager(t, quartz.NewMock(t), 7)
	ctx := context.Background()
	gameID, a, b := pair(t, m)

	_, err := m.Result(gameID)
	assert.ErrorIs(t, err, errs.ErrIllegalPhaseAction)

	out := playToEnd(t, m, gameID, a, b)
	require.NotNil(t, out.Result)
	require.NotEmpty(t, out.RecordID)

	rec, err := st.GetResult(ctx, out.RecordID)
	require.NoError(t, err)
	assert.Equal(t, gameID, rec.GameID)
	assert.Equal(t, out.Result.FinalPrice, rec.FinalPrice)
	require.Len(t, rec.Players, 2)
	for i, p := range rec.Players {
		assert.Equal(t, i, p.Seat)
		assert.Equal(t, out.Result.Players[i].PnL, p.PnL)
	}

	res, err := m.Result(gameID)
	require.NoError(t, err)
	assert.Equal(t, *out.Result, res)

	for _, id := range []string{a, b} {
		board, err := m.Board(gameID, id)
		require.NoError(t, err)
		assert.Equal(t, game.GameEnd, board.Phase)
		assert.NotNil(t, board.Result)
	}
}

func TestDispatch_RematchArchivesAgain(t *testing.T) {
	m, st := newManager(t, quartz.NewMock(t), 8)
	ctx := context.Background()
	gameID, a, b := pair(t, m)

	playToEnd(t, m, gameID, a, b)
	out := playToEnd(t, m, gameID, a, b)
	require.NotEmpty(t, out.RecordID)

	history, err := st.ListResultsByGame(ctx, gameID)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	stats, err := st.GetPlayerStats(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Games)
}

func TestDispatch_SameSeedSameGame(t *testing.T) {
	results := make([]*game.Result, 2)
	for i := range results {
		m, _ := newManager(t, quartz.NewMock(t), 42)
		gameID, a, b := pair(t, m)
		results[i] = playToEnd(t, m, gameID, a, b).Result
	}

	assert.Equal(t, results[0].Winner, results[1].Winner)
	assert.Equal(t, results[0].InitialPrice, results[1].InitialPrice)
	assert.Equal(t, results[0].FinalPrice, results[1].FinalPrice)
	for i := range results[0].Players {
		assert.Equal(t, results[0].Players[i].View.Name, results[1].Players[i].View.Name)
		assert.Equal(t, results[0].Players[i].PnL, results[1].Players[i].PnL)
	}
}

func TestDispatch_SerializesPerGame(t *testing.T) {
	m, _ := newManager(t, quartz.NewMock(t), 3)
	ctx := context.Background()
	gameID, a, b := pair(t, m)

	_, err := m.Dispatch(ctx, gameID, a, game.Ready, game.Payload{})
	require.NoError(t, err)
	out, err := m.Dispatch(ctx, gameID, b, game.Ready, game.Payload{})
	require.NoError(t, err)
	roller := awaiting(t, out)
	out, err = m.Dispatch(ctx, gameID, roller, game.RollDice, game.Payload{})
	require.NoError(t, err)
	require.Equal(t, game.TurnSelectFirst, out.Phase)
	first := awaiting(t, out)

	// Many concurrent attempts at the first selection: exactly one lands,
	// the others find the phase has moved on.
	var ok, illegal atomic.Int32
	var g errgroup.Group
	for i := 0; i < 32; i++ {
		idx := i % 3
		g.Go(func() error {
			_, err := m.Dispatch(ctx, gameID, first, game.SelectPair, game.Payload{PairIndex: ptr(idx)})
			switch {
			case err == nil:
				ok.Add(1)
			case errs.Kind(err) == errs.ErrIllegalPhaseAction, errs.Kind(err) == errs.ErrNotYourTurn:
				illegal.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.EqualValues(t, 1, ok.Load())
	assert.EqualValues(t, 31, illegal.Load())

	board, err := m.Board(gameID, first)
	require.NoError(t, err)
	assert.Equal(t, game.TurnSelectSecond, board.Phase)
	assert.Len(t, board.You.Pairs, 1)
}

func TestDispatch_GamesAreIndependent(t *testing.T) {
	m, st := newManager(t, quartz.NewMock(t), 9)
	ctx := context.Background()

	games := make([]string, 8)
	g, gctx := errgroup.WithContext(ctx)
	for i := range games {
		gameID, a, b := pair(t, m)
		games[i] = gameID
		g.Go(func() error {
			_, err := play(gctx, m, gameID, a, b)
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, len(games), m.Len())
	for _, gameID := range games {
		history, err := st.ListResultsByGame(ctx, gameID)
		require.NoError(t, err)
		assert.Len(t, history, 1, "game %s", gameID)
	}
}

func TestEvictIdle(t *testing.T) {
	clock := quartz.NewMock(t)
	m, _ := newManager(t, clock, 1)
	ctx := context.Background()

	stale := m.Create()
	busy, err := m.Join(ctx, "", "alice")
	require.NoError(t, err)
	require.NotEqual(t, stale.ID, busy.GameID)

	clock.Advance(20 * time.Minute).MustWait(ctx)
	_, err = m.Join(ctx, busy.GameID, "bob")
	require.NoError(t, err)

	clock.Advance(15 * time.Minute).MustWait(ctx)
	evicted := m.EvictIdle()
	assert.Equal(t, []string{stale.ID}, evicted)
	assert.Equal(t, 1, m.Len())

	_, err = m.Get(stale.ID)
	assert.ErrorIs(t, err, ErrGameNotFound)

	// A caller still holding the evicted session cannot act on it.
	_, err = m.apply(ctx, stale, "p", game.JoinGame, game.Payload{Name: "late"})
	assert.ErrorIs(t, err, ErrGameNotFound)

	clock.Advance(31 * time.Minute).MustWait(ctx)
	assert.Equal(t, []string{busy.GameID}, m.EvictIdle())
	assert.Zero(t, m.Len())
}

func TestEvictIdle_RejectedActionsDoNotKeepAlive(t *testing.T) {
	clock := quartz.NewMock(t)
	m, _ := newManager(t, clock, 1)
	ctx := context.Background()
	gameID, a, _ := pair(t, m)

	clock.Advance(29 * time.Minute).MustWait(ctx)
	_, err := m.Dispatch(ctx, gameID, a, game.RollDice, game.Payload{})
	require.Error(t, err)

	clock.Advance(2 * time.Minute).MustWait(ctx)
	assert.Equal(t, []string{gameID}, m.EvictIdle())
}

func TestRun_SweepsUntilCancelled(t *testing.T) {
	m := NewManager(Config{IdleTimeout: time.Millisecond, Logger: quiet()})
	m.Create()
	m.Create()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, 5*time.Millisecond) }()

	require.Eventually(t, func() bool { return m.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewRecord(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.FixedZone("x", 3600))
	res := game.Result{Winner: game.Tie, InitialPrice: 10, FinalPrice: 3}
	rec := NewRecord("g1", res, at)

	assert.Equal(t, model.TieSeat, rec.WinnerSeat)
	assert.True(t, rec.Tie())
	assert.Equal(t, time.UTC, rec.FinishedAt.Location())
	assert.NotEmpty(t, rec.ID)
	assert.Empty(t, rec.Players)
}

// recorder is a Notifier that keeps every outcome it is handed.
type recorder struct {
	mu   sync.Mutex
	outs []*Outcome
}

func (r *recorder) Publish(out *Outcome) {
	r.mu.Lock()
	r.outs = append(r.outs, out)
	r.mu.Unlock()
}

func (r *recorder) last() *Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outs[len(r.outs)-1]
}

func TestNotifier_SeesOutcomesInApplyOrder(t *testing.T) {
	rec := &recorder{}
	m := NewManager(Config{Clock: quartz.NewMock(t), Seed: 21, Logger: quiet(), Notifier: rec})
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		gameID, a, b := pair(t, m)
		_, err := toReview(ctx, m, gameID, a, b)
		require.NoError(t, err)

		var g errgroup.Group
		for _, id := range []string{a, b} {
			g.Go(func() error {
				_, err := m.Dispatch(ctx, gameID, id, game.EndReview, game.Payload{})
				return err
			})
		}
		require.NoError(t, g.Wait())

		last := rec.last()
		assert.Equal(t, gameID, last.GameID)
		assert.Equal(t, game.GameEnd, last.Phase)
		require.NotNil(t, last.Result)
		for id, board := range last.Boards {
			assert.Equal(t, game.GameEnd, board.Phase, id)
		}
	}
}

func TestNotifier_SkipsRejectedActions(t *testing.T) {
	rec := &recorder{}
	m := NewManager(Config{Clock: quartz.NewMock(t), Seed: 4, Logger: quiet(), Notifier: rec})
	gameID, a, _ := pair(t, m)
	joins := len(rec.outs)
	assert.Equal(t, 2, joins)

	_, err := m.Dispatch(context.Background(), gameID, a, game.RollDice, game.Payload{})
	require.Error(t, err)
	assert.Len(t, rec.outs, joins)
}
