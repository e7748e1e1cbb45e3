// Command simulate plays many games between two scripted players through
// the session manager and reports how each strategy fared. A fixed seed
// replays the same games.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	"github.com/coder/quartz"

	"github.com/dwjuston/axkan-ii-backen/internal/game"
	"github.com/dwjuston/axkan-ii-backen/internal/session"
	"github.com/dwjuston/axkan-ii-backen/internal/store"
)

type CLI struct {
	Games    int    `default:"1000" help:"Number of games to play"`
	Seed     uint64 `default:"1" help:"RNG seed (0 for a random seed)"`
	Strategy string `default:"greedy" enum:"first,greedy" help:"Strategy for alice (first, greedy)"`
	Opponent string `default:"first" enum:"first,greedy" help:"Strategy for bob (first, greedy)"`
	Verbose  bool   `short:"v" help:"Log every action"`
}

// Statistics aggregates finished games.
type Statistics struct {
	Games      int
	Wins       map[string]int
	PnL        map[string]int
	Ties       int
	PriceTotal int
}

func newStatistics() *Statistics {
	return &Statistics{Wins: make(map[string]int), PnL: make(map[string]int)}
}

func (s *Statistics) add(res *game.Result) {
	s.Games++
	s.PriceTotal += res.FinalPrice
	for _, pr := range res.Players {
		s.PnL[pr.View.Name] += pr.PnL
	}
	if res.Winner == game.Tie {
		s.Ties++
		return
	}
	s.Wins[res.Players[int(res.Winner)].View.Name]++
}

func (s *Statistics) AvgFinalPrice() float64 {
	if s.Games == 0 {
		return 0
	}
	return float64(s.PriceTotal) / float64(s.Games)
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("simulate"),
		kong.Description("Play scripted games and report win rates."),
	)

	level := slog.LevelWarn
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(context.Background(), cli, logger, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "simulate:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cli CLI, logger *slog.Logger, w io.Writer) error {
	alice, err := newStrategy(cli.Strategy)
	if err != nil {
		return err
	}
	bob, err := newStrategy(cli.Opponent)
	if err != nil {
		return err
	}

	m := session.NewManager(session.Config{
		Store:  store.NewMemoryStore(),
		Clock:  quartz.NewReal(),
		Seed:   cli.Seed,
		Logger: logger,
	})

	start := time.Now()
	stats := newStatistics()
	for i := 0; i < cli.Games; i++ {
		res, err := playGame(ctx, m, alice, bob)
		if err != nil {
			return fmt.Errorf("game %d: %w", i+1, err)
		}
		stats.add(res)
	}

	report(w, cli, stats, time.Since(start))
	return nil
}

// playGame seats alice and bob in a fresh game and drives it to the end.
func playGame(ctx context.Context, m *session.Manager, alice, bob strategy) (*game.Result, error) {
	a, err := m.Join(ctx, "", "alice")
	if err != nil {
		return nil, err
	}
	b, err := m.Join(ctx, a.GameID, "bob")
	if err != nil {
		return nil, err
	}
	gameID := a.GameID
	order := []string{a.PlayerID, b.PlayerID}
	players := map[string]strategy{a.PlayerID: alice, b.PlayerID: bob}

	if _, err := m.Dispatch(ctx, gameID, a.PlayerID, game.Ready, game.Payload{}); err != nil {
		return nil, err
	}
	out, err := m.Dispatch(ctx, gameID, b.PlayerID, game.Ready, game.Payload{})
	if err != nil {
		return nil, err
	}

	for out.Phase != game.GameEnd {
		actor, action, p, err := nextMove(out, order, players)
		if err != nil {
			return nil, err
		}
		if out, err = m.Dispatch(ctx, gameID, actor, action, p); err != nil {
			return nil, fmt.Errorf("%s %s: %w", actor, action, err)
		}
	}
	if out.Result == nil {
		return nil, fmt.Errorf("game %s ended without a result", gameID)
	}
	return out.Result, nil
}

// nextMove picks who acts next and what they do. order fixes the review
// order so a seeded run is reproducible.
func nextMove(out *session.Outcome, order []string, players map[string]strategy) (string, game.Action, game.Payload, error) {
	if out.Phase == game.FinalReview {
		for _, id := range order {
			board := out.Boards[id]
			if reviewed(board) {
				continue
			}
			if pairIdx, sevenIdx, ok := players[id].Convert(board); ok {
				return id, game.ColorConvert, game.Payload{PairIndex: &pairIdx, SevenCardIndex: &sevenIdx}, nil
			}
			return id, game.EndReview, game.Payload{}, nil
		}
		return "", "", game.Payload{}, fmt.Errorf("final review with no pending player")
	}

	for _, id := range order {
		board := out.Boards[id]
		if board.Awaiting == nil {
			return "", "", game.Payload{}, fmt.Errorf("phase %s has no designated actor", out.Phase)
		}
		if *board.Awaiting != board.You.Seat {
			continue
		}
		s := players[id]
		switch out.Phase {
		case game.GameInit:
			return id, game.RollDice, game.Payload{}, nil
		case game.TurnSelectFirst, game.TurnSelectSecond:
			idx := s.Select(board)
			return id, game.SelectPair, game.Payload{PairIndex: &idx}, nil
		case game.TurnComplete:
			collection, seven := s.Roll(board)
			return id, game.RollDice, game.Payload{Collection: string(collection), SevenCardIndex: seven}, nil
		}
		return "", "", game.Payload{}, fmt.Errorf("unexpected phase %s", out.Phase)
	}
	return "", "", game.Payload{}, fmt.Errorf("phase %s: awaited seat not seated", out.Phase)
}

func reviewed(b game.Board) bool {
	for _, seat := range b.ReviewEnded {
		if seat == b.You.Seat {
			return true
		}
	}
	return false
}

func report(w io.Writer, cli CLI, s *Statistics, elapsed time.Duration) {
	fmt.Fprintf(w, "%d games in %s (seed %d)\n\n", s.Games, elapsed.Round(time.Millisecond), cli.Seed)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PLAYER\tSTRATEGY\tWINS\tWIN %\tTOTAL PNL")
	for _, row := range []struct{ name, strategy string }{{"alice", cli.Strategy}, {"bob", cli.Opponent}} {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.1f\t%d\n", row.name, row.strategy, s.Wins[row.name], pct(s.Wins[row.name], s.Games), s.PnL[row.name])
	}
	tw.Flush()

	fmt.Fprintf(w, "\nties: %d (%.1f%%)\n", s.Ties, pct(s.Ties, s.Games))
	fmt.Fprintf(w, "average final price: %.2f\n", s.AvgFinalPrice())
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(n) / float64(total)
}
