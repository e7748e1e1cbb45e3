package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwjuston/axkan-ii-backen/internal/card"
	"github.com/dwjuston/axkan-ii-backen/internal/dice"
	"github.com/dwjuston/axkan-ii-backen/internal/game"
	"github.com/dwjuston/axkan-ii-backen/internal/portfolio"
)

func view(small, big card.Card, price int) portfolio.PairView {
	return portfolio.ViewPair(card.MustPair(small, big), price)
}

func offered(price int) game.Board {
	return game.Board{
		StockPrice: price,
		AvailablePairs: []portfolio.PairView{
			view(card.Card{Suit: card.Hearts, Rank: 1}, card.Card{Suit: card.Hearts, Rank: 8}, price),
			view(card.Card{Suit: card.Spades, Rank: 2}, card.Card{Suit: card.Hearts, Rank: 9}, price),
			view(card.Card{Suit: card.Clubs, Rank: 6}, card.Card{Suit: card.Clubs, Rank: 13}, price),
		},
		SelectedPairs: map[int]int{},
	}
}

func TestFirst_Select(t *testing.T) {
	b := offered(10)
	assert.Equal(t, 0, first{}.Select(b))

	b.SelectedPairs[1] = 0
	assert.Equal(t, 1, first{}.Select(b))
}

func TestGreedy_Select(t *testing.T) {
	// At price 18 the red pairs pay 10-1=9 and 9-2=7, the black pair -6.
	b := offered(18)
	assert.Equal(t, 0, greedy{}.Select(b))

	b.SelectedPairs[0] = 0
	assert.Equal(t, 1, greedy{}.Select(b))

	// At price 2 only the black pair pays.
	assert.Equal(t, 2, greedy{}.Select(offered(2)))
}

func TestGreedy_Roll(t *testing.T) {
	red := view(card.Card{Suit: card.Hearts, Rank: 2}, card.Card{Suit: card.Diamonds, Rank: 10}, 10)
	black := view(card.Card{Suit: card.Spades, Rank: 2}, card.Card{Suit: card.Clubs, Rank: 10}, 10)
	sevens := []card.Card{{Suit: card.Hearts, Rank: 7}, {Suit: card.Clubs, Rank: 7}}

	var b game.Board
	b.You.Pairs = []portfolio.PairView{red, red}
	collection, seven := greedy{}.Roll(b)
	assert.Equal(t, dice.Regular, collection)
	assert.Nil(t, seven)

	b.You.SevenCards = sevens
	collection, seven = greedy{}.Roll(b)
	assert.Equal(t, dice.Inflation, collection)
	require.NotNil(t, seven)
	assert.Equal(t, 1, *seven)

	b.You.HiddenPair = &black
	b.You.Pairs = []portfolio.PairView{black, red}
	collection, _ = greedy{}.Roll(b)
	assert.Equal(t, dice.Tapering, collection)

	b.You.Pairs = []portfolio.PairView{red}
	collection, seven = greedy{}.Roll(b)
	assert.Equal(t, dice.Regular, collection)
	assert.Nil(t, seven)
}

func TestGreedy_Convert(t *testing.T) {
	const price = 15
	var b game.Board
	b.StockPrice = price
	b.You.Pairs = []portfolio.PairView{
		view(card.Card{Suit: card.Hearts, Rank: 3}, card.Card{Suit: card.Hearts, Rank: 10}, price),
	}

	// Nothing gains from a flip.
	b.You.SevenCards = []card.Card{{Suit: card.Spades, Rank: 7}}
	_, _, ok := greedy{}.Convert(b)
	assert.False(t, ok)

	// A black nine is worthless at 15 and worth 6 as a red nine.
	hidden := view(card.Card{Suit: card.Clubs, Rank: 4}, card.Card{Suit: card.Clubs, Rank: 9}, price)
	b.You.HiddenPair = &hidden
	pairIdx, sevenIdx, ok := greedy{}.Convert(b)
	require.True(t, ok)
	assert.Equal(t, portfolio.HiddenIndex, pairIdx)
	assert.Equal(t, 0, sevenIdx)

	b.You.SevenCards = nil
	_, _, ok = greedy{}.Convert(b)
	assert.False(t, ok)
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun_PlaysEveryGame(t *testing.T) {
	var out bytes.Buffer
	cli := CLI{Games: 25, Seed: 3, Strategy: "greedy", Opponent: "greedy"}
	require.NoError(t, run(context.Background(), cli, quiet(), &out))

	assert.True(t, strings.HasPrefix(out.String(), "25 games in "))
	assert.Contains(t, out.String(), "average final price:")
}

func TestRun_SameSeedSameReport(t *testing.T) {
	report := func() string {
		var out bytes.Buffer
		cli := CLI{Games: 40, Seed: 11, Strategy: "greedy", Opponent: "first"}
		require.NoError(t, run(context.Background(), cli, quiet(), &out))
		// Drop the header line, it carries the elapsed time.
		_, body, _ := strings.Cut(out.String(), "\n")
		return body
	}
	assert.Equal(t, report(), report())
}

func TestRun_UnknownStrategy(t *testing.T) {
	err := run(context.Background(), CLI{Games: 1, Strategy: "random", Opponent: "first"}, quiet(), io.Discard)
	assert.ErrorContains(t, err, `unknown strategy "random"`)
}
