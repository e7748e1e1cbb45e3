package main

import (
	"fmt"

	"github.com/dwjuston/axkan-ii-backen/internal/dice"
	"github.com/dwjuston/axkan-ii-backen/internal/game"
	"github.com/dwjuston/axkan-ii-backen/internal/portfolio"
)

// strategy decides a simulated player's moves from their own board.
type strategy interface {
	// Select returns the offered pair index to take.
	Select(b game.Board) int
	// Roll returns the collection to roll and the seven to spend, if any.
	Roll(b game.Board) (dice.Collection, *int)
	// Convert returns a color conversion to make during final review.
	Convert(b game.Board) (pairIndex, sevenIndex int, ok bool)
}

func newStrategy(name string) (strategy, error) {
	switch name {
	case "first":
		return first{}, nil
	case "greedy":
		return greedy{}, nil
	}
	return nil, fmt.Errorf("unknown strategy %q", name)
}

// free returns the offered indexes nobody has taken this turn.
func free(b game.Board) []int {
	taken := make(map[int]bool, len(b.SelectedPairs))
	for _, idx := range b.SelectedPairs {
		taken[idx] = true
	}
	var out []int
	for i := range b.AvailablePairs {
		if !taken[i] {
			out = append(out, i)
		}
	}
	return out
}

// first takes the lowest free pair, always rolls the regular dice, and
// never converts.
type first struct{}

func (first) Select(b game.Board) int { return free(b)[0] }

func (first) Roll(game.Board) (dice.Collection, *int) { return dice.Regular, nil }

func (first) Convert(game.Board) (int, int, bool) { return 0, 0, false }

// greedy takes the pair worth most at the current price, spends sevens to
// push the price toward its holdings, and converts any pair that gains from
// a color flip at the final price.
type greedy struct{}

func (greedy) Select(b game.Board) int {
	best := -1
	for _, i := range free(b) {
		if best < 0 || b.AvailablePairs[i].PnL > b.AvailablePairs[best].PnL {
			best = i
		}
	}
	return best
}

func (greedy) Roll(b game.Board) (dice.Collection, *int) {
	if len(b.You.SevenCards) == 0 {
		return dice.Regular, nil
	}
	red, black := lean(b.You)
	seven := len(b.You.SevenCards) - 1
	switch {
	case red > black:
		return dice.Inflation, &seven
	case black > red:
		return dice.Tapering, &seven
	}
	return dice.Regular, nil
}

func (greedy) Convert(b game.Board) (int, int, bool) {
	if len(b.You.SevenCards) == 0 {
		return 0, 0, false
	}
	bestIdx, bestGain := 0, 0
	consider := func(idx int, pv portfolio.PairView) {
		gain := pv.Pair.ConvertBigCardColor().PnL(b.StockPrice) - pv.Pair.PnL(b.StockPrice)
		if gain > bestGain {
			bestIdx, bestGain = idx, gain
		}
	}
	for i, pv := range b.You.Pairs {
		consider(i, pv)
	}
	if b.You.HiddenPair != nil {
		consider(portfolio.HiddenIndex, *b.You.HiddenPair)
	}
	if bestGain == 0 {
		return 0, 0, false
	}
	return bestIdx, 0, true
}

// lean counts red and black big cards across a player's pairs.
func lean(v portfolio.PlayerView) (red, black int) {
	count := func(pv portfolio.PairView) {
		if pv.Pair.Big().Red() {
			red++
		} else {
			black++
		}
	}
	for _, pv := range v.Pairs {
		count(pv)
	}
	if v.HiddenPair != nil {
		count(*v.HiddenPair)
	}
	return red, black
}
