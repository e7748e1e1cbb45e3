// Package portfolio holds what a player owns during a game and values it
// against the stock price.
package portfolio

import (
	"fmt"

	"github.com/dwjuston/axkan-ii-backen/internal/card"
	"github.com/dwjuston/axkan-ii-backen/internal/errs"
)

var (
	// ErrHiddenPairSet is returned when a second hidden pair is dealt.
	ErrHiddenPairSet = fmt.Errorf("%w: portfolio: hidden pair already dealt", errs.ErrInvariant)

	// ErrNotSeven is returned when a non-seven card is added as a seven.
	ErrNotSeven = fmt.Errorf("%w: portfolio: not a seven card", errs.ErrValidation)

	// ErrSevenNotHeld is returned when spending a seven the player lacks.
	ErrSevenNotHeld = fmt.Errorf("%w: portfolio: seven card not held", errs.ErrNotFound)

	// ErrPairNotHeld is returned for a pair index outside the portfolio.
	ErrPairNotHeld = fmt.Errorf("%w: portfolio: no such pair", errs.ErrNotFound)
)

// HiddenIndex addresses the hidden pair in ConvertPairColor.
const HiddenIndex = -1

// Portfolio is one player's holdings. Cost, value and PnL are computed on
// every call.
type Portfolio struct {
	pairs  []card.Pair // turn order
	hidden *card.Pair
	sevens []card.Card
}

// New returns an empty portfolio.
func New() *Portfolio {
	return &Portfolio{}
}

// AddPair appends a pair selected during a turn.
func (p *Portfolio) AddPair(pair card.Pair) {
	p.pairs = append(p.pairs, pair)
}

// AddHiddenPair deals the private pair. It may happen once per game.
func (p *Portfolio) AddHiddenPair(pair card.Pair) error {
	if p.hidden != nil {
		return ErrHiddenPairSet
	}
	p.hidden = &pair
	return nil
}

// AddSevenCard adds a special card.
func (p *Portfolio) AddSevenCard(c card.Card) error {
	if !c.IsSeven() {
		return fmt.Errorf("%w: %v", ErrNotSeven, c)
	}
	p.sevens = append(p.sevens, c)
	return nil
}

// RemoveSevenCard spends a held seven.
func (p *Portfolio) RemoveSevenCard(c card.Card) error {
	for i, s := range p.sevens {
		if s == c {
			p.sevens = append(p.sevens[:i:i], p.sevens[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %v", ErrSevenNotHeld, c)
}

// SevenCard returns the seven at index i.
func (p *Portfolio) SevenCard(i int) (card.Card, error) {
	if i < 0 || i >= len(p.sevens) {
		return card.Card{}, fmt.Errorf("%w: index %d of %d", ErrSevenNotHeld, i, len(p.sevens))
	}
	return p.sevens[i], nil
}

// Pair returns the pair at index i, or the hidden pair for HiddenIndex.
func (p *Portfolio) Pair(i int) (card.Pair, error) {
	if i == HiddenIndex {
		if p.hidden == nil {
			return card.Pair{}, fmt.Errorf("%w: no hidden pair", ErrPairNotHeld)
		}
		return *p.hidden, nil
	}
	if i < 0 || i >= len(p.pairs) {
		return card.Pair{}, fmt.Errorf("%w: index %d of %d", ErrPairNotHeld, i, len(p.pairs))
	}
	return p.pairs[i], nil
}

// ConvertPairColor flips the big card color of the pair at index i
// (HiddenIndex for the hidden pair).
func (p *Portfolio) ConvertPairColor(i int) error {
	pair, err := p.Pair(i)
	if err != nil {
		return err
	}
	converted := pair.ConvertBigCardColor()
	if i == HiddenIndex {
		p.hidden = &converted
	} else {
		p.pairs[i] = converted
	}
	return nil
}

// Pairs returns a copy of the regular pairs in selection order.
func (p *Portfolio) Pairs() []card.Pair {
	return append([]card.Pair(nil), p.pairs...)
}

// HiddenPair returns the hidden pair, if dealt.
func (p *Portfolio) HiddenPair() (card.Pair, bool) {
	if p.hidden == nil {
		return card.Pair{}, false
	}
	return *p.hidden, true
}

// SevenCards returns a copy of the held sevens.
func (p *Portfolio) SevenCards() []card.Card {
	return append([]card.Card(nil), p.sevens...)
}

func (p *Portfolio) valued(includeHidden bool) []card.Pair {
	if includeHidden && p.hidden != nil {
		return append(p.Pairs(), *p.hidden)
	}
	return p.pairs
}

// Cost sums the small-card ranks.
func (p *Portfolio) Cost(includeHidden bool) int {
	total := 0
	for _, pair := range p.valued(includeHidden) {
		total += pair.Cost()
	}
	return total
}

// Value sums pair values at price.
func (p *Portfolio) Value(price int, includeHidden bool) int {
	total := 0
	for _, pair := range p.valued(includeHidden) {
		total += pair.Value(price)
	}
	return total
}

// PnL is Value minus Cost.
func (p *Portfolio) PnL(price int, includeHidden bool) int {
	return p.Value(price, includeHidden) - p.Cost(includeHidden)
}
