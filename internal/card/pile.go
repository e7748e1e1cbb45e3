package card

import (
	"github.com/dwjuston/axkan-ii-backen/internal/random"
)

// Pile is the shared draw pool of a single game. Small and big cards are
// drawn independently, so a pair's suits are uncorrelated. The four sevens
// are sampled from a fixed set of originals and never deplete.
type Pile struct {
	rng    random.Source
	small  []Card
	big    []Card
	sevens [4]Card
}

// NewPile builds a full pile: 24 small cards, 24 big cards, 4 sevens.
func NewPile(rng random.Source) *Pile {
	p := &Pile{
		rng:   rng,
		small: make([]Card, 0, 24),
		big:   make([]Card, 0, 24),
	}
	for i, suit := range Suits {
		for rank := 1; rank <= 6; rank++ {
			p.small = append(p.small, Card{Suit: suit, Rank: rank})
		}
		for rank := 8; rank <= 13; rank++ {
			p.big = append(p.big, Card{Suit: suit, Rank: rank})
		}
		p.sevens[i] = Card{Suit: suit, Rank: SevenRank}
	}
	return p
}

// DrawPair removes one random small and one random big card and pairs them.
// It returns false once either pool is empty.
func (p *Pile) DrawPair() (Pair, bool) {
	if len(p.small) == 0 || len(p.big) == 0 {
		return Pair{}, false
	}
	small := take(&p.small, p.rng.IntN(len(p.small)))
	big := take(&p.big, p.rng.IntN(len(p.big)))
	return MustPair(small, big), true
}

// DrawSevens samples two distinct sevens without replacement.
func (p *Pile) DrawSevens() [2]Card {
	i := p.rng.IntN(len(p.sevens))
	j := p.rng.IntN(len(p.sevens) - 1)
	if j >= i {
		j++
	}
	return [2]Card{p.sevens[i], p.sevens[j]}
}

// Remaining returns how many small and big cards are left.
func (p *Pile) Remaining() (small, big int) {
	return len(p.small), len(p.big)
}

// take removes cards[i] without preserving order.
func take(cards *[]Card, i int) Card {
	s := *cards
	c := s[i]
	last := len(s) - 1
	s[i] = s[last]
	*cards = s[:last]
	return c
}
