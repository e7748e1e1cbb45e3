package portfolio

import (
	"github.com/dwjuston/axkan-ii-backen/internal/card"
)

// Player is a game participant. ID is stable across rematches; Seat is
// redrawn at the start of every game.
type Player struct {
	ID        string
	Seat      int
	Name      string
	Portfolio *Portfolio
}

// NewPlayer returns a player with an empty portfolio.
func NewPlayer(id, name string, seat int) *Player {
	return &Player{ID: id, Name: name, Seat: seat, Portfolio: New()}
}

// SelectPair records a pair bought this turn.
func (p *Player) SelectPair(pair card.Pair) {
	p.Portfolio.AddPair(pair)
}

// SpendSeven removes and returns the seven at sevenIndex.
func (p *Player) SpendSeven(sevenIndex int) (card.Card, error) {
	seven, err := p.Portfolio.SevenCard(sevenIndex)
	if err != nil {
		return card.Card{}, err
	}
	if err := p.Portfolio.RemoveSevenCard(seven); err != nil {
		return card.Card{}, err
	}
	return seven, nil
}

// ConvertColor spends the seven at sevenIndex to flip the big card of the
// pair at pairIndex. Both indexes are checked before anything changes.
func (p *Player) ConvertColor(pairIndex, sevenIndex int) error {
	if _, err := p.Portfolio.Pair(pairIndex); err != nil {
		return err
	}
	if _, err := p.Portfolio.SevenCard(sevenIndex); err != nil {
		return err
	}
	if _, err := p.SpendSeven(sevenIndex); err != nil {
		return err
	}
	return p.Portfolio.ConvertPairColor(pairIndex)
}

// PairView is a pair valued at the current price.
type PairView struct {
	Pair  card.Pair `json:"pair"`
	Value int       `json:"value"`
	PnL   int       `json:"pnl"`
}

// ViewPair values pair at price. A non-positive price means the price has
// not been rolled yet and values are reported as zero.
func ViewPair(pair card.Pair, price int) PairView {
	v := PairView{Pair: pair}
	if price > 0 {
		v.Value = pair.Value(price)
		v.PnL = pair.PnL(price)
	}
	return v
}

// PlayerView is what a player sees of themselves.
type PlayerView struct {
	ID         string      `json:"id"`
	Seat       int         `json:"seat"`
	Name       string      `json:"name"`
	Pairs      []PairView  `json:"pairs"`
	HiddenPair *PairView   `json:"hidden_pair,omitempty"`
	SevenCards []card.Card `json:"seven_cards"`
	Cost       int         `json:"cost"`
	Value      int         `json:"value"`
	PnL        int         `json:"pnl"`
}

// OpponentView is what a player sees of the other player. It has no field
// for the hidden pair, and its totals exclude it.
type OpponentView struct {
	ID         string      `json:"id"`
	Seat       int         `json:"seat"`
	Name       string      `json:"name"`
	Pairs      []PairView  `json:"pairs"`
	SevenCards []card.Card `json:"seven_cards"`
	Cost       int         `json:"cost"`
	Value      int         `json:"value"`
	PnL        int         `json:"pnl"`
}

// PlayerView values everything, hidden pair included.
func (p *Player) PlayerView(price int) PlayerView {
	v := PlayerView{
		ID:         p.ID,
		Seat:       p.Seat,
		Name:       p.Name,
		Pairs:      viewPairs(p.Portfolio.Pairs(), price),
		SevenCards: p.Portfolio.SevenCards(),
		Cost:       p.Portfolio.Cost(true),
	}
	if hidden, ok := p.Portfolio.HiddenPair(); ok {
		hv := ViewPair(hidden, price)
		v.HiddenPair = &hv
	}
	if price > 0 {
		v.Value = p.Portfolio.Value(price, true)
		v.PnL = p.Portfolio.PnL(price, true)
	}
	return v
}

// OpponentView values the public part of the portfolio only.
func (p *Player) OpponentView(price int) OpponentView {
	v := OpponentView{
		ID:         p.ID,
		Seat:       p.Seat,
		Name:       p.Name,
		Pairs:      viewPairs(p.Portfolio.Pairs(), price),
		SevenCards: p.Portfolio.SevenCards(),
		Cost:       p.Portfolio.Cost(false),
	}
	if price > 0 {
		v.Value = p.Portfolio.Value(price, false)
		v.PnL = p.Portfolio.PnL(price, false)
	}
	return v
}

func viewPairs(pairs []card.Pair, price int) []PairView {
	out := make([]PairView, 0, len(pairs))
	for _, pair := range pairs {
		out = append(out, ViewPair(pair, price))
	}
	return out
}
