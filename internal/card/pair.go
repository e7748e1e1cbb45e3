package card

import (
	"encoding/json"
	"fmt"
)

// Pair is the unit players buy: a small card setting the cost and a big
// card setting the payoff.
type Pair struct {
	small Card
	big   Card
}

// NewPair validates the composition and returns the pair.
func NewPair(small, big Card) (Pair, error) {
	if small.Category() != Small || big.Category() != Big {
		return Pair{}, fmt.Errorf("%w: got %v and %v", ErrInvalidPair, small, big)
	}
	return Pair{small: small, big: big}, nil
}

// MustPair is NewPair for literals known to be valid. It panics otherwise.
func MustPair(small, big Card) Pair {
	p, err := NewPair(small, big)
	if err != nil {
		panic(err)
	}
	return p
}

// Small returns the small (cost) card.
func (p Pair) Small() Card { return p.small }

// Big returns the big (payoff) card.
func (p Pair) Big() Card { return p.big }

// Cost is the rank of the small card.
func (p Pair) Cost() int { return p.small.Rank }

// Value is the big card's payoff at price.
func (p Pair) Value(price int) int {
	// big is validated at construction, so Value cannot fail here.
	v, _ := p.big.Value(price)
	return v
}

// PnL is Value minus Cost.
func (p Pair) PnL(price int) int {
	return p.Value(price) - p.Cost()
}

// Breakeven returns the price at which PnL is zero and the direction in
// which the pair is profitable: ">=" for red big cards, "<=" for black.
func (p Pair) Breakeven() (int, string) {
	if p.big.Red() {
		return p.big.Rank + p.small.Rank, ">="
	}
	return p.big.Rank - p.small.Rank, "<="
}

// BreakevenLabel formats Breakeven as e.g. ">=14".
func (p Pair) BreakevenLabel() string {
	price, dir := p.Breakeven()
	return fmt.Sprintf("%s%d", dir, price)
}

// ConvertBigCardColor returns a copy with only the big card's color flipped.
func (p Pair) ConvertBigCardColor() Pair {
	return Pair{small: p.small, big: p.big.ConvertColor()}
}

func (p Pair) String() string {
	return fmt.Sprintf("[%v | %v]", p.small, p.big)
}

type pairJSON struct {
	Small     Card   `json:"small"`
	Big       Card   `json:"big"`
	Cost      int    `json:"cost"`
	Breakeven string `json:"breakeven"`
}

// MarshalJSON includes cost and breakeven for display.
func (p Pair) MarshalJSON() ([]byte, error) {
	return json.Marshal(pairJSON{
		Small:     p.small,
		Big:       p.big,
		Cost:      p.Cost(),
		Breakeven: p.BreakevenLabel(),
	})
}

// UnmarshalJSON validates the decoded composition.
func (p *Pair) UnmarshalJSON(b []byte) error {
	var raw pairJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := NewPair(raw.Small, raw.Big)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
