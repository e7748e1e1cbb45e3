// Package card models the playing cards of the game: single cards, the
// small/big pairs players buy, and the shared draw pile.
//
// Cards and pairs are immutable values. Category, color, cost and value are
// always derived from suit and rank, never stored.
package card

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dwjuston/axkan-ii-backen/internal/errs"
)

var (
	// ErrInvalidCard is returned for an unknown suit or a rank outside the deck.
	ErrInvalidCard = fmt.Errorf("%w: card: invalid card", errs.ErrValidation)

	// ErrInvalidPair is returned when a pair is not one small plus one big card.
	ErrInvalidPair = fmt.Errorf("%w: card: pair needs one small and one big card", errs.ErrValidation)

	// ErrNoValue is returned when valuing a card that is not a big card.
	ErrNoValue = fmt.Errorf("%w: card: only big cards have a value", errs.ErrValidation)
)

// Suit is one of the four French suits.
type Suit int

const (
	Hearts Suit = iota + 1
	Diamonds
	Spades
	Clubs
)

// Suits lists every suit in deck order.
var Suits = [...]Suit{Hearts, Diamonds, Spades, Clubs}

var suitNames = map[Suit]string{
	Hearts:   "hearts",
	Diamonds: "diamonds",
	Spades:   "spades",
	Clubs:    "clubs",
}

func (s Suit) String() string {
	if name, ok := suitNames[s]; ok {
		return name
	}
	return "Suit(" + strconv.Itoa(int(s)) + ")"
}

// Valid reports whether s is one of the four suits.
func (s Suit) Valid() bool {
	_, ok := suitNames[s]
	return ok
}

// Red reports whether the suit is hearts or diamonds.
func (s Suit) Red() bool { return s == Hearts || s == Diamonds }

// Color returns "red" or "black".
func (s Suit) Color() string {
	if s.Red() {
		return "red"
	}
	return "black"
}

// MarshalText encodes the suit by name.
func (s Suit) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: suit %d", ErrInvalidCard, int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a suit name.
func (s *Suit) UnmarshalText(b []byte) error {
	for k, v := range suitNames {
		if v == string(b) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("%w: suit %q", ErrInvalidCard, string(b))
}

// Category is derived from rank.
type Category string

const (
	Small   Category = "small"   // ranks 1-6
	Big     Category = "big"     // ranks 8-13
	Special Category = "special" // rank 7
)

// SevenRank is the rank of the special cards.
const SevenRank = 7

// Card is a single playing card.
type Card struct {
	Suit Suit
	Rank int
}

// New validates and returns a card.
func New(suit Suit, rank int) (Card, error) {
	if !suit.Valid() || rank < 1 || rank > 13 {
		return Card{}, fmt.Errorf("%w: %v %d", ErrInvalidCard, suit, rank)
	}
	return Card{Suit: suit, Rank: rank}, nil
}

// Category derives the card category from its rank.
func (c Card) Category() Category {
	switch {
	case c.Rank == SevenRank:
		return Special
	case c.Rank <= 6:
		return Small
	default:
		return Big
	}
}

// IsSeven reports whether c is a special seven card.
func (c Card) IsSeven() bool { return c.Rank == SevenRank }

// Red reports whether the card is hearts or diamonds.
func (c Card) Red() bool { return c.Suit.Red() }

// Value is what a big card pays at the given stock price: red cards gain
// as the price rises above their rank, black cards as it falls below.
func (c Card) Value(price int) (int, error) {
	if c.Category() != Big {
		return 0, fmt.Errorf("%w: %v", ErrNoValue, c)
	}
	if c.Red() {
		return max(price-c.Rank, 0), nil
	}
	return max(c.Rank-price, 0), nil
}

// ConvertColor swaps hearts with spades and diamonds with clubs. The rank is
// unchanged.
func (c Card) ConvertColor() Card {
	switch c.Suit {
	case Hearts:
		c.Suit = Spades
	case Spades:
		c.Suit = Hearts
	case Diamonds:
		c.Suit = Clubs
	case Clubs:
		c.Suit = Diamonds
	}
	return c
}

func (c Card) String() string {
	return fmt.Sprintf("%d of %s", c.Rank, c.Suit)
}

type cardJSON struct {
	Suit     Suit     `json:"suit"`
	Rank     int      `json:"rank"`
	Color    string   `json:"color"`
	Category Category `json:"category"`
}

// MarshalJSON includes the derived color and category for clients.
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(cardJSON{
		Suit:     c.Suit,
		Rank:     c.Rank,
		Color:    c.Suit.Color(),
		Category: c.Category(),
	})
}

// UnmarshalJSON reads suit and rank; derived fields are ignored.
func (c *Card) UnmarshalJSON(b []byte) error {
	var raw cardJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := New(raw.Suit, raw.Rank)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
