// Package dice implements the signed six-sided dice that drive the stock
// price: named collections, rolls, and the price rules built on them.
package dice

import (
	"fmt"

	"github.com/dwjuston/axkan-ii-backen/internal/errs"
	"github.com/dwjuston/axkan-ii-backen/internal/random"
)

// ErrUnknownCollection is returned for a collection name outside the table.
var ErrUnknownCollection = fmt.Errorf("%w: dice: unknown collection", errs.ErrValidation)

// Collection names a fixed set of dice.
type Collection string

const (
	Initial     Collection = "initial"
	Regular     Collection = "regular"
	Inflation   Collection = "inflation"
	Tapering    Collection = "tapering"
	Stimulus    Collection = "stimulus"
	Tariff      Collection = "tariff"
	SoftLanding Collection = "soft_landing"
	SupplyShock Collection = "supply_shock"
)

// Price bounds. Prices wrap around inside [MinPrice, MaxPrice].
const (
	MinPrice = 1
	MaxPrice = 20
)

type spec struct {
	positive int
	negative int
	modifier int
}

var collections = map[Collection]spec{
	Initial:     {positive: 1},
	Regular:     {positive: 1, negative: 1},
	Inflation:   {positive: 2, negative: 1},
	Tapering:    {positive: 1, negative: 2},
	Stimulus:    {positive: 1},
	Tariff:      {negative: 1},
	SoftLanding: {positive: 1, negative: 1, modifier: 1},
	SupplyShock: {positive: 1, negative: 1, modifier: -1},
}

// Parse validates a collection name.
func Parse(name string) (Collection, error) {
	c := Collection(name)
	if _, ok := collections[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCollection, name)
	}
	return c, nil
}

// Special reports whether rolling c during a turn costs a seven card.
func (c Collection) Special() bool {
	return c != Regular && c != Initial
}

// bounds returns the smallest and largest total c can produce.
func (c Collection) bounds() (lo, hi int, err error) {
	s, ok := collections[c]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrUnknownCollection, string(c))
	}
	lo = s.positive*1 - s.negative*6 + s.modifier
	hi = s.positive*6 - s.negative*1 + s.modifier
	return lo, hi, nil
}

// Roll is the outcome of rolling a collection.
type Roll struct {
	Collection Collection `json:"collection"`
	Values     []int      `json:"values"` // signed, positive dice first
	Extra      int        `json:"extra"`
	Total      int        `json:"total"`
}

// Throw rolls every die of the collection.
func Throw(rng random.Source, c Collection) (Roll, error) {
	s, ok := collections[c]
	if !ok {
		return Roll{}, fmt.Errorf("%w: %q", ErrUnknownCollection, string(c))
	}

	r := Roll{
		Collection: c,
		Values:     make([]int, 0, s.positive+s.negative),
		Extra:      s.modifier,
	}
	for i := 0; i < s.positive; i++ {
		r.Values = append(r.Values, face(rng))
	}
	for i := 0; i < s.negative; i++ {
		r.Values = append(r.Values, -face(rng))
	}
	for _, v := range r.Values {
		r.Total += v
	}
	r.Total += r.Extra
	return r, nil
}

func face(rng random.Source) int {
	return rng.IntN(6) + 1
}

// InitialPrice maps an initial roll to the opening stock price.
func InitialPrice(r Roll) int {
	if r.Total >= 4 {
		return 11
	}
	return 10
}

// ApplyDelta moves price by delta and wraps the result into
// [MinPrice, MaxPrice].
func ApplyDelta(price, delta int) int {
	price += delta
	if price <= 0 {
		price += MaxPrice
	} else if price > MaxPrice {
		price -= MaxPrice
	}
	return price
}
