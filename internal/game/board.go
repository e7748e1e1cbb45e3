package game

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/dwjuston/axkan-ii-backen/internal/dice"
	"github.com/dwjuston/axkan-ii-backen/internal/portfolio"
)

// Board is one player's read-only snapshot of the game. The opponent is
// always an OpponentView, so their hidden pair cannot appear here.
type Board struct {
	Phase          Phase                   `json:"phase"`
	Turn           int                     `json:"turn"`
	MaxTurns       int                     `json:"max_turns"`
	StockPrice     int                     `json:"stock_price"`
	InitialPrice   int                     `json:"initial_price"`
	LastRoll       *dice.Roll              `json:"last_roll,omitempty"`
	AvailablePairs []portfolio.PairView    `json:"available_pairs"`
	SelectedPairs  map[int]int             `json:"selected_pairs"` // seat -> offered index
	FirstSelector  *int                    `json:"first_selector,omitempty"`
	SecondSelector *int                    `json:"second_selector,omitempty"`
	DiceRoller     *int                    `json:"dice_roller,omitempty"`
	Awaiting       *int                    `json:"awaiting,omitempty"` // seat expected to act next
	Ready          []int                   `json:"ready"`
	ReviewEnded    []int                   `json:"review_ended"`
	You            portfolio.PlayerView    `json:"you"`
	Opponent       *portfolio.OpponentView `json:"opponent,omitempty"`
	Result         *Result                 `json:"result,omitempty"`
}

// Board builds the snapshot for playerID.
func (c *Context) Board(playerID string) (Board, error) {
	me := c.player(playerID)
	if me == nil {
		return Board{}, fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}

	b := Board{
		Phase:          c.phase,
		Turn:           c.turn,
		MaxTurns:       Turns,
		StockPrice:     c.price,
		InitialPrice:   c.initialPrice,
		LastRoll:       c.lastRoll,
		AvailablePairs: make([]portfolio.PairView, 0, len(c.available)),
		SelectedPairs:  make(map[int]int, len(c.selected)),
		Ready:          c.seatsIn(c.ready),
		ReviewEnded:    c.seatsIn(c.reviewed),
		You:            me.PlayerView(c.price),
		Result:         c.result,
	}
	for _, pair := range c.available {
		b.AvailablePairs = append(b.AvailablePairs, portfolio.ViewPair(pair, c.price))
	}
	for id, idx := range c.selected {
		if pl := c.player(id); pl != nil {
			b.SelectedPairs[pl.Seat] = idx
		}
	}
	if c.first >= 0 {
		first, second := c.first, c.second()
		b.FirstSelector = &first
		b.SecondSelector = &second
		b.DiceRoller = &second
	}
	if seat, ok := c.Awaiting(); ok {
		b.Awaiting = &seat
	}
	for _, pl := range c.players {
		if pl.ID != playerID {
			opp := pl.OpponentView(c.price)
			b.Opponent = &opp
		}
	}
	return b, nil
}

// Boards builds every player's snapshot, keyed by player id.
func (c *Context) Boards() map[string]Board {
	out := make(map[string]Board, len(c.players))
	for _, pl := range c.players {
		b, _ := c.Board(pl.ID)
		out[pl.ID] = b
	}
	return out
}

// Awaiting returns the seat that must act next, when one seat is
// designated. Phases where either player may act report false.
func (c *Context) Awaiting() (int, bool) {
	switch c.phase {
	case GameInit:
		return 0, true
	case TurnSelectFirst:
		return c.first, true
	case TurnSelectSecond, TurnComplete:
		return c.second(), true
	}
	return 0, false
}

func (c *Context) seatsIn(set map[string]bool) []int {
	seats := make([]int, 0, len(set))
	for _, pl := range c.players {
		if set[pl.ID] {
			seats = append(seats, pl.Seat)
		}
	}
	return seats
}

// Phase returns the current phase.
func (c *Context) Phase() Phase { return c.phase }

// Turn returns the current turn, 1 through Turns.
func (c *Context) Turn() int { return c.turn }

// Price returns the current stock price; zero before the initial roll.
func (c *Context) Price() int { return c.price }

// Players returns the players in join order.
func (c *Context) Players() []*portfolio.Player {
	return append([]*portfolio.Player(nil), c.players...)
}

// Result returns the final result once the game has ended.
func (c *Context) Result() (Result, bool) {
	if c.result == nil {
		return Result{}, false
	}
	return *c.result, true
}

// Winner is a seat, or Tie.
type Winner int

// Tie is the Winner when both players finish with equal PnL.
const Tie Winner = -1

// MarshalJSON encodes the seat number, or "tie".
func (w Winner) MarshalJSON() ([]byte, error) {
	if w == Tie {
		return []byte(`"tie"`), nil
	}
	return []byte(strconv.Itoa(int(w))), nil
}

// UnmarshalJSON accepts a seat number or "tie".
func (w *Winner) UnmarshalJSON(b []byte) error {
	if string(b) == `"tie"` {
		*w = Tie
		return nil
	}
	var seat int
	if err := json.Unmarshal(b, &seat); err != nil {
		return err
	}
	*w = Winner(seat)
	return nil
}

func (w Winner) String() string {
	if w == Tie {
		return "tie"
	}
	return "seat_" + strconv.Itoa(int(w))
}

// PlayerResult is one player's final standing, hidden pair revealed.
type PlayerResult struct {
	View      portfolio.PlayerView `json:"view"`
	PnL       int                  `json:"pnl"`
	ReturnPct decimal.Decimal      `json:"return_pct"` // pnl / cost * 100
}

// Result is the outcome of a finished game.
type Result struct {
	Winner       Winner         `json:"winner"`
	InitialPrice int            `json:"initial_price"`
	FinalPrice   int            `json:"final_price"`
	Players      []PlayerResult `json:"players"` // seat order
}

// FinalResults scores both players at the current price with hidden pairs
// included. The strictly higher PnL wins.
func (c *Context) FinalResults() Result {
	res := Result{
		Winner:       Tie,
		InitialPrice: c.initialPrice,
		FinalPrice:   c.price,
	}
	for seat := 0; seat < MaxPlayers; seat++ {
		pl := bySeat(c.players, seat)
		if pl == nil {
			continue
		}
		pnl := pl.Portfolio.PnL(c.price, true)
		res.Players = append(res.Players, PlayerResult{
			View:      pl.PlayerView(c.price),
			PnL:       pnl,
			ReturnPct: ReturnPct(pnl, pl.Portfolio.Cost(true)),
		})
	}
	if len(res.Players) == MaxPlayers {
		a, b := res.Players[0], res.Players[1]
		switch {
		case a.PnL > b.PnL:
			res.Winner = Winner(a.View.Seat)
		case b.PnL > a.PnL:
			res.Winner = Winner(b.View.Seat)
		}
	}
	return res
}

// ReturnPct is pnl as a percentage of cost, rounded to two places. Zero
// cost yields zero.
func ReturnPct(pnl, cost int) decimal.Decimal {
	if cost == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(pnl)).
		Div(decimal.NewFromInt(int64(cost))).
		Mul(decimal.NewFromInt(100)).
		Round(2)
}
