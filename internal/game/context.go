// Package game is the rules engine: a finite-state machine over phases that
// deals cards, runs the turn loop, moves the stock price, and scores the
// game. It is synchronous and not safe for concurrent use; callers
// serialize access per game.
package game

import (
	"fmt"
	"strings"

	"github.com/dwjuston/axkan-ii-backen/internal/card"
	"github.com/dwjuston/axkan-ii-backen/internal/dice"
	"github.com/dwjuston/axkan-ii-backen/internal/errs"
	"github.com/dwjuston/axkan-ii-backen/internal/portfolio"
	"github.com/dwjuston/axkan-ii-backen/internal/random"
)

var (
	ErrGameFull       = fmt.Errorf("%w: game: already has two players", errs.ErrInvariant)
	ErrPileExhausted  = fmt.Errorf("%w: game: card pile exhausted", errs.ErrInvariant)
	ErrUnknownPlayer  = fmt.Errorf("%w: game: player not in this game", errs.ErrNotFound)
	ErrNoSuchPair     = fmt.Errorf("%w: game: no such offered pair", errs.ErrNotFound)
	ErrMissingField   = fmt.Errorf("%w: game: missing field", errs.ErrValidation)
	ErrPairTaken      = fmt.Errorf("%w: game: pair already taken this turn", errs.ErrValidation)
	ErrDuplicateJoin  = fmt.Errorf("%w: game: player already joined", errs.ErrValidation)
	ErrSevenRequired  = fmt.Errorf("%w: game: special collection needs a seven card", errs.ErrValidation)
	ErrSevenNotUsable = fmt.Errorf("%w: game: seven card not usable with this collection", errs.ErrValidation)
	ErrReviewEnded    = fmt.Errorf("%w: game: review already ended", errs.ErrNotYourTurn)
)

// Payload carries the action-specific fields. Unused fields are ignored.
type Payload struct {
	Name           string // JoinGame
	PairIndex      *int   // SelectPair, ColorConvert (-1 = hidden pair)
	Collection     string // RollDice during a turn; empty means regular
	SevenCardIndex *int   // RollDice (optional), ColorConvert
}

// Context is the state of one game.
type Context struct {
	rng random.Source

	phase   Phase
	players []*portfolio.Player // join order
	pile    *card.Pile

	available []card.Pair
	selected  map[string]int // player id -> index into available

	initialPrice int
	price        int
	turn         int
	first        int // seat selecting first this turn, -1 outside a turn
	lastRoll     *dice.Roll

	ready    map[string]bool
	reviewed map[string]bool
	result   *Result
}

// New returns an empty game in the Lobby phase.
func New(rng random.Source) *Context {
	return &Context{
		rng:      rng,
		phase:    Lobby,
		turn:     1,
		first:    -1,
		selected: make(map[string]int),
		ready:    make(map[string]bool),
		reviewed: make(map[string]bool),
	}
}

// Apply validates action against the legality table and the acting player,
// then applies it. A rejected action leaves the context unchanged.
func (c *Context) Apply(actor string, action Action, p Payload) error {
	h, ok := transitions[transition{c.phase, action}]
	if !ok {
		return fmt.Errorf("%w: %s during %s", errs.ErrIllegalPhaseAction, action, c.phase)
	}
	if action != JoinGame && c.player(actor) == nil {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, actor)
	}
	return h(c, actor, p)
}

// Advance runs automatic phases. Today that is TurnStart, which draws the
// offered pairs and hands the turn to the first selector.
func (c *Context) Advance() error {
	if c.phase == TurnStart {
		return c.startTurn()
	}
	return nil
}

func (c *Context) join(actor string, p Payload) error {
	name := strings.TrimSpace(p.Name)
	if actor == "" {
		return fmt.Errorf("%w: player id", ErrMissingField)
	}
	if name == "" {
		return fmt.Errorf("%w: player name", ErrMissingField)
	}
	if c.player(actor) != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateJoin, actor)
	}
	if len(c.players) >= MaxPlayers {
		return ErrGameFull
	}

	c.players = append(c.players, portfolio.NewPlayer(actor, name, len(c.players)))
	if len(c.players) == MaxPlayers {
		c.phase = GameStart
	}
	return nil
}

func (c *Context) readyToStart(actor string, _ Payload) error {
	c.ready[actor] = true
	if len(c.ready) < MaxPlayers {
		return nil
	}
	if err := c.deal(); err != nil {
		delete(c.ready, actor)
		return err
	}
	return nil
}

// deal randomizes seats, deals hidden pairs and sevens, and enters GameInit.
// It works on fresh portfolios so a failure leaves the players untouched.
func (c *Context) deal() error {
	pile := card.NewPile(c.rng)
	flip := c.rng.IntN(2)

	fresh := make([]*portfolio.Player, len(c.players))
	for i, pl := range c.players {
		fresh[i] = portfolio.NewPlayer(pl.ID, pl.Name, (i+flip)%MaxPlayers)
	}
	for seat := 0; seat < MaxPlayers; seat++ {
		pl := bySeat(fresh, seat)
		hidden, ok := pile.DrawPair()
		if !ok {
			return ErrPileExhausted
		}
		if err := pl.Portfolio.AddHiddenPair(hidden); err != nil {
			return err
		}
		for _, seven := range pile.DrawSevens() {
			if err := pl.Portfolio.AddSevenCard(seven); err != nil {
				return err
			}
		}
	}

	c.players = fresh
	c.pile = pile
	c.ready = make(map[string]bool)
	c.phase = GameInit
	return nil
}

func (c *Context) rollInitial(actor string, _ Payload) error {
	if err := c.requireSeat(actor, 0); err != nil {
		return err
	}
	if err := c.checkPile(1); err != nil {
		return err
	}
	roll, err := dice.Throw(c.rng, dice.Initial)
	if err != nil {
		return err
	}
	c.lastRoll = &roll
	c.initialPrice = dice.InitialPrice(roll)
	c.price = c.initialPrice
	c.turn = 1
	c.phase = TurnStart
	return nil
}

func (c *Context) startTurn() error {
	if c.turn > Turns {
		c.phase = FinalReview
		return nil
	}
	if err := c.checkPile(c.turn); err != nil {
		return err
	}

	offered := make([]card.Pair, 0, PairsPerTurn)
	for i := 0; i < PairsPerTurn; i++ {
		pair, _ := c.pile.DrawPair()
		offered = append(offered, pair)
	}

	c.first = FirstSelector(c.turn)
	c.available = offered
	c.selected = make(map[string]int)
	c.phase = TurnSelectFirst
	return nil
}

// checkPile fails when the pile cannot offer turn's pairs. Rolls check the
// turn they lead into before changing any state.
func (c *Context) checkPile(turn int) error {
	small, big := c.pile.Remaining()
	if small < PairsPerTurn || big < PairsPerTurn {
		return fmt.Errorf("%w: turn %d needs %d pairs, %d small and %d big left",
			ErrPileExhausted, turn, PairsPerTurn, small, big)
	}
	return nil
}

// FirstSelector is the seat choosing first on turn: seat 0 on odd turns,
// seat 1 on even turns.
func FirstSelector(turn int) int {
	if turn%2 == 1 {
		return 0
	}
	return 1
}

func (c *Context) selectFirst(actor string, p Payload) error {
	if err := c.requireSeat(actor, c.first); err != nil {
		return err
	}
	idx, err := c.offeredIndex(p)
	if err != nil {
		return err
	}
	c.selected[actor] = idx
	c.player(actor).SelectPair(c.available[idx])
	c.phase = TurnSelectSecond
	return nil
}

func (c *Context) selectSecond(actor string, p Payload) error {
	if err := c.requireSeat(actor, c.second()); err != nil {
		return err
	}
	idx, err := c.offeredIndex(p)
	if err != nil {
		return err
	}
	for id, taken := range c.selected {
		if taken == idx {
			return fmt.Errorf("%w: index %d chosen by %s", ErrPairTaken, idx, id)
		}
	}
	c.selected[actor] = idx
	c.player(actor).SelectPair(c.available[idx])
	c.phase = TurnComplete
	return nil
}

func (c *Context) offeredIndex(p Payload) (int, error) {
	if p.PairIndex == nil {
		return 0, fmt.Errorf("%w: pair_index", ErrMissingField)
	}
	idx := *p.PairIndex
	if idx < 0 || idx >= len(c.available) {
		return 0, fmt.Errorf("%w: index %d of %d", ErrNoSuchPair, idx, len(c.available))
	}
	return idx, nil
}

func (c *Context) rollTurn(actor string, p Payload) error {
	if err := c.requireSeat(actor, c.second()); err != nil {
		return err
	}

	collection := dice.Regular
	if p.Collection != "" {
		parsed, err := dice.Parse(p.Collection)
		if err != nil {
			return err
		}
		collection = parsed
	}
	if collection == dice.Initial {
		return fmt.Errorf("%w: %s", ErrSevenNotUsable, collection)
	}
	if collection.Special() && p.SevenCardIndex == nil {
		return fmt.Errorf("%w: %s", ErrSevenRequired, collection)
	}
	if !collection.Special() && p.SevenCardIndex != nil {
		return fmt.Errorf("%w: %s", ErrSevenNotUsable, collection)
	}

	roller := c.player(actor)
	if p.SevenCardIndex != nil {
		if _, err := roller.Portfolio.SevenCard(*p.SevenCardIndex); err != nil {
			return err
		}
	}
	if c.turn < Turns {
		if err := c.checkPile(c.turn + 1); err != nil {
			return err
		}
	}
	roll, err := dice.Throw(c.rng, collection)
	if err != nil {
		return err
	}
	if p.SevenCardIndex != nil {
		if _, err := roller.SpendSeven(*p.SevenCardIndex); err != nil {
			return err
		}
	}

	c.lastRoll = &roll
	c.price = dice.ApplyDelta(c.price, roll.Total)
	if c.turn < Turns {
		c.turn++
		c.phase = TurnStart
	} else {
		c.phase = FinalReview
	}
	c.first = -1
	return nil
}

func (c *Context) colorConvert(actor string, p Payload) error {
	if c.reviewed[actor] {
		return ErrReviewEnded
	}
	if p.PairIndex == nil {
		return fmt.Errorf("%w: pair_index", ErrMissingField)
	}
	if p.SevenCardIndex == nil {
		return fmt.Errorf("%w: seven_card_index", ErrMissingField)
	}
	return c.player(actor).ConvertColor(*p.PairIndex, *p.SevenCardIndex)
}

func (c *Context) endReview(actor string, _ Payload) error {
	c.reviewed[actor] = true
	if len(c.reviewed) < MaxPlayers {
		return nil
	}
	res := c.FinalResults()
	c.result = &res
	c.ready = make(map[string]bool)
	c.phase = GameEnd
	return nil
}

// readyRematch starts a new game with the same two players once both are
// ready. The old state is discarded.
func (c *Context) readyRematch(actor string, _ Payload) error {
	c.ready[actor] = true
	if len(c.ready) < MaxPlayers {
		return nil
	}

	next := New(c.rng)
	next.players = c.players
	next.phase = GameStart
	if err := next.deal(); err != nil {
		delete(c.ready, actor)
		return err
	}
	*c = *next
	return nil
}

func (c *Context) requireSeat(actor string, seat int) error {
	pl := c.player(actor)
	if pl.Seat != seat {
		return fmt.Errorf("%w: seat %d acts during %s, not seat %d", errs.ErrNotYourTurn, seat, c.phase, pl.Seat)
	}
	return nil
}

func (c *Context) second() int {
	return MaxPlayers - 1 - c.first
}

func (c *Context) player(id string) *portfolio.Player {
	for _, pl := range c.players {
		if pl.ID == id {
			return pl
		}
	}
	return nil
}

func bySeat(players []*portfolio.Player, seat int) *portfolio.Player {
	for _, pl := range players {
		if pl.Seat == seat {
			return pl
		}
	}
	return nil
}
