package game

import (
	"fmt"

	"github.com/dwjuston/axkan-ii-backen/internal/errs"
)

// Phase is a state of the game state machine.
type Phase int

const (
	Lobby Phase = iota
	GameStart
	GameInit
	TurnStart
	TurnSelectFirst
	TurnSelectSecond
	TurnComplete
	FinalReview
	GameEnd
)

// Phases lists every phase in lifecycle order.
var Phases = [...]Phase{Lobby, GameStart, GameInit, TurnStart, TurnSelectFirst, TurnSelectSecond, TurnComplete, FinalReview, GameEnd}

var phaseNames = [...]string{
	Lobby:            "lobby",
	GameStart:        "game_start",
	GameInit:         "game_init",
	TurnStart:        "turn_start",
	TurnSelectFirst:  "turn_select_first",
	TurnSelectSecond: "turn_select_second",
	TurnComplete:     "turn_complete",
	FinalReview:      "final_review",
	GameEnd:          "game_end",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(b []byte) error {
	for i, name := range phaseNames {
		if name == string(b) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("%w: unknown phase %q", errs.ErrValidation, string(b))
}

// Action is something a player asks the engine to do.
type Action string

const (
	JoinGame     Action = "join_game"
	Ready        Action = "ready"
	RollDice     Action = "roll_dice"
	SelectPair   Action = "select_pair"
	ColorConvert Action = "color_convert"
	EndReview    Action = "end_review"
)

// Actions lists every action.
var Actions = [...]Action{JoinGame, Ready, RollDice, SelectPair, ColorConvert, EndReview}

// ParseAction validates an action name.
func ParseAction(name string) (Action, error) {
	for _, a := range Actions {
		if string(a) == name {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: unknown action %q", errs.ErrValidation, name)
}
