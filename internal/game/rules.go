package game

// Game constants.
const (
	MaxPlayers      = 2
	Turns           = 7
	PairsPerTurn    = 3
	SevensPerPlayer = 2
)

// handler applies one legal action. It must validate everything before it
// changes any state. Handlers must not refer to transitions.
type handler func(c *Context, actor string, p Payload) error

type transition struct {
	phase  Phase
	action Action
}

// transitions is the phase×action legality table. Any pair not listed is
// rejected with ErrIllegalPhaseAction. TurnStart has no entries: it is
// left by Advance, never by a player action.
var transitions = map[transition]handler{
	{Lobby, JoinGame}:              (*Context).join,
	{GameStart, Ready}:             (*Context).readyToStart,
	{GameInit, RollDice}:           (*Context).rollInitial,
	{TurnSelectFirst, SelectPair}:  (*Context).selectFirst,
	{TurnSelectSecond, SelectPair}: (*Context).selectSecond,
	{TurnComplete, RollDice}:       (*Context).rollTurn,
	{FinalReview, ColorConvert}:    (*Context).colorConvert,
	{FinalReview, EndReview}:       (*Context).endReview,
	{GameEnd, Ready}:               (*Context).readyRematch,
}

// legal reports whether action may be attempted in phase.
func legal(phase Phase, action Action) bool {
	_, ok := transitions[transition{phase, action}]
	return ok
}
