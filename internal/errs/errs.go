// Package errs defines the error kinds the game engine reports. Packages
// wrap these with their own sentinels so callers can classify any engine
// error with errors.Is.
package errs

import "errors"

var (
	// ErrIllegalPhaseAction is returned when an action is not allowed in the
	// current phase.
	ErrIllegalPhaseAction = errors.New("illegal action for current phase")

	// ErrNotYourTurn is returned when the phase is right but the acting
	// player is not the designated actor.
	ErrNotYourTurn = errors.New("not your turn")

	// ErrValidation is returned for malformed payloads and invalid card or
	// dice compositions.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned for unknown games, players, pairs or seven cards.
	ErrNotFound = errors.New("resource not found")

	// ErrInvariant marks conditions that correct play never reaches, such
	// as an exhausted card pile. They are reported, never recovered.
	ErrInvariant = errors.New("invariant violation")
)

// Kind returns the engine error kind err wraps, or nil if it wraps none.
func Kind(err error) error {
	for _, k := range []error{ErrIllegalPhaseAction, ErrNotYourTurn, ErrValidation, ErrNotFound, ErrInvariant} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Code returns a short stable label for err's kind, used in metrics and
// API error bodies. Errors of no known kind are "internal".
func Code(err error) string {
	switch Kind(err) {
	case ErrIllegalPhaseAction:
		return "illegal_phase_action"
	case ErrNotYourTurn:
		return "not_your_turn"
	case ErrValidation:
		return "validation"
	case ErrNotFound:
		return "not_found"
	case ErrInvariant:
		return "invariant"
	}
	return "internal"
}
