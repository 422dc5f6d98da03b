// Package matcherrors collects sentinel errors shared across the queue,
// match, and session packages, so none of them need to import another just
// to check an error value.
package matcherrors

import "errors"

var (
	ErrPseudoTaken        = errors.New("pseudo already connected")
	ErrPseudoEmpty        = errors.New("pseudo must not be empty")
	ErrNotAuthenticated   = errors.New("session is not authenticated")
	ErrAlreadyQueued      = errors.New("player already in a queue")
	ErrNotQueued          = errors.New("player is not in that queue")
	ErrAlreadyInMatch     = errors.New("player already in a match")
	ErrMatchNotFound      = errors.New("match not found")
	ErrNotParticipant     = errors.New("session is not a participant in this match")
	ErrMatchFinished      = errors.New("match is already finished")
	ErrNotYourTurn        = errors.New("not this player's turn")
	ErrInvalidMove        = errors.New("invalid move")
	ErrInvalidCode        = errors.New("invalid code")
	ErrAttemptsExhausted  = errors.New("no attempts remaining")
	ErrWrongGameType      = errors.New("action does not match match game type")
	ErrLineTooLong        = errors.New("frame exceeds maximum line length")
)
