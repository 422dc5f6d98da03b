// Package match implements the live match registry and per-match
// arbitrator.
//
// The runtime shape — a buffered Actions channel drained by one goroutine
// per live entity — follows the actor-loop pattern used elsewhere in this
// codebase for per-match state machines. The tagged-variant Match shape
// itself and the Mastermind tie-break rule are this system's own
// resolution of the original's inheritance-based Match/MastermindMatch
// dataclasses.
package match

import (
	"sync/atomic"

	"matchserver/mastermind"
	"matchserver/morpion"
)

// GameType discriminates the two arms of Match.
type GameType int

const (
	Morpion GameType = iota
	Mastermind
)

func (g GameType) String() string {
	if g == Mastermind {
		return "mastermind"
	}
	return "morpion"
}

// Participant is one side of a match: its pseudo and the mailbox through
// which the arbitrator delivers outbound messages (drained by that
// session's writer goroutine).
type Participant struct {
	Pseudo   string
	Mailbox  chan any
	Rating   int // rating at match start, used for the ELO update on finish
	GamesPlayed int
}

// ActionType enumerates the kinds of actions fed into a match's Actions
// channel.
type ActionType int

const (
	ActionMove ActionType = iota
	ActionGuess
	ActionDisconnect
)

// Action is one unit of work processed serially by a match's Run loop.
type Action struct {
	Type     ActionType
	Pseudo   string
	Position int           // ActionMove
	Guess    mastermind.Code // ActionGuess
}

// morpionState holds the Morpion-specific match fields.
type morpionState struct {
	board   *morpion.Board
	symbols map[string]morpion.Symbol // pseudo -> assigned symbol
	turn    string                    // pseudo whose move is next
}

// mastermindState holds the Mastermind-specific match fields.
type mastermindState struct {
	codes       map[string]mastermind.Code // pseudo -> opponent must guess this
	guesses     map[string][]mastermind.Code
	feedback    map[string][]mastermind.Feedback
	maxAttempts int
	codeLength  int

	// solvedBy/solvedAt hold the first side to solve its opponent's code
	// and the attempt number it solved on, pending the opponent's matching
	// attempt so the tie-break can compare attempt counts before the match
	// is finalized. Zero value means no pending solver.
	solvedBy string
	solvedAt int
}

// Match is a tagged variant: exactly one of morpion/mastermind is non-nil,
// selected by GameType.
type Match struct {
	ID       int64
	GameType GameType
	Player1  Participant
	Player2  Participant
	Result   string // pseudo of the winner, "draw", or "interrupted"

	finished atomic.Bool // read by server.go under its own lock, written by Run's goroutine

	morpion    *morpionState
	mastermind *mastermindState

	Actions chan Action
	Done    chan struct{}

	onFinish func(*Match)
}

// IsFinished reports whether the match has been finalized. Safe to call
// concurrently with the match's own actor goroutine.
func (m *Match) IsFinished() bool {
	return m.finished.Load()
}

func (m *Match) setFinished() {
	m.finished.Store(true)
}

// Opponent returns the participant on the other side of pseudo, or the
// zero Participant if pseudo is not in this match.
func (m *Match) Opponent(pseudo string) Participant {
	switch pseudo {
	case m.Player1.Pseudo:
		return m.Player2
	case m.Player2.Pseudo:
		return m.Player1
	default:
		return Participant{}
	}
}

// HasParticipant reports whether pseudo is a side of this match.
func (m *Match) HasParticipant(pseudo string) bool {
	return pseudo == m.Player1.Pseudo || pseudo == m.Player2.Pseudo
}
