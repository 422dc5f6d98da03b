// Package elo computes ELO rating updates for ranked Mastermind matches.
//
// The expected-score formula and the tiered K-factor are ported from the
// original project's mastermind/elo.py rather than the simpler fixed-K=32
// scheme used elsewhere, because this system's K depends on each player's
// own rating and games played.
package elo

import "math"

// Outcome is one player's result in a finished match, from that player's
// point of view.
type Outcome float64

const (
	Loss Outcome = 0.0
	Draw Outcome = 0.5
	Win  Outcome = 1.0
)

// Player is the rating state of one participant immediately before a match
// is scored.
type Player struct {
	Rating      int
	GamesPlayed int
}

// KFactor returns the K-factor used for this player's next rating update.
// Newer players (fewer than 10 games) move faster; once a player crosses
// 2000 rating, updates slow further.
func KFactor(p Player) float64 {
	if p.GamesPlayed < 10 {
		return 40
	}
	if p.Rating < 2000 {
		return 32
	}
	return 24
}

// ExpectedScore returns the probability that a player rated `rating` beats
// an opponent rated `opponentRating`.
func ExpectedScore(rating, opponentRating int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(opponentRating-rating)/400.0))
}

// NewRating returns the updated rating for a player after a match, given
// their pre-match state, their opponent's pre-match rating, and their
// outcome.
func NewRating(p Player, opponentRating int, outcome Outcome) int {
	k := KFactor(p)
	expected := ExpectedScore(p.Rating, opponentRating)
	delta := k * (float64(outcome) - expected)
	return p.Rating + int(math.Round(delta))
}

// Update is the result of scoring one ranked match for both participants.
type Update struct {
	WinnerOldRating, WinnerNewRating int
	LoserOldRating, LoserNewRating  int
}

// Compute scores a finished ranked match. When isDraw is true the "winner"
// and "loser" labels only distinguish the two sides; both are scored as a
// draw.
func Compute(winner, loser Player, isDraw bool) Update {
	winnerOutcome, loserOutcome := Win, Loss
	if isDraw {
		winnerOutcome, loserOutcome = Draw, Draw
	}
	return Update{
		WinnerOldRating: winner.Rating,
		WinnerNewRating: NewRating(winner, loser.Rating, winnerOutcome),
		LoserOldRating:  loser.Rating,
		LoserNewRating:  NewRating(loser, winner.Rating, loserOutcome),
	}
}
