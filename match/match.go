package match

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"matchserver/codec"
	"matchserver/elo"
	"matchserver/mastermind"
	"matchserver/morpion"
	"matchserver/netutil"
	"matchserver/store"
)

// Deps are the external collaborators a match needs to finalize: the
// persistence store (nil disables persistence) and a context for its
// calls.
type Deps struct {
	Store store.RankingStore
	Ctx   context.Context
}

const mailboxDepth = 16

// NewMailbox returns a buffered mailbox channel for a participant, sized
// per the configured mailbox depth.
func NewMailbox(depth int) chan any {
	if depth <= 0 {
		depth = mailboxDepth
	}
	return make(chan any, depth)
}

// NewMorpionMatch constructs a Morpion match. player1 moves first as X.
func NewMorpionMatch(id int64, player1, player2 Participant, onFinish func(*Match)) *Match {
	symbols := map[string]morpion.Symbol{
		player1.Pseudo: morpion.X,
		player2.Pseudo: morpion.O,
	}
	m := &Match{
		ID:       id,
		GameType: Morpion,
		Player1:  player1,
		Player2:  player2,
		morpion: &morpionState{
			board:   morpion.NewBoard(),
			symbols: symbols,
			turn:    player1.Pseudo,
		},
		Actions:  make(chan Action, 16),
		Done:     make(chan struct{}),
		onFinish: onFinish,
	}
	return m
}

// NewMastermindMatch constructs a Mastermind match. code1 is player1's
// secret (which player2 must guess) and code2 is player2's secret.
func NewMastermindMatch(id int64, player1, player2 Participant, code1, code2 mastermind.Code, codeLength, maxAttempts int, onFinish func(*Match)) *Match {
	m := &Match{
		ID:       id,
		GameType: Mastermind,
		Player1:  player1,
		Player2:  player2,
		mastermind: &mastermindState{
			codes: map[string]mastermind.Code{
				player1.Pseudo: code1,
				player2.Pseudo: code2,
			},
			guesses:     map[string][]mastermind.Code{player1.Pseudo: nil, player2.Pseudo: nil},
			feedback:    map[string][]mastermind.Feedback{player1.Pseudo: nil, player2.Pseudo: nil},
			maxAttempts: maxAttempts,
			codeLength:  codeLength,
		},
		Actions:  make(chan Action, 16),
		Done:     make(chan struct{}),
		onFinish: onFinish,
	}
	return m
}

// Run is the match's actor loop: it processes actions sequentially until
// the match finishes or its Actions channel is closed. Run as a goroutine.
func (m *Match) Run(deps Deps) {
	defer close(m.Done)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("recovered panic in match actor", "tag", "match", "match_id", m.ID, "panic", r)
			if !m.IsFinished() {
				m.handleDisconnect(deps, "")
			}
		}
	}()

	switch m.GameType {
	case Morpion:
		m.sendTo(m.Player1.Pseudo, codec.StartMsg{Action: "START", Opponent: m.Player2.Pseudo, MatchID: m.ID, Symbol: m.morpion.symbols[m.Player1.Pseudo].String()})
		m.sendTo(m.Player2.Pseudo, codec.StartMsg{Action: "START", Opponent: m.Player1.Pseudo, MatchID: m.ID, Symbol: m.morpion.symbols[m.Player2.Pseudo].String()})
	case Mastermind:
		m.sendTo(m.Player1.Pseudo, codec.MastermindStartMsg{Action: "MASTERMIND_START", Opponent: m.Player2.Pseudo, MatchID: m.ID})
		m.sendTo(m.Player2.Pseudo, codec.MastermindStartMsg{Action: "MASTERMIND_START", Opponent: m.Player1.Pseudo, MatchID: m.ID})
	}

	for {
		action, ok := <-m.Actions
		if !ok || m.IsFinished() {
			return
		}
		switch action.Type {
		case ActionMove:
			m.handleMove(deps, action.Pseudo, action.Position)
		case ActionGuess:
			m.handleGuess(deps, action.Pseudo, action.Guess)
		case ActionDisconnect:
			m.handleDisconnect(deps, action.Pseudo)
			return
		}
		if m.IsFinished() {
			return
		}
	}
}

func (m *Match) sendTo(pseudo string, msg any) {
	var mailbox chan any
	switch pseudo {
	case m.Player1.Pseudo:
		mailbox = m.Player1.Mailbox
	case m.Player2.Pseudo:
		mailbox = m.Player2.Mailbox
	default:
		return
	}
	if mailbox == nil {
		return
	}
	if !netutil.SafeSend(mailbox, msg) {
		slog.Warn("dropped message, mailbox full or closed", "tag", "match", "match_id", m.ID, "pseudo", pseudo)
	}
}

// handleMove applies a Morpion move from pseudo. Out-of-turn, invalid, or
// occupied-cell moves are silently rejected (logged, not surfaced) per the
// server-side turn enforcement decided for this system.
func (m *Match) handleMove(deps Deps, pseudo string, position int) {
	if m.GameType != Morpion || m.morpion == nil {
		return
	}
	if !m.HasParticipant(pseudo) {
		return
	}
	if m.morpion.turn != pseudo {
		slog.Debug("rejected out-of-turn move", "tag", "match", "match_id", m.ID, "pseudo", pseudo)
		return
	}
	symbol := m.morpion.symbols[pseudo]
	if !m.morpion.board.Play(position, symbol) {
		slog.Debug("rejected invalid move", "tag", "match", "match_id", m.ID, "pseudo", pseudo, "position", position)
		return
	}

	opponent := m.Opponent(pseudo)
	m.journalMorpionTurn(deps, pseudo, position)
	m.sendTo(opponent.Pseudo, codec.MoveBroadcastMsg{Action: "MOVE", Position: position, Symbol: symbol.String()})

	next := morpion.Opponent(symbol)
	m.morpion.turn = m.symbolOwner(next)

	switch m.morpion.board.Winner() {
	case morpion.WinnerX:
		m.finalizeMorpion(deps, m.symbolOwner(morpion.X))
	case morpion.WinnerO:
		m.finalizeMorpion(deps, m.symbolOwner(morpion.O))
	case morpion.DrawResult:
		m.finalizeMorpion(deps, "draw")
	}
}

func (m *Match) symbolOwner(s morpion.Symbol) string {
	if m.morpion.symbols[m.Player1.Pseudo] == s {
		return m.Player1.Pseudo
	}
	return m.Player2.Pseudo
}

func (m *Match) journalMorpionTurn(deps Deps, pseudo string, position int) {
	if deps.Store == nil {
		return
	}
	if err := deps.Store.InsertTurn(deps.Ctx, m.ID, pseudo, strconv.Itoa(position), nil); err != nil {
		slog.Error("failed to journal turn", "tag", "match", "match_id", m.ID, "error", err)
	}
}

func (m *Match) finalizeMorpion(deps Deps, result string) {
	m.setFinished()
	m.Result = result
	if deps.Store != nil {
		res := result
		if err := deps.Store.UpdateMorpionMatch(deps.Ctx, m.ID, m.morpion.board.String(), true, &res); err != nil {
			slog.Error("failed to persist finished match", "tag", "match", "match_id", m.ID, "error", err)
		}
	}
	m.sendTo(m.Player1.Pseudo, codec.EndMsg{Action: "END", Result: result})
	m.sendTo(m.Player2.Pseudo, codec.EndMsg{Action: "END", Result: result})
	if m.onFinish != nil {
		m.onFinish(m)
	}
	// Morpion is not ranked: no ELO update.
}

// handleGuess applies a Mastermind guess from pseudo against the
// opponent's code.
func (m *Match) handleGuess(deps Deps, pseudo string, guess mastermind.Code) {
	if m.GameType != Mastermind || m.mastermind == nil {
		return
	}
	if !m.HasParticipant(pseudo) {
		return
	}
	if len(m.mastermind.guesses[pseudo]) >= m.mastermind.maxAttempts {
		slog.Debug("rejected guess, attempts exhausted", "tag", "match", "match_id", m.ID, "pseudo", pseudo)
		return
	}
	if m.mastermind.solvedBy == pseudo {
		slog.Debug("rejected guess, already solved, awaiting opponent", "tag", "match", "match_id", m.ID, "pseudo", pseudo)
		return
	}
	opponent := m.Opponent(pseudo)
	opponentCode := m.mastermind.codes[opponent.Pseudo]
	fb, err := mastermind.Check(opponentCode, guess)
	if err != nil {
		slog.Debug("rejected malformed guess", "tag", "match", "match_id", m.ID, "pseudo", pseudo, "error", err)
		return
	}

	m.mastermind.guesses[pseudo] = append(m.mastermind.guesses[pseudo], guess)
	m.mastermind.feedback[pseudo] = append(m.mastermind.feedback[pseudo], fb)
	guessNumber := len(m.mastermind.guesses[pseudo])

	m.journalMastermindState(deps)

	m.sendTo(pseudo, codec.MastermindFeedbackMsg{Action: "MASTERMIND_FEEDBACK", BlackPins: fb.Exact, WhitePins: fb.Misplaced, GuessNumber: guessNumber})
	m.sendTo(opponent.Pseudo, codec.MastermindOpponentGuessMsg{Action: "MASTERMIND_OPPONENT_GUESS", Guess: guess, BlackPins: fb.Exact, WhitePins: fb.Misplaced})

	m.evaluateMastermindTermination(deps, pseudo, fb, guessNumber)
}

// evaluateMastermindTermination implements the tie-break policy: the side
// that solved in fewer attempts wins, and equal attempt counts at the
// moment both have solved is a draw. A solve finalizes the match at once
// only when the opponent has already made at least as many guesses;
// otherwise it is held in mastermind.solvedBy/solvedAt until the opponent
// has taken its own attempt at the matching round, so the attempt counts
// can actually be compared.
func (m *Match) evaluateMastermindTermination(deps Deps, pseudo string, fb mastermind.Feedback, guessNumber int) {
	solved := fb.Solved(m.mastermind.codeLength)
	opponent := m.Opponent(pseudo)
	opponentGuessCount := len(m.mastermind.guesses[opponent.Pseudo])
	maxAttempts := m.mastermind.maxAttempts

	if m.mastermind.solvedBy == opponent.Pseudo {
		solvedAt := m.mastermind.solvedAt
		switch {
		case solved && guessNumber < solvedAt:
			m.finalizeMastermind(deps, pseudo)
		case solved && guessNumber == solvedAt:
			m.finalizeMastermind(deps, "draw")
		case guessNumber >= solvedAt:
			m.finalizeMastermind(deps, opponent.Pseudo)
		}
		return
	}

	switch {
	case solved && opponentGuessCount >= guessNumber:
		m.finalizeMastermind(deps, pseudo)
	case solved:
		m.mastermind.solvedBy = pseudo
		m.mastermind.solvedAt = guessNumber
	case guessNumber >= maxAttempts && opponentGuessCount >= maxAttempts:
		m.finalizeMastermind(deps, "draw")
	}
}

func (m *Match) journalMastermindState(deps Deps) {
	if deps.Store == nil {
		return
	}
	g1 := codesToStrings(m.mastermind.guesses[m.Player1.Pseudo])
	g2 := codesToStrings(m.mastermind.guesses[m.Player2.Pseudo])
	f1 := feedbackToStrings(m.mastermind.feedback[m.Player1.Pseudo])
	f2 := feedbackToStrings(m.mastermind.feedback[m.Player2.Pseudo])
	if err := deps.Store.UpdateMastermindMatch(deps.Ctx, m.ID, false, nil, g1, g2, f1, f2); err != nil {
		slog.Error("failed to journal mastermind guess", "tag", "match", "match_id", m.ID, "error", err)
	}
}

func (m *Match) finalizeMastermind(deps Deps, result string) {
	m.setFinished()
	m.Result = result

	g1 := codesToStrings(m.mastermind.guesses[m.Player1.Pseudo])
	g2 := codesToStrings(m.mastermind.guesses[m.Player2.Pseudo])
	f1 := feedbackToStrings(m.mastermind.feedback[m.Player1.Pseudo])
	f2 := feedbackToStrings(m.mastermind.feedback[m.Player2.Pseudo])
	if deps.Store != nil {
		res := result
		if err := deps.Store.UpdateMastermindMatch(deps.Ctx, m.ID, true, &res, g1, g2, f1, f2); err != nil {
			slog.Error("failed to persist finished mastermind match", "tag", "match", "match_id", m.ID, "error", err)
		}
	}

	code1 := m.mastermind.codes[m.Player1.Pseudo]
	code2 := m.mastermind.codes[m.Player2.Pseudo]
	m.sendTo(m.Player1.Pseudo, codec.MastermindEndMsg{Action: "MASTERMIND_END", Result: result, Player1Code: code1, Player2Code: code2})
	m.sendTo(m.Player2.Pseudo, codec.MastermindEndMsg{Action: "MASTERMIND_END", Result: result, Player1Code: code1, Player2Code: code2})

	m.applyRanking(deps, result)

	if m.onFinish != nil {
		m.onFinish(m)
	}
}

// applyRanking scores the match with the ELO engine and notifies both
// players, unless the match was interrupted: interrupted matches never
// touch rankings.
func (m *Match) applyRanking(deps Deps, result string) {
	if result == "interrupted" {
		return
	}
	var winnerPseudo, loserPseudo string
	isDraw := result == "draw"
	if isDraw {
		winnerPseudo, loserPseudo = m.Player1.Pseudo, m.Player2.Pseudo
	} else {
		winnerPseudo = result
		loserPseudo = m.Opponent(winnerPseudo).Pseudo
		if loserPseudo == "" {
			return
		}
	}

	winnerP := m.participantByPseudo(winnerPseudo)
	loserP := m.participantByPseudo(loserPseudo)

	var winnerNew, loserNew int
	if deps.Store != nil {
		var err error
		winnerNew, loserNew, err = deps.Store.UpdateRankingsAfterMatch(deps.Ctx, m.ID, winnerPseudo, loserPseudo, isDraw)
		if err != nil {
			slog.Error("failed to update rankings", "tag", "match", "match_id", m.ID, "error", err)
			return
		}
	} else {
		update := elo.Compute(
			elo.Player{Rating: winnerP.Rating, GamesPlayed: winnerP.GamesPlayed},
			elo.Player{Rating: loserP.Rating, GamesPlayed: loserP.GamesPlayed},
			isDraw,
		)
		winnerNew, loserNew = update.WinnerNewRating, update.LoserNewRating
	}

	m.sendTo(winnerPseudo, codec.RatingUpdateMsg{Action: "RATING_UPDATE", OldRating: winnerP.Rating, NewRating: winnerNew})
	m.sendTo(loserPseudo, codec.RatingUpdateMsg{Action: "RATING_UPDATE", OldRating: loserP.Rating, NewRating: loserNew})
}

func (m *Match) participantByPseudo(pseudo string) Participant {
	if pseudo == m.Player1.Pseudo {
		return m.Player1
	}
	return m.Player2
}

// handleDisconnect interrupts the match because pseudo's session was lost.
// It never touches rankings.
func (m *Match) handleDisconnect(deps Deps, pseudo string) {
	if m.IsFinished() {
		return
	}
	m.setFinished()
	m.Result = "interrupted"

	if deps.Store != nil {
		res := "interrupted"
		switch m.GameType {
		case Morpion:
			deps.Store.UpdateMorpionMatch(deps.Ctx, m.ID, m.morpion.board.String(), true, &res)
		case Mastermind:
			g1 := codesToStrings(m.mastermind.guesses[m.Player1.Pseudo])
			g2 := codesToStrings(m.mastermind.guesses[m.Player2.Pseudo])
			f1 := feedbackToStrings(m.mastermind.feedback[m.Player1.Pseudo])
			f2 := feedbackToStrings(m.mastermind.feedback[m.Player2.Pseudo])
			deps.Store.UpdateMastermindMatch(deps.Ctx, m.ID, true, &res, g1, g2, f1, f2)
		}
	}

	opponent := m.Opponent(pseudo)
	if opponent.Pseudo != "" {
		m.sendTo(opponent.Pseudo, codec.MatchInterruptedMsg{Action: "MATCH_INTERRUPTED", Message: "opponent disconnected"})
	}
	if m.onFinish != nil {
		m.onFinish(m)
	}
}

func codesToStrings(codes []mastermind.Code) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = strings.Join(c, "|")
	}
	return out
}

func feedbackToStrings(fbs []mastermind.Feedback) []string {
	out := make([]string, len(fbs))
	for i, fb := range fbs {
		out[i] = strconv.Itoa(fb.Exact) + "," + strconv.Itoa(fb.Misplaced)
	}
	return out
}
