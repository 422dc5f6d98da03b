// Package session runs one handler per accepted TCP connection: a reader
// goroutine that decodes frames and dispatches them into the server's core
// lock, and a dedicated writer goroutine draining a per-session mailbox, so
// no two goroutines ever write the same socket concurrently. The split
// generalizes the Send-channel/WritePump/ReadPump pattern used for
// websocket connections onto a raw net.Conn.
package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"

	"matchserver/codec"
	"matchserver/mastermind"
	"matchserver/matcherrors"
	"matchserver/netutil"
	"matchserver/server"
)

const defaultMailboxDepth = 32

// Session is the per-connection handler state.
type Session struct {
	conn   net.Conn
	reader *codec.Reader
	writer *codec.Writer
	srv    *server.Server

	pseudo  string
	mailbox chan any
}

// New wraps conn for dispatch against srv. maxLine bounds the wire codec's
// line buffer; mailboxDepth sizes the outbound buffer (0 uses a default).
func New(conn net.Conn, srv *server.Server, maxLine, mailboxDepth int) *Session {
	if mailboxDepth <= 0 {
		mailboxDepth = defaultMailboxDepth
	}
	return &Session{
		conn:    conn,
		reader:  codec.NewReader(conn, maxLine),
		writer:  codec.NewWriter(conn),
		srv:     srv,
		mailbox: make(chan any, mailboxDepth),
	}
}

// Serve runs the session to completion: it starts the writer goroutine,
// reads and dispatches frames until the connection closes or ctx is
// cancelled, then tears down registration state. Blocks until done.
func (s *Session) Serve(ctx context.Context) {
	done := make(chan struct{})
	go s.writePump(done)
	go func() {
		select {
		case <-ctx.Done():
			s.conn.Close()
		case <-done:
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("recovered panic in session", "tag", "session", "pseudo", s.pseudo, "panic", r)
		}
		close(done)
		s.conn.Close()
		if s.pseudo != "" {
			s.srv.Disconnect(ctx, s.pseudo)
		}
	}()

	for {
		envelope, err := s.reader.ReadEnvelope()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Debug("session read error", "tag", "session", "pseudo", s.pseudo, "error", err)
			}
			return
		}
		s.dispatch(ctx, envelope)
	}
}

func (s *Session) writePump(done chan struct{}) {
	for {
		select {
		case msg, ok := <-s.mailbox:
			if !ok {
				return
			}
			if err := s.writer.WriteMessage(msg); err != nil {
				slog.Debug("session write error", "tag", "session", "pseudo", s.pseudo, "error", err)
				return
			}
		case <-done:
			return
		}
	}
}

func (s *Session) send(msg any) {
	if !netutil.SafeSend(s.mailbox, msg) {
		slog.Warn("dropped outbound message, mailbox full or closed", "tag", "session", "pseudo", s.pseudo)
	}
}

func (s *Session) dispatch(ctx context.Context, env codec.Envelope) {
	if s.pseudo == "" && env.Action != "CONNECT" {
		slog.Debug("dropped action before authentication", "tag", "session", "action", env.Action)
		return
	}
	switch env.Action {
	case "CONNECT":
		s.handleConnect(ctx, env)
	case "JOIN":
		s.handleJoin(ctx, env)
	case "JOIN_MASTERMIND":
		s.handleJoinMastermind(ctx, env)
	case "LEAVE":
		s.handleLeave(env)
	case "LEAVE_MASTERMIND":
		s.handleLeaveMastermind(env)
	case "MOVE":
		s.handleMove(env)
	case "MASTERMIND_GUESS":
		s.handleGuess(env)
	case "GET_PLAYER_RANKING":
		s.handleGetRanking(ctx, env)
	case "GET_PLAYER_RANK":
		s.handleGetRank(ctx, env)
	case "GET_TOP_PLAYERS":
		s.handleGetTopPlayers(ctx)
	case "GET_PLAYER_HISTORY":
		s.handleGetHistory(ctx, env)
	default:
		slog.Debug("dropped unknown action", "tag", "session", "action", env.Action)
	}
}

// pseudoMatches rejects messages whose pseudo field doesn't match the
// session's own authenticated identity, so a client can never act on
// behalf of another.
func (s *Session) pseudoMatches(pseudo string) bool {
	return pseudo == "" || pseudo == s.pseudo
}

func (s *Session) handleConnect(ctx context.Context, env codec.Envelope) {
	if s.pseudo != "" {
		slog.Debug("dropped CONNECT, already authenticated", "tag", "session", "pseudo", s.pseudo)
		return
	}
	var msg codec.ConnectMsg
	if err := env.Decode(&msg); err != nil {
		slog.Debug("dropped malformed CONNECT", "tag", "session")
		return
	}
	if err := s.srv.Connect(ctx, msg.Pseudo, s.mailbox); err != nil {
		s.send(codec.ConnectReplyMsg{Action: "CONNECT", Status: "ERROR", Message: connectErrorMessage(err)})
		return
	}
	s.pseudo = msg.Pseudo
	s.send(codec.ConnectReplyMsg{Action: "CONNECT", Status: "OK"})
}

func connectErrorMessage(err error) string {
	if errors.Is(err, matcherrors.ErrPseudoTaken) {
		return "Pseudo déjà pris."
	}
	return err.Error()
}

func (s *Session) handleJoin(ctx context.Context, env codec.Envelope) {
	var msg codec.JoinMsg
	if err := env.Decode(&msg); err != nil || !s.pseudoMatches(msg.Pseudo) {
		return
	}
	if err := s.srv.JoinMorpion(ctx, s.pseudo); err != nil {
		slog.Debug("rejected JOIN", "tag", "session", "pseudo", s.pseudo, "error", err)
	}
}

func (s *Session) handleJoinMastermind(ctx context.Context, env codec.Envelope) {
	var msg codec.JoinMastermindMsg
	if err := env.Decode(&msg); err != nil || !s.pseudoMatches(msg.Pseudo) {
		return
	}
	if err := s.srv.JoinMastermind(ctx, s.pseudo, mastermind.Code(msg.Code)); err != nil {
		slog.Debug("rejected JOIN_MASTERMIND", "tag", "session", "pseudo", s.pseudo, "error", err)
	}
}

func (s *Session) handleLeave(env codec.Envelope) {
	var msg codec.LeaveMsg
	if err := env.Decode(&msg); err != nil || !s.pseudoMatches(msg.Pseudo) {
		return
	}
	if s.srv.LeaveMorpion(s.pseudo) {
		s.send(codec.LeftQueueMsg{Action: "LEFT_QUEUE"})
	}
}

func (s *Session) handleLeaveMastermind(env codec.Envelope) {
	var msg codec.LeaveMsg
	if err := env.Decode(&msg); err != nil || !s.pseudoMatches(msg.Pseudo) {
		return
	}
	if s.srv.LeaveMastermind(s.pseudo) {
		s.send(codec.LeftQueueMsg{Action: "LEFT_QUEUE"})
	}
}

func (s *Session) handleMove(env codec.Envelope) {
	var msg codec.MoveMsg
	if err := env.Decode(&msg); err != nil || !s.pseudoMatches(msg.Pseudo) {
		return
	}
	if err := s.srv.SubmitMove(s.pseudo, msg.MatchID, msg.Position); err != nil {
		slog.Debug("rejected MOVE", "tag", "session", "pseudo", s.pseudo, "error", err)
	}
}

func (s *Session) handleGuess(env codec.Envelope) {
	var msg codec.MastermindGuessMsg
	if err := env.Decode(&msg); err != nil || !s.pseudoMatches(msg.Pseudo) {
		return
	}
	if err := s.srv.SubmitGuess(s.pseudo, msg.MatchID, mastermind.Code(msg.Guess)); err != nil {
		slog.Debug("rejected MASTERMIND_GUESS", "tag", "session", "pseudo", s.pseudo, "error", err)
	}
}

func (s *Session) handleGetRanking(ctx context.Context, env codec.Envelope) {
	var msg codec.PlayerQueryMsg
	pseudo := s.pseudo
	if env.Decode(&msg) == nil && msg.Pseudo != "" {
		pseudo = msg.Pseudo
	}
	r, err := s.srv.GetRanking(ctx, pseudo)
	if err != nil {
		slog.Debug("failed to fetch ranking", "tag", "session", "pseudo", pseudo, "error", err)
		return
	}
	s.send(codec.PlayerRankingMsg{Action: "PLAYER_RANKING", RankingData: toRankingData(r)})
}

func (s *Session) handleGetRank(ctx context.Context, env codec.Envelope) {
	var msg codec.PlayerQueryMsg
	pseudo := s.pseudo
	if env.Decode(&msg) == nil && msg.Pseudo != "" {
		pseudo = msg.Pseudo
	}
	rank, err := s.srv.GetRank(ctx, pseudo)
	if err != nil {
		slog.Debug("failed to fetch rank", "tag", "session", "pseudo", pseudo, "error", err)
		return
	}
	s.send(codec.PlayerRankMsg{Action: "PLAYER_RANK", Rank: rank})
}

func (s *Session) handleGetTopPlayers(ctx context.Context) {
	const defaultTopN = 10
	players, err := s.srv.GetTopPlayers(ctx, defaultTopN)
	if err != nil {
		slog.Debug("failed to fetch leaderboard", "tag", "session", "error", err)
		return
	}
	out := make([]codec.RankingData, len(players))
	for i, p := range players {
		out[i] = toRankingData(p)
	}
	s.send(codec.TopPlayersMsg{Action: "TOP_PLAYERS", Players: out})
}

func (s *Session) handleGetHistory(ctx context.Context, env codec.Envelope) {
	var msg codec.PlayerQueryMsg
	pseudo := s.pseudo
	if env.Decode(&msg) == nil && msg.Pseudo != "" {
		pseudo = msg.Pseudo
	}
	const defaultHistoryN = 20
	entries, err := s.srv.GetHistory(ctx, pseudo, defaultHistoryN)
	if err != nil {
		slog.Debug("failed to fetch history", "tag", "session", "pseudo", pseudo, "error", err)
		return
	}
	out := make([]codec.HistoryEntry, len(entries))
	for i, e := range entries {
		out[i] = codec.HistoryEntry{
			MatchID:      e.MatchID,
			OldRating:    e.OldRating,
			NewRating:    e.NewRating,
			RatingChange: e.RatingChange,
			MatchDate:    e.MatchDate.Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	s.send(codec.PlayerHistoryMsg{Action: "PLAYER_HISTORY", History: out})
}
