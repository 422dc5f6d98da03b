// Package server holds the core lock: the single mutex-guarded struct that
// owns the pseudo registry, both matchmaking queues, the stashed
// Mastermind codes, and the live match registry. It keeps shared
// registration/pairing state separate from per-match arbitration, which
// runs independently in each match's own actor goroutine once created.
package server

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"matchserver/config"
	"matchserver/mastermind"
	"matchserver/match"
	"matchserver/matcherrors"
	"matchserver/queue"
	"matchserver/store"
)

// Server is the core lock. All mutation of shared matchmaking state goes
// through it; match arbitration itself runs independently in each match's
// own actor goroutine once created.
type Server struct {
	mu sync.Mutex

	sessions map[string]chan any // pseudo -> mailbox of the live session

	morpionQueue    *queue.Queue
	mastermindQueue *queue.Queue
	mastermindCodes map[string]mastermind.Code

	registry *match.Registry

	store store.RankingStore
	cfg   *config.Config

	localMatchID int64 // fallback id source when store is nil
}

// New constructs a Server. st may be nil to disable persistence.
func New(cfg *config.Config, st store.RankingStore) *Server {
	return &Server{
		sessions:        make(map[string]chan any),
		morpionQueue:    queue.New(),
		mastermindQueue: queue.New(),
		mastermindCodes: make(map[string]mastermind.Code),
		registry:        match.NewRegistry(),
		store:           st,
		cfg:             cfg,
	}
}

// Connect registers pseudo as live, bound to mailbox. Fails if pseudo is
// already held by another session.
func (s *Server) Connect(ctx context.Context, pseudo string, mailbox chan any) error {
	if pseudo == "" {
		return matcherrors.ErrPseudoEmpty
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[pseudo]; ok {
		return matcherrors.ErrPseudoTaken
	}
	s.sessions[pseudo] = mailbox
	if s.store != nil {
		if err := s.store.UpsertPlayer(ctx, pseudo, "", 0, time.Now()); err != nil {
			slog.Error("failed to upsert player", "tag", "server", "pseudo", pseudo, "error", err)
		}
	}
	return nil
}

// Disconnect tears down everything a session owned: its queue membership,
// any stashed code, its registration, and (per the disconnect handler) any
// live match it was a side of.
func (s *Server) Disconnect(ctx context.Context, pseudo string) {
	s.mu.Lock()
	delete(s.sessions, pseudo)
	s.morpionQueue.Remove(pseudo)
	s.mastermindQueue.Remove(pseudo)
	delete(s.mastermindCodes, pseudo)
	m, ok := s.registry.FindByParticipant(pseudo)
	if ok {
		s.registry.Remove(m.ID)
	}
	s.mu.Unlock()

	if ok {
		m.Actions <- match.Action{Type: match.ActionDisconnect, Pseudo: pseudo}
	}
}

// JoinMorpion enqueues pseudo for a Morpion match and attempts to pair.
func (s *Server) JoinMorpion(ctx context.Context, pseudo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.assertJoinable(pseudo); err != nil {
		return err
	}
	s.morpionQueue.Enqueue(queue.Entry{Pseudo: pseudo})
	s.tryPairMorpion(ctx)
	return nil
}

// JoinMastermind validates code, stashes it, enqueues pseudo, and attempts
// to pair.
func (s *Server) JoinMastermind(ctx context.Context, pseudo string, code mastermind.Code) error {
	if err := mastermind.ValidateCode(code, s.cfg.CodeLength, s.cfg.Colors); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.assertJoinable(pseudo); err != nil {
		return err
	}
	s.mastermindCodes[pseudo] = code
	s.mastermindQueue.Enqueue(queue.Entry{Pseudo: pseudo})
	s.tryPairMastermind(ctx)
	return nil
}

func (s *Server) assertJoinable(pseudo string) error {
	if _, ok := s.sessions[pseudo]; !ok {
		return matcherrors.ErrNotAuthenticated
	}
	if s.morpionQueue.Contains(pseudo) || s.mastermindQueue.Contains(pseudo) {
		return matcherrors.ErrAlreadyQueued
	}
	if _, ok := s.registry.FindByParticipant(pseudo); ok {
		return matcherrors.ErrAlreadyInMatch
	}
	return nil
}

// LeaveMorpion removes pseudo from the Morpion queue, if present.
func (s *Server) LeaveMorpion(pseudo string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.morpionQueue.Remove(pseudo)
}

// LeaveMastermind removes pseudo from the Mastermind queue and discards
// its stashed code, if present.
func (s *Server) LeaveMastermind(pseudo string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := s.mastermindQueue.Remove(pseudo)
	delete(s.mastermindCodes, pseudo)
	return removed
}

func (s *Server) tryPairMorpion(ctx context.Context) {
	first, second, ok := s.morpionQueue.TryPair()
	if !ok {
		return
	}
	p1 := s.participant(ctx, first.Pseudo)
	p2 := s.participant(ctx, second.Pseudo)

	id, err := s.nextMorpionID(ctx, p1.Pseudo, p2.Pseudo)
	if err != nil {
		slog.Error("failed to allocate morpion match id", "tag", "server", "error", err)
		return
	}

	m := match.NewMorpionMatch(id, p1, p2, s.onMatchFinish)
	s.registry.Add(m)
	go m.Run(match.Deps{Store: s.store, Ctx: ctx})
}

func (s *Server) tryPairMastermind(ctx context.Context) {
	first, second, ok := s.mastermindQueue.TryPair()
	if !ok {
		return
	}
	p1 := s.participant(ctx, first.Pseudo)
	p2 := s.participant(ctx, second.Pseudo)
	code1 := s.mastermindCodes[p1.Pseudo]
	code2 := s.mastermindCodes[p2.Pseudo]
	delete(s.mastermindCodes, p1.Pseudo)
	delete(s.mastermindCodes, p2.Pseudo)

	id, err := s.nextMastermindID(ctx, p1.Pseudo, p2.Pseudo, code1, code2)
	if err != nil {
		slog.Error("failed to allocate mastermind match id", "tag", "server", "error", err)
		return
	}

	m := match.NewMastermindMatch(id, p1, p2, code1, code2, s.cfg.CodeLength, s.cfg.MaxAttempts, s.onMatchFinish)
	s.registry.Add(m)
	go m.Run(match.Deps{Store: s.store, Ctx: ctx})
}

func (s *Server) nextMorpionID(ctx context.Context, p1, p2 string) (int64, error) {
	if s.store == nil {
		return atomic.AddInt64(&s.localMatchID, 1), nil
	}
	return s.store.InsertMorpionMatch(ctx, p1, p2)
}

func (s *Server) nextMastermindID(ctx context.Context, p1, p2 string, code1, code2 mastermind.Code) (int64, error) {
	if s.store == nil {
		return atomic.AddInt64(&s.localMatchID, 1), nil
	}
	return s.store.InsertMastermindMatch(ctx, p1, p2, code1, code2, s.cfg.MaxAttempts)
}

func (s *Server) participant(ctx context.Context, pseudo string) match.Participant {
	mailbox := s.sessions[pseudo]
	rating, games := s.cfg.BaseRating, 0
	if s.store != nil {
		if r, err := s.store.GetRanking(ctx, pseudo); err == nil {
			rating, games = r.EloRating, r.GamesPlayed
		}
	}
	return match.Participant{Pseudo: pseudo, Mailbox: mailbox, Rating: rating, GamesPlayed: games}
}

// onMatchFinish evicts a finished match from the registry. Called from the
// match's own actor goroutine.
func (s *Server) onMatchFinish(m *match.Match) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry.Remove(m.ID)
}

// SubmitMove validates and forwards a Morpion move to the owning match's
// actor.
func (s *Server) SubmitMove(pseudo string, matchID int64, position int) error {
	m, err := s.liveParticipantMatch(pseudo, matchID, match.Morpion)
	if err != nil {
		return err
	}
	m.Actions <- match.Action{Type: match.ActionMove, Pseudo: pseudo, Position: position}
	return nil
}

// SubmitGuess validates and forwards a Mastermind guess to the owning
// match's actor.
func (s *Server) SubmitGuess(pseudo string, matchID int64, guess mastermind.Code) error {
	m, err := s.liveParticipantMatch(pseudo, matchID, match.Mastermind)
	if err != nil {
		return err
	}
	m.Actions <- match.Action{Type: match.ActionGuess, Pseudo: pseudo, Guess: guess}
	return nil
}

func (s *Server) liveParticipantMatch(pseudo string, matchID int64, wantType match.GameType) (*match.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.registry.Get(matchID)
	if !ok {
		return nil, matcherrors.ErrMatchNotFound
	}
	if !m.HasParticipant(pseudo) {
		return nil, matcherrors.ErrNotParticipant
	}
	if m.GameType != wantType {
		return nil, matcherrors.ErrWrongGameType
	}
	if m.IsFinished() {
		return nil, matcherrors.ErrMatchFinished
	}
	return m, nil
}

// GetRanking returns pseudo's ranking record, defaulting if unranked.
func (s *Server) GetRanking(ctx context.Context, pseudo string) (store.Ranking, error) {
	if s.store == nil {
		return store.Ranking{Pseudo: pseudo, EloRating: s.cfg.BaseRating}, nil
	}
	return s.store.GetRanking(ctx, pseudo)
}

// GetRank returns pseudo's 1-based leaderboard rank, or 0 if unranked or
// persistence is disabled.
func (s *Server) GetRank(ctx context.Context, pseudo string) (int, error) {
	if s.store == nil {
		return 0, nil
	}
	return s.store.RankOf(ctx, pseudo)
}

// GetTopPlayers returns the top-ranked players, or an empty slice if
// persistence is disabled.
func (s *Server) GetTopPlayers(ctx context.Context, limit int) ([]store.Ranking, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.TopPlayers(ctx, limit)
}

// GetHistory returns pseudo's rating-change history, newest first.
func (s *Server) GetHistory(ctx context.Context, pseudo string, limit int) ([]store.RatingHistoryEntry, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.HistoryOf(ctx, pseudo, limit)
}
