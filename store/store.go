// Package store persists players, matches, turns, and ELO rankings to
// Postgres via pgx/pgxpool.
//
// The shape follows a familiar pool-wrapped-struct persistence layer: a
// pool-wrapped struct, idempotent schema bootstrap, NewStore returning
// (nil, nil) when no database URL is configured so the whole persistence
// layer stays optional throughout the call chain, and a transactional
// rating-update pattern (Begin / deferred Rollback / Commit). The ELO
// arithmetic itself lives in the elo package rather than inline, since it
// is pure and independently testable.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"matchserver/elo"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS players (
	pseudo TEXT PRIMARY KEY,
	ip TEXT NOT NULL,
	port INTEGER NOT NULL,
	join_date TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS matches (
	id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	player1 TEXT NOT NULL REFERENCES players(pseudo),
	player2 TEXT NOT NULL REFERENCES players(pseudo),
	board TEXT NOT NULL DEFAULT '',
	is_finished BOOLEAN NOT NULL DEFAULT false,
	result TEXT,
	game_type TEXT NOT NULL DEFAULT 'morpion',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS mastermind_matches (
	match_id BIGINT PRIMARY KEY REFERENCES matches(id),
	player1_code TEXT NOT NULL,
	player2_code TEXT NOT NULL,
	player1_guesses TEXT NOT NULL DEFAULT '[]',
	player2_guesses TEXT NOT NULL DEFAULT '[]',
	player1_feedback TEXT NOT NULL DEFAULT '[]',
	player2_feedback TEXT NOT NULL DEFAULT '[]',
	max_attempts INTEGER NOT NULL DEFAULT 10
);

CREATE TABLE IF NOT EXISTS turns (
	id UUID PRIMARY KEY,
	match_id BIGINT NOT NULL REFERENCES matches(id),
	player_pseudo TEXT NOT NULL,
	move TEXT NOT NULL,
	feedback TEXT,
	played_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS player_rankings (
	pseudo TEXT PRIMARY KEY REFERENCES players(pseudo),
	elo_rating INTEGER NOT NULL DEFAULT 1200,
	games_played INTEGER NOT NULL DEFAULT 0,
	wins INTEGER NOT NULL DEFAULT 0,
	losses INTEGER NOT NULL DEFAULT 0,
	draws INTEGER NOT NULL DEFAULT 0,
	last_game_date TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS ranking_history (
	id UUID PRIMARY KEY,
	match_id BIGINT NOT NULL REFERENCES matches(id),
	player_pseudo TEXT NOT NULL,
	old_rating INTEGER NOT NULL,
	new_rating INTEGER NOT NULL,
	rating_change INTEGER NOT NULL,
	match_date TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store wraps a Postgres connection pool.
type Store struct {
	pool       *pgxpool.Pool
	baseRating int
}

// NewStore connects to databaseURL and bootstraps the schema. If
// databaseURL is empty, NewStore returns (nil, nil): the caller is expected
// to treat a nil *Store as "no persistence configured" everywhere.
func NewStore(ctx context.Context, databaseURL string, baseRating int) (*Store, error) {
	if databaseURL == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: bootstrap schema: %w", err)
	}
	if baseRating == 0 {
		baseRating = 1200
	}
	return &Store{pool: pool, baseRating: baseRating}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// UpsertPlayer records a connecting player's latest address.
func (s *Store) UpsertPlayer(ctx context.Context, pseudo, ip string, port int, joinDate time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO players (pseudo, ip, port, join_date) VALUES ($1, $2, $3, $4)
		ON CONFLICT (pseudo) DO UPDATE SET ip = $2, port = $3, join_date = $4`,
		pseudo, ip, port, joinDate)
	return err
}

// InsertMorpionMatch creates a match row for a Morpion pairing and returns
// its assigned id.
func (s *Store) InsertMorpionMatch(ctx context.Context, player1, player2 string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO matches (player1, player2, board, game_type) VALUES ($1, $2, $3, 'morpion') RETURNING id`,
		player1, player2, "_________").Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: insert morpion match: %w", err)
	}
	return id, nil
}

// InsertMastermindMatch creates a match row and its mastermind-specific row
// in one transaction, returning the assigned id.
func (s *Store) InsertMastermindMatch(ctx context.Context, player1, player2 string, code1, code2 []string, maxAttempts int) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	if err := tx.QueryRow(ctx, `
		INSERT INTO matches (player1, player2, game_type) VALUES ($1, $2, 'mastermind') RETURNING id`,
		player1, player2).Scan(&id); err != nil {
		return 0, fmt.Errorf("store: insert mastermind match: %w", err)
	}

	code1JSON, _ := json.Marshal(code1)
	code2JSON, _ := json.Marshal(code2)
	if _, err := tx.Exec(ctx, `
		INSERT INTO mastermind_matches (match_id, player1_code, player2_code, max_attempts)
		VALUES ($1, $2, $3, $4)`,
		id, string(code1JSON), string(code2JSON), maxAttempts); err != nil {
		return 0, fmt.Errorf("store: insert mastermind fields: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("store: commit: %w", err)
	}
	return id, nil
}

// UpdateMorpionMatch rewrites the mutable fields of a Morpion match.
func (s *Store) UpdateMorpionMatch(ctx context.Context, matchID int64, board string, isFinished bool, result *string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE matches SET board = $2, is_finished = $3, result = $4 WHERE id = $1`,
		matchID, board, isFinished, result)
	return err
}

// UpdateMastermindMatch rewrites a Mastermind match's mutable fields.
func (s *Store) UpdateMastermindMatch(ctx context.Context, matchID int64, isFinished bool, result *string, guesses1, guesses2, feedback1, feedback2 []string) error {
	g1, _ := json.Marshal(guesses1)
	g2, _ := json.Marshal(guesses2)
	f1, _ := json.Marshal(feedback1)
	f2, _ := json.Marshal(feedback2)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE matches SET is_finished = $2, result = $3 WHERE id = $1`, matchID, isFinished, result); err != nil {
		return fmt.Errorf("store: update match: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE mastermind_matches SET player1_guesses = $2, player2_guesses = $3, player1_feedback = $4, player2_feedback = $5
		WHERE match_id = $1`, matchID, string(g1), string(g2), string(f1), string(f2)); err != nil {
		return fmt.Errorf("store: update mastermind fields: %w", err)
	}
	return tx.Commit(ctx)
}

// InsertTurn journals one move or guess.
func (s *Store) InsertTurn(ctx context.Context, matchID int64, playerPseudo, move string, feedback *string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO turns (id, match_id, player_pseudo, move, feedback) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), matchID, playerPseudo, move, feedback)
	return err
}

// Ranking is a player's rating record.
type Ranking struct {
	Pseudo       string
	EloRating    int
	GamesPlayed  int
	Wins         int
	Losses       int
	Draws        int
	LastGameDate *time.Time
}

// GetRanking returns pseudo's ranking, auto-initializing it to defaults if
// absent.
func (s *Store) GetRanking(ctx context.Context, pseudo string) (Ranking, error) {
	var r Ranking
	r.Pseudo = pseudo
	err := s.pool.QueryRow(ctx, `
		SELECT elo_rating, games_played, wins, losses, draws, last_game_date
		FROM player_rankings WHERE pseudo = $1`, pseudo).
		Scan(&r.EloRating, &r.GamesPlayed, &r.Wins, &r.Losses, &r.Draws, &r.LastGameDate)
	if err == pgx.ErrNoRows {
		r.EloRating = s.baseRating
		return r, nil
	}
	if err != nil {
		return Ranking{}, fmt.Errorf("store: get ranking: %w", err)
	}
	return r, nil
}

// UpdateRankingsAfterMatch atomically applies an ELO update for a finished
// ranked match. isDraw treats both players as drawing. It returns the new
// ratings for (winner, loser) — when isDraw, the labels only distinguish
// the two sides.
func (s *Store) UpdateRankingsAfterMatch(ctx context.Context, matchID int64, winnerPseudo, loserPseudo string, isDraw bool) (newWinnerRating, newLoserRating int, err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	winner, err := s.lockRanking(ctx, tx, winnerPseudo)
	if err != nil {
		return 0, 0, err
	}
	loser, err := s.lockRanking(ctx, tx, loserPseudo)
	if err != nil {
		return 0, 0, err
	}

	update := elo.Compute(
		elo.Player{Rating: winner.EloRating, GamesPlayed: winner.GamesPlayed},
		elo.Player{Rating: loser.EloRating, GamesPlayed: loser.GamesPlayed},
		isDraw,
	)

	now := time.Now()
	if err := s.applyRankingUpdate(ctx, tx, matchID, winnerPseudo, update.WinnerOldRating, update.WinnerNewRating, isDraw, true, now); err != nil {
		return 0, 0, err
	}
	if err := s.applyRankingUpdate(ctx, tx, matchID, loserPseudo, update.LoserOldRating, update.LoserNewRating, isDraw, false, now); err != nil {
		return 0, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("store: commit: %w", err)
	}
	slog.Info("ranking updated", "tag", "store", "match_id", matchID, "winner", winnerPseudo, "loser", loserPseudo, "draw", isDraw)
	return update.WinnerNewRating, update.LoserNewRating, nil
}

func (s *Store) lockRanking(ctx context.Context, tx pgx.Tx, pseudo string) (Ranking, error) {
	r := Ranking{Pseudo: pseudo, EloRating: s.baseRating}
	if _, err := tx.Exec(ctx, `
		INSERT INTO player_rankings (pseudo, elo_rating) VALUES ($1, $2)
		ON CONFLICT (pseudo) DO NOTHING`, pseudo, s.baseRating); err != nil {
		return Ranking{}, fmt.Errorf("store: seed ranking: %w", err)
	}
	err := tx.QueryRow(ctx, `
		SELECT elo_rating, games_played, wins, losses, draws
		FROM player_rankings WHERE pseudo = $1 FOR UPDATE`, pseudo).
		Scan(&r.EloRating, &r.GamesPlayed, &r.Wins, &r.Losses, &r.Draws)
	if err != nil {
		return Ranking{}, fmt.Errorf("store: lock ranking: %w", err)
	}
	return r, nil
}

func (s *Store) applyRankingUpdate(ctx context.Context, tx pgx.Tx, matchID int64, pseudo string, oldRating, newRating int, isDraw, isWinnerSide bool, when time.Time) error {
	winInc, lossInc, drawInc := 0, 0, 0
	switch {
	case isDraw:
		drawInc = 1
	case isWinnerSide:
		winInc = 1
	default:
		lossInc = 1
	}
	if _, err := tx.Exec(ctx, `
		UPDATE player_rankings SET elo_rating = $2, games_played = games_played + 1,
			wins = wins + $3, losses = losses + $4, draws = draws + $5, last_game_date = $6
		WHERE pseudo = $1`, pseudo, newRating, winInc, lossInc, drawInc, when); err != nil {
		return fmt.Errorf("store: update ranking: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO ranking_history (id, match_id, player_pseudo, old_rating, new_rating, rating_change, match_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New(), matchID, pseudo, oldRating, newRating, newRating-oldRating, when); err != nil {
		return fmt.Errorf("store: insert rating history: %w", err)
	}
	return nil
}

// TopPlayers returns the top `limit` players ordered by rating descending.
func (s *Store) TopPlayers(ctx context.Context, limit int) ([]Ranking, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx, `
		SELECT pseudo, elo_rating, games_played, wins, losses, draws, last_game_date
		FROM player_rankings ORDER BY elo_rating DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: top players: %w", err)
	}
	defer rows.Close()

	var out []Ranking
	for rows.Next() {
		var r Ranking
		if err := rows.Scan(&r.Pseudo, &r.EloRating, &r.GamesPlayed, &r.Wins, &r.Losses, &r.Draws, &r.LastGameDate); err != nil {
			return nil, fmt.Errorf("store: scan top players: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RankOf returns pseudo's 1-based rank by rating, or 0 if unranked.
func (s *Store) RankOf(ctx context.Context, pseudo string) (int, error) {
	var rating int
	err := s.pool.QueryRow(ctx, `SELECT elo_rating FROM player_rankings WHERE pseudo = $1`, pseudo).Scan(&rating)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("store: rank of: %w", err)
	}
	var rank int
	if err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) + 1 FROM player_rankings WHERE elo_rating > $1`, rating).Scan(&rank); err != nil {
		return 0, fmt.Errorf("store: rank of: %w", err)
	}
	return rank, nil
}

// RatingHistoryEntry is one row of a player's rating history.
type RatingHistoryEntry struct {
	MatchID      int64
	OldRating    int
	NewRating    int
	RatingChange int
	MatchDate    time.Time
}

// HistoryOf returns pseudo's most recent `limit` rating-history entries,
// newest first.
func (s *Store) HistoryOf(ctx context.Context, pseudo string, limit int) ([]RatingHistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT match_id, old_rating, new_rating, rating_change, match_date
		FROM ranking_history WHERE player_pseudo = $1 ORDER BY match_date DESC LIMIT $2`, pseudo, limit)
	if err != nil {
		return nil, fmt.Errorf("store: history of: %w", err)
	}
	defer rows.Close()

	var out []RatingHistoryEntry
	for rows.Next() {
		var e RatingHistoryEntry
		if err := rows.Scan(&e.MatchID, &e.OldRating, &e.NewRating, &e.RatingChange, &e.MatchDate); err != nil {
			return nil, fmt.Errorf("store: scan history: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
