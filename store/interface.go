package store

import (
	"context"
	"time"
)

// RankingStore is the persistence surface the match and session packages
// depend on. *Store implements it. A nil RankingStore value means
// persistence is disabled; callers check the interface for nil before use.
type RankingStore interface {
	UpsertPlayer(ctx context.Context, pseudo, ip string, port int, joinDate time.Time) error
	InsertMorpionMatch(ctx context.Context, player1, player2 string) (int64, error)
	InsertMastermindMatch(ctx context.Context, player1, player2 string, code1, code2 []string, maxAttempts int) (int64, error)
	UpdateMorpionMatch(ctx context.Context, matchID int64, board string, isFinished bool, result *string) error
	UpdateMastermindMatch(ctx context.Context, matchID int64, isFinished bool, result *string, guesses1, guesses2, feedback1, feedback2 []string) error
	InsertTurn(ctx context.Context, matchID int64, playerPseudo, move string, feedback *string) error
	GetRanking(ctx context.Context, pseudo string) (Ranking, error)
	UpdateRankingsAfterMatch(ctx context.Context, matchID int64, winnerPseudo, loserPseudo string, isDraw bool) (int, int, error)
	TopPlayers(ctx context.Context, limit int) ([]Ranking, error)
	RankOf(ctx context.Context, pseudo string) (int, error)
	HistoryOf(ctx context.Context, pseudo string, limit int) ([]RatingHistoryEntry, error)
	Close()
}

var _ RankingStore = (*Store)(nil)
