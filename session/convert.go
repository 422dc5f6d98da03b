package session

import (
	"matchserver/codec"
	"matchserver/store"
)

func toRankingData(r store.Ranking) codec.RankingData {
	data := codec.RankingData{
		Pseudo:      r.Pseudo,
		EloRating:   r.EloRating,
		GamesPlayed: r.GamesPlayed,
		Wins:        r.Wins,
		Losses:      r.Losses,
		Draws:       r.Draws,
	}
	if r.LastGameDate != nil {
		data.LastGameDate = r.LastGameDate.Format("2006-01-02T15:04:05Z07:00")
	}
	return data
}
