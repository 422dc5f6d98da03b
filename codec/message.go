// Package codec frames and parses the newline-delimited JSON messages
// exchanged between sessions and clients.
//
// This replaces the original project's fixed 1 KiB recv() call (which
// implicitly assumes a message never spans more than one read and never
// arrives split across two) with a buffered, newline-delimited scan that
// tolerates partial reads and rejects lines past a configured bound. The
// envelope shape — an action tag plus a deferred raw payload — generalizes
// the inbound-envelope pattern used for websocket text frames onto raw
// newline-terminated frames.
package codec

import "encoding/json"

// Envelope is the outer shape of every message: an action tag, and the
// rest of the fields deferred as raw JSON so the dispatcher can decode
// them into the right concrete type once Action is known.
type Envelope struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"-"`
}

// UnmarshalJSON reads the action tag and keeps the whole object as Payload:
// a message's fields are flattened into the same JSON object as the action
// rather than nested under it.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var head struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	e.Action = head.Action
	e.Payload = append(json.RawMessage(nil), data...)
	return nil
}

// Decode unmarshals the envelope's full payload into v.
func (e *Envelope) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// Wire message shapes, client -> server.

type ConnectMsg struct {
	Action string `json:"action"`
	Pseudo string `json:"pseudo"`
}

type JoinMsg struct {
	Action string `json:"action"`
	Pseudo string `json:"pseudo"`
}

type JoinMastermindMsg struct {
	Action string   `json:"action"`
	Pseudo string   `json:"pseudo"`
	Code   []string `json:"code"`
}

type LeaveMsg struct {
	Action string `json:"action"`
	Pseudo string `json:"pseudo"`
}

type MoveMsg struct {
	Action   string `json:"action"`
	Pseudo   string `json:"pseudo"`
	MatchID  int64  `json:"match_id"`
	Position int    `json:"position"`
}

type MastermindGuessMsg struct {
	Action  string   `json:"action"`
	Pseudo  string   `json:"pseudo"`
	MatchID int64    `json:"match_id"`
	Guess   []string `json:"guess"`
}

type PlayerQueryMsg struct {
	Action string `json:"action"`
	Pseudo string `json:"pseudo"`
}

// Wire message shapes, server -> client.

type ConnectReplyMsg struct {
	Action  string `json:"action"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type StartMsg struct {
	Action   string `json:"action"`
	Opponent string `json:"opponent"`
	MatchID  int64  `json:"match_id"`
	Symbol   string `json:"symbol"`
}

type MoveBroadcastMsg struct {
	Action   string `json:"action"`
	Position int    `json:"position"`
	Symbol   string `json:"symbol"`
}

type EndMsg struct {
	Action string `json:"action"`
	Result string `json:"result"`
}

type LeftQueueMsg struct {
	Action string `json:"action"`
}

type MatchInterruptedMsg struct {
	Action  string `json:"action"`
	Message string `json:"message"`
}

type MastermindStartMsg struct {
	Action   string `json:"action"`
	Opponent string `json:"opponent"`
	MatchID  int64  `json:"match_id"`
}

type MastermindFeedbackMsg struct {
	Action      string `json:"action"`
	BlackPins   int    `json:"black_pins"`
	WhitePins   int    `json:"white_pins"`
	GuessNumber int    `json:"guess_number"`
}

type MastermindOpponentGuessMsg struct {
	Action    string   `json:"action"`
	Guess     []string `json:"guess"`
	BlackPins int      `json:"black_pins"`
	WhitePins int      `json:"white_pins"`
}

type MastermindEndMsg struct {
	Action       string   `json:"action"`
	Result       string   `json:"result"`
	Player1Code  []string `json:"player1_code"`
	Player2Code  []string `json:"player2_code"`
}

type RatingUpdateMsg struct {
	Action    string `json:"action"`
	OldRating int    `json:"old_rating"`
	NewRating int    `json:"new_rating"`
}

type RankingData struct {
	Pseudo       string `json:"pseudo"`
	EloRating    int    `json:"elo_rating"`
	GamesPlayed  int    `json:"games_played"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
	Draws        int    `json:"draws"`
	LastGameDate string `json:"last_game_date,omitempty"`
}

type PlayerRankingMsg struct {
	Action      string      `json:"action"`
	RankingData RankingData `json:"ranking_data"`
}

type PlayerRankMsg struct {
	Action string `json:"action"`
	Rank   int    `json:"rank"`
}

type TopPlayersMsg struct {
	Action  string        `json:"action"`
	Players []RankingData `json:"players"`
}

type HistoryEntry struct {
	MatchID      int64  `json:"match_id"`
	OldRating    int    `json:"old_rating"`
	NewRating    int    `json:"new_rating"`
	RatingChange int    `json:"rating_change"`
	MatchDate    string `json:"match_date"`
}

type PlayerHistoryMsg struct {
	Action  string         `json:"action"`
	History []HistoryEntry `json:"history"`
}
