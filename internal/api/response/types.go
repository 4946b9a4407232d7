package response

import (
	"time"

	"github.com/mcoot/nethang/internal/model"
)

// Health is the health check response
type Health struct {
	Status string `json:"status"`
}

// Player represents a connected player in API responses
type Player struct {
	Nickname string    `json:"nickname"`
	Address  string    `json:"address"`
	Score    int       `json:"score"`
	JoinedAt time.Time `json:"joined_at"`
}

// PlayerFromModel converts a model.PlayerStatus
func PlayerFromModel(p model.PlayerStatus) Player {
	return Player{
		Nickname: p.Nickname,
		Address:  p.Address,
		Score:    p.Score,
		JoinedAt: p.JoinedAt,
	}
}

// Status is the live server state
type Status struct {
	GameActive bool     `json:"game_active"`
	GameID     *string  `json:"game_id"`
	Countdown  int      `json:"countdown"`
	Players    []Player `json:"players"`
	Denylist   []string `json:"denylist"`
}

// StatusFromModel converts model.ServerStatus
func StatusFromModel(s model.ServerStatus) Status {
	players := make([]Player, len(s.Players))
	for i, p := range s.Players {
		players[i] = PlayerFromModel(p)
	}
	var gameID *string
	if s.GameID != "" {
		id := string(s.GameID)
		gameID = &id
	}
	denylist := s.Denylist
	if denylist == nil {
		denylist = []string{}
	}
	return Status{
		GameActive: s.GameActive,
		GameID:     gameID,
		Countdown:  s.Countdown,
		Players:    players,
		Denylist:   denylist,
	}
}

// Round represents one finished round
type Round struct {
	Index   int    `json:"index"`
	Hanger  string `json:"hanger"`
	Word    string `json:"word"`
	Outcome string `json:"outcome"`
	Fails   int    `json:"fails"`
	Turns   int    `json:"turns"`
}

// GameSummary represents a completed game
type GameSummary struct {
	ID          string         `json:"id"`
	Mode        string         `json:"mode"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt time.Time      `json:"completed_at"`
	Rounds      []Round        `json:"rounds"`
	FinalScores map[string]int `json:"final_scores"`
	Winner      *string        `json:"winner"`
	EndReason   string         `json:"end_reason"`
}

// GameSummaryFromModel converts model.GameSummary
func GameSummaryFromModel(g *model.GameSummary) GameSummary {
	rounds := make([]Round, len(g.Rounds))
	for i, r := range g.Rounds {
		rounds[i] = Round{
			Index:   r.Index,
			Hanger:  r.Hanger,
			Word:    r.Word,
			Outcome: string(r.Outcome),
			Fails:   r.Fails,
			Turns:   r.Turns,
		}
	}
	var winner *string
	if g.Winner != "" {
		w := g.Winner
		winner = &w
	}
	scores := g.FinalScores
	if scores == nil {
		scores = map[string]int{}
	}
	return GameSummary{
		ID:          string(g.ID),
		Mode:        string(g.Mode),
		StartedAt:   g.StartedAt,
		CompletedAt: g.CompletedAt,
		Rounds:      rounds,
		FinalScores: scores,
		Winner:      winner,
		EndReason:   g.EndReason,
	}
}

// GameList is the response for the game history endpoint
type GameList struct {
	Games []GameSummary `json:"games"`
}

// LeaderboardEntry is one ranked player
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	Nickname string `json:"nickname"`
	Score    int    `json:"score"`
}

// Leaderboard is the response for the leaderboard endpoint
type Leaderboard struct {
	Entries []LeaderboardEntry `json:"entries"`
}

// LeaderboardFromModel ranks score entries in order
func LeaderboardFromModel(entries []model.ScoreEntry) Leaderboard {
	ranked := make([]LeaderboardEntry, len(entries))
	for i, e := range entries {
		ranked[i] = LeaderboardEntry{Rank: i + 1, Nickname: e.Nickname, Score: e.Score}
	}
	return Leaderboard{Entries: ranked}
}

// Action is the response for admin actions
type Action struct {
	Action string `json:"action"`
	Target string `json:"target"`
}
