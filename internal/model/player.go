package model

import "time"

// Conn is the live connection handle a player is reached through
type Conn interface {
	// Send queues text for delivery; it never blocks on the network
	Send(text string) error
	Close() error
	RemoteAddr() string
}

// Player is a registered, connected participant
type Player struct {
	Conn       Conn      `json:"-"`
	Nickname   string    `json:"nickname"`
	Address    string    `json:"address"`
	RejoinCode string    `json:"-"`
	Score      int       `json:"score"`
	JoinedAt   time.Time `json:"joined_at"`
}

// ScoreEntry is one line of a scoreboard
type ScoreEntry struct {
	Nickname string `json:"nickname"`
	Score    int    `json:"score"`
}

// PlayerStatus is the externally visible state of a player
type PlayerStatus struct {
	Nickname string    `json:"nickname"`
	Address  string    `json:"address"`
	Score    int       `json:"score"`
	JoinedAt time.Time `json:"joined_at"`
}

// ServerStatus describes the lobby and game as seen by the event loop
type ServerStatus struct {
	GameActive bool           `json:"game_active"`
	GameID     GameID         `json:"game_id,omitempty"`
	Countdown  int            `json:"countdown"`
	Players    []PlayerStatus `json:"players"`
	Denylist   []string       `json:"denylist"`
}
