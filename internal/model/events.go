package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	// Lobby events
	EventPlayerJoined   EventType = "player_joined"
	EventPlayerRejoined EventType = "player_rejoined"
	EventPlayerLeft     EventType = "player_left"
	EventChat           EventType = "chat"

	// Game events
	EventGameStarted   EventType = "game_started"
	EventRoundStarted  EventType = "round_started"
	EventGuessResolved EventType = "guess_resolved"
	EventRoundEnded    EventType = "round_ended"
	EventGameEnded     EventType = "game_ended"
)

// Event is the base structure for all events
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	GameID    GameID    `json:"game_id,omitempty"`
	Nickname  string    `json:"nickname,omitempty"`
	Payload   any       `json:"payload,omitempty"`
}

// PlayerLeftPayload contains data for player left events
type PlayerLeftPayload struct {
	Reason string `json:"reason"`
}

// ChatPayload contains data for chat events
type ChatPayload struct {
	Text string `json:"text"`
}

// GameStartedPayload contains data for game started events
type GameStartedPayload struct {
	Mode    GameMode `json:"mode"`
	Rounds  int      `json:"rounds"`
	Players []string `json:"players"`
}

// RoundStartedPayload contains data for round started events
type RoundStartedPayload struct {
	Index    int      `json:"index"`
	Hanger   string   `json:"hanger"`
	Guessers []string `json:"guessers"`
}

// GuessResolvedPayload contains data for guess resolved events
type GuessResolvedPayload struct {
	Guess string    `json:"guess"`
	Kind  GuessKind `json:"kind"`
	Delta int       `json:"delta"`
	Fails int       `json:"fails"`
}

// RoundEndedPayload contains data for round ended events
type RoundEndedPayload struct {
	Summary RoundSummary `json:"summary"`
}

// GameEndedPayload contains data for game ended events
type GameEndedPayload struct {
	Summary GameSummary `json:"summary"`
}

// Publisher receives events for observers; implementations must not block
type Publisher interface {
	Publish(event Event)
}

// NopPublisher discards events
type NopPublisher struct{}

// Publish discards the event
func (NopPublisher) Publish(Event) {}
