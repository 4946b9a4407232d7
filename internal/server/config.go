package server

import (
	"runtime"
	"time"

	"github.com/mcoot/nethang/internal/services/game"
	"github.com/mcoot/nethang/internal/wire"
)

// DefaultPorts are tried in order when no port is configured
var DefaultPorts = []int{29111, 29112, 29113}

// Config holds everything the TCP game server needs
type Config struct {
	Host             string
	Ports            []int
	MaxConnections   int
	AllowSameAddress bool
	HandshakeWorkers int
	DrainWindow      time.Duration
	HandshakeTimeout time.Duration
	MaxLineLength    int
	Encoding         string
	Color            bool
	Denylist         []string

	// LobbyWait is the countdown before a game starts; it counts down one
	// second per TickInterval
	LobbyWait    time.Duration
	TickInterval time.Duration

	Game game.Config

	// ChatRate is lobby lines per second per connection; 0 disables the limit
	ChatRate  float64
	ChatBurst int

	GracePeriod time.Duration
}

// DefaultConfig returns the standard server settings
func DefaultConfig() Config {
	return Config{
		Ports:            append([]int(nil), DefaultPorts...),
		MaxConnections:   20,
		HandshakeWorkers: DefaultHandshakeWorkers(),
		DrainWindow:      time.Second,
		HandshakeTimeout: 5 * time.Minute,
		MaxLineLength:    wire.DefaultMaxLineLength,
		Encoding:         wire.EncodingLatin1,
		Color:            true,
		LobbyWait:        30 * time.Second,
		TickInterval:     time.Second,
		Game:             game.DefaultConfig(),
		ChatRate:         2,
		ChatBurst:        5,
		GracePeriod:      5 * time.Second,
	}
}

// DefaultHandshakeWorkers leaves one CPU for the event loop, between 1 and 4
func DefaultHandshakeWorkers() int {
	return max(1, min(4, runtime.NumCPU()-1))
}

func (c Config) lobbySeconds() int {
	return int(c.LobbyWait / time.Second)
}
