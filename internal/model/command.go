package model

import "strings"

// SystemNickname is the sender of synthetic commands injected by the event loop
const SystemNickname = "."

const (
	leavePrefix = "-"
	joinPrefix  = "+"
)

// Command is one line of player input, ordered by arrival at the event loop
type Command struct {
	Player string
	Text   string
	Seq    uint64
}

// LeaveCommand announces that nickname disconnected
func LeaveCommand(nickname string) Command {
	return Command{Player: SystemNickname, Text: leavePrefix + nickname}
}

// JoinCommand announces that nickname connected
func JoinCommand(nickname string) Command {
	return Command{Player: SystemNickname, Text: joinPrefix + nickname}
}

// IsSystem reports whether the command was injected by the server
func (c Command) IsSystem() bool {
	return c.Player == SystemNickname
}

// Departed returns the nickname of the player who left, if this is a leave sentinel
func (c Command) Departed() (string, bool) {
	if !c.IsSystem() || !strings.HasPrefix(c.Text, leavePrefix) {
		return "", false
	}
	return strings.TrimPrefix(c.Text, leavePrefix), true
}

// Joined returns the nickname of the player who joined, if this is a join sentinel
func (c Command) Joined() (string, bool) {
	if !c.IsSystem() || !strings.HasPrefix(c.Text, joinPrefix) {
		return "", false
	}
	return strings.TrimPrefix(c.Text, joinPrefix), true
}
