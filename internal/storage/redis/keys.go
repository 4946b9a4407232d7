package redis

import (
	"fmt"

	"github.com/mcoot/nethang/internal/model"
)

// Key prefix for all server data
const keyPrefix = "nethang"

// gameKey returns the Redis key for a finished game summary
func gameKey(id model.GameID) string {
	return fmt.Sprintf("%s:game:%s", keyPrefix, id)
}

// historyIndexKey returns the Redis key for the LIST of game IDs, newest first
func historyIndexKey() string {
	return fmt.Sprintf("%s:idx:history", keyPrefix)
}

// leaderboardKey returns the Redis key for the leaderboard sorted set
func leaderboardKey() string {
	return fmt.Sprintf("%s:leaderboard", keyPrefix)
}
