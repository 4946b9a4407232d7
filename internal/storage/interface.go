package storage

import (
	"context"

	"github.com/mcoot/nethang/internal/model"
)

// DefaultHistoryLimit is how many finished games are kept by default
const DefaultHistoryLimit = 50

// Storage defines the interface for data persistence
type Storage interface {
	// Game history operations
	SaveGameSummary(ctx context.Context, summary *model.GameSummary) error
	GetGameSummary(ctx context.Context, id model.GameID) (*model.GameSummary, error)
	// ListGameSummaries returns up to limit games, newest first
	ListGameSummaries(ctx context.Context, limit int) ([]*model.GameSummary, error)

	// Leaderboard operations
	AddLeaderboardPoints(ctx context.Context, nickname string, points int) error
	Leaderboard(ctx context.Context, limit int) ([]model.ScoreEntry, error)

	Close() error
}
