package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mcoot/nethang/internal/model"
	"github.com/mcoot/nethang/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	historyLimit int
	games        map[model.GameID]*model.GameSummary
	history      []model.GameID // newest first
	leaderboard  map[string]int
}

// New creates a new in-memory storage instance keeping at most historyLimit games
func New(historyLimit int) *Storage {
	if historyLimit <= 0 {
		historyLimit = storage.DefaultHistoryLimit
	}
	return &Storage{
		historyLimit: historyLimit,
		games:        make(map[model.GameID]*model.GameSummary),
		leaderboard:  make(map[string]int),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Game history operations

func (s *Storage) SaveGameSummary(ctx context.Context, summary *model.GameSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.games[summary.ID]; !exists {
		s.history = append([]model.GameID{summary.ID}, s.history...)
	}
	copied := *summary
	s.games[summary.ID] = &copied

	for len(s.history) > s.historyLimit {
		evicted := s.history[len(s.history)-1]
		s.history = s.history[:len(s.history)-1]
		delete(s.games, evicted)
	}
	return nil
}

func (s *Storage) GetGameSummary(ctx context.Context, id model.GameID) (*model.GameSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary, ok := s.games[id]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	copied := *summary
	return &copied, nil
}

func (s *Storage) ListGameSummaries(ctx context.Context, limit int) ([]*model.GameSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	summaries := make([]*model.GameSummary, 0, limit)
	for _, id := range s.history[:limit] {
		copied := *s.games[id]
		summaries = append(summaries, &copied)
	}
	return summaries, nil
}

// Leaderboard operations

func (s *Storage) AddLeaderboardPoints(ctx context.Context, nickname string, points int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaderboard[nickname] += points
	return nil
}

func (s *Storage) Leaderboard(ctx context.Context, limit int) ([]model.ScoreEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]model.ScoreEntry, 0, len(s.leaderboard))
	for nick, score := range s.leaderboard {
		entries = append(entries, model.ScoreEntry{Nickname: nick, Score: score})
	}
	// Ties order like ZREVRANGE: nickname descending
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Nickname > entries[j].Nickname
	})
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *Storage) Close() error {
	return nil
}
