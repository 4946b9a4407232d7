// Package registry holds the authoritative roster of connected players.
//
// A Registry is not safe for concurrent use: it is owned by the event loop,
// and other goroutines read immutable Snapshots of it.
package registry

import (
	"fmt"
	"slices"
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/mcoot/nethang/internal/model"
)

// Nickname length bounds, in runes
const (
	MinNicknameLength = 2
	MaxNicknameLength = 32
)

// Registry is an ordered collection of players with unique identities
type Registry struct {
	players          []*model.Player
	allowSameAddress bool
}

// New creates an empty Registry
func New(allowSameAddress bool) *Registry {
	return &Registry{allowSameAddress: allowSameAddress}
}

// Add appends a player, refusing duplicate nicknames and, unless allowed,
// duplicate source addresses
func (r *Registry) Add(p *model.Player) error {
	if r.FindByNickname(p.Nickname) != nil {
		return fmt.Errorf("%w: %s", model.ErrNicknameTaken, p.Nickname)
	}
	if !r.allowSameAddress && r.FindByAddress(p.Address) != nil {
		return fmt.Errorf("%w: %s", model.ErrAddressTaken, p.Address)
	}
	r.players = append(r.players, p)
	return nil
}

// Replace swaps the player holding p's nickname for p, keeping its place in
// the roster. The entry being replaced does not count as a duplicate. On
// error the registry is unchanged. It returns the replaced player.
func (r *Registry) Replace(p *model.Player) (*model.Player, error) {
	i := slices.IndexFunc(r.players, func(q *model.Player) bool { return q.Nickname == p.Nickname })
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", model.ErrPlayerNotFound, p.Nickname)
	}
	if !r.allowSameAddress {
		for j, q := range r.players {
			if j != i && q.Address == p.Address {
				return nil, fmt.Errorf("%w: %s", model.ErrAddressTaken, p.Address)
			}
		}
	}
	old := r.players[i]
	r.players[i] = p
	return old, nil
}

// RemoveByNickname removes and returns the player with the nickname, or nil
func (r *Registry) RemoveByNickname(nickname string) *model.Player {
	return r.remove(func(p *model.Player) bool { return p.Nickname == nickname })
}

// RemoveByConn removes and returns the player owning conn, or nil
func (r *Registry) RemoveByConn(conn model.Conn) *model.Player {
	return r.remove(func(p *model.Player) bool { return p.Conn == conn })
}

func (r *Registry) remove(match func(*model.Player) bool) *model.Player {
	for i, p := range r.players {
		if match(p) {
			r.players = append(r.players[:i], r.players[i+1:]...)
			return p
		}
	}
	return nil
}

// FindByNickname returns the first player with the nickname, or nil
func (r *Registry) FindByNickname(nickname string) *model.Player {
	return r.find(func(p *model.Player) bool { return p.Nickname == nickname })
}

// FindByConn returns the player owning conn, or nil
func (r *Registry) FindByConn(conn model.Conn) *model.Player {
	return r.find(func(p *model.Player) bool { return p.Conn == conn })
}

// FindByAddress returns the first player connected from address, or nil
func (r *Registry) FindByAddress(address string) *model.Player {
	return r.find(func(p *model.Player) bool { return p.Address == address })
}

func (r *Registry) find(match func(*model.Player) bool) *model.Player {
	for _, p := range r.players {
		if match(p) {
			return p
		}
	}
	return nil
}

// AdjustScore adds delta to the player's score and returns the new score
func (r *Registry) AdjustScore(nickname string, delta int) (int, error) {
	p := r.FindByNickname(nickname)
	if p == nil {
		return 0, fmt.Errorf("%w: %s", model.ErrPlayerNotFound, nickname)
	}
	p.Score += delta
	return p.Score, nil
}

// Players returns the live players in registry order. The slice is a copy;
// the players are not.
func (r *Registry) Players() []*model.Player {
	return append([]*model.Player(nil), r.players...)
}

// Len returns the number of registered players
func (r *Registry) Len() int {
	return len(r.players)
}

// Scoreboard maps every nickname to its score
func (r *Registry) Scoreboard() map[string]int {
	board := make(map[string]int, len(r.players))
	for _, p := range r.players {
		board[p.Nickname] = p.Score
	}
	return board
}

// Snapshot returns an immutable copy of the roster
func (r *Registry) Snapshot() Snapshot {
	players := make([]model.Player, len(r.players))
	for i, p := range r.players {
		players[i] = *p
	}
	return Snapshot{players: players}
}

// Standings orders a scoreboard by descending score, ties by nickname
func Standings(board map[string]int) []model.ScoreEntry {
	entries := make([]model.ScoreEntry, 0, len(board))
	for nick, score := range board {
		entries = append(entries, model.ScoreEntry{Nickname: nick, Score: score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Nickname < entries[j].Nickname
	})
	return entries
}

// ValidateNickname checks that s is 2 to 32 letters or digits
func ValidateNickname(s string) error {
	n := utf8.RuneCountInString(s)
	if n < MinNicknameLength || n > MaxNicknameLength {
		return fmt.Errorf("%w: nickname must be %d to %d characters", model.ErrProtocolViolation, MinNicknameLength, MaxNicknameLength)
	}
	for _, c := range s {
		if !unicode.IsLetter(c) && !unicode.IsDigit(c) {
			return fmt.Errorf("%w: nickname must be alphanumeric", model.ErrProtocolViolation)
		}
	}
	return nil
}
