package registry

import "github.com/mcoot/nethang/internal/model"

// Snapshot is a read-only copy of the roster at one point in time
type Snapshot struct {
	players []model.Player
}

// FindByNickname returns the first player with the nickname
func (s Snapshot) FindByNickname(nickname string) (model.Player, bool) {
	for _, p := range s.players {
		if p.Nickname == nickname {
			return p, true
		}
	}
	return model.Player{}, false
}

// FindByAddress returns the first player connected from address
func (s Snapshot) FindByAddress(address string) (model.Player, bool) {
	for _, p := range s.players {
		if p.Address == address {
			return p, true
		}
	}
	return model.Player{}, false
}

// Len returns the number of players in the snapshot
func (s Snapshot) Len() int {
	return len(s.players)
}

// Players returns a copy of the players in roster order
func (s Snapshot) Players() []model.Player {
	return append([]model.Player(nil), s.players...)
}
