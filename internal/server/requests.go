package server

import (
	"context"

	"github.com/mcoot/nethang/internal/model"
	"github.com/mcoot/nethang/internal/services/game"
)

type rosterRequest struct {
	adjust   bool
	nickname string
	delta    int
	reply    chan rosterReply
}

type rosterReply struct {
	players []model.Player
	score   int
	err     error
}

// loopRoster serves a game session from the event loop's registry
type loopRoster struct {
	requests chan<- rosterRequest
}

// Ensure loopRoster implements game.Roster
var _ game.Roster = (*loopRoster)(nil)

func (r *loopRoster) Players(ctx context.Context) ([]model.Player, error) {
	reply, err := r.do(ctx, rosterRequest{})
	return reply.players, err
}

func (r *loopRoster) AdjustScore(ctx context.Context, nickname string, delta int) (int, error) {
	reply, err := r.do(ctx, rosterRequest{adjust: true, nickname: nickname, delta: delta})
	return reply.score, err
}

func (r *loopRoster) do(ctx context.Context, req rosterRequest) (rosterReply, error) {
	req.reply = make(chan rosterReply, 1)
	select {
	case r.requests <- req:
	case <-ctx.Done():
		return rosterReply{}, ctx.Err()
	}
	select {
	case reply := <-req.reply:
		return reply, reply.err
	case <-ctx.Done():
		return rosterReply{}, ctx.Err()
	}
}

type adminKind int

const (
	adminStatus adminKind = iota
	adminKick
	adminBan
)

type adminRequest struct {
	kind   adminKind
	target string
	reply  chan adminReply
}

type adminReply struct {
	status model.ServerStatus
	err    error
}
