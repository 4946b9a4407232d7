package model

import (
	"errors"
	"fmt"
)

// Common errors used across the application
var (
	// Identity errors
	ErrDuplicateIdentity = errors.New("duplicate identity")
	ErrNicknameTaken     = fmt.Errorf("%w: nickname already in use", ErrDuplicateIdentity)
	ErrAddressTaken      = fmt.Errorf("%w: address already in use", ErrDuplicateIdentity)
	ErrPlayerNotFound    = errors.New("player not found")
	ErrAddressDenied     = errors.New("address is denylisted")
	ErrServerFull        = errors.New("server is full")

	// Wire errors
	ErrProtocolViolation = errors.New("protocol violation")
	ErrDecodeFailure     = errors.New("decode failure")
	ErrPeerGone          = errors.New("peer gone")
	ErrPeerReset         = fmt.Errorf("%w: connection reset", ErrPeerGone)
	ErrBindFailure       = errors.New("no candidate port could be bound")

	// Game errors
	ErrInsufficientPlayers = errors.New("insufficient players")
	ErrNotImplemented      = errors.New("not implemented")
	ErrInvalidGameMode     = errors.New("invalid game mode")
	ErrGameNotFound        = errors.New("game not found")
)
