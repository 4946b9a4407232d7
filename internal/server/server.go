package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/mcoot/nethang/internal/dependencies/clock"
	"github.com/mcoot/nethang/internal/dependencies/random"
	"github.com/mcoot/nethang/internal/model"
	"github.com/mcoot/nethang/internal/render"
	"github.com/mcoot/nethang/internal/services/game"
	"github.com/mcoot/nethang/internal/storage"
	"github.com/mcoot/nethang/internal/transport"
	"github.com/mcoot/nethang/internal/wire"
)

// ErrNotRunning is returned by admin calls outside Start and Stop
var ErrNotRunning = errors.New("server not running")

// Server is the hangman TCP server: a listener shared by handshake workers
// feeding a single event loop
type Server struct {
	cfg       Config
	storage   storage.Storage
	publisher model.Publisher
	clock     clock.Clock
	random    random.Random
	logger    *slog.Logger

	mu         sync.Mutex
	listener   net.Listener
	handshaker *transport.Handshaker
	loop       *Loop
	cancel     context.CancelFunc
	loopDone   chan error
}

// New creates a Server; nothing is bound until Start
func New(
	cfg Config,
	store storage.Storage,
	publisher model.Publisher,
	clk clock.Clock,
	rnd random.Random,
	logger *slog.Logger,
) *Server {
	return &Server{
		cfg:       cfg,
		storage:   store,
		publisher: publisher,
		clock:     clk,
		random:    rnd,
		logger:    logger.With(slog.String("component", "server")),
	}
}

// Start binds the first free candidate port and starts the workers and the
// event loop. It returns once the server is accepting.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return errors.New("server already started")
	}
	if err := game.CheckMode(s.cfg.Game.Mode); err != nil {
		return err
	}
	codec, err := wire.NewCodec(s.cfg.Encoding)
	if err != nil {
		return err
	}

	workers := max(1, s.cfg.HandshakeWorkers)
	limit := 0
	if s.cfg.MaxConnections > 0 {
		// Room for players plus one connection being refused per worker
		limit = s.cfg.MaxConnections + workers
	}
	listener, err := transport.Listen(ctx, s.cfg.Host, s.cfg.Ports, limit, s.logger)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	renderer := render.New(s.cfg.Color)
	views := make(chan transport.ViewRequest)
	admissions := make(chan transport.Admission)

	s.loop = NewLoop(s.cfg, admissions, views, s.storage, s.publisher, renderer, s.clock, s.random, s.logger)
	s.handshaker = transport.NewHandshaker(transport.HandshakeConfig{
		AllowSameAddress: s.cfg.AllowSameAddress,
		MaxPlayers:       s.cfg.MaxConnections,
		DrainWindow:      s.cfg.DrainWindow,
		Timeout:          s.cfg.HandshakeTimeout,
		MaxLineLength:    s.cfg.MaxLineLength,
	}, codec, views, admissions, renderer, s.clock, s.random, s.logger)

	s.listener = listener
	s.cancel = cancel
	s.loopDone = make(chan error, 1)
	go func() {
		s.loopDone <- s.loop.Run(runCtx)
	}()
	s.handshaker.Serve(runCtx, listener, workers)

	s.logger.Info("server started",
		slog.String("addr", listener.Addr().String()),
		slog.Int("workers", workers),
		slog.String("encoding", codec.Name()),
		slog.String("mode", string(s.cfg.Game.Mode)))
	return nil
}

// Addr returns the bound address, or nil before Start
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop stops accepting, gives in-flight handshakes and the active game the
// grace period to finish, then closes every connection
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	s.logger.Info("stopping server", slog.Duration("grace", s.cfg.GracePeriod))

	_ = s.listener.Close()
	graceCtx, cancel := context.WithTimeout(ctx, s.cfg.GracePeriod)
	defer cancel()
	if err := s.handshaker.Shutdown(graceCtx); err != nil {
		s.logger.Warn("handshakes did not finish in time", slog.String("error", err.Error()))
	}

	s.loop.Stop()
	var err error
	select {
	case err = <-s.loopDone:
	case <-ctx.Done():
		s.cancel()
		err = <-s.loopDone
	}
	s.cancel()
	s.listener = nil

	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("forced stop: %w", ctx.Err())
	}
	s.logger.Info("server stopped")
	return err
}

// Status reports the live lobby and game state
func (s *Server) Status(ctx context.Context) (model.ServerStatus, error) {
	loop, err := s.running()
	if err != nil {
		return model.ServerStatus{}, err
	}
	return loop.Status(ctx)
}

// Kick disconnects a player by nickname
func (s *Server) Kick(ctx context.Context, nickname string) error {
	loop, err := s.running()
	if err != nil {
		return err
	}
	return loop.Kick(ctx, nickname)
}

// Ban denylists an address and disconnects its players
func (s *Server) Ban(ctx context.Context, address string) error {
	loop, err := s.running()
	if err != nil {
		return err
	}
	return loop.Ban(ctx, address)
}

func (s *Server) running() (*Loop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil, ErrNotRunning
	}
	return s.loop, nil
}
