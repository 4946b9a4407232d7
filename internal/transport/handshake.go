package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/mcoot/nethang/internal/dependencies/clock"
	"github.com/mcoot/nethang/internal/dependencies/random"
	"github.com/mcoot/nethang/internal/model"
	"github.com/mcoot/nethang/internal/registry"
	"github.com/mcoot/nethang/internal/render"
	"github.com/mcoot/nethang/internal/wire"
)

// Messages sent during negotiation
const (
	MsgAddressBanned = "This client IP is banned!"
	MsgAddressInUse  = "This client IP is already in use!"
	MsgServerFull    = "The server is full!"
	MsgNicknameInUse = "This nickname is already in use!"
	MsgBadEncoding   = "Please only use %s characters!"
	MsgBadNickname   = "Only alphanumeric between 2 and 32 characters!"
	MsgRejoinOffer   = "Enter its rejoin code to take it back."
	MsgWelcomeBack   = "Welcome back!"
	MsgWrongCode     = "Wrong code!"

	PromptNickname = "Nickname:"
	PromptCode     = "Code:"
)

// View is the read-only state a worker negotiates against
type View struct {
	Roster     registry.Snapshot
	Denylist   []string
	Countdown  int
	GameActive bool
}

// Denied reports whether address is on the denylist
func (v View) Denied(address string) bool {
	for _, d := range v.Denylist {
		if d == address {
			return true
		}
	}
	return false
}

// ViewRequest asks the event loop for its current state. The loop answers
// on Reply, which must have room for one view.
type ViewRequest struct {
	Reply chan View
}

// NewViewRequest creates a ViewRequest with a buffered reply channel
func NewViewRequest() ViewRequest {
	return ViewRequest{Reply: make(chan View, 1)}
}

// Admission hands a negotiated player over to the event loop
type Admission struct {
	Player *model.Player
	Conn   *Conn
	Rejoin bool
}

// HandshakeConfig holds negotiation settings
type HandshakeConfig struct {
	AllowSameAddress bool
	MaxPlayers       int
	DrainWindow      time.Duration
	Timeout          time.Duration
	MaxLineLength    int
}

// Handshaker runs the admission protocol on accepted connections. Any number
// of workers share one listener; each owns its connection until handoff.
type Handshaker struct {
	cfg        HandshakeConfig
	codec      wire.Codec
	views      chan<- ViewRequest
	admissions chan<- Admission
	renderer   *render.Renderer
	clock      clock.Clock
	random     random.Random
	logger     *slog.Logger

	wg       sync.WaitGroup
	mu       sync.Mutex
	cancel   context.CancelFunc
	inflight map[*Conn]struct{}
}

// NewHandshaker creates a Handshaker
func NewHandshaker(
	cfg HandshakeConfig,
	codec wire.Codec,
	views chan<- ViewRequest,
	admissions chan<- Admission,
	renderer *render.Renderer,
	clk clock.Clock,
	rnd random.Random,
	logger *slog.Logger,
) *Handshaker {
	return &Handshaker{
		cfg:        cfg,
		codec:      codec,
		views:      views,
		admissions: admissions,
		renderer:   renderer,
		clock:      clk,
		random:     rnd,
		logger:     logger.With(slog.String("component", "handshake")),
		inflight:   make(map[*Conn]struct{}),
	}
}

// Serve starts workers accepting from l. They exit once l is closed.
func (h *Handshaker) Serve(ctx context.Context, l net.Listener, workers int) {
	ctx, cancel := context.WithCancel(ctx)
	h.mu.Lock()
	h.cancel = cancel
	h.mu.Unlock()
	for i := range workers {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.worker(ctx, l, i)
		}()
	}
}

// Shutdown waits for workers to finish their current negotiation. When ctx
// expires first, in-flight connections are aborted and workers blocked on the
// event loop are cancelled.
func (h *Handshaker) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.stop()
		return nil
	case <-ctx.Done():
		h.stop()
		h.mu.Lock()
		aborted := len(h.inflight)
		for c := range h.inflight {
			c.Abort()
		}
		h.mu.Unlock()
		h.logger.Warn("aborted in-flight handshakes", slog.Int("count", aborted))
		<-done
		return ctx.Err()
	}
}

func (h *Handshaker) stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
	}
}

func (h *Handshaker) worker(ctx context.Context, l net.Listener, id int) {
	logger := h.logger.With(slog.Int("worker", id))
	for {
		raw, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return
			}
			logger.Warn("accept failed", slog.String("error", err.Error()))
			continue
		}

		conn := NewConn(raw, h.codec, h.cfg.MaxLineLength, logger)
		h.track(conn, true)
		admission, err := h.Negotiate(ctx, conn)
		h.track(conn, false)
		if err != nil {
			logger.Info("handshake ended",
				slog.String("remote", conn.RemoteAddr()),
				slog.String("reason", err.Error()))
			_ = conn.Close()
			if ctx.Err() != nil {
				return
			}
			continue
		}

		select {
		case h.admissions <- *admission:
			logger.Info("player admitted",
				slog.String("nickname", admission.Player.Nickname),
				slog.String("remote", admission.Player.Address),
				slog.Bool("rejoin", admission.Rejoin))
		case <-ctx.Done():
			_ = conn.Close()
			return
		}
	}
}

func (h *Handshaker) track(c *Conn, add bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if add {
		h.inflight[c] = struct{}{}
	} else {
		delete(h.inflight, c)
	}
}

// Negotiate runs the nickname and rejoin protocol on conn
func (h *Handshaker) Negotiate(ctx context.Context, conn *Conn) (*Admission, error) {
	_ = conn.Send(h.renderer.Title())
	if err := conn.Drain(h.cfg.DrainWindow); err != nil {
		return nil, err
	}
	if h.cfg.Timeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(h.cfg.Timeout))
		defer func() { _ = conn.SetReadDeadline(time.Time{}) }()
	}

	view, err := h.currentView(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.checkAddress(conn, view); err != nil {
		return nil, err
	}

	for {
		_ = conn.Send(h.renderer.Prompt(PromptNickname))
		nickname, err := conn.ReadLine()
		switch {
		case errors.Is(err, model.ErrDecodeFailure):
			_ = conn.Send(h.renderer.Notice(MsgBadEncoding, h.codec.Name()))
			continue
		case errors.Is(err, model.ErrProtocolViolation):
			_ = conn.Send(h.renderer.Notice(MsgBadNickname))
			continue
		case err != nil:
			return nil, err
		}
		nickname = strings.TrimSpace(nickname)

		if existing, ok := view.Roster.FindByNickname(nickname); ok {
			rejoined, err := h.challenge(conn, existing)
			if err != nil {
				return nil, err
			}
			if !rejoined {
				continue
			}
			if view, err = h.currentView(ctx); err != nil {
				return nil, err
			}
			if current, ok := view.Roster.FindByNickname(nickname); ok {
				existing = current
			}
			if err := h.checkRejoinAddress(conn, view, nickname); err != nil {
				return nil, err
			}
			return h.admit(conn, nickname, existing, view, true), nil
		}

		if err := registry.ValidateNickname(nickname); err != nil {
			_ = conn.Send(h.renderer.Notice(MsgBadNickname))
			continue
		}

		if view, err = h.currentView(ctx); err != nil {
			return nil, err
		}
		if _, taken := view.Roster.FindByNickname(nickname); taken {
			_ = conn.Send(h.renderer.Notice(MsgNicknameInUse))
			continue
		}
		if err := h.checkAddress(conn, view); err != nil {
			return nil, err
		}
		return h.admit(conn, nickname, model.Player{}, view, false), nil
	}
}

func (h *Handshaker) challenge(conn *Conn, existing model.Player) (bool, error) {
	_ = conn.Send(h.renderer.Notice("%s %s", MsgNicknameInUse, MsgRejoinOffer))
	_ = conn.Send(h.renderer.Prompt(PromptCode))
	code, err := conn.ReadLine()
	if errors.Is(err, model.ErrPeerGone) {
		return false, err
	}
	if err == nil && strings.TrimSpace(code) == existing.RejoinCode {
		_ = conn.Send(h.renderer.Notice(MsgWelcomeBack))
		return true, nil
	}
	_ = conn.Send(h.renderer.Notice(MsgWrongCode))
	return false, nil
}

func (h *Handshaker) checkAddress(conn *Conn, view View) error {
	addr := conn.RemoteAddr()
	switch {
	case view.Denied(addr):
		_ = conn.Send(h.renderer.Notice(MsgAddressBanned))
		return fmt.Errorf("%w: %s", model.ErrAddressDenied, addr)
	case !h.cfg.AllowSameAddress && hasAddress(view, addr, ""):
		_ = conn.Send(h.renderer.Notice(MsgAddressInUse))
		return fmt.Errorf("%w: %s", model.ErrAddressTaken, addr)
	case h.cfg.MaxPlayers > 0 && view.Roster.Len() >= h.cfg.MaxPlayers:
		_ = conn.Send(h.renderer.Notice(MsgServerFull))
		return model.ErrServerFull
	}
	return nil
}

// checkRejoinAddress re-checks a rejoining connection. The entry being taken
// over does not count against it, and the roster does not grow.
func (h *Handshaker) checkRejoinAddress(conn *Conn, view View, nickname string) error {
	addr := conn.RemoteAddr()
	switch {
	case view.Denied(addr):
		_ = conn.Send(h.renderer.Notice(MsgAddressBanned))
		return fmt.Errorf("%w: %s", model.ErrAddressDenied, addr)
	case !h.cfg.AllowSameAddress && hasAddress(view, addr, nickname):
		_ = conn.Send(h.renderer.Notice(MsgAddressInUse))
		return fmt.Errorf("%w: %s", model.ErrAddressTaken, addr)
	}
	return nil
}

// hasAddress reports whether a player other than except uses addr
func hasAddress(view View, addr, except string) bool {
	for _, p := range view.Roster.Players() {
		if p.Address == addr && p.Nickname != except {
			return true
		}
	}
	return false
}

func (h *Handshaker) admit(conn *Conn, nickname string, existing model.Player, view View, rejoin bool) *Admission {
	code := existing.RejoinCode
	if !rejoin {
		code = random.RejoinCode(h.random)
	}
	player := &model.Player{
		Conn:       conn,
		Nickname:   nickname,
		Address:    conn.RemoteAddr(),
		RejoinCode: code,
		Score:      existing.Score,
		JoinedAt:   h.clock.Now(),
	}
	_ = conn.Send(h.renderer.Opening() + h.renderer.RejoinCode(code) + h.renderer.LobbyWait(view.Countdown, view.GameActive))
	return &Admission{Player: player, Conn: conn, Rejoin: rejoin}
}

// currentView asks the event loop for its state as of now
func (h *Handshaker) currentView(ctx context.Context) (View, error) {
	req := NewViewRequest()
	select {
	case h.views <- req:
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
	select {
	case view := <-req.Reply:
		return view, nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}
