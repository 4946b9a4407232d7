package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mcoot/nethang/internal/dependencies/clock"
	"github.com/mcoot/nethang/internal/dependencies/random"
	"github.com/mcoot/nethang/internal/model"
	"github.com/mcoot/nethang/internal/registry"
	"github.com/mcoot/nethang/internal/render"
	"github.com/mcoot/nethang/internal/services/game"
	"github.com/mcoot/nethang/internal/services/scoring"
	"github.com/mcoot/nethang/internal/storage"
	"github.com/mcoot/nethang/internal/transport"
)

const (
	storageTimeout = 5 * time.Second

	msgShuttingDown = "The server is shutting down."
	msgKicked       = "You have been removed from the server."
)

type gameResult struct {
	summary *model.GameSummary
	err     error
}

type activeGame struct {
	id       model.GameID
	commands chan model.Command
	cancel   context.CancelFunc
	start    map[string]int
}

// Loop is the single owner of the player registry. Every admission,
// inbound line, roster request and timer tick is handled here in turn.
type Loop struct {
	cfg       Config
	registry  *registry.Registry
	denylist  []string
	storage   storage.Storage
	publisher model.Publisher
	renderer  *render.Renderer
	scoring   *scoring.Service
	clock     clock.Clock
	random    random.Random
	logger    *slog.Logger

	admissions <-chan transport.Admission
	views      <-chan transport.ViewRequest
	inbound    chan transport.Inbound
	roster     chan rosterRequest
	admin      chan adminRequest
	gameDone   chan gameResult
	stopping   chan struct{}

	game      *activeGame
	countdown int
	seq       uint64
	limiters  map[model.Conn]*rate.Limiter
	draining  bool
}

// NewLoop creates a Loop consuming admissions and answering view requests
func NewLoop(
	cfg Config,
	admissions <-chan transport.Admission,
	views <-chan transport.ViewRequest,
	store storage.Storage,
	publisher model.Publisher,
	renderer *render.Renderer,
	clk clock.Clock,
	rnd random.Random,
	logger *slog.Logger,
) *Loop {
	if publisher == nil {
		publisher = model.NopPublisher{}
	}
	return &Loop{
		cfg:        cfg,
		registry:   registry.New(cfg.AllowSameAddress),
		denylist:   slices.Clone(cfg.Denylist),
		storage:    store,
		publisher:  publisher,
		renderer:   renderer,
		scoring:    scoring.New(),
		clock:      clk,
		random:     rnd,
		logger:     logger.With(slog.String("component", "loop")),
		admissions: admissions,
		views:      views,
		inbound:    make(chan transport.Inbound, 64),
		roster:     make(chan rosterRequest),
		admin:      make(chan adminRequest),
		gameDone:   make(chan gameResult, 1),
		stopping:   make(chan struct{}),
		countdown:  cfg.lobbySeconds(),
		limiters:   make(map[model.Conn]*rate.Limiter),
	}
}

// Run handles events until ctx is cancelled or a requested stop completes
func (l *Loop) Run(ctx context.Context) error {
	tick := l.clock.NewTimer(l.cfg.TickInterval)
	defer func() { tick.Stop() }()

	stopping := l.stopping
	var grace <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			l.interruptGame()
			l.closeAll(msgShuttingDown)
			return ctx.Err()
		case <-stopping:
			stopping = nil
			l.draining = true
			if l.game != nil {
				l.logger.Info("waiting for the game to finish", slog.Duration("grace", l.cfg.GracePeriod))
				timer := l.clock.NewTimer(l.cfg.GracePeriod)
				defer timer.Stop()
				grace = timer.C()
			}
		case <-grace:
			grace = nil
			l.logger.Warn("grace period over, interrupting game")
			l.interruptGame()
		case req := <-l.views:
			req.Reply <- l.view()
		case adm := <-l.admissions:
			l.handleAdmission(ctx, adm)
		case in := <-l.inbound:
			l.handleInbound(ctx, in)
		case req := <-l.roster:
			l.handleRoster(req)
		case req := <-l.admin:
			l.handleAdmin(ctx, req)
		case res := <-l.gameDone:
			l.handleGameDone(ctx, res)
		case <-tick.C():
			l.handleTick(ctx)
			tick = l.clock.NewTimer(l.cfg.TickInterval)
		}

		if l.draining && l.game == nil {
			l.closeAll(msgShuttingDown)
			l.logger.Info("event loop stopped")
			return nil
		}
	}
}

// Stop asks Run to finish the active game, then disconnect everyone and return
func (l *Loop) Stop() {
	select {
	case <-l.stopping:
	default:
		close(l.stopping)
	}
}

// Status reports the lobby and game state
func (l *Loop) Status(ctx context.Context) (model.ServerStatus, error) {
	reply, err := l.request(ctx, adminRequest{kind: adminStatus})
	return reply.status, err
}

// Kick disconnects the named player
func (l *Loop) Kick(ctx context.Context, nickname string) error {
	_, err := l.request(ctx, adminRequest{kind: adminKick, target: nickname})
	return err
}

// Ban denylists an address and disconnects every player using it
func (l *Loop) Ban(ctx context.Context, address string) error {
	_, err := l.request(ctx, adminRequest{kind: adminBan, target: address})
	return err
}

func (l *Loop) request(ctx context.Context, req adminRequest) (adminReply, error) {
	req.reply = make(chan adminReply, 1)
	select {
	case l.admin <- req:
	case <-ctx.Done():
		return adminReply{}, ctx.Err()
	}
	select {
	case reply := <-req.reply:
		return reply, reply.err
	case <-ctx.Done():
		return adminReply{}, ctx.Err()
	}
}

func (l *Loop) handleAdmission(ctx context.Context, adm transport.Admission) {
	p := adm.Player
	logger := l.logger.With(slog.String("nickname", p.Nickname), slog.String("remote", p.Address))

	if l.draining {
		_ = adm.Conn.Send(l.renderer.Notice(msgShuttingDown))
		_ = adm.Conn.Close()
		return
	}

	rejoined := false
	if adm.Rejoin && l.registry.FindByNickname(p.Nickname) != nil {
		old, err := l.registry.Replace(p)
		if err != nil {
			l.reject(adm, err, logger)
			return
		}
		p.Score = old.Score
		p.RejoinCode = old.RejoinCode
		delete(l.limiters, old.Conn)
		_ = old.Conn.Close()
		rejoined = true
	} else if err := l.registry.Add(p); err != nil {
		// Another worker admitted the same identity first
		l.reject(adm, err, logger)
		return
	}

	l.limiters[adm.Conn] = l.newLimiter()
	go adm.Conn.Pump(ctx, l.inbound)

	eventType := model.EventPlayerJoined
	if rejoined {
		eventType = model.EventPlayerRejoined
	}
	l.publish(eventType, p.Nickname, nil)
	logger.Info("player registered", slog.Bool("rejoin", rejoined), slog.Int("players", l.registry.Len()))

	switch {
	case l.game != nil && !rejoined:
		l.forward(ctx, model.JoinCommand(p.Nickname))
	case l.game == nil && rejoined:
		l.broadcastExcept(p.Nickname, l.renderer.Notice("%s is back.", p.Nickname))
	case l.game == nil:
		l.broadcastExcept(p.Nickname, l.renderer.Notice("%s joined.", p.Nickname))
	}
}

// reject refuses an admission that no longer fits the registry. The existing
// entry, if any, is left untouched.
func (l *Loop) reject(adm transport.Admission, err error, logger *slog.Logger) {
	msg := transport.MsgNicknameInUse
	if errors.Is(err, model.ErrAddressTaken) {
		msg = transport.MsgAddressInUse
	}
	_ = adm.Conn.Send(l.renderer.Notice("%s", msg))
	_ = adm.Conn.Close()
	logger.Info("admission rejected", slog.String("reason", err.Error()))
}

func (l *Loop) handleInbound(ctx context.Context, in transport.Inbound) {
	p := l.registry.FindByConn(in.Conn)
	if p == nil {
		return
	}

	switch {
	case errors.Is(in.Err, model.ErrPeerReset):
		l.disconnect(ctx, p, "reset connection")
	case errors.Is(in.Err, model.ErrPeerGone):
		l.disconnect(ctx, p, "left")
	case in.Err != nil:
		l.logger.Debug("dropped line", slog.String("nickname", p.Nickname), slog.String("error", in.Err.Error()))
	case l.game != nil:
		l.forward(ctx, model.Command{Player: p.Nickname, Text: in.Text})
	default:
		l.chat(p, in.Text)
	}
}

func (l *Loop) chat(p *model.Player, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if limiter := l.limiters[p.Conn]; limiter != nil && !limiter.Allow() {
		l.logger.Debug("chat rate limited", slog.String("nickname", p.Nickname))
		return
	}
	l.logger.Info("chat", slog.String("nickname", p.Nickname), slog.String("text", text))
	l.broadcastExcept(p.Nickname, l.renderer.Chat(p.Nickname, text))
	l.publish(model.EventChat, p.Nickname, model.ChatPayload{Text: text})
}

func (l *Loop) disconnect(ctx context.Context, p *model.Player, reason string) {
	l.registry.RemoveByConn(p.Conn)
	delete(l.limiters, p.Conn)
	_ = p.Conn.Close()

	l.publish(model.EventPlayerLeft, p.Nickname, model.PlayerLeftPayload{Reason: reason})
	l.logger.Info("player disconnected",
		slog.String("nickname", p.Nickname),
		slog.String("reason", reason),
		slog.Int("players", l.registry.Len()))

	if l.game != nil {
		l.forward(ctx, model.LeaveCommand(p.Nickname))
		return
	}
	l.broadcast(l.renderer.Notice("%s left.", p.Nickname))
}

// forward hands a command to the game, serving its roster requests meanwhile
func (l *Loop) forward(ctx context.Context, cmd model.Command) {
	l.seq++
	cmd.Seq = l.seq
	for l.game != nil {
		select {
		case l.game.commands <- cmd:
			return
		case req := <-l.roster:
			l.handleRoster(req)
		case req := <-l.views:
			req.Reply <- l.view()
		case res := <-l.gameDone:
			l.handleGameDone(ctx, res)
		case <-ctx.Done():
			return
		}
	}
}

func (l *Loop) handleRoster(req rosterRequest) {
	var reply rosterReply
	if req.adjust {
		reply.score, reply.err = l.registry.AdjustScore(req.nickname, req.delta)
	} else {
		for _, p := range l.registry.Players() {
			reply.players = append(reply.players, *p)
		}
	}
	req.reply <- reply
}

func (l *Loop) handleAdmin(ctx context.Context, req adminRequest) {
	var reply adminReply
	switch req.kind {
	case adminStatus:
		reply.status = l.status()
	case adminKick:
		p := l.registry.FindByNickname(req.target)
		if p == nil {
			reply.err = fmt.Errorf("%w: %s", model.ErrPlayerNotFound, req.target)
			break
		}
		_ = p.Conn.Send(l.renderer.Notice(msgKicked))
		l.disconnect(ctx, p, "kicked")
	case adminBan:
		if !slices.Contains(l.denylist, req.target) {
			l.denylist = append(l.denylist, req.target)
		}
		for _, p := range l.registry.Players() {
			if p.Address == req.target {
				_ = p.Conn.Send(l.renderer.Notice(transport.MsgAddressBanned))
				l.disconnect(ctx, p, "banned")
			}
		}
		l.logger.Info("address banned", slog.String("address", req.target))
	}
	req.reply <- reply
}

func (l *Loop) status() model.ServerStatus {
	status := model.ServerStatus{
		GameActive: l.game != nil,
		Countdown:  l.countdown,
		Players:    []model.PlayerStatus{},
		Denylist:   slices.Clone(l.denylist),
	}
	if l.game != nil {
		status.GameID = l.game.id
	}
	for _, p := range l.registry.Players() {
		status.Players = append(status.Players, model.PlayerStatus{
			Nickname: p.Nickname,
			Address:  p.Address,
			Score:    p.Score,
			JoinedAt: p.JoinedAt,
		})
	}
	return status
}

func (l *Loop) handleTick(ctx context.Context) {
	if l.game != nil || l.draining {
		return
	}
	if l.registry.Len() < 2 {
		l.countdown = l.cfg.lobbySeconds()
		return
	}

	if l.countdown <= 0 {
		l.startGame(ctx)
		return
	}
	if render.ShouldCountdown(l.countdown) {
		l.broadcast(l.renderer.Countdown(l.countdown))
	}
	l.countdown--
}

func (l *Loop) startGame(ctx context.Context) {
	l.countdown = l.cfg.lobbySeconds()

	commands := make(chan model.Command)
	session, err := game.NewSession(l.cfg.Game, &loopRoster{requests: l.roster}, commands,
		l.scoring, l.renderer, l.publisher, l.clock, l.random, l.logger)
	if err != nil {
		l.logger.Error("failed to create game", slog.String("error", err.Error()))
		return
	}

	gameCtx, cancel := context.WithCancel(ctx)
	l.game = &activeGame{
		id:       session.ID(),
		commands: commands,
		cancel:   cancel,
		start:    l.registry.Scoreboard(),
	}
	l.broadcast(l.renderer.Clear())

	go func() {
		summary, err := session.Run(gameCtx)
		l.gameDone <- gameResult{summary: summary, err: err}
	}()
}

func (l *Loop) handleGameDone(ctx context.Context, res gameResult) {
	g := l.game
	if g == nil {
		return
	}
	l.game = nil
	g.cancel()
	l.countdown = l.cfg.lobbySeconds()

	if res.err != nil {
		l.logger.Warn("game interrupted", slog.String("game_id", string(g.id)), slog.String("error", res.err.Error()))
	}
	if res.summary != nil {
		l.record(ctx, g, res.summary)
	}
	if !l.draining {
		l.broadcast(l.renderer.LobbyWait(l.countdown, false))
	}
}

// record stores the summary and credits each player's gain in this game
func (l *Loop) record(ctx context.Context, g *activeGame, summary *model.GameSummary) {
	if l.storage == nil || len(summary.Rounds) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storageTimeout)
	defer cancel()

	if err := l.storage.SaveGameSummary(ctx, summary); err != nil {
		l.logger.Error("failed to save game", slog.String("game_id", string(summary.ID)), slog.String("error", err.Error()))
	}
	for nick, score := range summary.FinalScores {
		if gain := score - g.start[nick]; gain > 0 {
			if err := l.storage.AddLeaderboardPoints(ctx, nick, gain); err != nil {
				l.logger.Error("failed to update leaderboard", slog.String("nickname", nick), slog.String("error", err.Error()))
			}
		}
	}
}

func (l *Loop) interruptGame() {
	if l.game != nil {
		l.game.cancel()
	}
}

func (l *Loop) closeAll(notice string) {
	for _, p := range l.registry.Players() {
		_ = p.Conn.Send(l.renderer.Notice("%s", notice))
		_ = p.Conn.Close()
		l.registry.RemoveByConn(p.Conn)
	}
	clear(l.limiters)
}

// view is the state handshake workers negotiate against
func (l *Loop) view() transport.View {
	return transport.View{
		Roster:     l.registry.Snapshot(),
		Denylist:   slices.Clone(l.denylist),
		Countdown:  l.countdown,
		GameActive: l.game != nil,
	}
}

func (l *Loop) broadcast(text string) {
	l.broadcastExcept("", text)
}

func (l *Loop) broadcastExcept(nickname, text string) {
	for _, p := range l.registry.Players() {
		if p.Nickname != nickname {
			_ = p.Conn.Send(text)
		}
	}
}

func (l *Loop) publish(eventType model.EventType, nickname string, payload any) {
	event := model.Event{
		Type:      eventType,
		Timestamp: l.clock.Now(),
		Nickname:  nickname,
		Payload:   payload,
	}
	if l.game != nil {
		event.GameID = l.game.id
	}
	l.publisher.Publish(event)
}

func (l *Loop) newLimiter() *rate.Limiter {
	if l.cfg.ChatRate <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(l.cfg.ChatRate), max(1, l.cfg.ChatBurst))
}
