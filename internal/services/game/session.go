package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mcoot/nethang/internal/dependencies/clock"
	"github.com/mcoot/nethang/internal/dependencies/random"
	"github.com/mcoot/nethang/internal/model"
	"github.com/mcoot/nethang/internal/registry"
	"github.com/mcoot/nethang/internal/render"
	"github.com/mcoot/nethang/internal/services/mask"
	"github.com/mcoot/nethang/internal/services/scoring"
)

// End reasons recorded in the game summary
const (
	EndCompleted        = "completed"
	EndNotEnoughPlayers = "not enough players"
	EndInterrupted      = "interrupted"
)

const (
	DefaultRounds        = 3
	DefaultTurnTimeout   = 60 * time.Second
	DefaultWordTimeout   = 2 * time.Minute
	DefaultMinWordLength = 2
	DefaultMaxWordLength = 80
)

const (
	maxHangerRerolls = 64

	promptWord          = "Choose a word:"
	promptGuess         = "Your guess:"
	msgWaitTurn         = "Wait your turn!"
	msgNotEnoughPlayers = "Not enough players, the game is over."
)

var (
	errRoundAborted   = errors.New("round aborted")
	errCommandsClosed = errors.New("command channel closed")
)

// Roster is the session's view of the live player registry
type Roster interface {
	Players(ctx context.Context) ([]model.Player, error)
	AdjustScore(ctx context.Context, nickname string, delta int) (int, error)
}

// Config holds the rules a session is played with
type Config struct {
	Mode          model.GameMode
	Rounds        int
	TurnTimeout   time.Duration
	WordTimeout   time.Duration
	MaxFails      int
	MinWordLength int
	MaxWordLength int
}

// DefaultConfig returns the standard round-robin rules
func DefaultConfig() Config {
	return Config{
		Mode:          model.ModeRoundRobin,
		Rounds:        DefaultRounds,
		TurnTimeout:   DefaultTurnTimeout,
		WordTimeout:   DefaultWordTimeout,
		MaxFails:      model.DefaultMaxFails,
		MinWordLength: DefaultMinWordLength,
		MaxWordLength: DefaultMaxWordLength,
	}
}

// Session plays one game of several rounds against a live roster.
// It is the only sender of game output while it runs.
type Session struct {
	id        model.GameID
	cfg       Config
	roster    Roster
	commands  <-chan model.Command
	scoring   *scoring.Service
	renderer  *render.Renderer
	publisher model.Publisher
	clock     clock.Clock
	random    random.Random
	logger    *slog.Logger

	previousHanger string
	lastScores     map[string]int
}

// NewSession creates a session; only the round-robin mode is playable
func NewSession(
	cfg Config,
	roster Roster,
	commands <-chan model.Command,
	scoringService *scoring.Service,
	renderer *render.Renderer,
	publisher model.Publisher,
	clk clock.Clock,
	rnd random.Random,
	logger *slog.Logger,
) (*Session, error) {
	if err := CheckMode(cfg.Mode); err != nil {
		return nil, err
	}
	if cfg.Mode == "" {
		cfg.Mode = model.ModeRoundRobin
	}
	if publisher == nil {
		publisher = model.NopPublisher{}
	}
	id := model.GameID(random.GameID(rnd))
	return &Session{
		id:        id,
		cfg:       cfg,
		roster:    roster,
		commands:  commands,
		scoring:   scoringService,
		renderer:  renderer,
		publisher: publisher,
		clock:     clk,
		random:    rnd,
		logger:    logger.With(slog.String("component", "game"), slog.String("game_id", string(id))),
	}, nil
}

// CheckMode reports whether mode can be played
func CheckMode(mode model.GameMode) error {
	if mode != "" && mode != model.ModeRoundRobin {
		return fmt.Errorf("game mode %s: %w", mode, model.ErrNotImplemented)
	}
	return nil
}

// ID returns the session's game ID
func (s *Session) ID() model.GameID {
	return s.id
}

// Run plays every round and returns the game summary. The error is non-nil
// only when the context is cancelled or the command channel closes; the
// summary is still returned in that case.
func (s *Session) Run(ctx context.Context) (*model.GameSummary, error) {
	summary := &model.GameSummary{
		ID:        s.id,
		Mode:      s.cfg.Mode,
		StartedAt: s.clock.Now(),
		EndReason: EndCompleted,
	}

	players, err := s.players(ctx)
	if err != nil {
		return s.finish(ctx, summary, EndInterrupted), err
	}
	s.publish(model.EventGameStarted, "", model.GameStartedPayload{
		Mode:    s.cfg.Mode,
		Rounds:  s.cfg.Rounds,
		Players: nicknames(players),
	})
	s.logger.Info("game started", slog.Int("players", len(players)), slog.Int("rounds", s.cfg.Rounds))

	for index := 1; index <= s.cfg.Rounds; index++ {
		round, err := s.playRound(ctx, index)
		if errors.Is(err, model.ErrInsufficientPlayers) {
			summary.EndReason = EndNotEnoughPlayers
			break
		}
		if err != nil {
			return s.finish(ctx, summary, EndInterrupted), err
		}
		summary.Rounds = append(summary.Rounds, round)
	}
	return s.finish(ctx, summary, summary.EndReason), nil
}

func (s *Session) finish(ctx context.Context, summary *model.GameSummary, reason string) *model.GameSummary {
	summary.EndReason = reason
	summary.CompletedAt = s.clock.Now()
	if ctx.Err() == nil {
		if players, err := s.players(ctx); err == nil {
			s.broadcast(players, s.renderer.Notice("Game over!")+s.renderer.Scoreboard(registry.Standings(s.lastScores)))
		}
	}
	summary.FinalScores = make(map[string]int, len(s.lastScores))
	for nick, score := range s.lastScores {
		summary.FinalScores[nick] = score
	}
	summary.Winner = summary.ComputeWinner()

	s.publish(model.EventGameEnded, "", model.GameEndedPayload{Summary: *summary})
	s.logger.Info("game ended",
		slog.String("reason", reason),
		slog.Int("rounds", len(summary.Rounds)),
		slog.String("winner", summary.Winner),
	)
	return summary
}

func (s *Session) playRound(ctx context.Context, index int) (model.RoundSummary, error) {
	players, err := s.players(ctx)
	if err != nil {
		return model.RoundSummary{}, err
	}
	if len(players) < 2 {
		s.broadcast(players, s.renderer.Notice(msgNotEnoughPlayers))
		return model.RoundSummary{}, model.ErrInsufficientPlayers
	}

	hanger := s.pickHanger(players)
	s.previousHanger = hanger
	var guessers []string
	for _, p := range players {
		if p.Nickname != hanger {
			guessers = append(guessers, p.Nickname)
		}
	}
	round := model.NewRound(index, hanger, guessers, s.cfg.MaxFails)
	s.publish(model.EventRoundStarted, "", model.RoundStartedPayload{Index: index, Hanger: hanger, Guessers: guessers})
	s.logger.Info("round started", slog.Int("round", index), slog.String("hanger", hanger))

	waiting := s.renderer.Notice("Round %d of %d. Waiting for %s to choose a word...", index, s.cfg.Rounds, hanger)
	s.broadcastExcept(players, hanger, waiting)

	word, err := s.awaitWord(ctx, round)
	if errors.Is(err, errRoundAborted) {
		return s.endRound(ctx, round, model.OutcomeAborted, 0), nil
	}
	if err != nil {
		return model.RoundSummary{}, err
	}
	round.Word = word

	players, err = s.players(ctx)
	if err != nil {
		return model.RoundSummary{}, err
	}
	s.broadcast(players, s.renderer.Clear()+s.renderer.Scoreboard(registry.Standings(s.lastScores)))

	turns := 0
	outcome := model.OutcomeAborted
	for {
		if round.Lost() {
			outcome = model.OutcomeGuessersLose
			break
		}
		if revealed(round) {
			outcome = model.OutcomeGuessersWin
			break
		}
		players, err := s.players(ctx)
		if err != nil {
			return model.RoundSummary{}, err
		}
		present := make(map[string]bool, len(players))
		for _, p := range players {
			present[p.Nickname] = true
		}
		guesser, ok := round.NextGuesser(func(nick string) bool { return present[nick] })
		if !ok {
			break
		}
		if err := s.playTurn(ctx, round, guesser); err != nil {
			return model.RoundSummary{}, err
		}
		turns++
	}
	return s.endRound(ctx, round, outcome, turns), nil
}

func (s *Session) endRound(ctx context.Context, round *model.Round, outcome model.RoundOutcome, turns int) model.RoundSummary {
	summary := model.RoundSummary{
		Index:   round.Index,
		Hanger:  round.Hanger,
		Word:    round.Word,
		Outcome: outcome,
		Fails:   round.Fails,
		Turns:   turns,
	}
	if players, err := s.players(ctx); err == nil {
		var text string
		if round.Word == "" {
			text = s.renderer.Notice("%s did not choose a word. The round was abandoned.", round.Hanger)
		} else {
			text = s.renderer.RoundResult(round.Word, outcome)
		}
		s.broadcast(players, text+s.renderer.Scoreboard(registry.Standings(s.lastScores)))
	}
	s.publish(model.EventRoundEnded, "", model.RoundEndedPayload{Summary: summary})
	s.logger.Info("round ended",
		slog.Int("round", round.Index),
		slog.String("outcome", string(outcome)),
		slog.Int("fails", round.Fails),
	)
	return summary
}

// awaitWord waits for the hanger to submit a valid secret word
func (s *Session) awaitWord(ctx context.Context, round *model.Round) (string, error) {
	s.sendTo(ctx, round.Hanger, s.renderer.Prompt(promptWord))

	timer := s.clock.NewTimer(s.cfg.WordTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C():
			s.logger.Info("hanger took too long", slog.String("hanger", round.Hanger))
			return "", errRoundAborted
		case cmd, ok := <-s.commands:
			if !ok {
				return "", errCommandsClosed
			}
			if s.handleSystem(ctx, cmd) {
				if nick, left := cmd.Departed(); left && nick == round.Hanger {
					return "", errRoundAborted
				}
				continue
			}
			if cmd.Player != round.Hanger {
				s.sendTo(ctx, cmd.Player, s.renderer.Notice("Wait for the hanger."))
				continue
			}
			word := strings.TrimSpace(cmd.Text)
			if err := ValidateWord(word, s.cfg.MinWordLength, s.cfg.MaxWordLength); err != nil {
				s.sendTo(ctx, round.Hanger, s.renderer.Notice("Words must be %d to %d characters with at least one letter.",
					s.cfg.MinWordLength, s.cfg.MaxWordLength)+s.renderer.Prompt(promptWord))
				continue
			}
			return word, nil
		}
	}
}

// playTurn gives one guesser one chance; it returns nil when the turn ends
// for any reason other than cancellation
func (s *Session) playTurn(ctx context.Context, round *model.Round, guesser string) error {
	players, err := s.players(ctx)
	if err != nil {
		return err
	}
	board := s.renderer.MaskedWord(round.Word, round.TriedLetters()) +
		s.renderer.Figure(round.Fails) +
		s.renderer.Tried(round.Tried)
	for _, p := range players {
		if p.Nickname == guesser {
			_ = p.Conn.Send(board + s.renderer.Prompt(promptGuess))
		} else {
			_ = p.Conn.Send(board + s.renderer.Notice("It's %s's turn.", guesser))
		}
	}

	timer := s.clock.NewTimer(s.cfg.TurnTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C():
			s.logger.Debug("turn timed out", slog.String("guesser", guesser))
			return nil
		case cmd, ok := <-s.commands:
			if !ok {
				return errCommandsClosed
			}
			if s.handleSystem(ctx, cmd) {
				if nick, left := cmd.Departed(); left && nick == guesser {
					return nil
				}
				continue
			}
			if cmd.Player != guesser {
				s.sendTo(ctx, cmd.Player, s.renderer.Notice(msgWaitTurn))
				continue
			}
			guess, err := ParseGuess(cmd.Text, round.Word)
			if err != nil {
				s.sendTo(ctx, guesser, s.renderer.Notice("Invalid guess: %s.", reason(err))+s.renderer.Prompt(promptGuess))
				continue
			}
			timer.Stop()
			return s.resolve(ctx, round, guesser, guess)
		}
	}
}

func (s *Session) resolve(ctx context.Context, round *model.Round, guesser string, guess Guess) error {
	if _, err := s.players(ctx); err != nil {
		return err
	}
	kind := Resolve(round, guess)
	delta := s.scoring.Delta(kind, s.lastScores[guesser])
	if _, err := s.roster.AdjustScore(ctx, guesser, delta); err != nil && !errors.Is(err, model.ErrPlayerNotFound) {
		return err
	}

	players, err := s.players(ctx)
	if err != nil {
		return err
	}
	s.broadcast(players, s.renderer.Clear()+
		s.renderer.Scoreboard(registry.Standings(s.lastScores))+
		s.renderer.GuessResult(guesser, guess.Text, kind, delta))

	s.publish(model.EventGuessResolved, guesser, model.GuessResolvedPayload{
		Guess: guess.Text,
		Kind:  kind,
		Delta: delta,
		Fails: round.Fails,
	})
	s.logger.Info("guess resolved",
		slog.String("guesser", guesser),
		slog.String("kind", string(kind)),
		slog.Int("delta", delta),
		slog.Int("fails", round.Fails),
	)
	return nil
}

// handleSystem announces join and leave sentinels; it reports whether cmd was one
func (s *Session) handleSystem(ctx context.Context, cmd model.Command) bool {
	if nick, ok := cmd.Departed(); ok {
		if players, err := s.players(ctx); err == nil {
			s.broadcast(players, s.renderer.Notice("%s left the game.", nick))
		}
		return true
	}
	if nick, ok := cmd.Joined(); ok {
		if players, err := s.players(ctx); err == nil {
			s.broadcastExcept(players, nick, s.renderer.Notice("%s joined and will play from the next round.", nick))
		}
		return true
	}
	return cmd.IsSystem()
}

// pickHanger chooses uniformly at random, avoiding last round's hanger
func (s *Session) pickHanger(players []model.Player) string {
	candidate := players[s.random.Intn(len(players))].Nickname
	for attempt := 0; candidate == s.previousHanger && attempt < maxHangerRerolls; attempt++ {
		candidate = players[s.random.Intn(len(players))].Nickname
	}
	if candidate == s.previousHanger {
		for _, p := range players {
			if p.Nickname != s.previousHanger {
				return p.Nickname
			}
		}
	}
	return candidate
}

// players fetches the live roster and remembers everyone's score
func (s *Session) players(ctx context.Context) ([]model.Player, error) {
	players, err := s.roster.Players(ctx)
	if err != nil {
		return nil, err
	}
	if s.lastScores == nil {
		s.lastScores = make(map[string]int)
	}
	for _, p := range players {
		s.lastScores[p.Nickname] = p.Score
	}
	return players, nil
}

func (s *Session) sendTo(ctx context.Context, nickname, text string) {
	players, err := s.players(ctx)
	if err != nil {
		return
	}
	for _, p := range players {
		if p.Nickname == nickname {
			_ = p.Conn.Send(text)
			return
		}
	}
}

func (s *Session) broadcast(players []model.Player, text string) {
	s.broadcastExcept(players, "", text)
}

func (s *Session) broadcastExcept(players []model.Player, except, text string) {
	for _, p := range players {
		if p.Nickname != except {
			_ = p.Conn.Send(text)
		}
	}
}

func (s *Session) publish(eventType model.EventType, nickname string, payload any) {
	s.publisher.Publish(model.Event{
		Type:      eventType,
		Timestamp: s.clock.Now(),
		GameID:    s.id,
		Nickname:  nickname,
		Payload:   payload,
	})
}

func revealed(round *model.Round) bool {
	return mask.Revealed(round.Word, round.TriedLetters())
}

func nicknames(players []model.Player) []string {
	names := make([]string, len(players))
	for i, p := range players {
		names[i] = p.Nickname
	}
	return names
}

// reason strips the sentinel prefix from a protocol violation
func reason(err error) string {
	return strings.TrimPrefix(err.Error(), model.ErrProtocolViolation.Error()+": ")
}
