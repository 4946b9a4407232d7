package game

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/nethang/internal/dependencies/mocks"
	"github.com/mcoot/nethang/internal/model"
	"github.com/mcoot/nethang/internal/render"
	"github.com/mcoot/nethang/internal/services/scoring"
	"github.com/mcoot/nethang/internal/testutil"
)

type fakeRoster struct {
	mu      sync.Mutex
	players []model.Player
}

func (r *fakeRoster) add(nickname string) *testutil.RecordingConn {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn := testutil.NewRecordingConn("10.0.0." + fmt.Sprint(len(r.players)+1))
	r.players = append(r.players, model.Player{Conn: conn, Nickname: nickname, Address: conn.Addr})
	return conn
}

func (r *fakeRoster) remove(nickname string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.players {
		if p.Nickname == nickname {
			r.players = append(r.players[:i], r.players[i+1:]...)
			return
		}
	}
}

func (r *fakeRoster) Players(ctx context.Context) ([]model.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Player(nil), r.players...), nil
}

func (r *fakeRoster) AdjustScore(_ context.Context, nickname string, delta int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.players {
		if r.players[i].Nickname == nickname {
			r.players[i].Score += delta
			return r.players[i].Score, nil
		}
	}
	return 0, model.ErrPlayerNotFound
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.Event
}

func (p *recordingPublisher) Publish(e model.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []model.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	var types []model.EventType
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

type result struct {
	summary *model.GameSummary
	err     error
}

type SessionSuite struct {
	suite.Suite
	roster    *fakeRoster
	commands  chan model.Command
	clock     *mocks.MockClock
	random    *mocks.MockRandom
	publisher *recordingPublisher
	cfg       Config
	cancel    context.CancelFunc
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) SetupTest() {
	s.roster = &fakeRoster{}
	s.commands = make(chan model.Command)
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.random.QueueString("game0001")
	s.publisher = &recordingPublisher{}
	s.cfg = DefaultConfig()
	s.cfg.Rounds = 1
}

func (s *SessionSuite) TearDownTest() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *SessionSuite) start() <-chan result {
	session, err := NewSession(s.cfg, s.roster, s.commands, scoring.New(), render.New(false),
		s.publisher, s.clock, s.random, testutil.NopLogger())
	s.Require().NoError(err)
	s.Equal(model.GameID("game0001"), session.ID())

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	done := make(chan result, 1)
	go func() {
		summary, err := session.Run(ctx)
		done <- result{summary: summary, err: err}
	}()
	return done
}

func (s *SessionSuite) send(player, text string) {
	s.sendCommand(model.Command{Player: player, Text: text})
}

func (s *SessionSuite) sendCommand(cmd model.Command) {
	select {
	case s.commands <- cmd:
	case <-time.After(testutil.WaitTimeout):
		s.FailNow("session did not read command", cmd.Text)
	}
}

func (s *SessionSuite) wait(done <-chan result) result {
	select {
	case r := <-done:
		return r
	case <-time.After(testutil.WaitTimeout):
		s.FailNow("session did not finish")
		return result{}
	}
}

func (s *SessionSuite) waitForTimer() {
	s.Eventually(func() bool { return s.clock.PendingTimers() == 1 }, testutil.WaitTimeout, 5*time.Millisecond)
}

func (s *SessionSuite) TestLetterByLetterWin() {
	alice := s.roster.add("Alice")
	bob := s.roster.add("Bob")
	s.random.QueueIntn(0)
	done := s.start()

	alice.WaitFor(s.T(), "Choose a word:")
	bob.WaitFor(s.T(), "Waiting for Alice to choose a word...")
	s.send("Alice", "kite")

	for i, letter := range []string{"k", "i", "t", "e"} {
		bob.WaitForCount(s.T(), "Your guess:", i+1)
		s.send("Bob", letter)
	}

	r := s.wait(done)
	s.Require().NoError(r.err)
	s.Require().Len(r.summary.Rounds, 1)
	round := r.summary.Rounds[0]
	s.Equal(model.OutcomeGuessersWin, round.Outcome)
	s.Equal("Alice", round.Hanger)
	s.Equal("kite", round.Word)
	s.Equal(4, round.Turns)
	s.Equal(0, round.Fails)
	s.Equal(200, r.summary.FinalScores["Bob"])
	s.Equal(0, r.summary.FinalScores["Alice"])
	s.Equal("Bob", r.summary.Winner)
	s.Equal(EndCompleted, r.summary.EndReason)
	s.Equal(4, bob.Count("Your guess:"))
	s.Contains(alice.Output(), "It's Bob's turn.")
	s.Contains(bob.Output(), "The guessers win!")
	s.Contains(bob.Output(), "Bob guessed 'e', which is right (+50).")

	s.Equal([]model.EventType{
		model.EventGameStarted,
		model.EventRoundStarted,
		model.EventGuessResolved,
		model.EventGuessResolved,
		model.EventGuessResolved,
		model.EventGuessResolved,
		model.EventRoundEnded,
		model.EventGameEnded,
	}, s.publisher.types())
}

func (s *SessionSuite) TestWholeWordWin() {
	s.roster.add("Alice")
	bob := s.roster.add("Bob")
	s.random.QueueIntn(0)
	done := s.start()

	s.send("Alice", "Kite")
	bob.WaitFor(s.T(), "Your guess:")
	s.send("Bob", "KITE")

	r := s.wait(done)
	s.Require().NoError(r.err)
	s.Equal(model.OutcomeGuessersWin, r.summary.Rounds[0].Outcome)
	s.Equal(1, r.summary.Rounds[0].Turns)
	s.Equal(200, r.summary.FinalScores["Bob"])
}

func (s *SessionSuite) TestTimeoutPassesTurnWithoutFail() {
	s.roster.add("Alice")
	bob := s.roster.add("Bob")
	carol := s.roster.add("Carol")
	s.random.QueueIntn(0)
	done := s.start()

	s.send("Alice", "kite")
	bob.WaitFor(s.T(), "Your guess:")
	s.waitForTimer()
	s.clock.Advance(DefaultTurnTimeout)

	carol.WaitFor(s.T(), "Your guess:")
	s.send("Carol", "kite")

	r := s.wait(done)
	s.Require().NoError(r.err)
	round := r.summary.Rounds[0]
	s.Equal(model.OutcomeGuessersWin, round.Outcome)
	s.Equal(0, round.Fails)
	s.Equal(2, round.Turns)
	s.Equal(0, r.summary.FinalScores["Bob"])
	s.Equal(200, r.summary.FinalScores["Carol"])
}

func (s *SessionSuite) TestLossAfterTenFails() {
	s.roster.add("Alice")
	bob := s.roster.add("Bob")
	s.random.QueueIntn(0)
	done := s.start()

	s.send("Alice", "kite")
	for i, letter := range []string{"b", "c", "d", "f", "g", "h", "j", "l", "m", "n"} {
		bob.WaitForCount(s.T(), "Your guess:", i+1)
		s.send("Bob", letter)
	}

	r := s.wait(done)
	s.Require().NoError(r.err)
	round := r.summary.Rounds[0]
	s.Equal(model.OutcomeGuessersLose, round.Outcome)
	s.Equal(10, round.Fails)
	s.Equal(10, bob.Count("Your guess:"))
	s.Contains(bob.Output(), "The guessers were hanged!")
	s.Less(r.summary.FinalScores["Bob"], 0)
}

func (s *SessionSuite) TestRepeatedLetterPenalty() {
	s.roster.add("Alice")
	bob := s.roster.add("Bob")
	s.random.QueueIntn(0)
	done := s.start()

	s.send("Alice", "kite")
	bob.WaitForCount(s.T(), "Your guess:", 1)
	s.send("Bob", "k")
	bob.WaitForCount(s.T(), "Your guess:", 2)
	s.send("Bob", "k")
	bob.WaitForCount(s.T(), "Your guess:", 3)
	s.send("Bob", "kite")

	r := s.wait(done)
	s.Require().NoError(r.err)
	s.Equal(1, r.summary.Rounds[0].Fails)
	s.Equal(50-10+200, r.summary.FinalScores["Bob"])
	s.Contains(bob.Output(), "Bob guessed 'k', which was already tried (-10).")
}

func (s *SessionSuite) TestOthersAreToldToWait() {
	s.roster.add("Alice")
	bob := s.roster.add("Bob")
	carol := s.roster.add("Carol")
	s.random.QueueIntn(0)
	done := s.start()

	carol.WaitFor(s.T(), "Waiting for Alice")
	s.send("Carol", "hello")
	carol.WaitFor(s.T(), "Wait for the hanger.")

	s.send("Alice", "kite")
	bob.WaitFor(s.T(), "Your guess:")
	s.send("Carol", "k")
	carol.WaitFor(s.T(), "Wait your turn!")

	s.send("Bob", "kite")
	r := s.wait(done)
	s.Require().NoError(r.err)
	s.Equal(1, r.summary.Rounds[0].Turns)
}

func (s *SessionSuite) TestInvalidWordAndGuessReprompt() {
	alice := s.roster.add("Alice")
	bob := s.roster.add("Bob")
	s.random.QueueIntn(0)
	done := s.start()

	alice.WaitFor(s.T(), "Choose a word:")
	s.send("Alice", "a")
	alice.WaitForCount(s.T(), "Choose a word:", 2)
	s.Contains(alice.Output(), "Words must be 2 to 80 characters")
	s.send("Alice", "42")
	alice.WaitForCount(s.T(), "Choose a word:", 3)
	s.send("Alice", "kite")

	bob.WaitForCount(s.T(), "Your guess:", 1)
	s.send("Bob", "kites")
	bob.WaitForCount(s.T(), "Your guess:", 2)
	s.Contains(bob.Output(), "Invalid guess: the word has 4 characters.")
	s.send("Bob", "kite")

	r := s.wait(done)
	s.Require().NoError(r.err)
	s.Equal(1, r.summary.Rounds[0].Turns)
	s.Equal(0, r.summary.Rounds[0].Fails)
}

func (s *SessionSuite) TestHangerLeavesBeforeChoosing() {
	alice := s.roster.add("Alice")
	bob := s.roster.add("Bob")
	s.random.QueueIntn(0)
	done := s.start()

	alice.WaitFor(s.T(), "Choose a word:")
	s.roster.remove("Alice")
	s.sendCommand(model.LeaveCommand("Alice"))

	r := s.wait(done)
	s.Require().NoError(r.err)
	s.Require().Len(r.summary.Rounds, 1)
	s.Equal(model.OutcomeAborted, r.summary.Rounds[0].Outcome)
	s.Contains(bob.Output(), "Alice left the game.")
	s.Contains(bob.Output(), "The round was abandoned.")
}

func (s *SessionSuite) TestHangerTakesTooLong() {
	alice := s.roster.add("Alice")
	s.roster.add("Bob")
	s.random.QueueIntn(0)
	done := s.start()

	alice.WaitFor(s.T(), "Choose a word:")
	s.waitForTimer()
	s.clock.Advance(DefaultWordTimeout)

	r := s.wait(done)
	s.Require().NoError(r.err)
	s.Equal(model.OutcomeAborted, r.summary.Rounds[0].Outcome)
}

func (s *SessionSuite) TestLastGuesserLeavingAbortsRound() {
	s.roster.add("Alice")
	bob := s.roster.add("Bob")
	s.random.QueueIntn(0)
	done := s.start()

	s.send("Alice", "kite")
	bob.WaitFor(s.T(), "Your guess:")
	s.roster.remove("Bob")
	s.sendCommand(model.LeaveCommand("Bob"))

	r := s.wait(done)
	s.Require().NoError(r.err)
	s.Equal(model.OutcomeAborted, r.summary.Rounds[0].Outcome)
	s.Equal(1, r.summary.Rounds[0].Turns)
}

func (s *SessionSuite) TestJoinDuringRoundIsAnnounced() {
	s.roster.add("Alice")
	bob := s.roster.add("Bob")
	s.random.QueueIntn(0)
	done := s.start()

	s.send("Alice", "kite")
	bob.WaitFor(s.T(), "Your guess:")
	dave := s.roster.add("Dave")
	s.sendCommand(model.JoinCommand("Dave"))
	bob.WaitFor(s.T(), "Dave joined and will play from the next round.")
	s.send("Bob", "kite")

	r := s.wait(done)
	s.Require().NoError(r.err)
	s.NotContains(dave.Output(), "Dave joined")
	s.Equal(0, dave.Count("Your guess:"))
}

func (s *SessionSuite) TestHangerRotatesBetweenRounds() {
	s.cfg.Rounds = 2
	alice := s.roster.add("Alice")
	bob := s.roster.add("Bob")
	// Alice, then Alice again (rerolled), then Bob
	s.random.QueueIntn(0, 0, 1)
	done := s.start()

	s.send("Alice", "kite")
	bob.WaitFor(s.T(), "Your guess:")
	s.send("Bob", "kite")

	bob.WaitFor(s.T(), "Choose a word:")
	s.send("Bob", "moon")
	alice.WaitFor(s.T(), "Your guess:")
	s.send("Alice", "moon")

	r := s.wait(done)
	s.Require().NoError(r.err)
	s.Require().Len(r.summary.Rounds, 2)
	s.Equal("Alice", r.summary.Rounds[0].Hanger)
	s.Equal("Bob", r.summary.Rounds[1].Hanger)
	s.Equal("", r.summary.Winner)
}

func (s *SessionSuite) TestNotEnoughPlayers() {
	alice := s.roster.add("Alice")
	done := s.start()

	r := s.wait(done)
	s.Require().NoError(r.err)
	s.Empty(r.summary.Rounds)
	s.Equal(EndNotEnoughPlayers, r.summary.EndReason)
	s.Contains(alice.Output(), "Not enough players")
}

func (s *SessionSuite) TestCancelledWhileWaiting() {
	alice := s.roster.add("Alice")
	s.roster.add("Bob")
	s.random.QueueIntn(0)
	done := s.start()

	alice.WaitFor(s.T(), "Choose a word:")
	s.cancel()

	r := s.wait(done)
	s.ErrorIs(r.err, context.Canceled)
	s.Equal(EndInterrupted, r.summary.EndReason)
}

func TestNewSessionRejectsUnimplementedModes(t *testing.T) {
	for _, mode := range []model.GameMode{model.ModeKingOfHill, model.ModeWordlist, model.ModeTimeAttack} {
		cfg := DefaultConfig()
		cfg.Mode = mode
		_, err := NewSession(cfg, &fakeRoster{}, nil, scoring.New(), render.New(false),
			nil, mocks.NewMockClock(time.Now()), mocks.NewMockRandom(), testutil.NopLogger())
		assert.ErrorIs(t, err, model.ErrNotImplemented, "mode %s", mode)
	}
}
