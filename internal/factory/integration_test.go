package factory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/nethang/internal/api/response"
	"github.com/mcoot/nethang/internal/model"
	"github.com/mcoot/nethang/internal/server"
	"github.com/mcoot/nethang/internal/services/auth"
	"github.com/mcoot/nethang/internal/testutil"
	"github.com/mcoot/nethang/internal/transport"
)

const adminToken = "integration-admin"

type IntegrationSuite struct {
	suite.Suite
	app    *TestApp
	router http.Handler
	ctx    context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.ctx = context.Background()

	cfg := server.DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Ports = []int{transport.AutoPort}
	cfg.AllowSameAddress = true
	cfg.HandshakeWorkers = 2
	cfg.DrainWindow = 0
	cfg.Color = false
	cfg.LobbyWait = 2 * time.Second
	cfg.Game.Rounds = 1

	hash, err := bcrypt.GenerateFromPassword([]byte(adminToken), bcrypt.MinCost)
	s.Require().NoError(err)

	s.app = NewTestApp(cfg, auth.Config{TokenHash: string(hash)})
	s.app.MockRandom.QueueString("game0001")
	s.router = s.app.Router()
	s.Require().NoError(s.app.Server.Start(s.ctx))
}

func (s *IntegrationSuite) TearDownTest() {
	ctx, cancel := context.WithTimeout(s.ctx, 2*time.Second)
	defer cancel()
	s.NoError(s.app.Server.Stop(ctx))
	s.NoError(s.app.Close())
}

func (s *IntegrationSuite) join(nickname string) *testutil.TermClient {
	c := testutil.DialTermClient(s.T(), s.app.Server.Addr().String())
	c.WaitFor(s.T(), transport.PromptNickname)
	c.Send(s.T(), nickname)
	c.WaitFor(s.T(), "Your rejoin code is")
	return c
}

func (s *IntegrationSuite) get(path string, out any) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	if out != nil && rr.Code == http.StatusOK {
		s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), out))
	}
	return rr.Code
}

func (s *IntegrationSuite) waitPlayers(n int) {
	s.Require().Eventually(func() bool {
		var status response.Status
		return s.get("/api/v1/status", &status) == http.StatusOK && len(status.Players) == n
	}, testutil.WaitTimeout, 10*time.Millisecond)
}

// Test: two players play a one-round game and the API reports the result
func (s *IntegrationSuite) TestGameIsPlayedAndReported() {
	alice := s.join("Alice")
	bob := s.join("Bob")
	s.waitPlayers(2)

	// Step 1: run the lobby countdown on the mock clock
	s.Require().Eventually(func() bool {
		s.app.MockClock.Advance(time.Second)
		return alice.Count("Choose a word:") > 0
	}, testutil.WaitTimeout, 20*time.Millisecond)

	// Step 2: Alice hangs, Bob guesses both letters
	alice.Send(s.T(), "go")
	bob.WaitFor(s.T(), "Your guess:")
	bob.Send(s.T(), "g")
	bob.WaitForCount(s.T(), "Your guess:", 2)
	bob.Send(s.T(), "o")
	bob.WaitFor(s.T(), "Game over!")

	// Step 3: the finished game reaches history and the leaderboard
	var games response.GameList
	s.Require().Eventually(func() bool {
		return s.get("/api/v1/games", &games) == http.StatusOK && len(games.Games) == 1
	}, testutil.WaitTimeout, 10*time.Millisecond)

	game := games.Games[0]
	s.Equal("game0001", game.ID)
	s.Equal(string(model.ModeRoundRobin), game.Mode)
	s.Require().NotNil(game.Winner)
	s.Equal("Bob", *game.Winner)
	s.Require().Len(game.Rounds, 1)
	s.Equal("go", game.Rounds[0].Word)
	s.Equal(string(model.OutcomeGuessersWin), game.Rounds[0].Outcome)

	var board response.Leaderboard
	s.Require().Equal(http.StatusOK, s.get("/api/v1/leaderboard", &board))
	s.Require().Len(board.Entries, 1)
	s.Equal(response.LeaderboardEntry{Rank: 1, Nickname: "Bob", Score: 100}, board.Entries[0])

	var status response.Status
	s.Require().Equal(http.StatusOK, s.get("/api/v1/status", &status))
	s.False(status.GameActive)
}

// Test: an admin kick through the API disconnects the player
func (s *IntegrationSuite) TestAdminKick() {
	alice := s.join("Alice")
	s.join("Bob")
	s.waitPlayers(2)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/players/Alice/kick", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	s.Require().Equal(http.StatusOK, rr.Code)

	alice.WaitFor(s.T(), "You have been removed from the server.")
	alice.WaitClosed(s.T())
	s.waitPlayers(1)
}

// Test: the API reports the game server as unavailable once stopped
func (s *IntegrationSuite) TestStatusAfterStop() {
	ctx, cancel := context.WithTimeout(s.ctx, 2*time.Second)
	defer cancel()
	s.Require().NoError(s.app.Server.Stop(ctx))

	s.Equal(http.StatusServiceUnavailable, s.get("/api/v1/status", nil))
}
