package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/nethang/internal/api/response"
)

type fakeAPI struct {
	*httptest.Server
	lastAuth string
	lastBody map[string]string
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{}
	winner := "Bob"
	game := response.GameSummary{
		ID:          "game0001",
		Mode:        "round-robin",
		StartedAt:   time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC),
		CompletedAt: time.Date(2024, 5, 1, 20, 3, 0, 0, time.UTC),
		Rounds:      []response.Round{{Index: 1, Hanger: "Alice", Word: "gopher", Outcome: "guessers-win", Fails: 3, Turns: 8}},
		FinalScores: map[string]int{"Alice": 0, "Bob": 250},
		Winner:      &winner,
		EndReason:   "completed",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, response.Health{Status: "ok"})
	})
	mux.HandleFunc("GET /api/v1/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, response.Status{
			Countdown: 25,
			Players: []response.Player{
				{Nickname: "Alice", Address: "10.0.0.1", Score: 40},
				{Nickname: "Bob", Address: "10.0.0.2", Score: -12},
			},
			Denylist: []string{"10.9.9.9"},
		})
	})
	mux.HandleFunc("GET /api/v1/games", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, response.GameList{Games: []response.GameSummary{game}})
	})
	mux.HandleFunc("GET /api/v1/games/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "game0001" {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: APIError{Code: "GAME_NOT_FOUND", Message: "Game not found"}})
			return
		}
		writeJSON(w, http.StatusOK, game)
	})
	mux.HandleFunc("GET /api/v1/leaderboard", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, response.Leaderboard{Entries: []response.LeaderboardEntry{{Rank: 1, Nickname: "Bob", Score: 250}}})
	})
	mux.HandleFunc("POST /api/v1/players/{nickname}/kick", func(w http.ResponseWriter, r *http.Request) {
		f.lastAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, response.Action{Action: "kick", Target: r.PathValue("nickname")})
	})
	mux.HandleFunc("POST /api/v1/bans", func(w http.ResponseWriter, r *http.Request) {
		f.lastAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&f.lastBody)
		writeJSON(w, http.StatusOK, response.Action{Action: "ban", Target: f.lastBody["address"]})
	})
	mux.HandleFunc("GET /api/v1/events", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = fmt.Fprint(w, "event: connected\ndata: {}\n\n")
		_, _ = fmt.Fprint(w, ": keepalive\n\n")
		_, _ = fmt.Fprint(w, "event: player_joined\ndata: {\"nickname\":\"Alice\"}\n\n")
		_, _ = fmt.Fprint(w, "event: chat\ndata: {\"nickname\":\"Alice\"}\n\n")
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func run(t *testing.T, api *fakeAPI, args ...string) (string, error) {
	t.Helper()
	t.Setenv("NETHANG_ADMIN_TOKEN", "")
	t.Setenv("NETHANG_TOKEN_FILE", filepath.Join(t.TempDir(), "missing"))

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--server", api.URL}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestHealth(t *testing.T) {
	api := newFakeAPI(t)

	out, err := run(t, api, "health")
	require.NoError(t, err)
	assert.Equal(t, "Status: ok\n", out)
}

func TestStatusText(t *testing.T) {
	api := newFakeAPI(t)

	out, err := run(t, api, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "next one starts in 25s")
	assert.Contains(t, out, "Players (2):")
	assert.Contains(t, out, "Bob")
	assert.Contains(t, out, "-12")
	assert.Contains(t, out, "Banned: 10.9.9.9")
}

func TestGamesJSON(t *testing.T) {
	api := newFakeAPI(t)

	out, err := run(t, api, "games", "-o", "json")
	require.NoError(t, err)

	var list response.GameList
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list.Games, 1)
	assert.Equal(t, "game0001", list.Games[0].ID)
}

func TestGameText(t *testing.T) {
	api := newFakeAPI(t)

	out, err := run(t, api, "game", "game0001")
	require.NoError(t, err)
	assert.Contains(t, out, "Winner: Bob")
	assert.Contains(t, out, `Alice hung "gopher": guessers-win after 8 turns, 3 fails`)
	assert.Contains(t, out, "Bob: 250")
}

func TestGameNotFound(t *testing.T) {
	api := newFakeAPI(t)

	_, err := run(t, api, "game", "nope")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "GAME_NOT_FOUND", apiErr.Code)
}

func TestLeaderboard(t *testing.T) {
	api := newFakeAPI(t)

	out, err := run(t, api, "leaderboard")
	require.NoError(t, err)
	assert.Contains(t, out, "1.")
	assert.Contains(t, out, "Bob")
	assert.Contains(t, out, "250")
}

func TestKickSendsToken(t *testing.T) {
	api := newFakeAPI(t)

	out, err := run(t, api, "--token", "secret", "kick", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "Kicked: Alice\n", out)
	assert.Equal(t, "Bearer secret", api.lastAuth)
}

func TestBanReadsTokenFile(t *testing.T) {
	api := newFakeAPI(t)
	tokenFile := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(tokenFile, []byte("from-file\n"), 0o600))

	out, err := run(t, api, "--token-file", tokenFile, "ban", "10.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, "Banned: 10.0.0.5\n", out)
	assert.Equal(t, "Bearer from-file", api.lastAuth)
	assert.Equal(t, "10.0.0.5", api.lastBody["address"])
}

func TestEventsStopsAfterCount(t *testing.T) {
	api := newFakeAPI(t)

	out, err := run(t, api, "events", "--json", "--count", "2")
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace([]byte(out)), []byte("\n"))
	require.Len(t, lines, 2)

	var first SSEEvent
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, "player_joined", first.Event)
	assert.JSONEq(t, `{"nickname":"Alice"}`, first.Data)
}

func TestTokenFromEnvironment(t *testing.T) {
	api := newFakeAPI(t)
	t.Setenv("NETHANG_ADMIN_TOKEN", "from-env")
	t.Setenv("NETHANG_API", api.URL)

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"kick", "Alice"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "Bearer from-env", api.lastAuth)
}

func TestFlagBeatsEnvironment(t *testing.T) {
	api := newFakeAPI(t)
	t.Setenv("NETHANG_API", "http://127.0.0.1:1")

	out, err := run(t, api, "health")
	require.NoError(t, err)
	assert.Equal(t, "Status: ok\n", out)
}

func TestUnknownOutputFormat(t *testing.T) {
	api := newFakeAPI(t)

	_, err := run(t, api, "-o", "yaml", "health")
	assert.ErrorContains(t, err, "unknown output format")
}
