package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/nethang/internal/api/response"
	"github.com/mcoot/nethang/internal/model"
	"github.com/mcoot/nethang/internal/storage"
)

// GamesHandler serves game history and the leaderboard
type GamesHandler struct {
	storage storage.Storage
}

// NewGamesHandler creates a new games handler
func NewGamesHandler(store storage.Storage) *GamesHandler {
	return &GamesHandler{storage: store}
}

// List handles GET /api/v1/games
func (h *GamesHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	summaries, err := h.storage.ListGameSummaries(r.Context(), limit)
	if err != nil {
		WriteError(w, err)
		return
	}

	games := make([]response.GameSummary, len(summaries))
	for i, s := range summaries {
		games[i] = response.GameSummaryFromModel(s)
	}
	response.JSON(w, http.StatusOK, response.GameList{Games: games})
}

// Get handles GET /api/v1/games/{id}
func (h *GamesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.GameID(mux.Vars(r)["id"])

	summary, err := h.storage.GetGameSummary(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.GameSummaryFromModel(summary))
}

// Leaderboard handles GET /api/v1/leaderboard
func (h *GamesHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	entries, err := h.storage.Leaderboard(r.Context(), limit)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.LeaderboardFromModel(entries))
}
