package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/nethang/internal/api/apierr"
	"github.com/mcoot/nethang/internal/api/handler"
	"github.com/mcoot/nethang/internal/api/middleware"
	"github.com/mcoot/nethang/internal/api/response"
	"github.com/mcoot/nethang/internal/api/sse"
	"github.com/mcoot/nethang/internal/services/auth"
	"github.com/mcoot/nethang/internal/storage"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	Control     handler.ServerControl
	Storage     storage.Storage
	AuthService *auth.Service
	Hub         *sse.Hub
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		apierr.WriteError(w, apierr.NewNotFoundError())
	})

	// Create handlers
	statusHandler := handler.NewStatusHandler(cfg.Control)
	gamesHandler := handler.NewGamesHandler(cfg.Storage)
	eventsHandler := handler.NewEventsHandler(cfg.Hub)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Recovery(cfg.Logger))
	api.Use(middleware.Logging(cfg.Logger))

	// Public routes
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	api.HandleFunc("/status", statusHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/games", gamesHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/games/{id}", gamesHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/leaderboard", gamesHandler.Leaderboard).Methods(http.MethodGet)
	api.HandleFunc("/events", eventsHandler.Stream).Methods(http.MethodGet)

	// Admin routes
	admin := api.NewRoute().Subrouter()
	admin.Use(middleware.Admin(cfg.AuthService))
	admin.HandleFunc("/players/{nickname}/kick", statusHandler.Kick).Methods(http.MethodPost)
	admin.HandleFunc("/bans", statusHandler.Ban).Methods(http.MethodPost)

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
}
