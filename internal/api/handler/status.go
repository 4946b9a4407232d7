package handler

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mcoot/nethang/internal/api/request"
	"github.com/mcoot/nethang/internal/api/response"
	"github.com/mcoot/nethang/internal/model"
)

// ServerControl is the part of the game server the API drives
type ServerControl interface {
	Status(ctx context.Context) (model.ServerStatus, error)
	Kick(ctx context.Context, nickname string) error
	Ban(ctx context.Context, address string) error
}

// StatusHandler handles live server endpoints
type StatusHandler struct {
	control ServerControl
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(control ServerControl) *StatusHandler {
	return &StatusHandler{control: control}
}

// Get handles GET /api/v1/status
func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	status, err := h.control.Status(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.StatusFromModel(status))
}

// Kick handles POST /api/v1/players/{nickname}/kick
func (h *StatusHandler) Kick(w http.ResponseWriter, r *http.Request) {
	nickname := mux.Vars(r)["nickname"]
	if err := h.control.Kick(r.Context(), nickname); err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.Action{Action: "kick", Target: nickname})
}

// Ban handles POST /api/v1/bans
func (h *StatusHandler) Ban(w http.ResponseWriter, r *http.Request) {
	var req request.BanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("Invalid request body"))
		return
	}
	address := strings.TrimSpace(req.Address)
	if net.ParseIP(address) == nil {
		WriteError(w, NewInvalidRequestError("address must be an IP address"))
		return
	}

	if err := h.control.Ban(r.Context(), address); err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.Action{Action: "ban", Target: address})
}
