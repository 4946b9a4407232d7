package handler

import (
	"net/http"
	"strconv"

	"github.com/mcoot/nethang/internal/api/apierr"
)

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return apierr.NewInvalidRequestError(message)
}

const (
	defaultLimit = 20
	maxLimit     = 100
)

// parseLimit reads the optional ?limit= query parameter
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxLimit {
		return 0, NewInvalidRequestError("limit must be between 1 and " + strconv.Itoa(maxLimit))
	}
	return limit, nil
}
