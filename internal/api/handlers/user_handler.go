package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/credgate/internal/api/respond"
	"github.com/isdelr/credgate/internal/services"
	"github.com/isdelr/credgate/internal/session"
	"github.com/rs/zerolog/hlog"
)

// UserHandler handles HTTP requests for registered users. Its routes sit
// behind auth.RequireSession.
type UserHandler struct {
	service  services.UserServiceProvider
	sessions session.Provider
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider, sessions session.Provider) *UserHandler {
	return &UserHandler{service: service, sessions: sessions}
}

// List returns every user as {user_id, username}.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.Find(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, users)
}

// GetMe returns the user held by the current session.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, ok, err := h.sessions.User(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if !ok {
		respond.Message(w, r, http.StatusUnauthorized, "no session found")
		return
	}
	respond.JSON(w, r, http.StatusOK, user)
}

// Get handles retrieving a user by their ID.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond.Message(w, r, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			hlog.FromRequest(r).Debug().Int64("user_id", id).Msg("User not found")
			respond.Message(w, r, http.StatusNotFound, "User not found")
			return
		}
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, user)
}
