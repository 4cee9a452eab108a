package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/render"
	"github.com/isdelr/credgate/internal/api/respond"
	"github.com/isdelr/credgate/internal/auth"
	"github.com/isdelr/credgate/internal/models"
	"github.com/isdelr/credgate/internal/services"
	"github.com/isdelr/credgate/internal/session"
	"github.com/rs/zerolog/hlog"
)

// AuthHandler handles registration, login and logout.
type AuthHandler struct {
	users    services.UserServiceProvider
	sessions session.Provider
	hasher   auth.Hasher
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users services.UserServiceProvider, sessions session.Provider, hasher auth.Hasher) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, hasher: hasher}
}

// Register handles new user registration.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	creds, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	in := auth.Input{Request: r, Credentials: creds}
	if out := auth.Run(in, auth.CheckPasswordLength, auth.CheckUsernameFree(h.users)); !out.Passed() {
		out.Write(w, r)
		return
	}

	hash, err := h.hasher.Hash(creds.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			err = respond.NewError(http.StatusUnprocessableEntity, "Password must be at most 72 bytes")
		}
		respond.Error(w, r, err)
		return
	}

	user, err := h.users.Add(r.Context(), models.User{Username: creds.Username, Password: hash})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	hlog.FromRequest(r).Info().Int64("user_id", user.UserID).Str("username", user.Username).Msg("User registered")
	respond.JSON(w, r, http.StatusOK, user)
}

// Login checks credentials and stores the user in the session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	creds, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	in := auth.Input{Request: r, Credentials: creds}
	if out := auth.Run(in, auth.CheckUsernameExists(h.users), auth.CheckPasswordLength); !out.Passed() {
		out.Write(w, r)
		return
	}

	found, err := h.users.FindBy(r.Context(), services.ByUsername(creds.Username))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if len(found) == 0 || !h.hasher.Verify(creds.Password, found[0].Password) {
		hlog.FromRequest(r).Warn().Str("username", creds.Username).Msg("Failed authentication attempt")
		respond.Error(w, r, respond.NewError(http.StatusUnauthorized, "invalid username or password"))
		return
	}

	if err := h.sessions.SetUser(w, r, found[0]); err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.Message(w, r, http.StatusOK, "welcome back "+creds.Username)
}

// Logout destroys the current session before responding.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	_, ok, err := h.sessions.User(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if !ok {
		respond.Message(w, r, http.StatusUnauthorized, "no session found")
		return
	}

	if err := h.sessions.Destroy(w, r); err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.Message(w, r, http.StatusOK, "you have been logged out")
}

// decodeCredentials reads the JSON body. An empty body yields empty
// credentials so the guards report what is missing.
func decodeCredentials(w http.ResponseWriter, r *http.Request) (models.Credentials, bool) {
	var creds models.Credentials
	if err := render.DecodeJSON(r.Body, &creds); err != nil && !errors.Is(err, io.EOF) {
		respond.Message(w, r, http.StatusBadRequest, "invalid request body")
		return creds, false
	}
	return creds, true
}
