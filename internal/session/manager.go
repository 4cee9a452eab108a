package session

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/isdelr/credgate/internal/models"
)

const userKey = "user"

// Provider gives handlers access to the user slot of the current
// request's session.
type Provider interface {
	// User returns the authenticated user, if any.
	User(r *http.Request) (models.User, bool, error)
	// SetUser stores user in the session and persists it.
	SetUser(w http.ResponseWriter, r *http.Request, user models.User) error
	// Destroy removes the session from storage and expires its cookie.
	Destroy(w http.ResponseWriter, r *http.Request) error
}

// Manager implements Provider on top of a gorilla/sessions Store.
type Manager struct {
	store sessions.Store
	name  string
}

// NewManager creates a Manager for the session cookie called name.
func NewManager(store sessions.Store, name string) *Manager {
	return &Manager{store: store, name: name}
}

func (m *Manager) User(r *http.Request) (models.User, bool, error) {
	s, err := m.store.Get(r, m.name)
	if err != nil {
		return models.User{}, false, err
	}
	user, ok := s.Values[userKey].(models.User)
	return user, ok, nil
}

func (m *Manager) SetUser(w http.ResponseWriter, r *http.Request, user models.User) error {
	s, err := m.store.Get(r, m.name)
	if err != nil {
		return err
	}
	user.Password = ""
	s.Values[userKey] = user
	return s.Save(r, w)
}

func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) error {
	s, err := m.store.Get(r, m.name)
	if err != nil {
		return err
	}
	delete(s.Values, userKey)
	s.Options.MaxAge = -1
	return s.Save(r, w)
}
