// Package session keeps per-client state on the server. The client only
// holds a signed cookie carrying the session id; values live in a Backend.
package session

import (
	"context"
	"encoding/gob"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/isdelr/credgate/internal/models"
)

// ErrNotFound is returned by a Backend for missing or expired sessions.
var ErrNotFound = errors.New("session not found")

func init() {
	gob.Register(models.User{})
}

// Backend persists encoded session data keyed by session id.
type Backend interface {
	Load(ctx context.Context, id string) (string, error)
	Save(ctx context.Context, id, data string, expiresAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// Store is a gorilla/sessions Store whose values are kept server-side.
type Store struct {
	backend Backend
	Codecs  []securecookie.Codec
	Options *sessions.Options
}

var _ sessions.Store = (*Store)(nil)

// NewStore returns a Store over backend. keyPairs are hash/block key pairs
// as accepted by securecookie.CodecsFromPairs.
func NewStore(backend Backend, keyPairs ...[]byte) *Store {
	s := &Store{
		backend: backend,
		Codecs:  securecookie.CodecsFromPairs(keyPairs...),
		Options: &sessions.Options{
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
	}
	s.MaxAge(86400 * 30)
	return s
}

// MaxAge sets the lifetime in seconds of new sessions and of the codecs'
// signed values.
func (s *Store) MaxAge(age int) {
	s.Options.MaxAge = age
	for _, codec := range s.Codecs {
		if sc, ok := codec.(*securecookie.SecureCookie); ok {
			sc.MaxAge(age)
		}
	}
}

// Get returns the session cached for the request, loading it on first use.
func (s *Store) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

// New loads the session named by the request cookie. A missing, forged or
// expired cookie yields a fresh anonymous session and no error; only
// backend failures are returned.
func (s *Store) New(r *http.Request, name string) (*sessions.Session, error) {
	session := sessions.NewSession(s, name)
	opts := *s.Options
	session.Options = &opts
	session.IsNew = true

	cookie, err := r.Cookie(name)
	if err != nil {
		return session, nil
	}
	if err := securecookie.DecodeMulti(name, cookie.Value, &session.ID, s.Codecs...); err != nil {
		session.ID = ""
		return session, nil
	}

	err = s.load(r.Context(), session)
	switch {
	case err == nil:
		session.IsNew = false
	case errors.Is(err, ErrNotFound):
		session.ID = ""
	default:
		return session, err
	}
	return session, nil
}

// Save persists the session and writes its cookie. A negative MaxAge
// deletes the stored session and expires the cookie.
func (s *Store) Save(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	ctx := r.Context()

	if session.Options.MaxAge < 0 {
		if session.ID != "" {
			if err := s.backend.Delete(ctx, session.ID); err != nil {
				return err
			}
		}
		http.SetCookie(w, sessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if session.ID == "" {
		session.ID = uuid.NewString()
	}

	data, err := securecookie.EncodeMulti(session.Name(), session.Values, s.Codecs...)
	if err != nil {
		return err
	}
	if err := s.backend.Save(ctx, session.ID, data, s.expiry(session)); err != nil {
		return err
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.Codecs...)
	if err != nil {
		return err
	}
	http.SetCookie(w, sessions.NewCookie(session.Name(), encoded, session.Options))
	return nil
}

func (s *Store) load(ctx context.Context, session *sessions.Session) error {
	data, err := s.backend.Load(ctx, session.ID)
	if err != nil {
		return err
	}
	if err := securecookie.DecodeMulti(session.Name(), data, &session.Values, s.Codecs...); err != nil {
		// Rows signed with a rotated-out key are as good as gone.
		return ErrNotFound
	}
	return nil
}

func (s *Store) expiry(session *sessions.Session) time.Time {
	age := session.Options.MaxAge
	if age == 0 {
		age = s.Options.MaxAge
	}
	return time.Now().Add(time.Duration(age) * time.Second)
}
