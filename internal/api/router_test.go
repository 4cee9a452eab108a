package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/isdelr/credgate/internal/auth"
	"github.com/isdelr/credgate/internal/services"
	"github.com/isdelr/credgate/internal/session"
	"github.com/isdelr/credgate/internal/testutil"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	*httptest.Server
	db     *sqlx.DB
	client *http.Client
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db := testutil.NewSQLite(t)
	store := session.NewStore(session.NewSQLBackend(db), []byte("0123456789abcdef0123456789abcdef"))
	store.MaxAge(3600)

	router := NewRouter(Deps{
		Users:          services.NewUserService(db),
		Sessions:       session.NewManager(store, "chocolatechip"),
		Hasher:         auth.NewBcryptHasher(bcrypt.MinCost),
		DB:             db,
		AllowedOrigins: []string{"http://localhost:3000"},
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testServer{Server: srv, db: db, client: &http.Client{Jar: jar}}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func creds(username, password string) map[string]string {
	return map[string]string{"username": username, "password": password}
}

func TestRegister_Success(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/api/auth/register", creds("sue", "1234"))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "sue", body["username"])
	assert.IsType(t, float64(0), body["user_id"])
	assert.NotContains(t, body, "password")

	var stored string
	require.NoError(t, s.db.Get(&stored, `SELECT password FROM users WHERE username = 'sue'`))
	assert.NotEqual(t, "1234", stored)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored), []byte("1234")))
}

func TestRegister_PasswordTooShort(t *testing.T) {
	s := newTestServer(t)

	bodies := []interface{}{
		creds("sue", "123"),
		creds("sue", ""),
		map[string]string{"username": "sue"},
		nil,
	}
	for _, b := range bodies {
		status, body := s.do(t, http.MethodPost, "/api/auth/register", b)
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		assert.Equal(t, "Password must be longer than 3 chars", body["message"])
	}
	assert.Zero(t, testutil.CountRows(t, s.db, "users"))
}

func TestRegister_UsernameTaken(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodPost, "/api/auth/register", creds("sue", "1234"))
	require.Equal(t, http.StatusOK, status)

	status, body := s.do(t, http.MethodPost, "/api/auth/register", creds("sue", "5678"))
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "Username taken", body["message"])
	assert.Equal(t, 1, testutil.CountRows(t, s.db, "users"))
}

func TestRegister_ShortPasswordReportedBeforeTakenName(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/auth/register", creds("sue", "1234"))

	status, body := s.do(t, http.MethodPost, "/api/auth/register", creds("sue", "12"))
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "Password must be longer than 3 chars", body["message"])
}

func TestRegister_MalformedBody(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.client.Post(s.URL+"/api/auth/register", "application/json", bytes.NewBufferString("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMissingUsername(t *testing.T) {
	s := newTestServer(t)

	for _, b := range []interface{}{creds("", "1234"), map[string]string{"password": "1234"}} {
		status, _ := s.do(t, http.MethodPost, "/api/auth/register", b)
		assert.Equal(t, http.StatusInternalServerError, status)

		status, body := s.do(t, http.MethodPost, "/api/auth/login", b)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "Invalid credentials", body["message"])
	}
	assert.Zero(t, testutil.CountRows(t, s.db, "users"))
	assert.Zero(t, testutil.CountRows(t, s.db, "sessions"))
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/auth/register", creds("sue", "1234"))

	t.Run("unknown username", func(t *testing.T) {
		status, body := s.do(t, http.MethodPost, "/api/auth/login", creds("ghost", "1234"))
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "Invalid credentials", body["message"])
	})

	t.Run("unknown username wins over short password", func(t *testing.T) {
		status, body := s.do(t, http.MethodPost, "/api/auth/login", creds("ghost", "1"))
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "Invalid credentials", body["message"])
	})

	t.Run("short password", func(t *testing.T) {
		status, body := s.do(t, http.MethodPost, "/api/auth/login", creds("sue", "123"))
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		assert.Equal(t, "Password must be longer than 3 chars", body["message"])
	})

	t.Run("wrong password", func(t *testing.T) {
		status, body := s.do(t, http.MethodPost, "/api/auth/login", creds("sue", "12345"))
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "invalid username or password", body["message"])

		status, _ = s.do(t, http.MethodGet, "/api/users", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("correct credentials", func(t *testing.T) {
		status, body := s.do(t, http.MethodPost, "/api/auth/login", creds("sue", "1234"))
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "welcome back sue", body["message"])

		status, me := s.do(t, http.MethodGet, "/api/users/me", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "sue", me["username"])
		assert.NotContains(t, me, "password")
	})
}

func TestLogout(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "no session found", body["message"])

	s.do(t, http.MethodPost, "/api/auth/register", creds("sue", "1234"))
	status, _ = s.do(t, http.MethodPost, "/api/auth/login", creds("sue", "1234"))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, testutil.CountRows(t, s.db, "sessions"))

	status, _ = s.do(t, http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, status)

	status, body = s.do(t, http.MethodGet, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "you have been logged out", body["message"])
	assert.Zero(t, testutil.CountRows(t, s.db, "sessions"))

	status, body = s.do(t, http.MethodGet, "/api/users", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "you shall not pass!", body["message"])

	status, body = s.do(t, http.MethodGet, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "no session found", body["message"])
}

func TestAnonymousRequestsPersistNoSession(t *testing.T) {
	s := newTestServer(t)

	s.do(t, http.MethodGet, "/api/users", nil)
	s.do(t, http.MethodGet, "/api/auth/logout", nil)
	s.do(t, http.MethodPost, "/api/auth/register", creds("sue", "1234"))
	assert.Zero(t, testutil.CountRows(t, s.db, "sessions"))
}

func TestUsersRoutes(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/api/users", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "you shall not pass!", body["message"])

	_, sue := s.do(t, http.MethodPost, "/api/auth/register", creds("sue", "1234"))
	s.do(t, http.MethodPost, "/api/auth/register", creds("bob", "abcd"))
	s.do(t, http.MethodPost, "/api/auth/login", creds("sue", "1234"))

	resp, err := s.client.Get(s.URL + "/api/users")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var users []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&users))
	require.Len(t, users, 2)
	for _, u := range users {
		assert.NotContains(t, u, "password")
	}

	id := int(sue["user_id"].(float64))
	status, got := s.do(t, http.MethodGet, "/api/users/"+strconv.Itoa(id), nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, sue, got)

	status, body = s.do(t, http.MethodGet, "/api/users/9999", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "User not found", body["message"])

	status, _ = s.do(t, http.MethodGet, "/api/users/abc", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	require.NoError(t, s.db.Close())
	status, _ = s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.client.Get(s.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}
