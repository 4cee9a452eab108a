package auth

import (
	"net/http"

	"github.com/isdelr/credgate/internal/session"
)

// RequireSession creates a middleware for protecting routes. Requests
// without an authenticated session get 401 "you shall not pass!".
func RequireSession(sessions session.Provider) func(http.Handler) http.Handler {
	guard := Restricted(sessions)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if out := guard(Input{Request: r}); !out.Passed() {
				out.Write(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
