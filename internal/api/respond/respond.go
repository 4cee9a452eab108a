// Package respond shapes every JSON response of the API, including the
// single path that turns forwarded errors into status codes.
package respond

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/rs/zerolog/hlog"
)

// HTTPError is a failure with a known status and client-facing message.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewError creates an HTTPError.
func NewError(status int, message string) *HTTPError {
	return &HTTPError{Status: status, Message: message}
}

// MessageBody is the body of every message and error response.
type MessageBody struct {
	Message string `json:"message"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

// Message writes {"message": message} with the given status.
func Message(w http.ResponseWriter, r *http.Request, status int, message string) {
	JSON(w, r, status, MessageBody{Message: message})
}

// Error is the generic error handler. HTTPErrors keep their status and
// message; anything else is logged and reported as a 500.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		Message(w, r, httpErr.Status, httpErr.Message)
		return
	}

	hlog.FromRequest(r).Error().Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("Request failed")
	Message(w, r, http.StatusInternalServerError, "internal server error")
}
