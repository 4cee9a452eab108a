package auth

import (
	"net/http"
	"unicode/utf8"

	"github.com/isdelr/credgate/internal/api/respond"
	"github.com/isdelr/credgate/internal/models"
	"github.com/isdelr/credgate/internal/services"
	"github.com/isdelr/credgate/internal/session"
)

// Guard failure messages.
const (
	MsgShallNotPass       = "you shall not pass!"
	MsgUsernameTaken      = "Username taken"
	MsgInvalidCredentials = "Invalid credentials"
	MsgPasswordTooShort   = "Password must be longer than 3 chars"
)

// MinPasswordLength is the shortest password accepted, in characters.
const MinPasswordLength = 4

// Verdict tells the caller what to do after a guard ran.
type Verdict int

const (
	// Continue hands the request to the next stage.
	Continue Verdict = iota
	// Respond ends the request with Status and Message.
	Respond
	// Fail ends the request through the generic error handler.
	Fail
)

// Outcome is the tagged result of a guard.
type Outcome struct {
	Verdict Verdict
	Status  int
	Message string
	Err     error
}

// Next lets the request through.
func Next() Outcome {
	return Outcome{Verdict: Continue}
}

// Reject stops the request with a fixed status and message.
func Reject(status int, message string) Outcome {
	return Outcome{Verdict: Respond, Status: status, Message: message}
}

// Failure stops the request with an unexpected error.
func Failure(err error) Outcome {
	return Outcome{Verdict: Fail, Err: err}
}

// Passed reports whether the request may proceed.
func (o Outcome) Passed() bool {
	return o.Verdict == Continue
}

// Write renders a stopping outcome. It does nothing for Continue.
func (o Outcome) Write(w http.ResponseWriter, r *http.Request) {
	switch o.Verdict {
	case Respond:
		respond.Message(w, r, o.Status, o.Message)
	case Fail:
		respond.Error(w, r, o.Err)
	}
}

// Input is what a guard may inspect: the request and its decoded
// credentials, if the route takes any.
type Input struct {
	Request     *http.Request
	Credentials models.Credentials
}

// Guard validates one aspect of a request.
type Guard func(in Input) Outcome

// Run evaluates guards in order and returns the first outcome that is not
// Continue. The order decides which error a bad request sees first.
func Run(in Input, guards ...Guard) Outcome {
	for _, guard := range guards {
		if out := guard(in); !out.Passed() {
			return out
		}
	}
	return Next()
}

// Restricted passes only requests whose session holds a user.
func Restricted(sessions session.Provider) Guard {
	return func(in Input) Outcome {
		_, ok, err := sessions.User(in.Request)
		if err != nil {
			return Failure(err)
		}
		if !ok {
			return Reject(http.StatusUnauthorized, MsgShallNotPass)
		}
		return Next()
	}
}

// CheckUsernameFree rejects usernames that already belong to a user.
func CheckUsernameFree(users services.UserServiceProvider) Guard {
	return func(in Input) Outcome {
		found, err := users.FindBy(in.Request.Context(), services.ByUsername(in.Credentials.Username))
		if err != nil {
			return Failure(err)
		}
		if len(found) != 0 {
			return Reject(http.StatusUnprocessableEntity, MsgUsernameTaken)
		}
		return Next()
	}
}

// CheckUsernameExists rejects usernames that match no user.
func CheckUsernameExists(users services.UserServiceProvider) Guard {
	return func(in Input) Outcome {
		found, err := users.FindBy(in.Request.Context(), services.ByUsername(in.Credentials.Username))
		if err != nil {
			return Failure(err)
		}
		if len(found) == 0 {
			return Reject(http.StatusUnauthorized, MsgInvalidCredentials)
		}
		return Next()
	}
}

// CheckPasswordLength rejects missing passwords and those of three
// characters or fewer.
func CheckPasswordLength(in Input) Outcome {
	if utf8.RuneCountInString(in.Credentials.Password) < MinPasswordLength {
		return Reject(http.StatusUnprocessableEntity, MsgPasswordTooShort)
	}
	return Next()
}
