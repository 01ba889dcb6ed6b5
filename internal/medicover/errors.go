package medicover

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrIncorrectLogin means the portal rejected the credentials: the login form
// round-trip finished without an authorization code. Never retried
// automatically; the user has to re-enter credentials.
var ErrIncorrectLogin = errors.New("medicover: incorrect username or password")

// AuthenticationError means the retry budget was exhausted while trying to
// re-establish a session.
type AuthenticationError struct {
	Attempts int
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("medicover: failed to sign in after %d attempts", e.Attempts)
}

// StatusError is a non-2xx response from the portal API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("medicover: portal returned status %d", e.Code)
	}
	return fmt.Sprintf("medicover: portal returned status %d: %s", e.Code, e.Body)
}

// IsUnauthorized reports whether err is a 401 from the portal, the one case
// the retry wrapper treats as "session is dead, log in again".
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusUnauthorized
}

// IsAuthFatal reports whether err means authentication cannot be recovered
// without user action. The monitoring loop stops on these instead of
// retrying.
func IsAuthFatal(err error) bool {
	var ae *AuthenticationError
	return errors.Is(err, ErrIncorrectLogin) || errors.As(err, &ae)
}
