package medicover

import "sync"

// Session is one bearer token pair. The access token is short-lived, the
// refresh token survives it. Both are opaque strings.
type Session struct {
	AccessToken  string
	RefreshToken string
}

// sessionCell is the single mutable cell shared by everything issued from one
// Client: the retry wrapper, the refresh path and every concurrent monitor
// read and replace the session through it. Replacement is wholesale; a 401
// clears it before any retry so other goroutines observe the invalidation.
type sessionCell struct {
	mu      sync.Mutex
	session *Session
}

// Get returns the current session, or nil when signed out.
func (c *sessionCell) Get() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Set replaces the session wholesale.
func (c *sessionCell) Set(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

// Clear drops the session, marking it invalid.
func (c *sessionCell) Clear() {
	c.Set(nil)
}
