package medicover

import "context"

// maxLoginAttempts bounds how many times a guarded call may run before
// authentication is declared failed.
const maxLoginAttempts = 3

// withLoginRetry guards one API operation with the session lifecycle:
//
//  1. if there is no session, log in first;
//  2. refresh the token (best effort, keeps the access token fresh);
//  3. run the operation;
//  4. on a 401 drop the session and start over;
//  5. after maxLoginAttempts raise *AuthenticationError.
//
// Every other error, including ErrIncorrectLogin from a nested login and any
// non-401 status, passes through unchanged. Callers decide what to do with
// those.
func (c *Client) withLoginRetry(ctx context.Context, op func(context.Context) error) error {
	for attempt := 1; attempt <= maxLoginAttempts; attempt++ {
		if c.session.Get() == nil {
			c.logger.Warn("no active session, signing in", "attempt", attempt)
			sess, err := c.auth.Login(ctx, c.creds)
			if err != nil {
				return err
			}
			c.session.Set(sess)
		}

		refreshed, _ := c.auth.Refresh(ctx, c.session.Get())
		c.session.Set(refreshed)

		err := op(ctx)
		if err == nil {
			return nil
		}
		if !IsUnauthorized(err) {
			return err
		}

		// The session is dead for everyone sharing this client; invalidate
		// before any retry.
		c.session.Clear()
		c.logger.Warn("portal returned 401, re-authenticating", "attempt", attempt)
	}
	return &AuthenticationError{Attempts: maxLoginAttempts}
}
