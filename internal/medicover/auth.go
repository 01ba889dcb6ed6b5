package medicover

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/azielinski/slotwatch/pkg/logging"
)

const loginTimeout = 60 * time.Second

// Authenticator exchanges credentials for a bearer session through the
// portal's OIDC authorization-code flow with PKCE, and refreshes sessions
// without credentials.
type Authenticator struct {
	authBaseURL string
	redirectURL string
	httpClient  *http.Client
	logger      *logging.Logger
}

// AuthOption configures an Authenticator.
type AuthOption func(*Authenticator)

// WithAuthBaseURL points the login and token endpoints somewhere else. Tests
// use it to target an httptest server.
func WithAuthBaseURL(base string) AuthOption {
	return func(a *Authenticator) {
		if base != "" {
			a.authBaseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithAuthHTTPClient sets the client used for the token endpoint. The login
// flow itself always builds a fresh cookie-jar client, because the multi-hop
// redirect chain must not leak cookies between attempts.
func WithAuthHTTPClient(hc *http.Client) AuthOption {
	return func(a *Authenticator) {
		if hc != nil {
			a.httpClient = hc
		}
	}
}

// NewAuthenticator creates an authenticator against the production portal
// unless overridden.
func NewAuthenticator(logger *logging.Logger, opts ...AuthOption) *Authenticator {
	if logger == nil {
		logger = logging.Default()
	}
	a := &Authenticator{
		authBaseURL: defaultAuthBaseURL,
		redirectURL: signinRedirectURL,
		httpClient:  &http.Client{Timeout: loginTimeout},
		logger:      logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// tokenResponse is the token endpoint's JSON body. The portal issues the
// id_token as the API bearer token on first login, and a plain access_token
// on refresh.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
}

// Login runs the five round-trip login exchange: authorization request with a
// fresh PKCE pair, anti-forgery token extraction from the returned form,
// credential submission, authorization code pick-up from the redirect target,
// and the code-for-tokens exchange.
//
// Wrong credentials surface as ErrIncorrectLogin. Unexpected page structure
// is a fatal parse error, not retried.
func (a *Authenticator) Login(ctx context.Context, creds Credentials) (*Session, error) {
	verifier, challenge, err := newPKCEPair()
	if err != nil {
		return nil, fmt.Errorf("medicover: generate pkce pair: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("medicover: build cookie jar: %w", err)
	}
	hc := &http.Client{Jar: jar, Timeout: loginTimeout}

	authParams := url.Values{
		"client_id":             {oauthClientID},
		"redirect_uri":          {a.redirectURL},
		"response_type":         {"code"},
		"scope":                 {oauthScope},
		"code_challenge":        {challenge},
		"code_challenge_method": {"S256"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.authBaseURL+authorizePath+"?"+authParams.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("medicover: build authorize request: %w", err)
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("medicover: authorization request failed: %w", err)
	}

	antiForgery, err := hiddenInputValue(resp.Body, "__RequestVerificationToken")
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	// The redirect chain decides where the credentials go.
	loginURL := resp.Request.URL.String()

	loginForm := url.Values{
		"Input.ReturnUrl":            {"/connect/authorize/callback?" + authParams.Encode()},
		"Input.LoginType":            {"FullLogin"},
		"Input.Username":             {creds.Username},
		"Input.Password":             {creds.Password},
		"Input.Button":               {"login"},
		"__RequestVerificationToken": {antiForgery},
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(loginForm.Encode()))
	if err != nil {
		return nil, fmt.Errorf("medicover: build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err = hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("medicover: credential submission failed: %w", err)
	}
	resp.Body.Close()

	code := resp.Request.URL.Query().Get("code")
	if code == "" {
		return nil, ErrIncorrectLogin
	}

	tokens, err := a.exchange(ctx, url.Values{
		"grant_type":    {"authorization_code"},
		"redirect_uri":  {a.redirectURL},
		"code":          {code},
		"code_verifier": {verifier},
		"client_id":     {oauthClientID},
	}, nil)
	if err != nil {
		return nil, err
	}
	if tokens.IDToken == "" {
		return nil, fmt.Errorf("medicover: token exchange returned no id_token")
	}

	a.logger.Info("signed in to portal", "username", creds.Username)
	return &Session{AccessToken: tokens.IDToken, RefreshToken: tokens.RefreshToken}, nil
}

// Refresh exchanges the refresh token for a new pair. On any non-200 answer
// the session is returned untouched: a stale session will fail with a 401
// soon enough and take the full re-login path.
func (a *Authenticator) Refresh(ctx context.Context, s *Session) (*Session, error) {
	if s == nil || s.RefreshToken == "" {
		return s, nil
	}

	tokens, err := a.exchange(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {s.RefreshToken},
		"scope":         {oauthScope},
		"client_id":     {oauthClientID},
	}, s)
	if err != nil {
		a.logger.Debug("token refresh skipped", "reason", err)
		return s, nil
	}
	if tokens.AccessToken == "" {
		return s, nil
	}
	return &Session{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

func (a *Authenticator) exchange(ctx context.Context, form url.Values, s *Session) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.authBaseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("medicover: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if s != nil && s.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.AccessToken)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("medicover: token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var tokens tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return nil, fmt.Errorf("medicover: decode token response: %w", err)
	}
	return &tokens, nil
}

// newPKCEPair generates a code verifier and its S256 challenge.
func newPKCEPair() (verifier, challenge string, err error) {
	raw := make([]byte, 48)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	verifier = base64.RawURLEncoding.EncodeToString(raw)
	sum := sha256.Sum256([]byte(verifier))
	challenge = base64.RawURLEncoding.EncodeToString(sum[:])
	return verifier, challenge, nil
}
