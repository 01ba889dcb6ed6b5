package medicover

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

const loginPageHTML = `<!DOCTYPE html>
<html><body>
<form method="post">
<input type="hidden" name="__RequestVerificationToken" value="anti-forgery-1" />
<input name="Input.Username" /><input name="Input.Password" type="password" />
</form>
</body></html>`

// fakeAuthServer imitates the portal's login and token endpoints.
type fakeAuthServer struct {
	*httptest.Server

	logins     atomic.Int64
	refreshes  atomic.Int64
	password   string
	refreshBad bool // token endpoint rejects refresh grants
}

func newFakeAuthServer(t *testing.T) *fakeAuthServer {
	t.Helper()
	fa := &fakeAuthServer{password: "secret"}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /connect/authorize", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(loginPageHTML))
	})
	mux.HandleFunc("POST /connect/authorize", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if r.PostFormValue("__RequestVerificationToken") != "anti-forgery-1" {
			http.Error(w, "missing anti-forgery token", http.StatusBadRequest)
			return
		}
		if r.PostFormValue("Input.Password") != fa.password {
			// Wrong credentials: the portal sends the browser back to the
			// login form, never to the redirect URI with a code.
			http.Redirect(w, r, "/signin-oidc", http.StatusFound)
			return
		}
		http.Redirect(w, r, "/signin-oidc?code=good-code", http.StatusFound)
	})
	mux.HandleFunc("/signin-oidc", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /connect/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		switch r.PostFormValue("grant_type") {
		case "authorization_code":
			if r.PostFormValue("code") != "good-code" || r.PostFormValue("code_verifier") == "" {
				http.Error(w, "invalid grant", http.StatusBadRequest)
				return
			}
			fa.logins.Add(1)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"id_token":      "id-token-1",
				"refresh_token": "refresh-1",
			})
		case "refresh_token":
			if fa.refreshBad || r.PostFormValue("refresh_token") == "" {
				http.Error(w, "invalid refresh", http.StatusBadRequest)
				return
			}
			fa.refreshes.Add(1)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"access_token":  "refreshed-token-1",
				"refresh_token": "refresh-2",
			})
		default:
			http.Error(w, "unsupported grant", http.StatusBadRequest)
		}
	})

	fa.Server = httptest.NewServer(mux)
	t.Cleanup(fa.Close)
	return fa
}

func (fa *fakeAuthServer) authenticator(t *testing.T) *Authenticator {
	t.Helper()
	return NewAuthenticator(nil, WithAuthBaseURL(fa.URL))
}
