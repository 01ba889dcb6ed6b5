package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azielinski/slotwatch/internal/medicover"
)

// stubPortal is the minimal PortalClient for auth tests.
type stubPortal struct {
	creds     medicover.Credentials
	signedIn  bool
	signInErr error
}

func (s *stubPortal) SignIn(context.Context) error {
	if s.signInErr != nil {
		return s.signInErr
	}
	s.signedIn = true
	return nil
}

func (s *stubPortal) SignedIn() bool { return s.signedIn }

func (s *stubPortal) ListRegions(context.Context) ([]medicover.FilterOption, error) {
	return nil, nil
}

func (s *stubPortal) ListSpecialties(context.Context, string) ([]medicover.FilterOption, error) {
	return nil, nil
}

func (s *stubPortal) ListClinics(context.Context, string, string) ([]medicover.FilterOption, error) {
	return nil, nil
}

func (s *stubPortal) ListDoctors(context.Context, string, string, string) ([]medicover.FilterOption, error) {
	return nil, nil
}

func (s *stubPortal) SearchSlots(context.Context, medicover.SlotQuery) ([]medicover.Slot, error) {
	return nil, nil
}

func (s *stubPortal) FutureAppointments(context.Context) ([]medicover.Appointment, error) {
	return nil, nil
}

func loginBody(t *testing.T, username, password string) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func TestLoginIssuesTokenAndBindsClient(t *testing.T) {
	pool := NewClientPool()
	var built *stubPortal
	factory := func(creds medicover.Credentials) PortalClient {
		built = &stubPortal{creds: creds}
		return built
	}
	h := NewAuthHandler(pool, factory, "test-secret", time.Hour, nil)

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", loginBody(t, "user@example.com", "secret")))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp loginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Token)
	assert.NotEmpty(t, resp.OwnerID)
	assert.True(t, resp.ExpiresAt.After(time.Now()))

	require.NotNil(t, built)
	assert.Equal(t, "user@example.com", built.creds.Username)
	bound, ok := pool.Get(resp.OwnerID)
	require.True(t, ok)
	assert.Same(t, built, bound)
}

func TestLoginRejectsWrongCredentials(t *testing.T) {
	pool := NewClientPool()
	factory := func(medicover.Credentials) PortalClient {
		return &stubPortal{signInErr: medicover.ErrIncorrectLogin}
	}
	h := NewAuthHandler(pool, factory, "test-secret", time.Hour, nil)

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", loginBody(t, "user@example.com", "wrong")))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginPortalOutage(t *testing.T) {
	pool := NewClientPool()
	factory := func(medicover.Credentials) PortalClient {
		return &stubPortal{signInErr: &medicover.StatusError{Code: 502, Body: "bad gateway"}}
	}
	h := NewAuthHandler(pool, factory, "test-secret", time.Hour, nil)

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", loginBody(t, "user@example.com", "secret")))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestLoginValidation(t *testing.T) {
	h := NewAuthHandler(NewClientPool(), func(medicover.Credentials) PortalClient {
		t.Fatal("factory must not be called")
		return nil
	}, "test-secret", time.Hour, nil)

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", loginBody(t, "", "")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString("{not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClientPool(t *testing.T) {
	pool := NewClientPool()
	client := &stubPortal{}

	_, ok := pool.Get("nobody")
	assert.False(t, ok)

	pool.Bind("owner-1", client, time.Now().Add(time.Hour))
	got, ok := pool.Get("owner-1")
	require.True(t, ok)
	assert.Same(t, client, got)

	pool.Remove("owner-1")
	_, ok = pool.Get("owner-1")
	assert.False(t, ok)
}

func TestClientPoolEvictsExpiredEntries(t *testing.T) {
	pool := NewClientPool()
	pool.Bind("owner-1", &stubPortal{}, time.Now().Add(-time.Minute))
	pool.Bind("owner-2", &stubPortal{}, time.Time{})

	// The token that referenced this client is already dead.
	_, ok := pool.Get("owner-1")
	assert.False(t, ok)
	_, ok = pool.Get("owner-1")
	assert.False(t, ok, "expired entries are dropped, not resurrected")

	// Zero expiry never ages out.
	_, ok = pool.Get("owner-2")
	assert.True(t, ok)
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
