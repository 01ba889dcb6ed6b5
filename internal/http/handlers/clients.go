package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/azielinski/slotwatch/internal/http/middleware"
	"github.com/azielinski/slotwatch/internal/medicover"
)

// PortalClient is the slice of the medicover client the handlers use. The
// concrete client satisfies it; tests swap in a fake portal.
type PortalClient interface {
	SignIn(ctx context.Context) error
	SignedIn() bool
	ListRegions(ctx context.Context) ([]medicover.FilterOption, error)
	ListSpecialties(ctx context.Context, regionID string) ([]medicover.FilterOption, error)
	ListClinics(ctx context.Context, regionID, specialtyID string) ([]medicover.FilterOption, error)
	ListDoctors(ctx context.Context, regionID, specialtyID, clinicID string) ([]medicover.FilterOption, error)
	SearchSlots(ctx context.Context, query medicover.SlotQuery) ([]medicover.Slot, error)
	FutureAppointments(ctx context.Context) ([]medicover.Appointment, error)
}

var _ PortalClient = (*medicover.Client)(nil)

// ClientFactory builds a portal client for freshly supplied credentials.
type ClientFactory func(creds medicover.Credentials) PortalClient

// ClientPool maps authenticated owners to their live portal clients. One
// owner, one client; the client keeps the portal session between requests.
// Entries expire together with the owner token that references them, so a
// long-running server does not accumulate clients nobody can reach.
type ClientPool struct {
	mu      sync.Mutex
	clients map[string]poolEntry
}

type poolEntry struct {
	client    PortalClient
	expiresAt time.Time
}

func NewClientPool() *ClientPool {
	return &ClientPool{clients: make(map[string]poolEntry)}
}

// Bind registers the owner's client until expiresAt. A zero expiry means the
// entry never ages out.
func (p *ClientPool) Bind(owner string, client PortalClient, expiresAt time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clients[owner] = poolEntry{client: client, expiresAt: expiresAt}
}

func (p *ClientPool) Get(owner string) (PortalClient, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.clients[owner]
	if !ok {
		return nil, false
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(p.clients, owner)
		return nil, false
	}
	return entry.client, true
}

func (p *ClientPool) Remove(owner string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.clients, owner)
}

// clientFor resolves the request's owner and portal client, writing the
// error response itself when either is missing.
func (p *ClientPool) clientFor(w http.ResponseWriter, r *http.Request) (PortalClient, string, bool) {
	owner, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "no authenticated owner")
		return nil, "", false
	}
	client, ok := p.Get(owner)
	if !ok {
		writeError(w, http.StatusUnauthorized, "no portal session for this token, log in again")
		return nil, "", false
	}
	return client, owner, true
}
