package monitor

import (
	"context"
	"errors"
	"sync"

	"github.com/azielinski/slotwatch/internal/observability/metrics"
	"github.com/azielinski/slotwatch/pkg/logging"
)

var (
	// ErrAlreadyMonitoring means the same owner already has a live task for
	// an identical query.
	ErrAlreadyMonitoring = errors.New("monitor: an identical monitoring is already running")

	// ErrNotFound means no live monitoring matches the owner and id.
	ErrNotFound = errors.New("monitor: no such monitoring")
)

// Registry maps subscription identity to a cancellation handle. It is the
// single owner of monitoring lifecycles: starting, listing, cancelling and
// releasing bookkeeping when a run terminates.
type Registry struct {
	mu      sync.Mutex
	active  map[string]*handle
	logger  *logging.Logger
	metrics *metrics.MonitorMetrics

	// onTerminated, when set, observes every terminal transition after the
	// bookkeeping entry is gone. Used to clean up persisted records.
	onTerminated func(sub Subscription, outcome Outcome)
}

type handle struct {
	sub    Subscription
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRegistry(logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Default()
	}
	return &Registry{
		active: make(map[string]*handle),
		logger: logger,
	}
}

func (g *Registry) WithMetrics(m *metrics.MonitorMetrics) *Registry {
	g.metrics = m
	return g
}

func (g *Registry) WithOnTerminated(fn func(sub Subscription, outcome Outcome)) *Registry {
	g.onTerminated = fn
	return g
}

// Start launches a monitoring task for the subscription. A second start for
// the same subscription hash is rejected while the first is live.
func (g *Registry) Start(ctx context.Context, sub Subscription, runner *Runner) error {
	g.mu.Lock()
	if _, exists := g.active[sub.ID]; exists {
		g.mu.Unlock()
		return ErrAlreadyMonitoring
	}

	runCtx, cancel := context.WithCancel(ctx)
	h := &handle{sub: sub, cancel: cancel, done: make(chan struct{})}
	g.active[sub.ID] = h
	g.mu.Unlock()

	g.metrics.MonitoringStarted()
	g.logger.Info("monitoring started", "subscription", sub.ID, "owner", sub.Owner)

	go func() {
		defer close(h.done)
		defer cancel()

		outcome, err := runner.Run(runCtx, sub)
		if err != nil {
			g.logger.Error("monitoring terminated with error", "subscription", sub.ID, "error", err)
		}

		g.mu.Lock()
		_, still := g.active[sub.ID]
		delete(g.active, sub.ID)
		g.mu.Unlock()

		// A cancel already accounted for itself.
		if still {
			g.metrics.MonitoringEnded(string(outcome))
			if g.onTerminated != nil {
				g.onTerminated(sub, outcome)
			}
		}
	}()
	return nil
}

// Cancel stops the owner's monitoring task and releases its bookkeeping
// entry immediately. The polling goroutine observes the cancellation at its
// next suspension point.
func (g *Registry) Cancel(owner, id string) error {
	g.mu.Lock()
	h, ok := g.active[id]
	if !ok || h.sub.Owner != owner {
		g.mu.Unlock()
		return ErrNotFound
	}
	delete(g.active, id)
	g.mu.Unlock()

	h.cancel()
	g.metrics.MonitoringEnded(string(OutcomeCancelled))
	if g.onTerminated != nil {
		g.onTerminated(h.sub, OutcomeCancelled)
	}
	g.logger.Info("monitoring cancelled", "subscription", id, "owner", owner)
	return nil
}

// List returns the owner's live subscriptions.
func (g *Registry) List(owner string) []Subscription {
	g.mu.Lock()
	defer g.mu.Unlock()

	var subs []Subscription
	for _, h := range g.active {
		if h.sub.Owner == owner {
			subs = append(subs, h.sub)
		}
	}
	return subs
}

// Active returns the number of live monitoring tasks.
func (g *Registry) Active() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.active)
}
