package monitor

import (
	"context"
	"time"

	"github.com/azielinski/slotwatch/internal/medicover"
	"github.com/azielinski/slotwatch/internal/observability/metrics"
	"github.com/azielinski/slotwatch/pkg/logging"
)

// defaultPollInterval matches the portal-friendly cadence the service has
// always used.
const defaultPollInterval = 30 * time.Second

// Searcher is the slice of the portal client the runner needs.
type Searcher interface {
	SearchSlots(ctx context.Context, query medicover.SlotQuery) ([]medicover.Slot, error)
}

// Notifier receives the slots of the poll that terminated a subscription.
type Notifier interface {
	SlotsFound(ctx context.Context, sub Subscription, slots []medicover.Slot)
}

// Runner polls one subscription's query until a qualifying slot set shows up
// or the context is cancelled.
type Runner struct {
	searcher Searcher
	notifier Notifier
	logger   *logging.Logger
	metrics  *metrics.MonitorMetrics
	interval time.Duration
	location *time.Location
}

func NewRunner(searcher Searcher, notifier Notifier, logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.Default()
	}
	return &Runner{
		searcher: searcher,
		notifier: notifier,
		logger:   logger,
		interval: defaultPollInterval,
		location: time.Local,
	}
}

func (r *Runner) WithInterval(d time.Duration) *Runner {
	if d > 0 {
		r.interval = d
	}
	return r
}

func (r *Runner) WithMetrics(m *metrics.MonitorMetrics) *Runner {
	r.metrics = m
	return r
}

func (r *Runner) WithLocation(loc *time.Location) *Runner {
	if loc != nil {
		r.location = loc
	}
	return r
}

// Run polls until found, cancelled or an unrecoverable authentication
// failure. Transient portal errors (5xx, network) are logged and absorbed;
// they never abort a monitoring run. The reported slots are exactly the
// matching slots of the terminating poll.
func (r *Runner) Run(ctx context.Context, sub Subscription) (Outcome, error) {
	window := WindowFromQuery(sub.Query, r.location)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		outcome, done, err := r.poll(ctx, sub, window)
		if done {
			return outcome, err
		}

		select {
		case <-ctx.Done():
			r.logger.Info("monitoring cancelled", "subscription", sub.ID, "owner", sub.Owner)
			return OutcomeCancelled, nil
		case <-ticker.C:
		}
	}
}

func (r *Runner) poll(ctx context.Context, sub Subscription, window Window) (Outcome, bool, error) {
	slots, err := r.searcher.SearchSlots(ctx, sub.Query)
	if err != nil {
		if ctx.Err() != nil {
			return OutcomeCancelled, true, nil
		}
		if medicover.IsAuthFatal(err) {
			r.logger.Error("monitoring stopped, cannot authenticate", "subscription", sub.ID, "error", err)
			r.metrics.ObservePoll("error")
			return OutcomeFailed, true, err
		}
		r.logger.Warn("slot search failed, retrying next interval", "subscription", sub.ID, "error", err)
		r.metrics.ObservePoll("error")
		return "", false, nil
	}

	matching := window.Filter(slots)
	if len(matching) == 0 {
		r.logger.Debug("no matching slots", "subscription", sub.ID, "raw", len(slots))
		r.metrics.ObservePoll("empty")
		return "", false, nil
	}

	r.metrics.ObservePoll("found")
	r.metrics.ObserveSlotsReported(len(matching))
	r.logger.Info("matching slots found", "subscription", sub.ID, "owner", sub.Owner, "count", len(matching))
	if r.notifier != nil {
		r.notifier.SlotsFound(ctx, sub, matching)
	}
	return OutcomeFound, true, nil
}
