package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azielinski/slotwatch/internal/medicover"
)

type outcomeRecorder struct {
	mu   sync.Mutex
	seen []Outcome
}

func (o *outcomeRecorder) record(_ Subscription, outcome Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, outcome)
}

func (o *outcomeRecorder) outcomes() []Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Outcome(nil), o.seen...)
}

func TestRegistryRejectsDuplicateSubscription(t *testing.T) {
	searcher := &scriptedSearcher{steps: []searchStep{{slots: nil}}}
	runner := NewRunner(searcher, &recordingNotifier{}, nil).WithInterval(time.Hour)
	registry := NewRegistry(nil)

	sub := testSubscription(t)
	require.NoError(t, registry.Start(context.Background(), sub, runner))
	defer registry.Cancel(sub.Owner, sub.ID)

	err := registry.Start(context.Background(), sub, runner)
	assert.ErrorIs(t, err, ErrAlreadyMonitoring)
	assert.Equal(t, 1, registry.Active())

	// A different query from the same owner is a different subscription.
	other := NewSubscription(sub.Owner, medicover.SlotQuery{RegionID: "200", SpecialtyID: "9"})
	require.NoError(t, registry.Start(context.Background(), other, runner))
	assert.Equal(t, 2, registry.Active())
	require.NoError(t, registry.Cancel(other.Owner, other.ID))
}

func TestRegistryCancelRemovesEntryWithoutReporting(t *testing.T) {
	searcher := &scriptedSearcher{steps: []searchStep{{slots: nil}}}
	notifier := &recordingNotifier{}
	runner := NewRunner(searcher, notifier, nil).WithInterval(time.Hour)

	recorder := &outcomeRecorder{}
	registry := NewRegistry(nil).WithOnTerminated(recorder.record)

	sub := testSubscription(t)
	require.NoError(t, registry.Start(context.Background(), sub, runner))
	require.Eventually(t, func() bool { return searcher.callCount() >= 1 }, time.Second, time.Millisecond)

	require.NoError(t, registry.Cancel(sub.Owner, sub.ID))

	assert.Equal(t, 0, registry.Active(), "bookkeeping entry is released on cancel")
	assert.Empty(t, registry.List(sub.Owner))
	assert.Empty(t, notifier.reports(), "a cancelled run never reports")
	assert.Equal(t, []Outcome{OutcomeCancelled}, recorder.outcomes())

	// The goroutine's own exit must not double-count the termination.
	require.Eventually(t, func() bool {
		return len(recorder.outcomes()) == 1
	}, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, []Outcome{OutcomeCancelled}, recorder.outcomes())
}

func TestRegistryCancelChecksOwnership(t *testing.T) {
	searcher := &scriptedSearcher{steps: []searchStep{{slots: nil}}}
	runner := NewRunner(searcher, &recordingNotifier{}, nil).WithInterval(time.Hour)
	registry := NewRegistry(nil)

	sub := testSubscription(t)
	require.NoError(t, registry.Start(context.Background(), sub, runner))
	defer registry.Cancel(sub.Owner, sub.ID)

	assert.ErrorIs(t, registry.Cancel("somebody-else", sub.ID), ErrNotFound)
	assert.ErrorIs(t, registry.Cancel(sub.Owner, "no-such-id"), ErrNotFound)
	assert.Equal(t, 1, registry.Active())
}

func TestRegistryReleasesEntryWhenSlotsFound(t *testing.T) {
	searcher := &scriptedSearcher{steps: []searchStep{
		{slots: []medicover.Slot{slotAt(t, "2026-09-15T10:00:00")}},
	}}
	notifier := &recordingNotifier{}
	runner := NewRunner(searcher, notifier, nil).WithInterval(time.Millisecond)

	recorder := &outcomeRecorder{}
	registry := NewRegistry(nil).WithOnTerminated(recorder.record)

	sub := testSubscription(t)
	require.NoError(t, registry.Start(context.Background(), sub, runner))

	require.Eventually(t, func() bool { return registry.Active() == 0 }, time.Second, time.Millisecond)
	require.Len(t, notifier.reports(), 1)
	assert.Equal(t, []Outcome{OutcomeFound}, recorder.outcomes())

	// The slot vanished again, so the owner can immediately re-arm the
	// same query.
	searcher.mu.Lock()
	searcher.steps = []searchStep{{slots: nil}}
	searcher.calls = 0
	searcher.mu.Unlock()

	rearm := NewRunner(searcher, notifier, nil).WithInterval(time.Hour)
	require.NoError(t, registry.Start(context.Background(), sub, rearm))
	require.NoError(t, registry.Cancel(sub.Owner, sub.ID))
}

func TestRegistryListFiltersByOwner(t *testing.T) {
	searcher := &scriptedSearcher{steps: []searchStep{{slots: nil}}}
	runner := NewRunner(searcher, &recordingNotifier{}, nil).WithInterval(time.Hour)
	registry := NewRegistry(nil)

	alice := NewSubscription("alice", medicover.SlotQuery{RegionID: "204", SpecialtyID: "132"})
	bob := NewSubscription("bob", medicover.SlotQuery{RegionID: "204", SpecialtyID: "132"})
	require.NoError(t, registry.Start(context.Background(), alice, runner))
	require.NoError(t, registry.Start(context.Background(), bob, runner))
	defer registry.Cancel("alice", alice.ID)
	defer registry.Cancel("bob", bob.ID)

	got := registry.List("alice")
	require.Len(t, got, 1)
	assert.Equal(t, alice.ID, got[0].ID)
	assert.Empty(t, registry.List("carol"))
}
