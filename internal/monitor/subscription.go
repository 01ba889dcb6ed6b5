// Package monitor runs the long-lived "keep searching until something shows
// up" loops: one cancellable polling task per subscription, tracked by an
// explicit registry.
package monitor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/azielinski/slotwatch/internal/medicover"
)

// Subscription is one outstanding monitoring request: an owner plus the
// frozen query it keeps polling. Its ID is a stable hash of both, so the same
// owner asking for the same thing twice collides instead of silently running
// double.
type Subscription struct {
	ID        string              `json:"id"`
	Owner     string              `json:"owner"`
	Query     medicover.SlotQuery `json:"query"`
	CreatedAt time.Time           `json:"createdAt"`
}

// NewSubscription builds a subscription with its derived ID.
func NewSubscription(owner string, query medicover.SlotQuery) Subscription {
	return Subscription{
		ID:        SubscriptionID(owner, query),
		Owner:     owner,
		Query:     query,
		CreatedAt: time.Now().UTC(),
	}
}

// SubscriptionID derives the stable identity of an owner+query pair.
func SubscriptionID(owner string, q medicover.SlotQuery) string {
	canonical := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s|%s|%s",
		owner,
		q.RegionID, q.SpecialtyID, q.ClinicID, q.DoctorID,
		q.FromDate, q.FromTime, q.ToTime, q.ToDate,
	)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:8])
}

// Outcome is the terminal state of one monitoring run.
type Outcome string

const (
	OutcomeFound     Outcome = "found"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
)
