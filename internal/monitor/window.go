package monitor

import (
	"time"

	"github.com/azielinski/slotwatch/internal/medicover"
)

// Window narrows raw slot results to the time bounds the user asked for. The
// portal only accepts a start date, so the rest is applied client-side.
type Window struct {
	// From and To bound the time of day, inclusive on both ends. A zero
	// bound is open. When From is later than To the window is applied
	// literally and matches nothing; it does not wrap across midnight.
	From medicover.Clock
	To   medicover.Clock

	// Until is the combined to-date/to-time cutoff. Slots at or after it
	// are excluded. Zero means unbounded.
	Until time.Time
}

// WindowFromQuery derives the window a query implies, interpreting its
// calendar bounds in loc. The cutoff is ToDate at ToTime; with ToDate set but
// ToTime zero it falls on midnight, so no slot on ToDate itself qualifies.
func WindowFromQuery(q medicover.SlotQuery, loc *time.Location) Window {
	w := Window{From: q.FromTime, To: q.ToTime}
	if !q.ToDate.IsZero() {
		w.Until = q.ToDate.At(q.ToTime, loc)
	}
	return w
}

// Filter returns the slots that fall inside the window.
func (w Window) Filter(slots []medicover.Slot) []medicover.Slot {
	var kept []medicover.Slot
	for _, slot := range slots {
		if w.Contains(slot.AppointmentDate) {
			kept = append(kept, slot)
		}
	}
	return kept
}

// Contains reports whether a single appointment moment is inside the window.
func (w Window) Contains(t time.Time) bool {
	minutes := t.Hour()*60 + t.Minute()
	if !w.From.IsZero() && minutes < w.From.Minutes() {
		return false
	}
	if !w.To.IsZero() && minutes > w.To.Minutes() {
		return false
	}
	if !w.Until.IsZero() && !t.Before(w.Until) {
		return false
	}
	return true
}
