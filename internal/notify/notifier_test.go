package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azielinski/slotwatch/internal/medicover"
	"github.com/azielinski/slotwatch/internal/monitor"
)

type capturingSender struct {
	sent []EmailMessage
	err  error
}

func (c *capturingSender) Send(_ context.Context, msg EmailMessage) error {
	c.sent = append(c.sent, msg)
	return c.err
}

func sampleSlots(t *testing.T) []medicover.Slot {
	t.Helper()
	at, err := time.Parse("2006-01-02T15:04:05", "2026-09-15T10:30:00")
	require.NoError(t, err)
	return []medicover.Slot{
		{
			AppointmentDate: at,
			DoctorName:      "Jan Kowalski",
			ClinicName:      "Warszawa Atrium",
			SpecialtyName:   "Okulistyka",
		},
		{
			AppointmentDate: at.Add(2 * time.Hour),
			DoctorName:      "Anna Nowak",
			ClinicName:      "Warszawa Inflancka",
			SpecialtyName:   "Okulistyka",
		},
	}
}

func sampleSubscription() monitor.Subscription {
	return monitor.NewSubscription("user-1", medicover.SlotQuery{RegionID: "204", SpecialtyID: "132"})
}

func TestFormatSlots(t *testing.T) {
	out := FormatSlots(sampleSlots(t))

	assert.Contains(t, out, "Tue 15-09-2026 10:30")
	assert.Contains(t, out, "Doctor:    Jan Kowalski")
	assert.Contains(t, out, "Clinic:    Warszawa Atrium")
	assert.Contains(t, out, "Anna Nowak")
	assert.Empty(t, FormatSlots(nil))
}

func TestEmailNotifierSendsFormattedReport(t *testing.T) {
	sender := &capturingSender{}
	n := NewEmailNotifier(sender, "me@example.com", nil)

	n.SlotsFound(context.Background(), sampleSubscription(), sampleSlots(t))

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "me@example.com", msg.To)
	assert.Equal(t, "Appointment slots available (2 found)", msg.Subject)
	assert.Contains(t, msg.Body, "Jan Kowalski")
	assert.Contains(t, msg.HTML, "Warszawa Inflancka")
}

func TestEmailNotifierSwallowsSendFailure(t *testing.T) {
	sender := &capturingSender{err: errors.New("smtp down")}
	n := NewEmailNotifier(sender, "me@example.com", nil)

	// Must not panic and must not retry.
	n.SlotsFound(context.Background(), sampleSubscription(), sampleSlots(t))
	assert.Len(t, sender.sent, 1)
}

func TestEmailNotifierSkipsWhenUnconfigured(t *testing.T) {
	sender := &capturingSender{}
	NewEmailNotifier(sender, "", nil).SlotsFound(context.Background(), sampleSubscription(), sampleSlots(t))
	NewEmailNotifier(nil, "me@example.com", nil).SlotsFound(context.Background(), sampleSubscription(), sampleSlots(t))
	assert.Empty(t, sender.sent)
}

func TestMultiFansOut(t *testing.T) {
	a := &capturingSender{}
	b := &capturingSender{}
	multi := Multi{
		NewEmailNotifier(a, "a@example.com", nil),
		nil,
		NewEmailNotifier(b, "b@example.com", nil),
		NewLogNotifier(nil),
	}

	multi.SlotsFound(context.Background(), sampleSubscription(), sampleSlots(t))
	assert.Len(t, a.sent, 1)
	assert.Len(t, b.sent, 1)
}

func TestNewSendGridSenderRequiresAPIKey(t *testing.T) {
	assert.Nil(t, NewSendGridSender(SendGridConfig{FromEmail: "noreply@example.com"}, nil))
	assert.NotNil(t, NewSendGridSender(SendGridConfig{APIKey: "SG.test", FromEmail: "noreply@example.com"}, nil))
}
