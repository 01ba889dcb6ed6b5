package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/azielinski/slotwatch/internal/medicover"
	"github.com/azielinski/slotwatch/internal/monitor"
	"github.com/azielinski/slotwatch/pkg/logging"
)

// slotTimeLayout is how found slots render to humans.
const slotTimeLayout = "Mon 02-01-2006 15:04"

// FormatSlots renders a slot list as the plain text block used by every
// delivery channel.
func FormatSlots(slots []medicover.Slot) string {
	var b strings.Builder
	for i, slot := range slots {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s\n", slot.AppointmentDate.Format(slotTimeLayout))
		fmt.Fprintf(&b, "  Doctor:    %s\n", slot.DoctorName)
		fmt.Fprintf(&b, "  Clinic:    %s\n", slot.ClinicName)
		fmt.Fprintf(&b, "  Specialty: %s\n", slot.SpecialtyName)
	}
	return b.String()
}

// FormatSlotsHTML renders the same list for the HTML part of an email.
func FormatSlotsHTML(slots []medicover.Slot) string {
	var b strings.Builder
	b.WriteString(`<table style="border-collapse: collapse;">`)
	b.WriteString(`<tr><th style="padding: 6px; text-align: left;">When</th><th style="padding: 6px; text-align: left;">Doctor</th><th style="padding: 6px; text-align: left;">Clinic</th></tr>`)
	for _, slot := range slots {
		fmt.Fprintf(&b,
			`<tr><td style="padding: 6px; border-top: 1px solid #e5e7eb;">%s</td><td style="padding: 6px; border-top: 1px solid #e5e7eb;">%s</td><td style="padding: 6px; border-top: 1px solid #e5e7eb;">%s</td></tr>`,
			slot.AppointmentDate.Format(slotTimeLayout), slot.DoctorName, slot.ClinicName)
	}
	b.WriteString(`</table>`)
	return b.String()
}

// LogNotifier writes found slots to the structured log. It is always active
// so a run without any configured channel still surfaces its result.
type LogNotifier struct {
	logger *logging.Logger
}

func NewLogNotifier(logger *logging.Logger) *LogNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SlotsFound(_ context.Context, sub monitor.Subscription, slots []medicover.Slot) {
	for _, slot := range slots {
		n.logger.Info("appointment slot available",
			"subscription", sub.ID,
			"owner", sub.Owner,
			"when", slot.AppointmentDate.Format(slotTimeLayout),
			"doctor", slot.DoctorName,
			"clinic", slot.ClinicName,
		)
	}
}

// EmailNotifier mails the found slots to a fixed recipient.
type EmailNotifier struct {
	sender EmailSender
	to     string
	logger *logging.Logger
}

func NewEmailNotifier(sender EmailSender, to string, logger *logging.Logger) *EmailNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &EmailNotifier{sender: sender, to: to, logger: logger}
}

func (n *EmailNotifier) SlotsFound(ctx context.Context, sub monitor.Subscription, slots []medicover.Slot) {
	if n.sender == nil || n.to == "" {
		return
	}

	subject := fmt.Sprintf("Appointment slots available (%d found)", len(slots))
	body := fmt.Sprintf("Your monitoring found %d matching appointment slot(s):\n\n%s\nBook quickly, slots disappear fast.\n",
		len(slots), FormatSlots(slots))
	html := fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px;">
<h2>Appointment slots available</h2>
<p>Your monitoring found <strong>%d</strong> matching slot(s):</p>
%s
<p style="color: #6b7280; font-size: 12px; margin-top: 20px;">Book quickly, slots disappear fast.</p>
</div>`, len(slots), FormatSlotsHTML(slots))

	msg := EmailMessage{To: n.to, Subject: subject, Body: body, HTML: html}
	if err := n.sender.Send(ctx, msg); err != nil {
		// The slots are already logged elsewhere; delivery failure must
		// not take the monitoring result down with it.
		n.logger.Error("slot notification email failed", "error", err, "subscription", sub.ID)
	}
}

// Multi fans one report out to several channels.
type Multi []monitor.Notifier

func (m Multi) SlotsFound(ctx context.Context, sub monitor.Subscription, slots []medicover.Slot) {
	for _, n := range m {
		if n != nil {
			n.SlotsFound(ctx, sub, slots)
		}
	}
}

var _ monitor.Notifier = (*LogNotifier)(nil)
var _ monitor.Notifier = (*EmailNotifier)(nil)
var _ monitor.Notifier = Multi(nil)
