package medicover

import (
	"fmt"
	"strings"
	"time"
)

// Credentials are the portal username/password pair. They are held only for
// the lifetime of a client, never persisted.
type Credentials struct {
	Username string
	Password string
}

// FilterOption is one selectable region, specialty, clinic or doctor as the
// portal returns it: an opaque id plus display text.
type FilterOption struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// SlotQuery is the full parameter set for one availability search. It is
// built once per search or monitoring subscription and reused unchanged
// across polls.
type SlotQuery struct {
	RegionID    string `json:"regionId"`
	SpecialtyID string `json:"specialtyId"`
	ClinicID    string `json:"clinicId,omitempty"`
	DoctorID    string `json:"doctorId,omitempty"`

	// FromDate bounds the portal-side search (sent as StartTime).
	FromDate Date `json:"fromDate"`

	// FromTime/ToTime/ToDate bound results client-side; the portal has no
	// parameters for them.
	FromTime Clock `json:"fromTime,omitzero"`
	ToTime   Clock `json:"toTime,omitzero"`
	ToDate   Date  `json:"toDate,omitzero"`
}

// Slot is a single bookable appointment as returned by the slot search.
type Slot struct {
	AppointmentDate time.Time `json:"appointmentDate"`
	ClinicName      string    `json:"clinicName"`
	DoctorName      string    `json:"doctorName"`
	SpecialtyName   string    `json:"specialtyName"`
	VisitType       string    `json:"visitType"`
	BookingString   string    `json:"bookingString"`
}

// Appointment is an already-booked visit from the person-appointments
// endpoint.
type Appointment struct {
	ID            string    `json:"id"`
	Date          time.Time `json:"date"`
	State         string    `json:"state"`
	VisitType     string    `json:"visitType"`
	ClinicName    string    `json:"clinicName"`
	DoctorName    string    `json:"doctorName"`
	SpecialtyName string    `json:"specialtyName"`
}

// slotItem is the wire shape of one slot search result.
type slotItem struct {
	AppointmentDate string     `json:"appointmentDate"`
	BookingString   string     `json:"bookingString"`
	Clinic          namedThing `json:"clinic"`
	Doctor          namedThing `json:"doctor"`
	Specialty       namedThing `json:"specialty"`
	VisitType       string     `json:"visitType"`
}

// appointmentItem is the wire shape of one booked appointment.
type appointmentItem struct {
	ID        string     `json:"id"`
	Date      string     `json:"date"`
	State     string     `json:"state"`
	VisitType string     `json:"visitType"`
	Clinic    namedThing `json:"clinic"`
	Doctor    namedThing `json:"doctor"`
	Specialty namedThing `json:"specialty"`
}

type namedThing struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// portalTimeLayout is how the slot search formats appointment timestamps:
// ISO 8601 without a zone, local to the clinic.
const portalTimeLayout = "2006-01-02T15:04:05"

func parsePortalTime(s string) (time.Time, error) {
	t, err := time.Parse(portalTimeLayout, s)
	if err == nil {
		return t, nil
	}
	// Some endpoints include an offset.
	return time.Parse(time.RFC3339, s)
}

// Date is a calendar day. User-facing input/output uses dd-mm-yyyy, the
// portal wire format is yyyy-mm-dd.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses the user-facing dd-mm-yyyy form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("02-01-2006", strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("medicover: invalid date %q (want dd-mm-yyyy): %w", s, err)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// DateOf truncates a time to its calendar day.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

func (d Date) IsZero() bool { return d == Date{} }

// Wire formats the date for portal query parameters.
func (d Date) Wire() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d Date) String() string {
	return fmt.Sprintf("%02d-%02d-%04d", d.Day, d.Month, d.Year)
}

// MarshalJSON renders the user-facing dd-mm-yyyy form.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// At combines the day with a clock time in the given location.
func (d Date) At(c Clock, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.Year, d.Month, d.Day, c.Hour, c.Minute, 0, 0, loc)
}

// Clock is a time of day in HH:MM resolution.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses the user-facing HH:MM form.
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return Clock{}, fmt.Errorf("medicover: invalid time %q (want HH:MM): %w", s, err)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c Clock) IsZero() bool { return c == Clock{} }

// Minutes returns the clock as minutes since midnight, for ordering.
func (c Clock) Minutes() int { return c.Hour*60 + c.Minute }

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// MarshalJSON renders the user-facing HH:MM form.
func (c Clock) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

func (c *Clock) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*c = Clock{}
		return nil
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MatchOptions returns the options whose display text contains the given
// fragment, compared case-insensitively. An empty fragment matches nothing;
// callers fall back to presenting the full list.
func MatchOptions(options []FilterOption, fragment string) []FilterOption {
	fragment = strings.ToLower(strings.TrimSpace(fragment))
	if fragment == "" {
		return nil
	}
	var matched []FilterOption
	for _, opt := range options {
		if strings.Contains(strings.ToLower(opt.Value), fragment) {
			matched = append(matched, opt)
		}
	}
	return matched
}
