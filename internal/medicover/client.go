// Package medicover implements the authenticated client for the Medicover
// online portal: the OIDC/PKCE login exchange, token refresh, retry-on-401
// and the filter and slot search queries.
package medicover

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/azielinski/slotwatch/pkg/logging"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultPageSize = 5000
)

// Client issues authenticated queries against the portal API. One client owns
// one credential pair and one session cell; concurrent monitors share both.
type Client struct {
	creds      Credentials
	auth       *Authenticator
	session    sessionCell
	apiBaseURL string
	httpClient *http.Client
	pageSize   int
	logger     *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithAPIBaseURL points API queries at a different host, used in tests.
func WithAPIBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.apiBaseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithAuthenticator replaces the default authenticator.
func WithAuthenticator(a *Authenticator) Option {
	return func(c *Client) {
		if a != nil {
			c.auth = a
		}
	}
}

// WithHTTPClient sets a custom HTTP client for API queries.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithPageSize overrides the slot search page size.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// NewClient creates a portal client for one credential pair.
func NewClient(creds Credentials, logger *logging.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		creds:      creds,
		apiBaseURL: defaultAPIBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		pageSize:   defaultPageSize,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.auth == nil {
		c.auth = NewAuthenticator(logger)
	}
	return c
}

// SignedIn reports whether the client currently holds a session.
func (c *Client) SignedIn() bool {
	return c.session.Get() != nil
}

// SignIn performs an explicit login, replacing any current session. Query
// methods sign in lazily; surfaces call this to validate credentials up
// front.
func (c *Client) SignIn(ctx context.Context) error {
	sess, err := c.auth.Login(ctx, c.creds)
	if err != nil {
		return err
	}
	c.session.Set(sess)
	return nil
}

// ListRegions returns all selectable regions.
func (c *Client) ListRegions(ctx context.Context) ([]FilterOption, error) {
	var out struct {
		Regions []FilterOption `json:"regions"`
	}
	err := c.withLoginRetry(ctx, func(ctx context.Context) error {
		return c.get(ctx, initialFiltersPath, nil, &out)
	})
	if err != nil {
		return nil, err
	}
	return out.Regions, nil
}

// ListSpecialties returns the specialties available in a region.
func (c *Client) ListSpecialties(ctx context.Context, regionID string) ([]FilterOption, error) {
	out, err := c.filters(ctx, regionID, "", "")
	if err != nil {
		return nil, err
	}
	return out.Specialties, nil
}

// ListClinics returns the clinics offering a specialty in a region.
func (c *Client) ListClinics(ctx context.Context, regionID, specialtyID string) ([]FilterOption, error) {
	out, err := c.filters(ctx, regionID, specialtyID, "")
	if err != nil {
		return nil, err
	}
	return out.Clinics, nil
}

// ListDoctors returns the doctors for a region and specialty, optionally
// narrowed to one clinic.
func (c *Client) ListDoctors(ctx context.Context, regionID, specialtyID, clinicID string) ([]FilterOption, error) {
	out, err := c.filters(ctx, regionID, specialtyID, clinicID)
	if err != nil {
		return nil, err
	}
	return out.Doctors, nil
}

type filtersResponse struct {
	Specialties []FilterOption `json:"specialties"`
	Clinics     []FilterOption `json:"clinics"`
	Doctors     []FilterOption `json:"doctors"`
}

func (c *Client) filters(ctx context.Context, regionID, specialtyID, clinicID string) (*filtersResponse, error) {
	params := url.Values{}
	params.Set("RegionIds", regionID)
	if specialtyID != "" {
		params.Set("SpecialtyIds", specialtyID)
	}
	if clinicID != "" {
		params.Set("ClinicIds", clinicID)
	}

	var out filtersResponse
	err := c.withLoginRetry(ctx, func(ctx context.Context) error {
		return c.get(ctx, filtersPath, params, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchSlots runs one availability search. An empty result is not an error,
// it means no slots are currently bookable for the query. The page size is
// large enough that a single page covers any realistic result set.
func (c *Client) SearchSlots(ctx context.Context, query SlotQuery) ([]Slot, error) {
	params := url.Values{}
	params.Set("Page", "1")
	params.Set("PageSize", strconv.Itoa(c.pageSize))
	params.Set("RegionIds", query.RegionID)
	params.Set("SpecialtyIds", query.SpecialtyID)
	if query.ClinicID != "" {
		params.Set("ClinicIds", query.ClinicID)
	}
	if query.DoctorID != "" {
		params.Set("DoctorIds", query.DoctorID)
	}
	fromDate := query.FromDate
	if fromDate.IsZero() {
		fromDate = DateOf(time.Now())
	}
	params.Set("StartTime", fromDate.Wire())

	var out struct {
		Items []slotItem `json:"items"`
	}
	err := c.withLoginRetry(ctx, func(ctx context.Context) error {
		return c.get(ctx, slotSearchPath, params, &out)
	})
	if err != nil {
		return nil, err
	}

	slots := make([]Slot, 0, len(out.Items))
	for _, item := range out.Items {
		when, err := parsePortalTime(item.AppointmentDate)
		if err != nil {
			c.logger.Warn("skipping slot with unparsable date", "date", item.AppointmentDate)
			continue
		}
		slots = append(slots, Slot{
			AppointmentDate: when,
			ClinicName:      item.Clinic.Name,
			DoctorName:      item.Doctor.Name,
			SpecialtyName:   item.Specialty.Name,
			VisitType:       item.VisitType,
			BookingString:   item.BookingString,
		})
	}
	return slots, nil
}

// FutureAppointments lists the account's already-booked visits from today
// onward.
func (c *Client) FutureAppointments(ctx context.Context) ([]Appointment, error) {
	params := url.Values{}
	params.Set("Page", "1")
	params.Set("PageSize", strconv.Itoa(c.pageSize))
	params.Set("AppointmentState", "All")
	params.Set("dateFrom", DateOf(time.Now()).Wire())

	var out struct {
		Items []appointmentItem `json:"items"`
	}
	err := c.withLoginRetry(ctx, func(ctx context.Context) error {
		return c.get(ctx, appointmentsPath, params, &out)
	})
	if err != nil {
		return nil, err
	}

	appointments := make([]Appointment, 0, len(out.Items))
	for _, item := range out.Items {
		when, err := parsePortalTime(item.Date)
		if err != nil {
			c.logger.Warn("skipping appointment with unparsable date", "date", item.Date)
			continue
		}
		appointments = append(appointments, Appointment{
			ID:            item.ID,
			Date:          when,
			State:         item.State,
			VisitType:     item.VisitType,
			ClinicName:    item.Clinic.Name,
			DoctorName:    item.Doctor.Name,
			SpecialtyName: item.Specialty.Name,
		})
	}
	return appointments, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	target := c.apiBaseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("medicover: build request: %w", err)
	}
	if s := c.session.Get(); s != nil {
		req.Header.Set("Authorization", "Bearer "+s.AccessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("medicover: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("medicover: decode response: %w", err)
	}
	return nil
}
