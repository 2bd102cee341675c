package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Compile-time interface check: CalCom must satisfy Calendar.
var _ Calendar = (*CalCom)(nil)

const (
	// defaultCalComBaseURL is the Cal.com v2 API root.
	defaultCalComBaseURL = "https://api.cal.com/v2/"

	// defaultEventTypeSlug is the event type used for front-desk bookings.
	// Created on Initialize when the account does not have it yet.
	defaultEventTypeSlug = "frontdesk"

	// defaultEventDurationMin is the appointment length in minutes.
	defaultEventDurationMin = 30
)

// Cal.com pins endpoint behaviour with a per-request "cal-api-version" header.
const (
	apiVersionMe         = "2024-06-14"
	apiVersionEventTypes = "2024-06-14"
	apiVersionSlots      = "2024-09-04"
	apiVersionBookings   = "2024-08-13"
)

// CalComOption is a functional option for configuring a [CalCom] client.
type CalComOption func(*CalCom)

// WithBaseURL overrides the Cal.com API root. Useful for tests.
func WithBaseURL(baseURL string) CalComOption {
	return func(c *CalCom) {
		c.baseURL = baseURL
	}
}

// WithEventTypeSlug sets the event type slug bookings are made against.
// Default: "frontdesk".
func WithEventTypeSlug(slug string) CalComOption {
	return func(c *CalCom) {
		c.eventSlug = slug
	}
}

// WithEventDuration sets the appointment length in minutes, used when
// Initialize has to create the event type. Default: 30.
func WithEventDuration(minutes int) CalComOption {
	return func(c *CalCom) {
		c.durationMin = minutes
	}
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(hc *http.Client) CalComOption {
	return func(c *CalCom) {
		c.httpc = hc
	}
}

// CalCom is a [Calendar] backed by the Cal.com v2 REST API.
//
// Initialize resolves (or creates) the configured event type; listing and
// booking then go through the /slots and /bookings endpoints. All methods are
// safe for concurrent use — the client is read-only after Initialize.
type CalCom struct {
	apiKey      string
	baseURL     string
	eventSlug   string
	durationMin int
	tz          *time.Location
	httpc       *http.Client

	eventTypeID int
}

// NewCalCom creates a Cal.com calendar client. apiKey must be a Cal.com API
// key; tz is the timezone reported for attendees and used to localize slots.
func NewCalCom(apiKey string, tz *time.Location, opts ...CalComOption) (*CalCom, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("calendar: cal.com api key must not be empty")
	}
	if tz == nil {
		return nil, fmt.Errorf("calendar: timezone must not be nil")
	}

	c := &CalCom{
		apiKey:      apiKey,
		baseURL:     defaultCalComBaseURL,
		eventSlug:   defaultEventTypeSlug,
		durationMin: defaultEventDurationMin,
		tz:          tz,
		httpc:       &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	if !strings.HasSuffix(c.baseURL, "/") {
		c.baseURL += "/"
	}
	return c, nil
}

// Initialize authenticates against the API and resolves the event type ID for
// the configured slug, creating the event type if the account lacks it.
func (c *CalCom) Initialize(ctx context.Context) error {
	var me struct {
		Data struct {
			Username string `json:"username"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "me/", apiVersionMe, nil, nil, &me); err != nil {
		return fmt.Errorf("calendar: cal.com authentication failed: %w", err)
	}

	var eventTypes struct {
		Data []struct {
			ID   int    `json:"id"`
			Slug string `json:"slug"`
		} `json:"data"`
	}
	q := url.Values{"username": {me.Data.Username}}
	if err := c.do(ctx, http.MethodGet, "event-types/", apiVersionEventTypes, q, nil, &eventTypes); err != nil {
		return fmt.Errorf("calendar: cal.com list event types: %w", err)
	}

	for _, et := range eventTypes.Data {
		if et.Slug == c.eventSlug {
			c.eventTypeID = et.ID
			return nil
		}
	}

	slog.Info("cal.com event type not found, creating it", "slug", c.eventSlug)

	var created struct {
		Data struct {
			ID int `json:"id"`
		} `json:"data"`
	}
	payload := map[string]any{
		"lengthInMinutes": c.durationMin,
		"title":           "Front Desk",
		"slug":            c.eventSlug,
	}
	if err := c.do(ctx, http.MethodPost, "event-types", apiVersionEventTypes, nil, payload, &created); err != nil {
		return fmt.Errorf("calendar: cal.com create event type %q: %w", c.eventSlug, err)
	}
	c.eventTypeID = created.Data.ID
	return nil
}

// ListAvailableSlots queries /slots for the configured event type and returns
// every bookable start time in [start, end), localized to the client timezone.
func (c *CalCom) ListAvailableSlots(ctx context.Context, start, end time.Time) ([]Slot, error) {
	if c.eventTypeID == 0 {
		return nil, fmt.Errorf("calendar: cal.com client is not initialized")
	}

	q := url.Values{
		"eventTypeId": {strconv.Itoa(c.eventTypeID)},
		"start":       {start.Format(time.RFC3339)},
		"end":         {end.Format(time.RFC3339)},
	}

	// Response shape: {"data": {"2024-09-04": [{"start": "..."}, ...], ...}}
	var resp struct {
		Data map[string][]struct {
			Start string `json:"start"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "slots/", apiVersionSlots, q, nil, &resp); err != nil {
		return nil, fmt.Errorf("calendar: cal.com list slots: %w", err)
	}

	var out []Slot
	for date, daySlots := range resp.Data {
		for _, s := range daySlots {
			t, err := time.Parse(time.RFC3339, s.Start)
			if err != nil {
				slog.Warn("cal.com returned an unparseable slot start, skipping",
					"date", date, "start", s.Start, "err", err)
				continue
			}
			out = append(out, Slot{StartTime: t.In(c.tz)})
		}
	}
	return out, nil
}

// ScheduleAppointment creates a booking for the slot starting at req.StartTime.
// HTTP conflicts reported by Cal.com for a taken or vanished slot map to
// [ErrSlotUnavailable]; every other failure is returned verbatim.
func (c *CalCom) ScheduleAppointment(ctx context.Context, req ScheduleRequest) error {
	if c.eventTypeID == 0 {
		return fmt.Errorf("calendar: cal.com client is not initialized")
	}

	payload := map[string]any{
		"start": req.StartTime.UTC().Format(time.RFC3339),
		"attendee": map[string]any{
			"name":     req.AttendeeName,
			"email":    req.AttendeeEmail,
			"timeZone": c.tz.String(),
		},
		"eventTypeId": c.eventTypeID,
	}

	err := c.do(ctx, http.MethodPost, "bookings", apiVersionBookings, nil, payload, nil)
	if err == nil {
		return nil
	}

	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.slotUnavailable() {
		return fmt.Errorf("%w: %s", ErrSlotUnavailable, req.StartTime.Format(time.RFC3339))
	}
	return fmt.Errorf("calendar: cal.com create booking: %w", err)
}

// apiError is a non-2xx response from the Cal.com API.
type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("status %d: %s", e.status, e.body)
}

// slotUnavailable reports whether this error indicates a booking conflict
// rather than a generic failure. Cal.com answers 400/409 with an availability
// error code when the start time is already taken.
func (e *apiError) slotUnavailable() bool {
	if e.status != http.StatusBadRequest && e.status != http.StatusConflict {
		return false
	}
	body := strings.ToLower(e.body)
	return strings.Contains(body, "no_available_users_found") ||
		strings.Contains(body, "already has booking") ||
		strings.Contains(body, "not available")
}

// do performs one API request. path is relative to the base URL; version is
// sent as the cal-api-version header; body (when non-nil) is JSON-encoded;
// out (when non-nil) receives the decoded JSON response.
func (c *CalCom) do(ctx context.Context, method, path, version string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("cal-api-version", version)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read response: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &apiError{status: resp.StatusCode, body: string(raw)}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%s %s: decode response: %w", method, path, err)
		}
	}
	return nil
}
