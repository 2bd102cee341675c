package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Compile-time interface check: Twilio must satisfy Sender.
var _ Sender = (*Twilio)(nil)

// defaultTwilioBaseURL is the Twilio REST API root.
const defaultTwilioBaseURL = "https://api.twilio.com/2010-04-01"

// TwilioOption is a functional option for configuring a [Twilio] sender.
type TwilioOption func(*Twilio)

// WithTwilioBaseURL overrides the Twilio API root. Useful for tests.
func WithTwilioBaseURL(baseURL string) TwilioOption {
	return func(t *Twilio) {
		t.baseURL = baseURL
	}
}

// WithTwilioHTTPClient sets the HTTP client used for API calls.
func WithTwilioHTTPClient(hc *http.Client) TwilioOption {
	return func(t *Twilio) {
		t.httpc = hc
	}
}

// Twilio sends confirmation SMS through the Twilio Messages REST API.
// All methods are safe for concurrent use — the sender is read-only after
// construction.
type Twilio struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpc      *http.Client
}

// NewTwilio creates a Twilio SMS sender. accountSID, authToken, and the
// sending phone number (E.164 format) are all required.
func NewTwilio(accountSID, authToken, from string, opts ...TwilioOption) (*Twilio, error) {
	if accountSID == "" || authToken == "" || from == "" {
		return nil, fmt.Errorf("notify: twilio account sid, auth token, and from number are all required")
	}

	t := &Twilio{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		baseURL:    defaultTwilioBaseURL,
		httpc:      &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(t)
	}
	t.baseURL = strings.TrimSuffix(t.baseURL, "/")
	return t, nil
}

// SendConfirmation posts a message to the Twilio Messages endpoint.
// Failures are logged with full detail and reported only via the boolean.
func (t *Twilio) SendConfirmation(ctx context.Context, phoneNumber, details string, lang Language) bool {
	form := url.Values{
		"To":   {phoneNumber},
		"From": {t.from},
		"Body": {MessageBody(lang, details)},
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", t.baseURL, t.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		slog.Error("twilio: build request failed", "err", err)
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(t.accountSID, t.authToken)

	resp, err := t.httpc.Do(req)
	if err != nil {
		slog.Warn("twilio: sms delivery failed", "to", phoneNumber, "err", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		slog.Warn("twilio: sms delivery rejected",
			"to", phoneNumber,
			"status", resp.StatusCode,
			"body", string(body),
		)
		return false
	}

	slog.Info("twilio: confirmation sms sent", "to", phoneNumber, "language", string(lang))
	return true
}
