// Package notify defines the Notification Sender capability used to confirm
// bookings out-of-band, plus the Twilio SMS implementation that ships with
// Frontdesk.
//
// Delivery failures are never surfaced as errors: SendConfirmation reports
// success via its boolean return so a failed SMS can degrade the confirmation
// message without ever rolling back a committed booking.
package notify

import (
	"context"
	"fmt"
	"log/slog"
)

// Language selects the template used for confirmation messages.
type Language string

const (
	LanguageGerman  Language = "de"
	LanguageFrench  Language = "fr"
	LanguageEnglish Language = "en"
)

// IsValid reports whether l is a recognised language.
func (l Language) IsValid() bool {
	switch l {
	case LanguageGerman, LanguageFrench, LanguageEnglish:
		return true
	}
	return false
}

// messageTemplates holds the per-language SMS body templates. The verb is
// filled with the localized appointment details.
var messageTemplates = map[Language]string{
	LanguageGerman:  "Bestätigung des Termins: %s",
	LanguageFrench:  "Confirmation de rendez-vous: %s",
	LanguageEnglish: "Appointment confirmation: %s",
}

// MessageBody returns the confirmation SMS body for the given language and
// appointment details. Unknown languages fall back to German.
func MessageBody(lang Language, details string) string {
	tmpl, ok := messageTemplates[lang]
	if !ok {
		tmpl = messageTemplates[LanguageGerman]
	}
	return fmt.Sprintf(tmpl, details)
}

// Sender delivers booking confirmations to an attendee.
//
// Implementations must be safe for concurrent use and must never panic or
// return an error: any delivery failure is reported via the boolean only.
type Sender interface {
	// SendConfirmation sends the appointment details to phoneNumber in the
	// given language. Returns false on any delivery failure.
	SendConfirmation(ctx context.Context, phoneNumber, details string, lang Language) bool
}

// Compile-time interface check: Disabled must satisfy Sender.
var _ Sender = Disabled{}

// Disabled is a [Sender] used when no SMS credentials are configured.
// Every send is logged and reported as failed, which degrades the booking
// confirmation message without blocking the booking itself.
type Disabled struct{}

// SendConfirmation logs the skipped delivery and returns false.
func (Disabled) SendConfirmation(_ context.Context, phoneNumber, _ string, _ Language) bool {
	slog.Warn("sms delivery is disabled, skipping confirmation", "to", phoneNumber)
	return false
}
