// Package booking implements the slot-booking protocol: listing availability
// in speakable form, resolving the short slot identifiers a user picks, and
// committing appointments through a calendar provider with an out-of-band SMS
// confirmation.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/MrWong99/frontdesk/internal/calendar"
	"github.com/MrWong99/frontdesk/internal/notify"
	"github.com/MrWong99/frontdesk/internal/observe"
)

// RangeSelector names one of the fixed listing horizons offered to the user.
type RangeSelector string

const (
	// RangeDefault lists the next two weeks.
	RangeDefault RangeSelector = "default"
	// RangeTwoWeeks is an alias for the default horizon.
	RangeTwoWeeks RangeSelector = "+2week"
	// RangeOneMonth lists the next thirty days.
	RangeOneMonth RangeSelector = "+1month"
	// RangeThreeMonths lists the next ninety days.
	RangeThreeMonths RangeSelector = "+3month"
)

// Days returns the horizon length. Unknown selectors fall back to the default
// two weeks.
func (r RangeSelector) Days() int {
	switch r {
	case RangeOneMonth:
		return 30
	case RangeThreeMonths:
		return 90
	default:
		return 14
	}
}

// Config assembles a [Protocol].
type Config struct {
	// Calendar is the availability and booking backend. Required.
	Calendar calendar.Calendar

	// Notifier delivers confirmation SMS. Required (use notify.Disabled when
	// SMS is not configured).
	Notifier notify.Sender

	// Timezone is the assistant's local timezone, used for all spoken dates.
	// Required.
	Timezone *time.Location

	// Language selects the wording of confirmations. Required.
	Language notify.Language

	// Acknowledge, if set, is invoked asynchronously at the start of every
	// listing so the voice layer can fill the lookup latency ("one moment,
	// please"). It must not block the listing itself.
	Acknowledge func(ctx context.Context)

	// Metrics records booking telemetry. Optional.
	Metrics *observe.Metrics

	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// Protocol drives the booking conversation for one session. It owns the
// session's slot registry and serializes booking attempts past their commit
// point.
type Protocol struct {
	cal      calendar.Calendar
	notifier notify.Sender
	tz       *time.Location
	lang     notify.Language
	ack      func(ctx context.Context)
	metrics  *observe.Metrics
	now      func() time.Time

	reg *Registry

	mu       sync.Mutex
	inFlight bool
}

// New creates a Protocol with an empty slot registry.
func New(cfg Config) (*Protocol, error) {
	if cfg.Calendar == nil {
		return nil, errors.New("booking: a calendar is required")
	}
	if cfg.Notifier == nil {
		return nil, errors.New("booking: a notification sender is required")
	}
	if cfg.Timezone == nil {
		return nil, errors.New("booking: a timezone is required")
	}
	if !cfg.Language.IsValid() {
		return nil, fmt.Errorf("booking: unsupported language %q", cfg.Language)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Protocol{
		cal:      cfg.Calendar,
		notifier: cfg.Notifier,
		tz:       cfg.Timezone,
		lang:     cfg.Language,
		ack:      cfg.Acknowledge,
		metrics:  cfg.Metrics,
		now:      cfg.Now,
		reg:      NewRegistry(),
	}, nil
}

// ListSlots fetches availability over the selected horizon and renders it as
// one speakable line per slot:
//
//	a1b2c3d4 – Tuesday, September 1, 2026 at 09:30 CEST (in 2 days)
//
// Every listed slot is recorded in the session registry so its identifier
// stays bookable later, even after further listings. An empty horizon yields
// a fixed no-availability sentence instead of an error.
func (p *Protocol) ListSlots(ctx context.Context, sel RangeSelector) (string, error) {
	if p.ack != nil {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Warn("booking: acknowledge hook panicked", "panic", r)
				}
			}()
			p.ack(ctx)
		}()
	}

	now := p.now().In(p.tz)
	end := now.AddDate(0, 0, sel.Days())

	slots, err := p.cal.ListAvailableSlots(ctx, now, end)
	if err != nil {
		slog.Error("booking: listing slots failed", "range", string(sel), "err", err)
		return "", fmt.Errorf("%w: %v", ErrProvider, err)
	}
	if p.metrics != nil {
		p.metrics.SlotsListed.Add(ctx, int64(len(slots)))
	}
	if len(slots) == 0 {
		return "No slots available at the moment.", nil
	}

	lines := make([]string, 0, len(slots))
	for _, slot := range slots {
		p.reg.Put(slot)
		local := slot.StartTime.In(p.tz)
		lines = append(lines, fmt.Sprintf("%s – %s at %s %s (%s)",
			slot.UniqueHash(),
			local.Format("Monday, January 2, 2006"),
			local.Format("15:04"),
			local.Format("MST"),
			relativeLabel(now, local),
		))
	}
	return strings.Join(lines, "\n"), nil
}

// BookSlot books the slot behind slotID for the given attendee and returns
// the confirmation sentence to speak.
//
// Identifiers not issued in this session fail fast with [ErrUnknownSlot]
// before any provider call. Once the provider call starts, the attempt runs
// to completion even if ctx is cancelled, and concurrent attempts are
// rejected with [ErrBookingInFlight]. A slot taken in the meantime surfaces
// as [calendar.ErrSlotUnavailable] and leaves the registry entry intact. SMS
// delivery failure never fails the booking; it only changes the wording.
func (p *Protocol) BookSlot(ctx context.Context, slotID, attendeeName, attendeeEmail, attendeePhone string) (string, error) {
	slot, ok := p.reg.Get(slotID)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSlot, slotID)
	}

	p.mu.Lock()
	if p.inFlight {
		p.mu.Unlock()
		return "", ErrBookingInFlight
	}
	p.inFlight = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.inFlight = false
		p.mu.Unlock()
	}()

	// Past the commit point the provider call must settle regardless of the
	// caller hanging up.
	tail := context.WithoutCancel(ctx)

	err := p.cal.ScheduleAppointment(tail, calendar.ScheduleRequest{
		StartTime:     slot.StartTime,
		AttendeeName:  attendeeName,
		AttendeeEmail: attendeeEmail,
	})
	if err != nil {
		if errors.Is(err, calendar.ErrSlotUnavailable) {
			slog.Info("booking: slot no longer available", "slot", slotID)
			return "", err
		}
		slog.Error("booking: scheduling failed", "slot", slotID, "err", err)
		return "", fmt.Errorf("%w: %v", ErrProvider, err)
	}

	details := slot.StartTime.In(p.tz).Format("Monday, January 2, 2006 at 15:04 MST")
	slog.Info("booking: appointment scheduled", "slot", slotID, "attendee", attendeeName, "start", details)

	smsSent := false
	if attendeePhone != "" {
		smsSent = p.notifier.SendConfirmation(tail, attendeePhone, details, p.lang)
		if p.metrics != nil {
			status := "failed"
			if smsSent {
				status = "delivered"
			}
			p.metrics.SMSDeliveries.Add(tail, 1, metric.WithAttributes(observe.Attr("status", status)))
		}
	}

	return confirmationMessage(p.lang, attendeeName, details, smsSent), nil
}

// confirmationMessage renders the sentence spoken after a committed booking.
// The SMS outcome only varies the trailing clause.
func confirmationMessage(lang notify.Language, name, details string, smsSent bool) string {
	var msg, sent, failed string
	switch lang {
	case notify.LanguageFrench:
		msg = fmt.Sprintf("Merci, %s. Le rendez-vous a bien été fixé pour %s.", name, details)
		sent = " Un SMS de confirmation a été envoyé à votre numéro de téléphone."
		failed = " Nous n'avons pas pu envoyer de SMS de confirmation à votre numéro de téléphone."
	case notify.LanguageEnglish:
		msg = fmt.Sprintf("Thank you, %s. The appointment was successfully scheduled for %s.", name, details)
		sent = " A confirmation SMS was sent to your phone number."
		failed = " We could not send a confirmation SMS to your phone number."
	default:
		msg = fmt.Sprintf("Vielen Dank, %s. Der Termin wurde erfolgreich für %s vereinbart.", name, details)
		sent = " Eine Bestätigungs-SMS wurde an Ihre Telefonnummer gesendet."
		failed = " Wir konnten keine Bestätigungs-SMS an Ihre Telefonnummer senden."
	}
	if smsSent {
		return msg + sent
	}
	return msg + failed
}
