// Package calendar defines the Calendar capability consumed by the booking
// protocol: listing bookable time slots and committing an appointment.
//
// Two implementations ship with Frontdesk: [CalCom], a client for the Cal.com
// v2 REST API, and [FakeCalendar], an in-memory calendar for development and
// tests. The booking core only ever sees the [Calendar] interface and never
// branches on which implementation is active.
package calendar

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// ErrSlotUnavailable is returned by ScheduleAppointment when the requested
// start time can no longer be booked — typically because another party took
// the slot between listing and booking. This is an expected outcome of the
// listing/booking race, not a fault.
var ErrSlotUnavailable = errors.New("calendar: slot is no longer available")

// hashLen is the number of hex characters exposed as a slot's unique hash.
const hashLen = 8

// Slot represents one bookable appointment start time.
//
// Slots are produced fresh on every availability query and are never
// persisted. A slot's identity is fully determined by its start time.
type Slot struct {
	// StartTime is the timezone-aware start of the bookable slot.
	StartTime time.Time
}

// UniqueHash returns a deterministic short identifier for this slot, derived
// from its start time. The same instant always yields the same hash,
// regardless of the wall-clock timezone the Slot carries, so re-listing a
// window re-issues identical identifiers for unchanged slots.
func (s Slot) UniqueHash() string {
	sum := sha256.Sum256([]byte(s.StartTime.UTC().Format(time.RFC3339)))
	return hex.EncodeToString(sum[:])[:hashLen]
}

// ScheduleRequest carries the attendee identity for a booking attempt.
type ScheduleRequest struct {
	// StartTime is the slot start to reserve.
	StartTime time.Time

	// AttendeeName is the full name of the person booking the appointment.
	AttendeeName string

	// AttendeeEmail is the attendee's email address.
	AttendeeEmail string
}

// Calendar is the abstraction over an appointment-calendar backend.
//
// Implementations must be safe for concurrent use and must respect context
// cancellation. The returned slot order is not guaranteed; callers must not
// assume sortedness.
type Calendar interface {
	// Initialize prepares the backend for use (e.g., resolving the event type
	// on a remote provider). It must be called once before any other method.
	Initialize(ctx context.Context) error

	// ListAvailableSlots returns all bookable slots with start times in
	// [start, end). The result may be empty.
	ListAvailableSlots(ctx context.Context, start, end time.Time) ([]Slot, error)

	// ScheduleAppointment reserves the slot beginning at req.StartTime.
	// Returns [ErrSlotUnavailable] when the slot was taken in the meantime,
	// or another error for backend failures.
	ScheduleAppointment(ctx context.Context, req ScheduleRequest) error
}
