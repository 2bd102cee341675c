// Package mock provides a scripted test double for the calendar.Calendar
// interface. Unlike calendar.FakeCalendar, which generates its own
// availability, the mock returns exactly what the test configures and records
// every call for later inspection.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/MrWong99/frontdesk/internal/calendar"
)

// ScheduleCall records a single invocation of ScheduleAppointment.
type ScheduleCall struct {
	// Req is the request passed to ScheduleAppointment.
	Req calendar.ScheduleRequest
}

// ListCall records a single invocation of ListAvailableSlots.
type ListCall struct {
	Start time.Time
	End   time.Time
}

// Calendar is a mock implementation of calendar.Calendar.
// Zero values cause methods to succeed with empty results.
type Calendar struct {
	mu sync.Mutex

	// Slots is returned by every ListAvailableSlots call.
	Slots []calendar.Slot

	// ListErr, if non-nil, is returned by ListAvailableSlots.
	ListErr error

	// ScheduleErr, if non-nil, is returned by ScheduleAppointment.
	ScheduleErr error

	// InitializeErr, if non-nil, is returned by Initialize.
	InitializeErr error

	// ListCalls records every ListAvailableSlots invocation in order.
	ListCalls []ListCall

	// ScheduleCalls records every ScheduleAppointment invocation in order.
	ScheduleCalls []ScheduleCall

	// InitializeCount is the number of Initialize invocations.
	InitializeCount int
}

// Initialize records the call and returns InitializeErr.
func (c *Calendar) Initialize(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.InitializeCount++
	return c.InitializeErr
}

// ListAvailableSlots records the call and returns the configured Slots.
func (c *Calendar) ListAvailableSlots(_ context.Context, start, end time.Time) ([]calendar.Slot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ListCalls = append(c.ListCalls, ListCall{Start: start, End: end})
	if c.ListErr != nil {
		return nil, c.ListErr
	}
	out := make([]calendar.Slot, len(c.Slots))
	copy(out, c.Slots)
	return out, nil
}

// ScheduleAppointment records the call and returns ScheduleErr.
func (c *Calendar) ScheduleAppointment(_ context.Context, req calendar.ScheduleRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ScheduleCalls = append(c.ScheduleCalls, ScheduleCall{Req: req})
	return c.ScheduleErr
}
