package calendar

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"
)

// Compile-time interface check: FakeCalendar must satisfy Calendar.
var _ Calendar = (*FakeCalendar)(nil)

// defaultHorizonDays is how far into the future the fake calendar generates slots.
const defaultHorizonDays = 90

// defaultSeed makes generated availability reproducible across runs.
const defaultSeed = 20240901

// FakeOption is a functional option for configuring a [FakeCalendar].
type FakeOption func(*FakeCalendar)

// WithSeed sets the PRNG seed used to generate availability. The same seed
// always produces the same set of slots relative to the base time.
func WithSeed(seed uint64) FakeOption {
	return func(f *FakeCalendar) {
		f.seed = seed
	}
}

// WithHorizon sets how many days of availability are generated. Default: 90.
func WithHorizon(days int) FakeOption {
	return func(f *FakeCalendar) {
		f.horizonDays = days
	}
}

// WithBaseTime fixes the reference "now" used during slot generation.
// Defaults to time.Now. Useful in tests that need deterministic windows.
func WithBaseTime(base time.Time) FakeOption {
	return func(f *FakeCalendar) {
		f.base = base
	}
}

// FakeCalendar is an in-memory [Calendar] for development and testing.
//
// Initialize generates a pseudo-random but reproducible set of half-hour
// slots on weekday business hours. ScheduleAppointment marks a slot as taken,
// so double-booking the same slot yields [ErrSlotUnavailable] exactly like a
// live backend would.
type FakeCalendar struct {
	tz          *time.Location
	seed        uint64
	horizonDays int
	base        time.Time

	mu     sync.Mutex
	slots  map[string]Slot
	booked map[string]bool
}

// NewFake creates a FakeCalendar producing slots in the given timezone.
func NewFake(tz *time.Location, opts ...FakeOption) *FakeCalendar {
	f := &FakeCalendar{
		tz:          tz,
		seed:        defaultSeed,
		horizonDays: defaultHorizonDays,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Initialize generates the availability set. Safe to call multiple times;
// each call regenerates from the configured seed and base time.
func (f *FakeCalendar) Initialize(_ context.Context) error {
	base := f.base
	if base.IsZero() {
		base = time.Now()
	}
	base = base.In(f.tz)

	r := rand.New(rand.NewPCG(f.seed, f.seed))
	slots := make(map[string]Slot)

	for day := range f.horizonDays {
		d := base.AddDate(0, 0, day)
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		// Half-hour slots between 09:00 and 17:00, each present with ~30% probability.
		for halfHour := range 16 {
			start := time.Date(d.Year(), d.Month(), d.Day(), 9, 0, 0, 0, f.tz).
				Add(time.Duration(halfHour) * 30 * time.Minute)
			if !start.After(base) {
				continue
			}
			if r.IntN(100) >= 30 {
				continue
			}
			s := Slot{StartTime: start}
			slots[s.UniqueHash()] = s
		}
	}

	f.mu.Lock()
	f.slots = slots
	f.booked = make(map[string]bool)
	f.mu.Unlock()
	return nil
}

// ListAvailableSlots returns all generated, not-yet-booked slots in [start, end),
// ordered by start time.
func (f *FakeCalendar) ListAvailableSlots(_ context.Context, start, end time.Time) ([]Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.slots == nil {
		return nil, fmt.Errorf("calendar: fake calendar is not initialized")
	}

	var out []Slot
	for hash, s := range f.slots {
		if f.booked[hash] {
			continue
		}
		if s.StartTime.Before(start) || !s.StartTime.Before(end) {
			continue
		}
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b Slot) int {
		return a.StartTime.Compare(b.StartTime)
	})
	return out, nil
}

// ScheduleAppointment marks the slot starting at req.StartTime as booked.
// Returns [ErrSlotUnavailable] if the slot does not exist or is already taken.
func (f *FakeCalendar) ScheduleAppointment(_ context.Context, req ScheduleRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.slots == nil {
		return fmt.Errorf("calendar: fake calendar is not initialized")
	}

	hash := Slot{StartTime: req.StartTime}.UniqueHash()
	if _, ok := f.slots[hash]; !ok || f.booked[hash] {
		return ErrSlotUnavailable
	}
	f.booked[hash] = true
	return nil
}
