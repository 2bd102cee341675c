package booking

import "errors"

var (
	// ErrUnknownSlot indicates a slot identifier that was never issued by
	// ListSlots in this session. The caller should list slots again before
	// retrying.
	ErrUnknownSlot = errors.New("booking: unknown slot identifier")

	// ErrBookingInFlight indicates a concurrent booking attempt past its
	// commit point. The caller should wait for the first attempt to settle.
	ErrBookingInFlight = errors.New("booking: another booking attempt is in progress")

	// ErrProvider wraps unexpected calendar-provider failures. The detailed
	// cause is logged, never spoken.
	ErrProvider = errors.New("booking: calendar provider failure")
)
