package booking

import (
	"fmt"
	"time"
)

// relativeLabel describes how far away a slot is, in conversational terms.
// Both times must already be in the assistant's timezone; calendar-date
// comparisons (today, tomorrow) are done on the local date, not on 24-hour
// windows.
func relativeLabel(now, slot time.Time) string {
	sameDate := now.Year() == slot.Year() && now.YearDay() == slot.YearDay()
	if sameDate {
		if slot.Sub(now) < time.Hour {
			return "in less than an hour"
		}
		return "later today"
	}

	tomorrow := now.AddDate(0, 0, 1)
	if tomorrow.Year() == slot.Year() && tomorrow.YearDay() == slot.YearDay() {
		return "tomorrow"
	}

	days := int(slot.Sub(now) / (24 * time.Hour))
	switch {
	case days < 7:
		return fmt.Sprintf("in %d days", days)
	case days < 14:
		return "in 1 week"
	default:
		return fmt.Sprintf("in %d weeks", days/7)
	}
}
