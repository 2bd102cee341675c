package booking

import (
	"testing"
	"time"

	"github.com/MrWong99/frontdesk/internal/calendar"
)

func TestRegistry_PutGet(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()

	slot := calendar.Slot{StartTime: time.Date(2026, time.September, 3, 9, 30, 0, 0, time.UTC)}
	reg.Put(slot)

	got, ok := reg.Get(slot.UniqueHash())
	if !ok {
		t.Fatal("Get did not find the stored slot")
	}
	if !got.StartTime.Equal(slot.StartTime) {
		t.Errorf("stored start = %v, want %v", got.StartTime, slot.StartTime)
	}

	if _, ok := reg.Get("ffffffff"); ok {
		t.Error("Get found a slot for an unissued identifier")
	}
}

func TestRegistry_GrowsAcrossListings(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()

	first := []calendar.Slot{
		{StartTime: time.Date(2026, time.September, 3, 9, 30, 0, 0, time.UTC)},
		{StartTime: time.Date(2026, time.September, 4, 14, 0, 0, 0, time.UTC)},
	}
	second := []calendar.Slot{
		// Overlaps with the first listing plus one new slot.
		first[1],
		{StartTime: time.Date(2026, time.October, 1, 10, 0, 0, 0, time.UTC)},
	}

	for _, s := range first {
		reg.Put(s)
	}
	for _, s := range second {
		reg.Put(s)
	}

	if reg.Len() != 3 {
		t.Errorf("Len = %d, want 3 (union of both listings)", reg.Len())
	}
	// Identifiers from the first listing stay resolvable.
	for _, s := range first {
		if _, ok := reg.Get(s.UniqueHash()); !ok {
			t.Errorf("slot %s from the first listing is no longer resolvable", s.UniqueHash())
		}
	}
}

func TestRegistry_SameSlotSameIdentifier(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, time.September, 3, 9, 30, 0, 0, time.UTC)
	a := calendar.Slot{StartTime: start}
	b := calendar.Slot{StartTime: start.In(time.FixedZone("CEST", 2*3600))}

	// Identifiers are derived from the UTC instant, so the same slot listed
	// in different zone representations maps to one identifier.
	if a.UniqueHash() != b.UniqueHash() {
		t.Errorf("hashes differ: %s vs %s", a.UniqueHash(), b.UniqueHash())
	}

	reg := NewRegistry()
	reg.Put(a)
	reg.Put(b)
	if reg.Len() != 1 {
		t.Errorf("Len = %d, want 1", reg.Len())
	}
}
