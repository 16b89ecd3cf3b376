// Package schedule validates and orders the daily fire times attached to a
// tracking. A tracking carries between one and five (hour, minute) entries;
// their canonical ascending order decides which one counts as the first
// schedule of the day.
package schedule

import (
	"errors"
	"fmt"
	"sort"
)

// MaxEntries is the most fire times a single tracking may carry.
const MaxEntries = 5

var (
	ErrNoEntries      = errors.New("schedule needs at least one entry")
	ErrTooManyEntries = fmt.Errorf("schedule allows at most %d entries", MaxEntries)
	ErrHourRange      = errors.New("hour must be between 0 and 23")
	ErrMinuteRange    = errors.New("minute must be between 0 and 59")
	ErrDuplicateEntry = errors.New("duplicate schedule entry")
)

// Entry is one daily fire time.
type Entry struct {
	Hour   int
	Minute int
}

func (e Entry) String() string {
	return fmt.Sprintf("%02d:%02d", e.Hour, e.Minute)
}

// minuteOfDay collapses an entry to minutes since midnight for ordering.
func (e Entry) minuteOfDay() int {
	return e.Hour*60 + e.Minute
}

// Set holds a validated schedule in canonical ascending order.
type Set struct {
	entries []Entry
}

// New validates the given entries and returns them as a canonical Set.
// Validation never partially applies: any bad entry rejects the whole set.
func New(entries []Entry) (Set, error) {
	if len(entries) == 0 {
		return Set{}, ErrNoEntries
	}
	if len(entries) > MaxEntries {
		return Set{}, ErrTooManyEntries
	}

	seen := make(map[int]bool, len(entries))
	for _, e := range entries {
		if e.Hour < 0 || e.Hour > 23 {
			return Set{}, fmt.Errorf("entry %s: %w", e, ErrHourRange)
		}
		if e.Minute < 0 || e.Minute > 59 {
			return Set{}, fmt.Errorf("entry %s: %w", e, ErrMinuteRange)
		}
		if seen[e.minuteOfDay()] {
			return Set{}, fmt.Errorf("entry %s: %w", e, ErrDuplicateEntry)
		}
		seen[e.minuteOfDay()] = true
	}

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].minuteOfDay() < sorted[j].minuteOfDay()
	})
	return Set{entries: sorted}, nil
}

// Entries returns the fire times in canonical order.
func (s Set) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of fire times in the set.
func (s Set) Len() int {
	return len(s.entries)
}

// First returns the earliest fire time of the day.
func (s Set) First() Entry {
	return s.entries[0]
}

// NextAfter returns the earliest entry strictly later in the day than the
// given wall-clock time, if any. This is the same-day check the recurrence
// engine uses after a reminder is answered.
func (s Set) NextAfter(hour, minute int) (Entry, bool) {
	after := hour*60 + minute
	for _, e := range s.entries {
		if e.minuteOfDay() > after {
			return e, true
		}
	}
	return Entry{}, false
}
