// Package recurrence decides when a tracking's next reminder fires. A
// RecurrencePolicy picks eligible calendar dates; the Engine combines it with
// the tracking's schedule and timezone to produce concrete UTC instants.
package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/twallet/habitus/internal/clock"
)

// Kind is the closed set of recurrence rules a tracking can have.
type Kind string

const (
	Daily    Kind = "daily"
	Weekdays Kind = "weekdays"
	OneTime  Kind = "one_time"
)

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	switch k {
	case Daily, Weekdays, OneTime:
		return true
	}
	return false
}

var (
	ErrInvalidKind   = errors.New("invalid recurrence kind")
	ErrEmptyWeekdays = errors.New("weekday recurrence needs at least one weekday")
)

// WeekdaySet is a bitmask over time.Weekday (Sunday = bit 0).
type WeekdaySet uint8

func (s WeekdaySet) Has(d time.Weekday) bool {
	return s&(1<<uint(d)) != 0
}

func (s WeekdaySet) With(d time.Weekday) WeekdaySet {
	return s | 1<<uint(d)
}

// Empty reports whether no weekday is selected.
func (s WeekdaySet) Empty() bool {
	return s&0x7f == 0
}

// Days lists the selected weekdays in Sunday-first order.
func (s WeekdaySet) Days() []time.Weekday {
	var days []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Has(d) {
			days = append(days, d)
		}
	}
	return days
}

func (s WeekdaySet) String() string {
	if s.Empty() {
		return "none"
	}
	parts := make([]string, 0, 7)
	for _, d := range s.Days() {
		parts = append(parts, d.String()[:3])
	}
	return strings.Join(parts, ",")
}

// Policy is a tracking's repeat rule. Construct it through one of the
// constructors below so an invalid rule cannot exist past this boundary.
type Policy struct {
	kind Kind
	days WeekdaySet
	date clock.Date
}

// NewDaily returns a policy that fires every calendar day.
func NewDaily() Policy {
	return Policy{kind: Daily}
}

// NewWeekdays returns a policy that fires on the given weekdays.
func NewWeekdays(days WeekdaySet) (Policy, error) {
	if days.Empty() {
		return Policy{}, ErrEmptyWeekdays
	}
	return Policy{kind: Weekdays, days: days}, nil
}

// NewOneTime returns a policy with exactly one possible occurrence, on date.
func NewOneTime(date clock.Date) Policy {
	return Policy{kind: OneTime, date: date}
}

func (p Policy) Kind() Kind       { return p.kind }
func (p Policy) Days() WeekdaySet { return p.days }
func (p Policy) Date() clock.Date { return p.date }
func (p Policy) IsOneTime() bool  { return p.kind == OneTime }

// OccursOn reports whether the given local date itself qualifies under the
// policy. For one-time policies this is always false: once the reference
// point has reached the date, the single occurrence is consumed and only
// NextEligibleDate decides whether it is still ahead.
func (p Policy) OccursOn(d clock.Date) bool {
	switch p.kind {
	case Daily:
		return true
	case Weekdays:
		return p.days.Has(d.Weekday())
	default:
		return false
	}
}

// NextEligibleDate returns the earliest calendar date strictly after `after`
// that qualifies under the policy, or false when no further date exists
// (a consumed one-time occurrence, or an empty weekday set).
func (p Policy) NextEligibleDate(after clock.Date) (clock.Date, bool) {
	switch p.kind {
	case Daily:
		return after.Next(), true
	case Weekdays:
		if p.days.Empty() {
			return clock.Date{}, false
		}
		d := after.Next()
		for i := 0; i < 7; i++ {
			if p.days.Has(d.Weekday()) {
				return d, true
			}
			d = d.Next()
		}
		return clock.Date{}, false
	case OneTime:
		if p.date.After(after) {
			return p.date, true
		}
		return clock.Date{}, false
	default:
		return clock.Date{}, false
	}
}

// Describe renders the policy for user-facing listings.
func (p Policy) Describe() string {
	switch p.kind {
	case Daily:
		return "every day"
	case Weekdays:
		return "every " + p.days.String()
	case OneTime:
		return fmt.Sprintf("once on %s", p.date)
	default:
		return string(p.kind)
	}
}
