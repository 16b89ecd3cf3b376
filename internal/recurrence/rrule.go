package recurrence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/twallet/habitus/internal/schedule"
)

// RRULE interop for power users: a daily or weekday tracking together with
// its schedule can be exported as an RFC 5545 RRULE string, and a supplied
// RRULE can be imported back into (policy, schedule). One-time trackings are
// not recurring and have no RRULE form.

var (
	ErrNotRecurring     = errors.New("one-time tracking has no RRULE form")
	ErrNotRepresentable = errors.New("schedule entries with mixed minutes cannot be expressed as one RRULE")
	ErrUnsupportedRule  = errors.New("only FREQ=DAILY and FREQ=WEEKLY rules are supported")
)

var weekdayToRRule = map[time.Weekday]string{
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
	time.Sunday:    "SU",
}

// rruleWeekdayIndex maps teambition's weekday numbering (Monday = 0) onto
// time.Weekday.
var rruleWeekdayIndex = [7]time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// RRule renders a policy and schedule as an RRULE string. All schedule
// entries must share the same minute, since BYHOUR and BYMINUTE combine as a
// cross product.
func RRule(policy Policy, set schedule.Set) (string, error) {
	if policy.IsOneTime() {
		return "", ErrNotRecurring
	}

	entries := set.Entries()
	if len(entries) == 0 {
		return "", fmt.Errorf("empty schedule: %w", ErrNotRepresentable)
	}
	minute := entries[0].Minute
	hours := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Minute != minute {
			return "", ErrNotRepresentable
		}
		hours = append(hours, strconv.Itoa(e.Hour))
	}

	var parts []string
	switch policy.Kind() {
	case Daily:
		parts = append(parts, "FREQ=DAILY")
	case Weekdays:
		parts = append(parts, "FREQ=WEEKLY")
		days := make([]string, 0, 7)
		// RRULE convention lists days Monday first.
		for _, wd := range rruleWeekdayIndex {
			if policy.Days().Has(wd) {
				days = append(days, weekdayToRRule[wd])
			}
		}
		parts = append(parts, "BYDAY="+strings.Join(days, ","))
	default:
		return "", ErrUnsupportedRule
	}

	parts = append(parts, "BYHOUR="+strings.Join(hours, ","))
	parts = append(parts, fmt.Sprintf("BYMINUTE=%d", minute))
	return strings.Join(parts, ";"), nil
}

// ParseRRule imports an RRULE string as a (policy, schedule) pair. The
// RRULE: prefix is optional. Daily and weekly frequencies are accepted;
// anything else is rejected rather than approximated.
func ParseRRule(raw string) (Policy, schedule.Set, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "RRULE:")

	opt, err := rrule.StrToROption(raw)
	if err != nil {
		return Policy{}, schedule.Set{}, fmt.Errorf("failed to parse RRULE: %w", err)
	}

	var policy Policy
	switch opt.Freq {
	case rrule.DAILY:
		policy = NewDaily()
	case rrule.WEEKLY:
		var days WeekdaySet
		for _, wd := range opt.Byweekday {
			n := wd.Day()
			if n < 0 || n > 6 {
				return Policy{}, schedule.Set{}, fmt.Errorf("bad weekday in RRULE: %d", n)
			}
			days = days.With(rruleWeekdayIndex[n])
		}
		policy, err = NewWeekdays(days)
		if err != nil {
			return Policy{}, schedule.Set{}, fmt.Errorf("FREQ=WEEKLY needs BYDAY: %w", err)
		}
	default:
		return Policy{}, schedule.Set{}, ErrUnsupportedRule
	}

	set, err := scheduleFromRule(opt.Byhour, opt.Byminute)
	if err != nil {
		return Policy{}, schedule.Set{}, err
	}
	return policy, set, nil
}

// scheduleFromRule expands BYHOUR x BYMINUTE into schedule entries. Missing
// BYMINUTE means on the hour; missing BYHOUR means 09:00, a sane default for
// a rule like FREQ=DAILY.
func scheduleFromRule(hours, minutes []int) (schedule.Set, error) {
	if len(hours) == 0 {
		hours = []int{9}
	}
	if len(minutes) == 0 {
		minutes = []int{0}
	}
	if len(hours)*len(minutes) > schedule.MaxEntries {
		return schedule.Set{}, fmt.Errorf("RRULE expands to %d fire times: %w",
			len(hours)*len(minutes), schedule.ErrTooManyEntries)
	}

	var entries []schedule.Entry
	for _, h := range hours {
		for _, m := range minutes {
			entries = append(entries, schedule.Entry{Hour: h, Minute: m})
		}
	}
	set, err := schedule.New(entries)
	if err != nil {
		return schedule.Set{}, fmt.Errorf("RRULE fire times: %w", err)
	}
	return set, nil
}
