package clock

import (
	"fmt"
	"time"
)

// Date is a calendar date with no time-of-day and no timezone attached.
// It always describes a wall-clock date in some tracking's own timezone;
// the conversion functions below decide what instant it maps to.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf extracts the calendar date from an instant as seen in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	local := t.In(loc)
	return Date{Year: local.Year(), Month: local.Month(), Day: local.Day()}
}

// Next returns the calendar date immediately following d.
func (d Date) Next() Date {
	return d.AddDays(1)
}

// AddDays returns the date n days after d. AddDate normalizes overflow
// (Jan 32 becomes Feb 1), which is exactly what calendar stepping needs.
func (d Date) AddDays(n int) Date {
	t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// Weekday returns the day of the week for d. A calendar date's weekday does
// not depend on timezone once the date itself is a local date.
func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool {
	if d.Year != other.Year {
		return d.Year > other.Year
	}
	if d.Month != other.Month {
		return d.Month > other.Month
	}
	return d.Day > other.Day
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// LoadLocation loads an IANA timezone. An empty name means the wall-clock
// values are already UTC and no conversion should happen.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}

// ToUTC converts a wall-clock (date, hour, minute) in loc to the UTC instant
// it names. The offset of loc depends on the date itself (daylight saving),
// so the conversion goes through a trial instant: build the requested fields
// as if they were UTC, subtract the zone offset sampled at that trial
// instant, and check the result by rendering it back in loc. Near a
// transition the sampled offset can sit on the wrong side of it, so a second
// pass repeats the correction with the offset sampled at the first
// candidate. Offsets are at most +-14:00 and move at most once per day, so
// two passes reach every wall-clock time that exists in loc.
//
// A wall-clock time that does not exist in loc (inside a spring-forward gap)
// never fails: both passes miss and the two candidates bracket the gap. The
// later one is returned, so gap times snap forward past the transition,
// displaced from the requested fields by exactly the width of the gap
// (02:30 -> 03:30 in America/New_York). An ambiguous time (repeated during
// fall-back) resolves deterministically to one of its two instants.
func ToUTC(d Date, hour, minute int, loc *time.Location) time.Time {
	trial := time.Date(d.Year, d.Month, d.Day, hour, minute, 0, 0, time.UTC)
	if loc == nil || loc == time.UTC {
		return trial
	}
	first := trial.Add(-offsetAt(trial, loc))
	if rendersAs(first, d, hour, minute, loc) {
		return first
	}
	second := trial.Add(-offsetAt(first, loc))
	if rendersAs(second, d, hour, minute, loc) {
		return second
	}
	if second.After(first) {
		return second
	}
	return first
}

// offsetAt returns loc's UTC offset at the given instant.
func offsetAt(t time.Time, loc *time.Location) time.Duration {
	_, seconds := t.In(loc).Zone()
	return time.Duration(seconds) * time.Second
}

func rendersAs(t time.Time, d Date, hour, minute int, loc *time.Location) bool {
	gd, gh, gm := LocalParts(t, loc)
	return gd == d && gh == hour && gm == minute
}

// LocalParts renders a UTC instant as wall-clock parts in loc.
// It is the inverse of ToUTC for every wall-clock time that exists in loc.
func LocalParts(t time.Time, loc *time.Location) (Date, int, int) {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	d := Date{Year: local.Year(), Month: local.Month(), Day: local.Day()}
	return d, local.Hour(), local.Minute()
}
