package recurrence

import (
	"fmt"
	"time"

	"github.com/twallet/habitus/internal/clock"
	"github.com/twallet/habitus/internal/schedule"
)

// Engine computes the next reminder instant for a tracking. It is stateless
// and safe for concurrent use; every input, including the reference point,
// comes from the caller.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Next returns the next reminder instant strictly after `after`, in UTC.
// A nil result with a nil error means the policy has no further occurrence
// (a consumed one-time tracking, or an empty weekday set).
//
// The reference point is first rendered in the tracking's own timezone. If
// the current local date still qualifies under the policy and a schedule
// entry on that date lies strictly ahead of the local wall-clock time, that
// entry wins: a user with 09:00 and 20:00 daily times who answers the 09:00
// reminder is next reminded at 20:00 the same day. Otherwise the policy's
// next eligible date is used with its earliest entry.
func (e *Engine) Next(policy Policy, set schedule.Set, timezone string, after time.Time) (*time.Time, error) {
	if set.Len() == 0 {
		return nil, fmt.Errorf("tracking has no schedule entries")
	}
	loc, err := clock.LoadLocation(timezone)
	if err != nil {
		return nil, err
	}

	date, hour, minute := clock.LocalParts(after, loc)

	if policy.OccursOn(date) {
		entry, ok := set.NextAfter(hour, minute)
		for ok {
			t := clock.ToUTC(date, entry.Hour, entry.Minute, loc)
			if t.After(after) {
				return &t, nil
			}
			// A DST transition can pull the converted instant back to or
			// before the reference even though the wall time reads later.
			// Try the remaining entries on the same date.
			entry, ok = set.NextAfter(entry.Hour, entry.Minute)
		}
	}

	next, ok := policy.NextEligibleDate(date)
	if !ok {
		return nil, nil
	}
	first := set.First()
	t := clock.ToUTC(next, first.Hour, first.Minute, loc)
	return &t, nil
}
