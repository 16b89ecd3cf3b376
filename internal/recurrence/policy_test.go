package recurrence

import (
	"testing"
	"time"

	"github.com/twallet/habitus/internal/clock"
)

func TestWeekdaySet(t *testing.T) {
	var s WeekdaySet
	if !s.Empty() {
		t.Error("zero set should be empty")
	}

	s = s.With(time.Monday).With(time.Thursday)
	if s.Empty() {
		t.Error("set with days should not be empty")
	}
	if !s.Has(time.Monday) || !s.Has(time.Thursday) {
		t.Error("missing selected days")
	}
	if s.Has(time.Tuesday) || s.Has(time.Sunday) {
		t.Error("has days that were never selected")
	}
	if got := s.String(); got != "Mon,Thu" {
		t.Errorf("String() = %q, want %q", got, "Mon,Thu")
	}
}

func TestNewWeekdaysRejectsEmptySet(t *testing.T) {
	if _, err := NewWeekdays(0); err != ErrEmptyWeekdays {
		t.Fatalf("NewWeekdays(0) error = %v, want ErrEmptyWeekdays", err)
	}
}

func TestDailyNextEligibleDate(t *testing.T) {
	p := NewDaily()

	after := clock.Date{Year: 2026, Month: time.August, Day: 29}
	got, ok := p.NextEligibleDate(after)
	if !ok {
		t.Fatal("daily policy must always have a next date")
	}
	if got != (clock.Date{Year: 2026, Month: time.August, Day: 30}) {
		t.Errorf("NextEligibleDate = %v, want 2026-08-30", got)
	}
	if !p.OccursOn(after) {
		t.Error("daily policy must occur on every date")
	}
}

func TestWeekdaysNextEligibleDate(t *testing.T) {
	monThu, err := NewWeekdays(WeekdaySet(0).With(time.Monday).With(time.Thursday))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		after clock.Date
		want  clock.Date
	}{
		{
			// 2026-08-25 is a Tuesday; the following Thursday is 08-27.
			name:  "tuesday advances to thursday not wednesday",
			after: clock.Date{Year: 2026, Month: time.August, Day: 25},
			want:  clock.Date{Year: 2026, Month: time.August, Day: 27},
		},
		{
			// From Thursday the next hit is Monday, skipping the weekend.
			name:  "thursday advances to monday",
			after: clock.Date{Year: 2026, Month: time.August, Day: 27},
			want:  clock.Date{Year: 2026, Month: time.August, Day: 31},
		},
		{
			// Strictly after: a Monday does not return itself.
			name:  "monday advances to thursday",
			after: clock.Date{Year: 2026, Month: time.August, Day: 31},
			want:  clock.Date{Year: 2026, Month: time.September, Day: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := monThu.NextEligibleDate(tt.after)
			if !ok {
				t.Fatal("expected a next date")
			}
			if got != tt.want {
				t.Errorf("NextEligibleDate(%v) = %v, want %v", tt.after, got, tt.want)
			}
		})
	}

	if !monThu.OccursOn(clock.Date{Year: 2026, Month: time.August, Day: 31}) {
		t.Error("OccursOn(Monday) = false for a Mon/Thu policy")
	}
	if monThu.OccursOn(clock.Date{Year: 2026, Month: time.August, Day: 25}) {
		t.Error("OccursOn(Tuesday) = true for a Mon/Thu policy")
	}
}

func TestOneTimeNextEligibleDate(t *testing.T) {
	target := clock.Date{Year: 2026, Month: time.September, Day: 10}
	p := NewOneTime(target)

	tests := []struct {
		name   string
		after  clock.Date
		want   clock.Date
		wantOK bool
	}{
		{
			name:   "before the date",
			after:  clock.Date{Year: 2026, Month: time.September, Day: 1},
			want:   target,
			wantOK: true,
		},
		{
			name:  "on the date the occurrence is consumed",
			after: target,
		},
		{
			name:  "after the date",
			after: clock.Date{Year: 2026, Month: time.September, Day: 11},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := p.NextEligibleDate(tt.after)
			if ok != tt.wantOK {
				t.Fatalf("NextEligibleDate(%v) ok = %v, want %v", tt.after, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("NextEligibleDate(%v) = %v, want %v", tt.after, got, tt.want)
			}
		})
	}

	if p.OccursOn(target) {
		t.Error("OccursOn must be false for one-time policies")
	}
}

func TestKindValid(t *testing.T) {
	for _, k := range []Kind{Daily, Weekdays, OneTime} {
		if !k.Valid() {
			t.Errorf("Kind(%q).Valid() = false", k)
		}
	}
	if Kind("monthly").Valid() || Kind("").Valid() {
		t.Error("unknown kinds must not validate")
	}
}
