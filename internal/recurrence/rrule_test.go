package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/twallet/habitus/internal/clock"
	"github.com/twallet/habitus/internal/schedule"
)

func TestRRuleRender(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		entries []schedule.Entry
		want    string
		wantErr error
	}{
		{
			name:    "daily single time",
			policy:  NewDaily(),
			entries: []schedule.Entry{{Hour: 9}},
			want:    "FREQ=DAILY;BYHOUR=9;BYMINUTE=0",
		},
		{
			name:    "daily two times same minute",
			policy:  NewDaily(),
			entries: []schedule.Entry{{Hour: 20, Minute: 30}, {Hour: 9, Minute: 30}},
			want:    "FREQ=DAILY;BYHOUR=9,20;BYMINUTE=30",
		},
		{
			name: "weekdays",
			policy: func() Policy {
				p, _ := NewWeekdays(WeekdaySet(0).With(time.Monday).With(time.Thursday))
				return p
			}(),
			entries: []schedule.Entry{{Hour: 8, Minute: 15}},
			want:    "FREQ=WEEKLY;BYDAY=MO,TH;BYHOUR=8;BYMINUTE=15",
		},
		{
			name:    "one time has no rrule",
			policy:  NewOneTime(clock.Date{Year: 2026, Month: time.September, Day: 10}),
			entries: []schedule.Entry{{Hour: 9}},
			wantErr: ErrNotRecurring,
		},
		{
			name:    "mixed minutes not representable",
			policy:  NewDaily(),
			entries: []schedule.Entry{{Hour: 9, Minute: 0}, {Hour: 20, Minute: 30}},
			wantErr: ErrNotRepresentable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := schedule.New(tt.entries)
			if err != nil {
				t.Fatal(err)
			}
			got, err := RRule(tt.policy, set)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("RRule() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("RRule() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseRRule(t *testing.T) {
	t.Run("weekly round trip", func(t *testing.T) {
		policy, set, err := ParseRRule("RRULE:FREQ=WEEKLY;BYDAY=MO,TH;BYHOUR=8;BYMINUTE=15")
		if err != nil {
			t.Fatal(err)
		}
		if policy.Kind() != Weekdays {
			t.Fatalf("Kind = %q, want weekdays", policy.Kind())
		}
		if !policy.Days().Has(time.Monday) || !policy.Days().Has(time.Thursday) {
			t.Errorf("Days = %v", policy.Days())
		}
		if policy.Days().Has(time.Friday) {
			t.Errorf("Days = %v has Friday", policy.Days())
		}
		if set.Len() != 1 || set.First() != (schedule.Entry{Hour: 8, Minute: 15}) {
			t.Errorf("schedule = %v", set.Entries())
		}

		rendered, err := RRule(policy, set)
		if err != nil {
			t.Fatal(err)
		}
		if rendered != "FREQ=WEEKLY;BYDAY=MO,TH;BYHOUR=8;BYMINUTE=15" {
			t.Errorf("re-rendered = %q", rendered)
		}
	})

	t.Run("daily with defaults", func(t *testing.T) {
		policy, set, err := ParseRRule("FREQ=DAILY")
		if err != nil {
			t.Fatal(err)
		}
		if policy.Kind() != Daily {
			t.Fatalf("Kind = %q, want daily", policy.Kind())
		}
		if set.First() != (schedule.Entry{Hour: 9, Minute: 0}) {
			t.Errorf("default schedule = %v", set.Entries())
		}
	})

	t.Run("cross product expansion", func(t *testing.T) {
		_, set, err := ParseRRule("FREQ=DAILY;BYHOUR=9,21;BYMINUTE=0,30")
		if err != nil {
			t.Fatal(err)
		}
		want := []schedule.Entry{
			{Hour: 9, Minute: 0},
			{Hour: 9, Minute: 30},
			{Hour: 21, Minute: 0},
			{Hour: 21, Minute: 30},
		}
		got := set.Entries()
		if len(got) != len(want) {
			t.Fatalf("entries = %v", got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("entries[%d] = %v, want %v", i, got[i], want[i])
			}
		}
	})

	t.Run("too many fire times", func(t *testing.T) {
		_, _, err := ParseRRule("FREQ=DAILY;BYHOUR=1,2,3;BYMINUTE=0,30")
		if !errors.Is(err, schedule.ErrTooManyEntries) {
			t.Fatalf("error = %v, want ErrTooManyEntries", err)
		}
	})

	t.Run("unsupported frequency", func(t *testing.T) {
		if _, _, err := ParseRRule("FREQ=MONTHLY;BYMONTHDAY=1"); !errors.Is(err, ErrUnsupportedRule) {
			t.Fatalf("error = %v, want ErrUnsupportedRule", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, _, err := ParseRRule("not an rrule"); err == nil {
			t.Fatal("expected an error")
		}
	})
}
