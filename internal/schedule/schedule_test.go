package schedule

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		wantErr error
	}{
		{
			name:    "single entry",
			entries: []Entry{{9, 0}},
		},
		{
			name:    "five entries",
			entries: []Entry{{6, 0}, {9, 30}, {12, 0}, {18, 15}, {22, 45}},
		},
		{
			name:    "empty",
			entries: nil,
			wantErr: ErrNoEntries,
		},
		{
			name:    "six entries",
			entries: []Entry{{1, 0}, {2, 0}, {3, 0}, {4, 0}, {5, 0}, {6, 0}},
			wantErr: ErrTooManyEntries,
		},
		{
			name:    "hour too large",
			entries: []Entry{{24, 0}},
			wantErr: ErrHourRange,
		},
		{
			name:    "negative hour",
			entries: []Entry{{-1, 30}},
			wantErr: ErrHourRange,
		},
		{
			name:    "minute too large",
			entries: []Entry{{9, 60}},
			wantErr: ErrMinuteRange,
		},
		{
			name:    "negative minute",
			entries: []Entry{{9, -5}},
			wantErr: ErrMinuteRange,
		},
		{
			name:    "duplicate pair",
			entries: []Entry{{9, 0}, {20, 0}, {9, 0}},
			wantErr: ErrDuplicateEntry,
		},
		{
			name:    "same hour different minute is fine",
			entries: []Entry{{9, 0}, {9, 30}},
		},
		{
			name:    "midnight and end of day",
			entries: []Entry{{0, 0}, {23, 59}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.entries)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("New() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSetOrdering(t *testing.T) {
	set, err := New([]Entry{{20, 0}, {9, 30}, {9, 0}})
	if err != nil {
		t.Fatal(err)
	}

	want := []Entry{{9, 0}, {9, 30}, {20, 0}}
	got := set.Entries()
	if len(got) != len(want) {
		t.Fatalf("Entries() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Entries()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if set.First() != (Entry{9, 0}) {
		t.Errorf("First() = %v, want 09:00", set.First())
	}
}

func TestNextAfter(t *testing.T) {
	set, err := New([]Entry{{9, 0}, {20, 0}})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		hour   int
		minute int
		want   Entry
		wantOK bool
	}{
		{name: "before first", hour: 0, minute: 0, want: Entry{9, 0}, wantOK: true},
		{name: "between entries", hour: 9, minute: 30, want: Entry{20, 0}, wantOK: true},
		{name: "exactly on an entry skips it", hour: 9, minute: 0, want: Entry{20, 0}, wantOK: true},
		{name: "exactly on last entry", hour: 20, minute: 0, wantOK: false},
		{name: "after last", hour: 23, minute: 59, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := set.NextAfter(tt.hour, tt.minute)
			if ok != tt.wantOK {
				t.Fatalf("NextAfter(%02d:%02d) ok = %v, want %v", tt.hour, tt.minute, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("NextAfter(%02d:%02d) = %v, want %v", tt.hour, tt.minute, got, tt.want)
			}
		})
	}
}
