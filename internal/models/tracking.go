package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/twallet/habitus/internal/clock"
	"github.com/twallet/habitus/internal/recurrence"
)

// MaxQuestionLength bounds the tracked question text.
const MaxQuestionLength = 100

// TrackingState is the closed set of states a tracking can be in. Archived
// is terminal for scheduling: no further reminders are ever generated.
type TrackingState string

const (
	TrackingRunning  TrackingState = "running"
	TrackingPaused   TrackingState = "paused"
	TrackingArchived TrackingState = "archived"
)

func (s TrackingState) Valid() bool {
	switch s {
	case TrackingRunning, TrackingPaused, TrackingArchived:
		return true
	}
	return false
}

var (
	ErrEmptyQuestion   = errors.New("question must not be empty")
	ErrQuestionTooLong = fmt.Errorf("question must be at most %d characters", MaxQuestionLength)
)

// Tracking is a user's recurring question.
type Tracking struct {
	TrackingID  int64                 `json:"tracking_id"`
	UserID      int64                 `json:"user_id"`
	Question    string                `json:"question"`
	Notes       string                `json:"notes"`
	Icon        string                `json:"icon"`
	Kind        recurrence.Kind       `json:"kind"`
	Weekdays    recurrence.WeekdaySet `json:"weekdays"`
	OneTimeDate *time.Time            `json:"one_time_date"` // date-only, stored at UTC midnight
	State       TrackingState         `json:"state"`
	CreatedAt   time.Time             `json:"created_at"`
}

// Validate checks the question text and the recurrence fields together, so
// an inconsistent tracking is rejected before any persistence happens.
func (t *Tracking) Validate() error {
	if t.Question == "" {
		return ErrEmptyQuestion
	}
	if len([]rune(t.Question)) > MaxQuestionLength {
		return ErrQuestionTooLong
	}
	if !t.State.Valid() {
		return fmt.Errorf("invalid tracking state %q", t.State)
	}
	_, err := t.Policy()
	return err
}

// Policy builds the recurrence policy from the persisted fields. The
// constructors reject inconsistent combinations (empty weekday set, missing
// one-time date), so an invalid rule cannot reach the engine.
func (t *Tracking) Policy() (recurrence.Policy, error) {
	switch t.Kind {
	case recurrence.Daily:
		return recurrence.NewDaily(), nil
	case recurrence.Weekdays:
		return recurrence.NewWeekdays(t.Weekdays)
	case recurrence.OneTime:
		if t.OneTimeDate == nil {
			return recurrence.Policy{}, errors.New("one-time tracking needs a date")
		}
		d := t.OneTimeDate.UTC()
		return recurrence.NewOneTime(clock.Date{Year: d.Year(), Month: d.Month(), Day: d.Day()}), nil
	default:
		return recurrence.Policy{}, fmt.Errorf("%w: %q", recurrence.ErrInvalidKind, t.Kind)
	}
}

// IsRunning reports whether the tracking still generates reminders.
func (t *Tracking) IsRunning() bool {
	return t.State == TrackingRunning
}
