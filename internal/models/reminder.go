package models

import "time"

// ReminderStatus is the closed set of reminder states.
type ReminderStatus string

const (
	ReminderUpcoming ReminderStatus = "upcoming" // scheduled, not yet due
	ReminderPending  ReminderStatus = "pending"  // due, waiting for the user
	ReminderAnswered ReminderStatus = "answered" // resolved; terminal
)

func (s ReminderStatus) Valid() bool {
	switch s {
	case ReminderUpcoming, ReminderPending, ReminderAnswered:
		return true
	}
	return false
}

// ReminderValue is how the user resolved an answered reminder.
type ReminderValue string

const (
	ValueCompleted ReminderValue = "completed"
	ValueDismissed ReminderValue = "dismissed"
)

func (v ReminderValue) Valid() bool {
	return v == ValueCompleted || v == ValueDismissed
}

// Reminder is one concrete occurrence of a tracking's question.
// ScheduledTime is always a UTC instant; answered reminders are kept as
// history and never regenerated.
type Reminder struct {
	ReminderID    int64          `json:"reminder_id"`
	TrackingID    int64          `json:"tracking_id"`
	UserID        int64          `json:"user_id"`
	ScheduledTime time.Time      `json:"scheduled_time"`
	Status        ReminderStatus `json:"status"`
	Value         *ReminderValue `json:"value"`
	Notes         string         `json:"notes"`
	NotifiedAt    *time.Time     `json:"notified_at"`
	AnsweredAt    *time.Time     `json:"answered_at"`
	LastMessageID *int           `json:"last_message_id"` // last sent Telegram message, deleted before resend
	CreatedAt     time.Time      `json:"created_at"`
}

// IsActive reports whether the reminder still occupies the tracking's single
// active slot (anything not yet answered).
func (r *Reminder) IsActive() bool {
	return r.Status != ReminderAnswered
}
