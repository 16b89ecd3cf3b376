// Package lifecycle governs a reminder's status transitions and the one
// side effect that follows an answer: creating the successor reminder, or
// archiving a one-time tracking that has no further occurrence.
package lifecycle

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/twallet/habitus/internal/models"
	"github.com/twallet/habitus/internal/recurrence"
	"github.com/twallet/habitus/internal/schedule"
)

// TransitionError rejects a disallowed status change. The reminder is left
// untouched when one is returned.
type TransitionError struct {
	From models.ReminderStatus
	To   models.ReminderStatus
}

func (e *TransitionError) Error() string {
	if e.From == e.To {
		return fmt.Sprintf("reminder is already %s", e.From)
	}
	if e.From == models.ReminderAnswered {
		return fmt.Sprintf("reminder is answered and cannot become %s", e.To)
	}
	return fmt.Sprintf("reminder cannot go from %s to %s", e.From, e.To)
}

// Transition validates a status change and returns the updated reminder,
// leaving the input untouched. The allowed moves are upcoming->pending,
// upcoming->answered and pending->answered; answered is terminal, and a
// same-state transition is an error rather than a silent success.
func Transition(r *models.Reminder, to models.ReminderStatus) (*models.Reminder, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("invalid reminder status %q", to)
	}
	allowed := false
	switch r.Status {
	case models.ReminderUpcoming:
		allowed = to == models.ReminderPending || to == models.ReminderAnswered
	case models.ReminderPending:
		allowed = to == models.ReminderAnswered
	}
	if !allowed {
		return nil, &TransitionError{From: r.Status, To: to}
	}
	updated := *r
	updated.Status = to
	return &updated, nil
}

// Store is the persistence collaborator the manager depends on. Reminder
// lookups return nil without error when no row matches. InsertReminder must
// be atomic against the tracking's single active slot: it reports false,
// without inserting, when an unanswered reminder already exists for the
// tracking.
type Store interface {
	Tracking(ctx context.Context, id int64) (*models.Tracking, error)
	User(ctx context.Context, id int64) (*models.User, error)
	ScheduleEntries(ctx context.Context, trackingID int64) ([]models.ScheduleEntry, error)
	ActiveReminder(ctx context.Context, trackingID int64) (*models.Reminder, error)
	LastAnswered(ctx context.Context, trackingID int64) (*models.Reminder, error)
	InsertReminder(ctx context.Context, r *models.Reminder) (bool, error)
	UpdateReminderStatus(ctx context.Context, r *models.Reminder) error
	UpdateTrackingState(ctx context.Context, id int64, state models.TrackingState) error
}

// Manager orchestrates reminder transitions against the store. All
// collaborators are passed in at construction; the caller supplies "now" on
// every entry point, so the manager itself never reads a clock.
type Manager struct {
	store  Store
	engine *recurrence.Engine
}

func NewManager(store Store, engine *recurrence.Engine) *Manager {
	return &Manager{store: store, engine: engine}
}

// MarkPending flips a due reminder from upcoming to pending. It is a pure
// status change with no scheduling side effect.
func (m *Manager) MarkPending(ctx context.Context, r *models.Reminder) (*models.Reminder, error) {
	updated, err := Transition(r, models.ReminderPending)
	if err != nil {
		return nil, err
	}
	if err := m.store.UpdateReminderStatus(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to persist pending status: %w", err)
	}
	return updated, nil
}

// Answer resolves a reminder with the user's value and notes. The answer is
// persisted first; only then does the successor hook run, and any failure in
// it is logged and swallowed. The user's answer must never be reported as
// failed because of scheduling bookkeeping, and a missing successor is
// repaired by the next resync pass.
func (m *Manager) Answer(ctx context.Context, r *models.Reminder, value models.ReminderValue, notes string, now time.Time) (*models.Reminder, error) {
	if !value.Valid() {
		return nil, fmt.Errorf("invalid reminder value %q", value)
	}
	updated, err := Transition(r, models.ReminderAnswered)
	if err != nil {
		return nil, err
	}
	updated.Value = &value
	updated.Notes = notes
	answeredAt := now.UTC()
	updated.AnsweredAt = &answeredAt

	if err := m.store.UpdateReminderStatus(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to persist answer: %w", err)
	}

	if err := m.createSuccessor(ctx, updated, now); err != nil {
		log.Printf("Failed to schedule successor for reminder %d (tracking %d): %v",
			updated.ReminderID, updated.TrackingID, err)
	}
	return updated, nil
}

// createSuccessor runs the after-answered hook: compute the next occurrence
// from the answered reminder's own scheduled time, insert it, or archive an
// exhausted one-time tracking.
func (m *Manager) createSuccessor(ctx context.Context, answered *models.Reminder, now time.Time) error {
	tracking, err := m.store.Tracking(ctx, answered.TrackingID)
	if err != nil {
		return fmt.Errorf("failed to load tracking: %w", err)
	}
	if !tracking.IsRunning() {
		// Paused or archived trackings schedule nothing; not an error.
		return nil
	}
	return m.scheduleNext(ctx, tracking, answered.ScheduledTime, now)
}

// ScheduleInitial creates the first reminder for a freshly created tracking.
func (m *Manager) ScheduleInitial(ctx context.Context, tracking *models.Tracking, now time.Time) error {
	if !tracking.IsRunning() {
		return nil
	}
	return m.scheduleNext(ctx, tracking, now, now)
}

// ScheduleAfter creates the next reminder strictly after the given instant.
// Used when the user skips an occurrence: the skipped reminder is deleted
// first, then this derives its successor.
func (m *Manager) ScheduleAfter(ctx context.Context, tracking *models.Tracking, after, now time.Time) error {
	if !tracking.IsRunning() {
		return nil
	}
	return m.scheduleNext(ctx, tracking, after, now)
}

// Resync repairs a running tracking that has no active reminder, re-deriving
// the next occurrence from the last answered reminder (or from now for a
// tracking that never fired). It is idempotent: with an active reminder in
// place it does nothing.
func (m *Manager) Resync(ctx context.Context, tracking *models.Tracking, now time.Time) error {
	if !tracking.IsRunning() {
		return nil
	}
	active, err := m.store.ActiveReminder(ctx, tracking.TrackingID)
	if err != nil {
		return fmt.Errorf("failed to load active reminder: %w", err)
	}
	if active != nil {
		return nil
	}

	after := now
	if last, err := m.store.LastAnswered(ctx, tracking.TrackingID); err != nil {
		return fmt.Errorf("failed to load last answered reminder: %w", err)
	} else if last != nil {
		after = last.ScheduledTime
	}
	return m.scheduleNext(ctx, tracking, after, now)
}

func (m *Manager) scheduleNext(ctx context.Context, tracking *models.Tracking, after, now time.Time) error {
	policy, err := tracking.Policy()
	if err != nil {
		return err
	}

	rows, err := m.store.ScheduleEntries(ctx, tracking.TrackingID)
	if err != nil {
		return fmt.Errorf("failed to load schedule entries: %w", err)
	}
	entries := make([]schedule.Entry, len(rows))
	for i, row := range rows {
		entries[i] = schedule.Entry{Hour: row.Hour, Minute: row.Minute}
	}
	set, err := schedule.New(entries)
	if err != nil {
		return fmt.Errorf("tracking %d schedule: %w", tracking.TrackingID, err)
	}

	user, err := m.store.User(ctx, tracking.UserID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}

	next, err := m.engine.Next(policy, set, user.Timezone, after)
	if err != nil {
		return err
	}
	if next == nil {
		if policy.IsOneTime() {
			if err := m.store.UpdateTrackingState(ctx, tracking.TrackingID, models.TrackingArchived); err != nil {
				return fmt.Errorf("failed to archive exhausted tracking: %w", err)
			}
			log.Printf("Archived one-time tracking %d", tracking.TrackingID)
		}
		return nil
	}

	status := models.ReminderUpcoming
	if !next.After(now) {
		// Already due at creation time.
		status = models.ReminderPending
	}
	successor := &models.Reminder{
		TrackingID:    tracking.TrackingID,
		UserID:        tracking.UserID,
		ScheduledTime: next.UTC(),
		Status:        status,
	}
	created, err := m.store.InsertReminder(ctx, successor)
	if err != nil {
		return fmt.Errorf("failed to insert successor reminder: %w", err)
	}
	if !created {
		// Another answer raced us and already created the successor.
		log.Printf("Tracking %d already has an active reminder, skipping successor", tracking.TrackingID)
	}
	return nil
}
