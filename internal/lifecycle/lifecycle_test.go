package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/twallet/habitus/internal/models"
	"github.com/twallet/habitus/internal/recurrence"
)

type fakeStore struct {
	tracking *models.Tracking
	user     *models.User
	entries  []models.ScheduleEntry

	active *models.Reminder
	last   *models.Reminder

	inserted     []*models.Reminder
	insertExists bool
	insertErr    error

	statusWrites []*models.Reminder
	statusErr    error

	stateWrites []models.TrackingState
	stateErr    error
}

func (f *fakeStore) Tracking(ctx context.Context, id int64) (*models.Tracking, error) {
	return f.tracking, nil
}

func (f *fakeStore) User(ctx context.Context, id int64) (*models.User, error) {
	return f.user, nil
}

func (f *fakeStore) ScheduleEntries(ctx context.Context, trackingID int64) ([]models.ScheduleEntry, error) {
	return f.entries, nil
}

func (f *fakeStore) ActiveReminder(ctx context.Context, trackingID int64) (*models.Reminder, error) {
	return f.active, nil
}

func (f *fakeStore) LastAnswered(ctx context.Context, trackingID int64) (*models.Reminder, error) {
	return f.last, nil
}

func (f *fakeStore) InsertReminder(ctx context.Context, r *models.Reminder) (bool, error) {
	if f.insertErr != nil {
		return false, f.insertErr
	}
	if f.insertExists {
		return false, nil
	}
	f.inserted = append(f.inserted, r)
	return true, nil
}

func (f *fakeStore) UpdateReminderStatus(ctx context.Context, r *models.Reminder) error {
	if f.statusErr != nil {
		return f.statusErr
	}
	f.statusWrites = append(f.statusWrites, r)
	return nil
}

func (f *fakeStore) UpdateTrackingState(ctx context.Context, id int64, state models.TrackingState) error {
	if f.stateErr != nil {
		return f.stateErr
	}
	f.stateWrites = append(f.stateWrites, state)
	return nil
}

func newFixture(kind recurrence.Kind) (*fakeStore, *Manager) {
	tracking := &models.Tracking{
		TrackingID: 1,
		UserID:     7,
		Question:   "Did you take your meds?",
		Kind:       kind,
		State:      models.TrackingRunning,
	}
	switch kind {
	case recurrence.Weekdays:
		tracking.Weekdays = recurrence.WeekdaySet(0).With(time.Monday).With(time.Thursday)
	case recurrence.OneTime:
		d := time.Date(2026, time.September, 10, 0, 0, 0, 0, time.UTC)
		tracking.OneTimeDate = &d
	}

	store := &fakeStore{
		tracking: tracking,
		user:     &models.User{UserID: 7, Timezone: "America/Argentina/Buenos_Aires"},
		entries: []models.ScheduleEntry{
			{TrackingID: 1, Hour: 9},
			{TrackingID: 1, Hour: 20},
		},
	}
	return store, NewManager(store, recurrence.NewEngine())
}

func pendingReminder(scheduled time.Time) *models.Reminder {
	return &models.Reminder{
		ReminderID:    42,
		TrackingID:    1,
		UserID:        7,
		ScheduledTime: scheduled,
		Status:        models.ReminderPending,
	}
}

func TestTransitionTable(t *testing.T) {
	statuses := []models.ReminderStatus{
		models.ReminderUpcoming, models.ReminderPending, models.ReminderAnswered,
	}
	allowed := map[[2]models.ReminderStatus]bool{
		{models.ReminderUpcoming, models.ReminderPending}:  true,
		{models.ReminderUpcoming, models.ReminderAnswered}: true,
		{models.ReminderPending, models.ReminderAnswered}:  true,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			r := &models.Reminder{Status: from}
			updated, err := Transition(r, to)
			if allowed[[2]models.ReminderStatus{from, to}] {
				if err != nil {
					t.Errorf("%s -> %s: unexpected error %v", from, to, err)
					continue
				}
				if updated.Status != to {
					t.Errorf("%s -> %s: updated status = %s", from, to, updated.Status)
				}
				if r.Status != from {
					t.Errorf("%s -> %s: input reminder mutated", from, to)
				}
			} else {
				var terr *TransitionError
				if !errors.As(err, &terr) {
					t.Errorf("%s -> %s: error = %v, want TransitionError", from, to, err)
					continue
				}
				if r.Status != from {
					t.Errorf("%s -> %s: rejected transition mutated reminder", from, to)
				}
			}
		}
	}
}

func TestTransitionRejectsUnknownStatus(t *testing.T) {
	r := &models.Reminder{Status: models.ReminderUpcoming}
	if _, err := Transition(r, models.ReminderStatus("snoozed")); err == nil {
		t.Fatal("expected an error for an unknown status")
	}
}

func TestAnswerCreatesSameDaySuccessor(t *testing.T) {
	store, mgr := newFixture(recurrence.Daily)

	// 09:00 local reminder answered at 09:30 local.
	scheduled := time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)
	now := scheduled.Add(30 * time.Minute)

	updated, err := mgr.Answer(context.Background(), pendingReminder(scheduled), models.ValueCompleted, "felt fine", now)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != models.ReminderAnswered {
		t.Errorf("status = %s, want answered", updated.Status)
	}
	if updated.Value == nil || *updated.Value != models.ValueCompleted {
		t.Errorf("value = %v, want completed", updated.Value)
	}
	if updated.AnsweredAt == nil {
		t.Error("AnsweredAt not set")
	}

	if len(store.inserted) != 1 {
		t.Fatalf("inserted %d successors, want 1", len(store.inserted))
	}
	successor := store.inserted[0]
	want := time.Date(2026, time.August, 29, 23, 0, 0, 0, time.UTC) // 20:00 local
	if !successor.ScheduledTime.Equal(want) {
		t.Errorf("successor at %s, want %s", successor.ScheduledTime, want)
	}
	if successor.Status != models.ReminderUpcoming {
		t.Errorf("successor status = %s, want upcoming", successor.Status)
	}
	if successor.TrackingID != 1 || successor.UserID != 7 {
		t.Errorf("successor ownership = tracking %d user %d", successor.TrackingID, successor.UserID)
	}
}

func TestAnswerLateCreatesPendingSuccessor(t *testing.T) {
	store, mgr := newFixture(recurrence.Daily)

	// The 09:00 reminder is answered two days late: the successor computed
	// from its own scheduled time is already in the past and starts pending.
	scheduled := time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)
	now := scheduled.Add(48 * time.Hour)

	if _, err := mgr.Answer(context.Background(), pendingReminder(scheduled), models.ValueDismissed, "", now); err != nil {
		t.Fatal(err)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("inserted %d successors, want 1", len(store.inserted))
	}
	if got := store.inserted[0].Status; got != models.ReminderPending {
		t.Errorf("successor status = %s, want pending", got)
	}
}

func TestAnswerOneTimeArchivesTracking(t *testing.T) {
	store, mgr := newFixture(recurrence.OneTime)

	// The single occurrence on 2026-09-10 is answered; no successor exists
	// and the tracking must be archived.
	scheduled := time.Date(2026, time.September, 10, 12, 0, 0, 0, time.UTC)

	if _, err := mgr.Answer(context.Background(), pendingReminder(scheduled), models.ValueCompleted, "", scheduled.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if len(store.inserted) != 0 {
		t.Fatalf("inserted %d successors, want 0", len(store.inserted))
	}
	if len(store.stateWrites) != 1 || store.stateWrites[0] != models.TrackingArchived {
		t.Fatalf("state writes = %v, want [archived]", store.stateWrites)
	}
}

func TestAnswerPausedTrackingSchedulesNothing(t *testing.T) {
	store, mgr := newFixture(recurrence.Daily)
	store.tracking.State = models.TrackingPaused

	scheduled := time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)
	if _, err := mgr.Answer(context.Background(), pendingReminder(scheduled), models.ValueCompleted, "", scheduled); err != nil {
		t.Fatal(err)
	}
	if len(store.inserted) != 0 || len(store.stateWrites) != 0 {
		t.Error("paused tracking must not schedule or archive")
	}
}

func TestAnswerSwallowsSuccessorFailure(t *testing.T) {
	store, mgr := newFixture(recurrence.Daily)
	store.insertErr = errors.New("connection refused")

	scheduled := time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)
	updated, err := mgr.Answer(context.Background(), pendingReminder(scheduled), models.ValueCompleted, "", scheduled.Add(time.Minute))
	if err != nil {
		t.Fatalf("answer failed because of successor bookkeeping: %v", err)
	}
	if updated.Status != models.ReminderAnswered {
		t.Errorf("status = %s, want answered", updated.Status)
	}
	if len(store.statusWrites) != 1 {
		t.Errorf("answer was not persisted")
	}
}

func TestAnswerLostInsertRaceIsNotAnError(t *testing.T) {
	store, mgr := newFixture(recurrence.Daily)
	store.insertExists = true

	scheduled := time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)
	if _, err := mgr.Answer(context.Background(), pendingReminder(scheduled), models.ValueCompleted, "", scheduled); err != nil {
		t.Fatal(err)
	}
	if len(store.inserted) != 0 {
		t.Error("insert should have been skipped")
	}
}

func TestAnswerRejectsTerminalReminder(t *testing.T) {
	store, mgr := newFixture(recurrence.Daily)

	answered := pendingReminder(time.Now().UTC())
	answered.Status = models.ReminderAnswered

	if _, err := mgr.Answer(context.Background(), answered, models.ValueCompleted, "", time.Now()); err == nil {
		t.Fatal("expected a transition error")
	}
	if len(store.statusWrites) != 0 {
		t.Error("rejected transition must not touch the store")
	}
}

func TestAnswerRejectsInvalidValue(t *testing.T) {
	store, mgr := newFixture(recurrence.Daily)

	if _, err := mgr.Answer(context.Background(), pendingReminder(time.Now().UTC()), models.ReminderValue("maybe"), "", time.Now()); err == nil {
		t.Fatal("expected an error for an invalid value")
	}
	if len(store.statusWrites) != 0 {
		t.Error("invalid value must not touch the store")
	}
}

func TestAnswerPersistenceFailureSurfaces(t *testing.T) {
	store, mgr := newFixture(recurrence.Daily)
	store.statusErr = errors.New("deadlock")

	if _, err := mgr.Answer(context.Background(), pendingReminder(time.Now().UTC()), models.ValueCompleted, "", time.Now()); err == nil {
		t.Fatal("expected the primary write failure to surface")
	}
	if len(store.inserted) != 0 {
		t.Error("successor hook must not run when the answer was not persisted")
	}
}

func TestMarkPending(t *testing.T) {
	store, mgr := newFixture(recurrence.Daily)

	upcoming := pendingReminder(time.Now().UTC())
	upcoming.Status = models.ReminderUpcoming

	updated, err := mgr.MarkPending(context.Background(), upcoming)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != models.ReminderPending {
		t.Errorf("status = %s, want pending", updated.Status)
	}
	if len(store.statusWrites) != 1 {
		t.Error("pending flip not persisted")
	}
	if len(store.inserted) != 0 {
		t.Error("pending flip must not schedule anything")
	}
}

func TestScheduleInitial(t *testing.T) {
	store, mgr := newFixture(recurrence.Daily)

	// Created at 10:00 local: the first reminder is the same day's 20:00.
	now := time.Date(2026, time.August, 29, 13, 0, 0, 0, time.UTC)
	if err := mgr.ScheduleInitial(context.Background(), store.tracking, now); err != nil {
		t.Fatal(err)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("inserted %d reminders, want 1", len(store.inserted))
	}
	want := time.Date(2026, time.August, 29, 23, 0, 0, 0, time.UTC)
	if !store.inserted[0].ScheduledTime.Equal(want) {
		t.Errorf("first reminder at %s, want %s", store.inserted[0].ScheduledTime, want)
	}
}

func TestResync(t *testing.T) {
	t.Run("recreates from last answered", func(t *testing.T) {
		store, mgr := newFixture(recurrence.Daily)
		last := pendingReminder(time.Date(2026, time.August, 28, 23, 0, 0, 0, time.UTC)) // 20:00 local Aug 28
		last.Status = models.ReminderAnswered
		store.last = last

		now := time.Date(2026, time.August, 29, 15, 0, 0, 0, time.UTC)
		if err := mgr.Resync(context.Background(), store.tracking, now); err != nil {
			t.Fatal(err)
		}
		if len(store.inserted) != 1 {
			t.Fatalf("inserted %d reminders, want 1", len(store.inserted))
		}
		want := time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC) // Aug 29 09:00 local
		got := store.inserted[0]
		if !got.ScheduledTime.Equal(want) {
			t.Errorf("resynced reminder at %s, want %s", got.ScheduledTime, want)
		}
		if got.Status != models.ReminderPending {
			t.Errorf("missed occurrence status = %s, want pending", got.Status)
		}
	})

	t.Run("noop with active reminder", func(t *testing.T) {
		store, mgr := newFixture(recurrence.Daily)
		store.active = pendingReminder(time.Now().UTC())

		if err := mgr.Resync(context.Background(), store.tracking, time.Now()); err != nil {
			t.Fatal(err)
		}
		if len(store.inserted) != 0 {
			t.Error("resync with an active reminder must not insert")
		}
	})

	t.Run("noop for archived tracking", func(t *testing.T) {
		store, mgr := newFixture(recurrence.Daily)
		store.tracking.State = models.TrackingArchived

		if err := mgr.Resync(context.Background(), store.tracking, time.Now()); err != nil {
			t.Fatal(err)
		}
		if len(store.inserted) != 0 {
			t.Error("archived tracking must not be resynced")
		}
	})
}
