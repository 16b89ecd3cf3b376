package repository

import (
	"context"

	"github.com/twallet/habitus/internal/models"
)

// Store bundles the repositories behind the lifecycle manager's persistence
// interface.
type Store struct {
	Users     *UserRepository
	Trackings *TrackingRepository
	Schedules *ScheduleRepository
	Reminders *ReminderRepository
}

func NewStore(users *UserRepository, trackings *TrackingRepository, schedules *ScheduleRepository, reminders *ReminderRepository) *Store {
	return &Store{Users: users, Trackings: trackings, Schedules: schedules, Reminders: reminders}
}

func (s *Store) Tracking(ctx context.Context, id int64) (*models.Tracking, error) {
	return s.Trackings.GetByID(ctx, id)
}

func (s *Store) User(ctx context.Context, id int64) (*models.User, error) {
	return s.Users.GetByID(ctx, id)
}

func (s *Store) ScheduleEntries(ctx context.Context, trackingID int64) ([]models.ScheduleEntry, error) {
	return s.Schedules.GetByTracking(ctx, trackingID)
}

func (s *Store) ActiveReminder(ctx context.Context, trackingID int64) (*models.Reminder, error) {
	return s.Reminders.GetActive(ctx, trackingID)
}

func (s *Store) LastAnswered(ctx context.Context, trackingID int64) (*models.Reminder, error) {
	return s.Reminders.GetLastAnswered(ctx, trackingID)
}

func (s *Store) InsertReminder(ctx context.Context, r *models.Reminder) (bool, error) {
	return s.Reminders.Create(ctx, r)
}

func (s *Store) UpdateReminderStatus(ctx context.Context, r *models.Reminder) error {
	return s.Reminders.UpdateStatus(ctx, r)
}

func (s *Store) UpdateTrackingState(ctx context.Context, id int64, state models.TrackingState) error {
	return s.Trackings.SetState(ctx, id, state)
}
