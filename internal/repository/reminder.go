package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/twallet/habitus/internal/database"
	"github.com/twallet/habitus/internal/models"
)

type ReminderRepository struct {
	db *database.DB
}

func NewReminderRepository(db *database.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

const reminderColumns = `reminder_id, tracking_id, user_id, scheduled_time, status, value, notes, notified_at, answered_at, last_message_id, created_at`

func scanReminder(row interface{ Scan(dest ...any) error }) (*models.Reminder, error) {
	r := &models.Reminder{}
	err := row.Scan(&r.ReminderID, &r.TrackingID, &r.UserID, &r.ScheduledTime,
		&r.Status, &r.Value, &r.Notes, &r.NotifiedAt, &r.AnsweredAt, &r.LastMessageID, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Create inserts a reminder unless the tracking already has an unanswered
// one. The partial unique index on (tracking_id) WHERE status <> 'answered'
// makes the check-and-insert atomic; a lost race reports false, not an
// error. On success the reminder's id and creation time are filled in.
func (r *ReminderRepository) Create(ctx context.Context, reminder *models.Reminder) (bool, error) {
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO reminders (tracking_id, user_id, scheduled_time, status, notes)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (tracking_id) WHERE status <> 'answered' DO NOTHING
		 RETURNING reminder_id, created_at`,
		reminder.TrackingID, reminder.UserID, reminder.ScheduledTime, reminder.Status, reminder.Notes,
	).Scan(&reminder.ReminderID, &reminder.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *ReminderRepository) GetByID(ctx context.Context, reminderID int64) (*models.Reminder, error) {
	return scanReminder(r.db.Pool.QueryRow(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE reminder_id = $1`,
		reminderID,
	))
}

// GetActive returns the tracking's single unanswered reminder, or nil when
// none exists.
func (r *ReminderRepository) GetActive(ctx context.Context, trackingID int64) (*models.Reminder, error) {
	reminder, err := scanReminder(r.db.Pool.QueryRow(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE tracking_id = $1 AND status <> 'answered'`,
		trackingID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return reminder, err
}

// GetLastAnswered returns the most recently scheduled answered reminder of a
// tracking, or nil; the resync pass derives the next occurrence from it.
func (r *ReminderRepository) GetLastAnswered(ctx context.Context, trackingID int64) (*models.Reminder, error) {
	reminder, err := scanReminder(r.db.Pool.QueryRow(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE tracking_id = $1 AND status = 'answered'
		 ORDER BY scheduled_time DESC LIMIT 1`,
		trackingID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return reminder, err
}

// GetDueUpcoming lists upcoming reminders whose scheduled time has elapsed.
func (r *ReminderRepository) GetDueUpcoming(ctx context.Context, until time.Time) ([]*models.Reminder, error) {
	return r.query(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE status = 'upcoming' AND scheduled_time <= $1
		 ORDER BY scheduled_time ASC`,
		until,
	)
}

// GetUnnotifiedPending lists pending reminders the user has not been told
// about yet.
func (r *ReminderRepository) GetUnnotifiedPending(ctx context.Context) ([]*models.Reminder, error) {
	return r.query(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE status = 'pending' AND notified_at IS NULL
		 ORDER BY scheduled_time ASC`,
	)
}

// GetPendingByUser lists a user's due, unanswered reminders for listings and
// the daily digest.
func (r *ReminderRepository) GetPendingByUser(ctx context.Context, userID int64) ([]*models.Reminder, error) {
	return r.query(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE user_id = $1 AND status = 'pending'
		 ORDER BY scheduled_time ASC`,
		userID,
	)
}

func (r *ReminderRepository) GetActiveByUser(ctx context.Context, userID int64) ([]*models.Reminder, error) {
	return r.query(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE user_id = $1 AND status <> 'answered'
		 ORDER BY scheduled_time ASC`,
		userID,
	)
}

// UpdateStatus persists a transition already validated by the lifecycle.
func (r *ReminderRepository) UpdateStatus(ctx context.Context, reminder *models.Reminder) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE reminders SET status = $1, value = $2, notes = $3, answered_at = $4
		 WHERE reminder_id = $5`,
		reminder.Status, reminder.Value, reminder.Notes, reminder.AnsweredAt, reminder.ReminderID,
	)
	return err
}

func (r *ReminderRepository) SetNotifiedAt(ctx context.Context, reminderID int64, at time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE reminders SET notified_at = $1 WHERE reminder_id = $2`,
		at, reminderID,
	)
	return err
}

func (r *ReminderRepository) SetLastMessageID(ctx context.Context, reminderID int64, messageID int) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE reminders SET last_message_id = $1 WHERE reminder_id = $2`,
		messageID, reminderID,
	)
	return err
}

// DeleteUpcoming removes a not-yet-due reminder at the user's request.
// Pending and answered reminders are not deletable this way.
func (r *ReminderRepository) DeleteUpcoming(ctx context.Context, reminderID, userID int64) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM reminders
		 WHERE reminder_id = $1 AND user_id = $2 AND status = 'upcoming'`,
		reminderID, userID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ReminderRepository) query(ctx context.Context, sql string, args ...any) ([]*models.Reminder, error) {
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []*models.Reminder
	for rows.Next() {
		reminder, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, reminder)
	}
	return reminders, rows.Err()
}
