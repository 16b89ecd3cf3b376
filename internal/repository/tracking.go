package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/twallet/habitus/internal/database"
	"github.com/twallet/habitus/internal/models"
)

type TrackingRepository struct {
	db *database.DB
}

func NewTrackingRepository(db *database.DB) *TrackingRepository {
	return &TrackingRepository{db: db}
}

const trackingColumns = `tracking_id, user_id, question, notes, icon, kind, weekdays, one_time_date, state, created_at`

func scanTracking(row interface{ Scan(dest ...any) error }) (*models.Tracking, error) {
	t := &models.Tracking{}
	err := row.Scan(&t.TrackingID, &t.UserID, &t.Question, &t.Notes, &t.Icon,
		&t.Kind, &t.Weekdays, &t.OneTimeDate, &t.State, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TrackingRepository) Create(ctx context.Context, t *models.Tracking) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO trackings (user_id, question, notes, icon, kind, weekdays, one_time_date, state)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING tracking_id, created_at`,
		t.UserID, t.Question, t.Notes, t.Icon, t.Kind, t.Weekdays, t.OneTimeDate, t.State,
	).Scan(&t.TrackingID, &t.CreatedAt)
}

func (r *TrackingRepository) GetByID(ctx context.Context, trackingID int64) (*models.Tracking, error) {
	return scanTracking(r.db.Pool.QueryRow(ctx,
		`SELECT `+trackingColumns+` FROM trackings WHERE tracking_id = $1`,
		trackingID,
	))
}

// GetByIDForUser loads a tracking only when it belongs to the given user,
// so a handler cannot operate on somebody else's tracking.
func (r *TrackingRepository) GetByIDForUser(ctx context.Context, trackingID, userID int64) (*models.Tracking, error) {
	return scanTracking(r.db.Pool.QueryRow(ctx,
		`SELECT `+trackingColumns+` FROM trackings WHERE tracking_id = $1 AND user_id = $2`,
		trackingID, userID,
	))
}

func (r *TrackingRepository) GetByUserID(ctx context.Context, userID int64, includeArchived bool) ([]*models.Tracking, error) {
	query := `SELECT ` + trackingColumns + ` FROM trackings WHERE user_id = $1`
	if !includeArchived {
		query += ` AND state <> 'archived'`
	}
	query += ` ORDER BY tracking_id ASC`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trackings []*models.Tracking
	for rows.Next() {
		t, err := scanTracking(rows)
		if err != nil {
			return nil, err
		}
		trackings = append(trackings, t)
	}
	return trackings, rows.Err()
}

// GetRunning lists every running tracking across all users, for the
// scheduler's resync pass.
func (r *TrackingRepository) GetRunning(ctx context.Context) ([]*models.Tracking, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+trackingColumns+` FROM trackings WHERE state = 'running' ORDER BY tracking_id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trackings []*models.Tracking
	for rows.Next() {
		t, err := scanTracking(rows)
		if err != nil {
			return nil, err
		}
		trackings = append(trackings, t)
	}
	return trackings, rows.Err()
}

func (r *TrackingRepository) SetState(ctx context.Context, trackingID int64, state models.TrackingState) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE trackings SET state = $1 WHERE tracking_id = $2`,
		state, trackingID,
	)
	return err
}

func (r *TrackingRepository) Delete(ctx context.Context, trackingID, userID int64) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM trackings WHERE tracking_id = $1 AND user_id = $2`,
		trackingID, userID,
	)
	return err
}

// IsNotFound reports whether an error means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
