package repository

import (
	"context"

	"github.com/twallet/habitus/internal/database"
	"github.com/twallet/habitus/internal/models"
	"github.com/twallet/habitus/internal/schedule"
)

type ScheduleRepository struct {
	db *database.DB
}

func NewScheduleRepository(db *database.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) GetByTracking(ctx context.Context, trackingID int64) ([]models.ScheduleEntry, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT entry_id, tracking_id, hour, minute FROM schedule_entries
		 WHERE tracking_id = $1 ORDER BY hour ASC, minute ASC`,
		trackingID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.ScheduleEntry
	for rows.Next() {
		var e models.ScheduleEntry
		if err := rows.Scan(&e.EntryID, &e.TrackingID, &e.Hour, &e.Minute); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ReplaceForTracking swaps the tracking's whole schedule in one transaction,
// so an edit is never partially applied. The set is validated before it gets
// here.
func (r *ScheduleRepository) ReplaceForTracking(ctx context.Context, trackingID int64, set schedule.Set) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM schedule_entries WHERE tracking_id = $1`, trackingID,
	); err != nil {
		return err
	}
	for _, e := range set.Entries() {
		if _, err := tx.Exec(ctx,
			`INSERT INTO schedule_entries (tracking_id, hour, minute) VALUES ($1, $2, $3)`,
			trackingID, e.Hour, e.Minute,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
