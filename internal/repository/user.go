package repository

import (
	"context"
	"time"

	"github.com/twallet/habitus/internal/database"
	"github.com/twallet/habitus/internal/models"
)

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `user_id, user_name, timezone, digest_enabled, digest_time, last_digest_date, created_at`

func scanUser(row interface{ Scan(dest ...any) error }) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.UserID, &user.UserName, &user.Timezone,
		&user.DigestEnabled, &user.DigestTime, &user.LastDigestDate, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) GetOrCreate(ctx context.Context, userID int64, userName string) (*models.User, error) {
	return scanUser(r.db.Pool.QueryRow(ctx,
		`INSERT INTO "user" (user_id, user_name) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET user_name = EXCLUDED.user_name
		 RETURNING `+userColumns,
		userID, userName,
	))
}

func (r *UserRepository) GetByID(ctx context.Context, userID int64) (*models.User, error) {
	return scanUser(r.db.Pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM "user" WHERE user_id = $1`,
		userID,
	))
}

func (r *UserRepository) SetTimezone(ctx context.Context, userID int64, timezone string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE "user" SET timezone = $1 WHERE user_id = $2`,
		timezone, userID,
	)
	return err
}

func (r *UserRepository) SetDigest(ctx context.Context, userID int64, enabled bool, digestTime string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE "user" SET digest_enabled = $1, digest_time = $2 WHERE user_id = $3`,
		enabled, digestTime, userID,
	)
	return err
}

func (r *UserRepository) SetLastDigestDate(ctx context.Context, userID int64, at time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE "user" SET last_digest_date = $1 WHERE user_id = $2`,
		at, userID,
	)
	return err
}

// GetAllWithDigestEnabled lists users whose daily digest is switched on.
func (r *UserRepository) GetAllWithDigestEnabled(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+userColumns+` FROM "user" WHERE digest_enabled = TRUE`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
