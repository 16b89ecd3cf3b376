package models

import "time"

// User is a Telegram account that owns trackings. Identity is the Telegram
// user id; there is no separate signup.
type User struct {
	UserID         int64      `json:"user_id"`
	UserName       string     `json:"user_name"`
	Timezone       string     `json:"timezone"` // IANA name; empty means UTC
	DigestEnabled  bool       `json:"digest_enabled"`
	DigestTime     string     `json:"digest_time"` // HH:MM in the user's timezone
	LastDigestDate *time.Time `json:"last_digest_date"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ShouldSendDigest checks whether the daily digest is due: enabled, local
// time past the configured digest time, and not already sent today.
func (u *User) ShouldSendDigest(now time.Time) bool {
	if !u.DigestEnabled {
		return false
	}

	loc, err := time.LoadLocation(u.Timezone)
	if err != nil || u.Timezone == "" {
		loc = time.UTC
	}
	localNow := now.In(loc)

	digestAt, err := time.Parse("15:04", u.DigestTime)
	if err != nil {
		return false
	}
	if localNow.Hour() < digestAt.Hour() ||
		(localNow.Hour() == digestAt.Hour() && localNow.Minute() < digestAt.Minute()) {
		return false
	}

	if u.LastDigestDate != nil {
		last := u.LastDigestDate.In(loc)
		if last.Year() == localNow.Year() && last.YearDay() == localNow.YearDay() {
			return false
		}
	}
	return true
}
