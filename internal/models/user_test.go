package models

import (
	"testing"
	"time"
)

func TestShouldSendDigest(t *testing.T) {
	// 2026-08-29 12:00 UTC is 09:00 in Buenos Aires (UTC-3).
	now := time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)

	tests := []struct {
		name string
		user User
		want bool
	}{
		{
			name: "due",
			user: User{Timezone: "America/Argentina/Buenos_Aires", DigestEnabled: true, DigestTime: "08:00"},
			want: true,
		},
		{
			name: "disabled",
			user: User{Timezone: "America/Argentina/Buenos_Aires", DigestEnabled: false, DigestTime: "08:00"},
			want: false,
		},
		{
			name: "before digest time locally",
			user: User{Timezone: "America/Argentina/Buenos_Aires", DigestEnabled: true, DigestTime: "10:00"},
			want: false,
		},
		{
			name: "exactly at digest time",
			user: User{Timezone: "America/Argentina/Buenos_Aires", DigestEnabled: true, DigestTime: "09:00"},
			want: true,
		},
		{
			name: "already sent today",
			user: User{Timezone: "America/Argentina/Buenos_Aires", DigestEnabled: true, DigestTime: "08:00", LastDigestDate: &now},
			want: false,
		},
		{
			name: "sent yesterday",
			user: User{Timezone: "America/Argentina/Buenos_Aires", DigestEnabled: true, DigestTime: "08:00", LastDigestDate: &yesterday},
			want: true,
		},
		{
			name: "empty timezone falls back to UTC",
			user: User{DigestEnabled: true, DigestTime: "08:00"},
			want: true,
		},
		{
			name: "unparsable digest time",
			user: User{DigestEnabled: true, DigestTime: "morning"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.ShouldSendDigest(now); got != tt.want {
				t.Fatalf("ShouldSendDigest() = %v, want %v", got, tt.want)
			}
		})
	}
}
