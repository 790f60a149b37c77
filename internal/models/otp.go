package models

import "time"

// OTPEntry is a pending one-time code for a canonical email.
type OTPEntry struct {
	Code     string
	IssuedAt time.Time
}

// ExpiresAt is the last instant the code is still accepted.
func (e OTPEntry) ExpiresAt(ttl time.Duration) time.Time {
	return e.IssuedAt.Add(ttl)
}
