package domain

import "time"

// Session is one logged-in device. It is the source of truth for
// revocation: deleting it invalidates every token minted for it.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	UserAgent string    `json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session has lapsed at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Remaining is the lifetime left at now, never negative.
func (s Session) Remaining(now time.Time) time.Duration {
	return max(s.ExpiresAt.Sub(now), 0)
}
